package provision

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"dictate/internal/config"
	"dictate/internal/fileutil"
	"dictate/internal/ledger"
	"dictate/internal/systemd"
)

const defaultYdotooldPath = "/usr/bin/ydotoold"

// provisionInput sets up the ydotoold helper service. Other input methods
// need no helper.
func (p *pipeline) provisionInput(ctx context.Context) error {
	const step = "input"

	if p.settings.InputMethod != config.InputYdotool {
		p.note(step, p.settings.InputMethod, OutcomeSkipped, "no helper service required")
		return nil
	}

	unitDir := p.cfg.Paths.SystemdUserDir
	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return Wrap(ErrFilesystem, step, "create directory", unitDir, err)
	}
	unitPath := filepath.Join(unitDir, systemd.YdotooldUnit)

	_, statErr := os.Stat(unitPath)
	switch {
	case statErr == nil:
		sum, err := fileutil.HashFile(unitPath)
		if err != nil {
			return Wrap(ErrFilesystem, step, "hash unit", unitPath, err)
		}
		p.record(ctx, unitPath, ledger.KindInputUnit, sum, false)
		p.note(step, systemd.YdotooldUnit, OutcomeUnchanged, "unit already present")
	case errors.Is(statErr, fs.ErrNotExist):
		content, err := systemd.YdotooldUnitContent(p.cfg.Paths.TemplatesDir, ydotooldPath())
		if err != nil {
			return Wrap(ErrFilesystem, step, "load template", systemd.YdotooldUnit, err)
		}
		if _, err := fileutil.WriteFileAtomic(unitPath, content, 0o644); err != nil {
			return Wrap(ErrFilesystem, step, "write unit", unitPath, err)
		}
		p.record(ctx, unitPath, ledger.KindInputUnit, fileutil.HashBytes(content), true)
		p.note(step, systemd.YdotooldUnit, OutcomeDone, unitPath)
	default:
		return Wrap(ErrFilesystem, step, "stat unit", unitPath, statErr)
	}

	if err := p.manager.DaemonReload(ctx); err != nil {
		return Wrap(ErrServiceManager, step, "daemon-reload", "", err)
	}
	active, err := p.manager.IsActive(ctx, systemd.YdotooldUnit)
	if err != nil {
		return Wrap(ErrServiceManager, step, "is-active", systemd.YdotooldUnit, err)
	}
	if active {
		p.note(step, "ydotoold", OutcomeUnchanged, "already active")
		return nil
	}
	if err := p.manager.Enable(ctx, systemd.YdotooldUnit); err != nil {
		return Wrap(ErrServiceManager, step, "enable", systemd.YdotooldUnit, err)
	}
	if err := p.manager.Start(ctx, systemd.YdotooldUnit); err != nil {
		return Wrap(ErrServiceManager, step, "start", systemd.YdotooldUnit, err)
	}
	p.note(step, "ydotoold", OutcomeDone, "enabled and started")
	return nil
}

func ydotooldPath() string {
	if path, err := exec.LookPath("ydotoold"); err == nil {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return defaultYdotooldPath
}
