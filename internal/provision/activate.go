package provision

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"dictate/internal/config"
	"dictate/internal/fileutil"
	"dictate/internal/ledger"
	"dictate/internal/logging"
	"dictate/internal/systemd"
)

// writeUnits writes each rendered unit into the user systemd directory.
// Unchanged units are left untouched.
func (p *pipeline) writeUnits(ctx context.Context, units []systemd.Unit) error {
	const step = "render"
	for _, unit := range units {
		path := filepath.Join(p.cfg.Paths.SystemdUserDir, unit.Name)
		changed, err := fileutil.WriteFileAtomic(path, unit.Content, 0o644)
		if err != nil {
			return Wrap(ErrFilesystem, step, "write unit", path, err)
		}
		p.record(ctx, path, ledger.KindUnit, fileutil.HashBytes(unit.Content), true)
		outcome := OutcomeDone
		if !changed {
			outcome = OutcomeUnchanged
		}
		p.note(step, unit.Name, outcome, path)
	}
	return nil
}

// activate reloads the user manager, enables the rendered units and restarts
// them. The streaming server gets a fixed head start before the dictation
// daemon restarts.
func (p *pipeline) activate(ctx context.Context) error {
	const step = "activate"
	names := systemd.UnitNames(p.settings.Streaming())

	if err := p.manager.DaemonReload(ctx); err != nil {
		return Wrap(ErrServiceManager, step, "daemon-reload", "", err)
	}
	if err := p.manager.Enable(ctx, names...); err != nil {
		return Wrap(ErrServiceManager, step, "enable", "", err)
	}

	if p.settings.Streaming() {
		if err := p.manager.Restart(ctx, systemd.StreamingUnit); err != nil {
			return Wrap(ErrServiceManager, step, "restart", systemd.StreamingUnit, err)
		}
		p.note(step, systemd.StreamingUnit, OutcomeDone, "restarted")

		delay := time.Duration(p.cfg.Streaming.StartupDelaySeconds) * time.Second
		logging.WithStep(p.logger, step).Info("waiting for streaming server", logging.String("delay", delay.String()))
		if err := p.opts.sleep(ctx, delay); err != nil {
			return Wrap(ErrServiceManager, step, "startup delay", "", err)
		}
	}

	if err := p.manager.Restart(ctx, systemd.DictationUnit); err != nil {
		return Wrap(ErrServiceManager, step, "restart", systemd.DictationUnit, err)
	}
	p.note(step, systemd.DictationUnit, OutcomeDone, "restarted")

	p.awaitSocket(ctx)
	return nil
}

// awaitSocket waits for the daemon socket when configured. A timeout is only
// reported; the daemon may still be loading its model.
func (p *pipeline) awaitSocket(ctx context.Context) {
	const step = "socket"
	wait := time.Duration(p.cfg.Systemd.SocketWaitSeconds) * time.Second
	if wait <= 0 {
		return
	}
	path := p.opts.socketPath
	if path == "" {
		path = config.SocketPath
	}
	if err := p.opts.waitSocket(ctx, path, wait); err != nil {
		if errors.Is(err, systemd.ErrSocketTimeout) {
			logging.WithStep(p.logger, step).Warn("daemon socket not ready yet", logging.String("path", path), logging.Error(err))
		} else {
			logging.WithStep(p.logger, step).Warn("socket wait failed", logging.Error(err))
		}
		p.note(step, path, OutcomeSkipped, "not ready")
		return
	}
	p.note(step, path, OutcomeDone, "listening")
}
