package provision

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dictate/internal/fileutil"
	"dictate/internal/ledger"
	"dictate/internal/logging"
	"dictate/internal/preflight"
)

// provisionEnvironment creates directories, stages scripts and the streaming
// submodule, and prepares the virtual environment.
func (p *pipeline) provisionEnvironment(ctx context.Context) error {
	if err := p.ensureDirectories(); err != nil {
		return err
	}
	if err := p.stageScripts(ctx); err != nil {
		return err
	}
	if p.settings.Streaming() {
		if err := p.stageSubmodule(ctx); err != nil {
			return err
		}
	}
	if err := p.prepareVenv(ctx); err != nil {
		return err
	}
	if p.settings.Streaming() {
		if err := p.writeWarmup(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) ensureDirectories() error {
	const step = "directories"
	if err := p.cfg.EnsureDirectories(); err != nil {
		return Wrap(ErrFilesystem, step, "create", "", err)
	}
	p.note(step, "", OutcomeDone, strings.Join(p.cfg.Directories(), " "))
	return nil
}

func (p *pipeline) stageScripts(ctx context.Context) error {
	const step = "scripts"
	for _, script := range preflight.SourceScripts {
		src := filepath.Join(p.cfg.Paths.SourceDir, script.Source)
		dst := filepath.Join(p.cfg.Paths.BinDir, script.Installed)
		sum, err := fileutil.CopyFileMode(src, dst, 0o755)
		if err != nil {
			return Wrap(ErrFilesystem, step, "copy", src, err)
		}
		p.record(ctx, dst, ledger.KindScript, sum, true)
		p.note(step, script.Installed, OutcomeDone, dst)
	}
	return nil
}

// stageSubmodule replaces any staged copy with a fresh one so removed upstream
// files do not linger.
func (p *pipeline) stageSubmodule(ctx context.Context) error {
	const step = "submodule"
	src := p.cfg.SubmodulePath()
	dst := p.cfg.StagedSubmoduleDir()
	if filepath.Clean(src) == filepath.Clean(dst) {
		p.note(step, dst, OutcomeUnchanged, "source is the staged location")
		return nil
	}
	if err := os.RemoveAll(dst); err != nil {
		return Wrap(ErrFilesystem, step, "remove staged copy", dst, err)
	}
	if err := fileutil.CopyTree(src, dst); err != nil {
		return Wrap(ErrFilesystem, step, "copy", src, err)
	}
	p.record(ctx, dst, ledger.KindSubmodule, "", true)
	p.note(step, filepath.Base(dst), OutcomeDone, dst)
	return nil
}

func (p *pipeline) prepareVenv(ctx context.Context) error {
	const step = "venv"
	venv := p.cfg.VenvDir()

	if p.settings.CleanVenv {
		if err := os.RemoveAll(venv); err != nil {
			return Wrap(ErrFilesystem, step, "remove", venv, err)
		}
		p.note(step, venv, OutcomeRemoved, "clean requested")
	}

	exists, err := venvExists(venv)
	if err != nil {
		return Wrap(ErrFilesystem, step, "inspect", venv, err)
	}
	if exists {
		p.note(step, venv, OutcomeUnchanged, "reusing existing environment")
	} else {
		// A directory without pyvenv.cfg is a broken earlier attempt.
		if err := os.RemoveAll(venv); err != nil {
			return Wrap(ErrFilesystem, step, "remove partial", venv, err)
		}
		if err := p.opts.runner.Run(ctx, pythonCommand, []string{"-m", "venv", venv}, p.outputLogger(step)); err != nil {
			return Wrap(ErrDependency, step, "create", venv, err)
		}
		p.note(step, venv, OutcomeDone, "created")
	}
	p.record(ctx, venv, ledger.KindVenv, "", true)

	python := filepath.Join(venv, "bin", "python")
	if err := p.opts.runner.Run(ctx, python, []string{"-m", "pip", "install", "--upgrade", "pip"}, p.outputLogger(step)); err != nil {
		return Wrap(ErrDependency, step, "upgrade pip", "", err)
	}

	goos, machine := p.opts.platform()
	pkgs := VenvPackages(p.settings.Streaming(), goos, machine)
	logging.WithStep(p.logger, step).Info("installing python packages", logging.Strings("packages", pkgs))
	args := append([]string{"-m", "pip", "install"}, pkgs...)
	if err := p.opts.runner.Run(ctx, python, args, p.outputLogger(step)); err != nil {
		return Wrap(ErrDependency, step, "install packages", strings.Join(pkgs, " "), err)
	}
	p.note(step, "packages", OutcomeDone, strings.Join(pkgs, " "))
	return nil
}

func venvExists(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, "pyvenv.cfg"))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (p *pipeline) writeWarmup(ctx context.Context) error {
	const step = "warmup"
	path := p.cfg.WarmupFile()
	if _, err := os.Stat(path); err == nil {
		p.note(step, filepath.Base(path), OutcomeUnchanged, path)
		return nil
	}
	data := silentWAV(warmupSampleRate, warmupSeconds)
	if _, err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return Wrap(ErrFilesystem, step, "write", path, err)
	}
	p.record(ctx, path, ledger.KindWarmup, fileutil.HashBytes(data), true)
	p.note(step, filepath.Base(path), OutcomeDone, path)
	return nil
}
