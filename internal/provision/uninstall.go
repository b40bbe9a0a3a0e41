package provision

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"dictate/internal/config"
	"dictate/internal/fileutil"
	"dictate/internal/ledger"
	"dictate/internal/logging"
	"dictate/internal/preflight"
	"dictate/internal/systemd"
)

// Uninstaller removes everything the installer provisioned.
type Uninstaller struct {
	cfg  *config.Config
	opts options
}

// NewUninstaller constructs an Uninstaller for cfg.
func NewUninstaller(cfg *config.Config, opts ...Option) *Uninstaller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockPath == "" {
		o.lockPath = LockPath()
	}
	return &Uninstaller{cfg: cfg, opts: o}
}

type teardown struct {
	cfg     *config.Config
	opts    options
	manager systemd.Manager
	logger  *slog.Logger
	report  *Report
}

// Uninstall stops and removes services, staged files, the virtual environment
// and the ledger. Individual failures are recorded in the report and logged;
// only the preflight guard and the run lock can make it return an error.
func (u *Uninstaller) Uninstall(ctx context.Context) (Report, error) {
	logger := logging.NewComponentLogger(u.opts.logger, "uninstaller")
	report := Report{}

	if result := u.opts.privilegeCheck(); !result.Passed {
		return report, Wrap(ErrPrivileged, "preflight", "user", result.Detail, nil)
	}
	release, err := acquireLock(u.opts.lockPath)
	if err != nil {
		return report, err
	}
	defer release()

	t := &teardown{cfg: u.cfg, opts: u.opts, logger: logger, report: &report}

	manager, closeManager, err := resolveManager(u.cfg, u.opts)
	if err != nil {
		t.fail("services", "service manager", err)
	} else {
		defer closeManager()
		t.manager = manager
	}

	ownsYdotoold := t.ownsInputUnit(ctx)

	t.stopServices(ctx, systemd.StreamingUnit, systemd.DictationUnit)
	if ownsYdotoold {
		t.stopServices(ctx, systemd.YdotooldUnit)
	} else {
		t.note("services", systemd.YdotooldUnit, OutcomeSkipped, "not created by dictatectl")
	}

	unitDir := u.cfg.Paths.SystemdUserDir
	t.removeFile("units", filepath.Join(unitDir, systemd.StreamingUnit))
	t.removeFile("units", filepath.Join(unitDir, systemd.DictationUnit))
	t.removeTree("units", filepath.Join(unitDir, systemd.DictationUnit+".d"))
	if ownsYdotoold {
		t.removeFile("units", filepath.Join(unitDir, systemd.YdotooldUnit))
	}
	t.daemonReload(ctx)

	for _, script := range preflight.SourceScripts {
		t.removeFile("scripts", filepath.Join(u.cfg.Paths.BinDir, script.Installed))
	}
	t.removeTree("submodule", u.cfg.StagedSubmoduleDir())

	socketPath, audioPath := config.SocketPath, config.AudioPath
	if u.opts.socketPath != "" {
		socketPath = u.opts.socketPath
	}
	if u.opts.audioPath != "" {
		audioPath = u.opts.audioPath
	}
	t.removeFile("runtime", socketPath)
	t.removeFile("runtime", audioPath)

	t.removeFile("environment", u.cfg.WarmupFile())
	t.removeTree("environment", u.cfg.VenvDir())
	for _, path := range ledger.Files(u.cfg.LedgerPath()) {
		t.removeFile("ledger", path)
	}

	for _, dir := range []string{u.cfg.Paths.CacheDir, u.cfg.Paths.ConfigDir, u.cfg.Paths.DataDir} {
		t.removeEmptyDir(dir)
	}

	logger.Info("uninstall complete",
		logging.Int("steps", len(report.Steps)),
		logging.Int("failures", len(report.Failures())),
	)
	return report, nil
}

// ownsInputUnit reports whether the ledger says an install created the
// ydotoold unit. Without a ledger the unit is treated as pre-existing.
func (t *teardown) ownsInputUnit(ctx context.Context) bool {
	store, ok, err := ledger.OpenExisting(t.cfg.LedgerPath())
	if err != nil {
		t.fail("ledger", t.cfg.LedgerPath(), err)
		return false
	}
	if !ok {
		return false
	}
	defer store.Close()

	artifact, found, err := store.Artifact(ctx, filepath.Join(t.cfg.Paths.SystemdUserDir, systemd.YdotooldUnit))
	if err != nil {
		t.fail("ledger", systemd.YdotooldUnit, err)
		return false
	}
	return found && artifact.Owned
}

func (t *teardown) stopServices(ctx context.Context, units ...string) {
	if t.manager == nil {
		return
	}
	for _, unit := range units {
		if err := t.manager.Stop(ctx, unit); err != nil {
			t.warn("services", unit, "stop failed", err)
		}
		if err := t.manager.Disable(ctx, unit); err != nil {
			t.warn("services", unit, "disable failed", err)
			t.note("services", unit, OutcomeSkipped, "not installed or already removed")
			continue
		}
		t.note("services", unit, OutcomeDone, "stopped and disabled")
	}
}

func (t *teardown) daemonReload(ctx context.Context) {
	if t.manager == nil {
		return
	}
	if err := t.manager.DaemonReload(ctx); err != nil {
		t.fail("services", "daemon-reload", err)
		return
	}
	t.note("services", "daemon-reload", OutcomeDone, "")
}

func (t *teardown) removeFile(step, path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		t.note(step, path, OutcomeRemoved, "")
	case errors.Is(err, fs.ErrNotExist):
		t.note(step, path, OutcomeAbsent, "")
	default:
		t.fail(step, path, err)
	}
}

func (t *teardown) removeTree(step, path string) {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.note(step, path, OutcomeAbsent, "")
			return
		}
		t.fail(step, path, err)
		return
	}
	if err := os.RemoveAll(path); err != nil {
		t.fail(step, path, err)
		return
	}
	t.note(step, path, OutcomeRemoved, "")
}

func (t *teardown) removeEmptyDir(dir string) {
	removed, err := fileutil.RemoveIfEmpty(dir)
	if err != nil {
		t.fail("directories", dir, err)
		return
	}
	if removed {
		t.note("directories", dir, OutcomeRemoved, "")
		return
	}
	t.note("directories", dir, OutcomeSkipped, "kept (not empty or absent)")
}

func (t *teardown) note(step, resource string, outcome Outcome, detail string) {
	t.report.Steps = append(t.report.Steps, StepResult{Step: step, Resource: resource, Outcome: outcome, Detail: detail})
	attrs := []any{logging.String("resource", resource), logging.String("outcome", string(outcome))}
	if detail != "" {
		attrs = append(attrs, logging.String("detail", detail))
	}
	logging.WithStep(t.logger, step).Info(stepMessage(outcome), attrs...)
}

// warn logs a best-effort failure that does not count against the run.
func (t *teardown) warn(step, resource, message string, err error) {
	logging.WithStep(t.logger, step).Warn(message, logging.String("resource", resource), logging.Error(err))
}

func (t *teardown) fail(step, resource string, err error) {
	t.report.Steps = append(t.report.Steps, StepResult{Step: step, Resource: resource, Outcome: OutcomeFailed, Detail: err.Error()})
	logging.WithStep(t.logger, step).Warn("step failed", logging.String("resource", resource), logging.Error(err))
}
