package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dictate/internal/config"
	"dictate/internal/ledger"
	"dictate/internal/logging"
	"dictate/internal/preflight"
	"dictate/internal/systemd"
)

// Installer provisions the dictation utility for the invoking user.
type Installer struct {
	cfg  *config.Config
	opts options
}

// NewInstaller constructs an Installer for cfg.
func NewInstaller(cfg *config.Config, opts ...Option) *Installer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockPath == "" {
		o.lockPath = LockPath()
	}
	return &Installer{cfg: cfg, opts: o}
}

// pipeline carries the state shared by the steps of one install run.
type pipeline struct {
	cfg      *config.Config
	settings Settings
	opts     options
	manager  systemd.Manager
	store    *ledger.Store
	runID    string
	logger   *slog.Logger
	report   *Report
}

type installStep struct {
	name string
	run  func(context.Context) error
}

// Install runs the full pipeline: dependency check, input method helper,
// environment, unit rendering and activation. It stops at the first failure
// and leaves completed steps in place.
func (i *Installer) Install(ctx context.Context, settings Settings) (Report, error) {
	logger := logging.NewComponentLogger(i.opts.logger, "installer")
	report := Report{}

	if result := i.opts.privilegeCheck(); !result.Passed {
		return report, Wrap(ErrPrivileged, "preflight", "user", result.Detail, nil)
	}
	if err := settings.Validate(); err != nil {
		return report, err
	}
	report.Settings = settings
	if !config.IsKnownModel(settings.Model) {
		logger.Warn("model is not in the Whisper catalog; using it verbatim",
			logging.String("model", settings.Model))
	}

	release, err := acquireLock(i.opts.lockPath)
	if err != nil {
		return report, err
	}
	defer release()

	if err := i.checkSources(settings); err != nil {
		return report, err
	}
	units, err := systemd.RenderUnits(i.cfg.Paths.TemplatesDir, systemd.UnitNames(settings.Streaming()), unitValues(i.cfg, settings))
	if err != nil {
		marker := ErrFilesystem
		if errors.Is(err, systemd.ErrMissingPlaceholder) {
			marker = ErrTemplatePlaceholder
		}
		return report, Wrap(marker, "render", "templates", "", err)
	}

	manager, closeManager, err := resolveManager(i.cfg, i.opts)
	if err != nil {
		return report, err
	}
	defer closeManager()

	store, err := ledger.Open(i.cfg.LedgerPath())
	if err != nil {
		return report, Wrap(ErrFilesystem, "ledger", "open", i.cfg.LedgerPath(), err)
	}
	defer store.Close()

	run, err := store.BeginRun(ctx, ledger.RunInfo{
		Variant:       string(settings.Variant),
		Model:         settings.Model,
		InputMethod:   settings.InputMethod,
		StreamingPort: settings.StreamingPort,
	})
	if err != nil {
		return report, Wrap(ErrFilesystem, "ledger", "begin run", "", err)
	}
	report.RunID = run.ID
	logger = logger.With(logging.String(logging.FieldRunID, run.ID))
	logger.Info("install started",
		logging.String("variant", string(settings.Variant)),
		logging.String("model", settings.Model),
		logging.String("input_method", settings.InputMethod),
		logging.Int("streaming_port", settings.StreamingPort),
	)

	p := &pipeline{
		cfg:      i.cfg,
		settings: settings,
		opts:     i.opts,
		manager:  manager,
		store:    store,
		runID:    run.ID,
		logger:   logger,
		report:   &report,
	}

	runErr := p.execute(ctx, []installStep{
		{name: "dependencies", run: p.ensureDependencies},
		{name: "input", run: p.provisionInput},
		{name: "environment", run: p.provisionEnvironment},
		{name: "render", run: func(ctx context.Context) error { return p.writeUnits(ctx, units) }},
		{name: "activate", run: p.activate},
	})

	if finishErr := store.FinishRun(context.WithoutCancel(ctx), run.ID, runErr); finishErr != nil {
		logger.Warn("failed to record run outcome", logging.Error(finishErr))
	}
	if runErr != nil {
		return report, runErr
	}
	logger.Info("install complete", logging.Int("steps", len(report.Steps)))
	return report, nil
}

func (p *pipeline) execute(ctx context.Context, steps []installStep) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Wrap(ErrFilesystem, step.name, "cancelled", "", err)
		}
		if err := step.run(ctx); err != nil {
			p.note(step.name, "", OutcomeFailed, err.Error())
			return err
		}
	}
	return nil
}

// checkSources confirms the source tree before anything is written.
func (i *Installer) checkSources(settings Settings) error {
	if settings.Streaming() {
		if result := preflight.CheckSubmodule(i.cfg.SubmodulePath()); !result.Passed {
			return Wrap(ErrSubmoduleMissing, "environment", "submodule", result.Detail, nil)
		}
	}
	if result := preflight.CheckSourceScripts(i.cfg.Paths.SourceDir); !result.Passed {
		return Wrap(ErrFilesystem, "environment", "scripts", result.Detail, nil)
	}
	return nil
}

// note records a step result and logs it.
func (p *pipeline) note(step, resource string, outcome Outcome, detail string) {
	p.report.Steps = append(p.report.Steps, StepResult{Step: step, Resource: resource, Outcome: outcome, Detail: detail})
	logger := logging.WithStep(p.logger, step)
	attrs := []any{logging.String("outcome", string(outcome))}
	if resource != "" {
		attrs = append(attrs, logging.String("resource", resource))
	}
	if detail != "" && outcome != OutcomeFailed {
		attrs = append(attrs, logging.String("detail", detail))
	}
	if outcome == OutcomeFailed {
		logger.Error("step failed", append(attrs, logging.String("error", detail))...)
		return
	}
	logger.Info(stepMessage(outcome), attrs...)
}

func stepMessage(outcome Outcome) string {
	switch outcome {
	case OutcomeUnchanged:
		return "already up to date"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRemoved:
		return "removed"
	case OutcomeAbsent:
		return "not present"
	default:
		return "completed"
	}
}

// outputLogger forwards subprocess output to debug logs for step.
func (p *pipeline) outputLogger(step string) func(string) {
	logger := logging.WithStep(p.logger, step)
	return func(line string) {
		if line = strings.TrimSpace(line); line != "" {
			logger.Debug(line)
		}
	}
}

func (p *pipeline) record(ctx context.Context, path string, kind ledger.Kind, sum string, owned bool) {
	err := p.store.RecordArtifact(ctx, ledger.Artifact{Path: path, Kind: kind, SHA256: sum, Owned: owned, RunID: p.runID})
	if err != nil {
		p.logger.Warn("ledger update failed", logging.String("path", path), logging.Error(err))
	}
}

func unitValues(cfg *config.Config, settings Settings) systemd.Values {
	return systemd.Values{
		Model:         settings.Model,
		InputMethod:   settings.InputMethod,
		StreamingPort: settings.StreamingPort,
		BinDir:        cfg.Paths.BinDir,
		DataDir:       cfg.Paths.DataDir,
		SubmoduleDir:  cfg.StagedSubmoduleDir(),
	}
}

// RenderPreview renders the units an install with settings would write,
// without touching the filesystem.
func RenderPreview(cfg *config.Config, settings Settings) ([]systemd.Unit, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	units, err := systemd.RenderUnits(cfg.Paths.TemplatesDir, systemd.UnitNames(settings.Streaming()), unitValues(cfg, settings))
	if err != nil {
		if errors.Is(err, systemd.ErrMissingPlaceholder) {
			return nil, Wrap(ErrTemplatePlaceholder, "render", "templates", "", err)
		}
		return nil, Wrap(ErrFilesystem, "render", "templates", "", err)
	}
	return units, nil
}

func resolveManager(cfg *config.Config, opts options) (systemd.Manager, func(), error) {
	if opts.manager != nil {
		return opts.manager, func() {}, nil
	}
	manager, err := systemd.New(cfg.Systemd.Backend, opts.runner)
	if err != nil {
		return nil, nil, Wrap(ErrServiceManager, "systemd", "connect", fmt.Sprintf("backend %s", cfg.Systemd.Backend), err)
	}
	return manager, func() { _ = manager.Close() }, nil
}
