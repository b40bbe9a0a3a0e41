package provision

import (
	"context"
	"slices"
	"strings"

	"dictate/internal/deps"
	"dictate/internal/logging"
)

// pythonCommand is the interpreter the virtual environment is created with.
const pythonCommand = "python3"

// ensureDependencies probes the runtime executables and the python3 venv
// module, then installs the packages for anything missing in one privileged
// batch.
func (p *pipeline) ensureDependencies(ctx context.Context) error {
	const step = "dependencies"

	requirements := deps.Requirements(p.settings.InputMethod)
	missing := deps.Missing(deps.CheckBinaries(requirements))
	venvErr := p.checkVenvModule(ctx, missing)
	if len(missing) == 0 && venvErr == nil {
		p.note(step, "executables", OutcomeUnchanged, "all present")
		return nil
	}

	detail := missingCommands(missing)
	if venvErr != nil {
		logging.WithStep(p.logger, step).Info("python3 venv module unavailable", logging.Error(venvErr))
		if detail == "" {
			detail = "python3 venv module"
		}
	}

	manager, err := deps.DetectManager(p.cfg.Packages.Manager)
	if err != nil {
		return Wrap(ErrDependency, step, "detect package manager", detail, err)
	}
	pkgs := manager.PackagesFor(missing)
	if venvErr != nil {
		pkg := manager.VenvPackage()
		if pkg == "" {
			return Wrap(ErrDependency, step, "check venv module", manager.Name, venvErr)
		}
		if !slices.Contains(pkgs, pkg) {
			pkgs = append(pkgs, pkg)
		}
	}
	logging.WithStep(p.logger, step).Info("installing system packages",
		logging.String("manager", manager.Name),
		logging.Strings("packages", pkgs),
	)
	if err := manager.Install(ctx, p.opts.runner, p.cfg.Packages.PrivilegeCommand, pkgs, p.outputLogger(step)); err != nil {
		return Wrap(ErrDependency, step, "install packages", manager.Name, err)
	}

	if still := deps.Missing(deps.CheckBinaries(requirements)); len(still) > 0 {
		logging.WithStep(p.logger, step).Warn("executables still missing after package install",
			logging.String("commands", missingCommands(still)))
	}
	p.note(step, "packages", OutcomeDone, strings.Join(pkgs, " "))
	return nil
}

// checkVenvModule runs the ensurepip import check when python3 is already
// installed. A missing python3 is covered by its own package.
func (p *pipeline) checkVenvModule(ctx context.Context, missing []deps.Status) error {
	for _, status := range missing {
		if status.Command == pythonCommand {
			return nil
		}
	}
	return deps.CheckVenvModule(ctx, p.opts.runner, pythonCommand, p.outputLogger("dependencies"))
}

func missingCommands(statuses []deps.Status) string {
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, status.Command)
	}
	return strings.Join(names, ", ")
}
