package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dictate/internal/config"
	"dictate/internal/ledger"
	"dictate/internal/preflight"
	"dictate/internal/provision"
	"dictate/internal/systemd"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dependencies, services and installed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			w := newStatusWriter(cmd.OutOrStdout())

			latest, artifacts, ledgerErr := readLedger(cmd.Context(), cfg.LedgerPath())
			streaming := latest != nil && latest.Variant == string(provision.VariantStreaming)

			w.section("Configuration")
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail += " (defaults)"
			}
			w.line("Config", statusInfo, configDetail)
			w.line("Model", statusInfo, cfg.Dictation.Model)
			w.line("Input method", statusInfo, cfg.Dictation.InputMethod)
			w.line("Streaming port", statusInfo, strconv.Itoa(cfg.Streaming.Port))
			for _, result := range preflight.RunAll(cfg, streaming) {
				w.check(result)
			}

			w.section("Dependencies")
			deps := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(deps))
			missing := 0
			for _, dep := range deps {
				state, detail := "ready", dep.Path
				if !dep.Available {
					state, detail = "missing", dep.Detail
					missing++
				}
				rows = append(rows, []string{dep.Command, state, detail})
			}
			w.table(stateTable{
				headers:     []string{"Command", "State", "Detail"},
				rows:        rows,
				stateColumn: 1,
				footer:      fmt.Sprintf("%d of %d missing", missing, len(deps)),
			})

			w.section("Services")
			w.table(stateTable{
				headers:     []string{"Unit", "Active"},
				rows:        serviceRows(cmd.Context(), ctx, cfg),
				stateColumn: 1,
			})

			w.section("Install Ledger")
			switch {
			case ledgerErr != nil:
				w.line("Ledger", statusError, ledgerErr.Error())
			case latest == nil:
				w.line("Ledger", statusInfo, "No install recorded")
			default:
				printLedger(w, *latest, artifacts)
			}

			w.section("Runtime")
			w.check(preflight.CheckDaemonSocket(config.SocketPath))
			return nil
		},
	}
}

// readLedger loads the latest run and artifacts. A missing ledger yields nil
// without error.
func readLedger(ctx context.Context, path string) (*ledger.Run, []ledger.Artifact, error) {
	store, ok, err := ledger.OpenReadOnly(path)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	defer store.Close()

	run, found, err := store.LatestRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, nil
	}
	artifacts, err := store.Artifacts(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &run, artifacts, nil
}

func serviceRows(ctx context.Context, cmdCtx *commandContext, cfg *config.Config) [][]string {
	units := append(systemd.UnitNames(true), systemd.YdotooldUnit)
	rows := make([][]string, 0, len(units))

	manager, release, err := cmdCtx.serviceManager(cfg)
	if err != nil {
		for _, unit := range units {
			rows = append(rows, []string{unit, "unknown (" + err.Error() + ")"})
		}
		return rows
	}
	defer release()

	for _, unit := range units {
		active, err := manager.IsActive(ctx, unit)
		switch {
		case err != nil:
			rows = append(rows, []string{unit, "unknown (" + err.Error() + ")"})
		case active:
			rows = append(rows, []string{unit, "active"})
		default:
			rows = append(rows, []string{unit, "inactive"})
		}
	}
	return rows
}

func printLedger(w *statusWriter, run ledger.Run, artifacts []ledger.Artifact) {
	kind := statusOK
	switch run.Status {
	case ledger.RunFailed:
		kind = statusError
	case ledger.RunRunning:
		kind = statusWarn
	}
	detail := fmt.Sprintf("%s variant, %s at %s", titleLabel(run.Variant), titleLabel(string(run.Status)), run.StartedAt.Local().Format(time.DateTime))
	w.line("Last run", kind, detail)
	if run.Error != "" {
		w.line("Error", statusError, run.Error)
	}
	if len(artifacts) == 0 {
		return
	}

	rows := make([][]string, 0, len(artifacts))
	drifted := 0
	for _, artifact := range artifacts {
		state, err := ledger.Drift(artifact)
		label := string(state)
		if err != nil {
			label = fmt.Sprintf("%s (%v)", state, err)
		}
		if state != ledger.DriftNone {
			drifted++
		}
		rows = append(rows, []string{artifact.Path, titleLabel(string(artifact.Kind)), yesNo(artifact.Owned), label})
	}
	w.table(stateTable{
		headers:     []string{"Path", "Kind", "Owned", "State"},
		rows:        rows,
		stateColumn: 3,
		footer:      fmt.Sprintf("%d files, %d drifted", len(artifacts), drifted),
	})
}
