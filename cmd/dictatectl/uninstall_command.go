package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dictate/internal/provision"
)

func newUninstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Stop services and remove everything install created",
		Long: `Stop and disable the dictation services, then remove unit files, staged
scripts, the streaming submodule copy, the virtual environment and runtime files.

Missing pieces are skipped. Downloaded Whisper models and a ydotoold unit that
existed before install are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			report, err := provision.NewUninstaller(cfg, ctx.provisionOptions(logger)...).Uninstall(cmd.Context())
			if err != nil {
				return err
			}

			removed := 0
			for _, step := range report.Steps {
				if step.Outcome == provision.OutcomeRemoved {
					removed++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uninstalled jnickg-dictate (%d items removed)\n", removed)
			if failures := report.Failures(); len(failures) > 0 {
				fmt.Fprintf(out, "%d items could not be removed:\n", len(failures))
				for _, step := range failures {
					fmt.Fprintf(out, "  %s %s: %s\n", step.Step, step.Resource, step.Detail)
				}
			}
			fmt.Fprintf(out, "Whisper models in %s were kept.\n", cfg.Paths.WhisperCacheDir)
			return nil
		},
	}
}
