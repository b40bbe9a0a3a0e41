package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dictate/internal/provision"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags variantFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the unit files install would write",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := flags.settings(cmd, cfg)
			if err != nil {
				return err
			}
			units, err := provision.RenderPreview(cfg, settings)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, unit := range units {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "# %s\n", unit.Name)
				fmt.Fprint(out, string(unit.Content))
			}
			return nil
		},
	}

	flags.register(cmd, false)
	return cmd
}
