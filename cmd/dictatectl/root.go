package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(opts ...cliOption) *cobra.Command {
	var configFlag string
	var sourceFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &sourceFlag, &logLevelFlag, opts...)

	rootCmd := &cobra.Command{
		Use:           "dictatectl",
		Short:         "Install and remove the jnickg-dictate dictation services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.PrintErrln(cmd.UsageString())
		return err
	})

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&sourceFlag, "source", "", "Source tree holding the scripts and whisper_streaming submodule")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newInstallCommand(ctx))
	rootCmd.AddCommand(newUninstallCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
