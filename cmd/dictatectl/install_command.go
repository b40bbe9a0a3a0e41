package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dictate/internal/config"
	"dictate/internal/provision"
)

// variantFlags holds the flags install and render share.
type variantFlags struct {
	streaming bool
	model     string
	input     string
	port      int
	clean     bool
}

func (f *variantFlags) register(cmd *cobra.Command, withClean bool) {
	cmd.Flags().BoolVar(&f.streaming, "streaming", false, "Install the streaming variant with the whisper_streaming server")
	cmd.Flags().StringVar(&f.model, "model", "", "Whisper model name (default from config, base.en)")
	cmd.Flags().StringVar(&f.input, "input", "", "Text input method: ydotool, wtype or xdotool (default from config)")
	cmd.Flags().IntVar(&f.port, "port", 0, "Streaming server port (requires --streaming, default from config)")
	if withClean {
		cmd.Flags().BoolVar(&f.clean, "clean", false, "Recreate the Python virtual environment (requires --streaming)")
	}
}

// settings applies explicitly set flags over configuration defaults.
func (f *variantFlags) settings(cmd *cobra.Command, cfg *config.Config) (provision.Settings, error) {
	flags := cmd.Flags()
	if !f.streaming {
		if flags.Changed("port") {
			return provision.Settings{}, errors.New("--port requires --streaming")
		}
		if f.clean {
			return provision.Settings{}, errors.New("--clean requires --streaming")
		}
	}

	variant := provision.VariantStandard
	if f.streaming {
		variant = provision.VariantStreaming
	}
	settings := provision.SettingsFromConfig(cfg, variant)
	if flags.Changed("model") {
		settings.Model = f.model
	}
	if flags.Changed("input") {
		settings.InputMethod = f.input
	}
	if flags.Changed("port") {
		settings.StreamingPort = f.port
	}
	settings.CleanVenv = f.clean
	if err := settings.Validate(); err != nil {
		return provision.Settings{}, err
	}
	return settings, nil
}

func newInstallCommand(ctx *commandContext) *cobra.Command {
	var flags variantFlags

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install dependencies, scripts and user services",
		Long: `Install the dictation utility for the current user.

The standard variant runs the Whisper daemon directly. With --streaming the
whisper_streaming server is staged and started first, and the daemon talks to it
over localhost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := flags.settings(cmd, cfg)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			installer := provision.NewInstaller(cfg, ctx.provisionOptions(logger)...)
			report, err := installer.Install(cmd.Context(), settings)
			if err != nil {
				return err
			}
			printInstallSummary(cmd.OutOrStdout(), cfg, report)
			return nil
		},
	}

	flags.register(cmd, true)
	return cmd
}

func printInstallSummary(out io.Writer, cfg *config.Config, report provision.Report) {
	settings := report.Settings
	fmt.Fprintf(out, "Installed jnickg-dictate (%s variant)\n", settings.Variant)
	fmt.Fprintf(out, "  Model:         %s\n", settings.Model)
	fmt.Fprintf(out, "  Input method:  %s\n", settings.InputMethod)
	if settings.Streaming() {
		fmt.Fprintf(out, "  Streaming:     127.0.0.1:%d\n", settings.StreamingPort)
	}
	fmt.Fprintf(out, "  Scripts:       %s\n", cfg.Paths.BinDir)
	fmt.Fprintf(out, "  Run ID:        %s\n", report.RunID)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Bind a keyboard shortcut to 'jnickg-dictate' to toggle recording.")
	if settings.InputMethod == config.InputYdotool {
		fmt.Fprintln(out, "ydotool needs access to /dev/uinput; add your user to the input group if typing fails.")
	}
}
