package main

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dictate/internal/command"
	"dictate/internal/config"
	"dictate/internal/logging"
	"dictate/internal/provision"
	"dictate/internal/systemd"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// cliOption swaps collaborators of the command context, mainly for tests.
type cliOption func(*commandContext)

func withExecutor(exec command.Executor) cliOption {
	return func(c *commandContext) { c.executor = exec }
}

func withManager(manager systemd.Manager) cliOption {
	return func(c *commandContext) { c.manager = manager }
}

func withProvisionOptions(opts ...provision.Option) cliOption {
	return func(c *commandContext) { c.provisionOpts = append(c.provisionOpts, opts...) }
}

type commandContext struct {
	configFlag   *string
	sourceFlag   *string
	logLevelFlag *string

	executor      command.Executor
	manager       systemd.Manager
	provisionOpts []provision.Option

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, sourceFlag, logLevelFlag *string, opts ...cliOption) *commandContext {
	ctx := &commandContext{
		configFlag:   configFlag,
		sourceFlag:   sourceFlag,
		logLevelFlag: logLevelFlag,
		executor:     command.OSExecutor{},
	}
	for _, opt := range opts {
		opt(ctx)
	}
	return ctx
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if source := flagValue(c.sourceFlag); source != "" {
			expanded, err := config.ExpandPath(source)
			if err != nil {
				c.configErr = fmt.Errorf("resolve --source: %w", err)
				return
			}
			cfg.Paths.SourceDir = expanded
		}
		if level := strings.ToLower(flagValue(c.logLevelFlag)); level != "" {
			if !slices.Contains(logLevels, level) {
				c.configErr = fmt.Errorf("--log-level must be one of %s (got %q)", strings.Join(logLevels, ", "), level)
				return
			}
			cfg.Logging.Level = level
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) provisionOptions(logger *slog.Logger) []provision.Option {
	opts := []provision.Option{
		provision.WithLogger(logger),
		provision.WithExecutor(c.executor),
	}
	if c.manager != nil {
		opts = append(opts, provision.WithManager(c.manager))
	}
	return append(opts, c.provisionOpts...)
}

// serviceManager returns the injected manager or connects the configured
// backend. The returned function releases it.
func (c *commandContext) serviceManager(cfg *config.Config) (systemd.Manager, func(), error) {
	if c.manager != nil {
		return c.manager, func() {}, nil
	}
	manager, err := systemd.New(cfg.Systemd.Backend, c.executor)
	if err != nil {
		return nil, nil, err
	}
	return manager, func() { _ = manager.Close() }, nil
}

func flagValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
