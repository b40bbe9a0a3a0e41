package provision

import (
	"context"
	"log/slog"
	"time"

	"dictate/internal/command"
	"dictate/internal/logging"
	"dictate/internal/preflight"
	"dictate/internal/systemd"
)

// Option customizes an Installer or Uninstaller.
type Option func(*options)

type options struct {
	runner         command.Executor
	manager        systemd.Manager
	logger         *slog.Logger
	lockPath       string
	privilegeCheck func() preflight.Result
	sleep          func(context.Context, time.Duration) error
	waitSocket     func(context.Context, string, time.Duration) error
	platform       func() (string, string)
	socketPath     string
	audioPath      string
}

func defaultOptions() options {
	return options{
		runner:         command.OSExecutor{},
		logger:         logging.NewNop(),
		privilegeCheck: preflight.CheckNotRoot,
		sleep:          sleepContext,
		waitSocket:     systemd.WaitForSocket,
		platform:       hostPlatform,
	}
}

// WithExecutor injects the command executor used for every subprocess.
func WithExecutor(exec command.Executor) Option {
	return func(o *options) {
		if exec != nil {
			o.runner = exec
		}
	}
}

// WithManager injects the service manager instead of building one from config.
func WithManager(manager systemd.Manager) Option {
	return func(o *options) {
		o.manager = manager
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLockPath overrides the run lock location.
func WithLockPath(path string) Option {
	return func(o *options) {
		o.lockPath = path
	}
}

// WithPrivilegeCheck replaces the effective-user check (primarily for tests).
func WithPrivilegeCheck(check func() preflight.Result) Option {
	return func(o *options) {
		if check != nil {
			o.privilegeCheck = check
		}
	}
}

// WithSleep replaces the delay used between service restarts.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithSocketWait replaces the daemon socket readiness wait.
func WithSocketWait(wait func(context.Context, string, time.Duration) error) Option {
	return func(o *options) {
		if wait != nil {
			o.waitSocket = wait
		}
	}
}

// WithPlatform overrides the detected OS and machine used for wheel selection.
func WithPlatform(goos, machine string) Option {
	return func(o *options) {
		o.platform = func() (string, string) { return goos, machine }
	}
}

// WithRuntimePaths overrides the daemon socket and recording paths.
func WithRuntimePaths(socketPath, audioPath string) Option {
	return func(o *options) {
		o.socketPath = socketPath
		o.audioPath = audioPath
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
