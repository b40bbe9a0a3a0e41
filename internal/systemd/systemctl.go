package systemd

import (
	"context"
	"fmt"
	"strings"

	"dictate/internal/command"
)

// Systemctl drives the user manager through "systemctl --user".
type Systemctl struct {
	exec   command.Executor
	binary string
}

// NewSystemctl returns a systemctl-backed Manager. A nil executor runs on the host.
func NewSystemctl(exec command.Executor) *Systemctl {
	if exec == nil {
		exec = command.OSExecutor{}
	}
	return &Systemctl{exec: exec, binary: "systemctl"}
}

func (s *Systemctl) run(ctx context.Context, args ...string) error {
	full := append([]string{"--user"}, args...)
	if err := s.exec.Run(ctx, s.binary, full, nil); err != nil {
		return fmt.Errorf("systemctl --user %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (s *Systemctl) DaemonReload(ctx context.Context) error {
	return s.run(ctx, "daemon-reload")
}

func (s *Systemctl) Enable(ctx context.Context, units ...string) error {
	if len(units) == 0 {
		return nil
	}
	return s.run(ctx, append([]string{"enable"}, units...)...)
}

func (s *Systemctl) Disable(ctx context.Context, units ...string) error {
	if len(units) == 0 {
		return nil
	}
	return s.run(ctx, append([]string{"disable"}, units...)...)
}

func (s *Systemctl) Start(ctx context.Context, unit string) error {
	return s.run(ctx, "start", unit)
}

func (s *Systemctl) Stop(ctx context.Context, unit string) error {
	return s.run(ctx, "stop", unit)
}

func (s *Systemctl) Restart(ctx context.Context, unit string) error {
	return s.run(ctx, "restart", unit)
}

// IsActive treats any non-zero exit of "is-active" as inactive; only failures
// to run systemctl at all are errors.
func (s *Systemctl) IsActive(ctx context.Context, unit string) (bool, error) {
	err := s.exec.Run(ctx, s.binary, []string{"--user", "is-active", "--quiet", unit}, nil)
	if err == nil {
		return true, nil
	}
	if command.ExitCode(err) > 0 {
		return false, nil
	}
	return false, fmt.Errorf("systemctl --user is-active %s: %w", unit, err)
}

func (s *Systemctl) Close() error { return nil }
