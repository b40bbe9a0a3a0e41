package systemd

import (
	"context"
	"fmt"

	"dictate/internal/command"
	"dictate/internal/config"
)

// Manager controls units of the per-user service manager.
type Manager interface {
	DaemonReload(ctx context.Context) error
	Enable(ctx context.Context, units ...string) error
	Disable(ctx context.Context, units ...string) error
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	IsActive(ctx context.Context, unit string) (bool, error)
	Close() error
}

// New returns the Manager for the configured backend.
func New(backend string, exec command.Executor) (Manager, error) {
	switch backend {
	case "", config.BackendSystemctl:
		return NewSystemctl(exec), nil
	case config.BackendDBus:
		return DialDBus()
	default:
		return nil, fmt.Errorf("unsupported systemd backend %q", backend)
	}
}
