package systemd

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	systemdDest      = "org.freedesktop.systemd1"
	systemdPath      = dbus.ObjectPath("/org/freedesktop/systemd1")
	managerInterface = "org.freedesktop.systemd1.Manager"
	unitInterface    = "org.freedesktop.systemd1.Unit"
	noSuchUnitError  = "org.freedesktop.systemd1.NoSuchUnit"
	jobModeReplace   = "replace"
)

// busCaller invokes one method on a systemd object and returns the reply body.
type busCaller interface {
	Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) ([]any, error)
}

type connCaller struct {
	conn *dbus.Conn
}

func (c connCaller) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	call := c.conn.Object(systemdDest, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}
	return call.Body, nil
}

// DBus drives the user manager over the session bus.
type DBus struct {
	bus   busCaller
	close func() error
}

// DialDBus connects to the session bus of the invoking user.
func DialDBus() (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBus{bus: connCaller{conn: conn}, close: conn.Close}, nil
}

func newDBusWithCaller(bus busCaller) *DBus {
	return &DBus{bus: bus, close: func() error { return nil }}
}

func (d *DBus) manager(ctx context.Context, method string, args ...any) ([]any, error) {
	body, err := d.bus.Call(ctx, systemdPath, managerInterface+"."+method, args...)
	if err != nil {
		return nil, fmt.Errorf("systemd %s: %w", method, err)
	}
	return body, nil
}

func (d *DBus) DaemonReload(ctx context.Context) error {
	_, err := d.manager(ctx, "Reload")
	return err
}

func (d *DBus) Enable(ctx context.Context, units ...string) error {
	if len(units) == 0 {
		return nil
	}
	_, err := d.manager(ctx, "EnableUnitFiles", units, false, true)
	return err
}

func (d *DBus) Disable(ctx context.Context, units ...string) error {
	if len(units) == 0 {
		return nil
	}
	_, err := d.manager(ctx, "DisableUnitFiles", units, false)
	return err
}

func (d *DBus) Start(ctx context.Context, unit string) error {
	_, err := d.manager(ctx, "StartUnit", unit, jobModeReplace)
	return err
}

func (d *DBus) Stop(ctx context.Context, unit string) error {
	_, err := d.manager(ctx, "StopUnit", unit, jobModeReplace)
	return err
}

func (d *DBus) Restart(ctx context.Context, unit string) error {
	_, err := d.manager(ctx, "RestartUnit", unit, jobModeReplace)
	return err
}

// IsActive reports whether the unit's ActiveState is "active". Units the
// manager has not loaded are inactive.
func (d *DBus) IsActive(ctx context.Context, unit string) (bool, error) {
	body, err := d.bus.Call(ctx, systemdPath, managerInterface+".GetUnit", unit)
	if err != nil {
		if dbusErrorName(err) == noSuchUnitError {
			return false, nil
		}
		return false, fmt.Errorf("systemd GetUnit %s: %w", unit, err)
	}
	if len(body) == 0 {
		return false, fmt.Errorf("systemd GetUnit %s: empty reply", unit)
	}
	path, ok := body[0].(dbus.ObjectPath)
	if !ok {
		return false, fmt.Errorf("systemd GetUnit %s: unexpected reply %T", unit, body[0])
	}

	reply, err := d.bus.Call(ctx, path, "org.freedesktop.DBus.Properties.Get", unitInterface, "ActiveState")
	if err != nil {
		return false, fmt.Errorf("read ActiveState of %s: %w", unit, err)
	}
	if len(reply) == 0 {
		return false, fmt.Errorf("read ActiveState of %s: empty reply", unit)
	}
	variant, ok := reply[0].(dbus.Variant)
	if !ok {
		return false, fmt.Errorf("read ActiveState of %s: unexpected reply %T", unit, reply[0])
	}
	state, _ := variant.Value().(string)
	return state == "active", nil
}

func (d *DBus) Close() error {
	return d.close()
}

func dbusErrorName(err error) string {
	var value dbus.Error
	if errors.As(err, &value) {
		return value.Name
	}
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Name
	}
	return ""
}
