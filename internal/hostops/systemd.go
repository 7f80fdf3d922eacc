package hostops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stackmgr/pkg/logging"

	"github.com/coreos/go-systemd/v22/dbus"
)

const systemdJobTimeout = 90 * time.Second

// unitName appends the .service suffix when the caller passed a bare name.
func unitName(unit string) string {
	if strings.Contains(unit, ".") {
		return unit
	}
	return unit + ".service"
}

// withSystemd opens a connection to the systemd D-Bus API for the duration of
// a single operation. Connections are deliberately not cached.
func withSystemd(fn func(ctx context.Context, conn *dbus.Conn) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), systemdJobTimeout)
	defer cancel()

	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return fmt.Errorf("connecting to systemd: %w", err)
	}
	defer conn.Close()

	return fn(ctx, conn)
}

// waitForJob blocks until systemd reports the queued job finished.
func waitForJob(unit string, ch <-chan string) error {
	result := <-ch
	if result != "done" {
		return fmt.Errorf("systemd job for %s finished with result %q", unit, result)
	}
	return nil
}

// EnableService enables the unit so it starts on boot.
func (l *Local) EnableService(unit string) error {
	unit = unitName(unit)
	logging.Debug("HostOps", "Enabling service %s", unit)
	return withSystemd(func(ctx context.Context, conn *dbus.Conn) error {
		_, _, err := conn.EnableUnitFilesContext(ctx, []string{unit}, false, true)
		return err
	})
}

// DisableService disables the unit.
func (l *Local) DisableService(unit string) error {
	unit = unitName(unit)
	logging.Debug("HostOps", "Disabling service %s", unit)
	return withSystemd(func(ctx context.Context, conn *dbus.Conn) error {
		_, err := conn.DisableUnitFilesContext(ctx, []string{unit}, false)
		return err
	})
}

// StartService starts the unit and waits for the job to complete.
func (l *Local) StartService(unit string) error {
	unit = unitName(unit)
	logging.Debug("HostOps", "Starting service %s", unit)
	return withSystemd(func(ctx context.Context, conn *dbus.Conn) error {
		ch := make(chan string, 1)
		if _, err := conn.StartUnitContext(ctx, unit, "replace", ch); err != nil {
			return err
		}
		return waitForJob(unit, ch)
	})
}

// StopService stops the unit and waits for the job to complete.
func (l *Local) StopService(unit string) error {
	unit = unitName(unit)
	logging.Debug("HostOps", "Stopping service %s", unit)
	return withSystemd(func(ctx context.Context, conn *dbus.Conn) error {
		ch := make(chan string, 1)
		if _, err := conn.StopUnitContext(ctx, unit, "replace", ch); err != nil {
			return err
		}
		return waitForJob(unit, ch)
	})
}

// RestartService restarts the unit and waits for the job to complete.
func (l *Local) RestartService(unit string) error {
	unit = unitName(unit)
	logging.Debug("HostOps", "Restarting service %s", unit)
	return withSystemd(func(ctx context.Context, conn *dbus.Conn) error {
		ch := make(chan string, 1)
		if _, err := conn.RestartUnitContext(ctx, unit, "replace", ch); err != nil {
			return err
		}
		return waitForJob(unit, ch)
	})
}

// DaemonReload reloads the systemd manager configuration.
func (l *Local) DaemonReload() error {
	logging.Debug("HostOps", "Reloading systemd daemon")
	return withSystemd(func(ctx context.Context, conn *dbus.Conn) error {
		return conn.ReloadContext(ctx)
	})
}

// ServiceActiveState returns the unit's ActiveState property.
func (l *Local) ServiceActiveState(unit string) (string, error) {
	unit = unitName(unit)
	var state string
	err := withSystemd(func(ctx context.Context, conn *dbus.Conn) error {
		prop, err := conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
		if err != nil {
			return err
		}
		value, ok := prop.Value.Value().(string)
		if !ok {
			return fmt.Errorf("unexpected ActiveState type for %s", unit)
		}
		state = value
		return nil
	})
	return state, err
}

// VerifyServiceAlive errors unless the unit reports itself active.
func (l *Local) VerifyServiceAlive(unit string) error {
	state, err := l.ServiceActiveState(unit)
	if err != nil {
		return err
	}
	if state != "active" {
		return fmt.Errorf("service %s is not running (state: %s)", unitName(unit), state)
	}
	return nil
}
