// Package systemd wraps the subset of the systemd D-Bus API the
// installer needs: reloading the manager, enabling and starting units,
// and querying their state.
package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// UnitStatus describes a unit's current state as reported by systemd.
type UnitStatus struct {
	Name        string
	Description string
	// ActiveState is e.g. "active", "inactive", "failed".
	ActiveState string
	// UnitFileState is e.g. "enabled", "disabled", "static".
	UnitFileState string
	MainPID       uint32
}

// Manager performs service lifecycle operations against the init
// system. Implementations talk to systemd over D-Bus; tests use a fake.
type Manager interface {
	// Reload tells systemd to reload its configuration (daemon-reload).
	Reload(ctx context.Context) error

	// Enable enables unit files so they start on boot.
	Enable(ctx context.Context, units []string) error

	// Disable disables unit files.
	Disable(ctx context.Context, units []string) error

	// Start starts a unit, blocking until the job completes.
	Start(ctx context.Context, unit string) error

	// Stop stops a unit, blocking until the job completes.
	Stop(ctx context.Context, unit string) error

	// Status retrieves a unit's active and enablement state.
	Status(ctx context.Context, unit string) (*UnitStatus, error)

	// Close releases the D-Bus connection.
	Close() error
}

// conn implements Manager using go-systemd/dbus.
type conn struct {
	dbus *dbus.Conn
}

// ConnectSystem connects to the system systemd instance. Installing a
// system service requires root; the D-Bus call will fail with a
// permission error otherwise.
func ConnectSystem(ctx context.Context) (Manager, error) {
	c, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to system systemd: %w", err)
	}
	return &conn{dbus: c}, nil
}

func (c *conn) Close() error {
	c.dbus.Close()
	return nil
}

func (c *conn) Reload(ctx context.Context) error {
	if err := c.dbus.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}

func (c *conn) Enable(ctx context.Context, units []string) error {
	_, _, err := c.dbus.EnableUnitFilesContext(ctx, units, false, true)
	if err != nil {
		return fmt.Errorf("enabling units: %w", err)
	}
	return nil
}

func (c *conn) Disable(ctx context.Context, units []string) error {
	_, err := c.dbus.DisableUnitFilesContext(ctx, units, false)
	if err != nil {
		return fmt.Errorf("disabling units: %w", err)
	}
	return nil
}

func (c *conn) Start(ctx context.Context, unit string) error {
	return c.runJob(ctx, unit, "start", c.dbus.StartUnitContext)
}

func (c *conn) Stop(ctx context.Context, unit string) error {
	return c.runJob(ctx, unit, "stop", c.dbus.StopUnitContext)
}

// runJob submits a start/stop job and waits for its result channel.
func (c *conn) runJob(
	ctx context.Context,
	unit, verb string,
	submit func(context.Context, string, string, chan<- string) (int, error),
) error {
	resultChan := make(chan string, 1)
	if _, err := submit(ctx, unit, "replace", resultChan); err != nil {
		return fmt.Errorf("%sing unit: %w", verb, err)
	}

	select {
	case result := <-resultChan:
		if result != "done" {
			return fmt.Errorf("%s job for %s failed: %s", verb, unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *conn) Status(ctx context.Context, unit string) (*UnitStatus, error) {
	props, err := c.dbus.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return nil, fmt.Errorf("getting unit properties: %w", err)
	}

	status := &UnitStatus{Name: unit}
	if s, ok := props["ActiveState"].(string); ok {
		status.ActiveState = s
	}
	if s, ok := props["UnitFileState"].(string); ok {
		status.UnitFileState = s
	}
	if s, ok := props["Description"].(string); ok {
		status.Description = s
	}

	// Service-specific properties fail for non-service units; ignore.
	serviceProps, err := c.dbus.GetUnitTypePropertiesContext(ctx, unit, "Service")
	if err == nil {
		if pid, ok := serviceProps["MainPID"].(uint32); ok {
			status.MainPID = pid
		}
	}

	return status, nil
}
