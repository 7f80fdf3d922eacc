package components

import (
	"fmt"

	"stackmgr/pkg/logging"
)

const (
	// UsageCollectorTimer is the systemd timer driving periodic collection.
	UsageCollectorTimer = "stackmgr-usage-collector.timer"

	usageCollectorEnvPath = "/etc/stackmgr/usage-collector.env"
)

// UsageCollector manages the periodic usage reporting job, driven by a
// systemd timer rather than a long-running daemon.
type UsageCollector struct {
	Base
}

// NewUsageCollector creates the usage collector component.
func NewUsageCollector(skip bool) *UsageCollector {
	return &UsageCollector{Base: NewBase(NameUsageCollector, skip)}
}

// Install fetches the collector packages.
func (u *UsageCollector) Install(ctx *Context) error {
	logging.Info("UsageCollector", "Installing usage collector...")
	if err := installSources(ctx, NameUsageCollector); err != nil {
		return err
	}
	logging.Info("UsageCollector", "Usage collector successfully installed")
	return nil
}

// Configure writes the collection interval and enables the timer.
func (u *UsageCollector) Configure(ctx *Context) error {
	logging.Info("UsageCollector", "Configuring usage collector...")
	interval := ctx.Config.GetInt(NameUsageCollector + ".interval_in_hours")
	env := fmt.Sprintf("COLLECT_INTERVAL_HOURS=%d\n", interval)
	if err := ctx.Host.WriteFile(usageCollectorEnvPath, []byte(env), 0o644); err != nil {
		return err
	}
	if err := ctx.Host.DaemonReload(); err != nil {
		return err
	}
	if err := ctx.Host.EnableService(UsageCollectorTimer); err != nil {
		return err
	}
	if err := ctx.Host.StartService(UsageCollectorTimer); err != nil {
		return err
	}
	logging.Info("UsageCollector", "Usage collector successfully configured")
	return nil
}

// Start starts the timer.
func (u *UsageCollector) Start(ctx *Context) error {
	logging.Info("UsageCollector", "Starting usage collector...")
	return ctx.Host.StartService(UsageCollectorTimer)
}

// Stop stops the timer.
func (u *UsageCollector) Stop(ctx *Context) error {
	logging.Info("UsageCollector", "Stopping usage collector...")
	return ctx.Host.StopService(UsageCollectorTimer)
}

// Remove reverses install and configure.
func (u *UsageCollector) Remove(ctx *Context) error {
	logging.Info("UsageCollector", "Removing usage collector...")
	if err := ctx.Host.DisableService(UsageCollectorTimer); err != nil {
		logging.Debug("UsageCollector", "Disabling usage collector timer reported: %v", err)
	}
	if err := ctx.Host.RemovePath(usageCollectorEnvPath); err != nil {
		return err
	}
	if err := removeSources(ctx, NameUsageCollector); err != nil {
		return err
	}
	logging.Info("UsageCollector", "Usage collector successfully removed")
	return nil
}
