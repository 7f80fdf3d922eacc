// Package orchestrator drives the component lifecycle: install, configure,
// start and stop walk the resolved components in installation order, removal
// walks them in reverse. Marker files gate command ordering so a start before
// an install fails with a clear message instead of half-applied host state.
package orchestrator

import (
	"fmt"

	"stackmgr/internal/components"
	"stackmgr/pkg/logging"
)

// Orchestrator runs lifecycle commands over a resolved component sequence.
type Orchestrator struct {
	Context    *components.Context
	Components []components.Component
	Markers    *Markers
}

// New builds an orchestrator with the standard marker location.
func New(ctx *components.Context, comps []components.Component) *Orchestrator {
	return &Orchestrator{
		Context:    ctx,
		Components: comps,
		Markers:    NewMarkers(),
	}
}

// Install installs every component in installation order and records the
// install marker. Components flagged skip_installation are passed over.
func (o *Orchestrator) Install() error {
	logging.Info("Orchestrator", "Installing components...")
	for _, comp := range o.Components {
		if comp.SkipInstallation() {
			logging.Info("Orchestrator", "Skipping installation of %s", comp.Name())
			continue
		}
		if err := comp.Install(o.Context); err != nil {
			return fmt.Errorf("installing %s: %w", comp.Name(), err)
		}
	}
	return o.Markers.SetInstalled()
}

// Configure configures every component in installation order and records the
// configure marker. It requires a completed install.
func (o *Orchestrator) Configure() error {
	if !o.Markers.Installed() {
		return NewBootstrapError("cannot configure components that were not installed; run the install command first")
	}
	if o.Context.CleanDB && o.Markers.Configured() {
		// A clean run reconfigures from scratch; nothing may hold the old
		// schema open while that happens.
		logging.Info("Orchestrator", "Stopping components before clean reconfiguration...")
		for _, comp := range o.Components {
			if comp.SkipInstallation() {
				continue
			}
			if err := comp.Stop(o.Context); err != nil {
				logging.Warn("Orchestrator", "Stopping %s reported: %v", comp.Name(), err)
			}
		}
	}
	logging.Info("Orchestrator", "Configuring components...")
	for _, comp := range o.Components {
		if comp.SkipInstallation() {
			logging.Info("Orchestrator", "Skipping configuration of %s", comp.Name())
			continue
		}
		if err := comp.Configure(o.Context); err != nil {
			return fmt.Errorf("configuring %s: %w", comp.Name(), err)
		}
	}
	return o.Markers.SetConfigured()
}

// Start starts every component in installation order. It requires a
// completed install and configure.
func (o *Orchestrator) Start() error {
	if err := o.requireConfigured("start"); err != nil {
		return err
	}
	logging.Info("Orchestrator", "Starting components...")
	for _, comp := range o.Components {
		if comp.SkipInstallation() {
			continue
		}
		if err := comp.Start(o.Context); err != nil {
			return fmt.Errorf("starting %s: %w", comp.Name(), err)
		}
	}
	return nil
}

// Stop stops every component in installation order. It requires a completed
// install and configure.
func (o *Orchestrator) Stop() error {
	if err := o.requireConfigured("stop"); err != nil {
		return err
	}
	logging.Info("Orchestrator", "Stopping components...")
	for _, comp := range o.Components {
		if comp.SkipInstallation() {
			continue
		}
		if err := comp.Stop(o.Context); err != nil {
			return fmt.Errorf("stopping %s: %w", comp.Name(), err)
		}
	}
	return nil
}

// Restart stops and starts the components.
func (o *Orchestrator) Restart() error {
	if err := o.Stop(); err != nil {
		return err
	}
	return o.Start()
}

// Remove tears everything down in reverse installation order and clears the
// markers. Unlike the other commands it visits skipped components too, runs
// even without a recorded install so a broken bootstrap can be cleaned up,
// and a component failing to stop does not keep it from being removed.
func (o *Orchestrator) Remove() error {
	if !o.Markers.Installed() {
		logging.Warn("Orchestrator", "No completed install is recorded on this host; removing whatever is present")
	}
	logging.Info("Orchestrator", "Removing components...")
	configured := o.Markers.Configured()
	for i := len(o.Components) - 1; i >= 0; i-- {
		comp := o.Components[i]
		if configured {
			if err := comp.Stop(o.Context); err != nil {
				logging.Warn("Orchestrator", "Stopping %s before removal reported: %v", comp.Name(), err)
			}
		}
		if err := comp.Remove(o.Context); err != nil {
			return fmt.Errorf("removing %s: %w", comp.Name(), err)
		}
	}
	return o.Markers.Clear()
}

func (o *Orchestrator) requireConfigured(command string) error {
	if !o.Markers.Installed() {
		return NewBootstrapError("cannot %s components that were not installed; run the install command first", command)
	}
	if !o.Markers.Configured() {
		return NewBootstrapError("cannot %s components that were not configured; run the configure command first", command)
	}
	return nil
}
