package components

import (
	"stackmgr/internal/config"
	"stackmgr/internal/hostops"
	"stackmgr/internal/network"
)

// Context carries everything a lifecycle call needs: the shared configuration
// store, the host-operations surface, and the run flags. It replaces any
// process-global state; the orchestrator threads one Context through a run.
type Context struct {
	Config *config.Store
	Host   hostops.HostOperations

	// CleanDB forces database re-initialization on configure.
	CleanDB bool
	// OnlyInstall means no configure step will run in this invocation.
	OnlyInstall bool
}

// Component is the smallest lifecycle-managed unit of the platform.
type Component interface {
	Name() string
	SkipInstallation() bool

	Install(ctx *Context) error
	Configure(ctx *Context) error
	Start(ctx *Context) error
	Stop(ctx *Context) error
	Remove(ctx *Context) error

	// ValidateDependencies is a component-specific pre-flight hook, invoked
	// by the validation engine before any host mutation.
	ValidateDependencies(ctx *Context) error
}

// Base provides the common component fields and the default no-op
// ValidateDependencies. Concrete components embed it.
type Base struct {
	name string
	skip bool
}

// NewBase creates the embedded base for a named component.
func NewBase(name string, skip bool) Base {
	return Base{name: name, skip: skip}
}

// Name returns the component name.
func (b Base) Name() string {
	return b.name
}

// SkipInstallation reports whether every lifecycle call except remove should
// bypass this component.
func (b Base) SkipInstallation() bool {
	return b.skip
}

// ValidateDependencies is a no-op by default.
func (b Base) ValidateDependencies(ctx *Context) error {
	return nil
}

// Indirections over the network package so component tests run without real
// sockets.
var (
	isPortOpen  = network.IsPortOpen
	waitForPort = network.WaitForPort
)

// installSources installs every package listed under the component's sources
// key.
func installSources(ctx *Context, section string) error {
	for _, pkg := range ctx.Config.GetStrings(section + ".sources") {
		if err := ctx.Host.InstallPackage(pkg); err != nil {
			return err
		}
	}
	return nil
}

// removeSources removes the component's packages, tolerating absence.
func removeSources(ctx *Context, section string) error {
	sources := ctx.Config.GetStrings(section + ".sources")
	for i := len(sources) - 1; i >= 0; i-- {
		if err := ctx.Host.RemovePackage(sources[i]); err != nil {
			return err
		}
	}
	return nil
}
