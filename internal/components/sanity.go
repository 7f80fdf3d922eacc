package components

import (
	"fmt"

	"github.com/google/uuid"

	"stackmgr/internal/config"
	"stackmgr/pkg/logging"
)

// Sanity performs a post-configure smoke check of the assembled platform. It
// has no packages and no unit of its own; install, start, stop, and remove
// are no-ops.
type Sanity struct {
	Base
}

// NewSanity creates the sanity component.
func NewSanity(skip bool) *Sanity {
	return &Sanity{Base: NewBase(NameSanity, skip)}
}

// Install is a no-op.
func (s *Sanity) Install(ctx *Context) error {
	return nil
}

// Configure runs the smoke check against the components configured before it.
// It is skipped when disabled by config or when this node joined an existing
// cluster, where the active manager already validated the shared services.
func (s *Sanity) Configure(ctx *Context) error {
	if ctx.Config.GetBool(NameSanity + ".skip_sanity") {
		logging.Info("Sanity", "Skipping sanity check...")
		return nil
	}
	if ctx.Config.GetString(config.SectionCluster+"."+config.KeyActiveManagerIP) != "" {
		logging.Info("Sanity", "Sanity is covered by the active manager, skipping...")
		return nil
	}

	runID := uuid.NewString()
	logging.Info("Sanity", "Running sanity check %s...", runID)
	if err := s.checkPorts(ctx); err != nil {
		return err
	}
	logging.Info("Sanity", "Sanity check %s passed", runID)
	return nil
}

// Start is a no-op.
func (s *Sanity) Start(ctx *Context) error {
	return nil
}

// Stop is a no-op.
func (s *Sanity) Stop(ctx *Context) error {
	return nil
}

// Remove is a no-op.
func (s *Sanity) Remove(ctx *Context) error {
	return nil
}

// checkPorts probes every locally installed service port.
func (s *Sanity) checkPorts(ctx *Context) error {
	probes := map[string]int{}
	if ctx.Config.HasService(config.DatabaseService) {
		probes[NameDatabase] = ctx.Config.GetInt(NameDatabase + ".port")
	}
	if ctx.Config.HasService(config.QueueService) {
		probes[NameBroker] = ctx.Config.GetInt(NameBroker + ".port")
	}
	if ctx.Config.HasService(config.ManagerService) {
		probes[NameRESTService] = ctx.Config.GetInt(NameRESTService + ".port")
		probes[NameWebUI] = ctx.Config.GetInt(NameWebUI + ".port")
	}
	for name, port := range probes {
		if !isPortOpen("127.0.0.1", port) {
			return fmt.Errorf("sanity check failed: %s port 127.0.0.1:%d is not open", name, port)
		}
	}
	return nil
}
