package orchestrator

import (
	"os"
	"path/filepath"
)

const (
	installedMarker  = ".installed"
	configuredMarker = ".configured"
)

// Markers tracks which lifecycle stages completed on this host through
// touch files, so later invocations know what already happened.
type Markers struct {
	// Dir is where the marker files live.
	Dir string
}

// NewMarkers returns markers rooted at the standard state directory.
func NewMarkers() *Markers {
	return &Markers{Dir: "/etc/stackmgr"}
}

// Installed reports whether an install completed on this host.
func (m *Markers) Installed() bool {
	return m.exists(installedMarker)
}

// Configured reports whether a configure completed on this host.
func (m *Markers) Configured() bool {
	return m.exists(configuredMarker)
}

// SetInstalled records a completed install.
func (m *Markers) SetInstalled() error {
	return m.touch(installedMarker)
}

// SetConfigured records a completed configure.
func (m *Markers) SetConfigured() error {
	return m.touch(configuredMarker)
}

// Clear removes both markers, returning the host to its pre-install state.
func (m *Markers) Clear() error {
	for _, name := range []string{installedMarker, configuredMarker} {
		if err := os.Remove(filepath.Join(m.Dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (m *Markers) exists(name string) bool {
	_, err := os.Stat(filepath.Join(m.Dir, name))
	return err == nil
}

func (m *Markers) touch(name string) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.Dir, name), nil, 0o644)
}
