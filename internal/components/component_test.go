package components

import (
	"path/filepath"
	"testing"
	"time"

	"stackmgr/internal/config"
	"stackmgr/internal/hostops"
)

// newTestContext builds a Context over a defaults-only store and a recording
// fake host.
func newTestContext(t *testing.T) (*Context, *hostops.Fake) {
	t.Helper()
	host := hostops.NewFake()
	store := config.NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	return &Context{Config: store, Host: host}, host
}

// stubNetwork replaces the port probes for the duration of the test. open
// controls what every probe reports.
func stubNetwork(t *testing.T, open bool) {
	t.Helper()
	origIsOpen := isPortOpen
	origWait := waitForPort
	t.Cleanup(func() {
		isPortOpen = origIsOpen
		waitForPort = origWait
	})
	isPortOpen = func(host string, port int) bool {
		return open
	}
	waitForPort = func(host string, port int, attempts int, delay time.Duration) error {
		if !open {
			return waitErr(host, port, attempts)
		}
		return nil
	}
}

func waitErr(host string, port, attempts int) error {
	return &portClosedError{host: host, port: port, attempts: attempts}
}

type portClosedError struct {
	host     string
	port     int
	attempts int
}

func (e *portClosedError) Error() string {
	return "port never opened"
}
