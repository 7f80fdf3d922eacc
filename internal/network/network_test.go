package network

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForPortExhaustsBudgetExactly(t *testing.T) {
	calls := 0
	probe := func(host string, port int) bool {
		calls++
		return false
	}

	err := waitForPort("127.0.0.1", 5671, 10, 0, probe)
	require.Error(t, err)
	assert.Equal(t, 10, calls, "probe must run exactly once per attempt")

	var netErr *Error
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 10, netErr.Attempts)
	assert.Equal(t, 5671, netErr.Port)
	assert.Contains(t, netErr.Error(), "127.0.0.1:5671")
}

func TestWaitForPortStopsOnFirstSuccess(t *testing.T) {
	calls := 0
	probe := func(host string, port int) bool {
		calls++
		return calls == 3
	}

	err := waitForPort("127.0.0.1", 8100, 10, 0, probe)
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestIsPortOpenAgainstRealListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	assert.True(t, IsPortOpen("127.0.0.1", port))

	listener.Close()
	// Closed listener should fail fast.
	assert.False(t, IsPortOpen("127.0.0.1", port))
}

func TestWaitForPortSucceedsAgainstRealListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	assert.NoError(t, WaitForPort("127.0.0.1", port, 3, 10*time.Millisecond))
}
