// Package network provides the liveness probes used when starting services:
// a TCP port check and a bounded retry loop around it. Retries use a fixed
// attempt count and a fixed inter-attempt delay; there is no backoff.
package network

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"stackmgr/pkg/logging"
)

const (
	// DefaultAttempts and DefaultDelay are the standard liveness budget used
	// by components waiting for a listening port.
	DefaultAttempts = 10
	DefaultDelay    = 3 * time.Second

	dialTimeout = 2 * time.Second
)

// Error indicates an expected network endpoint did not become reachable.
type Error struct {
	Host     string
	Port     int
	Attempts int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("port %s:%d was not open after %d attempts",
		e.Host, e.Port, e.Attempts)
}

// probeFunc reports whether host:port accepts TCP connections. Factored out
// so the retry loop can be exercised without real sockets.
type probeFunc func(host string, port int) bool

// IsPortOpen reports whether a TCP connection to host:port succeeds.
func IsPortOpen(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitForPort polls host:port until it opens, for at most attempts tries with
// a fixed delay between them. It returns an *Error after the final failed
// attempt.
func WaitForPort(host string, port int, attempts int, delay time.Duration) error {
	return waitForPort(host, port, attempts, delay, IsPortOpen)
}

func waitForPort(host string, port int, attempts int, delay time.Duration, probe probeFunc) error {
	for attempt := 1; attempt <= attempts; attempt++ {
		logging.Debug("Network", "Waiting for %s:%d [%d/%d]...", host, port, attempt, attempts)
		if probe(host, port) {
			logging.Debug("Network", "Port %s:%d is open", host, port)
			return nil
		}
		if attempt < attempts {
			time.Sleep(delay)
		}
	}
	return &Error{Host: host, Port: port, Attempts: attempts}
}
