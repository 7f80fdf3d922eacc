package orchestrator

import "fmt"

// BootstrapError indicates a lifecycle command was invoked out of order, such
// as starting services that were never installed. The message names the
// command that has to run first.
type BootstrapError struct {
	Message string
}

// Error implements the error interface.
func (e *BootstrapError) Error() string {
	return e.Message
}

// NewBootstrapError creates a BootstrapError with a formatted message.
func NewBootstrapError(format string, args ...interface{}) *BootstrapError {
	return &BootstrapError{Message: fmt.Sprintf(format, args...)}
}
