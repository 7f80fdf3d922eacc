package config

import "fmt"

// ConfigurationError indicates a bad or missing configuration entry: an
// unknown service or component name, a malformed config file, or a missing
// required section.
type ConfigurationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationError creates a ConfigurationError with a formatted message.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ConfigAccessError indicates the user config file exists but is not
// accessible with the required mode.
type ConfigAccessError struct {
	Path   string
	Access string // "readable" or "readable and writable"
	Err    error
}

// Error implements the error interface.
func (e *ConfigAccessError) Error() string {
	return fmt.Sprintf("configuration file (%s) must be %s by the current user", e.Path, e.Access)
}

// Unwrap exposes the underlying filesystem error.
func (e *ConfigAccessError) Unwrap() error {
	return e.Err
}
