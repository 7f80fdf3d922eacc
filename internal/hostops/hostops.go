// Package hostops models every interaction with the underlying host as an
// injected interface: package installation, systemd unit control, privileged
// command execution, and file ownership and layout changes. The orchestration
// core never shells out directly, which lets tests substitute a recording
// fake for the whole host surface.
package hostops

import "os"

// CommandResult carries the outcome of an executed command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// HostOperations is the host surface components operate through. Resources
// (subprocesses, bus connections) are acquired and released per call; no
// handles are held across lifecycle steps.
type HostOperations interface {
	// Run executes a command as the current user.
	Run(name string, args ...string) (CommandResult, error)
	// Sudo executes a command with elevated privileges.
	Sudo(name string, args ...string) (CommandResult, error)

	// Package management.
	InstallPackage(pkg string) error
	RemovePackage(pkg string) error

	// Service supervision.
	EnableService(unit string) error
	StartService(unit string) error
	StopService(unit string) error
	RestartService(unit string) error
	DisableService(unit string) error
	DaemonReload() error
	// ServiceActiveState returns the unit's ActiveState ("active",
	// "inactive", "failed", ...).
	ServiceActiveState(unit string) (string, error)
	// VerifyServiceAlive errors unless the unit is active.
	VerifyServiceAlive(unit string) error

	// File layout.
	WriteFile(path string, data []byte, mode os.FileMode) error
	ReadFile(path string) ([]byte, error)
	CopyFile(src, dst string) error
	MoveFile(src, dst string) error
	RemovePath(path string) error
	MkdirAll(path string, mode os.FileMode) error
	Chown(owner, group, path string) error
	Chmod(mode, path string) error
	FileExists(path string) bool
}
