package hostops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"stackmgr/pkg/logging"
)

// Local is the real HostOperations implementation. Commands run through
// os/exec, packages through the system package manager, and services through
// the systemd D-Bus API.
type Local struct {
	// PackageManager is the package manager binary, "yum" by default.
	PackageManager string
}

// NewLocal returns a HostOperations bound to the local host.
func NewLocal() *Local {
	return &Local{PackageManager: "yum"}
}

// Run executes a command as the current user and captures its output.
func (l *Local) Run(name string, args ...string) (CommandResult, error) {
	return runCommand(name, args...)
}

// Sudo executes a command with elevated privileges.
func (l *Local) Sudo(name string, args ...string) (CommandResult, error) {
	sudoArgs := append([]string{name}, args...)
	return runCommand("sudo", sudoArgs...)
}

func runCommand(name string, args ...string) (CommandResult, error) {
	logging.Debug("HostOps", "Running: %s %v", name, args)
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("%s exited with status %d: %s",
				name, result.ExitCode, result.Stderr)
		}
		return result, fmt.Errorf("running %s: %w", name, err)
	}
	return result, nil
}

// InstallPackage installs a package through the system package manager.
// Re-installing an already present package is a no-op at this layer.
func (l *Local) InstallPackage(pkg string) error {
	logging.Info("HostOps", "Installing package %s...", pkg)
	_, err := l.Sudo(l.PackageManager, "install", "-y", pkg)
	return err
}

// RemovePackage removes a package; a package that is already absent is
// tolerated.
func (l *Local) RemovePackage(pkg string) error {
	logging.Info("HostOps", "Removing package %s...", pkg)
	if _, err := l.Sudo(l.PackageManager, "remove", "-y", pkg); err != nil {
		logging.Debug("HostOps", "Package %s removal reported: %v", pkg, err)
	}
	return nil
}

// WriteFile writes data to a path with the given mode, creating parent
// directories as needed.
func (l *Local) WriteFile(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadFile reads the contents of a file.
func (l *Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// CopyFile copies src to dst preserving dst's required mode via Chmod by the
// caller when needed.
func (l *Local) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return out.Sync()
}

// MoveFile moves src to dst, falling back to copy+remove across filesystems.
func (l *Local) MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := l.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// RemovePath removes a file or directory tree. Already-absent paths are fine;
// remove must tolerate partial state.
func (l *Local) RemovePath(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// MkdirAll creates a directory tree.
func (l *Local) MkdirAll(path string, mode os.FileMode) error {
	return os.MkdirAll(path, mode)
}

// Chown changes ownership of a path, delegating to the chown binary so that
// user/group names (not just numeric IDs) resolve the same way the component
// scripts expect.
func (l *Local) Chown(owner, group, path string) error {
	_, err := l.Sudo("chown", owner+":"+group, path)
	return err
}

// Chmod changes the mode of a path. The mode is passed through in chmod's own
// syntax ("600", "o+rx").
func (l *Local) Chmod(mode, path string) error {
	_, err := l.Sudo("chmod", mode, path)
	return err
}

// FileExists reports whether the path exists.
func (l *Local) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
