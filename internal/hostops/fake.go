package hostops

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Fake is an in-memory HostOperations that records every call in order and
// serves canned command output. It backs the component and orchestrator
// tests.
type Fake struct {
	mu sync.Mutex

	// Calls records every operation as "op arg1 arg2 ...".
	Calls []string

	// Files is the fake filesystem: path -> contents.
	Files map[string][]byte

	// CommandOutput maps a command prefix ("rabbitmqctl cluster_status") to
	// the stdout it should produce. The longest matching prefix wins.
	CommandOutput map[string]string

	// FailOn maps a call prefix to the error it should return.
	FailOn map[string]error

	// UnitStates maps unit names to the ActiveState reported for them;
	// unknown units report "inactive" until started.
	UnitStates map[string]string
}

// NewFake returns an empty fake host.
func NewFake() *Fake {
	return &Fake{
		Files:         map[string][]byte{},
		CommandOutput: map[string]string{},
		FailOn:        map[string]error{},
		UnitStates:    map[string]string{},
	}
}

func (f *Fake) record(op string, args ...string) string {
	call := op
	if len(args) > 0 {
		call = op + " " + strings.Join(args, " ")
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
	return call
}

func (f *Fake) failure(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix, err := range f.FailOn {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

func (f *Fake) output(call string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	best := ""
	out := ""
	for prefix, stdout := range f.CommandOutput {
		if strings.HasPrefix(call, prefix) && len(prefix) > len(best) {
			best = prefix
			out = stdout
		}
	}
	return out
}

// CallsWithPrefix returns the recorded calls beginning with prefix, in order.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, call := range f.Calls {
		if strings.HasPrefix(call, prefix) {
			out = append(out, call)
		}
	}
	return out
}

// Run records and serves a command.
func (f *Fake) Run(name string, args ...string) (CommandResult, error) {
	call := f.record("run", append([]string{name}, args...)...)
	if err := f.failure(call); err != nil {
		return CommandResult{ExitCode: 1, Stderr: err.Error()}, err
	}
	return CommandResult{Stdout: f.output(call)}, nil
}

// Sudo records and serves a privileged command.
func (f *Fake) Sudo(name string, args ...string) (CommandResult, error) {
	call := f.record("sudo", append([]string{name}, args...)...)
	if err := f.failure(call); err != nil {
		return CommandResult{ExitCode: 1, Stderr: err.Error()}, err
	}
	return CommandResult{Stdout: f.output(call)}, nil
}

func (f *Fake) InstallPackage(pkg string) error {
	return f.failure(f.record("install-package", pkg))
}

func (f *Fake) RemovePackage(pkg string) error {
	return f.failure(f.record("remove-package", pkg))
}

func (f *Fake) EnableService(unit string) error {
	return f.failure(f.record("enable-service", unit))
}

func (f *Fake) DisableService(unit string) error {
	return f.failure(f.record("disable-service", unit))
}

func (f *Fake) StartService(unit string) error {
	call := f.record("start-service", unit)
	if err := f.failure(call); err != nil {
		return err
	}
	f.mu.Lock()
	f.UnitStates[unit] = "active"
	f.mu.Unlock()
	return nil
}

func (f *Fake) StopService(unit string) error {
	call := f.record("stop-service", unit)
	if err := f.failure(call); err != nil {
		return err
	}
	f.mu.Lock()
	f.UnitStates[unit] = "inactive"
	f.mu.Unlock()
	return nil
}

func (f *Fake) RestartService(unit string) error {
	call := f.record("restart-service", unit)
	if err := f.failure(call); err != nil {
		return err
	}
	f.mu.Lock()
	f.UnitStates[unit] = "active"
	f.mu.Unlock()
	return nil
}

func (f *Fake) DaemonReload() error {
	return f.failure(f.record("daemon-reload"))
}

func (f *Fake) ServiceActiveState(unit string) (string, error) {
	call := f.record("service-state", unit)
	if err := f.failure(call); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, ok := f.UnitStates[unit]; ok {
		return state, nil
	}
	return "inactive", nil
}

func (f *Fake) VerifyServiceAlive(unit string) error {
	state, err := f.ServiceActiveState(unit)
	if err != nil {
		return err
	}
	if state != "active" {
		return fmt.Errorf("service %s is not running (state: %s)", unit, state)
	}
	return nil
}

func (f *Fake) WriteFile(path string, data []byte, mode os.FileMode) error {
	call := f.record("write-file", path)
	if err := f.failure(call); err != nil {
		return err
	}
	f.mu.Lock()
	f.Files[path] = append([]byte(nil), data...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) ReadFile(path string) ([]byte, error) {
	call := f.record("read-file", path)
	if err := f.failure(call); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (f *Fake) CopyFile(src, dst string) error {
	call := f.record("copy-file", src, dst)
	if err := f.failure(call); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.Files[src]; ok {
		f.Files[dst] = append([]byte(nil), data...)
	} else {
		f.Files[dst] = []byte{}
	}
	return nil
}

func (f *Fake) MoveFile(src, dst string) error {
	call := f.record("move-file", src, dst)
	if err := f.failure(call); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.Files[src]; ok {
		f.Files[dst] = data
		delete(f.Files, src)
	}
	return nil
}

func (f *Fake) RemovePath(path string) error {
	call := f.record("remove-path", path)
	if err := f.failure(call); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for existing := range f.Files {
		if existing == path || strings.HasPrefix(existing, path+"/") {
			delete(f.Files, existing)
		}
	}
	return nil
}

func (f *Fake) MkdirAll(path string, mode os.FileMode) error {
	return f.failure(f.record("mkdir-all", path))
}

func (f *Fake) Chown(owner, group, path string) error {
	return f.failure(f.record("chown", owner+":"+group, path))
}

func (f *Fake) Chmod(mode, path string) error {
	return f.failure(f.record("chmod", mode, path))
}

func (f *Fake) FileExists(path string) bool {
	f.record("file-exists", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Files[path]
	return ok
}
