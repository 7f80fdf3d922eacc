package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"stackmgr/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Store holds the merged configuration for a single invocation. It is not
// safe for concurrent mutation; the orchestrator is the single writer.
type Store struct {
	path string
	data map[string]interface{}
}

// NewStore creates a store populated with the built-in defaults, bound to the
// given user override file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		data: Defaults(),
	}
}

// Path returns the user override file path this store is bound to.
func (s *Store) Path() string {
	return s.path
}

// CheckAccess verifies the override file, if present, is readable (and
// writable when the command will dump the config back). A missing file is
// fine; the defaults apply.
func (s *Store) CheckAccess(writeRequired bool) error {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &ConfigAccessError{Path: s.path, Access: "readable", Err: err}
	}
	if info.IsDir() {
		return &ConfigAccessError{Path: s.path, Access: "a regular file", Err: nil}
	}

	f, err := os.Open(s.path)
	if err != nil {
		return &ConfigAccessError{Path: s.path, Access: "readable", Err: err}
	}
	f.Close()

	if writeRequired {
		f, err := os.OpenFile(s.path, os.O_WRONLY, 0)
		if err != nil {
			return &ConfigAccessError{Path: s.path, Access: "readable and writable", Err: err}
		}
		f.Close()
	}
	return nil
}

// Load reads the user override file and deep-merges it over the defaults.
// User values win: nested mappings merge key-wise, scalars and lists replace.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config file found at %s, using defaults", s.path)
			return nil
		}
		return &ConfigAccessError{Path: s.path, Access: "readable", Err: err}
	}

	overrides := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return NewConfigurationError("error loading config from %s: %v", s.path, err)
	}
	s.data = merge(s.data, overrides)
	logging.Info("Config", "Loaded configuration from %s", s.path)
	return nil
}

// Dump serializes the current in-memory state back to the user override file
// so values derived or redacted during the run persist across invocations.
func (s *Store) Dump() error {
	out, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("serializing configuration: %w", err)
	}
	if err := os.WriteFile(s.path, out, 0o640); err != nil {
		return &ConfigAccessError{Path: s.path, Access: "readable and writable", Err: err}
	}
	logging.Debug("Config", "Dumped configuration to %s", s.path)
	return nil
}

// merge deep-merges src over dst. Maps merge key-wise, anything else from src
// replaces the dst value.
func merge(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = map[string]interface{}{}
	}
	for key, srcVal := range src {
		if dstMap, ok := dst[key].(map[string]interface{}); ok {
			if srcMap, ok := srcVal.(map[string]interface{}); ok {
				dst[key] = merge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
	return dst
}

// Get looks up a dotted path ("broker.cluster_members") and reports whether
// it exists.
func (s *Store) Get(path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = s.data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set writes a value at a dotted path, creating intermediate mappings as
// needed.
func (s *Store) Set(path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// GetString returns the string at path, or "" when absent or not a string.
func (s *Store) GetString(path string) string {
	v, ok := s.Get(path)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// GetBool returns the boolean at path, or false when absent.
func (s *Store) GetBool(path string) bool {
	v, ok := s.Get(path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// GetInt returns the integer at path, or 0 when absent. YAML numbers decode
// as int; values set programmatically may also be int.
func (s *Store) GetInt(path string) int {
	v, ok := s.Get(path)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// GetStrings returns the string list at path. Entries that are not strings
// are skipped.
func (s *Store) GetStrings(path string) []string {
	v, ok := s.Get(path)
	if !ok {
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// GetStringMap returns the mapping at path, or an empty map when absent.
func (s *Store) GetStringMap(path string) map[string]interface{} {
	v, ok := s.Get(path)
	if !ok {
		return map[string]interface{}{}
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return m
}

// ServicesToInstall returns the requested service set from the config.
func (s *Store) ServicesToInstall() []string {
	return s.GetStrings(KeyServicesToInstall)
}

// HasService reports whether the named service is in the set to install.
func (s *Store) HasService(name string) bool {
	for _, svc := range s.ServicesToInstall() {
		if svc == name {
			return true
		}
	}
	return false
}
