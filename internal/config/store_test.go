package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreHasDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.yaml"))

	assert.Equal(t, "admin", store.GetString("manager.security.admin_username"))
	assert.Equal(t, []string{DatabaseService, QueueService, ManagerService}, store.ServicesToInstall())
	assert.False(t, store.GetBool("broker.skip_installation"))
	assert.Equal(t, 5671, store.GetInt("broker.port"))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.yaml"))

	require.NoError(t, store.Load())
	assert.Equal(t, "localhost", store.GetString("database_client.host"))
}

func TestLoadDeepMergesUserOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	userConfig := `
manager:
  private_ip: 10.0.0.5
  security:
    admin_password: secret
broker:
  cluster_members:
    node-one:
      default: 10.0.0.6
services_to_install:
  - queue_service
`
	require.NoError(t, os.WriteFile(path, []byte(userConfig), 0o644))

	store := NewStore(path)
	require.NoError(t, store.Load())

	// User scalar wins.
	assert.Equal(t, "10.0.0.5", store.GetString("manager.private_ip"))
	// Sibling defaults survive a nested merge.
	assert.Equal(t, "admin", store.GetString("manager.security.admin_username"))
	assert.Equal(t, "secret", store.GetString("manager.security.admin_password"))
	// Lists replace rather than merge.
	assert.Equal(t, []string{QueueService}, store.ServicesToInstall())
	// Nested user-only mappings are reachable by dotted path.
	assert.Equal(t, "10.0.0.6", store.GetString("broker.cluster_members.node-one.default"))
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not yaml mapping"), 0o644))

	store := NewStore(path)
	err := store.Load()
	require.Error(t, err)
	assert.IsType(t, &ConfigurationError{}, err)
}

func TestDumpPersistsMutations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	store := NewStore(path)
	require.NoError(t, store.Load())
	store.Set("database.postgres_password", RedactedValue)
	store.Set("manager.private_ip", "10.0.0.5")
	require.NoError(t, store.Dump())

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, RedactedValue, reloaded.GetString("database.postgres_password"))
	assert.Equal(t, "10.0.0.5", reloaded.GetString("manager.private_ip"))
}

func TestCheckAccessMissingFileIsFine(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	assert.NoError(t, store.CheckAccess(true))
}

func TestCheckAccessUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root, permission checks are not enforced")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o000))

	store := NewStore(path)
	err := store.CheckAccess(false)
	require.Error(t, err)
	var accessErr *ConfigAccessError
	assert.ErrorAs(t, err, &accessErr)
}

func TestCheckAccessReadOnlyFileNeedsWrite(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root, permission checks are not enforced")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o444))

	store := NewStore(path)
	assert.NoError(t, store.CheckAccess(false))

	err := store.CheckAccess(true)
	require.Error(t, err)
	var accessErr *ConfigAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, "readable and writable", accessErr.Access)
}

func TestSetCreatesIntermediateMaps(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	store.Set("broker.cluster_members.node-two.default", "10.0.0.7")
	assert.Equal(t, "10.0.0.7", store.GetString("broker.cluster_members.node-two.default"))
}
