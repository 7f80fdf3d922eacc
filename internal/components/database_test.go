package components

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackmgr/internal/config"
)

func TestDatabaseConfigureRedactsSuperuserPassword(t *testing.T) {
	ctx, host := newTestContext(t)
	ctx.Config.Set(NameDatabase+"."+config.KeyPostgresPassword, "hunter2")

	db := NewDatabase(false)
	require.NoError(t, db.Configure(ctx))

	calls := host.CallsWithPrefix("sudo -u postgres psql -c")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "hunter2")
	assert.Equal(t, config.RedactedValue,
		ctx.Config.GetString(NameDatabase+"."+config.KeyPostgresPassword))
}

func TestDatabasePasswordUpdateIsIdempotent(t *testing.T) {
	ctx, host := newTestContext(t)
	ctx.Config.Set(NameDatabase+"."+config.KeyPostgresPassword, "hunter2")

	db := NewDatabase(false)
	require.NoError(t, db.updatePassword(ctx))
	require.NoError(t, db.updatePassword(ctx))

	assert.Len(t, host.CallsWithPrefix("sudo -u postgres psql -c"), 1)
}

func TestDatabaseConfigureSkipsPasswordWhenUnset(t *testing.T) {
	ctx, host := newTestContext(t)

	db := NewDatabase(false)
	require.NoError(t, db.Configure(ctx))
	assert.Empty(t, host.CallsWithPrefix("sudo -u postgres psql"))
}

func TestDatabaseInitToleratesInitializedDataDirectory(t *testing.T) {
	ctx, host := newTestContext(t)
	host.FailOn["sudo -u postgres /usr/pgsql/bin/initdb"] =
		errors.New(`initdb: error: directory "/var/lib/pgsql/data" exists but is not empty`)

	db := NewDatabase(false)
	require.NoError(t, db.initDataDirectory(ctx))
}

func TestDatabaseInitPropagatesOtherFailures(t *testing.T) {
	ctx, host := newTestContext(t)
	host.FailOn["sudo -u postgres /usr/pgsql/bin/initdb"] = errors.New("permission denied")

	db := NewDatabase(false)
	require.Error(t, db.initDataDirectory(ctx))
}

func TestDatabaseRemoteConfigurationDeploysServerFiles(t *testing.T) {
	ctx, host := newTestContext(t)
	ctx.Config.Set(NameDatabase+"."+config.KeyEnableRemoteConnections, true)

	db := NewDatabase(false)
	require.NoError(t, db.Configure(ctx))

	require.Contains(t, host.Files, pgHBAPath)
	require.Contains(t, host.Files, pgConfigPath)
	assert.Contains(t, string(host.Files[pgHBAPath]), "0.0.0.0/0")
	assert.Contains(t, string(host.Files[pgConfigPath]), "listen_addresses = '*'")
	assert.NotContains(t, string(host.Files[pgConfigPath]), "ssl = on")
}

func TestDatabaseSSLConfigurationDeploysCertificates(t *testing.T) {
	ctx, host := newTestContext(t)
	ctx.Config.Set(NameDatabase+"."+config.KeyEnableRemoteConnections, true)
	ctx.Config.Set(NameDatabase+"."+config.KeySSLEnabled, true)
	ctx.Config.Set(config.SectionSSLInputs+".database_cert_path", "/tmp/db.crt")
	ctx.Config.Set(config.SectionSSLInputs+".database_key_path", "/tmp/db.key")
	ctx.Config.Set(config.SectionSSLInputs+".database_ca_path", "/tmp/ca.crt")
	host.Files["/tmp/db.crt"] = []byte("cert")
	host.Files["/tmp/db.key"] = []byte("key")
	host.Files["/tmp/ca.crt"] = []byte("ca")

	db := NewDatabase(false)
	require.NoError(t, db.deployConfiguration(ctx))

	assert.Contains(t, host.Files, pgServerCert)
	assert.Contains(t, host.Files, pgServerKey)
	assert.Contains(t, host.Files, pgRootCert)
	assert.NotEmpty(t, host.CallsWithPrefix("chmod 600 "+pgServerKey))
	assert.Contains(t, string(host.Files[pgConfigPath]), "ssl = on")
	assert.Contains(t, string(host.Files[pgHBAPath]), "hostssl")
}

func TestDatabaseSSLRequiresCertificateInputs(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Config.Set(NameDatabase+"."+config.KeyEnableRemoteConnections, true)
	ctx.Config.Set(NameDatabase+"."+config.KeySSLEnabled, true)

	db := NewDatabase(false)
	err := db.deployConfiguration(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certificate input")
}
