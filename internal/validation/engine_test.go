package validation

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackmgr/internal/certs"
	"stackmgr/internal/components"
	"stackmgr/internal/config"
	"stackmgr/internal/hostops"
)

const goodOSRelease = `NAME="Rocky Linux"
ID="rocky"
VERSION_ID="9.3"
`

const goodMemInfo = `MemTotal:       16384516 kB
MemFree:         8192258 kB
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func stubDiskFree(t *testing.T, bytes uint64, err error) {
	t.Helper()
	orig := diskFree
	diskFree = func(path string) (uint64, error) { return bytes, err }
	t.Cleanup(func() { diskFree = orig })
}

func stubInterfaceAddrs(t *testing.T, ips ...string) {
	t.Helper()
	var addrs []net.Addr
	for _, ip := range ips {
		addrs = append(addrs, &net.IPNet{IP: net.ParseIP(ip), Mask: net.CIDRMask(24, 32)})
	}
	orig := interfaceAddrs
	interfaceAddrs = func() ([]net.Addr, error) { return addrs, nil }
	t.Cleanup(func() { interfaceAddrs = orig })
}

// newTestEngine builds an engine over a passing baseline: supported OS,
// plenty of memory and disk, recent openssl, working sudo.
func newTestEngine(t *testing.T) (*Engine, *hostops.Fake) {
	t.Helper()
	host := hostops.NewFake()
	host.CommandOutput["run openssl version"] = "OpenSSL 1.1.1k  FIPS 25 Mar 2021"
	store := config.NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	store.Set(config.SectionManager+"."+config.KeyPrivateIP, "10.0.0.1")
	store.Set(config.SectionManager+"."+config.KeyPublicIP, "192.0.2.1")
	store.Set(config.SectionValidations+".expected_go_version", runtime.Version())

	ctx := &components.Context{Config: store, Host: host}
	engine := New(ctx, nil)
	engine.OSReleasePath = writeFixture(t, "os-release", goodOSRelease)
	engine.MemInfoPath = writeFixture(t, "meminfo", goodMemInfo)
	stubDiskFree(t, 100<<30, nil)
	stubInterfaceAddrs(t, "10.0.0.1", "127.0.0.1")
	return engine, host
}

func TestValidatePassesOnHealthySystem(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Validate())
}

func TestValidateSkippedByConfig(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OSReleasePath = "/nonexistent/os-release"
	engine.Config.Set(config.SectionValidations+"."+config.KeySkipValidations, true)
	require.NoError(t, engine.Validate())
}

func TestValidateSkippedByFlag(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OSReleasePath = "/nonexistent/os-release"
	engine.Skip = true
	require.NoError(t, engine.Validate())
}

func TestSystemProblemsAccumulateIntoOneError(t *testing.T) {
	engine, host := newTestEngine(t)
	engine.OSReleasePath = writeFixture(t, "os-release", "ID=\"gentoo\"\nVERSION_ID=\"2.14\"\n")
	engine.MemInfoPath = writeFixture(t, "meminfo", "MemTotal:       1048576 kB\n")
	stubDiskFree(t, 1<<30, nil)
	host.CommandOutput["run openssl version"] = "OpenSSL 0.9.8zh 3 Dec 2015"
	host.FailOn["run sudo -n true"] = errors.New("a password is required")

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	joined := valErr.Error()
	assert.Contains(t, joined, "gentoo")
	assert.Contains(t, joined, "2.14")
	assert.Contains(t, joined, "1024 MB")
	assert.Contains(t, joined, "free disk space")
	assert.Contains(t, joined, "openssl")
	assert.Contains(t, joined, "sudo")
	assert.GreaterOrEqual(t, len(valErr.Problems), 6)
}

func TestMissingIPsFailHard(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Config.Set(config.SectionManager+"."+config.KeyPrivateIP, "")

	err := engine.Validate()
	require.Error(t, err)
	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, err.Error(), config.KeyPrivateIP)
}

func TestOnlyInstallSkipsIPRequirement(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Config.Set(config.SectionManager+"."+config.KeyPrivateIP, "")
	engine.Config.Set(config.SectionManager+"."+config.KeyPublicIP, "")
	engine.OnlyInstall = true
	require.NoError(t, engine.Validate())
}

// databaseOnlyBaseline turns the engine into a valid standalone database
// node: no manager IPs, remote access on, server SSL on with a generated
// certificate chain.
func databaseOnlyBaseline(t *testing.T, engine *Engine) {
	t.Helper()
	engine.Config.Set(config.KeyServicesToInstall, []interface{}{config.DatabaseService})
	engine.Config.Set(config.SectionManager+"."+config.KeyPrivateIP, "")
	engine.Config.Set(config.SectionManager+"."+config.KeyPublicIP, "")
	engine.Config.Set(config.SectionDatabase+"."+config.KeyEnableRemoteConnections, true)
	engine.Config.Set(config.SectionDatabase+"."+config.KeyPostgresPassword, "pgpass")
	engine.Config.Set(config.SectionDatabase+"."+config.KeySSLEnabled, true)

	dir := t.TempDir()
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")
	certPath := filepath.Join(dir, "db.crt")
	keyPath := filepath.Join(dir, "db.key")
	require.NoError(t, certs.GenerateCA("db-ca", caCert, caKey))
	require.NoError(t, certs.Generate([]string{"10.0.0.2"}, "db", certPath, keyPath, caCert, caKey))
	engine.Config.Set(config.SectionSSLInputs+".database_cert_path", certPath)
	engine.Config.Set(config.SectionSSLInputs+".database_key_path", keyPath)
	engine.Config.Set(config.SectionSSLInputs+".database_ca_path", caCert)
}

func TestIPRequirementOnlyAppliesToManagerNodes(t *testing.T) {
	engine, _ := newTestEngine(t)
	databaseOnlyBaseline(t, engine)
	require.NoError(t, engine.Validate())
}

func TestDatabaseOnlyNodeRequiresServerSSL(t *testing.T) {
	engine, _ := newTestEngine(t)
	databaseOnlyBaseline(t, engine)
	engine.Config.Set(config.SectionDatabase+"."+config.KeySSLEnabled, false)

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "database."+config.KeySSLEnabled)
}

func TestDatabaseOnlyNodeRequiresCertificateInputs(t *testing.T) {
	engine, _ := newTestEngine(t)
	databaseOnlyBaseline(t, engine)
	engine.Config.Set(config.SectionSSLInputs+".database_ca_path", "")

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "database_ca_path")
}

func TestCertificateWithoutKeyFailsHard(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Config.Set(config.SectionSSLInputs+".external_cert_path", "/tmp/cert.pem")

	err := engine.Validate()
	require.Error(t, err)
	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, err.Error(), "external_cert_path")
	assert.Contains(t, err.Error(), "external_key_path")
}

func TestComponentHookFailureFailsHard(t *testing.T) {
	engine, _ := newTestEngine(t)
	broker := components.NewBroker(false)
	engine.Components = []components.Component{broker}
	engine.Config.Set(config.SectionBroker+".cluster_members", map[string]interface{}{
		"node1": map[string]interface{}{},
	})

	err := engine.Validate()
	require.Error(t, err)
	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, err.Error(), config.SectionBroker)
}

func TestSkipDoesNotBypassConfigChecks(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Skip = true
	broker := components.NewBroker(false)
	engine.Components = []components.Component{broker}
	engine.Config.Set(config.SectionBroker+".cluster_members", map[string]interface{}{
		"node1": map[string]interface{}{},
	})

	err := engine.Validate()
	require.Error(t, err)
	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestSkipByConfigDoesNotBypassRequiredIPs(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Config.Set(config.SectionValidations+"."+config.KeySkipValidations, true)
	engine.Config.Set(config.SectionManager+"."+config.KeyPrivateIP, "")

	err := engine.Validate()
	require.Error(t, err)
	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, err.Error(), config.KeyPrivateIP)
}

func TestOnlyInstallSkipsCertificateChecks(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OnlyInstall = true
	engine.Config.Set(config.SectionSSLInputs+".external_cert_path", "/tmp/cert.pem")
	require.NoError(t, engine.Validate())
}

func TestPrivateIPMustBeOnLocalInterface(t *testing.T) {
	engine, _ := newTestEngine(t)
	stubInterfaceAddrs(t, "172.16.0.5", "127.0.0.1")

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "network interface")
	assert.Contains(t, err.Error(), "10.0.0.1")
}

func TestSkippedComponentHooksAreNotRun(t *testing.T) {
	engine, _ := newTestEngine(t)
	broker := components.NewBroker(true)
	engine.Components = []components.Component{broker}
	engine.Config.Set(config.SectionBroker+".cluster_members", map[string]interface{}{
		"node1": map[string]interface{}{},
	})
	require.NoError(t, engine.Validate())
}

func TestPostgresRemoteWithoutPasswordAccumulates(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Config.Set(config.SectionDatabase+"."+config.KeyEnableRemoteConnections, true)

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), config.KeyPostgresPassword)
}

func TestDatabaseOnlyNodeRequiresRemoteConnections(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Config.Set(config.KeyServicesToInstall, []interface{}{config.DatabaseService})

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), config.KeyEnableRemoteConnections)
}

func TestExternalDatabaseRequiresClientSSLAndPassword(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Config.Set(config.KeyServicesToInstall,
		[]interface{}{config.QueueService, config.ManagerService})

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "database_client."+config.KeySSLEnabled)
	assert.Contains(t, err.Error(), "database_client.password")

	engine.Config.Set(config.SectionDatabaseClient+"."+config.KeySSLEnabled, true)
	engine.Config.Set(config.SectionDatabaseClient+".password", "dbpass")
	require.NoError(t, engine.Validate())
}

func TestMismatchedCertificatePairIsReported(t *testing.T) {
	engine, _ := newTestEngine(t)
	dir := t.TempDir()
	certA := filepath.Join(dir, "a.crt")
	keyA := filepath.Join(dir, "a.key")
	certB := filepath.Join(dir, "b.crt")
	keyB := filepath.Join(dir, "b.key")
	require.NoError(t, certs.Generate([]string{"10.0.0.1"}, "a", certA, keyA, "", ""))
	require.NoError(t, certs.Generate([]string{"10.0.0.2"}, "b", certB, keyB, "", ""))

	engine.Config.Set(config.SectionSSLInputs+".external_cert_path", certA)
	engine.Config.Set(config.SectionSSLInputs+".external_key_path", keyB)

	err := engine.Validate()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), certA)
	assert.Contains(t, err.Error(), keyB)
}

func TestMatchingCertificatePairPasses(t *testing.T) {
	engine, _ := newTestEngine(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "a.crt")
	keyPath := filepath.Join(dir, "a.key")
	require.NoError(t, certs.Generate([]string{"10.0.0.1"}, "a", certPath, keyPath, "", ""))

	engine.Config.Set(config.SectionSSLInputs+".external_cert_path", certPath)
	engine.Config.Set(config.SectionSSLInputs+".external_key_path", keyPath)
	require.NoError(t, engine.Validate())
}

func TestCertificateNotSignedByCAIsReported(t *testing.T) {
	engine, _ := newTestEngine(t)
	dir := t.TempDir()
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")
	certPath := filepath.Join(dir, "node.crt")
	keyPath := filepath.Join(dir, "node.key")
	require.NoError(t, certs.GenerateCA("ca", caCert, caKey))
	// Self-signed, so verification against the unrelated CA must fail.
	require.NoError(t, certs.Generate([]string{"10.0.0.1"}, "node", certPath, keyPath, "", ""))

	engine.Config.Set(config.SectionSSLInputs+".external_cert_path", certPath)
	engine.Config.Set(config.SectionSSLInputs+".external_key_path", keyPath)
	engine.Config.Set(config.SectionSSLInputs+".external_ca_path", caCert)

	err := engine.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), caCert)
}

func TestParseOpenSSLVersion(t *testing.T) {
	cases := map[string]string{
		"OpenSSL 1.1.1k  FIPS 25 Mar 2021": "1.1.1",
		"OpenSSL 3.0.7 1 Nov 2022":         "3.0.7",
		"OpenSSL 1.0.2k-fips  26 Jan 2017": "1.0.2",
		"OpenSSL 0.9.8zh 3 Dec 2015":       "0.9.8",
	}
	for input, expected := range cases {
		version, err := parseOpenSSLVersion(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, version.String(), input)
	}

	_, err := parseOpenSSLVersion("garbage")
	require.Error(t, err)
}

func TestReportAsErrorNilWhenClean(t *testing.T) {
	report := &Report{}
	require.NoError(t, report.AsError())

	report.Add("problem %d", 1)
	report.Add("problem %d", 2)
	err := report.AsError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 error(s)")
}
