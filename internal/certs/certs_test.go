package certs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCAAndSignedCert(t *testing.T) {
	dir := t.TempDir()
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")
	require.NoError(t, GenerateCA("stackmgr-test-ca", caCert, caKey))

	cert := filepath.Join(dir, "node.crt")
	key := filepath.Join(dir, "node.key")
	require.NoError(t, Generate([]string{"10.0.0.5", "node-one"}, "node-one", cert, key, caCert, caKey))

	loadedCert, err := LoadCertificate(cert)
	require.NoError(t, err)
	loadedKey, err := LoadPrivateKey(key)
	require.NoError(t, err)
	loadedCA, err := LoadCertificate(caCert)
	require.NoError(t, err)

	assert.True(t, PairMatches(loadedCert, loadedKey))
	assert.NoError(t, VerifySignedBy(loadedCert, loadedCA))

	// SANs made it into the certificate.
	assert.Contains(t, loadedCert.DNSNames, "node-one")
	require.Len(t, loadedCert.IPAddresses, 1)
	assert.Equal(t, "10.0.0.5", loadedCert.IPAddresses[0].String())
}

func TestSelfSignedCertDoesNotVerifyAgainstForeignCA(t *testing.T) {
	dir := t.TempDir()
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")
	require.NoError(t, GenerateCA("stackmgr-test-ca", caCert, caKey))

	cert := filepath.Join(dir, "self.crt")
	key := filepath.Join(dir, "self.key")
	require.NoError(t, Generate([]string{"localhost"}, "localhost", cert, key, "", ""))

	loadedCert, err := LoadCertificate(cert)
	require.NoError(t, err)
	loadedCA, err := LoadCertificate(caCert)
	require.NoError(t, err)

	assert.Error(t, VerifySignedBy(loadedCert, loadedCA))
}

func TestPairMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Generate([]string{"a"}, "a", filepath.Join(dir, "a.crt"), filepath.Join(dir, "a.key"), "", ""))
	require.NoError(t, Generate([]string{"b"}, "b", filepath.Join(dir, "b.crt"), filepath.Join(dir, "b.key"), "", ""))

	certA, err := LoadCertificate(filepath.Join(dir, "a.crt"))
	require.NoError(t, err)
	keyB, err := LoadPrivateKey(filepath.Join(dir, "b.key"))
	require.NoError(t, err)

	assert.False(t, PairMatches(certA, keyB))
}

func TestLoadCertificateRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.crt")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o644))

	_, err := LoadCertificate(path)
	assert.Error(t, err)
}
