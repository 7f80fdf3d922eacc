// Package validation runs the pre-flight checks that gate host mutation.
// Checks come in two tiers: hard checks fail the run immediately (missing
// required configuration, inconsistent certificate inputs), while system
// checks accumulate into a single aggregated error so one run surfaces every
// problem at once.
package validation

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/Masterminds/semver/v3"

	"stackmgr/internal/certs"
	"stackmgr/internal/components"
	"stackmgr/internal/config"
	"stackmgr/pkg/logging"
)

// Engine runs the validation tiers against a configured run context.
type Engine struct {
	Config     *config.Store
	Components []components.Component
	Context    *components.Context

	// OnlyInstall relaxes runtime-configuration checks: an install-only run
	// never reads the settings that configure would need.
	OnlyInstall bool
	// Skip bypasses every check. Also settable through the config file.
	Skip bool

	// Overridable system probe inputs.
	OSReleasePath string
	MemInfoPath   string
	DiskCheckPath string
}

// diskFree reports the available bytes on the filesystem holding path.
// A variable so tests can substitute fixed values.
var diskFree = func(path string) (uint64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// New builds an engine with the standard system probe locations.
func New(ctx *components.Context, comps []components.Component) *Engine {
	return &Engine{
		Config:        ctx.Config,
		Components:    comps,
		Context:       ctx,
		OnlyInstall:   ctx.OnlyInstall,
		OSReleasePath: "/etc/os-release",
		MemInfoPath:   "/proc/meminfo",
		DiskCheckPath: "/opt",
	}
}

// Validate runs both tiers. Hard failures return immediately; system check
// failures are aggregated into a single ValidationError. Skipping only
// bypasses the system tier; required inputs and component dependencies are
// checked on every run.
func (e *Engine) Validate() error {
	logging.Info("Validation", "Validating configuration and system state...")

	if err := e.validateConfig(); err != nil {
		return err
	}
	if e.Skip || e.Config.GetBool(config.SectionValidations+"."+config.KeySkipValidations) {
		logging.Warn("Validation", "Skipping system validations")
		return nil
	}

	report := &Report{}
	e.checkSystem(report)
	if !e.OnlyInstall {
		e.checkCertificates(report)
	}
	if err := report.AsError(); err != nil {
		return err
	}
	logging.Info("Validation", "All validations passed")
	return nil
}

// validateConfig is the hard tier: anything wrong here fails the run before
// system probing starts.
func (e *Engine) validateConfig() error {
	if !e.OnlyInstall {
		if err := e.requireIPs(); err != nil {
			return err
		}
		if err := e.checkCertificateInputPairs(); err != nil {
			return err
		}
	}
	for _, comp := range e.Components {
		if comp.SkipInstallation() {
			continue
		}
		if err := comp.ValidateDependencies(e.Context); err != nil {
			return config.NewConfigurationError("%s: %v", comp.Name(), err)
		}
	}
	return nil
}

func (e *Engine) requireIPs() error {
	if !e.Config.HasService(config.ManagerService) {
		return nil
	}
	for _, key := range []string{config.KeyPrivateIP, config.KeyPublicIP} {
		if e.Config.GetString(config.SectionManager+"."+key) == "" {
			return config.NewConfigurationError("manager.%s must be set", key)
		}
	}
	return nil
}

// checkCertificateInputPairs rejects a certificate supplied without its key
// or the other way around. Either both halves or neither.
func (e *Engine) checkCertificateInputPairs() error {
	pairs := [][2]string{
		{"ca_cert_path", "ca_key_path"},
		{"internal_cert_path", "internal_key_path"},
		{"external_cert_path", "external_key_path"},
		{"database_cert_path", "database_key_path"},
		{"db_client_cert_path", "db_client_key_path"},
	}
	for _, pair := range pairs {
		cert := e.Config.GetString(config.SectionSSLInputs + "." + pair[0])
		key := e.Config.GetString(config.SectionSSLInputs + "." + pair[1])
		if (cert == "") != (key == "") {
			return config.NewConfigurationError(
				"ssl_inputs.%s and ssl_inputs.%s must be provided together", pair[0], pair[1])
		}
	}
	return nil
}

// checkSystem is the aggregating tier: OS, runtime, resources, privileges,
// and addresses.
func (e *Engine) checkSystem(report *Report) {
	e.checkOSDistro(report)
	e.checkRuntimeVersion(report)
	e.checkMemory(report)
	e.checkDisk(report)
	e.checkOpenSSL(report)
	e.checkSudo(report)
	e.checkIPs(report)
	if !e.OnlyInstall {
		e.checkPostgresInputs(report)
	}
}

// checkPostgresInputs covers the cross-component database rules: a database
// node serving remote managers must actually be reachable and protected, and
// a manager using an external database must have the client side set up.
func (e *Engine) checkPostgresInputs(report *Report) {
	hasDB := e.Config.HasService(config.DatabaseService)
	hasManager := e.Config.HasService(config.ManagerService)
	remote := e.Config.GetBool(config.SectionDatabase + "." + config.KeyEnableRemoteConnections)
	password := e.Config.GetString(config.SectionDatabase + "." + config.KeyPostgresPassword)

	if hasDB {
		if remote && password == "" {
			report.Add("database.%s must be set when database.%s is true",
				config.KeyPostgresPassword, config.KeyEnableRemoteConnections)
		}
		if !hasManager {
			if !remote {
				report.Add("database.%s must be true when the database serves managers on other hosts",
					config.KeyEnableRemoteConnections)
			}
			if !e.Config.GetBool(config.SectionDatabase + "." + config.KeySSLEnabled) {
				report.Add("database.%s must be true when the database serves managers on other hosts",
					config.KeySSLEnabled)
			} else {
				for _, key := range []string{"database_cert_path", "database_key_path", "database_ca_path"} {
					if e.Config.GetString(config.SectionSSLInputs+"."+key) == "" {
						report.Add("ssl_inputs.%s must be provided when database.%s is true",
							key, config.KeySSLEnabled)
					}
				}
			}
		}
	}
	if hasManager && !hasDB {
		if !e.Config.GetBool(config.SectionDatabaseClient + "." + config.KeySSLEnabled) {
			report.Add("database_client.%s must be true when using an external database", config.KeySSLEnabled)
		}
		if e.Config.GetString(config.SectionDatabaseClient+".password") == "" {
			report.Add("database_client.password must be set when using an external database")
		}
	}
}

func (e *Engine) checkOSDistro(report *Report) {
	id, versionID, err := readOSRelease(e.OSReleasePath)
	if err != nil {
		report.Add("could not determine OS distribution from %s: %v", e.OSReleasePath, err)
		return
	}
	supported := e.Config.GetStrings(config.SectionValidations + ".supported_distros")
	if !containsFold(supported, id) {
		report.Add("distribution %q is not supported (supported: %s)", id, strings.Join(supported, ", "))
	}
	versions := e.Config.GetStrings(config.SectionValidations + ".supported_distro_versions")
	major := strings.SplitN(versionID, ".", 2)[0]
	if !containsFold(versions, major) {
		report.Add("distribution version %q is not supported (supported: %s)", versionID, strings.Join(versions, ", "))
	}
}

func (e *Engine) checkRuntimeVersion(report *Report) {
	expected := e.Config.GetString(config.SectionValidations + ".expected_go_version")
	if expected == "" {
		return
	}
	if !strings.HasPrefix(runtime.Version(), expected) {
		report.Add("runtime version %s does not match expected %s", runtime.Version(), expected)
	}
}

func (e *Engine) checkMemory(report *Report) {
	requiredMB := e.Config.GetInt(config.SectionValidations + ".minimum_required_total_physical_memory_in_mb")
	if requiredMB <= 0 {
		return
	}
	totalMB, err := readTotalMemoryMB(e.MemInfoPath)
	if err != nil {
		report.Add("could not determine total physical memory: %v", err)
		return
	}
	if totalMB < requiredMB {
		report.Add("the machine has %d MB of memory but at least %d MB is required", totalMB, requiredMB)
	}
}

func (e *Engine) checkDisk(report *Report) {
	requiredGB := e.Config.GetInt(config.SectionValidations + ".minimum_required_available_disk_space_in_gb")
	if requiredGB <= 0 {
		return
	}
	free, err := diskFree(e.DiskCheckPath)
	if err != nil {
		report.Add("could not determine available disk space on %s: %v", e.DiskCheckPath, err)
		return
	}
	freeGB := int(free / (1 << 30))
	if freeGB < requiredGB {
		report.Add("%s has %d GB of free disk space but at least %d GB is required",
			e.DiskCheckPath, freeGB, requiredGB)
	}
}

func (e *Engine) checkOpenSSL(report *Report) {
	minimum := e.Config.GetString(config.SectionValidations + ".minimum_openssl_version")
	if minimum == "" {
		return
	}
	result, err := e.Context.Host.Run("openssl", "version")
	if err != nil {
		report.Add("could not run openssl: %v", err)
		return
	}
	installed, err := parseOpenSSLVersion(result.Stdout)
	if err != nil {
		report.Add("could not parse openssl version from %q: %v", strings.TrimSpace(result.Stdout), err)
		return
	}
	required, err := semver.NewVersion(minimum)
	if err != nil {
		report.Add("invalid minimum_openssl_version %q: %v", minimum, err)
		return
	}
	if installed.LessThan(required) {
		report.Add("openssl version %s is older than the required %s", installed, required)
	}
}

func (e *Engine) checkSudo(report *Report) {
	if _, err := e.Context.Host.Run("sudo", "-n", "true"); err != nil {
		report.Add("the current user cannot run commands with sudo without a password: %v", err)
	}
}

// interfaceAddrs lists the addresses assigned to this machine's interfaces.
// A variable so tests can substitute fixed values.
var interfaceAddrs = net.InterfaceAddrs

func (e *Engine) checkIPs(report *Report) {
	if !e.Config.HasService(config.ManagerService) || e.OnlyInstall {
		return
	}
	for _, key := range []string{config.KeyPrivateIP, config.KeyPublicIP} {
		value := e.Config.GetString(config.SectionManager + "." + key)
		if value == "" {
			continue
		}
		ip := net.ParseIP(value)
		if ip == nil {
			if _, err := net.LookupHost(value); err != nil {
				report.Add("manager.%s %q is neither an IP address nor a resolvable hostname", key, value)
			}
			continue
		}
		// The private IP is what the services bind; it has to exist here.
		if key == config.KeyPrivateIP {
			e.checkLocalInterface(report, key, ip)
		}
	}
}

func (e *Engine) checkLocalInterface(report *Report, key string, ip net.IP) {
	addrs, err := interfaceAddrs()
	if err != nil {
		report.Add("could not list network interfaces: %v", err)
		return
	}
	for _, addr := range addrs {
		switch a := addr.(type) {
		case *net.IPNet:
			if a.IP.Equal(ip) {
				return
			}
		case *net.IPAddr:
			if a.IP.Equal(ip) {
				return
			}
		}
	}
	report.Add("manager.%s %q is not assigned to any network interface on this machine", key, ip)
}

// checkCertificates verifies each supplied certificate pair actually matches
// and chains to its CA when one was supplied.
func (e *Engine) checkCertificates(report *Report) {
	groups := [][3]string{
		{"internal_cert_path", "internal_key_path", "internal_ca_path"},
		{"external_cert_path", "external_key_path", "external_ca_path"},
		{"database_cert_path", "database_key_path", "database_ca_path"},
		{"db_client_cert_path", "db_client_key_path", "db_client_ca_path"},
	}
	for _, group := range groups {
		certPath := e.Config.GetString(config.SectionSSLInputs + "." + group[0])
		keyPath := e.Config.GetString(config.SectionSSLInputs + "." + group[1])
		caPath := e.Config.GetString(config.SectionSSLInputs + "." + group[2])
		if certPath == "" || keyPath == "" {
			continue
		}
		cert, err := certs.LoadCertificate(certPath)
		if err != nil {
			report.Add("could not load certificate %s: %v", certPath, err)
			continue
		}
		key, err := certs.LoadPrivateKey(keyPath)
		if err != nil {
			report.Add("could not load private key %s: %v", keyPath, err)
			continue
		}
		if !certs.PairMatches(cert, key) {
			report.Add("certificate %s does not match private key %s", certPath, keyPath)
		}
		if caPath == "" {
			continue
		}
		ca, err := certs.LoadCertificate(caPath)
		if err != nil {
			report.Add("could not load CA certificate %s: %v", caPath, err)
			continue
		}
		if err := certs.VerifySignedBy(cert, ca); err != nil {
			report.Add("certificate %s was not signed by CA %s", certPath, caPath)
		}
	}
}

func readOSRelease(path string) (id, versionID string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch key {
		case "ID":
			id = value
		case "VERSION_ID":
			versionID = value
		}
	}
	if id == "" {
		return "", "", fmt.Errorf("no ID field in %s", path)
	}
	return id, versionID, nil
}

func readTotalMemoryMB(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, err
		}
		return kb / 1024, nil
	}
	return 0, fmt.Errorf("no MemTotal field in %s", path)
}

// parseOpenSSLVersion extracts the numeric version from "openssl version"
// output, dropping the letter suffix releases like 1.1.1k carry.
func parseOpenSSLVersion(out string) (*semver.Version, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil, fmt.Errorf("unexpected output")
	}
	raw := strings.TrimRightFunc(fields[1], func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	return semver.NewVersion(raw)
}

func containsFold(haystack []string, needle string) bool {
	for _, item := range haystack {
		if strings.EqualFold(item, needle) {
			return true
		}
	}
	return false
}
