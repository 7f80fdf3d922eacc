package config

// Top-level sections and commonly shared option keys. Component sections are
// named after the component they configure; the remaining sections hold
// cross-component settings.
const (
	SectionManager        = "manager"
	SectionBroker         = "broker"
	SectionDatabase       = "database"
	SectionDatabaseClient = "database_client"
	SectionRESTService    = "restservice"
	SectionWebUI          = "webui"
	SectionSanity         = "sanity"
	SectionUsageCollector = "usage_collector"
	SectionValidations    = "validations"
	SectionSSLInputs      = "ssl_inputs"
	SectionCluster        = "cluster"
	SectionNetworks       = "networks"

	KeyServicesToInstall   = "services_to_install"
	KeyCleanDB             = "clean_db"
	KeyUnconfiguredInstall = "unconfigured_install"

	KeyPrivateIP       = "private_ip"
	KeyPublicIP        = "public_ip"
	KeySecurity        = "security"
	KeyAdminUsername   = "admin_username"
	KeyAdminPassword   = "admin_password"
	KeySSLEnabled      = "ssl_enabled"
	KeySkipInstall     = "skip_installation"
	KeySkipValidations = "skip_validations"

	KeyEnableRemoteConnections = "enable_remote_connections"
	KeyPostgresPassword        = "postgres_password"
	KeyActiveManagerIP         = "active_manager_ip"

	// RedactedValue replaces secrets in the dumped config once they have
	// been applied to the host.
	RedactedValue = "<removed>"
)
