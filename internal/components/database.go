package components

import (
	"fmt"
	"strings"

	"stackmgr/internal/config"
	"stackmgr/internal/template"
	"stackmgr/pkg/logging"
)

const (
	// DatabaseUnit is the database's systemd unit.
	DatabaseUnit = "stackmgr-db"

	pgDataDir      = "/var/lib/pgsql/data"
	pgHBAPath      = pgDataDir + "/pg_hba.conf"
	pgConfigPath   = pgDataDir + "/postgresql.conf"
	pgServerCert   = pgDataDir + "/server.crt"
	pgServerKey    = pgDataDir + "/server.key"
	pgRootCert     = pgDataDir + "/root.crt"
	postgresUser   = "postgres"
	postgresBinDir = "/usr/pgsql/bin"
)

const pgHBATemplate = `# Managed by stackmgr. Local edits will be overwritten.
local   all   all                 peer
host    all   all   127.0.0.1/32  md5
host    all   all   ::1/128       md5
{{- if .EnableRemote }}
{{- if .SSLEnabled }}
hostssl all   all   0.0.0.0/0     md5 clientcert=1
{{- else }}
host    all   all   0.0.0.0/0     md5
{{- end }}
{{- end }}
`

const pgConfigTemplate = `# Managed by stackmgr. Local edits will be overwritten.
{{- if .EnableRemote }}
listen_addresses = '*'
{{- else }}
listen_addresses = 'localhost'
{{- end }}
port = {{ .Port }}
{{- if .SSLEnabled }}
ssl = on
ssl_cert_file = '{{ .CertPath }}'
ssl_key_file = '{{ .KeyPath }}'
ssl_ca_file = '{{ .CAPath }}'
{{- end }}
`

// Database manages the platform's relational database server.
type Database struct {
	Base
}

// NewDatabase creates the database component.
func NewDatabase(skip bool) *Database {
	return &Database{Base: NewBase(NameDatabase, skip)}
}

// Install fetches the database packages.
func (d *Database) Install(ctx *Context) error {
	logging.Info("Database", "Installing database...")
	if err := installSources(ctx, NameDatabase); err != nil {
		return err
	}
	logging.Info("Database", "Database successfully installed")
	return nil
}

// Configure initializes the data directory, deploys the server configuration,
// starts the unit, and applies the superuser password.
func (d *Database) Configure(ctx *Context) error {
	logging.Info("Database", "Configuring database...")

	if err := d.initDataDirectory(ctx); err != nil {
		return err
	}
	if ctx.Config.GetBool(NameDatabase + "." + config.KeyEnableRemoteConnections) {
		if err := d.deployConfiguration(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Host.EnableService(DatabaseUnit); err != nil {
		return err
	}
	if err := ctx.Host.RestartService(DatabaseUnit); err != nil {
		return err
	}
	if err := ctx.Host.VerifyServiceAlive(DatabaseUnit); err != nil {
		return err
	}
	if err := d.updatePassword(ctx); err != nil {
		return err
	}

	logging.Info("Database", "Database successfully configured")
	return nil
}

// Start starts the database unit and verifies it.
func (d *Database) Start(ctx *Context) error {
	logging.Info("Database", "Starting database...")
	if err := ctx.Host.StartService(DatabaseUnit); err != nil {
		return err
	}
	if err := ctx.Host.VerifyServiceAlive(DatabaseUnit); err != nil {
		return err
	}
	logging.Info("Database", "Database successfully started")
	return nil
}

// Stop stops the database unit.
func (d *Database) Stop(ctx *Context) error {
	logging.Info("Database", "Stopping database...")
	return ctx.Host.StopService(DatabaseUnit)
}

// Remove reverses install. The data directory is dropped with the packages.
func (d *Database) Remove(ctx *Context) error {
	logging.Info("Database", "Removing database...")
	if err := ctx.Host.DisableService(DatabaseUnit); err != nil {
		logging.Debug("Database", "Disabling database unit reported: %v", err)
	}
	if err := removeSources(ctx, NameDatabase); err != nil {
		return err
	}
	if err := ctx.Host.RemovePath("/var/lib/pgsql"); err != nil {
		return err
	}
	logging.Info("Database", "Database successfully removed")
	return nil
}

// initDataDirectory runs initdb, tolerating a directory initialized by a
// previous run.
func (d *Database) initDataDirectory(ctx *Context) error {
	logging.Info("Database", "Initializing data directory...")
	result, err := ctx.Host.Sudo("-u", postgresUser, postgresBinDir+"/initdb", "-D", pgDataDir)
	if err != nil {
		if strings.Contains(result.Stderr, "exists but is not empty") ||
			strings.Contains(result.Stdout, "exists but is not empty") {
			logging.Info("Database", "Data directory already initialized, skipping initdb")
			return nil
		}
		return fmt.Errorf("initdb failed: %w", err)
	}
	return nil
}

// deployConfiguration renders pg_hba.conf and postgresql.conf for remote
// access, deploying server certificates when SSL is on.
func (d *Database) deployConfiguration(ctx *Context) error {
	logging.Info("Database", "Deploying database server configuration...")
	sslEnabled := ctx.Config.GetBool(NameDatabase + "." + config.KeySSLEnabled)

	if sslEnabled {
		if err := d.deployCertificates(ctx); err != nil {
			return err
		}
	}

	data := map[string]interface{}{
		"EnableRemote": true,
		"SSLEnabled":   sslEnabled,
		"Port":         ctx.Config.GetInt(NameDatabase + ".port"),
		"CertPath":     pgServerCert,
		"KeyPath":      pgServerKey,
		"CAPath":       pgRootCert,
	}
	for path, text := range map[string]string{
		pgHBAPath:    pgHBATemplate,
		pgConfigPath: pgConfigTemplate,
	} {
		rendered, err := template.Render(path, text, data)
		if err != nil {
			return err
		}
		if err := ctx.Host.WriteFile(path, []byte(rendered), 0o600); err != nil {
			return err
		}
		if err := ctx.Host.Chown(postgresUser, postgresUser, path); err != nil {
			return err
		}
	}
	return nil
}

// deployCertificates copies the supplied server certificates into the data
// directory with the ownership and mode the server insists on.
func (d *Database) deployCertificates(ctx *Context) error {
	pairs := map[string]string{
		ctx.Config.GetString(config.SectionSSLInputs + ".database_cert_path"): pgServerCert,
		ctx.Config.GetString(config.SectionSSLInputs + ".database_key_path"):  pgServerKey,
		ctx.Config.GetString(config.SectionSSLInputs + ".database_ca_path"):   pgRootCert,
	}
	for src, dst := range pairs {
		if src == "" {
			return fmt.Errorf("database SSL is enabled but a certificate input for %s is missing", dst)
		}
		if err := ctx.Host.CopyFile(src, dst); err != nil {
			return err
		}
		if err := ctx.Host.Chown(postgresUser, postgresUser, dst); err != nil {
			return err
		}
		if err := ctx.Host.Chmod("600", dst); err != nil {
			return err
		}
	}
	return nil
}

// updatePassword applies the configured superuser password and redacts it
// from the in-memory config so the dumped file never carries it.
func (d *Database) updatePassword(ctx *Context) error {
	key := NameDatabase + "." + config.KeyPostgresPassword
	password := ctx.Config.GetString(key)
	if password == "" || password == config.RedactedValue {
		return nil
	}
	logging.Info("Database", "Updating database superuser password...")
	stmt := fmt.Sprintf("ALTER USER %s WITH PASSWORD '%s';", postgresUser, password)
	if _, err := ctx.Host.Sudo("-u", postgresUser, "psql", "-c", stmt); err != nil {
		return fmt.Errorf("updating superuser password: %w", err)
	}
	ctx.Config.Set(key, config.RedactedValue)
	return nil
}
