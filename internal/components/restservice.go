package components

import (
	"fmt"
	"strings"
	"time"

	"stackmgr/internal/config"
	"stackmgr/internal/template"
	"stackmgr/pkg/logging"
)

const (
	// RESTServiceUnit is the REST API's systemd unit.
	RESTServiceUnit = "stackmgr-restservice"

	restConfigPath = "/etc/stackmgr/restservice/config.yaml"
	restCtl        = "stackmgr-restctl"
)

const restConfigTemplate = `# Managed by stackmgr. Local edits will be overwritten.
port: {{ .Port }}
private_ip: {{ .PrivateIP }}
public_ip: {{ .PublicIP }}
postgresql_host: {{ .DBHost }}
postgresql_db_name: {{ .DBName }}
postgresql_username: {{ .DBUsername }}
postgresql_password: {{ .DBPassword }}
postgresql_ssl_enabled: {{ .DBSSLEnabled }}
broker_username: {{ .BrokerUsername }}
broker_password: {{ .BrokerPassword }}
broker_port: {{ .BrokerPort }}
`

// RESTService manages the platform's REST API server.
type RESTService struct {
	Base
}

// NewRESTService creates the REST service component.
func NewRESTService(skip bool) *RESTService {
	return &RESTService{Base: NewBase(NameRESTService, skip)}
}

// Install fetches the REST service packages.
func (r *RESTService) Install(ctx *Context) error {
	logging.Info("RESTService", "Installing REST service...")
	if err := installSources(ctx, NameRESTService); err != nil {
		return err
	}
	logging.Info("RESTService", "REST service successfully installed")
	return nil
}

// Configure renders the service configuration, prepares the database schema,
// and brings the unit up on its port.
func (r *RESTService) Configure(ctx *Context) error {
	logging.Info("RESTService", "Configuring REST service...")

	if err := r.deployConfiguration(ctx); err != nil {
		return err
	}
	if err := r.prepareDB(ctx); err != nil {
		return err
	}
	if err := ctx.Host.DaemonReload(); err != nil {
		return err
	}
	if err := ctx.Host.EnableService(RESTServiceUnit); err != nil {
		return err
	}
	if err := ctx.Host.RestartService(RESTServiceUnit); err != nil {
		return err
	}
	if err := r.verifyStarted(ctx); err != nil {
		return err
	}

	logging.Info("RESTService", "REST service successfully configured")
	return nil
}

// Start starts the unit and waits for the API port.
func (r *RESTService) Start(ctx *Context) error {
	logging.Info("RESTService", "Starting REST service...")
	if err := ctx.Host.StartService(RESTServiceUnit); err != nil {
		return err
	}
	if err := r.verifyStarted(ctx); err != nil {
		return err
	}
	logging.Info("RESTService", "REST service successfully started")
	return nil
}

// Stop stops the unit.
func (r *RESTService) Stop(ctx *Context) error {
	logging.Info("RESTService", "Stopping REST service...")
	return ctx.Host.StopService(RESTServiceUnit)
}

// Remove reverses install and configure.
func (r *RESTService) Remove(ctx *Context) error {
	logging.Info("RESTService", "Removing REST service...")
	if err := ctx.Host.DisableService(RESTServiceUnit); err != nil {
		logging.Debug("RESTService", "Disabling REST service unit reported: %v", err)
	}
	if err := removeSources(ctx, NameRESTService); err != nil {
		return err
	}
	if err := ctx.Host.RemovePath("/etc/stackmgr/restservice"); err != nil {
		return err
	}
	logging.Info("RESTService", "REST service successfully removed")
	return nil
}

// ValidateDependencies enforces the credentials the service cannot start
// without.
func (r *RESTService) ValidateDependencies(ctx *Context) error {
	username := ctx.Config.GetString(config.SectionManager + "." + config.KeySecurity + "." + config.KeyAdminUsername)
	if username == "" {
		return fmt.Errorf("manager admin_username must be set")
	}
	return nil
}

func (r *RESTService) port(ctx *Context) int {
	return ctx.Config.GetInt(NameRESTService + ".port")
}

func (r *RESTService) deployConfiguration(ctx *Context) error {
	logging.Info("RESTService", "Deploying REST service config")
	rendered, err := template.Render("restservice-config", restConfigTemplate, map[string]interface{}{
		"Port":           r.port(ctx),
		"PrivateIP":      ctx.Config.GetString(config.SectionManager + "." + config.KeyPrivateIP),
		"PublicIP":       ctx.Config.GetString(config.SectionManager + "." + config.KeyPublicIP),
		"DBHost":         ctx.Config.GetString(config.SectionDatabaseClient + ".host"),
		"DBName":         ctx.Config.GetString(config.SectionDatabaseClient + ".db_name"),
		"DBUsername":     ctx.Config.GetString(config.SectionDatabaseClient + ".username"),
		"DBPassword":     ctx.Config.GetString(config.SectionDatabaseClient + ".password"),
		"DBSSLEnabled":   ctx.Config.GetBool(config.SectionDatabaseClient + "." + config.KeySSLEnabled),
		"BrokerUsername": ctx.Config.GetString(NameBroker + ".username"),
		"BrokerPassword": ctx.Config.GetString(NameBroker + ".password"),
		"BrokerPort":     ctx.Config.GetInt(NameBroker + ".port"),
	})
	if err != nil {
		return err
	}
	return ctx.Host.WriteFile(restConfigPath, []byte(rendered), 0o640)
}

// prepareDB creates the application database and schema. A schema left over
// from a previous configure is dropped first when a clean run was requested,
// otherwise it is migrated in place.
func (r *RESTService) prepareDB(ctx *Context) error {
	initialized, err := r.dbInitialized(ctx)
	if err != nil {
		return err
	}
	switch {
	case initialized && ctx.CleanDB:
		logging.Info("RESTService", "Dropping existing database schema...")
		if _, err := ctx.Host.Sudo(restCtl, "db-drop"); err != nil {
			return fmt.Errorf("dropping database schema: %w", err)
		}
	case initialized:
		logging.Info("RESTService", "Database already initialized, migrating in place...")
		if _, err := ctx.Host.Sudo(restCtl, "db-migrate"); err != nil {
			return fmt.Errorf("migrating database schema: %w", err)
		}
		return nil
	}

	logging.Info("RESTService", "Initializing database schema...")
	username := ctx.Config.GetString(config.SectionManager + "." + config.KeySecurity + "." + config.KeyAdminUsername)
	password := ctx.Config.GetString(config.SectionManager + "." + config.KeySecurity + "." + config.KeyAdminPassword)
	if _, err := ctx.Host.Sudo(restCtl, "db-init",
		"--admin-username", username,
		"--admin-password", password); err != nil {
		return fmt.Errorf("initializing database schema: %w", err)
	}
	return nil
}

func (r *RESTService) dbInitialized(ctx *Context) (bool, error) {
	result, err := ctx.Host.Sudo(restCtl, "db-status")
	if err != nil {
		return false, fmt.Errorf("checking database status: %w", err)
	}
	return strings.Contains(result.Stdout, "initialized"), nil
}

func (r *RESTService) verifyStarted(ctx *Context) error {
	if err := ctx.Host.VerifyServiceAlive(RESTServiceUnit); err != nil {
		return err
	}
	return waitForPort("127.0.0.1", r.port(ctx), 10, 3*time.Second)
}
