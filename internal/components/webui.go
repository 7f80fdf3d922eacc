package components

import (
	"time"

	"stackmgr/internal/config"
	"stackmgr/internal/template"
	"stackmgr/pkg/logging"
)

const (
	// WebUIUnit is the web UI's systemd unit.
	WebUIUnit = "stackmgr-webui"

	webUIVHostPath = "/etc/nginx/conf.d/stackmgr.conf"
)

const webUIVHostTemplate = `# Managed by stackmgr. Local edits will be overwritten.
server {
{{- if .SSLEnabled }}
  listen {{ .Port }} ssl;
  ssl_certificate {{ .CertPath }};
  ssl_certificate_key {{ .KeyPath }};
{{- else }}
  listen {{ .Port }};
{{- end }}
  server_name {{ .PublicIP }};

  location /api/ {
    proxy_pass http://127.0.0.1:{{ .RESTPort }}/;
    proxy_set_header Host $host;
    proxy_set_header X-Real-IP $remote_addr;
  }

  location / {
    root /opt/stackmgr/webui;
    try_files $uri /index.html;
  }
}
`

// WebUI manages the platform's web interface, served through nginx as a
// reverse proxy in front of the REST service.
type WebUI struct {
	Base
}

// NewWebUI creates the web UI component.
func NewWebUI(skip bool) *WebUI {
	return &WebUI{Base: NewBase(NameWebUI, skip)}
}

// Install fetches the web UI packages.
func (w *WebUI) Install(ctx *Context) error {
	logging.Info("WebUI", "Installing web UI...")
	if err := installSources(ctx, NameWebUI); err != nil {
		return err
	}
	logging.Info("WebUI", "Web UI successfully installed")
	return nil
}

// Configure renders the vhost and brings the unit up on its port.
func (w *WebUI) Configure(ctx *Context) error {
	logging.Info("WebUI", "Configuring web UI...")

	if err := w.deployVHost(ctx); err != nil {
		return err
	}
	if err := ctx.Host.EnableService(WebUIUnit); err != nil {
		return err
	}
	if err := ctx.Host.RestartService(WebUIUnit); err != nil {
		return err
	}
	if err := w.verifyStarted(ctx); err != nil {
		return err
	}

	logging.Info("WebUI", "Web UI successfully configured")
	return nil
}

// Start starts the unit and waits for the listen port.
func (w *WebUI) Start(ctx *Context) error {
	logging.Info("WebUI", "Starting web UI...")
	if err := ctx.Host.StartService(WebUIUnit); err != nil {
		return err
	}
	if err := w.verifyStarted(ctx); err != nil {
		return err
	}
	logging.Info("WebUI", "Web UI successfully started")
	return nil
}

// Stop stops the unit.
func (w *WebUI) Stop(ctx *Context) error {
	logging.Info("WebUI", "Stopping web UI...")
	return ctx.Host.StopService(WebUIUnit)
}

// Remove reverses install and configure.
func (w *WebUI) Remove(ctx *Context) error {
	logging.Info("WebUI", "Removing web UI...")
	if err := ctx.Host.DisableService(WebUIUnit); err != nil {
		logging.Debug("WebUI", "Disabling web UI unit reported: %v", err)
	}
	if err := ctx.Host.RemovePath(webUIVHostPath); err != nil {
		return err
	}
	if err := removeSources(ctx, NameWebUI); err != nil {
		return err
	}
	logging.Info("WebUI", "Web UI successfully removed")
	return nil
}

func (w *WebUI) port(ctx *Context) int {
	return ctx.Config.GetInt(NameWebUI + ".port")
}

func (w *WebUI) deployVHost(ctx *Context) error {
	logging.Info("WebUI", "Deploying web UI vhost")
	sslEnabled := ctx.Config.GetBool(config.SectionManager + "." + config.KeySecurity + "." + config.KeySSLEnabled)
	rendered, err := template.Render("webui-vhost", webUIVHostTemplate, map[string]interface{}{
		"Port":       w.port(ctx),
		"SSLEnabled": sslEnabled,
		"CertPath":   ctx.Config.GetString(config.SectionSSLInputs + ".external_cert_path"),
		"KeyPath":    ctx.Config.GetString(config.SectionSSLInputs + ".external_key_path"),
		"PublicIP":   ctx.Config.GetString(config.SectionManager + "." + config.KeyPublicIP),
		"RESTPort":   ctx.Config.GetInt(NameRESTService + ".port"),
	})
	if err != nil {
		return err
	}
	return ctx.Host.WriteFile(webUIVHostPath, []byte(rendered), 0o644)
}

func (w *WebUI) verifyStarted(ctx *Context) error {
	if err := ctx.Host.VerifyServiceAlive(WebUIUnit); err != nil {
		return err
	}
	return waitForPort("127.0.0.1", w.port(ctx), 10, 3*time.Second)
}
