package components

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stackmgr/internal/config"
	"stackmgr/internal/template"
	"stackmgr/pkg/logging"
)

const (
	// BrokerUnit is the broker's systemd unit.
	BrokerUnit = "stackmgr-broker"

	brokerCtl        = "rabbitmqctl"
	brokerConfigPath = "/etc/stackmgr/broker/broker.config"
	brokerCookiePath = "/var/lib/rabkeeper/.cookie"
	brokerUser       = "rabbitmq"

	clusterJoinAttempts = 10
)

// clusterJoinDelay is a variable so the convergence loop can be exercised in
// tests without real waits.
var clusterJoinDelay = 3 * time.Second

const brokerConfigTemplate = `[
  {rabbit, [
    {ssl_listeners, [{{ .Port }}]},
    {ssl_options, [{cacertfile, "{{ .CAPath }}"},
                   {certfile, "{{ .CertPath }}"},
                   {keyfile, "{{ .KeyPath }}"},
                   {verify, verify_peer},
                   {fail_if_no_peer_cert, false}]}
  ]},
  {rabbitmq_management, [
    {listener, [{ip, "{{ .ManagementHost }}"}]}
  ]}
].
`

// Broker manages the platform's message broker.
type Broker struct {
	Base
}

// NewBroker creates the broker component.
func NewBroker(skip bool) *Broker {
	return &Broker{Base: NewBase(NameBroker, skip)}
}

// Install fetches the broker packages. Static configuration happens in
// Configure.
func (b *Broker) Install(ctx *Context) error {
	logging.Info("Broker", "Installing broker...")
	if err := installSources(ctx, NameBroker); err != nil {
		return err
	}
	logging.Info("Broker", "Broker successfully installed")
	return nil
}

// Configure initializes the broker node: node name, shared cookie, rendered
// config, service registration, user provisioning, policies, and an optional
// cluster join.
func (b *Broker) Configure(ctx *Context) error {
	logging.Info("Broker", "Configuring broker...")

	if err := b.setNodename(ctx); err != nil {
		return err
	}
	if err := b.writeCookie(ctx); err != nil {
		return err
	}
	if members := ctx.Config.GetStringMap(NameBroker + ".cluster_members"); len(members) == 0 {
		// A standalone node is its own single-member cluster, addressed
		// through the configured networks.
		ctx.Config.Set(NameBroker+".cluster_members", map[string]interface{}{
			"stackmgr-broker": ctx.Config.GetStringMap(config.SectionNetworks),
		})
	}
	if err := b.initService(ctx); err != nil {
		return err
	}

	if ctx.Config.GetString(NameBroker+".join_cluster") == "" {
		// Users and policies sync from the cluster when joining one.
		if err := b.deleteGuestUser(ctx); err != nil {
			return err
		}
		if err := b.createUser(ctx); err != nil {
			return err
		}
		if err := b.setPolicies(ctx); err != nil {
			return err
		}
	}
	if err := b.verifyRunning(ctx); err != nil {
		return err
	}
	if err := b.joinCluster(ctx); err != nil {
		return err
	}

	logging.Info("Broker", "Broker successfully configured")
	return nil
}

// Start starts the broker unit and verifies it actually came up.
func (b *Broker) Start(ctx *Context) error {
	logging.Info("Broker", "Starting broker...")
	if err := ctx.Host.StartService(BrokerUnit); err != nil {
		return err
	}
	if err := b.verifyRunning(ctx); err != nil {
		return err
	}
	logging.Info("Broker", "Broker successfully started")
	return nil
}

// Stop stops the broker unit.
func (b *Broker) Stop(ctx *Context) error {
	logging.Info("Broker", "Stopping broker...")
	return ctx.Host.StopService(BrokerUnit)
}

// Remove reverses install and configure. Partial state is tolerated.
func (b *Broker) Remove(ctx *Context) error {
	logging.Info("Broker", "Removing broker...")
	if err := ctx.Host.DisableService(BrokerUnit); err != nil {
		logging.Debug("Broker", "Disabling broker unit reported: %v", err)
	}
	// The port mapper daemon survives package removal.
	if _, err := ctx.Host.Sudo("epmd", "-kill"); err != nil {
		logging.Debug("Broker", "epmd kill reported: %v", err)
	}
	if err := removeSources(ctx, NameBroker); err != nil {
		return err
	}
	if err := ctx.Host.RemovePath("/etc/stackmgr/broker"); err != nil {
		return err
	}
	logging.Info("Broker", "Broker successfully removed")
	return nil
}

// ValidateDependencies enforces the clustering preconditions before any host
// mutation happens.
func (b *Broker) ValidateDependencies(ctx *Context) error {
	members := ctx.Config.GetStringMap(NameBroker + ".cluster_members")
	if len(members) > 0 && ctx.Config.GetString(NameBroker+".nodename") == "" {
		return fmt.Errorf("broker nodename must be set for clustering")
	}
	if len(members) > 1 && ctx.Config.GetString(NameBroker+".cookie") == "" {
		return fmt.Errorf("cluster members are configured but the broker cookie has not been set")
	}
	return nil
}

func (b *Broker) port(ctx *Context) int {
	return ctx.Config.GetInt(NameBroker + ".port")
}

// setNodename normalizes the node name: short-name split unless long names
// are enabled, and the broker@ prefix when missing. The normalized value is
// written back to the config so later steps and the dumped file agree.
func (b *Broker) setNodename(ctx *Context) error {
	nodename := ctx.Config.GetString(NameBroker + ".nodename")
	if nodename == "" {
		nodename = "localhost"
	}
	if !ctx.Config.GetBool(NameBroker + ".use_long_name") {
		nodename = strings.SplitN(nodename, ".", 2)[0]
	}
	ctx.Config.Set(NameBroker+".nodename", addNodenamePrefix(nodename))
	return nil
}

// addNodenamePrefix makes the control tool usable without -n.
func addNodenamePrefix(nodename string) string {
	if !strings.Contains(nodename, "@") {
		return "broker@" + nodename
	}
	return nodename
}

func (b *Broker) writeCookie(ctx *Context) error {
	cookie := ctx.Config.GetString(NameBroker + ".cookie")
	if cookie == "" {
		return nil
	}
	if err := ctx.Host.WriteFile(brokerCookiePath, []byte(strings.TrimSpace(cookie)), 0o600); err != nil {
		return err
	}
	return ctx.Host.Chown(brokerUser, brokerUser, brokerCookiePath)
}

func (b *Broker) deployConfiguration(ctx *Context) error {
	logging.Info("Broker", "Deploying broker config")
	managementHost := "0.0.0.0"
	if ctx.Config.GetBool(NameBroker + ".management_only_local") {
		managementHost = "127.0.0.1"
	}
	rendered, err := template.Render("broker.config", brokerConfigTemplate, map[string]interface{}{
		"Port":           b.port(ctx),
		"CertPath":       ctx.Config.GetString(NameBroker + ".cert_path"),
		"KeyPath":        ctx.Config.GetString(NameBroker + ".key_path"),
		"CAPath":         ctx.Config.GetString(NameBroker + ".ca_path"),
		"ManagementHost": managementHost,
	})
	if err != nil {
		return err
	}
	if err := ctx.Host.WriteFile(brokerConfigPath, []byte(rendered), 0o644); err != nil {
		return err
	}
	return ctx.Host.Chown(brokerUser, brokerUser, brokerConfigPath)
}

// initService wipes any previous node state, deploys the rendered config,
// and restarts the unit until the secure port answers.
func (b *Broker) initService(ctx *Context) error {
	logging.Info("Broker", "Initializing broker...")
	if !ctx.Config.HasService(config.ManagerService) {
		// An external broker node must expose its management API beyond
		// localhost.
		ctx.Config.Set(NameBroker+".management_only_local", false)
	}
	if err := ctx.Host.RemovePath("/var/lib/rabkeeper/mnesia"); err != nil {
		return err
	}
	if err := b.deployConfiguration(ctx); err != nil {
		return err
	}
	if err := ctx.Host.DaemonReload(); err != nil {
		return err
	}
	if err := ctx.Host.EnableService(BrokerUnit); err != nil {
		return err
	}
	if err := ctx.Host.RestartService(BrokerUnit); err != nil {
		return err
	}
	return waitForPort("127.0.0.1", b.port(ctx), 10, 3*time.Second)
}

// brokerctl runs the broker control tool against the configured node.
func (b *Broker) brokerctl(ctx *Context, args ...string) (string, error) {
	base := []string{"-n", ctx.Config.GetString(NameBroker + ".nodename")}
	if ctx.Config.GetBool(NameBroker + ".use_long_name") {
		base = append(base, "--longnames")
	}
	result, err := ctx.Host.Sudo(brokerCtl, append(base, args...)...)
	return result.Stdout, err
}

func (b *Broker) userExists(ctx *Context, username string) (bool, error) {
	out, err := b.brokerctl(ctx, "list_users")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, username), nil
}

func (b *Broker) deleteGuestUser(ctx *Context) error {
	exists, err := b.userExists(ctx, "guest")
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	logging.Info("Broker", "Disabling broker guest user...")
	if _, err := b.brokerctl(ctx, "clear_permissions", "guest"); err != nil {
		return err
	}
	_, err = b.brokerctl(ctx, "delete_user", "guest")
	return err
}

func (b *Broker) createUser(ctx *Context) error {
	username := ctx.Config.GetString(NameBroker + ".username")
	password := ctx.Config.GetString(NameBroker + ".password")
	exists, err := b.userExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	logging.Info("Broker", "Creating broker user and setting permissions...")
	if _, err := b.brokerctl(ctx, "add_user", username, password); err != nil {
		return err
	}
	if _, err := b.brokerctl(ctx, "set_permissions", username, ".*", ".*", ".*"); err != nil {
		return err
	}
	_, err = b.brokerctl(ctx, "set_user_tags", username, "administrator")
	return err
}

func (b *Broker) setPolicies(ctx *Context) error {
	policies, ok := ctx.Config.Get(NameBroker + ".policies")
	if !ok {
		return nil
	}
	items, ok := policies.([]interface{})
	if !ok {
		return nil
	}
	logging.Info("Broker", "Setting broker policies...")
	for _, item := range items {
		policy, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		definition, err := json.Marshal(policy["policy"])
		if err != nil {
			return fmt.Errorf("encoding policy definition: %w", err)
		}
		name, _ := policy["name"].(string)
		expression, _ := policy["expression"].(string)
		priority := 1
		if p, ok := policy["priority"].(int); ok {
			priority = p
		}
		if _, err := b.brokerctl(ctx, "set_policy", name, expression,
			string(definition), "--apply-to", "queues",
			"--priority", strconv.Itoa(priority)); err != nil {
			return err
		}
	}
	logging.Info("Broker", "Broker policies configured")
	return nil
}

// verifyRunning checks the unit is alive, the control tool answers, and the
// secure port is open.
func (b *Broker) verifyRunning(ctx *Context) error {
	logging.Info("Broker", "Making sure the broker is live...")
	if err := ctx.Host.VerifyServiceAlive(BrokerUnit); err != nil {
		return err
	}
	if _, err := b.brokerctl(ctx, "status"); err != nil {
		return fmt.Errorf("broker failed to start: %w", err)
	}
	if !isPortOpen("127.0.0.1", b.port(ctx)) {
		return fmt.Errorf("broker port 127.0.0.1:%d was not open", b.port(ctx))
	}
	return nil
}

// joinCluster joins an existing broker cluster and polls until both this
// node and the target appear in the cluster status, within a fixed budget.
func (b *Broker) joinCluster(ctx *Context) error {
	target := ctx.Config.GetString(NameBroker + ".join_cluster")
	if target == "" {
		return nil
	}
	target = addNodenamePrefix(target)

	logging.Info("Broker", "Joining cluster via node %s", target)
	for _, step := range [][]string{
		{"stop_app"},
		{"reset"},
		{"join_cluster", target},
		{"start_app"},
	} {
		if _, err := b.brokerctl(ctx, step...); err != nil {
			return err
		}
	}

	nodename := ctx.Config.GetString(NameBroker + ".nodename")
	var lastStatus string
	for attempt := 1; attempt <= clusterJoinAttempts; attempt++ {
		logging.Info("Broker", "Checking cluster is joined [%d/%d]...", attempt, clusterJoinAttempts)
		out, err := b.brokerctl(ctx, "cluster_status")
		if err != nil {
			return err
		}
		lastStatus = out
		if strings.Contains(out, target) && strings.Contains(out, nodename) {
			logging.Info("Broker", "Cluster successfully joined")
			return nil
		}
		if attempt < clusterJoinAttempts {
			time.Sleep(clusterJoinDelay)
		}
	}
	return &ClusteringError{
		Target:     target,
		Attempts:   clusterJoinAttempts,
		LastStatus: lastStatus,
	}
}
