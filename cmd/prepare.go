package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"stackmgr/internal/components"
	"stackmgr/internal/config"
	"stackmgr/internal/hostops"
	"stackmgr/internal/orchestrator"
	"stackmgr/internal/validation"
	"stackmgr/pkg/logging"
)

// runFlags carries the flag values shared across the lifecycle commands.
// Each command registers only the flags it supports.
type runFlags struct {
	configPath       string
	privateIP        string
	publicIP         string
	adminPassword    string
	joinCluster      string
	databaseIP       string
	postgresPassword string
	cleanDB          bool
	onlyInstall      bool
	skipValidations  bool
	force            bool

	// generatedPassword is set when no admin password was supplied and one
	// had to be generated, so the command can print it once at the end.
	generatedPassword string
}

func addConfigFlag(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", config.DefaultUserConfigPath,
		"Path to the user configuration file")
}

func addInstallFlags(cmd *cobra.Command, flags *runFlags) {
	addConfigFlag(cmd, flags)
	cmd.Flags().StringVar(&flags.privateIP, "private-ip", "", "The private IP of this machine")
	cmd.Flags().StringVar(&flags.publicIP, "public-ip", "", "The public IP or hostname of this machine")
	cmd.Flags().StringVarP(&flags.adminPassword, "admin-password", "a", "", "The password of the admin user")
	cmd.Flags().StringVar(&flags.joinCluster, "join-cluster", "", "Node name of an existing broker cluster member to join")
	cmd.Flags().StringVar(&flags.databaseIP, "database-ip", "", "Address of an external database to use")
	cmd.Flags().StringVar(&flags.postgresPassword, "postgres-password", "", "Superuser password of the external database")
	cmd.Flags().BoolVar(&flags.cleanDB, "clean-db", false, "Drop and recreate the database schema")
	cmd.Flags().BoolVar(&flags.skipValidations, "skip-validations", false, "Skip pre-flight validations")
}

func addForceFlag(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Proceed without confirmation")
}

// run bundles everything a lifecycle command operates on.
type run struct {
	flags  *runFlags
	store  *config.Store
	ctx    *components.Context
	comps  []components.Component
	orch   *orchestrator.Orchestrator
	engine *validation.Engine
}

// prepare loads and merges the configuration, applies the command-line
// overrides, resolves the component sequence, and wires the orchestrator and
// the validation engine. writeRequired marks commands that dump the config
// back at the end; provisioning marks the commands that install or configure
// the host, which are the only ones allowed to force a clean schema or mint
// credentials.
func prepare(flags *runFlags, writeRequired, provisioning bool) (*run, error) {
	store := config.NewStore(flags.configPath)
	if err := store.CheckAccess(writeRequired); err != nil {
		return nil, err
	}
	if err := store.Load(); err != nil {
		return nil, err
	}
	markers := orchestrator.NewMarkers()
	if err := applyFlags(store, flags, markers.Configured(), provisioning); err != nil {
		return nil, err
	}

	comps, err := components.Build(store)
	if err != nil {
		return nil, err
	}
	ctx := &components.Context{
		Config:      store,
		Host:        hostops.NewLocal(),
		CleanDB:     store.GetBool(config.KeyCleanDB),
		OnlyInstall: flags.onlyInstall,
	}
	engine := validation.New(ctx, comps)
	engine.Skip = flags.skipValidations

	orch := orchestrator.New(ctx, comps)
	orch.Markers = markers

	return &run{
		flags:  flags,
		store:  store,
		ctx:    ctx,
		comps:  comps,
		orch:   orch,
		engine: engine,
	}, nil
}

// applyFlags writes the command-line overrides into the config store, checks
// the flag combination rules, and fills in derived values. configured says
// whether this host already completed a configure; provisioning says whether
// this command installs or configures the host.
func applyFlags(store *config.Store, flags *runFlags, configured, provisioning bool) error {
	if flags.onlyInstall && flags.cleanDB {
		return orchestrator.NewBootstrapError("--clean-db has no effect with --only-install; configuration does not run")
	}
	// The first configure always starts from a clean schema.
	if provisioning && !configured {
		flags.cleanDB = true
	}
	if flags.adminPassword != "" && !flags.cleanDB {
		return orchestrator.NewBootstrapError("changing the admin password requires --clean-db on a configured host")
	}
	if (flags.databaseIP == "") != (flags.postgresPassword == "") {
		return orchestrator.NewBootstrapError("--database-ip and --postgres-password must be given together")
	}
	if (flags.databaseIP != "" || flags.joinCluster != "") && flags.adminPassword == "" {
		return orchestrator.NewBootstrapError("--database-ip and --join-cluster require --admin-password")
	}

	if flags.privateIP != "" {
		store.Set(config.SectionManager+"."+config.KeyPrivateIP, flags.privateIP)
	}
	if flags.publicIP != "" {
		store.Set(config.SectionManager+"."+config.KeyPublicIP, flags.publicIP)
	}
	// A public IP defaults to the private one on single-interface machines.
	if store.GetString(config.SectionManager+"."+config.KeyPublicIP) == "" {
		store.Set(config.SectionManager+"."+config.KeyPublicIP,
			store.GetString(config.SectionManager+"."+config.KeyPrivateIP))
	}
	if flags.adminPassword != "" {
		store.Set(config.SectionManager+"."+config.KeySecurity+"."+config.KeyAdminPassword, flags.adminPassword)
	}
	if flags.databaseIP != "" {
		// An external database means this node runs everything but the
		// database service, talking to the remote one over SSL.
		store.Set(config.KeyServicesToInstall, []interface{}{
			config.QueueService,
			config.ManagerService,
		})
		store.Set(config.SectionDatabaseClient+".host", flags.databaseIP)
		store.Set(config.SectionDatabaseClient+"."+config.KeyPostgresPassword, flags.postgresPassword)
		store.Set(config.SectionDatabaseClient+".password", flags.postgresPassword)
		store.Set(config.SectionDatabaseClient+"."+config.KeySSLEnabled, true)
	}
	if flags.joinCluster != "" {
		store.Set(config.SectionBroker+".join_cluster", flags.joinCluster)
	}
	if flags.cleanDB {
		store.Set(config.KeyCleanDB, true)
	}
	if flags.onlyInstall {
		store.Set(config.KeyUnconfiguredInstall, true)
	}

	passwordKey := config.SectionManager + "." + config.KeySecurity + "." + config.KeyAdminPassword
	if provisioning && flags.cleanDB && store.HasService(config.ManagerService) && store.GetString(passwordKey) == "" {
		flags.generatedPassword = uuid.NewString()
		store.Set(passwordKey, flags.generatedPassword)
		logging.Info("Prepare", "Generated a random admin password")
	}
	return nil
}

// finish persists the config and prints the generated credentials, if any.
// clean_db is a per-invocation request and never persists.
func (r *run) finish(cmd *cobra.Command) error {
	r.store.Set(config.KeyCleanDB, false)
	if err := r.store.Dump(); err != nil {
		return err
	}
	if r.flags.generatedPassword != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Admin password: %s\n", r.flags.generatedPassword)
	}
	return nil
}

// withSpinner runs fn behind a terminal spinner. Non-terminal output and
// verbose runs get plain log lines only.
func withSpinner(message string, fn func() error) error {
	if verbose {
		return fn()
	}
	if fi, err := os.Stdout.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()
	return fn()
}
