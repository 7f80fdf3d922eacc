package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"stackmgr/internal/components"
	"stackmgr/internal/config"
	"stackmgr/internal/orchestrator"
	"stackmgr/internal/validation"
	"stackmgr/pkg/logging"
)

// Exit codes for CLI commands. Scripts driving the installer key off these.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeConfigError indicates bad or inaccessible configuration.
	ExitCodeConfigError = 2
	// ExitCodeValidationFailed indicates pre-flight validation failures.
	ExitCodeValidationFailed = 3
	// ExitCodeBootstrap indicates lifecycle commands were run out of order.
	ExitCodeBootstrap = 4
	// ExitCodeClustering indicates a cluster join did not converge.
	ExitCodeClustering = 5
)

// rootCmd represents the base command for the stackmgr application.
var rootCmd = &cobra.Command{
	Use:   "stackmgr",
	Short: "Install and manage the platform stack on this host",
	Long: `stackmgr installs, configures, and manages the lifecycle of the
platform services on this machine: the database, the message broker,
the REST API, and the web UI. Which services run here is controlled by
the services_to_install list in the configuration file.`,
	SilenceUsage: true,
}

var verbose bool

// SetVersion sets the version for the root command. Called from the main
// package to inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "stackmgr version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		logging.Error("CLI", err, "Command failed")
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types to semantic exit codes.
func getExitCode(err error) int {
	var confErr *config.ConfigurationError
	if errors.As(err, &confErr) {
		return ExitCodeConfigError
	}
	var accessErr *config.ConfigAccessError
	if errors.As(err, &accessErr) {
		return ExitCodeConfigError
	}
	var valErr *validation.ValidationError
	if errors.As(err, &valErr) {
		return ExitCodeValidationFailed
	}
	var bootErr *orchestrator.BootstrapError
	if errors.As(err, &bootErr) {
		return ExitCodeBootstrap
	}
	var clusterErr *components.ClusteringError
	if errors.As(err, &clusterErr) {
		return ExitCodeClustering
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cobra.OnInitialize(func() {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	})

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
