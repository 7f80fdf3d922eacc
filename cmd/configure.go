package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackmgr/internal/config"
)

var configureFlags runFlags

// configureCmd configures previously installed services.
var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure the installed platform services",
	Long: `Apply the configuration file to services that were installed with
the --only-install flag, or re-apply it after editing the file.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	r, err := prepare(&configureFlags, true, true)
	if err != nil {
		return err
	}
	// A first-time configure always starts from a clean schema.
	if r.store.GetBool(config.KeyUnconfiguredInstall) && !r.orch.Markers.Configured() {
		r.ctx.CleanDB = true
	}
	if err := r.engine.Validate(); err != nil {
		return err
	}
	if err := withSpinner("Configuring components...", r.orch.Configure); err != nil {
		return err
	}
	r.store.Set(config.KeyUnconfiguredInstall, false)
	if err := r.finish(cmd); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration complete")
	return nil
}

func init() {
	addInstallFlags(configureCmd, &configureFlags)
	rootCmd.AddCommand(configureCmd)
}
