package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installFlags runFlags

// installCmd installs the configured services and, unless --only-install was
// given, configures and starts them.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the platform services on this machine",
	Long: `Install the services listed under services_to_install in the
configuration file. By default this also configures and starts them;
pass --only-install to stop after the packages are laid down, for
example when baking images.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	r, err := prepare(&installFlags, true, true)
	if err != nil {
		return err
	}
	if err := r.engine.Validate(); err != nil {
		return err
	}
	if err := withSpinner("Installing components...", r.orch.Install); err != nil {
		return err
	}
	if !installFlags.onlyInstall {
		if err := withSpinner("Configuring components...", r.orch.Configure); err != nil {
			return err
		}
	}
	if err := r.finish(cmd); err != nil {
		return err
	}
	if installFlags.onlyInstall {
		fmt.Fprintln(cmd.OutOrStdout(), "Installation finished; run the configure command to complete the setup")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Installation complete")
	}
	return nil
}

func init() {
	addInstallFlags(installCmd, &installFlags)
	installCmd.Flags().BoolVar(&installFlags.onlyInstall, "only-install", false,
		"Install the packages without configuring or starting them")
	rootCmd.AddCommand(installCmd)
}
