package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackmgr/internal/orchestrator"
)

var removeFlags runFlags

// removeCmd uninstalls everything this tool put on the machine.
var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the platform services from this machine",
	Long: `Stop and uninstall every managed service in reverse installation
order, including packages and deployed configuration. Data is lost;
pass --force to confirm.`,
	Args: cobra.NoArgs,
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	if !removeFlags.force {
		return orchestrator.NewBootstrapError("removal deletes service data; re-run with --force to proceed")
	}
	r, err := prepare(&removeFlags, false, false)
	if err != nil {
		return err
	}
	if err := withSpinner("Removing components...", r.orch.Remove); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Services removed")
	return nil
}

func init() {
	addConfigFlag(removeCmd, &removeFlags)
	addForceFlag(removeCmd, &removeFlags)
	rootCmd.AddCommand(removeCmd)
}
