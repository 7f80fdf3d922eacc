package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackmgr/internal/orchestrator"
)

var restartFlags runFlags

// restartCmd stops and starts the services.
var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the platform services",
	Args:  cobra.NoArgs,
	RunE:  runRestart,
}

func runRestart(cmd *cobra.Command, args []string) error {
	if !restartFlags.force {
		return orchestrator.NewBootstrapError("restarting interrupts running work; re-run with --force to proceed")
	}
	r, err := prepare(&restartFlags, false, false)
	if err != nil {
		return err
	}
	if err := withSpinner("Restarting components...", r.orch.Restart); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Services restarted")
	return nil
}

func init() {
	addConfigFlag(restartCmd, &restartFlags)
	addForceFlag(restartCmd, &restartFlags)
	rootCmd.AddCommand(restartCmd)
}
