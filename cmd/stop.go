package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackmgr/internal/orchestrator"
)

var stopFlags runFlags

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the platform services",
	Long: `Stop every managed service on this machine in installation order.
Running executions are interrupted; pass --force to confirm.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	if !stopFlags.force {
		return orchestrator.NewBootstrapError("stopping interrupts running work; re-run with --force to proceed")
	}
	r, err := prepare(&stopFlags, false, false)
	if err != nil {
		return err
	}
	if err := withSpinner("Stopping components...", r.orch.Stop); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Services stopped")
	return nil
}

func init() {
	addConfigFlag(stopCmd, &stopFlags)
	addForceFlag(stopCmd, &stopFlags)
	rootCmd.AddCommand(stopCmd)
}
