package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startFlags runFlags

// startCmd starts the configured services.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the platform services",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	r, err := prepare(&startFlags, false, false)
	if err != nil {
		return err
	}
	if err := withSpinner("Starting components...", r.orch.Start); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Services started")
	return nil
}

func init() {
	addConfigFlag(startCmd, &startFlags)
	rootCmd.AddCommand(startCmd)
}
