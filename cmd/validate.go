package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateFlags runFlags

// validateCmd runs the pre-flight checks without touching the host.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and this machine without changing anything",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	r, err := prepare(&validateFlags, false, false)
	if err != nil {
		return err
	}
	if err := r.engine.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All validations passed")
	return nil
}

func init() {
	addConfigFlag(validateCmd, &validateFlags)
	validateCmd.Flags().BoolVar(&validateFlags.onlyInstall, "only-install", false,
		"Validate for an install-only run")
	rootCmd.AddCommand(validateCmd)
}
