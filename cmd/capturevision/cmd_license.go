package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"capturevision/internal/license"
)

var licenseCmd = &cobra.Command{
	Use:   "license [key]",
	Short: "Validate a license key and print its status code",
	Long: `Initializes the license gate with the given key (or the configured one)
and prints the status code. 0 means the key was accepted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLicense,
}

func runLicense(cmd *cobra.Command, args []string) error {
	key := cfg.License
	if len(args) > 0 {
		key = args[0]
	}
	status := license.Default().Initialize(key)
	fmt.Fprintf(cmd.OutOrStdout(), "status: %d\n", status)
	if status != license.StatusOK {
		return fmt.Errorf("license rejected (status %d)", status)
	}
	return nil
}
