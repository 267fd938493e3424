package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the OZ Listings operator CLI. Subcommands
// (admin, migrate, sessions) are attached here.
var rootCmd = &cobra.Command{
	Use:           "ozlistings",
	Short:         "OZ Listings operator CLI",
	Long:          "Operator utilities for the OZ Listings API (schema migration, admin users, access grants, session cleanup).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
