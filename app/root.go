// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "incidenta",
	Short: "Incidenta is a web-based incident and asset management platform",
	Long: `Incidenta is a web-based incident and asset management platform
that provides ticket tracking, endpoint inventory and attachment handling
behind a capability-based authorization engine with staged login security.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
