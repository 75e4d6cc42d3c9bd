// Package cmd defines the command-line interface for the catalog service.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch-catalog",
		Short: "Catalog ingestion and query service for Nintendo Switch game listings.",
		Long: `switch-catalog crawls a game-listing site, extracts structured game
records from its HTML pages, and serves the resulting catalog over a
JSON API. Run a one-off synchronization with "sync" or start the API
server with "serve".`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (defaults and CATALOG_* environment variables are used when omitted)")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
