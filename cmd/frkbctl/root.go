// Package frkbctl is a thin operator CLI over the selection store layer:
// feature-store status lookups, bulk label assignment, and manual path-index
// GC. It is not a host integration surface — callers embed internal/api
// directly for that.
package frkbctl

import (
	"github.com/spf13/cobra"
)

// RootCommand builds the frkbctl root command and its subcommands.
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "frkbctl",
		Short: "Operator CLI for the frkb selection store",
	}

	rootCmd.AddCommand(
		featureStatusCommand(),
		setLabelsCommand(),
		gcPathIndexCommand(),
	)

	return rootCmd
}
