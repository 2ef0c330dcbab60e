// Package cmd provides the command-line interface for rriplab.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "rriplab",
	Short: "rriplab runs LLC replacement-policy simulations and reports " +
		"their results.",
	Long: `rriplab drives a configurable last-level-cache replacement ` +
		`engine with synthetic workloads. Policies are selected by preset ` +
		`and tuned with flags; results can be recorded to SQLite and ` +
		`inspected live over HTTP.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
