package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rriplab/repl"
	"github.com/sarchlab/rriplab/trace"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the registered policy presets and workloads.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Policies:")
		for _, name := range repl.PresetNames() {
			fmt.Printf("  %s\n", name)
		}

		fmt.Println("Workloads:")
		for _, name := range trace.WorkloadNames() {
			fmt.Printf("  %s\n", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}
