package cmd

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rriplab/datarecording"
)

var reportCmd = &cobra.Command{
	Use:   "report [database]",
	Short: "Print the runs recorded in a result database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reportRuns(args[0])
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func reportRuns(dbFilename string) {
	reader, err := datarecording.NewReader(dbFilename)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	runs, err := reader.Runs()
	if err != nil {
		log.Fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w,
		"RUN\tPOLICY\tWORKLOAD\tACCESSES\tHITS\tMISSES\tBYPASSES\tHITRATE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.4f\n",
			run.RunID, run.Policy, run.Workload,
			run.Accesses, run.Hits, run.Misses, run.Bypasses, run.HitRate)
	}

	w.Flush()
}
