package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/rriplab/datarecording"
	"github.com/sarchlab/rriplab/monitoring"
	"github.com/sarchlab/rriplab/repl"
	"github.com/sarchlab/rriplab/trace"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one replacement-policy simulation.",
	Long: "`run --policy ddsh --workload mixed` drives the selected policy " +
		"with a synthetic workload and prints the final statistics.",
	Run: func(cmd *cobra.Command, args []string) {
		runSimulation(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("policy", "srrip",
		"policy preset to run (see `rriplab policies`)")
	runCmd.Flags().String("workload", "mixed",
		"synthetic workload: loop, stream, random, or mixed")
	runCmd.Flags().Int("sets", 2048, "number of cache sets")
	runCmd.Flags().Int("ways", 16, "cache associativity")
	runCmd.Flags().Int("accesses", 1000000, "number of accesses to replay")
	runCmd.Flags().Int64("seed", 1, "seed for workload and policy randomness")
	runCmd.Flags().Int("heartbeat", 100000,
		"accesses between heartbeat reports, 0 to disable")
	runCmd.Flags().String("record", "",
		"record results to the named SQLite database")
	runCmd.Flags().Int("monitor", 0,
		"serve live statistics on this port, 0 to disable")
	runCmd.Flags().Bool("open-dashboard", false,
		"open the monitoring dashboard in a browser")
}

func runSimulation(cmd *cobra.Command) {
	// Optional .env file can provide RRIPLAB_RECORD_PATH.
	_ = godotenv.Load()

	policy, _ := cmd.Flags().GetString("policy")
	workloadName, _ := cmd.Flags().GetString("workload")
	numSets, _ := cmd.Flags().GetInt("sets")
	numWays, _ := cmd.Flags().GetInt("ways")
	numAccesses, _ := cmd.Flags().GetInt("accesses")
	seed, _ := cmd.Flags().GetInt64("seed")
	heartbeat, _ := cmd.Flags().GetInt("heartbeat")

	builder, err := repl.BuilderForPreset(policy)
	if err != nil {
		log.Fatal(err)
	}

	engine := builder.
		WithGeometry(numSets, numWays).
		WithRandSeed(seed).
		Build("LLC")

	workload, ok := trace.WorkloadByName(workloadName, seed, numAccesses)
	if !ok {
		log.Fatalf("unknown workload %q", workloadName)
	}

	startMonitor(cmd, engine)

	runID := xid.New().String()
	recorder := makeRecorder(cmd)

	replayer := trace.NewReplayer(engine)
	playWithHeartbeat(replayer, workload, heartbeat, runID, recorder)

	reportRun(engine, recorder, runID, policy, workloadName, seed)
	atexit.Exit(0)
}

func startMonitor(cmd *cobra.Command, engine *repl.Engine) {
	port, _ := cmd.Flags().GetInt("monitor")
	if port == 0 {
		return
	}

	monitor := monitoring.NewMonitor().WithPortNumber(port)
	monitor.RegisterEngine(engine)
	monitor.StartServer()

	if open, _ := cmd.Flags().GetBool("open-dashboard"); open {
		monitor.OpenDashboard()
	}
}

func makeRecorder(cmd *cobra.Command) *datarecording.SQLiteRecorder {
	path, _ := cmd.Flags().GetString("record")
	if path == "" {
		path = os.Getenv("RRIPLAB_RECORD_PATH")
	}
	if path == "" {
		return nil
	}

	recorder := datarecording.NewRecorder(path)
	recorder.CreateTable(datarecording.RunsTable, datarecording.RunRecord{})
	recorder.CreateTable(
		datarecording.IntervalsTable, datarecording.IntervalRecord{})

	return recorder
}

func playWithHeartbeat(
	replayer *trace.Replayer,
	workload []trace.Access,
	heartbeat int,
	runID string,
	recorder *datarecording.SQLiteRecorder,
) {
	if heartbeat <= 0 {
		replayer.PlayAll(workload)
		return
	}

	engine := replayer.Engine()
	interval := 0

	for start := 0; start < len(workload); start += heartbeat {
		end := start + heartbeat
		if end > len(workload) {
			end = len(workload)
		}

		replayer.PlayAll(workload[start:end])
		interval++

		engine.ReportPeriodic(os.Stderr)

		if recorder != nil {
			stats := engine.Report()
			recorder.Insert(
				datarecording.IntervalsTable,
				datarecording.IntervalRecord{
					RunID:      runID,
					Interval:   interval,
					Accesses:   stats.Accesses,
					Hits:       stats.Hits,
					Misses:     stats.Misses,
					Evictions:  stats.Evictions,
					Bypasses:   stats.Bypasses,
					Loads:      stats.AccessesByType[repl.Load],
					RFOs:       stats.AccessesByType[repl.RFO],
					Prefetches: stats.AccessesByType[repl.Prefetch],
					Writebacks: stats.AccessesByType[repl.Writeback],
				})
		}
	}
}

func reportRun(
	engine *repl.Engine,
	recorder *datarecording.SQLiteRecorder,
	runID, policy, workloadName string,
	seed int64,
) {
	stats := engine.Report()
	fmt.Println(stats.String())

	if recorder == nil {
		return
	}

	numSets, numWays := engine.Geometry()
	recorder.Insert(datarecording.RunsTable, datarecording.RunRecord{
		RunID:      runID,
		Policy:     policy,
		Workload:   workloadName,
		Seed:       seed,
		NumSets:    numSets,
		NumWays:    numWays,
		Accesses:   stats.Accesses,
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Evictions:  stats.Evictions,
		Bypasses:   stats.Bypasses,
		Loads:      stats.AccessesByType[repl.Load],
		RFOs:       stats.AccessesByType[repl.RFO],
		Prefetches: stats.AccessesByType[repl.Prefetch],
		Writebacks: stats.AccessesByType[repl.Writeback],
		HitRate:    stats.HitRate(),
	})
	recorder.Flush()
}
