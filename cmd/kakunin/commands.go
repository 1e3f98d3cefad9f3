package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/raysh454/kakunin/internal/config"
	"github.com/raysh454/kakunin/internal/model"
)

// --- Global Command Variables ---
var (
	cfg     *config.FileConfig
	cfgPath string
	jsonOut bool
	verbose bool

	continentFlag string
	devMode       bool
	noWait        bool
	pollMs        int
	waitTimeout   int // seconds to follow a job before giving up

	followFlag bool

	historyPage      int
	historyLimit     int
	historyStatus    string
	historyContinent string
	historyURL       string
	historyTeam      string
	historyFrom      string // RFC3339 lower bound
	historyTo        string // RFC3339 upper bound

	scansLimit  int
	scansOffset int

	rootCmd = &cobra.Command{
		Use:   "kakunin",
		Short: "A cli to verify websites from six regions at once",
		Long: `Kakunin submits URLs to the verification service, follows each
				region's probe to completion and keeps a scan history you can
				filter and page through.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				log.Fatalf("Error loading config: %v", err)
			}
			cfg = loaded
		},
	}

	// --- Verification ---
	verifyCmd = &cobra.Command{
		Use:   "verify [url]",
		Short: "Submit a URL for verification and follow it to completion",
		Args:  cobra.ExactArgs(1),
		Run:   runVerify, // Defined in cmd_verify.go
	}

	batchCmd = &cobra.Command{
		Use:   "batch [url...]",
		Short: "Submit up to 10 URLs, each as its own global job",
		Args:  cobra.RangeArgs(1, model.MaxBatchURLs),
		Run:   runBatch, // Defined in cmd_verify.go
	}

	checkCmd = &cobra.Command{
		Use:   "check [job-id]",
		Short: "Fetch a job's current state, optionally following it",
		Args:  cobra.ExactArgs(1),
		Run:   runCheck, // Defined in cmd_check.go
	}

	// --- Service ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show service health, probe regions and remaining quota",
		Run:   runStatus, // Defined in cmd_status.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Page through past verifications with filters",
		Run:   runHistory, // Defined in cmd_history.go
	}

	scansCmd = &cobra.Command{
		Use:   "scans",
		Short: "List history through the legacy offset window",
		Run:   runScans, // Defined in cmd_history.go
	}

	compareCmd = &cobra.Command{
		Use:   "compare [base-job-id] [head-job-id]",
		Short: "Compare two finished verifications of the same target",
		Args:  cobra.ExactArgs(2),
		Run:   runCompare, // Defined in cmd_history.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Path to the config file (default ~/.kakunin/kakunin.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false,
		"Print machine-readable JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log client internals to stdout")

	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&continentFlag, "continent", "c", "",
		"Probe from a single region (NA, EU, AS, AF, OC, SA); implies --dev")
	verifyCmd.Flags().BoolVar(&devMode, "dev", false,
		"Dev mode: probe from one region instead of all six (requires --continent)")
	verifyCmd.Flags().BoolVar(&noWait, "no-wait", false,
		"Submit and exit without following the job")
	verifyCmd.Flags().IntVar(&pollMs, "poll", 1500,
		"Milliseconds between status polls while following")
	verifyCmd.Flags().IntVar(&waitTimeout, "timeout", 300,
		"Seconds to follow the job before giving up")

	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().BoolVar(&noWait, "no-wait", false,
		"Submit and exit without following the jobs")
	batchCmd.Flags().IntVar(&pollMs, "poll", 1500,
		"Milliseconds between status polls while following")
	batchCmd.Flags().IntVar(&waitTimeout, "timeout", 300,
		"Seconds to follow each job before giving up")

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVarP(&followFlag, "wait", "w", false,
		"Keep polling until the job reaches a terminal state")
	checkCmd.Flags().IntVar(&pollMs, "poll", 1500,
		"Milliseconds between status polls while following")
	checkCmd.Flags().IntVar(&waitTimeout, "timeout", 300,
		"Seconds to follow the job before giving up")

	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyPage, "page", "p", 1, "Page number, starting at 1")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0,
		"Page size (0 uses the configured default; the server may clamp it)")
	historyCmd.Flags().StringVar(&historyStatus, "status", "",
		"Filter by job status (processing, completed, failed)")
	historyCmd.Flags().StringVar(&historyContinent, "continent", "",
		"Filter by probe region (NA, EU, AS, AF, OC, SA)")
	historyCmd.Flags().StringVar(&historyURL, "url", "", "Filter by URL substring")
	historyCmd.Flags().StringVar(&historyTeam, "team", "", "Filter by team id")
	historyCmd.Flags().StringVar(&historyFrom, "from", "",
		"Only scans created at or after this RFC3339 timestamp")
	historyCmd.Flags().StringVar(&historyTo, "to", "",
		"Only scans created at or before this RFC3339 timestamp")

	rootCmd.AddCommand(scansCmd)
	scansCmd.Flags().IntVar(&scansLimit, "limit", 20, "Window size")
	scansCmd.Flags().IntVar(&scansOffset, "offset", 0, "Rows to skip")

	rootCmd.AddCommand(compareCmd)
}
