package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/kakunin/internal/aggregate"
	"github.com/raysh454/kakunin/internal/history"
	"github.com/raysh454/kakunin/internal/interfaces"
	"github.com/raysh454/kakunin/internal/model"
)

func runHistory(cmd *cobra.Command, args []string) {
	v := newVerifier()
	defer v.Close()

	hcfg := history.DefaultConfig()
	if historyLimit > 0 {
		hcfg.Limit = historyLimit
	} else if cfg.History.PageSize > 0 {
		hcfg.Limit = cfg.History.PageSize
	}

	pager := history.NewPager(hcfg, v, cliLogger())
	cursor := history.NewCursor(pager, historyFilters())
	cursor.Seek(historyPage)

	page, err := cursor.Load(context.Background())
	if err != nil {
		fatalServiceError("History", err)
	}

	if jsonOut {
		printJSON(page)
		return
	}
	renderHistoryPage(page)
}

// historyFilters builds the query from the flag set. Zero-valued flags stay
// out of the filter.
func historyFilters() model.HistoryFilters {
	team := historyTeam
	if team == "" {
		team = cfg.Defaults.TeamID
	}
	filters := model.HistoryFilters{
		Status:      historyStatus,
		Continent:   historyContinent,
		URLContains: historyURL,
		TeamID:      team,
	}
	if historyFrom != "" {
		ts, err := time.Parse(time.RFC3339, historyFrom)
		if err != nil {
			log.Fatalf("Invalid --from timestamp (want RFC3339, e.g. 2026-08-23T00:00:00Z): %v", err)
		}
		filters.From = ts
	}
	if historyTo != "" {
		ts, err := time.Parse(time.RFC3339, historyTo)
		if err != nil {
			log.Fatalf("Invalid --to timestamp (want RFC3339, e.g. 2026-08-23T00:00:00Z): %v", err)
		}
		filters.To = ts
	}
	return filters
}

func runScans(cmd *cobra.Command, args []string) {
	v := newVerifier()
	defer v.Close()

	resp, err := v.ListScans(context.Background(), scansLimit, scansOffset)
	if err != nil {
		fatalServiceError("Scan listing", err)
	}

	if jsonOut {
		printJSON(resp)
		return
	}

	renderScanRows(resp.Scans)
	if resp.Total != nil {
		fmt.Printf("%d of %d scans (offset %d)\n", len(resp.Scans), *resp.Total, scansOffset)
	} else {
		fmt.Printf("%d scans (offset %d)\n", len(resp.Scans), scansOffset)
	}
}

func runCompare(cmd *cobra.Command, args []string) {
	v := newVerifier()
	defer v.Close()

	ctx := context.Background()
	base := fetchFinishedJob(ctx, v, args[0])
	head := fetchFinishedJob(ctx, v, args[1])

	if base.URL != head.URL {
		fmt.Fprintf(os.Stderr, "warning: comparing different targets (%s vs %s)\n",
			base.URL, head.URL)
	}

	diff := aggregate.DiffSummaries(aggregate.Aggregate(base), aggregate.Aggregate(head))
	if jsonOut {
		printJSON(diff)
		return
	}
	renderDiff(diff)
}

func fetchFinishedJob(ctx context.Context, v interfaces.Verifier, jobID string) *model.Job {
	snap, err := v.GetJobDetails(ctx, jobID)
	if err != nil {
		fatalServiceError("Comparison", err)
	}
	if snap == nil {
		log.Fatalf("Job %s has no results yet; wait for it to finish", jobID)
	}
	job := jobFromSnapshot(snap)
	if !job.Terminal() {
		log.Fatalf("Job %s is still %s; compare finished jobs", jobID, job.Status)
	}
	return job
}
