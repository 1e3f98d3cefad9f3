package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/raysh454/kakunin/internal/aggregate"
	"github.com/raysh454/kakunin/internal/model"
)

func runCheck(cmd *cobra.Command, args []string) {
	jobID := args[0]

	v := newVerifier()
	defer v.Close()

	ctx := context.Background()
	snap, err := v.GetJobDetails(ctx, jobID)
	if err != nil {
		fatalServiceError("Job lookup", err)
	}
	if snap == nil {
		// Details have not materialized yet; the base endpoint still knows
		// the lifecycle.
		snap, err = v.GetJob(ctx, jobID)
		if err != nil {
			fatalServiceError("Job lookup", err)
		}
	}
	if snap == nil {
		log.Fatalf("Job %s returned no state", jobID)
	}

	job := jobFromSnapshot(snap)

	if jsonOut && !followFlag {
		printJSON(snap)
		return
	}

	if job.Terminal() {
		renderResult(job, aggregate.Aggregate(job))
		return
	}

	renderSnapshotTable(job)
	if followFlag {
		fmt.Println()
		followJob(v, job)
	}
}

// jobFromSnapshot rebuilds a trackable job from a service snapshot, for
// jobs this process did not submit. The requested region set is read off
// the snapshot's results.
func jobFromSnapshot(snap *model.JobSnapshot) *model.Job {
	regions := make([]model.Region, 0, len(snap.Results))
	for _, res := range snap.Results {
		regions = append(regions, res.Region)
	}
	mode := model.ModeGlobal
	if len(regions) == 1 {
		mode = model.ModeDev
	}

	job := model.NewJob(snap.JobID, snap.URL, mode, regions)
	for _, res := range snap.Results {
		resCopy := res
		job.RegionResults[res.Region] = &resCopy
	}
	job.ReportURL = snap.ReportURL
	job.GalleryURL = snap.GalleryURL
	job.Status = job.DeriveStatus()
	return job
}
