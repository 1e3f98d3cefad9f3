package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/kakunin/internal/api"
	"github.com/raysh454/kakunin/internal/interfaces"
	"github.com/raysh454/kakunin/internal/model"
	"github.com/raysh454/kakunin/internal/reconciler"
)

func runVerify(cmd *cobra.Command, args []string) {
	req := &model.VerifyRequest{URL: args[0]}
	continent := continentFlag
	if continent == "" && devMode {
		continent = cfg.Defaults.Continent
	}
	if continent != "" {
		req.Continent = continent
		devMode = true
	}
	if devMode {
		req.Mode = model.ModeDev
	}
	if err := req.Validate(); err != nil {
		log.Fatalf("Invalid submission: %v", err)
	}
	regions, err := req.RequestedRegions()
	if err != nil {
		log.Fatalf("Invalid submission: %v", err)
	}

	v := newVerifier()
	defer v.Close()

	resp, err := v.SubmitVerification(context.Background(), req)
	if err != nil {
		fatalServiceError("Submission", err)
	}

	url := resp.URL
	if url == "" {
		url = req.URL
	}
	if !jsonOut {
		if resp.ScansRemaining != nil {
			fmt.Printf("Submitted %s as job %s (%d scans remaining)\n", url, resp.JobID, *resp.ScansRemaining)
		} else {
			fmt.Printf("Submitted %s as job %s\n", url, resp.JobID)
		}
	}

	if noWait {
		if jsonOut {
			printJSON(resp)
		}
		return
	}

	followJob(v, model.NewJob(resp.JobID, url, req.EffectiveMode(), regions))
}

func runBatch(cmd *cobra.Command, args []string) {
	req := &model.VerifyRequest{URLs: args}
	if err := req.Validate(); err != nil {
		log.Fatalf("Invalid submission: %v", err)
	}

	v := newVerifier()
	defer v.Close()

	resp, err := v.SubmitBatch(context.Background(), req)
	if err != nil {
		fatalServiceError("Submission", err)
	}

	if !jsonOut {
		fmt.Printf("Batch: %d submitted, %d accepted, %d rejected\n",
			resp.Summary.Total, resp.Summary.Completed, resp.Summary.Failed)
		for _, item := range resp.Results {
			if item.Success {
				fmt.Printf("  %s -> job %s\n", item.URL, item.JobID)
			} else {
				fmt.Printf("  %s -> rejected: %s\n", item.URL, item.Error)
			}
		}
	}

	if noWait {
		if jsonOut {
			printJSON(resp)
		}
		return
	}

	// Each accepted target runs as its own global job; follow them in
	// submission order.
	for _, item := range resp.Results {
		if !item.Success {
			continue
		}
		followJob(v, model.NewJob(item.JobID, item.URL, model.ModeGlobal, model.AllRegions))
	}
}

// followJob drives caller-side reconciliation until the job is terminal or
// the timeout passes. Nothing moves between polls; each tick fetches one
// snapshot, merges it and prints whatever events that produced.
func followJob(v interfaces.Verifier, job *model.Job) {
	rec := reconciler.New(nil, v, cliLogger())
	events, err := rec.Track(job)
	if err != nil {
		log.Fatalf("Failed to track job %s: %v", job.ID, err)
	}
	defer rec.Untrack(job.ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(waitTimeout)*time.Second)
	defer cancel()

	ticker := time.NewTicker(time.Duration(pollMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := rec.Reconcile(ctx, job.ID); err != nil {
			var apiErr *api.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				log.Fatalf("Job %s is no longer known to the service", job.ID)
			}
			// Transient failures also surface as jobError events below;
			// keep polling until the deadline decides.
		}
		if drainEvents(events) {
			return
		}
		select {
		case <-ctx.Done():
			log.Fatalf("Gave up on job %s after %ds; check it later with: kakunin check %s",
				job.ID, waitTimeout, job.ID)
		case <-ticker.C:
		}
	}
}

// drainEvents prints whatever the reconciler buffered and reports whether
// the final result was rendered.
func drainEvents(events <-chan model.Event) bool {
	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case model.EventJobProgress:
				if !jsonOut {
					fmt.Printf("  %s\n", ev.Progress)
				}
			case model.EventJobResult:
				if jsonOut {
					printJSON(struct {
						Job     *model.Job     `json:"job"`
						Summary *model.Summary `json:"summary"`
					}{ev.Job, ev.Summary})
				} else {
					renderResult(ev.Job, ev.Summary)
				}
				return true
			case model.EventJobError:
				fmt.Fprintf(os.Stderr, "  warning: %s\n", ev.Error)
			}
		default:
			return false
		}
	}
}
