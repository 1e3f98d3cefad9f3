// Package reconciler keeps tracked jobs in sync with the verification
// service. There is no background polling; state only moves when a caller
// drives Reconcile, and concurrent calls for the same job coalesce into a
// single request.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/raysh454/kakunin/internal/aggregate"
	"github.com/raysh454/kakunin/internal/interfaces"
	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
)

// ErrJobNotTracked is returned when a job id is not in the registry.
var ErrJobNotTracked = errors.New("reconciler: job not tracked")

type trackedJob struct {
	job    *model.Job
	events chan model.Event
}

// Reconciler owns the tracked-job registry. The registry is mutated only
// here, under one mutex; accessors hand out clones, never the tracked job.
type Reconciler struct {
	cfg      *Config
	verifier interfaces.Verifier
	logger   logging.Logger

	group singleflight.Group

	jobsMu sync.Mutex
	jobs   map[string]*trackedJob
}

// New ties together config, verifier and logger.
func New(cfg *Config, verifier interfaces.Verifier, logger logging.Logger) *Reconciler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Reconciler{
		cfg:      cfg,
		verifier: verifier,
		logger:   logger.With(logging.Field{Key: "component", Value: "reconciler"}),
	}
}

// Track registers a job and returns its event channel. Tracking an already
// tracked id returns the existing channel. The reconciler keeps its own
// copy of the job; later mutations of the caller's value are not seen.
func (r *Reconciler) Track(job *model.Job) (<-chan model.Event, error) {
	if job == nil || job.ID == "" {
		return nil, fmt.Errorf("track: job must have an id")
	}

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	if r.jobs == nil {
		r.jobs = make(map[string]*trackedJob)
	}
	if existing, ok := r.jobs[job.ID]; ok {
		return existing.events, nil
	}

	tracked := &trackedJob{
		job:    job.Clone(),
		events: make(chan model.Event, r.cfg.EventBuffer),
	}
	r.jobs[job.ID] = tracked

	r.logger.Info("tracking job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "url", Value: job.URL})

	emitTo(tracked.events, model.Event{
		Type:     model.EventVerificationSubmitted,
		JobID:    job.ID,
		URL:      job.URL,
		Progress: tracked.job.ProgressLabel(),
	})

	return tracked.events, nil
}

// Untrack removes a job and closes its event channel. A reconcile already
// in flight for that job finds the registry entry gone and drops its
// snapshot without error.
func (r *Reconciler) Untrack(jobID string) {
	r.jobsMu.Lock()
	tracked, ok := r.jobs[jobID]
	if ok {
		delete(r.jobs, jobID)
	}
	r.jobsMu.Unlock()

	if !ok {
		return
	}
	r.group.Forget(jobID)
	close(tracked.events)

	r.logger.Info("untracked job", logging.Field{Key: "job_id", Value: jobID})
}

// Job returns a copy of the tracked job's current state.
func (r *Reconciler) Job(jobID string) (*model.Job, bool) {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	tracked, ok := r.jobs[jobID]
	if !ok {
		return nil, false
	}
	return tracked.job.Clone(), true
}

// Reconcile fetches the latest snapshot for a tracked job, merges it and
// returns the updated state. Concurrent calls for the same id share one
// request and one merge. The returned job is a copy; a nil job with a nil
// error means the job was untracked while the fetch was in flight.
func (r *Reconciler) Reconcile(ctx context.Context, jobID string) (*model.Job, error) {
	r.jobsMu.Lock()
	_, ok := r.jobs[jobID]
	r.jobsMu.Unlock()
	if !ok {
		return nil, ErrJobNotTracked
	}

	v, err, shared := r.group.Do(jobID, func() (any, error) {
		return r.reconcileOnce(ctx, jobID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("reconcile coalesced", logging.Field{Key: "job_id", Value: jobID})
	}
	job, _ := v.(*model.Job)
	return job, nil
}

// reconcileOnce runs inside the singleflight group, so at most one
// instance per job id is active at a time.
func (r *Reconciler) reconcileOnce(ctx context.Context, jobID string) (any, error) {
	snap, err := r.verifier.GetJobDetails(ctx, jobID)
	if err != nil {
		r.emit(jobID, model.Event{Type: model.EventJobError, JobID: jobID, Error: err.Error()})
		return nil, fmt.Errorf("reconcile %s: %w", jobID, err)
	}

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()

	tracked, ok := r.jobs[jobID]
	if !ok {
		// Untracked while the fetch was in flight; the snapshot is stale.
		r.logger.Debug("dropping snapshot for untracked job",
			logging.Field{Key: "job_id", Value: jobID})
		return nil, nil
	}

	if snap != nil {
		r.apply(tracked, snap)
	}
	return tracked.job.Clone(), nil
}

// apply merges a snapshot into the tracked job and emits events. The
// caller holds jobsMu.
func (r *Reconciler) apply(tracked *trackedJob, snap *model.JobSnapshot) {
	job := tracked.job
	beforeDone, total := job.Progress()

	for _, incoming := range snap.Results {
		existing, ok := job.RegionResults[incoming.Region]
		if !ok {
			// A region the job never requested; ignore it.
			r.logger.Debug("snapshot carries unrequested region",
				logging.Field{Key: "job_id", Value: job.ID},
				logging.Field{Key: "region", Value: string(incoming.Region)})
			continue
		}
		mergeRegion(existing, incoming)
	}

	if snap.ReportURL != "" {
		job.ReportURL = snap.ReportURL
	}
	if snap.GalleryURL != "" {
		job.GalleryURL = snap.GalleryURL
	}

	job.Status = job.DeriveStatus()

	afterDone, _ := job.Progress()
	if afterDone != beforeDone {
		emitTo(tracked.events, model.Event{
			Type:     model.EventJobProgress,
			JobID:    job.ID,
			URL:      job.URL,
			Done:     afterDone,
			Total:    total,
			Progress: job.ProgressLabel(),
		})
	}

	if job.Terminal() && !job.ResultsRendered {
		// First reconcile to observe the terminal state renders the
		// results; every later one sees the flag already set.
		job.ResultsRendered = true
		now := time.Now().UTC()
		job.CompletedAt = &now

		emitTo(tracked.events, model.Event{
			Type:     model.EventJobResult,
			JobID:    job.ID,
			URL:      job.URL,
			Done:     afterDone,
			Total:    total,
			Progress: job.ProgressLabel(),
			Job:      job.Clone(),
			Summary:  aggregate.Aggregate(job),
		})

		r.logger.Info("job reached terminal state",
			logging.Field{Key: "job_id", Value: job.ID},
			logging.Field{Key: "status", Value: string(job.Status)})
	}
}

// mergeRegion folds an incoming region result into the tracked one.
// Informational fields always take the newest snapshot's word; the status
// only moves forward, and a terminal kind, once set, never changes.
func mergeRegion(existing *model.RegionResult, incoming model.RegionResult) {
	status := existing.Status
	if incoming.Status.Rank() > status.Rank() {
		status = incoming.Status
	}
	*existing = incoming
	existing.Status = status
}

// emit looks the job up and sends on its channel. Must not be called with
// jobsMu held.
func (r *Reconciler) emit(jobID string, ev model.Event) {
	r.jobsMu.Lock()
	tracked, ok := r.jobs[jobID]
	r.jobsMu.Unlock()
	if !ok {
		return
	}
	emitTo(tracked.events, ev)
}

// emitTo performs a non-blocking send; the event is dropped if the buffer
// is full.
func emitTo(ch chan model.Event, ev model.Event) {
	select {
	case ch <- ev:
	default:
	}
}
