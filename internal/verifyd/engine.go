package verifyd

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/kakunin/internal/aggregate"
	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
	"github.com/raysh454/kakunin/internal/utils"
	"github.com/raysh454/kakunin/internal/verifyd/prober"
)

// ErrQuotaExhausted is returned by Submit once the scan quota hits zero.
// The HTTP layer maps it to 402.
var ErrQuotaExhausted = errors.New("no scans remaining")

const engineEventBuffer = 16

// SimSettings is the wire shape of the sim control endpoint. Nil fields
// leave the corresponding knob unchanged; an explicit empty region list
// clears the forced outcomes.
type SimSettings struct {
	RegionDelayMs   *int     `json:"regionDelayMs,omitempty"`
	RegionStaggerMs *int     `json:"regionStaggerMs,omitempty"`
	FailRegions     []string `json:"failRegions,omitempty"`
	TimeoutRegions  []string `json:"timeoutRegions,omitempty"`
	ScansRemaining  *int     `json:"scansRemaining,omitempty"`
}

type simSettings struct {
	regionDelay    time.Duration
	regionStagger  time.Duration
	failRegions    map[model.Region]bool
	timeoutRegions map[model.Region]bool
}

// simJob pairs the live job record with its event stream. The probe runs
// once per job; every region goroutine waits on the same probeOnce and
// derives its own variant of the observation.
type simJob struct {
	job    *model.Job
	events chan model.Event

	probeOnce sync.Once
	probe     *prober.Result
	probeErr  error
}

// Engine runs simulated multi-region verifications. Each admitted job fans
// out one goroutine per requested region; regions walk pending ->
// processing -> terminal on a staggered schedule, scored from a single real
// probe of the target.
type Engine struct {
	cfg    *Config
	store  *Store
	prb    prober.Prober
	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	jobs  map[string]*simJob
	quota int
	sim   simSettings
}

func NewEngine(cfg *Config, store *Store, prb prober.Prober, logger logging.Logger) *Engine {
	componentLogger := logger.With(logging.Field{Key: "component", Value: "engine"})
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:    cfg,
		store:  store,
		prb:    prb,
		logger: componentLogger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*simJob),
		quota:  cfg.InitialQuota,
		sim: simSettings{
			regionDelay:    cfg.RegionDelay,
			regionStagger:  cfg.RegionStagger,
			failRegions:    map[model.Region]bool{},
			timeoutRegions: map[model.Region]bool{},
		},
	}
}

// Submit admits a single-URL verification and starts its region probes.
func (e *Engine) Submit(ctx context.Context, req *model.VerifyRequest) (*model.VerifyResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if len(req.URLs) > 0 {
		return nil, fmt.Errorf("batch submissions go through SubmitBatch")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	canon, err := utils.NormalizeTarget(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	regions, err := req.RequestedRegions()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.quota <= 0 {
		e.mu.Unlock()
		return nil, ErrQuotaExhausted
	}
	e.quota--
	remaining := e.quota

	jobID := uuid.New().String()
	job := model.NewJob(jobID, canon, req.EffectiveMode(), regions)
	sj := &simJob{
		job:    job,
		events: make(chan model.Event, engineEventBuffer),
	}
	e.jobs[jobID] = sj
	e.mu.Unlock()

	continent := ""
	if req.EffectiveMode() == model.ModeDev {
		continent = req.Continent
	}
	rec := &model.ScanRecord{
		JobID:     jobID,
		URL:       canon,
		Status:    string(model.JobProcessing),
		Continent: continent,
		Mode:      job.Mode,
	}
	if err := e.store.InsertScan(ctx, rec); err != nil {
		e.logger.Warn("failed to record scan",
			logging.Field{Key: "jobID", Value: jobID},
			logging.Field{Key: "error", Value: err.Error()})
	}

	e.mu.Lock()
	e.emitTo(sj.events, model.Event{
		Type:     model.EventVerificationSubmitted,
		JobID:    jobID,
		URL:      canon,
		Total:    len(regions),
		Progress: job.ProgressLabel(),
	})
	e.mu.Unlock()

	for i, region := range regions {
		e.wg.Add(1)
		go e.runRegion(sj, region, i)
	}

	e.logger.Info("verification admitted",
		logging.Field{Key: "jobID", Value: jobID},
		logging.Field{Key: "url", Value: canon},
		logging.Field{Key: "mode", Value: string(job.Mode)},
		logging.Field{Key: "regions", Value: len(regions)})

	return &model.VerifyResponse{
		Success:        true,
		JobID:          jobID,
		URL:            canon,
		ScansRemaining: &remaining,
		Message:        "verification started",
	}, nil
}

// SubmitBatch admits every URL in the request as its own global job and
// reports per-URL outcomes. Quota exhaustion partway through fails the
// remaining items without rolling back the admitted ones.
func (e *Engine) SubmitBatch(ctx context.Context, req *model.VerifyRequest) (*model.BatchResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	out := &model.BatchResponse{
		Results: make([]model.BatchItem, 0, len(req.URLs)),
	}
	for _, u := range req.URLs {
		single := &model.VerifyRequest{URL: u, Mode: model.ModeGlobal}
		resp, err := e.Submit(ctx, single)
		if err != nil {
			out.Results = append(out.Results, model.BatchItem{URL: u, Error: err.Error()})
			out.Summary.Failed++
			continue
		}
		out.Results = append(out.Results, model.BatchItem{
			URL:     resp.URL,
			Success: true,
			JobID:   resp.JobID,
		})
		out.Summary.Completed++
	}
	out.Summary.Total = len(req.URLs)
	out.Success = out.Summary.Failed == 0
	return out, nil
}

// Snapshot projects the current job state. Detail snapshots carry the
// health label, vitals, screenshot and report links; base snapshots omit
// them but keep the numeric scores. Returns nil for unknown jobs.
func (e *Engine) Snapshot(jobID string, includeDetails bool) *model.JobSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	sj, ok := e.jobs[jobID]
	if !ok {
		return nil
	}
	job := sj.job
	done, total := job.Progress()

	results := make([]model.RegionResult, 0, len(job.Regions))
	for _, r := range job.Regions {
		res, ok := job.RegionResults[r]
		if !ok {
			continue
		}
		cp := *res
		if !includeDetails {
			cp.State = ""
			cp.WebVitals = nil
			cp.ScreenshotURL = ""
		}
		results = append(results, cp)
	}

	snap := &model.JobSnapshot{
		JobID:         job.ID,
		URL:           job.URL,
		Status:        job.Status,
		TotalJobs:     total,
		CompletedJobs: done,
		Results:       results,
		Summary:       job.ProgressLabel(),
	}
	if includeDetails {
		snap.ReportURL = job.ReportURL
		snap.GalleryURL = job.GalleryURL
	}
	return snap
}

// Events returns the job's event stream. The channel closes once the final
// result event has been emitted.
func (e *Engine) Events(jobID string) (<-chan model.Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sj, ok := e.jobs[jobID]
	if !ok {
		return nil, false
	}
	return sj.events, true
}

// Status reports service health, the available regions and the quota.
func (e *Engine) Status() *model.StatusResponse {
	e.mu.Lock()
	quota := e.quota
	e.mu.Unlock()

	regions := make([]model.Region, len(model.AllRegions))
	copy(regions, model.AllRegions)

	return &model.StatusResponse{
		Success:        true,
		Status:         "operational",
		Regions:        regions,
		ScansRemaining: &quota,
		Version:        e.cfg.Version,
	}
}

// Sim exports the current simulation knobs.
func (e *Engine) Sim() SimSettings {
	e.mu.Lock()
	defer e.mu.Unlock()

	delayMs := int(e.sim.regionDelay / time.Millisecond)
	staggerMs := int(e.sim.regionStagger / time.Millisecond)
	quota := e.quota

	return SimSettings{
		RegionDelayMs:   &delayMs,
		RegionStaggerMs: &staggerMs,
		FailRegions:     regionNames(e.sim.failRegions),
		TimeoutRegions:  regionNames(e.sim.timeoutRegions),
		ScansRemaining:  &quota,
	}
}

// ApplySim updates the simulation knobs. Region names are validated before
// anything is changed.
func (e *Engine) ApplySim(s SimSettings) error {
	fail, err := parseRegionSet(s.FailRegions)
	if err != nil {
		return err
	}
	timeout, err := parseRegionSet(s.TimeoutRegions)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s.RegionDelayMs != nil && *s.RegionDelayMs >= 0 {
		e.sim.regionDelay = time.Duration(*s.RegionDelayMs) * time.Millisecond
	}
	if s.RegionStaggerMs != nil && *s.RegionStaggerMs >= 0 {
		e.sim.regionStagger = time.Duration(*s.RegionStaggerMs) * time.Millisecond
	}
	if s.FailRegions != nil {
		e.sim.failRegions = fail
	}
	if s.TimeoutRegions != nil {
		e.sim.timeoutRegions = timeout
	}
	if s.ScansRemaining != nil && *s.ScansRemaining >= 0 {
		e.quota = *s.ScansRemaining
	}
	return nil
}

// Close stops all in-flight region goroutines and the prober.
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()
	if err := e.prb.Close(); err != nil {
		e.logger.Warn("failed to close prober",
			logging.Field{Key: "error", Value: err.Error()})
	}
	e.logger.Info("engine closed")
	return nil
}

// ─── region lifecycle ───────────────────────────────────────────────────

func (e *Engine) runRegion(sj *simJob, region model.Region, idx int) {
	defer e.wg.Done()

	delay, stagger := e.simDelays()
	if !e.sleep(delay + time.Duration(idx)*stagger) {
		return
	}

	e.markProcessing(sj, region)

	res, probeErr := e.probeTarget(sj)
	verdict := e.verdict(sj.job.ID, region, res, probeErr)
	e.finishRegion(sj, region, verdict)
}

// sleep waits d or until the engine shuts down. Returns false on shutdown.
func (e *Engine) sleep(d time.Duration) bool {
	if d <= 0 {
		return e.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *Engine) simDelays() (delay, stagger time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.regionDelay, e.sim.regionStagger
}

func (e *Engine) markProcessing(sj *simJob, region model.Region) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, ok := sj.job.RegionResults[region]
	if !ok {
		return
	}
	if res.Status.Rank() < model.RegionProcessing.Rank() {
		res.Status = model.RegionProcessing
	}

	was := sj.job.Status
	sj.job.Status = sj.job.DeriveStatus()
	if was == model.JobPending && sj.job.Status == model.JobProcessing {
		done, total := sj.job.Progress()
		e.emitTo(sj.events, model.Event{
			Type:     model.EventJobProgress,
			JobID:    sj.job.ID,
			URL:      sj.job.URL,
			Done:     done,
			Total:    total,
			Progress: sj.job.ProgressLabel(),
		})
	}
}

// probeTarget runs the real probe exactly once per job; concurrent region
// goroutines block until the first caller finishes and then share the
// observation.
func (e *Engine) probeTarget(sj *simJob) (*prober.Result, error) {
	sj.probeOnce.Do(func() {
		pctx, cancel := context.WithTimeout(e.ctx, e.probeTimeout())
		defer cancel()
		sj.probe, sj.probeErr = e.prb.Probe(pctx, sj.job.URL)
		if sj.probeErr != nil {
			e.logger.Warn("probe failed",
				logging.Field{Key: "jobID", Value: sj.job.ID},
				logging.Field{Key: "url", Value: sj.job.URL},
				logging.Field{Key: "error", Value: sj.probeErr.Error()})
		}
	})
	return sj.probe, sj.probeErr
}

func (e *Engine) probeTimeout() time.Duration {
	if e.cfg.Prober != nil && e.cfg.Prober.Timeout > 0 {
		return e.cfg.Prober.Timeout
	}
	return 20 * time.Second
}

// verdict turns the shared probe observation into one region's result.
// Forced sim outcomes win over the real observation.
func (e *Engine) verdict(jobID string, region model.Region, res *prober.Result, probeErr error) model.RegionResult {
	e.mu.Lock()
	forceFail := e.sim.failRegions[region]
	forceTimeout := e.sim.timeoutRegions[region]
	e.mu.Unlock()

	switch {
	case forceTimeout:
		return model.RegionResult{
			Region: region,
			Status: model.RegionTimeout,
			Error:  fmt.Sprintf("probe from %s timed out", region),
		}
	case forceFail:
		return model.RegionResult{
			Region: region,
			Status: model.RegionFailed,
			Error:  fmt.Sprintf("probe from %s failed", region),
		}
	case probeErr != nil:
		if errors.Is(probeErr, context.DeadlineExceeded) {
			return model.RegionResult{
				Region: region,
				Status: model.RegionTimeout,
				Error:  "probe timed out: " + probeErr.Error(),
			}
		}
		return model.RegionResult{
			Region: region,
			Status: model.RegionFailed,
			Error:  probeErr.Error(),
		}
	}

	bias := regionBias(jobID, region)
	respMs := math.Round((float64(res.ResponseTime.Milliseconds())+bias)*10) / 10
	httpStatus := res.StatusCode

	reach := 100.0
	if res.StatusCode == 0 || res.StatusCode >= 400 {
		reach = 40
	}
	usab := usabilityScore(res, respMs, bias)
	state := string(aggregate.ClassifyHealth(&reach, &usab))

	rr := model.RegionResult{
		Region:         region,
		Status:         model.RegionCompleted,
		State:          state,
		HTTPStatus:     &httpStatus,
		ResponseTimeMs: &respMs,
		Reachability:   &reach,
		Usability:      &usab,
		WebVitals:      deriveVitals(respMs, bias),
	}
	if res.ScreenshotPath != "" {
		rr.ScreenshotURL = "/screenshots/" + filepath.Base(res.ScreenshotPath)
	}
	return rr
}

// finishRegion merges the verdict, emits progress and, once the last region
// lands, renders the final result exactly once and closes the stream.
func (e *Engine) finishRegion(sj *simJob, region model.Region, rr model.RegionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, ok := sj.job.RegionResults[region]
	if !ok {
		return
	}
	status := existing.Status
	if rr.Status.Rank() > status.Rank() {
		status = rr.Status
	}
	*existing = rr
	existing.Status = status

	sj.job.Status = sj.job.DeriveStatus()
	done, total := sj.job.Progress()
	e.emitTo(sj.events, model.Event{
		Type:     model.EventJobProgress,
		JobID:    sj.job.ID,
		URL:      sj.job.URL,
		Done:     done,
		Total:    total,
		Progress: sj.job.ProgressLabel(),
	})

	if !sj.job.Terminal() || sj.job.ResultsRendered {
		return
	}
	sj.job.ResultsRendered = true
	now := time.Now().UTC()
	sj.job.CompletedAt = &now
	sj.job.ReportURL = "/api/v1/job/" + sj.job.ID + "/details"
	for _, r := range sj.job.Regions {
		if res := sj.job.RegionResults[r]; res != nil && res.ScreenshotURL != "" {
			sj.job.GalleryURL = "/screenshots/"
			break
		}
	}

	summary := aggregate.Aggregate(sj.job)
	e.emitTo(sj.events, model.Event{
		Type:    model.EventJobResult,
		JobID:   sj.job.ID,
		URL:     sj.job.URL,
		Job:     sj.job.Clone(),
		Summary: summary,
	})
	close(sj.events)

	e.persistOutcome(sj.job, summary, now)

	e.logger.Info("job completed",
		logging.Field{Key: "jobID", Value: sj.job.ID},
		logging.Field{Key: "url", Value: sj.job.URL},
		logging.Field{Key: "state", Value: string(summary.State)})
}

// persistOutcome writes the terminal row off the engine lock's critical
// path. It deliberately ignores engine shutdown so the last outcome still
// lands, bounded by its own timeout.
func (e *Engine) persistOutcome(job *model.Job, summary *model.Summary, completedAt time.Time) {
	jobID := job.ID
	status := string(job.Status)
	state := string(summary.State)
	reach := summary.AvgReachability
	usab := summary.AvgUsability

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.FinishScan(ctx, jobID, status, state, reach, usab, completedAt); err != nil {
			e.logger.Warn("failed to persist scan outcome",
				logging.Field{Key: "jobID", Value: jobID},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}()
}

func (e *Engine) emitTo(ch chan model.Event, ev model.Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		e.logger.Debug("dropping event, channel full",
			logging.Field{Key: "jobID", Value: ev.JobID},
			logging.Field{Key: "type", Value: string(ev.Type)})
	}
}

// ─── scoring helpers ────────────────────────────────────────────────────

// regionBias derives a stable per-region latency spread in milliseconds
// from the job ID, so repeated snapshots of one job agree with each other.
func regionBias(jobID string, region model.Region) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobID))
	_, _ = h.Write([]byte(region))
	return float64(h.Sum32()%700) / 10
}

func usabilityScore(res *prober.Result, respMs, bias float64) float64 {
	score := 100.0
	if res.Title == "" {
		score -= 5
	}
	if !res.HasViewportMeta {
		score -= 10
	}
	if respMs > 1000 {
		penalty := (respMs - 1000) / 200
		if penalty > 20 {
			penalty = 20
		}
		score -= penalty
	}
	score -= bias / 20
	if score < 0 {
		score = 0
	}
	return math.Round(score*10) / 10
}

func deriveVitals(respMs, bias float64) *model.WebVitals {
	ttfb := math.Round(respMs*0.4*10) / 10
	fcp := math.Round(respMs*1.6*10) / 10
	lcp := math.Round(respMs*2.4*10) / 10
	tti := math.Round(respMs*3.2*10) / 10
	cls := math.Round((0.02+bias/1000)*1000) / 1000
	return &model.WebVitals{LCP: &lcp, CLS: &cls, TTFB: &ttfb, FCP: &fcp, TTI: &tti}
}

func parseRegionSet(names []string) (map[model.Region]bool, error) {
	out := make(map[model.Region]bool, len(names))
	for _, name := range names {
		r, err := model.ParseRegion(name)
		if err != nil {
			return nil, err
		}
		out[r] = true
	}
	return out, nil
}

func regionNames(set map[model.Region]bool) []string {
	var out []string
	for _, r := range model.AllRegions {
		if set[r] {
			out = append(out, string(r))
		}
	}
	return out
}
