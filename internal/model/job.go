package model

import (
	"fmt"
	"time"
)

// Region is a two-letter continent code identifying a probe location.
type Region string

const (
	RegionNA Region = "NA"
	RegionEU Region = "EU"
	RegionAS Region = "AS"
	RegionAF Region = "AF"
	RegionOC Region = "OC"
	RegionSA Region = "SA"
)

// AllRegions lists every probe region in canonical display order.
var AllRegions = []Region{RegionNA, RegionEU, RegionAS, RegionAF, RegionOC, RegionSA}

// ParseRegion validates a raw continent code and returns the typed Region.
func ParseRegion(raw string) (Region, error) {
	r := Region(raw)
	for _, known := range AllRegions {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", raw)
}

// Mode selects how a verification is fanned out.
type Mode string

const (
	// ModeGlobal probes the target from every region.
	ModeGlobal Mode = "global"

	// ModeDev probes from a single caller-chosen region.
	ModeDev Mode = "dev"

	// ModeBatch submits up to MaxBatchURLs targets, each as its own global job.
	ModeBatch Mode = "batch"
)

// MaxBatchURLs caps the number of targets accepted in one batch submission.
const MaxBatchURLs = 10

// JobStatus is the lifecycle state of a verification job as a whole.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// RegionStatus is the lifecycle state of a single region's probe.
// Regions move forward only: pending -> processing -> one terminal state.
type RegionStatus string

const (
	RegionPending    RegionStatus = "pending"
	RegionProcessing RegionStatus = "processing"
	RegionCompleted  RegionStatus = "completed"
	RegionFailed     RegionStatus = "failed"
	RegionTimeout    RegionStatus = "timeout"
)

// Terminal reports whether the status is one of the three end states.
func (s RegionStatus) Terminal() bool {
	return s == RegionCompleted || s == RegionFailed || s == RegionTimeout
}

// Rank orders statuses along the forward-only lifecycle. All terminal
// states share the top rank so one terminal kind can never replace another.
func (s RegionStatus) Rank() int {
	switch {
	case s.Terminal():
		return 2
	case s == RegionProcessing:
		return 1
	default:
		return 0
	}
}

// RegionResult is the per-region outcome of a verification job.
// Optional numeric fields are pointers so an absent value survives
// round-trips without collapsing to zero.
type RegionResult struct {
	// Region is the probe location this result belongs to.
	Region Region `json:"region"`

	// Status is the probe lifecycle state for this region.
	Status RegionStatus `json:"status"`

	// State is the server-assigned health label ("perfect", "good",
	// "degraded", "down"), if the service provided one. When present it is
	// trusted over any client-side derivation.
	State string `json:"state,omitempty"`

	// HTTPStatus is the response code observed by the probe, if any.
	HTTPStatus *int `json:"httpStatus,omitempty"`

	// ResponseTimeMs is the probe round-trip time in milliseconds.
	ResponseTimeMs *float64 `json:"responseTimeMs,omitempty"`

	// Reachability is a 0..100 score, present only for completed probes.
	Reachability *float64 `json:"reachability,omitempty"`

	// Usability is a 0..100 score, present only for completed probes.
	Usability *float64 `json:"usability,omitempty"`

	// WebVitals holds the performance samples captured by the probe.
	WebVitals *WebVitals `json:"webVitals,omitempty"`

	// Error describes why the probe failed or timed out.
	Error string `json:"error,omitempty"`

	// ScreenshotURL points at the capture taken by the probe, when one
	// exists. It may arrive after the region is already terminal.
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
}

// Job is the client-side record of one verification.
type Job struct {
	// ID is the service-assigned job identifier.
	ID string `json:"jobId"`

	// URL is the canonicalized target.
	URL string `json:"url"`

	// Mode records how the job was submitted.
	Mode Mode `json:"mode"`

	// Status is derived from region states; see DeriveStatus.
	Status JobStatus `json:"status"`

	// Regions is the requested probe set, fixed at submission.
	Regions []Region `json:"regions"`

	// RegionResults holds the latest merged result per region.
	RegionResults map[Region]*RegionResult `json:"regionResults"`

	// ResultsRendered flips false -> true exactly once, when the first
	// reconcile observes the job terminal and hands off to aggregation.
	ResultsRendered bool `json:"resultsRendered"`

	// ReportURL and GalleryURL are service-provided artifacts, when present.
	ReportURL  string `json:"reportUrl,omitempty"`
	GalleryURL string `json:"galleryUrl,omitempty"`

	SubmittedAt time.Time  `json:"submittedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewJob builds a tracked job for the given requested regions.
func NewJob(id, url string, mode Mode, regions []Region) *Job {
	rs := make([]Region, len(regions))
	copy(rs, regions)
	results := make(map[Region]*RegionResult, len(rs))
	for _, r := range rs {
		results[r] = &RegionResult{Region: r, Status: RegionPending}
	}
	return &Job{
		ID:            id,
		URL:           url,
		Mode:          mode,
		Status:        JobPending,
		Regions:       rs,
		RegionResults: results,
		SubmittedAt:   time.Now().UTC(),
	}
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
// RegionResult entries are copied by value; the pointed-to scores are
// treated as immutable and shared.
func (j *Job) Clone() *Job {
	cp := *j
	cp.Regions = make([]Region, len(j.Regions))
	copy(cp.Regions, j.Regions)
	cp.RegionResults = make(map[Region]*RegionResult, len(j.RegionResults))
	for region, res := range j.RegionResults {
		resCopy := *res
		cp.RegionResults[region] = &resCopy
	}
	return &cp
}

// Terminal reports whether every requested region has reached an end state.
// A job with no requested regions is never terminal.
func (j *Job) Terminal() bool {
	if len(j.Regions) == 0 {
		return false
	}
	for _, r := range j.Regions {
		res, ok := j.RegionResults[r]
		if !ok || !res.Status.Terminal() {
			return false
		}
	}
	return true
}

// Progress counts terminal regions against the requested total. It is
// recomputed from RegionResults on every call; no separate counters exist.
func (j *Job) Progress() (done, total int) {
	total = len(j.Regions)
	for _, r := range j.Regions {
		if res, ok := j.RegionResults[r]; ok && res.Status.Terminal() {
			done++
		}
	}
	return done, total
}

// ProgressLabel renders the user-facing progress string.
func (j *Job) ProgressLabel() string {
	if j.Terminal() {
		return "Completed"
	}
	done, total := j.Progress()
	return fmt.Sprintf("%d/%d regions", done, total)
}

// DeriveStatus computes the job status from region states. The job stays
// processing until every requested region is terminal and then reads
// completed, even when every region failed.
func (j *Job) DeriveStatus() JobStatus {
	if j.Terminal() {
		return JobCompleted
	}
	for _, r := range j.Regions {
		if res, ok := j.RegionResults[r]; ok && res.Status != RegionPending {
			return JobProcessing
		}
	}
	return JobPending
}
