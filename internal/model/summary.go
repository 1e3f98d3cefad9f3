package model

// HealthState is the coarse health classification of a verified site,
// either per region or for the job as a whole.
type HealthState string

const (
	HealthPerfect  HealthState = "perfect"
	HealthGood     HealthState = "good"
	HealthDegraded HealthState = "degraded"
	HealthDown     HealthState = "down"
)

// VitalRating buckets a web vitals sample against its thresholds.
type VitalRating string

const (
	RatingGood             VitalRating = "good"
	RatingNeedsImprovement VitalRating = "needs-improvement"
	RatingPoor             VitalRating = "poor"
)

// RegionAssessment is the classified view of one region's result.
type RegionAssessment struct {
	Region Region      `json:"region"`
	Status RegionStatus `json:"status"`

	// State is the health classification for this region.
	State HealthState `json:"state"`

	// VitalRatings holds a rating per vital that had a sample. Absent
	// vitals are omitted, never rated as zero.
	VitalRatings map[VitalName]VitalRating `json:"vitalRatings,omitempty"`

	Reachability *float64 `json:"reachability,omitempty"`
	Usability    *float64 `json:"usability,omitempty"`
}

// Summary is the aggregated, classified outcome of a terminal job.
type Summary struct {
	JobID string `json:"jobId"`
	URL   string `json:"url"`

	// State is the overall classification, derived from the score averages
	// (down when no region completed).
	State HealthState `json:"state"`

	// AvgReachability and AvgUsability are means over completed regions
	// that reported the score. They stay nil when no region qualifies.
	AvgReachability *float64 `json:"avgReachability,omitempty"`
	AvgUsability    *float64 `json:"avgUsability,omitempty"`

	// CompletedCount counts regions that finished with status completed;
	// TotalCount is the requested region count.
	CompletedCount int `json:"completedCount"`
	TotalCount     int `json:"totalCount"`

	// Regions holds one assessment per requested region, in AllRegions order.
	Regions []RegionAssessment `json:"regions"`
}

// RegionDelta is the per-region movement between two summaries.
type RegionDelta struct {
	Region Region `json:"region"`

	ReachabilityDelta *float64 `json:"reachabilityDelta,omitempty"`
	UsabilityDelta    *float64 `json:"usabilityDelta,omitempty"`

	StateBase HealthState `json:"stateBase,omitempty"`
	StateHead HealthState `json:"stateHead,omitempty"`
}

// SummaryDiff compares two aggregated summaries of the same target.
// Deltas are nil when either side lacks the value.
type SummaryDiff struct {
	URL string `json:"url"`

	StateBase    HealthState `json:"stateBase"`
	StateHead    HealthState `json:"stateHead"`
	StateChanged bool        `json:"stateChanged"`

	AvgReachabilityDelta *float64 `json:"avgReachabilityDelta,omitempty"`
	AvgUsabilityDelta    *float64 `json:"avgUsabilityDelta,omitempty"`

	// RegionDeltas lists regions present in either summary, in AllRegions
	// order.
	RegionDeltas []RegionDelta `json:"regionDeltas,omitempty"`
}
