package model

// VerifyRequest is the submission payload for all three modes. Exactly one
// of URL or URLs must be set; Validate enforces the mode rules.
type VerifyRequest struct {
	URL       string   `json:"url,omitempty" validate:"required_without=URLs,excluded_with=URLs,omitempty,url"`
	URLs      []string `json:"urls,omitempty" validate:"required_without=URL,excluded_with=URL,omitempty,min=1,max=10,dive,url"`
	Continent string   `json:"continent,omitempty" validate:"omitempty,continent"`
	Mode      Mode     `json:"mode,omitempty" validate:"omitempty,oneof=global dev batch"`
}

// VerifyResponse is the service reply to a single-URL submission.
type VerifyResponse struct {
	Success        bool   `json:"success"`
	JobID          string `json:"jobId,omitempty"`
	URL            string `json:"url,omitempty"`
	ScansRemaining *int   `json:"scansRemaining,omitempty"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchSummary counts submission outcomes across a batch.
type BatchSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// BatchItem reports one URL's submission outcome within a batch.
type BatchItem struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchResponse is the service reply to a batch submission.
type BatchResponse struct {
	Success bool         `json:"success"`
	Summary BatchSummary `json:"summary"`
	Results []BatchItem  `json:"results"`
	Error   string       `json:"error,omitempty"`
}

// JobSnapshot is the raw job state served by the job endpoints. The base
// endpoint fills the lifecycle fields; the details endpoint additionally
// carries vitals, state labels and screenshot URLs inside Results.
type JobSnapshot struct {
	JobID         string         `json:"jobId"`
	URL           string         `json:"url,omitempty"`
	Status        JobStatus      `json:"status"`
	TotalJobs     int            `json:"totalJobs"`
	CompletedJobs int            `json:"completedJobs"`
	Results       []RegionResult `json:"results"`
	Summary       string         `json:"summary,omitempty"`
	ReportURL     string         `json:"reportUrl,omitempty"`
	GalleryURL    string         `json:"galleryUrl,omitempty"`
}

// StatusResponse reports service health, available regions and quota.
type StatusResponse struct {
	Success        bool     `json:"success"`
	Status         string   `json:"status"`
	Regions        []Region `json:"regions,omitempty"`
	ScansRemaining *int     `json:"scansRemaining,omitempty"`
	Version        string   `json:"version,omitempty"`
}
