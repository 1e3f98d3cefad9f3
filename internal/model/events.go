package model

// EventType names the notifications emitted toward a presentation layer.
type EventType string

const (
	EventVerificationSubmitted EventType = "verificationSubmitted"
	EventJobProgress           EventType = "jobProgress"
	EventJobResult             EventType = "jobResult"
	EventJobError              EventType = "jobError"
	EventHistoryPage           EventType = "historyPage"
	EventHistoryError          EventType = "historyError"
)

// Event is one notification. Only the fields relevant to the Type are set;
// jobResult carries the full job plus its aggregated summary and is emitted
// at most once per job.
type Event struct {
	Type  EventType `json:"type"`
	JobID string    `json:"jobId,omitempty"`
	URL   string    `json:"url,omitempty"`

	// Progress fields, for jobProgress.
	Done     int    `json:"done,omitempty"`
	Total    int    `json:"total,omitempty"`
	Progress string `json:"progress,omitempty"`

	// Result payload, for jobResult.
	Job     *Job     `json:"job,omitempty"`
	Summary *Summary `json:"summary,omitempty"`

	// History payload, for historyPage.
	Page *HistoryPage `json:"page,omitempty"`

	// Error text, for jobError and historyError.
	Error string `json:"error,omitempty"`
}
