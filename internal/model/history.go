package model

import "time"

// ScanRecord is one row of verification history.
type ScanRecord struct {
	ID              string     `json:"id"`
	JobID           string     `json:"jobId"`
	URL             string     `json:"url"`
	Status          string     `json:"status"`
	State           string     `json:"state,omitempty"`
	Continent       string     `json:"continent,omitempty"`
	TeamID          string     `json:"teamId,omitempty"`
	Mode            Mode       `json:"mode,omitempty"`
	AvgReachability *float64   `json:"avgReachability,omitempty"`
	AvgUsability    *float64   `json:"avgUsability,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// HistoryFilters narrows a history query. Zero values mean no filter.
type HistoryFilters struct {
	Status      string
	Continent   string
	URLContains string
	From        time.Time
	To          time.Time
	TeamID      string
}

// History page sources.
const (
	HistorySourceFiltered = "history"
	HistorySourceLegacy   = "scans"
)

// HistoryPage is one page of history together with whatever pagination
// metadata the serving endpoint actually provided. Pointer fields stay nil
// when the endpoint did not report them; nothing is guessed.
type HistoryPage struct {
	Items []ScanRecord `json:"items"`

	// Page and Limit reflect the server's view on the filtered endpoint.
	// On the legacy path Page is the requested page and Limit the requested
	// limit; the server may have clamped silently.
	Page  int `json:"page"`
	Limit int `json:"limit"`

	Total      *int  `json:"total,omitempty"`
	TotalPages *int  `json:"totalPages,omitempty"`
	HasNext    *bool `json:"hasNext,omitempty"`
	HasPrev    *bool `json:"hasPrev,omitempty"`

	// Source names the endpoint that served this page, HistorySourceFiltered
	// or HistorySourceLegacy.
	Source string `json:"source"`
}

// HistoryResponse is the filtered history endpoint's wire reply. The
// pagination metadata echoed here is ground truth; in particular Limit is
// the limit the server actually honored after clamping.
type HistoryResponse struct {
	Success    bool         `json:"success"`
	Items      []ScanRecord `json:"items"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      *int         `json:"total,omitempty"`
	TotalPages *int         `json:"totalPages,omitempty"`
	HasNext    *bool        `json:"hasNext,omitempty"`
	HasPrev    *bool        `json:"hasPrev,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ScanListResponse is the legacy scans endpoint's wire reply.
type ScanListResponse struct {
	Success bool         `json:"success"`
	Scans   []ScanRecord `json:"scans"`
	Total   *int         `json:"total,omitempty"`
	Error   string       `json:"error,omitempty"`
}
