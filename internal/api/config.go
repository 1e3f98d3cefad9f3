package api

import "time"

// Config contains the settings needed to reach the verification service.
type Config struct {
	// BaseURL is the service root, e.g. "https://verify.example.com".
	// Endpoint paths under /api/v1 are appended to it.
	BaseURL string

	// APIKey authenticates every request via the X-API-Key header.
	// A client with no key refuses to send anything.
	APIKey string

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8080",
		Timeout: 30 * time.Second,
	}
}
