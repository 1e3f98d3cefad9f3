package history

// Config contains the pager's runtime knobs.
type Config struct {
	// Limit is the page size requested from the service. The server may
	// clamp it; the metadata echoed back is authoritative.
	Limit int

	// EventBuffer sizes the pager's event channel.
	EventBuffer int
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		Limit:       20,
		EventBuffer: 16,
	}
}
