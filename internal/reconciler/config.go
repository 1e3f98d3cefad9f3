package reconciler

// Config contains the reconciler's runtime knobs.
type Config struct {
	// EventBuffer sizes each tracked job's event channel. Emission is
	// non-blocking; a full buffer drops the event rather than stalling a
	// reconcile.
	EventBuffer int
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		EventBuffer: 16,
	}
}
