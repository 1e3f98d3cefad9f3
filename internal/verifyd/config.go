package verifyd

import (
	"time"

	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/verifyd/prober"
)

// Config holds the verification service settings.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string

	// APIKey is the key expected in X-API-Key. Empty disables auth, which
	// is only meant for local experiments.
	APIKey string

	// DataDir holds the scan database and captured screenshots.
	DataDir string

	// Version is reported by the status endpoint.
	Version string

	// InitialQuota is the number of scans available at startup. The quota
	// can be topped up through the sim settings endpoint.
	InitialQuota int

	// RegionDelay is the pause before a region's probe starts and
	// RegionStagger the extra offset added per region, so a global job
	// visibly walks through its regions instead of finishing all at once.
	RegionDelay   time.Duration
	RegionStagger time.Duration

	// Prober selects and configures the probe backend.
	Prober *prober.Config

	// Logger is the logger to use. If nil a stdout logger is created.
	Logger logging.Logger
}

// DefaultConfig returns a config suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    "localhost:8080",
		DataDir:       "~/.kakunin/verifyd",
		Version:       "0.1",
		InitialQuota:  50,
		RegionDelay:   500 * time.Millisecond,
		RegionStagger: 250 * time.Millisecond,
		Prober:        prober.DefaultConfig(),
	}
}
