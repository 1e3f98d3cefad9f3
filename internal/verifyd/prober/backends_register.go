package prober

import "github.com/raysh454/kakunin/internal/logging"

func init() {
	RegisterDefaultBackends()
}

// RegisterDefaultBackends registers the nethttp and chromedp backends. It
// runs at package init; calling it again just overwrites the entries.
func RegisterDefaultBackends() {
	Register("nethttp", func(cfg *Config, logger logging.Logger) (Prober, error) {
		return NewNetHTTPProber(cfg, logger, nil)
	})

	Register("chromedp", func(cfg *Config, logger logging.Logger) (Prober, error) {
		return NewChromedpProber(cfg, logger)
	})
}
