// Package prober implements the probe backends the verification service
// runs against a target. A probe fetches the page once and reports what it
// saw; the engine turns that observation into per-region results.
package prober

import (
	"context"
	"time"
)

// Result is one probe observation of a target.
type Result struct {
	// URL is the target that was fetched.
	URL string

	// StatusCode is the HTTP status of the main document, 0 when the
	// backend could not observe one.
	StatusCode int

	// ResponseTime is the wall time from request start to body read.
	ResponseTime time.Duration

	// Title is the document title, empty when the page has none or the
	// response was not HTML.
	Title string

	// BodyBytes is the size of the fetched document.
	BodyBytes int

	// HasViewportMeta reports whether the page declares a viewport meta
	// tag, a cheap mobile-usability signal.
	HasViewportMeta bool

	// ScreenshotPath is the file the backend captured, when it can.
	ScreenshotPath string
}

// Prober fetches a target and reports what it observed.
type Prober interface {
	Probe(ctx context.Context, target string) (*Result, error)
	Close() error
}

// Config selects and tunes the probe backend.
type Config struct {
	// Backend names the registered backend, "nethttp" or "chromedp".
	Backend string

	// Timeout bounds a single probe.
	Timeout time.Duration

	// IdleAfter is how long the network must stay quiet before a chromedp
	// probe considers the page loaded.
	IdleAfter time.Duration

	// ScreenshotDir is where chromedp probes store captures. Empty
	// disables screenshots.
	ScreenshotDir string

	// Headless controls the chromedp browser window.
	Headless bool
}

// DefaultConfig returns the nethttp backend with sane timeouts.
func DefaultConfig() *Config {
	return &Config{
		Backend:   "nethttp",
		Timeout:   20 * time.Second,
		IdleAfter: 2 * time.Second,
		Headless:  true,
	}
}
