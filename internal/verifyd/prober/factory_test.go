package prober_test

import (
	"testing"

	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/verifyd/prober"
)

// noopLogger is a test-local logger implementation that discards all log messages
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, fields ...logging.Field) {}
func (n *noopLogger) Info(msg string, fields ...logging.Field)  {}
func (n *noopLogger) Warn(msg string, fields ...logging.Field)  {}
func (n *noopLogger) Error(msg string, fields ...logging.Field) {}
func (n *noopLogger) With(fields ...logging.Field) logging.Logger {
	return n
}

// TestNew_DefaultBackend verifies that an empty backend name defaults to nethttp
func TestNew_DefaultBackend(t *testing.T) {
	t.Parallel()
	cfg := prober.DefaultConfig()
	cfg.Backend = ""

	p, err := prober.New(cfg, &noopLogger{})
	if err != nil {
		t.Fatalf("Failed to create default prober: %v", err)
	}
	if p == nil {
		t.Fatal("prober is nil")
	}
	defer p.Close()
}

// TestNew_NilConfig verifies that a nil config falls back to defaults
func TestNew_NilConfig(t *testing.T) {
	t.Parallel()

	p, err := prober.New(nil, &noopLogger{})
	if err != nil {
		t.Fatalf("Failed to create prober from nil config: %v", err)
	}
	if p == nil {
		t.Fatal("prober is nil")
	}
	defer p.Close()
}

// TestNew_NetHTTP verifies that the factory can create a nethttp prober
func TestNew_NetHTTP(t *testing.T) {
	t.Parallel()
	cfg := prober.DefaultConfig()
	cfg.Backend = "nethttp"

	p, err := prober.New(cfg, &noopLogger{})
	if err != nil {
		t.Fatalf("Failed to create nethttp prober: %v", err)
	}
	if p == nil {
		t.Fatal("prober is nil")
	}
	defer p.Close()
}

// TestNew_ChromeDP verifies that the chromedp prober can be constructed.
// Construction only prepares allocator options; no browser is launched
// until Probe runs, so this works in environments without Chrome.
func TestNew_ChromeDP(t *testing.T) {
	t.Parallel()
	cfg := prober.DefaultConfig()
	cfg.Backend = "chromedp"
	cfg.ScreenshotDir = t.TempDir()

	p, err := prober.New(cfg, &noopLogger{})
	if err != nil {
		t.Skipf("Skipping chromedp test: %v", err)
	}
	if p != nil {
		defer p.Close()
	}
}

// TestNew_UnknownBackend verifies that an unknown backend returns an error
func TestNew_UnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := prober.DefaultConfig()
	cfg.Backend = "unknown"

	p, err := prober.New(cfg, &noopLogger{})
	if err == nil {
		t.Fatal("Expected error for unknown backend, got nil")
	}
	if p != nil {
		t.Fatal("Expected nil prober for unknown backend")
	}
}

// TestList_ContainsDefaultBackends verifies that both built-in backends register
func TestList_ContainsDefaultBackends(t *testing.T) {
	t.Parallel()
	names := prober.List()

	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["nethttp"] || !seen["chromedp"] {
		t.Errorf("expected nethttp and chromedp registered, got %v", names)
	}
}

// TestRegister_IgnoresInvalid verifies that empty names and nil constructors are no-ops
func TestRegister_IgnoresInvalid(t *testing.T) {
	t.Parallel()
	prober.Register("", nil)
	prober.Register("ghost", nil)

	for _, n := range prober.List() {
		if n == "ghost" {
			t.Fatal("nil constructor should not have been registered")
		}
	}
}
