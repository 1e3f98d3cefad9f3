package prober

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/raysh454/kakunin/internal/logging"
)

// Constructor constructs a Prober given the config and logger.
type Constructor func(cfg *Config, logger logging.Logger) (Prober, error)

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register registers a named backend constructor. Name is lower-cased
// internally. Calling Register with the same name overwrites the previous
// constructor.
func Register(name string, ctor Constructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// New constructs the configured backend. It returns an error if the named
// backend has not been registered.
func New(cfg *Config, logger logging.Logger) (Prober, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "nethttp"
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("prober backend %q not registered: available backends=%v", backend, List())
	}

	p, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to construct prober backend %q: %w", backend, err)
	}
	if p == nil {
		return nil, errors.New("prober constructor returned nil")
	}
	return p, nil
}

// List returns the list of registered backend names.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
