// Package config loads the CLI configuration from ~/.kakunin/kakunin.yaml,
// creating a default file on first run. Environment variables override the
// file so credentials can stay out of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/kakunin/internal/api"
)

// Environment overrides applied after the file is read.
const (
	EnvAPIKey  = "KAKUNIN_API_KEY"
	EnvBaseURL = "KAKUNIN_BASE_URL"
)

// FileConfig is the on-disk configuration shape.
type FileConfig struct {
	Service  ServiceConfig  `yaml:"service"`
	History  HistoryConfig  `yaml:"history"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ServiceConfig locates and authenticates against the verification service.
type ServiceConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// HistoryConfig holds history-view defaults.
type HistoryConfig struct {
	PageSize int `yaml:"page_size"`
}

// DefaultsConfig supplies values for flags the user leaves unset: the
// continent used by dev-mode submissions and the team id history is
// filtered by.
type DefaultsConfig struct {
	Continent string `yaml:"continent,omitempty"`
	TeamID    string `yaml:"team_id,omitempty"`
}

// DefaultFileConfig returns the config written on first run.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		History: HistoryConfig{
			PageSize: 20,
		},
	}
}

// DefaultPath returns ~/.kakunin/kakunin.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".kakunin", "kakunin.yaml"), nil
}

// Load reads the config at path, creating a default file first if none
// exists. An empty path means DefaultPath. Environment overrides are
// applied last.
func Load(path string) (*FileConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultFileConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}

	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Service.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Service.BaseURL = v
	}

	return &cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultFileConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// APIConfig converts the file settings into the transport config.
func (c *FileConfig) APIConfig() *api.Config {
	timeout := time.Duration(c.Service.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &api.Config{
		BaseURL: c.Service.BaseURL,
		APIKey:  c.Service.APIKey,
		Timeout: timeout,
	}
}
