package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakunin.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected default base url %q", cfg.Service.BaseURL)
	}
	if cfg.History.PageSize != 20 {
		t.Errorf("unexpected default page size %d", cfg.History.PageSize)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file not written: %v", err)
	}
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakunin.yaml")
	content := []byte("service:\n  base_url: https://verify.internal\n  api_key: k-123\n  timeout_seconds: 5\nhistory:\n  page_size: 50\ndefaults:\n  continent: EU\n  team_id: team-3\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "https://verify.internal" {
		t.Errorf("base url not read, got %q", cfg.Service.BaseURL)
	}
	if cfg.Service.APIKey != "k-123" {
		t.Errorf("api key not read, got %q", cfg.Service.APIKey)
	}
	if cfg.History.PageSize != 50 {
		t.Errorf("page size not read, got %d", cfg.History.PageSize)
	}
	if cfg.Defaults.Continent != "EU" || cfg.Defaults.TeamID != "team-3" {
		t.Errorf("defaults not read, got %+v", cfg.Defaults)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakunin.yaml")
	if err := os.WriteFile(path, []byte("service:\n  api_key: only-key\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.APIKey != "only-key" {
		t.Errorf("api key not read, got %q", cfg.Service.APIKey)
	}
	if cfg.Service.TimeoutSeconds != 30 {
		t.Errorf("missing field must keep its default, got %d", cfg.Service.TimeoutSeconds)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakunin.yaml")
	if err := os.WriteFile(path, []byte("service:\n  api_key: from-file\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvAPIKey, "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.APIKey != "from-env" {
		t.Errorf("env must win over file, got %q", cfg.Service.APIKey)
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakunin.yaml")
	if err := os.WriteFile(path, []byte("service: [not a map"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAPIConfig_Conversion(t *testing.T) {
	cfg := DefaultFileConfig()
	cfg.Service.APIKey = "k"
	cfg.Service.TimeoutSeconds = 5

	apiCfg := cfg.APIConfig()
	if apiCfg.Timeout.Seconds() != 5 {
		t.Errorf("expected 5s timeout, got %s", apiCfg.Timeout)
	}
	if apiCfg.APIKey != "k" || apiCfg.BaseURL != cfg.Service.BaseURL {
		t.Errorf("unexpected conversion: %+v", apiCfg)
	}
}
