package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Sources) == 0 {
		t.Fatal("Default() has no sources")
	}
	if cfg.Fetch.MaxRetries != 3 {
		t.Errorf("Default() max_retries = %d, want 3", cfg.Fetch.MaxRetries)
	}
	if cfg.Snapshot.Dir != "data" {
		t.Errorf("Default() snapshot dir = %q, want \"data\"", cfg.Snapshot.Dir)
	}
	if cfg.Report.Mode != "cycle" {
		t.Errorf("Default() report mode = %q, want \"cycle\"", cfg.Report.Mode)
	}

	seen := make(map[string]bool)
	for _, src := range cfg.Sources {
		if src.ID == "" || src.Store == "" || src.URL == "" {
			t.Errorf("source %+v missing required fields", src)
		}
		if seen[src.ID] {
			t.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
fetch:
  max_retries: 5
snapshot:
  dir: /tmp/pokeca
notify:
  enabled: true
  chat_id: 123456
report:
  enabled: true
  spreadsheet_url: https://docs.google.com/spreadsheets/d/abc123/edit
  mode: append
sources:
  - id: testsite
    store: テスト
    url: https://example.com/search
    base_url: https://example.com
    kind: lottery
    needs_browser: true
    wait_selector: ".item"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Fetch.MaxRetries != 5 {
		t.Errorf("max_retries = %d, want 5", cfg.Fetch.MaxRetries)
	}
	// Unset tunables keep their defaults.
	if cfg.Fetch.TimeoutSeconds != 30 {
		t.Errorf("timeout_seconds = %d, want default 30", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Snapshot.Dir != "/tmp/pokeca" {
		t.Errorf("snapshot dir = %q, want /tmp/pokeca", cfg.Snapshot.Dir)
	}
	if !cfg.Notify.Enabled || cfg.Notify.ChatID != 123456 {
		t.Errorf("notify = %+v, want enabled with chat_id 123456", cfg.Notify)
	}
	if cfg.Report.Mode != "append" {
		t.Errorf("report mode = %q, want \"append\"", cfg.Report.Mode)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].ID != "testsite" {
		t.Errorf("sources = %+v, want the single configured source", cfg.Sources)
	}
	if !cfg.Sources[0].NeedsBrowser {
		t.Error("needs_browser not parsed")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() on missing file should return an error")
	}
}

func TestHeuristicKeywords(t *testing.T) {
	cfg := Default()
	cfg.Keywords.Product = []string{"カスタム"}

	kw := cfg.HeuristicKeywords()
	if len(kw.Product) != 1 || kw.Product[0] != "カスタム" {
		t.Errorf("HeuristicKeywords() product = %v, want the override", kw.Product)
	}
	// Classes without overrides keep the defaults.
	if len(kw.Active) == 0 {
		t.Error("HeuristicKeywords() active keywords empty, want defaults")
	}
}
