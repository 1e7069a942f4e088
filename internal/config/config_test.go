package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verinews/verinews/internal/classify"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.ListenAddr != ":5000" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.Provider != "inference" {
		t.Fatalf("unexpected provider: %s", cfg.Provider)
	}
	if cfg.NavigationTimeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.NavigationTimeout)
	}
	if !cfg.BrowserHeadless {
		t.Fatalf("headless should default on")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MAX_INPUT_CHARS", "700")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("NAVIGATION_TIMEOUT", "45s")
	cfg := FromEnv()
	if cfg.MaxInputChars != 700 {
		t.Fatalf("env override ignored: %d", cfg.MaxInputChars)
	}
	if cfg.BrowserHeadless {
		t.Fatalf("headless override ignored")
	}
	if cfg.NavigationTimeout != 45*time.Second {
		t.Fatalf("timeout override ignored: %s", cfg.NavigationTimeout)
	}
}

func TestLoadRules_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `satireDomains:
  - satire.example
labels:
  LABEL_0: real
  LABEL_1: fake
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{RulesPath: path}
	if err := cfg.LoadRules(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Rules.SatireDomains) != 1 || cfg.Rules.SatireDomains[0] != "satire.example" {
		t.Fatalf("satire list not overridden: %v", cfg.Rules.SatireDomains)
	}
	// Defaults retained where the file is silent.
	if len(cfg.Rules.TrustedDomains) == 0 {
		t.Fatalf("trusted defaults lost")
	}

	table, err := cfg.Rules.LabelTable()
	if err != nil {
		t.Fatalf("label table: %v", err)
	}
	// The file pins the inverted positional mapping.
	if table.Map("LABEL_0") != classify.LabelReal || table.Map("LABEL_1") != classify.LabelFake {
		t.Fatalf("pinned mapping not honored: %v", table)
	}
}

func TestLoadRules_MissingFileFails(t *testing.T) {
	cfg := Config{RulesPath: "/nonexistent/rules.yaml"}
	if err := cfg.LoadRules(); err == nil {
		t.Fatalf("expected error for missing rules file")
	}
}

func TestLabelTable_RejectsUnknownCanonical(t *testing.T) {
	r := Rules{Labels: map[string]string{"LABEL_0": "genuine"}}
	if _, err := r.LabelTable(); err == nil {
		t.Fatalf("expected error for unknown canonical label")
	}
}

func TestLabelTable_EmptyUsesDefault(t *testing.T) {
	table, err := Rules{}.LabelTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Map("REAL") != classify.LabelReal {
		t.Fatalf("default table missing REAL mapping")
	}
}
