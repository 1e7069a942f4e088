// Package config assembles runtime configuration from environment variables
// and an optional yaml rules file. The rules file pins the per-model label
// mapping and the domain override lists; both are deployment artifacts, not
// code.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verinews/verinews/internal/classify"
	"github.com/verinews/verinews/internal/normalize"
)

// Config holds runtime configuration for the service.
type Config struct {
	ListenAddr string

	// Store
	DatabaseURL string

	// Identity
	JWTSecret string
	JWTExpiry time.Duration

	// Classification backend: "inference" (POST {text} JSON contract) or
	// "openai" (OpenAI-compatible chat endpoint).
	Provider   string
	ModelID    string
	Endpoint   string
	APIKey     string
	LLMBaseURL string

	// Pipeline
	MaxInputChars     int
	BrowserHeadless   bool
	NavigationTimeout time.Duration
	MaxUploadBytes    int64

	RulesPath string
	Rules     Rules

	Verbose bool
}

// Rules is the yaml-pinned rule set: domain overrides, the static fast-path
// list, and the raw-label table for the configured model.
type Rules struct {
	SatireDomains      []string          `yaml:"satireDomains"`
	TrustedDomains     []string          `yaml:"trustedDomains"`
	StaticFirstDomains []string          `yaml:"staticFirstDomains"`
	Labels             map[string]string `yaml:"labels"`
}

// FromEnv builds a Config from the process environment with sensible
// defaults. Flag overrides are applied by the caller.
func FromEnv() Config {
	cfg := Config{
		ListenAddr:        envOr("LISTEN_ADDR", ":5000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiry:         envDuration("JWT_EXPIRY", 24*time.Hour),
		Provider:          envOr("CLASSIFIER_PROVIDER", "inference"),
		ModelID:           envOr("MODEL_ID", "verinews-roberta"),
		Endpoint:          envOr("CLASSIFIER_ENDPOINT", "http://localhost:8000/predict_text"),
		APIKey:            os.Getenv("CLASSIFIER_API_KEY"),
		LLMBaseURL:        os.Getenv("LLM_BASE_URL"),
		MaxInputChars:     envInt("MAX_INPUT_CHARS", normalize.BudgetLargeModel),
		BrowserHeadless:   envBool("BROWSER_HEADLESS", true),
		NavigationTimeout: envDuration("NAVIGATION_TIMEOUT", 30*time.Second),
		MaxUploadBytes:    int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		RulesPath:         os.Getenv("RULES_PATH"),
	}
	return cfg
}

// LoadRules reads the rules file when configured, falling back to defaults.
func (c *Config) LoadRules() error {
	c.Rules = DefaultRules()
	if strings.TrimSpace(c.RulesPath) == "" {
		return nil
	}
	raw, err := os.ReadFile(c.RulesPath)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var fileRules Rules
	if err := yaml.Unmarshal(raw, &fileRules); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	c.Rules = mergeRules(c.Rules, fileRules)
	return nil
}

// LabelTable converts the configured raw-label mapping into the canonical
// table. Unmappable canonical names are rejected so a typo in the rules file
// fails startup instead of silently labeling everything Uncertain.
func (r Rules) LabelTable() (classify.LabelTable, error) {
	if len(r.Labels) == 0 {
		return classify.DefaultLabelTable(), nil
	}
	table := classify.LabelTable{}
	for raw, canonical := range r.Labels {
		label, err := parseCanonical(canonical)
		if err != nil {
			return nil, fmt.Errorf("label mapping %q: %w", raw, err)
		}
		table[strings.ToUpper(strings.TrimSpace(raw))] = label
	}
	return table, nil
}

func parseCanonical(s string) (classify.Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real":
		return classify.LabelReal, nil
	case "fake":
		return classify.LabelFake, nil
	case "satire":
		return classify.LabelSatire, nil
	case "uncertain":
		return classify.LabelUncertain, nil
	}
	return "", fmt.Errorf("unknown canonical label %q", s)
}

// DefaultRules covers well-known satire outlets and wire services so the
// service behaves sanely without a rules file.
func DefaultRules() Rules {
	return Rules{
		SatireDomains: []string{
			"theonion.com",
			"babylonbee.com",
			"clickhole.com",
			"thebeaverton.com",
			"thedailymash.co.uk",
			"newsthump.com",
			"waterfordwhispersnews.com",
		},
		TrustedDomains: []string{
			"reuters.com",
			"apnews.com",
		},
		StaticFirstDomains: []string{
			"wikipedia.org",
			"wikinews.org",
		},
	}
}

func mergeRules(base, override Rules) Rules {
	if len(override.SatireDomains) > 0 {
		base.SatireDomains = override.SatireDomains
	}
	if len(override.TrustedDomains) > 0 {
		base.TrustedDomains = override.TrustedDomains
	}
	if len(override.StaticFirstDomains) > 0 {
		base.StaticFirstDomains = override.StaticFirstDomains
	}
	if len(override.Labels) > 0 {
		base.Labels = override.Labels
	}
	return base
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
