package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AZAnthonyN/GeminiTL/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved = %q", resolved)
	}
	if cfg.Translation.DefaultProvider != "gemini" {
		t.Fatalf("default provider = %q", cfg.Translation.DefaultProvider)
	}
	if cfg.Retry.MaxRetries != 3 || !cfg.Retry.ExponentialBackoff {
		t.Fatalf("retry defaults = %+v", cfg.Retry)
	}
	if cfg.Workflow.SizeDeviationPercent != 115.0 || cfg.Workflow.SizeDeviationKB != 7.0 {
		t.Fatalf("size thresholds = %+v", cfg.Workflow)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
[translation]
default_provider = " OpenAI "
fallback_order = ["OPENAI", "gemini"]
source_language = "ja"

[providers.openai]
enabled = true
[providers.openai.settings]
api_key = "sk-test"
model = "gpt-4o"
`)
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("existing file reported missing")
	}
	if cfg.Translation.DefaultProvider != "openai" {
		t.Fatalf("default provider = %q", cfg.Translation.DefaultProvider)
	}
	if cfg.Translation.SourceLanguage != "Japanese" {
		t.Fatalf("source language = %q", cfg.Translation.SourceLanguage)
	}
	settings := cfg.ProviderSettings("openai")
	if settings["api_key"] != "sk-test" || settings["model"] != "gpt-4o" {
		t.Fatalf("settings = %v", settings)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
[translation]
default_provider = "cohere"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := writeConfig(t, `
[logging]
format = "xml"
`)
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging.format error, got %v", err)
	}
}

func TestLoadRejectsNonPositiveRetry(t *testing.T) {
	path := writeConfig(t, `
[retry]
max_retries = 0
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected retry validation error")
	}
}

func TestEnabledProvidersOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Translation.DefaultProvider = "openai"
	cfg.Translation.FallbackOrder = []string{"openai", "gemini", "anthropic"}
	cfg.Providers = map[string]config.Provider{
		"gemini":    {Enabled: true},
		"openai":    {Enabled: true},
		"anthropic": {Enabled: false},
	}
	got := cfg.EnabledProviders()
	if len(got) != 2 || got[0] != "openai" || got[1] != "gemini" {
		t.Fatalf("EnabledProviders = %v", got)
	}
}

func TestCanonicalLanguage(t *testing.T) {
	cases := map[string]string{
		"":         "Japanese",
		"ja":       "Japanese",
		"ko":       "Korean",
		"zh":       "Chinese",
		"Japanese": "Japanese",
		"korean":   "Korean",
	}
	for in, want := range cases {
		if got := config.CanonicalLanguage(in); got != want {
			t.Fatalf("CanonicalLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.GlossaryDir = filepath.Join(base, "glossaries")
	cfg.Paths.DatabasePath = filepath.Join(base, "state", "jobs.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.InputDir, cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.GlossaryDir, filepath.Join(base, "state")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("directory %q not created: %v", dir, err)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample not found after CreateSample")
	}
	if cfg.Translation.DefaultProvider != "gemini" {
		t.Fatalf("sample default provider = %q", cfg.Translation.DefaultProvider)
	}
}
