package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir     string `toml:"input_dir"`
	OutputDir    string `toml:"output_dir"`
	LogDir       string `toml:"log_dir"`
	GlossaryDir  string `toml:"glossary_dir"`
	DatabasePath string `toml:"database_path"`
	LockPath     string `toml:"lock_path"`
}

// Provider holds one provider's enable flag and free-form settings.
type Provider struct {
	Enabled  bool              `toml:"enabled"`
	Settings map[string]string `toml:"settings"`
}

// Translation contains provider selection and language settings.
type Translation struct {
	DefaultProvider string   `toml:"default_provider"`
	FallbackOrder   []string `toml:"fallback_order"`
	SourceLanguage  string   `toml:"source_language"`
}

// Retry contains the shared retry policy.
type Retry struct {
	MaxRetries         int     `toml:"max_retries"`
	BaseDelaySeconds   float64 `toml:"base_delay_seconds"`
	ExponentialBackoff bool    `toml:"exponential_backoff"`
}

// Workflow contains pipeline timing and validation thresholds.
type Workflow struct {
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	// SizeDeviationPercent is the percent difference beyond which a
	// translation is considered suspicious.
	SizeDeviationPercent float64 `toml:"size_deviation_percent"`
	// SizeDeviationKB is the absolute size difference in KB that independently
	// triggers a retry.
	SizeDeviationKB float64 `toml:"size_deviation_kb"`
	// SizeRetryLimit is how many re-translations a suspicious file gets.
	SizeRetryLimit int `toml:"size_retry_limit"`
	// SizeRetryBaseSeconds seeds the escalating waits between re-translations.
	SizeRetryBaseSeconds int `toml:"size_retry_base_seconds"`
	GlossaryDelaySeconds int `toml:"glossary_delay_seconds"`
	ProofingMinSizeBytes int `toml:"proofing_min_size_bytes"`
	MaxChapterChunkBytes int `toml:"max_chapter_chunk_bytes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: input/output/glossary/log directories and database location
//   - Translation: default provider, fallback order, source language
//   - Providers: per-provider enable flag and free-form settings
//   - Retry: shared retry policy for provider calls and fallback delays
//   - Workflow: request timeout and size-deviation thresholds
//   - Logging: log format and level
type Config struct {
	Paths       Paths               `toml:"paths"`
	Translation Translation         `toml:"translation"`
	Providers   map[string]Provider `toml:"providers"`
	Retry       Retry               `toml:"retry"`
	Workflow    Workflow            `toml:"workflow"`
	Logging     Logging             `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/geminitl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("geminitl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.GlossaryDir, err = expandPath(c.Paths.GlossaryDir); err != nil {
		return err
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return err
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return err
	}

	c.Translation.DefaultProvider = strings.ToLower(strings.TrimSpace(c.Translation.DefaultProvider))
	for i, name := range c.Translation.FallbackOrder {
		c.Translation.FallbackOrder[i] = strings.ToLower(strings.TrimSpace(name))
	}
	c.Translation.SourceLanguage = CanonicalLanguage(c.Translation.SourceLanguage)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if _, err := providers.ParseKind(c.Translation.DefaultProvider); err != nil {
		return fmt.Errorf("translation.default_provider: %w", err)
	}
	for _, name := range c.Translation.FallbackOrder {
		if _, err := providers.ParseKind(name); err != nil {
			return fmt.Errorf("translation.fallback_order: %w", err)
		}
	}
	for name := range c.Providers {
		if _, err := providers.ParseKind(name); err != nil {
			return fmt.Errorf("providers: %w", err)
		}
	}
	if c.Retry.MaxRetries <= 0 {
		return errors.New("retry.max_retries must be positive")
	}
	if c.Retry.BaseDelaySeconds <= 0 {
		return errors.New("retry.base_delay_seconds must be positive")
	}
	if c.Workflow.RequestTimeoutSeconds <= 0 {
		return errors.New("workflow.request_timeout_seconds must be positive")
	}
	if c.Workflow.SizeDeviationPercent <= 0 || c.Workflow.SizeDeviationKB <= 0 {
		return errors.New("workflow size deviation thresholds must be positive")
	}
	if c.Workflow.SizeRetryLimit < 0 {
		return errors.New("workflow.size_retry_limit must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// EnabledProviders returns the enabled provider names in fallback order, with
// any remaining enabled providers appended in kind order.
func (c *Config) EnabledProviders() []string {
	seen := map[string]bool{}
	var names []string
	appendName := func(name string) {
		provider, ok := c.Providers[name]
		if ok && provider.Enabled && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	appendName(c.Translation.DefaultProvider)
	for _, name := range c.Translation.FallbackOrder {
		appendName(name)
	}
	for _, kind := range providers.Kinds() {
		appendName(string(kind))
	}
	return names
}

// ProviderSettings returns the settings map for a provider, never nil.
func (c *Config) ProviderSettings(name string) providers.Settings {
	if provider, ok := c.Providers[name]; ok && provider.Settings != nil {
		settings := make(providers.Settings, len(provider.Settings))
		for k, v := range provider.Settings {
			settings[k] = v
		}
		return settings
	}
	return providers.Settings{}
}

// EnsureDirectories creates the directories the pipeline needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InputDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.GlossaryDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.DatabasePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}
	return nil
}

// CanonicalLanguage normalizes a source language given as a BCP-47 tag or an
// English language name into the English display name ("ja" -> "Japanese").
// Unrecognized values are passed through trimmed.
func CanonicalLanguage(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "Japanese"
	}
	if tag, err := language.Parse(trimmed); err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed[:1]) + trimmed[1:]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
