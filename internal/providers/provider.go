package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind identifies a supported provider implementation. The set is closed;
// adding a provider means adding a constant here and a constructor in the
// registry package.
type Kind string

const (
	KindGemini    Kind = "gemini"
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
)

// Kinds returns every supported provider kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindGemini, KindOpenAI, KindAnthropic}
}

// ParseKind validates a provider name from configuration.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Kinds() {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown provider kind %q", value)
}

// Settings carries the free-form provider configuration from the config file.
type Settings map[string]string

// Request is a single translation call.
type Request struct {
	Text           string
	SourceLanguage string
	Instructions   []string
	Glossary       string
	MaxRetries     int
}

// Prompt assembles the full prompt text: instructions, then glossary, then
// the chapter text, joined by blank lines.
func (r Request) Prompt() string {
	parts := make([]string, 0, len(r.Instructions)+2)
	for _, instruction := range r.Instructions {
		if instruction = strings.TrimSpace(instruction); instruction != "" {
			parts = append(parts, instruction)
		}
	}
	if glossary := strings.TrimSpace(r.Glossary); glossary != "" {
		parts = append(parts, glossary)
	}
	parts = append(parts, r.Text)
	return strings.Join(parts, "\n\n")
}

// Result is the tagged outcome of a translation call. Expected provider
// failures are reported through Success/Err, never as Go errors; adapters
// reserve panics and error returns for programming mistakes.
type Result struct {
	Text       string
	Success    bool
	Err        string
	Provider   string
	Model      string
	TokensUsed int
	Timestamp  time.Time
}

// Failure builds an unsuccessful result carrying the provider identity.
func Failure(provider, model, message string) Result {
	return Result{
		Success:   false,
		Err:       message,
		Provider:  provider,
		Model:     model,
		Timestamp: time.Now(),
	}
}

// Succeeded builds a successful result.
func Succeeded(provider, model, text string, tokens int) Result {
	return Result{
		Text:       text,
		Success:    true,
		Provider:   provider,
		Model:      model,
		TokensUsed: tokens,
		Timestamp:  time.Now(),
	}
}

// Adapter is the uniform surface every provider implements.
//
// Initialize is idempotent; a failed Initialize marks the adapter not ready
// and returns the cause. Translate never returns a Go error for expected
// failures; it reports them through the Result.
type Adapter interface {
	Name() string
	Model() string
	Ready() bool
	Initialize(ctx context.Context) error
	Translate(ctx context.Context, req Request) Result
	ValidateConfig(settings Settings) error
	Schema() Schema
}

// Status summarizes an adapter for operator-facing output.
type Status struct {
	Name        string
	Enabled     bool
	Initialized bool
	Available   bool
	Model       string
}
