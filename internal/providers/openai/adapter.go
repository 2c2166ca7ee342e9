// Package openai implements the OpenAI adapter on top of the go-openai SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
)

const (
	providerName       = "openai"
	defaultModel       = "gpt-4o-mini"
	defaultHTTPTimeout = 120 * time.Second
	defaultRetryBase   = time.Second
)

var supportedModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-4",
	"gpt-3.5-turbo",
}

// chatClient is the slice of the go-openai client the adapter uses; tests
// substitute a fake.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (goopenai.ModelsList, error)
}

// Adapter drives OpenAI chat completions for translation.
type Adapter struct {
	settings providers.Settings

	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int

	client    chatClient
	retryBase time.Duration
	sleeper   func(time.Duration)

	mu    sync.Mutex
	ready bool
}

// Option customizes the adapter.
type Option func(*Adapter)

// WithClient substitutes the chat client (useful for tests).
func WithClient(client chatClient) Option {
	return func(a *Adapter) {
		if client != nil {
			a.client = client
		}
	}
}

// WithRetryBase overrides the base delay between attempts.
func WithRetryBase(base time.Duration) Option {
	return func(a *Adapter) {
		if base > 0 {
			a.retryBase = base
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(a *Adapter) {
		if sleeper != nil {
			a.sleeper = sleeper
		}
	}
}

// New constructs an OpenAI adapter from configuration settings.
func New(settings providers.Settings, opts ...Option) *Adapter {
	adapter := &Adapter{
		settings:    settings,
		apiKey:      settings.String("api_key", ""),
		baseURL:     settings.String("base_url", ""),
		model:       settings.String("model", defaultModel),
		temperature: float32(settings.Float("temperature", 0.4)),
		maxTokens:   settings.Int("max_tokens", 4000),
		retryBase:   defaultRetryBase,
	}
	for _, opt := range opts {
		opt(adapter)
	}
	if adapter.client == nil && adapter.apiKey != "" {
		cfg := goopenai.DefaultConfig(adapter.apiKey)
		if adapter.baseURL != "" {
			cfg.BaseURL = adapter.baseURL
		}
		timeout := defaultHTTPTimeout
		if seconds := settings.Int("timeout_seconds", 0); seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
		adapter.client = goopenai.NewClientWithConfig(cfg)
	}
	return adapter
}

// Name returns the provider name.
func (a *Adapter) Name() string { return providerName }

// Model returns the configured model.
func (a *Adapter) Model() string { return a.model }

// Ready reports whether Initialize succeeded.
func (a *Adapter) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

// Initialize validates configuration and probes the API with a model listing.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	a.ready = false
	a.mu.Unlock()

	if err := a.ValidateConfig(a.settings); err != nil {
		return fmt.Errorf("openai initialize: %w", err)
	}
	if a.client == nil {
		return errors.New("openai initialize: client not configured")
	}
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai initialize: probe: %w", err)
	}

	a.mu.Lock()
	a.ready = true
	a.mu.Unlock()
	return nil
}

// Translate runs one translation request with per-attempt retries.
func (a *Adapter) Translate(ctx context.Context, req providers.Request) providers.Result {
	if !a.Ready() {
		return providers.Failure(providerName, a.model, "Provider not initialized")
	}

	attempts := req.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	messages := a.buildMessages(req)
	var lastErr string
	rateLimited := false

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := providers.AttemptBackoff(a.retryBase, attempt-1)
			if rateLimited {
				delay = providers.RateLimitBackoff(a.retryBase, attempt-1)
			}
			if err := a.sleep(ctx, delay); err != nil {
				return providers.Failure(providerName, a.model, err.Error())
			}
		}

		resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       a.model,
			Messages:    messages,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return providers.Failure(providerName, a.model, err.Error())
			}
			rateLimited = isRateLimit(err)
			if rateLimited {
				lastErr = fmt.Sprintf("OpenAI rate limit exceeded: %s", err)
			} else {
				lastErr = fmt.Sprintf("OpenAI API error: %s", err)
			}
			continue
		}

		text := ""
		if len(resp.Choices) > 0 {
			text = strings.TrimSpace(resp.Choices[0].Message.Content)
		}
		if text == "" {
			rateLimited = false
			lastErr = "Empty response from OpenAI"
			continue
		}
		return providers.Succeeded(providerName, a.model, text, resp.Usage.TotalTokens)
	}
	if lastErr == "" {
		lastErr = "Max retries exceeded"
	}
	return providers.Failure(providerName, a.model, lastErr)
}

// ValidateConfig checks the settings against the schema.
func (a *Adapter) ValidateConfig(settings providers.Settings) error {
	return a.Schema().Validate(settings)
}

// Schema describes the OpenAI configuration surface.
func (a *Adapter) Schema() providers.Schema {
	return providers.Schema{Fields: []providers.Field{
		{Name: "api_key", Description: "OpenAI API key", Type: providers.FieldString, Required: true},
		{Name: "base_url", Description: "API base URL override", Type: providers.FieldString},
		{Name: "model", Description: "OpenAI model", Type: providers.FieldString, Enum: supportedModels, Default: defaultModel},
		{Name: "temperature", Description: "Sampling temperature", Type: providers.FieldNumber, Min: 0, Max: 2, Bounded: true, Default: "0.4"},
		{Name: "max_tokens", Description: "Completion token limit", Type: providers.FieldInt, Min: 1, Max: 8000, Bounded: true, Default: "4000"},
		{Name: "timeout_seconds", Description: "HTTP timeout in seconds", Type: providers.FieldInt},
	}}
}

func (a *Adapter) buildMessages(req providers.Request) []goopenai.ChatCompletionMessage {
	var system []string
	for _, instruction := range req.Instructions {
		if instruction = strings.TrimSpace(instruction); instruction != "" {
			system = append(system, instruction)
		}
	}
	if glossary := strings.TrimSpace(req.Glossary); glossary != "" {
		system = append(system, glossary)
	}
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if len(system) > 0 {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: strings.Join(system, "\n\n"),
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Text,
	})
	return messages
}

func isRateLimit(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

func (a *Adapter) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if a.sleeper != nil {
		a.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
