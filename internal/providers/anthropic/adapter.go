// Package anthropic implements the Claude adapter over the Anthropic
// Messages REST API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
)

const (
	providerName       = "anthropic"
	defaultBaseURL     = "https://api.anthropic.com"
	defaultModel       = "claude-3-5-haiku-20241022"
	apiVersion         = "2023-06-01"
	defaultHTTPTimeout = 120 * time.Second
	defaultRetryBase   = time.Second
)

var supportedModels = []string{
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"claude-3-opus-20240229",
	"claude-3-haiku-20240307",
}

// Adapter talks to the Anthropic messages endpoint.
type Adapter struct {
	settings providers.Settings

	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int

	httpClient *http.Client
	retryBase  time.Duration
	sleeper    func(time.Duration)

	mu    sync.Mutex
	ready bool
}

// Option customizes the adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		if client != nil {
			a.httpClient = client
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

// New constructs an Anthropic adapter from configuration settings.
func New(settings providers.Settings, opts ...Option) *Adapter {
	timeout := defaultHTTPTimeout
	if seconds := settings.Int("timeout_seconds", 0); seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	adapter := &Adapter{
		settings:    settings,
		apiKey:      settings.String("api_key", ""),
		baseURL:     strings.TrimRight(settings.String("base_url", defaultBaseURL), "/"),
		model:       settings.String("model", defaultModel),
		temperature: settings.Float("temperature", 0.4),
		maxTokens:   settings.Int("max_tokens", 4000),
		httpClient:  &http.Client{Timeout: timeout},
		retryBase:   defaultRetryBase,
	}
	for _, opt := range opts {
		opt(adapter)
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

// Initialize validates configuration and probes the API with a one-token
// message.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	a.ready = false
	a.mu.Unlock()

	if err := a.ValidateConfig(a.settings); err != nil {
		return fmt.Errorf("anthropic initialize: %w", err)
	}
	if _, _, err := a.sendMessage(ctx, messageRequest{
		Model:     a.model,
		MaxTokens: 1,
		Messages:  []message{{Role: "user", Content: "ping"}},
	}); err != nil {
		return fmt.Errorf("anthropic initialize: probe: %w", err)
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
	payload := a.buildPayload(req)
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

		text, tokens, err := a.sendMessage(ctx, payload)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return providers.Failure(providerName, a.model, err.Error())
			}
			var statusErr *statusError
			rateLimited = errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests
			if rateLimited {
				lastErr = fmt.Sprintf("Anthropic rate limit exceeded: %s", err)
			} else {
				lastErr = fmt.Sprintf("Anthropic API error: %s", err)
			}
			continue
		}
		if text = strings.TrimSpace(text); text == "" {
			rateLimited = false
			lastErr = "Empty response from Anthropic"
			continue
		}
		return providers.Succeeded(providerName, a.model, text, tokens)
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

// Schema describes the Anthropic configuration surface.
func (a *Adapter) Schema() providers.Schema {
	return providers.Schema{Fields: []providers.Field{
		{Name: "api_key", Description: "Anthropic API key", Type: providers.FieldString, Required: true},
		{Name: "base_url", Description: "API base URL override", Type: providers.FieldString, Default: defaultBaseURL},
		{Name: "model", Description: "Claude model", Type: providers.FieldString, Enum: supportedModels, Default: defaultModel},
		{Name: "temperature", Description: "Sampling temperature", Type: providers.FieldNumber, Min: 0, Max: 1, Bounded: true, Default: "0.4"},
		{Name: "max_tokens", Description: "Completion token limit", Type: providers.FieldInt, Min: 1, Max: 8192, Bounded: true, Default: "4000"},
		{Name: "timeout_seconds", Description: "HTTP timeout in seconds", Type: providers.FieldInt},
	}}
}

type messageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, strings.TrimSpace(e.Body))
}

func (a *Adapter) buildPayload(req providers.Request) messageRequest {
	var system []string
	for _, instruction := range req.Instructions {
		if instruction = strings.TrimSpace(instruction); instruction != "" {
			system = append(system, instruction)
		}
	}
	if glossary := strings.TrimSpace(req.Glossary); glossary != "" {
		system = append(system, glossary)
	}
	return messageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		System:      strings.Join(system, "\n\n"),
		Messages:    []message{{Role: "user", Content: req.Text}},
	}
}

func (a *Adapter) sendMessage(ctx context.Context, payload messageRequest) (string, int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(encoded))
	if err != nil {
		return "", 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", 0, &statusError{Code: resp.StatusCode, Body: string(body)}
	}

	var decoded messageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", 0, fmt.Errorf("api error %s: %s", decoded.Error.Type, strings.TrimSpace(decoded.Error.Message))
	}
	var builder strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}
	tokens := decoded.Usage.InputTokens + decoded.Usage.OutputTokens
	return builder.String(), tokens, nil
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
