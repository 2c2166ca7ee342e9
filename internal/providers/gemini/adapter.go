// Package gemini implements the Gemini adapter over the Generative Language
// REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
)

const (
	providerName       = "gemini"
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.0-flash"
	defaultHTTPTimeout = 120 * time.Second
	defaultRetryBase   = time.Second
)

var supportedModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-exp",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
	"gemini-pro",
}

// Adapter talks to the Gemini generateContent endpoint.
type Adapter struct {
	settings providers.Settings

	apiKey      string
	baseURL     string
	model       string
	temperature float64
	topP        float64
	topK        int

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

// New constructs a Gemini adapter from configuration settings.
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
		topP:        settings.Float("top_p", 0.95),
		topK:        settings.Int("top_k", 40),
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

// Initialize validates configuration and probes the model endpoint. It is
// idempotent; a failure leaves the adapter not ready.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	a.ready = false
	a.mu.Unlock()

	if err := a.ValidateConfig(a.settings); err != nil {
		return fmt.Errorf("gemini initialize: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s?key=%s", a.baseURL, url.PathEscape(a.model), url.QueryEscape(a.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gemini initialize: new request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini initialize: probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gemini initialize: probe http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
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
	prompt := req.Prompt()
	var lastErr string

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := providers.AttemptBackoff(a.retryBase, attempt-1)
			if strings.Contains(strings.ToLower(lastErr), "rate limit") {
				delay = providers.RateLimitBackoff(a.retryBase, attempt-1)
			}
			if err := a.sleep(ctx, delay); err != nil {
				return providers.Failure(providerName, a.model, err.Error())
			}
		}

		text, err := a.generateContent(ctx, prompt)
		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return providers.Succeeded(providerName, a.model, text, 0)
			}
			lastErr = "Empty response from Gemini"
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return providers.Failure(providerName, a.model, err.Error())
		}
		lastErr = fmt.Sprintf("Gemini API error: %s", err)
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

// Schema describes the Gemini configuration surface.
func (a *Adapter) Schema() providers.Schema {
	return providers.Schema{Fields: []providers.Field{
		{Name: "api_key", Description: "Generative Language API key", Type: providers.FieldString, Required: true},
		{Name: "base_url", Description: "API base URL override", Type: providers.FieldString, Default: defaultBaseURL},
		{Name: "model", Description: "Gemini model", Type: providers.FieldString, Enum: supportedModels, Default: defaultModel},
		{Name: "temperature", Description: "Sampling temperature", Type: providers.FieldNumber, Min: 0, Max: 2, Bounded: true, Default: "0.4"},
		{Name: "top_p", Description: "Top-p sampling parameter", Type: providers.FieldNumber, Min: 0, Max: 1, Bounded: true, Default: "0.95"},
		{Name: "top_k", Description: "Top-k sampling parameter", Type: providers.FieldInt, Min: 1, Max: 100, Bounded: true, Default: "40"},
		{Name: "timeout_seconds", Description: "HTTP timeout in seconds", Type: providers.FieldInt},
	}}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (a *Adapter) generateContent(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature: a.temperature,
			TopP:        a.topP,
			TopK:        a.topK,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.baseURL, url.PathEscape(a.model), url.QueryEscape(a.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("rate limit exceeded: http 429: %s", strings.TrimSpace(string(body)))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("api error %d: %s", decoded.Error.Code, strings.TrimSpace(decoded.Error.Message))
	}
	var builder strings.Builder
	for _, candidate := range decoded.Candidates {
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
		if builder.Len() > 0 {
			break
		}
	}
	return builder.String(), nil
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
