// Package fallback coordinates translation across multiple provider adapters,
// trying them in order with error-aware delays between attempts.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
)

// Config captures the orchestration policy.
type Config struct {
	// DefaultProvider is tried first when no preferred provider is given.
	DefaultProvider string
	// FallbackOrder lists providers to try after the primary fails.
	FallbackOrder []string
	// MaxRetries is passed through to each adapter's per-attempt retry loop.
	MaxRetries int
	// BaseDelay seeds both per-attempt backoff and inter-provider delays.
	BaseDelay time.Duration
	// ExponentialBackoff selects exponential rather than flat default delays
	// between providers.
	ExponentialBackoff bool
}

// Orchestrator owns a set of adapters and the fallback policy between them.
type Orchestrator struct {
	cfg      Config
	adapters []providers.Adapter
	byName   map[string]providers.Adapter
	logger   *slog.Logger

	mu          sync.Mutex
	initialized map[string]bool

	sleep func(time.Duration, *control.Token) error
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logging.NewComponentLogger(logger, "fallback")
		}
	}
}

// WithSleeper overrides inter-provider sleeps (useful for tests).
func WithSleeper(sleep func(time.Duration, *control.Token) error) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// New builds an orchestrator over the supplied adapters. Adapter order is
// preserved for status reporting; try order comes from the config.
func New(cfg Config, adapters []providers.Adapter, opts ...Option) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	o := &Orchestrator{
		cfg:         cfg,
		adapters:    adapters,
		byName:      make(map[string]providers.Adapter, len(adapters)),
		initialized: make(map[string]bool, len(adapters)),
		logger:      logging.NewNop(),
		sleep:       control.Sleep,
	}
	for _, adapter := range adapters {
		o.byName[adapter.Name()] = adapter
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize initializes every adapter, recording which ones are usable.
// Individual failures are logged and skipped; they do not abort the run.
func (o *Orchestrator) Initialize(ctx context.Context) {
	for _, adapter := range o.adapters {
		err := adapter.Initialize(ctx)
		o.mu.Lock()
		o.initialized[adapter.Name()] = err == nil
		o.mu.Unlock()
		if err != nil {
			o.logger.Warn("provider failed to initialize",
				logging.String(logging.FieldProvider, adapter.Name()), logging.Error(err))
			continue
		}
		o.logger.Info("provider initialized",
			logging.String(logging.FieldProvider, adapter.Name()),
			logging.String("model", adapter.Model()))
	}
}

// Available returns the names of initialized adapters in registration order.
func (o *Orchestrator) Available() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var names []string
	for _, adapter := range o.adapters {
		if o.initialized[adapter.Name()] {
			names = append(names, adapter.Name())
		}
	}
	return names
}

// Get returns the named adapter when it is initialized.
func (o *Orchestrator) Get(name string) providers.Adapter {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized[name] {
		return o.byName[name]
	}
	return nil
}

// Translate tries providers in fallback order until one succeeds. The
// preferred provider, when available, is tried first; otherwise the default
// provider leads. Expected failures come back in the Result, never as panics.
func (o *Orchestrator) Translate(ctx context.Context, req providers.Request, preferred string, token *control.Token) providers.Result {
	order := o.tryOrder(preferred)
	if len(order) == 0 {
		return providers.Failure("None", "", "No available providers")
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = o.cfg.MaxRetries
	}

	lastError := "Unknown error"
	for i, name := range order {
		adapter := o.Get(name)
		if adapter == nil {
			continue
		}
		o.logger.Info("attempting translation",
			logging.String(logging.FieldProvider, name),
			logging.Int(logging.FieldAttempt, i+1),
			logging.Int("providers", len(order)))

		result := adapter.Translate(ctx, req)
		if result.Success {
			o.logger.Info("translation succeeded",
				logging.String(logging.FieldProvider, name))
			return result
		}
		o.logger.Warn("translation failed",
			logging.String(logging.FieldProvider, name),
			logging.String("reason", result.Err))
		lastError = result.Err

		if i < len(order)-1 {
			delay := o.Delay(result.Err, i)
			if delay > 0 {
				o.logger.Info("waiting before next provider",
					logging.Duration("delay", delay))
				if err := o.sleep(delay, token); err != nil {
					return providers.Failure("Multiple", "", err.Error())
				}
			}
		}
	}
	return providers.Failure("Multiple", "", fmt.Sprintf("All providers failed. Last error: %s", lastError))
}

// TranslateWith uses exactly one provider with no fallback.
func (o *Orchestrator) TranslateWith(ctx context.Context, name string, req providers.Request) providers.Result {
	adapter := o.Get(name)
	if adapter == nil {
		return providers.Failure(name, "", fmt.Sprintf("Provider %s not available", name))
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = o.cfg.MaxRetries
	}
	return adapter.Translate(ctx, req)
}

// Reinitialize re-runs Initialize for one adapter, refreshing its usable flag.
func (o *Orchestrator) Reinitialize(ctx context.Context, name string) error {
	adapter, ok := o.byName[name]
	if !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	err := adapter.Initialize(ctx)
	o.mu.Lock()
	o.initialized[name] = err == nil
	o.mu.Unlock()
	return err
}

// ReinitializeAll re-runs Initialize for every adapter.
func (o *Orchestrator) ReinitializeAll(ctx context.Context) {
	o.Initialize(ctx)
}

// Status reports the current state of every adapter in registration order.
func (o *Orchestrator) Status() []providers.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	statuses := make([]providers.Status, 0, len(o.adapters))
	for _, adapter := range o.adapters {
		statuses = append(statuses, providers.Status{
			Name:        adapter.Name(),
			Enabled:     true,
			Initialized: o.initialized[adapter.Name()],
			Available:   o.initialized[adapter.Name()] && adapter.Ready(),
			Model:       adapter.Model(),
		})
	}
	return statuses
}

// tryOrder computes the provider order: preferred (or default) first, then
// the fallback list minus the leader, filtered to initialized adapters.
func (o *Orchestrator) tryOrder(preferred string) []string {
	available := map[string]bool{}
	for _, name := range o.Available() {
		available[name] = true
	}

	var order []string
	lead := ""
	switch {
	case preferred != "" && available[preferred]:
		lead = preferred
	case available[o.cfg.DefaultProvider]:
		lead = o.cfg.DefaultProvider
	}
	if lead != "" {
		order = append(order, lead)
	}
	for _, name := range o.cfg.FallbackOrder {
		if name != lead {
			order = append(order, name)
		}
	}

	filtered := order[:0]
	seen := map[string]bool{}
	for _, name := range order {
		if available[name] && !seen[name] {
			filtered = append(filtered, name)
			seen[name] = true
		}
	}
	return filtered
}

// Delay classifies a provider failure and returns how long to wait before
// trying the next provider. attemptIndex is 0-based.
func (o *Orchestrator) Delay(errMessage string, attemptIndex int) time.Duration {
	base := o.cfg.BaseDelay
	lower := strings.ToLower(errMessage)

	if containsAny(lower, "rate limit", "quota", "throttle") {
		return base * 3 * time.Duration(attemptIndex+1)
	}
	if containsAny(lower, "auth", "key", "credential", "permission") {
		return base / 2
	}
	if containsAny(lower, "api", "server", "network", "timeout") {
		return base * 2
	}
	if o.cfg.ExponentialBackoff {
		return base * (1 << attemptIndex)
	}
	return base
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
