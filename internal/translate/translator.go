// Package translate builds provider-ready translation requests from chapter
// text: image-tag placeholder handling, glossary assembly, and the primary
// then simplified-fallback instruction strategy.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
	"github.com/AZAnthonyN/GeminiTL/internal/textutil"
)

// Engine is the slice of the fallback orchestrator the translator needs.
type Engine interface {
	Translate(ctx context.Context, req providers.Request, preferred string, token *control.Token) providers.Result
	Available() []string
}

// GlossarySource supplies the glossary text attached to every request.
type GlossarySource interface {
	NameGlossary() string
	ContextGlossary() string
}

// Translator turns chapter text into English through the provider engine.
type Translator struct {
	engine        Engine
	glossaries    GlossarySource
	sourceLang    string
	preferred     string
	maxChunkBytes int
	logger        *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the translator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithPreferredProvider pins requests to a single provider instead of the
// fallback chain.
func WithPreferredProvider(name string) Option {
	return func(t *Translator) {
		t.preferred = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithMaxChunkBytes splits chapters larger than the limit into line-aligned
// chunks translated separately. Zero disables chunking.
func WithMaxChunkBytes(maxBytes int) Option {
	return func(t *Translator) {
		if maxBytes > 0 {
			t.maxChunkBytes = maxBytes
		}
	}
}

// New creates a Translator. glossaries may be nil when no glossary exists yet.
func New(engine Engine, glossaries GlossarySource, sourceLang string, opts ...Option) *Translator {
	t := &Translator{
		engine:     engine,
		glossaries: glossaries,
		sourceLang: sourceLang,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GlossaryText assembles the name and context glossaries into the block sent
// with each request. Empty when no glossary content exists.
func (t *Translator) GlossaryText() string {
	if t.glossaries == nil {
		return ""
	}
	var parts []string
	if names := strings.TrimSpace(t.glossaries.NameGlossary()); names != "" {
		parts = append(parts, "Character Names:\n"+names)
	}
	if terms := strings.TrimSpace(t.glossaries.ContextGlossary()); terms != "" {
		parts = append(parts, "Context Terms:\n"+terms)
	}
	return strings.Join(parts, "\n\n")
}

// Translate sends text through the engine, trying the primary instruction set
// first and the simplified fallback set once if it fails. Image tags are
// replaced with placeholders for the round trip and restored afterwards;
// chapters beyond the chunk limit are split on line boundaries and translated
// piecewise.
func (t *Translator) Translate(ctx context.Context, text string, token *control.Token) (string, error) {
	if token.Cancelled() {
		return "", services.ErrCancelled
	}

	withPlaceholders, tags := textutil.ExtractImageTags(text)
	glossaryText := t.GlossaryText()
	promptProvider := t.promptProvider()

	chunks := []string{withPlaceholders}
	if t.maxChunkBytes > 0 && len(withPlaceholders) > t.maxChunkBytes {
		chunks = textutil.SplitIntoChunks(withPlaceholders, t.maxChunkBytes)
		t.logger.Info("chapter split for translation",
			logging.Int("chunks", len(chunks)),
			logging.Int("bytes", len(withPlaceholders)))
	}

	parts := make([]string, 0, len(chunks))
	var result providers.Result
	for _, chunk := range chunks {
		var err error
		result, err = t.translateChunk(ctx, chunk, glossaryText, promptProvider, token)
		if err != nil {
			return "", err
		}
		parts = append(parts, result.Text)
	}
	joined := strings.Join(parts, "\n")

	translated := textutil.RestoreImageTags(joined, tags)
	if missing := textutil.MissingPlaceholders(withPlaceholders, joined); len(missing) > 0 {
		t.logger.Warn("translation dropped image placeholders",
			logging.Int("missing", len(missing)),
			logging.String(logging.FieldProvider, result.Provider))
	}
	t.logger.Info("translation completed",
		logging.String(logging.FieldProvider, result.Provider),
		logging.String("model", result.Model))
	return translated, nil
}

func (t *Translator) translateChunk(ctx context.Context, chunk, glossaryText, promptProvider string, token *control.Token) (providers.Result, error) {
	t.logger.Info("attempting translation with primary instructions",
		logging.String(logging.FieldProvider, promptProvider))
	result := t.attempt(ctx, chunk, PrimaryPrompt(t.sourceLang, promptProvider), glossaryText, "primary", token)
	if !result.Success {
		if token.Cancelled() {
			return result, services.ErrCancelled
		}
		t.logger.Warn("primary instructions failed, trying fallback instructions",
			logging.String("error", result.Err))
		result = t.attempt(ctx, chunk, FallbackPrompt(t.sourceLang, promptProvider), glossaryText, "fallback", token)
	}
	if !result.Success {
		if token.Cancelled() {
			return result, services.ErrCancelled
		}
		return result, services.Wrap(services.ErrUnavailable, "translate", "translate",
			fmt.Sprintf("all translation attempts failed: %s", result.Err), nil)
	}
	return result, nil
}

func (t *Translator) attempt(ctx context.Context, text, instructions, glossaryText, label string, token *control.Token) providers.Result {
	t.logger.Debug("sending translation request", logging.String("instructions", label))
	result := t.engine.Translate(ctx, providers.Request{
		Text:           text,
		SourceLanguage: t.sourceLang,
		Instructions:   []string{instructions},
		Glossary:       glossaryText,
	}, t.preferred, token)
	if result.Success {
		t.logger.Info("translation succeeded",
			logging.String(logging.FieldProvider, result.Provider),
			logging.String("model", result.Model),
			logging.Int("tokens", result.TokensUsed))
	} else {
		t.logger.Warn("translation attempt failed",
			logging.String("instructions", label),
			logging.String("error", result.Err))
	}
	return result
}

// promptProvider picks the provider whose prompt template to use: the pinned
// provider when set, otherwise the first available one.
func (t *Translator) promptProvider() string {
	if t.preferred != "" {
		return t.preferred
	}
	if available := t.engine.Available(); len(available) > 0 {
		return available[0]
	}
	return string(providers.KindGemini)
}
