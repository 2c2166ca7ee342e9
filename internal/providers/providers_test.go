package providers_test

import (
	"strings"
	"testing"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
)

func TestParseKind(t *testing.T) {
	for _, name := range []string{"gemini", "OpenAI", " anthropic "} {
		if _, err := providers.ParseKind(name); err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
	}
	if _, err := providers.ParseKind("cohere"); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
	if _, err := providers.ParseKind(""); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestRequestPromptAssembly(t *testing.T) {
	req := providers.Request{
		Text:         "本文",
		Instructions: []string{"Translate to English.", "", "Keep honorifics."},
		Glossary:     "Character Names:\nTarou = Tarou",
	}
	prompt := req.Prompt()
	want := "Translate to English.\n\nKeep honorifics.\n\nCharacter Names:\nTarou = Tarou\n\n本文"
	if prompt != want {
		t.Fatalf("prompt = %q, want %q", prompt, want)
	}
}

func TestRequestPromptTextOnly(t *testing.T) {
	if got := (providers.Request{Text: "body"}).Prompt(); got != "body" {
		t.Fatalf("prompt = %q", got)
	}
}

func TestAttemptBackoff(t *testing.T) {
	base := time.Second
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},
		{20, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := providers.AttemptBackoff(base, tc.retry); got != tc.want {
			t.Fatalf("AttemptBackoff(1s, %d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
}

func TestRateLimitBackoffDoublesAndCaps(t *testing.T) {
	if got := providers.RateLimitBackoff(time.Second, 1); got != 4*time.Second {
		t.Fatalf("RateLimitBackoff(1s, 1) = %v", got)
	}
	if got := providers.RateLimitBackoff(time.Second, 10); got != 60*time.Second {
		t.Fatalf("RateLimitBackoff should cap at 60s, got %v", got)
	}
}

func TestSchemaValidate(t *testing.T) {
	schema := providers.Schema{Fields: []providers.Field{
		{Name: "api_key", Type: providers.FieldString, Required: true},
		{Name: "temperature", Type: providers.FieldNumber, Min: 0, Max: 2, Bounded: true},
		{Name: "model", Type: providers.FieldString, Enum: []string{"a", "b"}},
	}}

	if err := schema.Validate(providers.Settings{"api_key": "k"}); err != nil {
		t.Fatalf("minimal settings: %v", err)
	}
	if err := schema.Validate(providers.Settings{}); err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected missing api_key error, got %v", err)
	}
	if err := schema.Validate(providers.Settings{"api_key": "k", "temperature": "3"}); err == nil {
		t.Fatal("expected bounds error")
	}
	if err := schema.Validate(providers.Settings{"api_key": "k", "temperature": "warm"}); err == nil {
		t.Fatal("expected numeric error")
	}
	if err := schema.Validate(providers.Settings{"api_key": "k", "model": "c"}); err == nil {
		t.Fatal("expected enum error")
	}
}

func TestSettingsAccessors(t *testing.T) {
	settings := providers.Settings{"model": " m1 ", "temperature": "0.7", "top_k": "40", "blank": "  "}
	if got := settings.String("model", "d"); got != "m1" {
		t.Fatalf("String = %q", got)
	}
	if got := settings.String("blank", "d"); got != "d" {
		t.Fatalf("blank String = %q", got)
	}
	if got := settings.Float("temperature", 0.4); got != 0.7 {
		t.Fatalf("Float = %v", got)
	}
	if got := settings.Int("top_k", 1); got != 40 {
		t.Fatalf("Int = %v", got)
	}
	if got := settings.Int("missing", 7); got != 7 {
		t.Fatalf("missing Int = %v", got)
	}
}

func TestFailureAndSucceeded(t *testing.T) {
	failure := providers.Failure("gemini", "m", "rate limit exceeded")
	if failure.Success || failure.Err != "rate limit exceeded" || failure.Provider != "gemini" {
		t.Fatalf("unexpected failure result %+v", failure)
	}
	if failure.Timestamp.IsZero() {
		t.Fatal("failure timestamp not set")
	}
	success := providers.Succeeded("openai", "m", "text", 12)
	if !success.Success || success.Text != "text" || success.TokensUsed != 12 {
		t.Fatalf("unexpected success result %+v", success)
	}
}
