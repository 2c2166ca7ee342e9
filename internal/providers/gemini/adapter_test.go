package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/providers/gemini"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func successBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + mustQuote(text) + `}]},"finishReason":"STOP"}]}`
}

func mustQuote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func TestInitializeProbesModel(t *testing.T) {
	var probed atomic.Bool
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.Contains(r.URL.Path, "/models/gemini-1.5-pro") {
			t.Errorf("unexpected probe %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in %q", r.URL.RawQuery)
		}
		probed.Store(true)
		w.Write([]byte(`{"name":"models/gemini-1.5-pro"}`))
	})

	adapter := gemini.New(providers.Settings{
		"api_key":  "test-key",
		"base_url": server.URL,
		"model":    "gemini-1.5-pro",
	})
	if adapter.Ready() {
		t.Fatal("adapter should not be ready before Initialize")
	}
	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !probed.Load() {
		t.Fatal("probe request not sent")
	}
	if !adapter.Ready() {
		t.Fatal("adapter should be ready after Initialize")
	}
}

func TestInitializeFailsWithoutAPIKey(t *testing.T) {
	adapter := gemini.New(providers.Settings{})
	if err := adapter.Initialize(context.Background()); err == nil {
		t.Fatal("expected configuration error")
	}
	if adapter.Ready() {
		t.Fatal("failed Initialize must leave adapter not ready")
	}
}

func TestTranslateBeforeInitialize(t *testing.T) {
	adapter := gemini.New(providers.Settings{"api_key": "k"})
	result := adapter.Translate(context.Background(), providers.Request{Text: "hi"})
	if result.Success {
		t.Fatal("expected failure before Initialize")
	}
	if result.Err != "Provider not initialized" {
		t.Fatalf("unexpected error %q", result.Err)
	}
}

func TestTranslateSuccess(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{}`))
			return
		}
		var payload struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		prompt := payload.Contents[0].Parts[0].Text
		if !strings.Contains(prompt, "Translate") || !strings.Contains(prompt, "原文") {
			t.Errorf("prompt missing sections: %q", prompt)
		}
		w.Write([]byte(successBody("translated text")))
	})

	adapter := gemini.New(providers.Settings{"api_key": "k", "base_url": server.URL})
	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	result := adapter.Translate(context.Background(), providers.Request{
		Text:         "原文",
		Instructions: []string{"Translate to English."},
	})
	if !result.Success {
		t.Fatalf("Translate failed: %s", result.Err)
	}
	if result.Text != "translated text" {
		t.Fatalf("text = %q", result.Text)
	}
	if result.Provider != "gemini" {
		t.Fatalf("provider = %q", result.Provider)
	}
}

func TestTranslateRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{}`))
			return
		}
		if calls.Add(1) == 1 {
			http.Error(w, "backend overload", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(successBody("ok")))
	})

	var slept []time.Duration
	adapter := gemini.New(providers.Settings{"api_key": "k", "base_url": server.URL},
		gemini.WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		gemini.WithRetryBase(time.Second))
	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	result := adapter.Translate(context.Background(), providers.Request{Text: "x", MaxRetries: 3})
	if !result.Success {
		t.Fatalf("Translate failed: %s", result.Err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}
}

func TestTranslateDoublesRateLimitBackoff(t *testing.T) {
	var calls atomic.Int32
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{}`))
			return
		}
		if calls.Add(1) <= 2 {
			http.Error(w, "quota exhausted", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(successBody("ok")))
	})

	var slept []time.Duration
	adapter := gemini.New(providers.Settings{"api_key": "k", "base_url": server.URL},
		gemini.WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		gemini.WithRetryBase(time.Second))
	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	result := adapter.Translate(context.Background(), providers.Request{Text: "x", MaxRetries: 3})
	if !result.Success {
		t.Fatalf("Translate failed: %s", result.Err)
	}
	if len(slept) != 2 || slept[0] != 2*time.Second || slept[1] != 4*time.Second {
		t.Fatalf("expected doubled rate-limit backoff, got %v", slept)
	}
}

func TestTranslateExhaustsRetries(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{}`))
			return
		}
		http.Error(w, "bad auth key", http.StatusForbidden)
	})

	adapter := gemini.New(providers.Settings{"api_key": "k", "base_url": server.URL},
		gemini.WithSleeper(func(time.Duration) {}))
	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	result := adapter.Translate(context.Background(), providers.Request{Text: "x", MaxRetries: 2})
	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Err, "Gemini API error") {
		t.Fatalf("unexpected error %q", result.Err)
	}
}

func TestTranslateEmptyResponse(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`{"candidates":[]}`))
	})

	adapter := gemini.New(providers.Settings{"api_key": "k", "base_url": server.URL},
		gemini.WithSleeper(func(time.Duration) {}))
	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	result := adapter.Translate(context.Background(), providers.Request{Text: "x", MaxRetries: 2})
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err != "Empty response from Gemini" {
		t.Fatalf("unexpected error %q", result.Err)
	}
}

func TestValidateConfigBounds(t *testing.T) {
	adapter := gemini.New(providers.Settings{})
	err := adapter.ValidateConfig(providers.Settings{"api_key": "k", "temperature": "2.5"})
	if err == nil {
		t.Fatal("expected temperature bounds error")
	}
	if err := adapter.ValidateConfig(providers.Settings{"api_key": "k", "top_k": "40"}); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}
}
