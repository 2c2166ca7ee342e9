package registry_test

import (
	"errors"
	"testing"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/providers/registry"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

func TestNewCoversEveryKind(t *testing.T) {
	for _, kind := range providers.Kinds() {
		adapter, err := registry.New(kind, providers.Settings{"api_key": "k"})
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		if adapter.Name() != string(kind) {
			t.Fatalf("adapter name %q for kind %q", adapter.Name(), kind)
		}
		if adapter.Ready() {
			t.Fatalf("%s adapter ready before Initialize", kind)
		}
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := registry.New(providers.Kind("cohere"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestFromName(t *testing.T) {
	adapter, err := registry.FromName(" Gemini ", providers.Settings{"api_key": "k"})
	if err != nil {
		t.Fatalf("FromName: %v", err)
	}
	if adapter.Name() != "gemini" {
		t.Fatalf("name = %q", adapter.Name())
	}
	if _, err := registry.FromName("bogus", nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}
