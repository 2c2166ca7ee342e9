package services_test

import (
	"errors"
	"testing"

	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("socket closed")
	err := services.Wrap(services.ErrTransient, "fallback", "translate", "request failed", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker in %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved in %v", err)
	}
	want := "transient failure: fallback: translate: request failed: socket closed"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsCancelled(t *testing.T) {
	err := services.Wrap(services.ErrCancelled, "control", "sleep", "", nil)
	if !services.IsCancelled(err) {
		t.Fatalf("expected cancellation marker in %v", err)
	}
	if services.IsCancelled(services.ErrTimeout) {
		t.Fatal("timeout should not report cancelled")
	}
}
