package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "app.log")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("translation started", logging.String("job", "novel-01"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["msg"] != "translation started" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level %v", entry["level"])
	}
	if entry["job"] != "novel-01" {
		t.Fatalf("unexpected job %v", entry["job"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{"stdout"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.NewComponentLogger(logger, "fallback").Warn("provider unavailable",
		logging.String("provider", "gemini"))

	if err := w.Close(); err != nil {
		t.Fatalf("close pipe: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	line := strings.TrimSpace(string(out))
	if !strings.Contains(line, "WARN fallback: provider unavailable") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, "provider=gemini") {
		t.Fatalf("expected provider attr in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be promoted out of attrs: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Error("request failed", logging.String("reason", "rate limit exceeded"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `reason="rate limit exceeded"`) {
		t.Fatalf("expected quoted attr, got %q", string(data))
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filtered.log")
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("should be dropped")
	logger.Warn("should be kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "should be dropped") {
		t.Fatalf("info line not filtered: %q", content)
	}
	if !strings.Contains(content, "should be kept") {
		t.Fatalf("warn line missing: %q", content)
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 7)
	ctx = services.WithJob(ctx, "novel-02")
	ctx = services.WithPhase(ctx, "translation")
	ctx = services.WithRequestID(ctx, "run-abc")

	fields := logging.ContextFields(ctx)
	got := map[string]string{}
	for _, attr := range fields {
		got[attr.Key] = attr.Value.String()
	}
	if got[logging.FieldJobID] != "7" {
		t.Fatalf("job_id = %q", got[logging.FieldJobID])
	}
	if got[logging.FieldJob] != "novel-02" {
		t.Fatalf("job = %q", got[logging.FieldJob])
	}
	if got[logging.FieldPhase] != "translation" {
		t.Fatalf("phase = %q", got[logging.FieldPhase])
	}
	if got[logging.FieldCorrelationID] != "run-abc" {
		t.Fatalf("correlation_id = %q", got[logging.FieldCorrelationID])
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should be disabled at every level")
	}
}
