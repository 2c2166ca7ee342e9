package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AZAnthonyN/GeminiTL/internal/queue"
)

func writeQueueConfig(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	dbPath := filepath.Join(base, "jobs.db")
	content := `
[paths]
input_dir = "` + filepath.Join(base, "input") + `"
output_dir = "` + filepath.Join(base, "output") + `"
log_dir = "` + filepath.Join(base, "logs") + `"
glossary_dir = "` + filepath.Join(base, "glossaries") + `"
database_path = "` + dbPath + `"
lock_path = "` + filepath.Join(base, "run.lock") + `"
`
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dbPath
}

func seedJob(t *testing.T, dbPath, folder string) *queue.Job {
	t.Helper()
	store, err := queue.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	job, err := store.NewJob(context.Background(), folder, "/in/"+folder, "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return job
}

func jobStatus(t *testing.T, dbPath string, id int64) queue.Status {
	t.Helper()
	store, err := queue.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	job, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job == nil {
		t.Fatalf("job %d not found", id)
	}
	return job.Status
}

func TestQueueSkipMarksJob(t *testing.T) {
	configPath, dbPath := writeQueueConfig(t)
	job := seedJob(t, dbPath, "Volume 1")

	output, err := executeCommand(t, "--config", configPath, "queue", "skip", "1")
	if err != nil {
		t.Fatalf("queue skip: %v\n%s", err, output)
	}
	if !strings.Contains(output, "marked skipped") || !strings.Contains(output, "Volume 1") {
		t.Fatalf("output = %q", output)
	}
	if status := jobStatus(t, dbPath, job.ID); status != queue.StatusSkipped {
		t.Fatalf("status = %q, want skipped", status)
	}
}

func TestQueueSkipRejectsBadInput(t *testing.T) {
	configPath, dbPath := writeQueueConfig(t)

	if _, err := executeCommand(t, "--config", configPath, "queue", "skip", "abc"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := executeCommand(t, "--config", configPath, "queue", "skip", "42"); err == nil {
		t.Fatal("expected error for unknown job")
	}

	job := seedJob(t, dbPath, "Volume 2")
	store, err := queue.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	job.Status = queue.StatusDone
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	store.Close()

	if _, err := executeCommand(t, "--config", configPath, "queue", "skip", "1"); err == nil {
		t.Fatal("expected error for terminal job")
	}
}
