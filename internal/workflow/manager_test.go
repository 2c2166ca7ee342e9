package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/queue"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
	"github.com/AZAnthonyN/GeminiTL/internal/workflow"
)

type fakeRunner struct {
	jobs []string
	errs map[string]error
}

func (f *fakeRunner) RunJob(_ context.Context, job *queue.Job, _ *control.Gate, _ *control.Token) error {
	f.jobs = append(f.jobs, job.Folder)
	if f.errs != nil {
		return f.errs[job.Folder]
	}
	return nil
}

type fakeStager struct {
	staged    []string
	organized []string
	stageErr  error
}

func (f *fakeStager) Stage(jobPath string) error {
	f.staged = append(f.staged, filepath.Base(jobPath))
	return f.stageErr
}

func (f *fakeStager) Organize(jobName string) error {
	f.organized = append(f.organized, jobName)
	return nil
}

func makeJobFolder(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ch1.txt"), []byte("text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDiscoverJobsSkipsProcessedAndEmptyFolders(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")
	makeJobFolder(t, root, "processed_vol0")
	if err := os.MkdirAll(filepath.Join(root, "no-text"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "images"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "loose.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := workflow.New(root, openStore(t), &fakeRunner{}, &fakeStager{})
	folders, err := m.DiscoverJobs()
	if err != nil {
		t.Fatalf("DiscoverJobs: %v", err)
	}
	if len(folders) != 1 || folders[0] != "vol1" {
		t.Fatalf("folders = %v", folders)
	}
}

func TestRunProcessesJobsInOrder(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")
	makeJobFolder(t, root, "vol2")

	store := openStore(t)
	runner := &fakeRunner{}
	stager := &fakeStager{}
	m := workflow.New(root, store, runner, stager)

	report, err := m.Run(context.Background(), control.NewGate(), control.NewToken())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Completed != 2 || report.Failed != 0 || report.Cancelled {
		t.Fatalf("report = %+v", report)
	}
	if len(runner.jobs) != 2 || runner.jobs[0] != "vol1" || runner.jobs[1] != "vol2" {
		t.Fatalf("runner jobs = %v", runner.jobs)
	}
	if len(stager.organized) != 2 {
		t.Fatalf("organized = %v", stager.organized)
	}

	jobs, err := store.JobsByStatus(context.Background(), queue.StatusDone)
	if err != nil {
		t.Fatalf("JobsByStatus: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("done jobs = %d", len(jobs))
	}
	if jobs[0].RunID != report.RunID {
		t.Fatalf("run id = %q, want %q", jobs[0].RunID, report.RunID)
	}
}

func TestRunContinuesPastJobFailure(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")
	makeJobFolder(t, root, "vol2")

	store := openStore(t)
	runner := &fakeRunner{errs: map[string]error{"vol1": errors.New("provider outage")}}
	m := workflow.New(root, store, runner, &fakeStager{})

	report, err := m.Run(context.Background(), control.NewGate(), control.NewToken())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Completed != 1 || report.Failed != 1 || report.Cancelled {
		t.Fatalf("report = %+v", report)
	}

	failed, err := store.JobsByStatus(context.Background(), queue.StatusError)
	if err != nil {
		t.Fatalf("JobsByStatus: %v", err)
	}
	if len(failed) != 1 || failed[0].Folder != "vol1" {
		t.Fatalf("failed jobs = %+v", failed)
	}
	if failed[0].ErrorMessage != "provider outage" {
		t.Fatalf("error message = %q", failed[0].ErrorMessage)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")
	makeJobFolder(t, root, "vol2")

	store := openStore(t)
	runner := &fakeRunner{errs: map[string]error{"vol1": services.ErrCancelled}}
	m := workflow.New(root, store, runner, &fakeStager{})

	report, err := m.Run(context.Background(), control.NewGate(), control.NewToken())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled {
		t.Fatalf("report = %+v, want cancelled", report)
	}
	if len(runner.jobs) != 1 {
		t.Fatalf("runner jobs = %v, second job should not start", runner.jobs)
	}

	pending, err := store.JobsByStatus(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("JobsByStatus: %v", err)
	}
	if len(pending) != 1 || pending[0].Folder != "vol2" {
		t.Fatalf("pending jobs = %+v", pending)
	}
}

type cancelOnReturnRunner struct {
	jobs []string
}

func (f *cancelOnReturnRunner) RunJob(_ context.Context, job *queue.Job, _ *control.Gate, token *control.Token) error {
	f.jobs = append(f.jobs, job.Folder)
	token.Cancel()
	return nil
}

func TestRunCancelAfterPhasesSkipsOrganize(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")

	store := openStore(t)
	runner := &cancelOnReturnRunner{}
	stager := &fakeStager{}
	m := workflow.New(root, store, runner, stager)

	report, err := m.Run(context.Background(), control.NewGate(), control.NewToken())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled || report.Completed != 0 {
		t.Fatalf("report = %+v, want cancelled with nothing completed", report)
	}
	if len(stager.organized) != 0 {
		t.Fatalf("organized = %v, cancelled job must not be organized", stager.organized)
	}

	failed, err := store.JobsByStatus(context.Background(), queue.StatusError)
	if err != nil {
		t.Fatalf("JobsByStatus: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorMessage != "cancelled before completion" {
		t.Fatalf("failed jobs = %+v", failed)
	}
}

func TestRunPassesOverOperatorSkippedJob(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")
	makeJobFolder(t, root, "vol2")

	store := openStore(t)
	skipped, err := store.NewJob(context.Background(), "vol1", filepath.Join(root, "vol1"), "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	skipped.Status = queue.StatusSkipped
	if err := store.Update(context.Background(), skipped); err != nil {
		t.Fatalf("Update: %v", err)
	}

	runner := &fakeRunner{}
	stager := &fakeStager{}
	m := workflow.New(root, store, runner, stager)

	report, err := m.Run(context.Background(), control.NewGate(), control.NewToken())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 1 || report.Completed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(runner.jobs) != 1 || runner.jobs[0] != "vol2" {
		t.Fatalf("runner jobs = %v, skipped job must not reach the runner", runner.jobs)
	}
	if len(stager.staged) != 1 || stager.staged[0] != "vol2" {
		t.Fatalf("staged = %v", stager.staged)
	}

	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, skipped folder must not be re-enqueued", len(jobs))
	}
}

func TestRunCancelledBeforeAnyJob(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")

	runner := &fakeRunner{}
	m := workflow.New(root, openStore(t), runner, &fakeStager{})
	token := control.NewToken()
	token.Cancel()

	report, err := m.Run(context.Background(), control.NewGate(), token)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled || len(runner.jobs) != 0 {
		t.Fatalf("report = %+v, jobs = %v", report, runner.jobs)
	}
}

func TestRunStageFailureMarksJobError(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")

	store := openStore(t)
	runner := &fakeRunner{}
	stager := &fakeStager{stageErr: errors.New("disk full")}
	m := workflow.New(root, store, runner, stager)

	report, err := m.Run(context.Background(), control.NewGate(), control.NewToken())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 || report.Completed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(runner.jobs) != 0 {
		t.Fatal("runner should not run after staging failure")
	}
}

func TestStartDeliversReport(t *testing.T) {
	root := t.TempDir()
	makeJobFolder(t, root, "vol1")

	m := workflow.New(root, openStore(t), &fakeRunner{}, &fakeStager{})
	results := m.Start(context.Background(), control.NewGate(), control.NewToken())
	report := <-results
	if report.Completed != 1 {
		t.Fatalf("report = %+v", report)
	}
}
