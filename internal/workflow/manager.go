// Package workflow runs a batch of translation jobs: it discovers job folders
// under the input root, persists them in the job store, and drives each one
// sequentially through staging, the pipeline phases, and organization.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/organizer"
	"github.com/AZAnthonyN/GeminiTL/internal/queue"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

// Runner executes the pipeline phases for one staged job.
type Runner interface {
	RunJob(ctx context.Context, job *queue.Job, gate *control.Gate, token *control.Token) error
}

// Stager moves a job's files between its folder and the flat working layout.
type Stager interface {
	Stage(jobPath string) error
	Organize(jobName string) error
}

// Report summarizes a finished batch.
type Report struct {
	RunID     string
	Completed int
	Failed    int
	Skipped   int
	Cancelled bool
}

// Manager coordinates one batch of jobs.
type Manager struct {
	inputRoot string
	store     *queue.Store
	runner    Runner
	stager    Stager
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a Manager.
func New(inputRoot string, store *queue.Store, runner Runner, stager Stager, opts ...Option) *Manager {
	m := &Manager{
		inputRoot: inputRoot,
		store:     store,
		runner:    runner,
		stager:    stager,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DiscoverJobs returns the translatable job folders under the input root:
// subdirectories containing at least one .txt file, excluding those already
// stamped with the processed prefix.
func (m *Manager) DiscoverJobs() ([]string, error) {
	entries, err := os.ReadDir(m.inputRoot)
	if err != nil {
		return nil, fmt.Errorf("read input root: %w", err)
	}
	var folders []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "images" {
			continue
		}
		if strings.HasPrefix(entry.Name(), organizer.ProcessedPrefix) {
			continue
		}
		if !hasTextFiles(filepath.Join(m.inputRoot, entry.Name())) {
			continue
		}
		folders = append(folders, entry.Name())
	}
	return folders, nil
}

// Run discovers jobs and processes them in order. Per-job failures mark the
// job Error and the batch continues; only cancellation stops it early, leaving
// the remaining jobs Pending.
func (m *Manager) Run(ctx context.Context, gate *control.Gate, token *control.Token) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	ctx = services.WithRequestID(ctx, report.RunID)

	folders, err := m.DiscoverJobs()
	if err != nil {
		return report, err
	}
	if len(folders) == 0 {
		m.logger.Info("no jobs to run")
		return report, nil
	}

	jobs := make([]*queue.Job, 0, len(folders))
	for _, folder := range folders {
		// An operator-skipped row for the folder carries over instead of being
		// re-enqueued as pending.
		existing, err := m.store.LatestByFolder(ctx, folder)
		if err != nil {
			return report, fmt.Errorf("look up %s: %w", folder, err)
		}
		if existing != nil && existing.Status == queue.StatusSkipped {
			jobs = append(jobs, existing)
			continue
		}
		job, err := m.store.NewJob(ctx, folder, filepath.Join(m.inputRoot, folder), report.RunID)
		if err != nil {
			return report, fmt.Errorf("enqueue %s: %w", folder, err)
		}
		jobs = append(jobs, job)
	}
	m.logger.Info("batch started",
		logging.String(logging.FieldCorrelationID, report.RunID),
		logging.Int("jobs", len(jobs)))

	for _, job := range jobs {
		if token.Cancelled() {
			report.Cancelled = true
			break
		}
		if err := gate.Wait(token); err != nil {
			report.Cancelled = true
			break
		}
		jobCtx := services.WithJob(services.WithJobID(ctx, job.ID), job.Folder)
		switch m.processJob(jobCtx, job, gate, token) {
		case jobDone:
			report.Completed++
		case jobFailed:
			report.Failed++
		case jobSkipped:
			report.Skipped++
		case jobCancelled:
			report.Cancelled = true
		}
		if report.Cancelled {
			break
		}
	}

	if report.Cancelled {
		m.logger.Warn("batch cancelled",
			logging.Int("completed", report.Completed),
			logging.Int("failed", report.Failed))
	} else {
		m.logger.Info("batch completed",
			logging.Int("completed", report.Completed),
			logging.Int("failed", report.Failed),
			logging.Int("skipped", report.Skipped))
	}
	return report, nil
}

// Start launches Run on a background goroutine and returns a channel that
// delivers the final report. The goroutine is never joined; callers that need
// the outcome read the channel.
func (m *Manager) Start(ctx context.Context, gate *control.Gate, token *control.Token) <-chan Report {
	results := make(chan Report, 1)
	go func() {
		report, err := m.Run(ctx, gate, token)
		if err != nil {
			m.logger.Error("batch run failed", logging.Error(err))
		}
		results <- report
	}()
	return results
}

type jobOutcome int

const (
	jobDone jobOutcome = iota
	jobFailed
	jobSkipped
	jobCancelled
)

func (m *Manager) processJob(ctx context.Context, job *queue.Job, gate *control.Gate, token *control.Token) jobOutcome {
	if job.Status == queue.StatusSkipped {
		m.logger.Info("job skipped by operator", logging.String(logging.FieldJob, job.Folder))
		return jobSkipped
	}
	m.logger.Info("job started", logging.String(logging.FieldJob, job.Folder))

	m.setStatus(ctx, job, queue.StatusGlossarySelection)

	m.setStatus(ctx, job, queue.StatusMovingFiles)
	if err := m.stager.Stage(job.Path); err != nil {
		return m.fail(ctx, job, fmt.Errorf("stage job: %w", err))
	}
	job.FilesTotal = countTextFiles(m.inputRoot)
	m.setStatus(ctx, job, queue.StatusTranslating)

	if err := m.runner.RunJob(ctx, job, gate, token); err != nil {
		if services.IsCancelled(err) {
			m.failCancelled(ctx, job)
			return jobCancelled
		}
		return m.fail(ctx, job, err)
	}

	// Suspension point before organizing: a cancel that lands after the last
	// in-phase check must not stamp the processed rename.
	if token.Cancelled() {
		m.failCancelled(ctx, job)
		return jobCancelled
	}
	if err := gate.Wait(token); err != nil {
		m.failCancelled(ctx, job)
		return jobCancelled
	}

	m.setStatus(ctx, job, queue.StatusOrganizing)
	if err := m.stager.Organize(job.Folder); err != nil {
		return m.fail(ctx, job, fmt.Errorf("organize job: %w", err))
	}

	job.FilesDone = job.FilesTotal
	m.setStatus(ctx, job, queue.StatusDone)
	m.logger.Info("job completed", logging.String(logging.FieldJob, job.Folder))
	return jobDone
}

func (m *Manager) fail(ctx context.Context, job *queue.Job, err error) jobOutcome {
	m.logger.Error("job failed",
		logging.String(logging.FieldJob, job.Folder),
		logging.Error(err))
	job.SetFailed(err.Error())
	m.update(ctx, job)
	return jobFailed
}

func (m *Manager) failCancelled(ctx context.Context, job *queue.Job) {
	m.logger.Warn("job cancelled mid-run", logging.String(logging.FieldJob, job.Folder))
	job.SetFailed("cancelled before completion")
	m.update(ctx, job)
}

func (m *Manager) setStatus(ctx context.Context, job *queue.Job, status queue.Status) {
	job.Status = status
	m.update(ctx, job)
}

func (m *Manager) update(ctx context.Context, job *queue.Job) {
	if err := m.store.Update(ctx, job); err != nil {
		m.logger.Warn("job store update failed",
			logging.String(logging.FieldJob, job.Folder),
			logging.Error(err))
	}
}

func hasTextFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			return true
		}
	}
	return false
}

func countTextFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			count++
		}
	}
	return count
}
