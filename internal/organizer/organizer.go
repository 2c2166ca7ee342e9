// Package organizer moves a job's files between the flat working directories
// and their per-job homes: staging inputs before translation, collecting
// outputs afterwards, and stamping finished jobs with the processed_ prefix.
package organizer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AZAnthonyN/GeminiTL/internal/fileutil"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/proofing"
	"github.com/AZAnthonyN/GeminiTL/internal/textutil"
)

// ProcessedPrefix marks job folders that have been fully organized. It is the
// sole completion marker: prefixed folders are excluded from future batches.
const ProcessedPrefix = "processed_"

// UnproofedDirName holds raw translations inside the output root before they
// are collected into the per-job folder.
const UnproofedDirName = "unproofed"

const imagesDirName = "images"

// Organizer owns the input and output roots for one run.
type Organizer struct {
	inputRoot  string
	outputRoot string
	logger     *slog.Logger
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithLogger sets the organizer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Organizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Organizer over the given roots.
func New(inputRoot, outputRoot string, opts ...Option) *Organizer {
	o := &Organizer{inputRoot: inputRoot, outputRoot: outputRoot, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stage moves a job folder's top-level files, and its images directory if
// present, into the flat input root the pipeline works on.
func (o *Organizer) Stage(jobPath string) error {
	entries, err := os.ReadDir(jobPath)
	if err != nil {
		return fmt.Errorf("read job folder: %w", err)
	}
	if err := os.MkdirAll(o.inputRoot, 0o755); err != nil {
		return fmt.Errorf("create input root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(jobPath, entry.Name())
		dst := filepath.Join(o.inputRoot, entry.Name())
		if err := fileutil.MoveFile(src, dst); err != nil {
			return fmt.Errorf("stage %s: %w", entry.Name(), err)
		}
	}
	jobImages := filepath.Join(jobPath, imagesDirName)
	if info, err := os.Stat(jobImages); err == nil && info.IsDir() {
		dst := filepath.Join(o.inputRoot, imagesDirName)
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("clear staged images: %w", err)
		}
		if err := moveDir(jobImages, dst); err != nil {
			return fmt.Errorf("stage images: %w", err)
		}
	}
	o.logger.Info("job staged", logging.String(logging.FieldJob, filepath.Base(jobPath)))
	return nil
}

// Organize collects a finished job's outputs and restores its inputs:
// translated files go to output/unproofed, the unproofed and proofed_ai
// directories move under output/translated_<job>, staged files and images
// return to the job folder, and the folder is renamed with the processed_
// prefix.
func (o *Organizer) Organize(jobName string) error {
	if err := o.collectTranslated(); err != nil {
		return err
	}
	if err := o.collectJobOutput(jobName); err != nil {
		return err
	}
	if err := o.restoreInputs(jobName); err != nil {
		return err
	}
	return o.markProcessed(jobName)
}

// collectTranslated moves translated_*.txt from the output root into the
// unproofed subdirectory.
func (o *Organizer) collectTranslated() error {
	entries, err := os.ReadDir(o.outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read output root: %w", err)
	}
	unproofedDir := filepath.Join(o.outputRoot, UnproofedDirName)
	moved := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "translated_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		if moved == 0 {
			if err := os.MkdirAll(unproofedDir, 0o755); err != nil {
				return fmt.Errorf("create unproofed dir: %w", err)
			}
		}
		if err := fileutil.MoveFile(filepath.Join(o.outputRoot, name), filepath.Join(unproofedDir, name)); err != nil {
			return fmt.Errorf("move %s: %w", name, err)
		}
		moved++
	}
	if moved > 0 {
		o.logger.Info("translated files collected", logging.Int("files", moved))
	}
	return nil
}

// collectJobOutput moves the unproofed and proofed_ai directories into
// output/translated_<job>.
func (o *Organizer) collectJobOutput(jobName string) error {
	translatedDir := filepath.Join(o.outputRoot, "translated_"+textutil.SanitizeFileName(jobName))
	for _, sub := range []string{UnproofedDirName, proofing.ProofedDirName} {
		src := filepath.Join(o.outputRoot, sub)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.MkdirAll(translatedDir, 0o755); err != nil {
			return fmt.Errorf("create job output dir: %w", err)
		}
		dst := filepath.Join(translatedDir, sub)
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("clear previous %s: %w", sub, err)
		}
		if err := moveDir(src, dst); err != nil {
			return fmt.Errorf("move %s: %w", sub, err)
		}
		o.logger.Info("output collected",
			logging.String("directory", sub),
			logging.String(logging.FieldJob, jobName))
	}
	return nil
}

// restoreInputs moves the staged flat files and the images directory back
// into the job folder.
func (o *Organizer) restoreInputs(jobName string) error {
	jobPath := filepath.Join(o.inputRoot, jobName)
	if _, err := os.Stat(jobPath); os.IsNotExist(err) {
		o.logger.Warn("job folder missing, inputs not restored", logging.String(logging.FieldJob, jobName))
		return nil
	}
	entries, err := os.ReadDir(o.inputRoot)
	if err != nil {
		return fmt.Errorf("read input root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(o.inputRoot, entry.Name())
		if err := fileutil.MoveFile(src, filepath.Join(jobPath, entry.Name())); err != nil {
			return fmt.Errorf("restore %s: %w", entry.Name(), err)
		}
	}
	stagedImages := filepath.Join(o.inputRoot, imagesDirName)
	if info, err := os.Stat(stagedImages); err == nil && info.IsDir() {
		dst := filepath.Join(jobPath, imagesDirName)
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("clear job images: %w", err)
		}
		if err := moveDir(stagedImages, dst); err != nil {
			return fmt.Errorf("restore images: %w", err)
		}
	}
	return nil
}

// markProcessed renames the job folder with the processed prefix. Already
// prefixed folders are left alone.
func (o *Organizer) markProcessed(jobName string) error {
	if strings.HasPrefix(jobName, ProcessedPrefix) {
		return nil
	}
	jobPath := filepath.Join(o.inputRoot, jobName)
	if _, err := os.Stat(jobPath); os.IsNotExist(err) {
		return nil
	}
	processedPath := filepath.Join(o.inputRoot, ProcessedPrefix+jobName)
	if err := os.RemoveAll(processedPath); err != nil {
		return fmt.Errorf("clear stale processed folder: %w", err)
	}
	if err := os.Rename(jobPath, processedPath); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	o.logger.Info("job marked processed", logging.String(logging.FieldJob, jobName))
	return nil
}

// moveDir renames a directory, falling back to copy+remove across devices.
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := fileutil.CopyDir(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}
