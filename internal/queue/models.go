package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a translation job.
type Status string

const (
	StatusPending           Status = "pending"
	StatusGlossarySelection Status = "glossary_selection"
	StatusMovingFiles       Status = "moving_files"
	StatusTranslating       Status = "translating"
	StatusOrganizing        Status = "organizing"
	StatusDone              Status = "done"
	StatusError             Status = "error"
	StatusSkipped           Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusGlossarySelection,
	StatusMovingFiles,
	StatusTranslating,
	StatusOrganizing,
	StatusDone,
	StatusError,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Terminal reports whether the status ends a job's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusSkipped:
		return true
	default:
		return false
	}
}

// Job represents one input folder moving through the pipeline, persisted in
// SQLite. The authoritative completion marker stays on disk (the processed_
// folder rename); the store records history and progress for operators.
type Job struct {
	ID           int64
	Folder       string
	Path         string
	Status       Status
	RunID        string
	Provider     string
	ErrorMessage string
	FilesTotal   int
	FilesDone    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SetFailed marks the job errored with the supplied reason.
func (j *Job) SetFailed(reason string) {
	j.Status = StatusError
	j.ErrorMessage = reason
}
