package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites can stay on the logging package.
type Attr = slog.Attr

// String builds a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Int builds an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 builds an int64 attribute.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// Float64 builds a float64 attribute.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Bool builds a bool attribute.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration builds a duration attribute.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Time builds a time attribute.
func Time(key string, value time.Time) Attr { return slog.Time(key, value) }

// Any builds an attribute from an arbitrary value.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Error builds the conventional error attribute; nil errors produce an empty attr.
func Error(err error) Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Group builds a grouped attribute.
func Group(key string, args ...any) Attr { return slog.Group(key, args...) }

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler is a slog.Handler that drops all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }

// NewComponentLogger tags a child logger with the standard component field.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}
