// Package logging builds the slog loggers used across the pipeline and
// standardizes the structured field names shared by every component.
package logging
