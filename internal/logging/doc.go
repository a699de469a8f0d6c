// Package logging assembles structured slog loggers used across the pipeline.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with session IDs, stages, and scene IDs. The package also
// provides a no-op logger for tests.
package logging
