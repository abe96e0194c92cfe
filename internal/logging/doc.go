// Package logging assembles structured slog loggers and formatting helpers used
// across loregraph.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline stages automatically
// tag log lines with the run ID and stage name. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Logs go to stderr by default so the gap report and JSON output on stdout
// stay machine-readable.
package logging
