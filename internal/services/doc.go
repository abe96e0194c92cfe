// Package services defines shared utilities consumed by the consistency
// stages, the collection store, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that classify fatal
//     failures (missing collection files, malformed records, bad
//     configuration, I/O) so callers can report them uniformly.
//
// Structural findings such as dangling references are data, not errors; they
// never travel through this package.
package services
