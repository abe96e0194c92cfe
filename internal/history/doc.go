// Package history persists a record of every consistency run in SQLite.
//
// Each run stores its counters and ordered gap lines so past reports can be
// listed and re-read. Schema changes ship as numbered files under
// migrations/ and are applied on Open.
package history
