// Package report turns a consistency run into the gap report, the summary
// counters, and their text, table, and JSON renderings.
package report
