// Package collection loads and writes the content collections.
//
// Each record is held as its raw JSON object. Callers read and rewrite only
// the reference fields they know about; every other field keeps its value and
// key position across a rewrite. A Snapshot groups all collections of one run
// and is cloned, never shared, between pipeline stages.
package collection
