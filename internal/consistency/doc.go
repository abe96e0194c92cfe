// Package consistency repairs the relations between collections.
//
// A run passes a collection.Snapshot through fixed stages: alias
// resolution, manual link injection, reference validation, and reciprocity
// enforcement. Every stage clones its input and returns a new snapshot, and
// records what it changed in a shared Ledger. The reference table in
// schema.go is the single description of which fields hold ids and where
// those ids point.
package consistency
