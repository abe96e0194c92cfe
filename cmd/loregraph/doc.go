// Package main hosts the loregraph CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the logger, and
// hands work to the internal packages: fix and check drive the consistency
// engine over the data directory, merge appends generated records, eras
// lists locations by era, and history reads the run database.
//
// Keep this package thin. New behaviour belongs in the internal packages
// and is surfaced here through a command or flag.
package main
