// Package config loads, normalizes, and validates loregraph configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, merges an optional curation file (TOML or
// YAML) holding alias tables and manual links, and honours the
// LOREGRAPH_DATA_DIR environment fallback.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log settings, and flat alias tables.
package config
