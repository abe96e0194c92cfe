package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateRelations(); err != nil {
		return err
	}
	if err := c.validateAliases(); err != nil {
		return err
	}
	if err := c.validateManualLinks(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	for _, name := range CollectionNames() {
		file := c.CollectionFile(name)
		if strings.TrimSpace(file) == "" {
			return fmt.Errorf("collections.%s must be set", name)
		}
		if strings.ContainsAny(file, `/\`) {
			return fmt.Errorf("collections.%s must be a file name, got %q", name, file)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.KeepRuns <= 0 {
		return errors.New("history.keep_runs must be positive")
	}
	return nil
}

func (c *Config) validateRelations() error {
	refs, err := c.RequiredFields()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := validateFieldRef("relations.required", ref.Collection, ref.Field); err != nil {
			return err
		}
	}
	for i, pair := range c.Relations.Pairs {
		key := fmt.Sprintf("relations.pairs[%d]", i)
		if err := validateFieldRef(key, pair.Collection, pair.Field); err != nil {
			return err
		}
		if err := validateFieldRef(key, pair.PeerCollection, pair.PeerField); err != nil {
			return err
		}
	}
	return nil
}

// validateAliases rejects tables that would need more than one hop to settle.
func (c *Config) validateAliases() error {
	domains := make([]string, 0, len(c.Aliases))
	for domain := range c.Aliases {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		if !isKnownCollection(domain) {
			return fmt.Errorf("aliases.%s: unknown collection", domain)
		}
		table := c.Aliases[domain]
		sources := make([]string, 0, len(table))
		for from := range table {
			sources = append(sources, from)
		}
		sort.Strings(sources)
		for _, from := range sources {
			to := table[from]
			switch {
			case strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "":
				return fmt.Errorf("aliases.%s: empty alias id", domain)
			case from == to:
				return fmt.Errorf("aliases.%s.%s: alias maps to itself", domain, from)
			}
			if next, chained := table[to]; chained {
				return fmt.Errorf("aliases.%s.%s: target %q is itself an alias for %q; point directly at the final id", domain, from, to, next)
			}
		}
	}
	return nil
}

func (c *Config) validateManualLinks() error {
	for i, link := range c.ManualLinks {
		key := fmt.Sprintf("manual_links[%d]", i)
		if err := validateFieldRef(key, link.Collection, link.Field); err != nil {
			return err
		}
		for entityID := range link.Links {
			if strings.TrimSpace(entityID) == "" {
				return fmt.Errorf("%s: empty entity id", key)
			}
		}
	}
	return nil
}

func validateFieldRef(key, collection, field string) error {
	if !isKnownCollection(collection) {
		return fmt.Errorf("%s: unknown collection %q", key, collection)
	}
	if !fieldNamePattern.MatchString(field) {
		return fmt.Errorf("%s: invalid field name %q", key, field)
	}
	return nil
}

func isKnownCollection(name string) bool {
	for _, known := range CollectionNames() {
		if name == known {
			return true
		}
	}
	return false
}
