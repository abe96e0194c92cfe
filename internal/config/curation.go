package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Curation holds hand-maintained alias tables and manual links kept outside
// the main config file.
type Curation struct {
	Aliases     map[string]map[string]string `toml:"aliases" yaml:"aliases"`
	ManualLinks []ManualLink                 `toml:"manual_links" yaml:"manual_links"`
}

// LoadCuration reads a curation file. The format follows the extension:
// .yaml and .yml decode as YAML, anything else as TOML.
func LoadCuration(path string) (Curation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Curation{}, fmt.Errorf("read curation file: %w", err)
	}

	var curation Curation
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&curation); err != nil && !errors.Is(err, io.EOF) {
			return Curation{}, fmt.Errorf("parse curation file %s: %w", path, err)
		}
	default:
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&curation); err != nil {
			return Curation{}, fmt.Errorf("parse curation file %s: %w", path, err)
		}
	}
	return curation, nil
}

func (c *Config) applyCuration(curation Curation) error {
	if len(curation.Aliases) > 0 && c.Aliases == nil {
		c.Aliases = make(map[string]map[string]string, len(curation.Aliases))
	}

	domains := make([]string, 0, len(curation.Aliases))
	for domain := range curation.Aliases {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		table := c.Aliases[domain]
		if table == nil {
			table = make(map[string]string, len(curation.Aliases[domain]))
			c.Aliases[domain] = table
		}
		for from, to := range curation.Aliases[domain] {
			if existing, ok := table[from]; ok && existing != to {
				return fmt.Errorf("aliases.%s.%s: curation file maps to %q but config maps to %q", domain, from, to, existing)
			}
			table[from] = to
		}
	}

	for _, link := range curation.ManualLinks {
		link.Collection = strings.TrimSpace(link.Collection)
		link.Field = strings.TrimSpace(link.Field)
		c.ManualLinks = append(c.ManualLinks, link)
	}
	return nil
}
