package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize(configDir string) error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCollections()
	c.normalizeLogging()
	c.normalizeRelations()
	if err := c.mergeCurationFile(configDir); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.DataDir = strings.TrimSpace(c.Paths.DataDir)
	if c.Paths.DataDir == "" {
		if value, ok := os.LookupEnv(dataDirEnv); ok && strings.TrimSpace(value) != "" {
			c.Paths.DataDir = strings.TrimSpace(value)
		} else {
			c.Paths.DataDir = defaultDataDir
		}
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.ReportPath, err = expandPath(strings.TrimSpace(c.Paths.ReportPath)); err != nil {
		return fmt.Errorf("paths.report_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCollections() {
	defaults := defaultCollections()
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Collections.Characters, defaults.Characters)
	fill(&c.Collections.Locations, defaults.Locations)
	fill(&c.Collections.Dialogues, defaults.Dialogues)
	fill(&c.Collections.Encyclopedia, defaults.Encyclopedia)
	fill(&c.Collections.Quizzes, defaults.Quizzes)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeRelations() {
	required := make([]string, 0, len(c.Relations.Required))
	seen := make(map[string]struct{}, len(c.Relations.Required))
	for _, value := range c.Relations.Required {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		required = append(required, trimmed)
	}
	c.Relations.Required = required
	for i := range c.Relations.Pairs {
		pair := &c.Relations.Pairs[i]
		pair.Collection = strings.TrimSpace(pair.Collection)
		pair.Field = strings.TrimSpace(pair.Field)
		pair.PeerCollection = strings.TrimSpace(pair.PeerCollection)
		pair.PeerField = strings.TrimSpace(pair.PeerField)
	}
	c.Relations.CurationFile = strings.TrimSpace(c.Relations.CurationFile)
	for i := range c.ManualLinks {
		c.ManualLinks[i].Collection = strings.TrimSpace(c.ManualLinks[i].Collection)
		c.ManualLinks[i].Field = strings.TrimSpace(c.ManualLinks[i].Field)
	}
}

func (c *Config) mergeCurationFile(configDir string) error {
	if c.Relations.CurationFile == "" {
		return nil
	}
	path := c.Relations.CurationFile
	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "~") && configDir != "" {
		path = filepath.Join(configDir, path)
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("relations.curation_file: %w", err)
	}
	c.Relations.CurationFile = expanded

	curation, err := LoadCuration(expanded)
	if err != nil {
		return err
	}
	return c.applyCuration(curation)
}
