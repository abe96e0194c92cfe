package testsupport

import (
	"path/filepath"
	"testing"

	"loregraph/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "state", "history.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithOutputDir writes rewritten collections to a separate directory.
func WithOutputDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.OutputDir = filepath.Join(b.baseDir, "out")
	}
}

// WithBackup enables .bak copies before each rewrite.
func WithBackup() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Write.Backup = true
	}
}

// WithWriteLock enables the output directory lock.
func WithWriteLock() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Write.Lock = true
	}
}

// WithAlias registers one alias in the given collection's table.
func WithAlias(collection, from, to string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Aliases == nil {
			b.cfg.Aliases = map[string]map[string]string{}
		}
		if b.cfg.Aliases[collection] == nil {
			b.cfg.Aliases[collection] = map[string]string{}
		}
		b.cfg.Aliases[collection][from] = to
	}
}

// WithManualLinks appends a manual link rule.
func WithManualLinks(collection, field string, links map[string][]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ManualLinks = append(b.cfg.ManualLinks, config.ManualLink{
			Collection: collection,
			Field:      field,
			Links:      links,
		})
	}
}

// WithSharedDialogueLinks enables relating characters that share dialogues.
func WithSharedDialogueLinks() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Relations.LinkSharedDialogues = true
	}
}

// WithRequired replaces the required field list.
func WithRequired(fields ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Relations.Required = fields
	}
}

// WithHistoryDisabled turns off run history.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
