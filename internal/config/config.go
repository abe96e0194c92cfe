package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Collection names in load order. Reports and iteration follow this order.
const (
	CollectionCharacters   = "characters"
	CollectionLocations    = "locations"
	CollectionDialogues    = "dialogues"
	CollectionEncyclopedia = "encyclopedia"
	CollectionQuizzes      = "quizzes"
)

// CollectionNames returns every known collection in load order.
func CollectionNames() []string {
	return []string{
		CollectionCharacters,
		CollectionLocations,
		CollectionDialogues,
		CollectionEncyclopedia,
		CollectionQuizzes,
	}
}

// Paths contains data, output, and state locations.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	OutputDir  string `toml:"output_dir"`
	ReportPath string `toml:"report_path"`
	HistoryDB  string `toml:"history_db"`
	LogDir     string `toml:"log_dir"`
}

// Collections maps each collection to its file name inside the data directory.
type Collections struct {
	Characters   string `toml:"characters"`
	Locations    string `toml:"locations"`
	Dialogues    string `toml:"dialogues"`
	Encyclopedia string `toml:"encyclopedia"`
	Quizzes      string `toml:"quizzes"`
}

// Write controls how rewritten collections reach disk.
type Write struct {
	Backup bool `toml:"backup"`
	Lock   bool `toml:"lock"`
}

// History controls the run history database.
type History struct {
	Enabled       bool `toml:"enabled"`
	KeepRuns      int  `toml:"keep_runs"`
	RecordDryRuns bool `toml:"record_dry_runs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Pair declares two reference fields that must mirror each other.
type Pair struct {
	Collection     string `toml:"collection" yaml:"collection"`
	Field          string `toml:"field" yaml:"field"`
	PeerCollection string `toml:"peer_collection" yaml:"peer_collection"`
	PeerField      string `toml:"peer_field" yaml:"peer_field"`
}

func (p Pair) String() string {
	return p.Collection + "." + p.Field + "<->" + p.PeerCollection + "." + p.PeerField
}

// Relations configures relation maintenance.
type Relations struct {
	Required            []string `toml:"required"`
	LinkSharedDialogues bool     `toml:"link_shared_dialogues"`
	CurationFile        string   `toml:"curation_file"`
	Pairs               []Pair   `toml:"pairs"`
}

// ManualLink lists curated ids to add to one field, keyed by entity id.
type ManualLink struct {
	Collection string              `toml:"collection" yaml:"collection"`
	Field      string              `toml:"field" yaml:"field"`
	Links      map[string][]string `toml:"links" yaml:"links"`
}

// FieldRef addresses one reference field of one collection.
type FieldRef struct {
	Collection string
	Field      string
}

func (f FieldRef) String() string {
	return f.Collection + "." + f.Field
}

// Config encapsulates all configuration values for loregraph.
//
// Configuration sections:
//   - Paths: data directory, output overrides, report and history locations
//   - Collections: file names per collection
//   - Write: backup and lock behaviour for rewrites
//   - History: SQLite run history and retention
//   - Logging: log format and level
//   - Relations: required fields, reciprocal pairs, curation file
//   - Aliases: per-collection superseded id tables
//   - ManualLinks: curated links injected on every run
type Config struct {
	Paths       Paths                        `toml:"paths"`
	Collections Collections                  `toml:"collections"`
	Write       Write                        `toml:"write"`
	History     History                      `toml:"history"`
	Logging     Logging                      `toml:"logging"`
	Relations   Relations                    `toml:"relations"`
	Aliases     map[string]map[string]string `toml:"aliases"`
	ManualLinks []ManualLink                 `toml:"manual_links"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loregraph/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and any curation file merged in.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loregraph.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CollectionFile returns the file name configured for a collection.
func (c *Config) CollectionFile(name string) string {
	switch name {
	case CollectionCharacters:
		return c.Collections.Characters
	case CollectionLocations:
		return c.Collections.Locations
	case CollectionDialogues:
		return c.Collections.Dialogues
	case CollectionEncyclopedia:
		return c.Collections.Encyclopedia
	case CollectionQuizzes:
		return c.Collections.Quizzes
	default:
		return ""
	}
}

// OutputDirectory returns where rewritten collections go. It falls back to the
// data directory when no output directory is configured.
func (c *Config) OutputDirectory() string {
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		return c.Paths.OutputDir
	}
	return c.Paths.DataDir
}

// RelationPairs returns the configured reciprocal pairs, or the default pairs
// when none are configured.
func (c *Config) RelationPairs() []Pair {
	if len(c.Relations.Pairs) == 0 {
		return defaultPairs()
	}
	out := make([]Pair, len(c.Relations.Pairs))
	copy(out, c.Relations.Pairs)
	return out
}

// RequiredFields returns the fields whose emptiness is reported as a gap.
func (c *Config) RequiredFields() ([]FieldRef, error) {
	values := c.Relations.Required
	if len(values) == 0 {
		values = defaultRequired()
	}
	out := make([]FieldRef, 0, len(values))
	for _, value := range values {
		ref, err := ParseFieldRef(value)
		if err != nil {
			return nil, fmt.Errorf("relations.required: %w", err)
		}
		out = append(out, ref)
	}
	return out, nil
}

// ParseFieldRef parses "collection.field".
func ParseFieldRef(value string) (FieldRef, error) {
	collection, field, ok := strings.Cut(strings.TrimSpace(value), ".")
	if !ok || collection == "" || field == "" {
		return FieldRef{}, fmt.Errorf("invalid field reference %q (want collection.field)", value)
	}
	return FieldRef{Collection: collection, Field: field}, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
