package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"loregraph/internal/config"
)

// Dataset holds raw collection documents. Empty fields get an empty document.
type Dataset struct {
	Characters   string
	Locations    string
	Dialogues    string
	Encyclopedia string
	Quizzes      string
}

func (d Dataset) document(name string) string {
	var doc string
	switch name {
	case config.CollectionCharacters:
		doc = d.Characters
	case config.CollectionLocations:
		doc = d.Locations
	case config.CollectionDialogues:
		doc = d.Dialogues
	case config.CollectionEncyclopedia:
		doc = d.Encyclopedia
	case config.CollectionQuizzes:
		doc = d.Quizzes
		if doc == "" {
			doc = `{"categories":[]}`
		}
	}
	if doc == "" {
		doc = "[]"
	}
	return doc
}

// WriteDataset writes every collection file into the config's data directory.
func WriteDataset(t testing.TB, cfg *config.Config, data Dataset) {
	t.Helper()

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	for _, name := range config.CollectionNames() {
		path := filepath.Join(cfg.Paths.DataDir, cfg.CollectionFile(name))
		if err := os.WriteFile(path, []byte(data.document(name)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// ReadOutput returns the written document of a collection.
func ReadOutput(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()

	path := filepath.Join(cfg.OutputDirectory(), cfg.CollectionFile(name))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
