package collection_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"loregraph/internal/collection"
	"loregraph/internal/fileutil"
	"loregraph/internal/services"
	"loregraph/internal/testsupport"
)

func TestStoreLoadMissingCollection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteDataset(t, cfg, testsupport.Dataset{})
	if err := os.Remove(filepath.Join(cfg.Paths.DataDir, "dialogues.json")); err != nil {
		t.Fatal(err)
	}

	_, err := collection.NewStore(cfg).Load(context.Background())
	if !errors.Is(err, services.ErrMissingCollection) {
		t.Fatalf("expected ErrMissingCollection, got %v", err)
	}
}

func TestStoreWriteToOutputDirWithBackup(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOutputDir(), testsupport.WithBackup())
	testsupport.WriteDataset(t, cfg, testsupport.Dataset{
		Characters: `[{"id":"wang_geon"}]`,
	})
	// Seed the output directory so a backup has something to copy.
	seeded := filepath.Join(cfg.Paths.OutputDir, "characters.json")
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(seeded, []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := collection.NewStore(cfg)
	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	written, err := store.Write(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(written) != 5 {
		t.Fatalf("expected five collections written, got %v", written)
	}

	got, err := os.ReadFile(seeded)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[\n  {\n    \"id\": \"wang_geon\"\n  }\n]\n" {
		t.Fatalf("unexpected output %q", got)
	}
	backup, err := os.ReadFile(seeded + fileutil.BackupSuffix)
	if err != nil {
		t.Fatalf("expected backup: %v", err)
	}
	if string(backup) != "[]\n" {
		t.Fatalf("unexpected backup %q", backup)
	}
	source, err := os.ReadFile(filepath.Join(cfg.Paths.DataDir, "characters.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(source) != `[{"id":"wang_geon"}]` {
		t.Fatalf("source should be untouched when output_dir is set, got %q", source)
	}
}

func TestStoreWriteFailsWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWriteLock())
	testsupport.WriteDataset(t, cfg, testsupport.Dataset{})

	held, err := fileutil.LockDir(cfg.OutputDirectory())
	if err != nil {
		t.Fatalf("LockDir: %v", err)
	}
	defer held.Release()

	store := collection.NewStore(cfg)
	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := store.Write(context.Background(), snapshot); !errors.Is(err, fileutil.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}
