package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"loregraph/internal/config"
	"loregraph/internal/fileutil"
	"loregraph/internal/services"
)

// Store reads collections from the data directory and writes them to the
// output directory.
type Store struct {
	dataDir   string
	outputDir string
	files     map[string]string
	backup    bool
	lock      bool
}

// NewStore builds a store from configuration.
func NewStore(cfg *config.Config) *Store {
	files := make(map[string]string, len(config.CollectionNames()))
	for _, name := range config.CollectionNames() {
		files[name] = cfg.CollectionFile(name)
	}
	return &Store{
		dataDir:   cfg.Paths.DataDir,
		outputDir: cfg.OutputDirectory(),
		files:     files,
		backup:    cfg.Write.Backup,
		lock:      cfg.Write.Lock,
	}
}

// SourcePath returns the file a collection is read from.
func (s *Store) SourcePath(name string) string {
	return filepath.Join(s.dataDir, s.files[name])
}

// TargetPath returns the file a collection is written to.
func (s *Store) TargetPath(name string) string {
	return filepath.Join(s.outputDir, s.files[name])
}

// Load reads every collection. Nothing is mutated until all files parse.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	names := config.CollectionNames()
	collections := make([]*Collection, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.LoadCollection(name)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return NewSnapshot(collections...)
}

// LoadCollection reads one collection.
func (s *Store) LoadCollection(name string) (*Collection, error) {
	if _, ok := s.files[name]; !ok {
		return nil, services.Wrap(services.ErrConfiguration, "load", name, "unknown collection", nil)
	}
	path := s.SourcePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingCollection, "load", name, path, nil)
		}
		return nil, services.Wrap(services.ErrIO, "load", name, "read "+path, err)
	}
	return Decode(name, data)
}

// Write replaces every collection file of the snapshot and returns the paths
// written.
func (s *Store) Write(ctx context.Context, snapshot *Snapshot) ([]string, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var written []string
	for _, name := range snapshot.Names() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path, err := s.writeCollection(snapshot.Collection(name))
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteCollection replaces a single collection file.
func (s *Store) WriteCollection(c *Collection) (string, error) {
	release, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer release()
	return s.writeCollection(c)
}

func (s *Store) writeCollection(c *Collection) (string, error) {
	data, err := Encode(c)
	if err != nil {
		return "", err
	}
	path := s.TargetPath(c.Name)
	if s.backup {
		if _, err := fileutil.Backup(path); err != nil {
			return "", services.Wrap(services.ErrIO, "write", c.Name, "backup", err)
		}
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrIO, "write", c.Name, path, err)
	}
	return path, nil
}

func (s *Store) acquire() (func(), error) {
	if !s.lock {
		return func() {}, nil
	}
	lock, err := fileutil.LockDir(s.outputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "write", "lock", fmt.Sprintf("output directory %s", s.outputDir), err)
	}
	return func() { _ = lock.Release() }, nil
}
