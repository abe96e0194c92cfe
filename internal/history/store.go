package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"loregraph/internal/config"
)

// ErrNotFound reports an unknown run id.
var ErrNotFound = errors.New("run not found")

// timeLayout is fixed width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages run history backed by SQLite.
type Store struct {
	db       *sql.DB
	path     string
	keepRuns int
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.Paths.HistoryDB
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, keepRuns: cfg.History.KeepRuns}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a run with its gap lines and trims old runs past the
// retention limit.
func (s *Store) Record(ctx context.Context, run Run, gaps []string) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, data_dir, dry_run, gap_count, changes, counts_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.DataDir,
		boolToInt(run.DryRun),
		run.GapCount,
		run.Changes,
		string(counts),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, line := range gaps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_gaps (run_id, position, line) VALUES (?, ?, ?)`,
			run.ID, i, line,
		); err != nil {
			return fmt.Errorf("insert gap line: %w", err)
		}
	}

	if s.keepRuns > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM runs WHERE id NOT IN (
                SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
            )`,
			s.keepRuns,
		); err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, data_dir, dry_run, gap_count, changes, counts_json
              FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run and its gap lines in report order.
func (s *Store) Get(ctx context.Context, id string) (Run, []string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, data_dir, dry_run, gap_count, changes, counts_json
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT line FROM run_gaps WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("load gap lines: %w", err)
	}
	defer rows.Close()

	var gaps []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return Run{}, nil, err
		}
		gaps = append(gaps, line)
	}
	return run, gaps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run               Run
		started, finished string
		dryRun            int
		countsJSON        string
	)
	if err := row.Scan(&run.ID, &started, &finished, &run.DataDir, &dryRun, &run.GapCount, &run.Changes, &countsJSON); err != nil {
		return Run{}, err
	}
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	run.DryRun = dryRun != 0
	if err := json.Unmarshal([]byte(countsJSON), &run.Counts); err != nil {
		return Run{}, fmt.Errorf("decode counts: %w", err)
	}
	return run, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
