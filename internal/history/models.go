package history

import (
	"time"

	"github.com/google/uuid"

	"loregraph/internal/report"
)

// Run is one recorded consistency run.
type Run struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	DataDir    string        `json:"data_dir"`
	DryRun     bool          `json:"dry_run"`
	GapCount   int           `json:"gap_count"`
	Changes    int           `json:"changes"`
	Counts     report.Counts `json:"counts"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}
