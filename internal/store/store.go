// Package store persists the outcome ledger: one row per application
// attempt, written as each attempt ends.
package store

import (
	"context"
	"strings"

	"go-easyapply-automation/internal/models"
)

type Store interface {
	SaveOutcome(ctx context.Context, o models.Outcome) error
	// RecentOutcomes returns the newest outcomes first.
	RecentOutcomes(ctx context.Context, limit int) ([]models.Outcome, error)
	// CountByState tallies the outcomes of one run.
	CountByState(ctx context.Context, runID string) (map[models.State]int, error)
	Close() error
}

// Open picks the backend from the DSN: postgres:// and postgresql:// go to
// Postgres, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return ConnectPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn)
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	relevance_score DOUBLE PRECISION NULL,
	state TEXT NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	steps_completed INTEGER NOT NULL DEFAULT 0,
	screenshot TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_run_idx ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS outcomes_finished_idx ON outcomes(finished_at);
`

const columns = `id, run_id, idx, title, company, location, url, relevance_score, state, error_kind, detail, steps_completed, screenshot, started_at, finished_at`
