package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"go-easyapply-automation/internal/models"
)

// timeLayout is fixed width so finished_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join("data", "jobpilot.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer; the engine is single-threaded anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, o models.Outcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outcomes (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.RunID, o.Index, o.Title, o.Company, o.Location, o.URL, nullFloat(o.RelevanceScore),
		string(o.State), string(o.ErrorKind), o.Detail, o.StepsCompleted, o.Screenshot,
		o.StartedAt.UTC().Format(timeLayout), o.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentOutcomes(ctx context.Context, limit int) ([]models.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM outcomes ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.Outcome
	for rows.Next() {
		var (
			o                 models.Outcome
			score             sql.NullFloat64
			state, kind       string
			started, finished string
		)
		if err := rows.Scan(&o.ID, &o.RunID, &o.Index, &o.Title, &o.Company, &o.Location, &o.URL, &score,
			&state, &kind, &o.Detail, &o.StepsCompleted, &o.Screenshot, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		if score.Valid {
			v := score.Float64
			o.RelevanceScore = &v
		}
		o.State = models.State(state)
		o.ErrorKind = models.ErrorKind(kind)
		o.StartedAt, _ = time.Parse(timeLayout, started)
		o.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountByState(ctx context.Context, runID string) (map[models.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY state`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := map[models.State]int{}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[models.State(state)] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
