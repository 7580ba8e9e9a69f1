package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-easyapply-automation/internal/models"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func ConnectPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// transaction-mode poolers (PgBouncer, Supabase) reject prepared statements
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

func (r *PostgresStore) SaveOutcome(ctx context.Context, o models.Outcome) error {
	query := `
		INSERT INTO outcomes (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id)
		DO UPDATE SET state = EXCLUDED.state, error_kind = EXCLUDED.error_kind, detail = EXCLUDED.detail,
			steps_completed = EXCLUDED.steps_completed, screenshot = EXCLUDED.screenshot, finished_at = EXCLUDED.finished_at`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.RunID, o.Index, o.Title, o.Company, o.Location, o.URL, o.RelevanceScore,
		string(o.State), string(o.ErrorKind), o.Detail, o.StepsCompleted, o.Screenshot,
		o.StartedAt.UTC(), o.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

func (r *PostgresStore) RecentOutcomes(ctx context.Context, limit int) ([]models.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM outcomes ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.Outcome
	for rows.Next() {
		var (
			o           models.Outcome
			state, kind string
		)
		if err := rows.Scan(&o.ID, &o.RunID, &o.Index, &o.Title, &o.Company, &o.Location, &o.URL, &o.RelevanceScore,
			&state, &kind, &o.Detail, &o.StepsCompleted, &o.Screenshot, &o.StartedAt, &o.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.State = models.State(state)
		o.ErrorKind = models.ErrorKind(kind)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresStore) CountByState(ctx context.Context, runID string) (map[models.State]int, error) {
	rows, err := r.db.Query(ctx, `SELECT state, COUNT(*) FROM outcomes WHERE run_id = $1 GROUP BY state`, runID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[models.State]int{}, nil
		}
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := map[models.State]int{}
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[models.State(state)] = int(n)
	}
	return counts, rows.Err()
}

func (r *PostgresStore) Close() error {
	if r.db != nil {
		r.db.Close()
	}
	return nil
}
