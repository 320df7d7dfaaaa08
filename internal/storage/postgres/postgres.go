package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
)

const defaultListLimit = 50

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg config.PQSQL) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	pg := &Postgres{Db: db}
	if err := pg.CreateTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("Connected to Postgres submission ledger", slog.String("host", cfg.Host))

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS submissions (
			id BIGSERIAL PRIMARY KEY,
			batch_id VARCHAR(64) NOT NULL,
			bucket VARCHAR(255) NOT NULL,
			object_key TEXT NOT NULL,
			job_id VARCHAR(255),
			endpoint TEXT,
			status VARCHAR(16) NOT NULL CHECK (status IN ('accepted', 'failed', 'skipped')),
			error TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		`,
		`CREATE INDEX IF NOT EXISTS submissions_object_idx ON submissions (bucket, object_key, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS submissions_batch_idx ON submissions (batch_id);`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// RecordSubmissions writes one row per outcome in a single transaction
func (p *Postgres) RecordSubmissions(ctx context.Context, submissions []types.Submission) error {
	if len(submissions) == 0 {
		return nil
	}

	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO submissions (batch_id, bucket, object_key, job_id, endpoint, status, error)
	VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''))
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range submissions {
		_, err := stmt.ExecContext(ctx, s.BatchID, s.Bucket, s.Key, s.JobID, s.Endpoint, string(s.Status), s.Error)
		if err != nil {
			return fmt.Errorf("failed to record submission for %s/%s: %w", s.Bucket, s.Key, err)
		}
	}

	return tx.Commit()
}

// ListSubmissions returns the newest ledger rows for a bucket, optionally narrowed to one key
func (p *Postgres) ListSubmissions(ctx context.Context, q types.SubmissionQuery) ([]types.Submission, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
	SELECT id, batch_id, bucket, object_key, COALESCE(job_id, ''), COALESCE(endpoint, ''),
		status, COALESCE(error, ''), created_at
	FROM submissions
	WHERE bucket = $1 AND ($2::text = '' OR object_key = $2)
	ORDER BY created_at DESC
	LIMIT $3
	`

	rows, err := p.Db.QueryContext(ctx, query, q.Bucket, q.Key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []types.Submission
	for rows.Next() {
		var s types.Submission
		var status string
		if err := rows.Scan(&s.ID, &s.BatchID, &s.Bucket, &s.Key, &s.JobID, &s.Endpoint, &status, &s.Error, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		s.Status = types.SubmissionStatus(status)
		submissions = append(submissions, s)
	}

	return submissions, rows.Err()
}

func (p *Postgres) Close() error {
	return p.Db.Close()
}
