package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGBundleStore is a Postgres-backed bundle store for deployments where the
// tracker's relational tables already live in Postgres.
type PGBundleStore struct {
	pool *pgxpool.Pool
}

// ConnectPGBundleStore creates a pgx pool and ensures the bundle table exists.
func ConnectPGBundleStore(ctx context.Context, databaseURL string) (*PGBundleStore, error) {
	if databaseURL == "" {
		return nil, errors.New("bundle store: DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bundle store: parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("bundle store: create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bundle store: ping postgres: %w", err)
	}

	s := &PGBundleStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PGBundleStore) Close() { s.pool.Close() }

func (s *PGBundleStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS job_analysis_bundles (
		job_id              BIGINT PRIMARY KEY,
		fingerprint         TEXT NOT NULL,
		resume_raw          TEXT,
		resume_ai_optimized TEXT,
		resume_detailed     TEXT,
		jd_raw              TEXT,
		jd_ai_optimized     TEXT,
		jd_detailed         TEXT,
		tokens_used         INTEGER NOT NULL DEFAULT 0,
		cost_usd            DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("bundle store: migrate: %w", err)
	}
	return nil
}

// Get returns the job's bundle when its stored fingerprint matches;
// absence or mismatch is (nil, nil).
func (s *PGBundleStore) Get(ctx context.Context, jobID int64, fingerprint string) (*Bundle, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT job_id, fingerprint, resume_raw, resume_ai_optimized, resume_detailed,
		        jd_raw, jd_ai_optimized, jd_detailed, tokens_used, cost_usd, created_at, updated_at
		 FROM job_analysis_bundles WHERE job_id = $1`, jobID)

	b, err := scanBundle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bundle store: get job %d: %w", jobID, err)
	}
	if b.Fingerprint != fingerprint {
		return nil, nil
	}
	return b, nil
}

// Put upserts the bundle by job ID, overwriting every field.
func (s *PGBundleStore) Put(ctx context.Context, b *Bundle) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if b.CreatedAt == "" {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_analysis_bundles
		   (job_id, fingerprint, resume_raw, resume_ai_optimized, resume_detailed,
		    jd_raw, jd_ai_optimized, jd_detailed, tokens_used, cost_usd, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (job_id) DO UPDATE SET
		   fingerprint         = EXCLUDED.fingerprint,
		   resume_raw          = EXCLUDED.resume_raw,
		   resume_ai_optimized = EXCLUDED.resume_ai_optimized,
		   resume_detailed     = EXCLUDED.resume_detailed,
		   jd_raw              = EXCLUDED.jd_raw,
		   jd_ai_optimized     = EXCLUDED.jd_ai_optimized,
		   jd_detailed         = EXCLUDED.jd_detailed,
		   tokens_used         = EXCLUDED.tokens_used,
		   cost_usd            = EXCLUDED.cost_usd,
		   created_at          = EXCLUDED.created_at,
		   updated_at          = EXCLUDED.updated_at`,
		b.JobID, b.Fingerprint, b.ResumeRaw, b.ResumeAIOptimized, b.ResumeDetailed,
		b.JDRaw, b.JDAIOptimized, b.JDDetailed, b.TokensUsed, b.CostUSD, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("bundle store: put job %d: %w", b.JobID, err)
	}
	return nil
}

// Invalidate deletes the job's bundle.
func (s *PGBundleStore) Invalidate(ctx context.Context, jobID int64) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM job_analysis_bundles WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("bundle store: invalidate job %d: %w", jobID, err)
	}
	return nil
}
