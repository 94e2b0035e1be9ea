package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBundleStore is the default single-user bundle store.
type SQLiteBundleStore struct {
	db *sql.DB
}

// DefaultBundlePath returns the standard on-disk location of the bundle DB.
func DefaultBundlePath() string {
	return filepath.Join(os.Getenv("HOME"), ".go_apply", "analysis.db")
}

// OpenSQLiteBundleStore opens (or creates) the SQLite bundle database.
func OpenSQLiteBundleStore(path string) (*SQLiteBundleStore, error) {
	if path == "" {
		return nil, errors.New("bundle store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("bundle store: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("bundle store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initBundleSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("bundle store: init schema: %w", err)
	}
	return &SQLiteBundleStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteBundleStore) Close() error { return s.db.Close() }

func initBundleSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS job_analysis_bundles (
		job_id              INTEGER PRIMARY KEY,
		fingerprint         TEXT NOT NULL,
		resume_raw          TEXT,
		resume_ai_optimized TEXT,
		resume_detailed     TEXT,
		jd_raw              TEXT,
		jd_ai_optimized     TEXT,
		jd_detailed         TEXT,
		tokens_used         INTEGER NOT NULL DEFAULT 0,
		cost_usd            REAL NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`)
	return err
}

// Get returns the job's bundle when its stored fingerprint matches.
// Absence or a fingerprint mismatch is a cache miss: (nil, nil).
func (s *SQLiteBundleStore) Get(ctx context.Context, jobID int64, fingerprint string) (*Bundle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, fingerprint, resume_raw, resume_ai_optimized, resume_detailed,
		        jd_raw, jd_ai_optimized, jd_detailed, tokens_used, cost_usd, created_at, updated_at
		 FROM job_analysis_bundles WHERE job_id = ?`, jobID)

	b, err := scanBundle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bundle store: get job %d: %w", jobID, err)
	}
	if b.Fingerprint != fingerprint {
		return nil, nil // source documents changed since extraction
	}
	return b, nil
}

// Put upserts the bundle by job ID, overwriting every field.
func (s *SQLiteBundleStore) Put(ctx context.Context, b *Bundle) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if b.CreatedAt == "" {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_analysis_bundles
		   (job_id, fingerprint, resume_raw, resume_ai_optimized, resume_detailed,
		    jd_raw, jd_ai_optimized, jd_detailed, tokens_used, cost_usd, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
		   fingerprint         = excluded.fingerprint,
		   resume_raw          = excluded.resume_raw,
		   resume_ai_optimized = excluded.resume_ai_optimized,
		   resume_detailed     = excluded.resume_detailed,
		   jd_raw              = excluded.jd_raw,
		   jd_ai_optimized     = excluded.jd_ai_optimized,
		   jd_detailed         = excluded.jd_detailed,
		   tokens_used         = excluded.tokens_used,
		   cost_usd            = excluded.cost_usd,
		   created_at          = excluded.created_at,
		   updated_at          = excluded.updated_at`,
		b.JobID, b.Fingerprint, b.ResumeRaw, b.ResumeAIOptimized, b.ResumeDetailed,
		b.JDRaw, b.JDAIOptimized, b.JDDetailed, b.TokensUsed, b.CostUSD, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("bundle store: put job %d: %w", b.JobID, err)
	}
	return nil
}

// Invalidate deletes the job's bundle; used when source documents were
// replaced out-of-band.
func (s *SQLiteBundleStore) Invalidate(ctx context.Context, jobID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM job_analysis_bundles WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("bundle store: invalidate job %d: %w", jobID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBundle(row rowScanner) (*Bundle, error) {
	var b Bundle
	var resumeRaw, resumeAI, resumeDet, jdRaw, jdAI, jdDet sql.NullString
	if err := row.Scan(&b.JobID, &b.Fingerprint,
		&resumeRaw, &resumeAI, &resumeDet,
		&jdRaw, &jdAI, &jdDet,
		&b.TokensUsed, &b.CostUSD, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ResumeRaw = resumeRaw.String
	b.ResumeAIOptimized = resumeAI.String
	b.ResumeDetailed = resumeDet.String
	b.JDRaw = jdRaw.String
	b.JDAIOptimized = jdAI.String
	b.JDDetailed = jdDet.String
	return &b, nil
}
