package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrJobNotFound reports a ledger lookup miss.
var ErrJobNotFound = errors.New("job not found")

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_jobs (
    id              TEXT PRIMARY KEY,
    source_bucket   TEXT NOT NULL,
    source_key      TEXT NOT NULL,
    status          TEXT NOT NULL,
    stage           TEXT NOT NULL DEFAULT '',
    transcribe_name TEXT NOT NULL DEFAULT '',
    destination_key TEXT NOT NULL DEFAULT '',
    error_message   TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_jobs_status ON pipeline_jobs(status);
`

// Store persists pipeline job records in SQLite. The database is transient
// operational state, not an archive; records exist so operators can inspect
// in-flight and recently finished invocations.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	dbPath := filepath.Join(dir, "jobs.db")
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
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewJob inserts a pending record for a triggering object and returns it.
func (s *Store) NewJob(ctx context.Context, sourceBucket, sourceKey string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:           uuid.NewString(),
		SourceBucket: sourceBucket,
		SourceKey:    sourceKey,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_jobs (
            id, source_bucket, source_key, status, stage,
            transcribe_name, destination_key, error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, '', '', '', '', ?, ?)`,
		job.ID,
		job.SourceBucket,
		job.SourceKey,
		job.Status,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Update persists the mutable fields of a job record.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	if !job.Status.Valid() {
		return fmt.Errorf("invalid status %q", job.Status)
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE pipeline_jobs SET
            status = ?, stage = ?, transcribe_name = ?,
            destination_key = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		job.Status,
		job.Stage,
		job.TranscribeName,
		job.DestinationKey,
		job.ErrorMessage,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	return nil
}

// Get returns the job with the given identifier.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, source_bucket, source_key, status, stage,
                transcribe_name, destination_key, error_message, created_at, updated_at
         FROM pipeline_jobs WHERE id = ?`,
		id,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// List returns jobs ordered newest first, capped at limit (0 means all).
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT id, source_bucket, source_key, status, stage,
                     transcribe_name, destination_key, error_message, created_at, updated_at
              FROM pipeline_jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClearTerminal removes completed, failed, and skipped records and returns
// how many were deleted.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM pipeline_jobs WHERE status IN (?, ?, ?)`,
		StatusCompleted, StatusFailed, StatusSkipped,
	)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*Job, error) {
	var job Job
	var createdAt, updatedAt string
	err := scanner.Scan(
		&job.ID,
		&job.SourceBucket,
		&job.SourceKey,
		&job.Status,
		&job.Stage,
		&job.TranscribeName,
		&job.DestinationKey,
		&job.ErrorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		job.CreatedAt = ts
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		job.UpdatedAt = ts
	}
	return &job, nil
}
