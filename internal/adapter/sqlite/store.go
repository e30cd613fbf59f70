package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"queuectl/internal/domain"

	_ "modernc.org/sqlite"
)

// Timestamps are stored as unix nanoseconds so the claim predicate can
// compare eligibility in SQL without depending on driver time formatting.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id              TEXT PRIMARY KEY,
    command         TEXT NOT NULL,
    state           TEXT NOT NULL DEFAULT 'pending',
    attempts        INTEGER NOT NULL DEFAULT 0,
    max_retries     INTEGER NOT NULL DEFAULT 3,
    last_error      TEXT,
    next_attempt_at INTEGER NOT NULL,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL,
    completed_at    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
CREATE INDEX IF NOT EXISTS idx_jobs_next_attempt ON jobs(next_attempt_at);
`

const jobColumns = `id, command, state, attempts, max_retries, COALESCE(last_error, ''), next_attempt_at, created_at, updated_at, completed_at`

// Store implements domain.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store, initializing the schema if needed.
// WAL mode and a busy timeout keep concurrent writers from multiple worker
// processes from tripping over SQLITE_BUSY.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue inserts a new pending job. The insert-if-absent is a single
// statement, so a concurrent enqueue of the same id cannot interleave.
func (s *Store) Enqueue(ctx context.Context, job *domain.Job) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO jobs
		 (id, command, state, attempts, max_retries, next_attempt_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Command, domain.StatePending, job.Attempts, job.MaxRetries,
		job.NextAttemptAt.UnixNano(), job.CreatedAt.UnixNano(), job.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrDuplicateID
	}
	return nil
}

// ClaimNext atomically claims the oldest eligible pending job. The select
// and the state flip are one statement, so under concurrent claimers only
// the first to execute sees the job as pending; the rest match nothing.
func (s *Store) ClaimNext(ctx context.Context) (*domain.Job, error) {
	now := time.Now()
	row := s.db.QueryRowContext(ctx,
		`UPDATE jobs SET state = ?, updated_at = ?
		 WHERE id = (
		     SELECT id FROM jobs
		     WHERE state = ? AND next_attempt_at <= ?
		     ORDER BY created_at ASC, id ASC
		     LIMIT 1
		 )
		 RETURNING `+jobColumns,
		domain.StateProcessing, now.UnixNano(),
		domain.StatePending, now.UnixNano(),
	)

	job, err := scanJob(row)
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// RecordOutcome applies the state-machine transition for id and persists
// the result. Only a processing job may report an outcome.
func (s *Store) RecordOutcome(ctx context.Context, id string, out domain.Outcome, backoffBase int) (*domain.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	if job.State != domain.StateProcessing {
		return nil, fmt.Errorf("record outcome for %q in state %q: %w", id, job.State, domain.ErrInvalidState)
	}

	next := domain.Transition(*job, out, backoffBase, time.Now())

	var completedAt any
	if next.CompletedAt != nil {
		completedAt = next.CompletedAt.UnixNano()
	}
	var lastErr any
	if next.LastError != "" {
		lastErr = next.LastError
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET state = ?, attempts = ?, last_error = ?, next_attempt_at = ?, updated_at = ?, completed_at = ?
		 WHERE id = ?`,
		next.State, next.Attempts, lastErr, next.NextAttemptAt.UnixNano(), next.UpdatedAt.UnixNano(), completedAt, id,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

// Get retrieves a job by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns jobs newest-first, optionally filtered by state.
func (s *Store) List(ctx context.Context, state domain.State, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if state != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE state = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
			state, limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountByState returns the number of jobs per state.
func (s *Store) CountByState(ctx context.Context) (map[domain.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.State]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[domain.State(state)] = n
	}
	return counts, rows.Err()
}

// RetryFromDLQ resets a dead job to pending with attempts cleared and
// immediate eligibility. The state guard lives in the WHERE clause so a
// concurrent retry of the same job succeeds exactly once.
func (s *Store) RetryFromDLQ(ctx context.Context, id string) (*domain.Job, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, attempts = 0, last_error = NULL, next_attempt_at = ?, updated_at = ?, completed_at = NULL
		 WHERE id = ? AND state = ?`,
		domain.StatePending, now.UnixNano(), now.UnixNano(), id, domain.StateDead,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("dlq retry for %q in state %q: %w", id, job.State, domain.ErrInvalidState)
	}
	return s.Get(ctx, id)
}

// ReleaseStale re-queues processing jobs whose updated_at is older than
// olderThan. Jobs orphaned by a crashed worker stay processing until an
// operator invokes this explicitly.
func (s *Store) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-olderThan)
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, last_error = 'released stale processing job', next_attempt_at = ?, updated_at = ?
		 WHERE state = ? AND updated_at <= ?`,
		domain.StatePending, now.UnixNano(), now.UnixNano(),
		domain.StateProcessing, cutoff.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var job domain.Job
	var state string
	var nextAttempt, createdAt, updatedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(&job.ID, &job.Command, &state, &job.Attempts, &job.MaxRetries,
		&job.LastError, &nextAttempt, &createdAt, &updatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	job.State = domain.State(state)
	job.NextAttemptAt = time.Unix(0, nextAttempt)
	job.CreatedAt = time.Unix(0, createdAt)
	job.UpdatedAt = time.Unix(0, updatedAt)
	if completedAt.Valid {
		done := time.Unix(0, completedAt.Int64)
		job.CompletedAt = &done
	}
	return &job, nil
}
