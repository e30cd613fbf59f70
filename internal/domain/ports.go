package domain

import (
	"context"
	"time"
)

// Store is the driven port for durable job persistence. Implementations
// must be safe for concurrent use from multiple workers and processes;
// ClaimNext is the single operation that must be atomic across callers.
type Store interface {
	// Enqueue inserts a new pending job. Returns ErrDuplicateID if a job
	// with the same id already exists; the existing record is not touched.
	Enqueue(ctx context.Context, job *Job) error

	// ClaimNext atomically selects the oldest eligible pending job
	// (next_attempt_at has elapsed), marks it processing and returns it.
	// Returns (nil, nil) when no job is eligible. At most one caller ever
	// receives a given job per claim cycle.
	ClaimNext(ctx context.Context) (*Job, error)

	// RecordOutcome applies the state-machine transition for an execution
	// outcome and persists the result. Returns ErrJobNotFound for unknown
	// ids and ErrInvalidState if the job is not currently processing.
	RecordOutcome(ctx context.Context, id string, out Outcome, backoffBase int) (*Job, error)

	// Get returns a job by id, or ErrJobNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns jobs newest-first, optionally filtered by state
	// (empty state means all), up to limit.
	List(ctx context.Context, state State, limit int) ([]Job, error)

	// CountByState returns the number of jobs per state.
	CountByState(ctx context.Context) (map[State]int, error)

	// RetryFromDLQ resets a dead job to pending with attempts cleared and
	// immediate eligibility. Returns ErrInvalidState if the job is not
	// dead, ErrJobNotFound if it does not exist.
	RetryFromDLQ(ctx context.Context, id string) (*Job, error)

	// ReleaseStale re-queues processing jobs not updated for olderThan,
	// returning how many were released. Invoked explicitly by operators;
	// the engine never runs it on its own.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Executor is the driven port for running a job's command. Execute reports
// exactly one outcome per invocation and performs no retry logic. A command
// that never returns blocks the caller; no timeout is enforced.
type Executor interface {
	Execute(job *Job) Outcome
}
