package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateID  = errors.New("job id already exists")
	ErrJobNotFound  = errors.New("job not found")
	ErrInvalidState = errors.New("operation invalid for job state")
	ErrEmptyCommand = errors.New("command must not be empty")
)

// Service orchestrates queue operations for the CLI and dashboard.
type Service struct {
	store Store
}

// NewService creates a new Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Enqueue validates and inserts a new pending job. An empty id gets a
// generated one; maxRetries is the caller's per-job override (callers pass
// the configured default when the user did not set one).
func (s *Service) Enqueue(ctx context.Context, id, command string, maxRetries int) (*Job, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	job := &Job{
		ID:            id,
		Command:       command,
		State:         StatePending,
		MaxRetries:    maxRetries,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Get retrieves a job by id.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// List returns jobs, optionally filtered by state.
func (s *Service) List(ctx context.Context, state State, limit int) ([]Job, error) {
	if state != "" && !state.Valid() {
		return nil, ErrInvalidState
	}
	return s.store.List(ctx, state, limit)
}

// Stats returns job counts keyed by state, with every state present.
func (s *Service) Stats(ctx context.Context) (map[State]int, error) {
	counts, err := s.store.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[State]int, len(States))
	for _, st := range States {
		stats[st] = counts[st]
	}
	return stats, nil
}

// DLQList returns jobs in the dead-letter queue.
func (s *Service) DLQList(ctx context.Context, limit int) ([]Job, error) {
	return s.store.List(ctx, StateDead, limit)
}

// DLQRetry moves a dead job back to pending with its attempts reset.
func (s *Service) DLQRetry(ctx context.Context, id string) (*Job, error) {
	return s.store.RetryFromDLQ(ctx, id)
}
