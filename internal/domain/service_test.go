package domain

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockStore implements Store for testing.
type mockStore struct {
	jobs       map[string]*Job
	enqueueErr error
}

func newMockStore() *mockStore {
	return &mockStore{jobs: make(map[string]*Job)}
}

func (m *mockStore) Enqueue(ctx context.Context, job *Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	if _, ok := m.jobs[job.ID]; ok {
		return ErrDuplicateID
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockStore) ClaimNext(ctx context.Context) (*Job, error) {
	now := time.Now()
	for _, job := range m.jobs {
		if job.State == StatePending && !job.NextAttemptAt.After(now) {
			job.State = StateProcessing
			return job, nil
		}
	}
	return nil, nil
}

func (m *mockStore) RecordOutcome(ctx context.Context, id string, out Outcome, backoffBase int) (*Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.State != StateProcessing {
		return nil, ErrInvalidState
	}
	next := Transition(*job, out, backoffBase, time.Now())
	m.jobs[id] = &next
	return &next, nil
}

func (m *mockStore) Get(ctx context.Context, id string) (*Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (m *mockStore) List(ctx context.Context, state State, limit int) ([]Job, error) {
	var out []Job
	for _, job := range m.jobs {
		if state == "" || job.State == state {
			out = append(out, *job)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockStore) CountByState(ctx context.Context) (map[State]int, error) {
	counts := make(map[State]int)
	for _, job := range m.jobs {
		counts[job.State]++
	}
	return counts, nil
}

func (m *mockStore) RetryFromDLQ(ctx context.Context, id string) (*Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.State != StateDead {
		return nil, ErrInvalidState
	}
	job.State = StatePending
	job.Attempts = 0
	job.NextAttemptAt = time.Now()
	return job, nil
}

func (m *mockStore) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	var n int64
	for _, job := range m.jobs {
		if job.State == StateProcessing {
			job.State = StatePending
			n++
		}
	}
	return n, nil
}

func TestService_Enqueue(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		command string
		wantErr error
	}{
		{"valid", "j1", "echo hello", nil},
		{"empty command", "j1", "", ErrEmptyCommand},
		{"whitespace command", "j1", "   ", ErrEmptyCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockStore())

			job, err := svc.Enqueue(context.Background(), tt.id, tt.command, 3)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Enqueue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if job.State != StatePending {
				t.Errorf("State = %q, want %q", job.State, StatePending)
			}
			if job.NextAttemptAt.After(time.Now()) {
				t.Error("new job not immediately eligible")
			}
		})
	}
}

func TestService_Enqueue_GeneratesID(t *testing.T) {
	svc := NewService(newMockStore())

	job, err := svc.Enqueue(context.Background(), "", "echo hi", 3)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if job.ID == "" {
		t.Error("Enqueue() did not generate an id")
	}
}

func TestService_Enqueue_ClampsNegativeRetries(t *testing.T) {
	svc := NewService(newMockStore())

	job, err := svc.Enqueue(context.Background(), "j1", "echo hi", -5)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if job.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", job.MaxRetries)
	}
}

func TestService_Enqueue_Duplicate(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, "j1", "echo one", 3)
	if err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}

	_, err = svc.Enqueue(ctx, "j1", "echo two", 3)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("second Enqueue() error = %v, want %v", err, ErrDuplicateID)
	}

	// First record untouched.
	got, _ := svc.Get(ctx, "j1")
	if got.Command != first.Command {
		t.Errorf("Command = %q, want %q", got.Command, first.Command)
	}
}

func TestService_List_InvalidState(t *testing.T) {
	svc := NewService(newMockStore())

	_, err := svc.List(context.Background(), State("bogus"), 10)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("List() error = %v, want %v", err, ErrInvalidState)
	}
}

func TestService_Stats_IncludesAllStates(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	ctx := context.Background()

	svc.Enqueue(ctx, "j1", "echo hi", 3)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	for _, state := range States {
		if _, ok := stats[state]; !ok {
			t.Errorf("Stats() missing state %q", state)
		}
	}
	if stats[StatePending] != 1 {
		t.Errorf("Stats()[pending] = %d, want 1", stats[StatePending])
	}
}

func TestService_DLQRetry(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	ctx := context.Background()

	svc.Enqueue(ctx, "j1", "exit 1", 0)
	store.jobs["j1"].State = StateDead
	store.jobs["j1"].Attempts = 1

	job, err := svc.DLQRetry(ctx, "j1")
	if err != nil {
		t.Fatalf("DLQRetry() error = %v", err)
	}
	if job.State != StatePending || job.Attempts != 0 {
		t.Errorf("DLQRetry() state=%q attempts=%d, want pending/0", job.State, job.Attempts)
	}

	_, err = svc.DLQRetry(ctx, "j1")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("DLQRetry() on pending job error = %v, want %v", err, ErrInvalidState)
	}
	_, err = svc.DLQRetry(ctx, "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("DLQRetry() on missing job error = %v, want %v", err, ErrJobNotFound)
	}
}
