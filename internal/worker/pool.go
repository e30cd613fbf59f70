package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"queuectl/internal/domain"

	"github.com/google/uuid"
)

// Pool coordinates a set of worker goroutines that repeatedly claim and
// execute jobs. The store is the sole synchronization point between
// workers; the pool itself only tracks membership and the stop flag.
type Pool struct {
	store        domain.Store
	executor     domain.Executor
	logger       *slog.Logger
	pollInterval time.Duration
	backoffBase  int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	members map[string]time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithPollInterval sets how long an idle worker sleeps between claims.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) { p.pollInterval = d }
}

// WithBackoffBase sets the exponential-backoff base applied to failures.
func WithBackoffBase(base int) Option {
	return func(p *Pool) { p.backoffBase = base }
}

// NewPool creates a worker pool.
func NewPool(store domain.Store, executor domain.Executor, logger *slog.Logger, opts ...Option) *Pool {
	p := &Pool{
		store:        store,
		executor:     executor,
		logger:       logger,
		pollInterval: time.Second,
		backoffBase:  2,
		members:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches count worker loops and returns immediately. Each worker
// is registered in the membership record before its loop begins, so Status
// right after Start reflects all of them.
func (p *Pool) Start(count int) error {
	if count < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", count)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("pool already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})

	for i := 0; i < count; i++ {
		id := uuid.NewString()
		p.members[id] = time.Now()
		p.wg.Add(1)
		go p.runWorker(id)
	}
	return nil
}

// Stop signals all workers to shut down and blocks until they have
// finished their in-flight job and deregistered. Workers observe the stop
// flag only between jobs; no job is ever interrupted mid-execution.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

// Status reports the number of registered workers and their ids.
func (p *Pool) Status() (int, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.members))
	for id := range p.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return len(ids), ids
}

func (p *Pool) deregister(id string) {
	p.mu.Lock()
	delete(p.members, id)
	p.mu.Unlock()
}

// runWorker is the claim/execute/report loop for one worker. A store error
// is fatal to this worker only; a failing job never is.
func (p *Pool) runWorker(id string) {
	defer p.wg.Done()
	defer p.deregister(id)

	log := p.logger.With("worker", id)
	log.Info("worker started")

	for {
		select {
		case <-p.stopCh:
			log.Info("worker stopped")
			return
		default:
		}

		job, err := p.store.ClaimNext(context.Background())
		if err != nil {
			log.Error("claim failed, worker exiting", "error", err)
			return
		}
		if job == nil {
			select {
			case <-p.stopCh:
				log.Info("worker stopped")
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		log.Info("job claimed", "job", job.ID, "command", job.Command)

		// Execution deliberately ignores the stop flag: shutdown waits for
		// in-flight jobs rather than killing them.
		out := p.executor.Execute(job)

		updated, err := p.store.RecordOutcome(context.Background(), job.ID, out, p.backoffBase)
		if err != nil {
			if errors.Is(err, domain.ErrJobNotFound) || errors.Is(err, domain.ErrInvalidState) {
				log.Error("outcome rejected", "job", job.ID, "error", err)
				continue
			}
			log.Error("record outcome failed, worker exiting", "job", job.ID, "error", err)
			return
		}

		switch updated.State {
		case domain.StateCompleted:
			log.Info("job completed", "job", updated.ID)
		case domain.StateDead:
			log.Warn("job moved to dead letter queue",
				"job", updated.ID, "attempts", updated.Attempts, "error", updated.LastError)
		default:
			log.Info("job failed, retry scheduled",
				"job", updated.ID,
				"attempt", updated.Attempts,
				"max_retries", updated.MaxRetries,
				"next_attempt_at", updated.NextAttemptAt,
				"error", updated.LastError)
		}
	}
}
