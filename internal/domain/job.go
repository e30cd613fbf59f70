package domain

import "time"

// State represents the lifecycle state of a job.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateDead       State = "dead"
)

// States lists all recognized job states in display order.
var States = []State{StatePending, StateProcessing, StateCompleted, StateFailed, StateDead}

// Valid reports whether s is a recognized state value.
func (s State) Valid() bool {
	for _, v := range States {
		if s == v {
			return true
		}
	}
	return false
}

// Job represents a unit of work (a shell command) and its execution history.
type Job struct {
	ID            string
	Command       string
	State         State
	Attempts      int
	MaxRetries    int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// Outcome is the result of executing a job's command once.
type Outcome struct {
	Success bool
	Reason  string
}

// Succeeded returns a successful outcome.
func Succeeded() Outcome {
	return Outcome{Success: true}
}

// Failed returns a failure outcome carrying the failure reason.
func Failed(reason string) Outcome {
	return Outcome{Reason: reason}
}

// maxBackoffSeconds bounds the computed retry delay so pathological
// base/attempt combinations cannot overflow the duration math.
const maxBackoffSeconds = int64(1) << 31

// BackoffDelay returns base^attempts seconds, the delay before a job that
// has failed attempts times becomes eligible again.
func BackoffDelay(base, attempts int) time.Duration {
	if base < 1 {
		base = 1
	}
	d := int64(1)
	for i := 0; i < attempts; i++ {
		d *= int64(base)
		if d > maxBackoffSeconds {
			d = maxBackoffSeconds
			break
		}
	}
	return time.Duration(d) * time.Second
}

// Transition applies an execution outcome to a processing job and returns
// the updated record. It is pure: all clock input comes from now.
//
// Success completes the job with attempts unchanged. Failure increments the
// attempt count; once it exceeds the retry budget the job goes dead,
// otherwise it returns to pending with next_attempt_at pushed out by
// backoffBase^attempts seconds (post-increment exponent). With MaxRetries 0
// the first failure goes straight to dead and no backoff is computed.
func Transition(j Job, out Outcome, backoffBase int, now time.Time) Job {
	j.UpdatedAt = now
	if out.Success {
		j.State = StateCompleted
		done := now
		j.CompletedAt = &done
		return j
	}

	j.Attempts++
	j.LastError = out.Reason
	if j.Attempts > j.MaxRetries {
		j.State = StateDead
		return j
	}
	j.State = StatePending
	j.NextAttemptAt = now.Add(BackoffDelay(backoffBase, j.Attempts))
	return j
}
