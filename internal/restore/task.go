// Package restore implements the engine that drives many concurrent undelete
// calls against a backend while adapting to its capacity.
package restore

import (
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mdarezzo/massundelete/internal/backend"
)

// State is the lifecycle state of a Task.
type State uint8

const (
	StatePending State = iota
	StateInFlight
	StateRetryWait
	StateRestored
	StateAlreadyExists
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in-flight"
	case StateRetryWait:
		return "retry-wait"
	case StateRestored:
		return "restored"
	case StateAlreadyExists:
		return "already-exists"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Terminal returns true if a task in this state is never dispatched again.
func (s State) Terminal() bool {
	return s == StateRestored || s == StateAlreadyExists || s == StateFailed
}

// A Task is one soft-deleted path to restore.
type Task struct {
	Path       string
	DeletionID string

	// Depth is the number of path separators in Path. Shallow paths are
	// restored first so that a directory is materialized before anything
	// below it. Immutable once computed.
	Depth int

	Attempts int
	State    State
	LastErr  error

	seq uint64 // insertion order, assigned by the queue
	bo  backoff.BackOff
}

// NewTask builds a pending task for a deleted path.
func NewTask(p backend.DeletedPath) *Task {
	return &Task{
		Path:       p.Path,
		DeletionID: p.DeletionID,
		Depth:      strings.Count(p.Path, "/"),
		State:      StatePending,
	}
}

// retryDelay returns how long to wait before requeueing the task. The delay
// grows exponentially per task, so a path that keeps hitting a throttled
// service does not instantly re-enter the admission race.
func (t *Task) retryDelay(initial, max time.Duration) time.Duration {
	if t.bo == nil {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = initial
		bo.MaxInterval = max
		bo.MaxElapsedTime = 0 // the retry count is bounded by the classifier
		bo.Reset()
		t.bo = bo
	}
	return t.bo.NextBackOff()
}
