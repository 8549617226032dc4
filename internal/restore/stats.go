package restore

import (
	"sync"
	"time"
)

// A Tracker aggregates cumulative counters for the run. All counters only
// ever grow; snapshots are derived on demand and never stored back.
type Tracker struct {
	mu    sync.Mutex
	start time.Time

	total         uint64
	restored      uint64
	alreadyExists uint64
	failed        uint64
	attempts      uint64
	retries       uint64
}

func NewTracker() *Tracker {
	return &Tracker{start: time.Now()}
}

// AddTotal grows the number of expected tasks by n.
func (t *Tracker) AddTotal(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += n
}

// Begin resets the clock. Called when the run starts, so that time spent
// enumerating deleted paths does not skew the completion rate.
func (t *Tracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = time.Now()
}

// Attempt records one dispatched restore call.
func (t *Tracker) Attempt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts++
}

// Retry records that a failed attempt was requeued.
func (t *Tracker) Retry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries++
}

// TaskDone records a task reaching a terminal state.
func (t *Tracker) TaskDone(disp Disposition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch disp {
	case DispositionRestored:
		t.restored++
	case DispositionAlreadyExists:
		t.alreadyExists++
	default:
		t.failed++
	}
}

// A Snapshot is a point-in-time view of the run, derived purely from the
// tracker's counters and the controller's limit.
type Snapshot struct {
	Total         uint64
	Restored      uint64
	AlreadyExists uint64
	Failed        uint64
	Attempts      uint64
	Retries       uint64

	Elapsed   time.Duration
	Rate      float64 // terminal tasks per second
	ErrorRate float64 // fatally failed tasks per attempt
	Remaining uint64

	// ETA is only meaningful while ETAKnown is true, i.e. once the
	// completion rate is nonzero.
	ETA      time.Duration
	ETAKnown bool

	// filled in by the engine
	Limit    int
	InFlight int
}

// Completed returns the number of tasks in a terminal state.
func (s Snapshot) Completed() uint64 {
	return s.Restored + s.AlreadyExists + s.Failed
}

// Snapshot derives the current view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Total:         t.total,
		Restored:      t.restored,
		AlreadyExists: t.alreadyExists,
		Failed:        t.failed,
		Attempts:      t.attempts,
		Retries:       t.retries,
		Elapsed:       time.Since(t.start),
	}

	completed := s.Completed()
	if completed <= t.total {
		s.Remaining = t.total - completed
	}
	if s.Elapsed > 0 {
		s.Rate = float64(completed) / s.Elapsed.Seconds()
	}
	if t.attempts > 0 {
		s.ErrorRate = float64(t.failed) / float64(t.attempts)
	}
	if s.Rate > 0 {
		s.ETA = time.Duration(float64(s.Remaining) / s.Rate * float64(time.Second))
		s.ETAKnown = true
	}

	return s
}
