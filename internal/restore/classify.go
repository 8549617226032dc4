package restore

import (
	"context"
	"net"

	"github.com/mdarezzo/massundelete/internal/errors"
)

// Disposition is the classified outcome of one restore attempt.
type Disposition uint8

const (
	// DispositionRestored means the attempt succeeded.
	DispositionRestored Disposition = iota
	// DispositionAlreadyExists means the service reports the target path as
	// present. A previous attempt (possibly a retried duplicate) already
	// restored it, so this counts as success, not as an error.
	DispositionAlreadyExists
	// DispositionThrottled is a capacity signal from the service. The task
	// is retried and the concurrency controller backs off.
	DispositionThrottled
	// DispositionTransient is a network or server hiccup, retried a bounded
	// number of times.
	DispositionTransient
	// DispositionFatal permanently fails the task. It never aborts the run.
	DispositionFatal
)

func (d Disposition) String() string {
	switch d {
	case DispositionRestored:
		return "restored"
	case DispositionAlreadyExists:
		return "already-exists"
	case DispositionThrottled:
		return "throttled"
	case DispositionTransient:
		return "transient"
	case DispositionFatal:
		return "fatal"
	default:
		return "invalid"
	}
}

// Retryable returns true if a task with this disposition goes back into the
// queue.
func (d Disposition) Retryable() bool {
	return d == DispositionThrottled || d == DispositionTransient
}

// errorPredicates is the part of the backend the classifier needs: the
// backend knows its own wire errors, the classifier only ranks them.
type errorPredicates interface {
	IsAlreadyExists(err error) bool
	IsThrottled(err error) bool
	IsTransient(err error) bool
}

// A Classifier maps raw attempt outcomes to dispositions and enforces the
// retry budget.
type Classifier struct {
	preds      errorPredicates
	maxRetries int
}

func NewClassifier(preds errorPredicates, maxRetries int) *Classifier {
	return &Classifier{preds: preds, maxRetries: maxRetries}
}

// Classify ranks the outcome of the task's most recent attempt. A retryable
// outcome degrades to fatal once the task has used up its attempts (the
// first attempt plus maxRetries retries).
func (c *Classifier) Classify(t *Task, err error) Disposition {
	if err == nil {
		return DispositionRestored
	}

	if c.preds.IsAlreadyExists(err) {
		return DispositionAlreadyExists
	}

	disp := DispositionFatal
	switch {
	case c.preds.IsThrottled(err):
		disp = DispositionThrottled
	case c.preds.IsTransient(err) || isTimeout(err):
		disp = DispositionTransient
	}

	if disp.Retryable() && t.Attempts > c.maxRetries {
		return DispositionFatal
	}

	return disp
}

// isTimeout catches timeout and cancellation outcomes the backend predicates
// cannot see, e.g. the per-call deadline expiring before a response arrives.
// A call cut short by run cancellation is transient as well: the task goes
// back to pending and is simply never admitted again.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
