package restore

import (
	"context"
	"fmt"
	"testing"

	"github.com/mdarezzo/massundelete/internal/backend"
	"github.com/mdarezzo/massundelete/internal/errors"
	rtest "github.com/mdarezzo/massundelete/internal/test"
)

var (
	errExists    = errors.New("path already exists")
	errThrottled = errors.New("server busy")
	errTransient = errors.New("connection reset")
	errBroken    = errors.New("authorization failure")
)

// fakePredicates classifies the sentinel errors above, like a backend
// classifies its wire errors.
type fakePredicates struct{}

func (fakePredicates) IsAlreadyExists(err error) bool { return errors.Is(err, errExists) }
func (fakePredicates) IsThrottled(err error) bool     { return errors.Is(err, errThrottled) }
func (fakePredicates) IsTransient(err error) bool     { return errors.Is(err, errTransient) }

func TestClassify(t *testing.T) {
	c := NewClassifier(fakePredicates{}, 5)

	tests := []struct {
		name     string
		err      error
		attempts int
		want     Disposition
	}{
		{"success", nil, 1, DispositionRestored},
		{"already exists", errExists, 1, DispositionAlreadyExists},
		{"throttled", errThrottled, 1, DispositionThrottled},
		{"transient", errTransient, 1, DispositionTransient},
		{"wrapped transient", fmt.Errorf("undelete: %w", errTransient), 1, DispositionTransient},
		{"deadline", context.DeadlineExceeded, 1, DispositionTransient},
		{"canceled", context.Canceled, 1, DispositionTransient},
		{"unknown error", errBroken, 1, DispositionFatal},
		{"throttled at retry budget", errThrottled, 6, DispositionFatal},
		{"transient at retry budget", errTransient, 7, DispositionFatal},
		{"transient at last allowed attempt", errTransient, 5, DispositionTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			task := &Task{Path: "a/b", Attempts: test.attempts}
			rtest.Equals(t, test.want, c.Classify(task, test.err))
		})
	}
}

// A response claiming the target exists is always benign, no matter how many
// attempts the task has behind it.
func TestClassifyAlreadyExistsNeverFatal(t *testing.T) {
	c := NewClassifier(fakePredicates{}, 2)

	for attempts := 1; attempts <= 10; attempts++ {
		task := &Task{Path: "a/b", Attempts: attempts}
		rtest.Equals(t, DispositionAlreadyExists, c.Classify(task, errExists))
	}
}

func TestClassifyZeroRetries(t *testing.T) {
	c := NewClassifier(fakePredicates{}, 0)

	task := NewTask(backend.DeletedPath{Path: "a/b", DeletionID: "d1"})
	task.Attempts = 1
	rtest.Equals(t, DispositionFatal, c.Classify(task, errTransient))
}

func TestDispositionRetryable(t *testing.T) {
	rtest.Assert(t, DispositionThrottled.Retryable(), "throttled must be retryable")
	rtest.Assert(t, DispositionTransient.Retryable(), "transient must be retryable")
	rtest.Assert(t, !DispositionRestored.Retryable(), "restored must not be retryable")
	rtest.Assert(t, !DispositionAlreadyExists.Retryable(), "already-exists must not be retryable")
	rtest.Assert(t, !DispositionFatal.Retryable(), "fatal must not be retryable")
}
