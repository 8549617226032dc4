package restore

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mdarezzo/massundelete/internal/debug"
	"github.com/mdarezzo/massundelete/internal/ui/progress"
)

// Backend is the restore collaborator the engine drives. The listing side
// lives with the caller, which enqueues tasks before the run starts.
type Backend interface {
	Undelete(ctx context.Context, path, deletionID string) error
	IsAlreadyExists(err error) bool
	IsThrottled(err error) bool
	IsTransient(err error) bool
}

// Failure describes one permanently failed task.
type Failure struct {
	Path string
	Err  error
}

// Summary is the final account of a run. The conservation invariant holds:
// Restored + AlreadyExists + Failed + Pending == Total.
type Summary struct {
	Total         uint64
	Restored      uint64
	AlreadyExists uint64
	Failed        uint64
	// Pending counts tasks that never reached a terminal state because the
	// run was canceled.
	Pending uint64

	Duration time.Duration
	Failures []Failure
}

// An Engine restores all enqueued tasks. The queue, the controller windows
// and the task states are owned by the coordinator goroutine inside Run;
// workers only execute the remote call and report back.
type Engine struct {
	be      Backend
	queue   *Queue
	ctrl    *Controller
	tracker *Tracker
	class   *Classifier
	policy  Policy
	printer progress.Printer

	tasks    []*Task
	failures []Failure
	requeue  chan *Task
}

// New creates an engine. The printer receives per-task error messages (E)
// and retry chatter (V/VV); pass a NoopPrinter to silence it.
func New(be Backend, policy Policy, printer progress.Printer) (*Engine, error) {
	if err := policy.Check(); err != nil {
		return nil, err
	}
	if printer == nil {
		printer = &progress.NoopPrinter{}
	}

	return &Engine{
		be:      be,
		queue:   NewQueue(),
		ctrl:    NewController(policy),
		tracker: NewTracker(),
		class:   NewClassifier(be, policy.MaxRetries),
		policy:  policy,
		printer: printer,
	}, nil
}

// Add enqueues a task. Must not be called once Run has started.
func (e *Engine) Add(t *Task) {
	e.tasks = append(e.tasks, t)
	e.queue.Push(t)
	e.tracker.AddTotal(1)
}

// Snapshot returns the current progress, safe to call concurrently with Run.
func (e *Engine) Snapshot() Snapshot {
	s := e.tracker.Snapshot()
	s.Limit = e.ctrl.Limit()
	s.InFlight = e.ctrl.InFlight()
	return s
}

type attemptResult struct {
	task *Task
	err  error
	took time.Duration
}

// Run processes the queue until every task is terminal, or until ctx is
// canceled. Cancellation stops new admissions, lets in-flight calls finish
// (they are cut short by their own deadline at the latest) and returns a
// partial summary together with the context error. Per-task failures never
// abort the run.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	e.tracker.Begin()
	// buffered so that a late retry timer never blocks on a coordinator
	// that has already returned
	e.requeue = make(chan *Task, len(e.tasks))

	results := make(chan attemptResult)
	var wg errgroup.Group

	inFlight := 0
	retryWait := 0
	admit := true

	for e.queue.Len() > 0 || inFlight > 0 || retryWait > 0 {
		if admit && ctx.Err() != nil {
			admit = false
			if inFlight > 0 {
				e.printer.P("stopping, waiting for %d calls in flight", inFlight)
			}
		}
		if !admit && inFlight == 0 {
			// do not wait out retry delays that can no longer be served
			break
		}

		// prefer settling finished work over admitting more
		if inFlight > 0 {
			select {
			case res := <-results:
				inFlight--
				retryWait += e.settle(res)
				continue
			case t := <-e.requeue:
				retryWait--
				t.State = StatePending
				e.queue.Push(t)
				continue
			default:
			}
		}

		if admit && e.queue.Len() > 0 {
			if err := e.ctrl.Acquire(ctx); err != nil {
				admit = false
				continue
			}

			t := e.queue.Pop()
			t.State = StateInFlight
			t.Attempts++
			e.tracker.Attempt()
			inFlight++

			wg.Go(func() error {
				e.execute(ctx, t, results)
				return nil
			})
			continue
		}

		// nothing to admit: block until a call completes, a retry delay
		// expires or the run is canceled. Once admissions have stopped
		// the cancellation case is disabled, otherwise a closed Done
		// channel would turn this select into a busy loop.
		var stopped <-chan struct{}
		if admit {
			stopped = ctx.Done()
		}
		select {
		case res := <-results:
			inFlight--
			retryWait += e.settle(res)
		case t := <-e.requeue:
			retryWait--
			t.State = StatePending
			e.queue.Push(t)
		case <-stopped:
			// handled at the top of the loop
		}
	}

	_ = wg.Wait()

	// tasks still waiting on a retry timer were never resolved, put them
	// back to pending for an honest summary
	for _, t := range e.tasks {
		if t.State == StateRetryWait {
			t.State = StatePending
		}
	}

	return e.summary(), ctx.Err()
}

// execute performs one restore call under the permit the coordinator
// acquired. This is the only place the remote call is issued and timed.
func (e *Engine) execute(ctx context.Context, t *Task, results chan<- attemptResult) {
	callCtx, cancel := context.WithTimeout(ctx, e.policy.CallTimeout)
	start := time.Now()
	err := e.be.Undelete(callCtx, t.Path, t.DeletionID)
	took := time.Since(start)
	cancel()

	e.ctrl.Release()
	results <- attemptResult{task: t, err: err, took: took}
}

// settle routes a completed attempt through the classifier and updates task
// state, controller and tracker. It returns 1 if the task was scheduled for
// a retry, 0 otherwise.
func (e *Engine) settle(res attemptResult) int {
	t := res.task
	disp := e.class.Classify(t, res.err)
	e.ctrl.Record(disp)

	debug.Log("%v: attempt %d took %v, %v", t.Path, t.Attempts, res.took, disp)

	switch disp {
	case DispositionRestored:
		t.State = StateRestored
		e.tracker.TaskDone(disp)

	case DispositionAlreadyExists:
		t.State = StateAlreadyExists
		e.tracker.TaskDone(disp)
		e.printer.V("%v was already restored", t.Path)

	case DispositionThrottled, DispositionTransient:
		t.State = StateRetryWait
		t.LastErr = res.err
		e.tracker.Retry()

		delay := t.retryDelay(e.policy.RetryInitialInterval, e.policy.RetryMaxInterval)
		e.printer.VV("retrying %v in %v (attempt %d, %v): %v", t.Path, delay, t.Attempts, disp, res.err)
		time.AfterFunc(delay, func() {
			e.requeue <- t
		})
		return 1

	case DispositionFatal:
		t.State = StateFailed
		t.LastErr = res.err
		e.tracker.TaskDone(disp)
		e.failures = append(e.failures, Failure{Path: t.Path, Err: res.err})
		e.printer.E("unable to restore %v: %v", t.Path, res.err)
	}

	return 0
}

func (e *Engine) summary() Summary {
	s := e.tracker.Snapshot()

	sum := Summary{
		Total:         s.Total,
		Restored:      s.Restored,
		AlreadyExists: s.AlreadyExists,
		Failed:        s.Failed,
		Duration:      s.Elapsed,
		Failures:      e.failures,
	}
	sum.Pending = sum.Total - sum.Restored - sum.AlreadyExists - sum.Failed
	return sum
}
