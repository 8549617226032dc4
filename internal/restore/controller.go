package restore

import (
	"context"
	"sync"

	"github.com/mdarezzo/massundelete/internal/debug"
)

// A Controller owns the pool of permits that bounds how many restore calls
// are in flight. It resizes the pool with an AIMD policy: grow additively
// while the service keeps up, halve as soon as it signals pressure.
// Adjustments happen every AdjustEvery completed attempts, so windows always
// describe the same number of samples no matter how slow the calls are.
type Controller struct {
	mu   sync.Mutex
	cond *sync.Cond

	limit    int
	inFlight int

	// window counters, reset after each adjustment
	windowSuccesses int
	windowErrors    int
	windowThrottles int

	policy Policy
}

// NewController returns a controller sized to the policy's initial
// concurrency, clamped into [MinConcurrency, MaxConcurrency].
func NewController(policy Policy) *Controller {
	c := &Controller{
		limit:  clamp(policy.InitialConcurrency, policy.MinConcurrency, policy.MaxConcurrency),
		policy: policy,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Acquire blocks until a permit is available under the current limit, then
// takes it. It returns early with the context error if ctx is canceled.
// Lowering the limit never revokes granted permits; actual concurrency
// drains down to a reduced limit as calls complete.
func (c *Controller) Acquire(ctx context.Context) error {
	// wake up the waiters when the context is canceled, sync.Cond cannot
	// watch a channel itself
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.inFlight >= c.limit {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.cond.Wait()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.inFlight++
	return nil
}

// Release returns a permit.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight--
	c.cond.Broadcast()
}

// Record feeds the classified outcome of a completed attempt into the
// current window and adjusts the limit once the window is full.
func (c *Controller) Record(disp Disposition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch disp {
	case DispositionRestored, DispositionAlreadyExists:
		c.windowSuccesses++
	case DispositionThrottled:
		c.windowThrottles++
	default:
		c.windowErrors++
	}

	if c.windowSuccesses+c.windowErrors+c.windowThrottles >= c.policy.AdjustEvery {
		c.adjust()
	}
}

// adjust applies one AIMD step. Caller must hold c.mu.
func (c *Controller) adjust() {
	completed := c.windowSuccesses + c.windowErrors + c.windowThrottles
	errorRate := float64(c.windowErrors) / float64(completed)

	old := c.limit
	switch {
	case c.windowThrottles > 0 || errorRate > c.policy.HighErrorRate:
		c.limit = int(float64(c.limit) * c.policy.DecreaseFactor)
	case errorRate < c.policy.LowErrorRate:
		step := int(float64(c.limit) * c.policy.IncreaseFactor)
		if step < 1 {
			step = 1
		}
		c.limit += step
	}
	c.limit = clamp(c.limit, c.policy.MinConcurrency, c.policy.MaxConcurrency)

	if c.limit != old {
		debug.Log("limit %d -> %d (window: %d ok, %d errors, %d throttled)",
			old, c.limit, c.windowSuccesses, c.windowErrors, c.windowThrottles)
	}
	if c.limit > old {
		c.cond.Broadcast()
	}

	c.windowSuccesses, c.windowErrors, c.windowThrottles = 0, 0, 0
}

// Limit returns the current concurrency limit.
func (c *Controller) Limit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// InFlight returns the number of granted permits.
func (c *Controller) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
