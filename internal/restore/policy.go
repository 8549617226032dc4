package restore

import (
	"time"

	"github.com/mdarezzo/massundelete/internal/errors"
)

// Policy collects the tunables of the engine. The AIMD parameters are policy,
// not behavior, so they are configuration instead of constants.
type Policy struct {
	// Concurrency bounds for the controller. The limit starts at
	// InitialConcurrency and never leaves [MinConcurrency, MaxConcurrency].
	MinConcurrency     int
	MaxConcurrency     int
	InitialConcurrency int

	// MaxRetries bounds how often a retryable failure is requeued; a task
	// makes at most MaxRetries+1 attempts.
	MaxRetries int

	// AdjustEvery is the window size of the controller, counted in
	// completed attempts.
	AdjustEvery int

	IncreaseFactor float64 // additive step, as a fraction of the limit (min. 1)
	DecreaseFactor float64 // multiplicative backoff factor
	LowErrorRate   float64 // grow below this window error rate
	HighErrorRate  float64 // shrink above this window error rate

	// CallTimeout bounds each restore call. A timeout is transient.
	CallTimeout time.Duration

	// Delay bounds for requeueing retryable tasks.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultPolicy returns the documented defaults: bounds 10..600 starting at
// 100, five retries, a 50-attempt adjustment window growing by 10% below 2%
// errors and halving on any throttle or above 20% errors.
func DefaultPolicy() Policy {
	return Policy{
		MinConcurrency:       10,
		MaxConcurrency:       600,
		InitialConcurrency:   100,
		MaxRetries:           5,
		AdjustEvery:          50,
		IncreaseFactor:       0.10,
		DecreaseFactor:       0.5,
		LowErrorRate:         0.02,
		HighErrorRate:        0.20,
		CallTimeout:          2 * time.Minute,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     30 * time.Second,
	}
}

// Check validates the policy.
func (p Policy) Check() error {
	if p.MinConcurrency < 1 {
		return errors.New("minimum concurrency must be at least 1")
	}
	if p.MaxConcurrency < p.MinConcurrency {
		return errors.Errorf("maximum concurrency %d is below minimum %d", p.MaxConcurrency, p.MinConcurrency)
	}
	if p.MaxRetries < 0 {
		return errors.New("retry count must not be negative")
	}
	if p.AdjustEvery < 1 {
		return errors.New("adjustment window must be at least 1")
	}
	if p.DecreaseFactor <= 0 || p.DecreaseFactor >= 1 {
		return errors.Errorf("decrease factor %v outside (0, 1)", p.DecreaseFactor)
	}
	if p.IncreaseFactor < 0 {
		return errors.New("increase factor must not be negative")
	}
	if p.CallTimeout <= 0 {
		return errors.New("call timeout must be positive")
	}
	return nil
}
