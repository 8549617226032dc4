// Package progress provides periodic progress reporting for long-running
// operations.
package progress

import (
	"sync"
	"time"
)

// An UpdateFunc is a callback for an Updater.
//
// The final argument is true if Updater.Done has been called,
// which means that the current call will be the last.
type UpdateFunc func(runtime time.Duration, final bool)

// An Updater controls a goroutine that periodically calls an UpdateFunc.
type Updater struct {
	fn        UpdateFunc
	start     time.Time
	stopped   chan struct{} // closed when the updater goroutine terminates
	stop      chan struct{} // closed by Done to request termination
	closeOnce sync.Once
}

// NewUpdater starts a new Updater. A zero or negative interval disables
// periodic updates; the UpdateFunc is then only called once, from Done.
func NewUpdater(interval time.Duration, fn UpdateFunc) *Updater {
	c := &Updater{
		fn:      fn,
		start:   time.Now(),
		stopped: make(chan struct{}),
		stop:    make(chan struct{}),
	}

	go c.run(interval)

	return c
}

// Done tells an Updater to stop and waits for it to report its final value.
// Later calls do nothing.
func (c *Updater) Done() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.stopped
}

func (c *Updater) run(interval time.Duration) {
	defer close(c.stopped)
	defer func() {
		// Must be a func so that time.Since isn't called at defer time.
		c.fn(time.Since(c.start), true)
	}()

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-tick:
		case <-c.stop:
			return
		}

		c.fn(time.Since(c.start), false)
	}
}
