package provisioning

import (
	"context"
	"time"
)

// StateFetch reports the current lifecycle state of a resource. found is
// false when the provider no longer knows the resource.
type StateFetch func(ctx context.Context) (state string, found bool, err error)

// Waiter repeatedly fetches a resource's lifecycle state until it matches
// the expected value or the deadline passes. The clock and sleep functions
// are injectable so tests do not depend on wall-clock time.
type Waiter struct {
	Interval time.Duration
	Timeout  time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// NewWaiter creates a waiter backed by the real clock.
func NewWaiter(interval, timeout time.Duration) *Waiter {
	return &Waiter{
		Interval: interval,
		Timeout:  timeout,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// WithClock replaces the waiter's clock and sleep functions. Used by tests.
func (w *Waiter) WithClock(now func() time.Time, sleep func(time.Duration)) *Waiter {
	w.now = now
	w.sleep = sleep
	return w
}

// WaitForState polls fetch until it reports the expected state. A resource
// reported as gone satisfies the wait when missingOK is set (idempotent
// deletes); otherwise it fails immediately. A resource already in the
// expected state returns without sleeping.
func (w *Waiter) WaitForState(ctx context.Context, expected string, missingOK bool, fetch StateFetch) error {
	deadline := w.now().Add(w.Timeout)

	for {
		state, found, err := fetch(ctx)
		if err != nil {
			return err
		}

		if !found {
			if missingOK {
				return nil
			}
			return provisionErrorf("resource disappeared while waiting for state %s", expected)
		}

		if state == expected {
			return nil
		}

		if !w.now().Before(deadline) {
			return provisionErrorf("timed out after %s waiting for state %s, last state was %s",
				w.Timeout, expected, state)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.sleep(w.Interval)
	}
}
