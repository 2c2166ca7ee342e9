package control

import (
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

const defaultCancelGrace = 2 * time.Second

// Executor runs blocking calls on a detached goroutine so the caller can bail
// out on cancellation or timeout. The goroutine is never joined; an abandoned
// call finishes (or leaks) on its own and its result is discarded.
type Executor struct {
	// Timeout bounds each call. Zero or negative means no timeout.
	Timeout time.Duration
	// Grace is how long CallCancelable waits for the in-flight call to
	// acknowledge its cancel handle before giving up. Zero means 2s.
	Grace time.Duration
}

// Call invokes fn and waits for its result, the token, or the timeout,
// whichever comes first. Distinct outcomes: the call's own result,
// services.ErrCancelled, or services.ErrTimeout.
func Call[T any](e Executor, fn func() (T, error), token *Token) (T, error) {
	var zero T
	if token.Cancelled() {
		return zero, services.ErrCancelled
	}

	type outcome struct {
		value T
		err   error
	}
	results := make(chan outcome, 1)
	go func() {
		value, err := fn()
		results <- outcome{value: value, err: err}
	}()

	var timeout <-chan time.Time
	if e.Timeout > 0 {
		timer := time.NewTimer(e.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-results:
		return res.value, res.err
	case <-token.Done():
		return zero, services.ErrCancelled
	case <-timeout:
		return zero, services.ErrTimeout
	}
}

// CallCancelable behaves like Call but additionally fires the provided cancel
// handle when the call is abandoned, then waits a short grace period for the
// call to wind down. The abandoned result is discarded either way.
func CallCancelable[T any](e Executor, fn func() (T, error), cancel func(), token *Token) (T, error) {
	var zero T
	if token.Cancelled() {
		return zero, services.ErrCancelled
	}

	type outcome struct {
		value T
		err   error
	}
	results := make(chan outcome, 1)
	go func() {
		value, err := fn()
		results <- outcome{value: value, err: err}
	}()

	var timeout <-chan time.Time
	if e.Timeout > 0 {
		timer := time.NewTimer(e.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	abandoned := func(reason error) (T, error) {
		if cancel != nil {
			cancel()
		}
		grace := e.Grace
		if grace <= 0 {
			grace = defaultCancelGrace
		}
		graceTimer := time.NewTimer(grace)
		defer graceTimer.Stop()
		select {
		case <-results:
		case <-graceTimer.C:
		}
		return zero, reason
	}

	select {
	case res := <-results:
		return res.value, res.err
	case <-token.Done():
		return abandoned(services.ErrCancelled)
	case <-timeout:
		return abandoned(services.ErrTimeout)
	}
}
