// Package resilience retries driver-bound operations across session loss.
// Only the session-loss error class is retried: the remote context dying
// mid-operation is transient, while a logic error (bad selector list,
// malformed input) cannot succeed on a second attempt and propagates
// immediately.
package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
)

// Handle is one acquired browser session. *session.Session satisfies it.
type Handle interface {
	Driver() driver.Driver
	Release()
}

const (
	DefaultAttempts   = 3
	defaultRetryDelay = 2 * time.Second
)

// Runner executes an operation with a fresh session per attempt.
type Runner struct {
	Attempts   int
	RetryDelay time.Duration
	log        *slog.Logger

	sleep func(time.Duration)
}

func NewRunner(log *slog.Logger) *Runner {
	return &Runner{
		Attempts:   DefaultAttempts,
		RetryDelay: defaultRetryDelay,
		log:        log,
		sleep:      time.Sleep,
	}
}

// WithDriver acquires a session, runs fn with its driver and releases the
// session, re-acquiring and retrying the same logical step on session loss
// up to the attempt cap. Acquisition errors (including the fallback signal)
// propagate unchanged so callers keep their degrade path.
func (r *Runner) WithDriver(ctx context.Context, acquire func(ctx context.Context) (Handle, error), fn func(ctx context.Context, drv driver.Driver) error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		handle, err := acquire(ctx)
		if err != nil {
			return err
		}

		err = fn(ctx, handle.Driver())
		handle.Release()
		if err == nil {
			return nil
		}
		if !driver.IsSessionLoss(err) {
			return err
		}

		lastErr = err
		r.log.Warn("session lost mid-operation, re-acquiring",
			"attempt", attempt, "of", attempts, "error", err)
		if attempt < attempts {
			r.sleep(r.RetryDelay)
		}
	}
	return lastErr
}
