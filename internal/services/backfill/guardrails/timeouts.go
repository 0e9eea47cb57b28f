// Package guardrails holds cross cutting safety helpers for backfill
package guardrails

import (
	"context"
	"errors"
	"net"
	"time"

	"quakeingest/internal/modkit/repokit"
)

// Timeouts is an optional budget bundle for a single window of work.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Window is the overall time budget for fetching, reading and committing one window.
	// The response body is streamed on this context, so it also bounds the read
	Window time.Duration

	// Feature caps the writes of one feature inside the window transaction
	Feature time.Duration
}

// WithWindow returns a context limited by the window budget without extending any parent deadline.
// if Window is zero it returns a cancelable child that simply inherits the parent deadline
func WithWindow(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Window)
}

// FeatureCap returns the hook run first inside a feature's savepoint, or nil
// when Feature is zero. Postgres enforces the cap server side, so a statement
// that runs over fails only its savepoint and the connection stays healthy.
// A context deadline would instead tear the connection down mid statement.
// SET LOCAL reverts on ROLLBACK TO SAVEPOINT and outlives RELEASE, so the cap
// stays in force for the rest of the window transaction
func (t Timeouts) FeatureCap() repokit.BeginHook {
	if t.Feature <= 0 {
		return nil
	}
	return repokit.StatementTimeout(t.Feature)
}

// Exhausted reports whether err ended a unit of work because the unit's own
// budget ran out (its child context, or a client side timeout) while parent
// is still live. Such a failure belongs to the unit, not to the run
func Exhausted(parent, child context.Context, err error) bool {
	if err == nil || parent.Err() != nil {
		return false
	}
	if child.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
