package pipeline

import (
	"context"
	"time"
)

// Budget reports how much wall-clock time the current invocation has left
type Budget interface {
	Remaining() time.Duration
}

// DeadlineBudget measures remaining time against a context deadline
type DeadlineBudget struct {
	deadline time.Time
	now      func() time.Time
}

func (b DeadlineBudget) Remaining() time.Duration {
	return b.deadline.Sub(b.now())
}

// FixedBudget always reports the same remaining time
type FixedBudget time.Duration

func (b FixedBudget) Remaining() time.Duration {
	return time.Duration(b)
}

// NewBudget uses the context deadline when one is set, otherwise a fixed remaining time
func NewBudget(ctx context.Context, fallback time.Duration) Budget {
	if deadline, ok := ctx.Deadline(); ok {
		return DeadlineBudget{deadline: deadline, now: time.Now}
	}
	return FixedBudget(fallback)
}

// Exhausted reports whether remaining time dropped below margin
func Exhausted(b Budget, margin time.Duration) bool {
	return b.Remaining() < margin
}

// Sleeper pauses between upstream requests
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ContextSleeper sleeps on a timer and wakes early when ctx is cancelled
type ContextSleeper struct{}

func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
