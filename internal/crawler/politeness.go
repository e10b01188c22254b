package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// politeLimiter enforces a minimum gap between the completion of one request
// and the start of the next. The first call passes immediately.
type politeLimiter struct {
	delay   time.Duration
	limiter *rate.Limiter
}

func newPoliteLimiter(delay time.Duration) *politeLimiter {
	return &politeLimiter{delay: delay, limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Wait blocks until the delay has elapsed since the last Done.
func (l *politeLimiter) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	return time.Since(start), err
}

// Done marks the end of a request; the next Wait starts counting from now.
func (l *politeLimiter) Done() {
	if l.delay <= 0 {
		return
	}
	now := time.Now()
	l.limiter = rate.NewLimiter(rate.Every(l.delay), 1)
	l.limiter.AllowN(now, 1)
}

// Pause sleeps for delay unless ctx finishes first.
func Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
