package crawler

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// LinearRetryPolicy retries transient failures with a wait proportional to
// the attempt number.
type LinearRetryPolicy struct {
	MaxRetries int
	Base       time.Duration
}

// NewLinearRetryPolicy builds a policy; negative values are clamped to zero.
func NewLinearRetryPolicy(maxRetries int, base time.Duration) LinearRetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if base < 0 {
		base = 0
	}
	return LinearRetryPolicy{MaxRetries: maxRetries, Base: base}
}

// Transient reports whether a status/error pair is worth another attempt.
// Timeouts, dropped connections and 429/503 responses are transient.
// Everything else, including cancellation, robots blocks and malformed URLs,
// is final.
func Transient(status int, err error) bool {
	if err == nil {
		return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	for _, target := range transientErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

var transientErrs = []error{
	context.DeadlineExceeded,
	io.EOF,
	io.ErrUnexpectedEOF,
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.EPIPE,
}

// ShouldRetry decides whether attempt (1-based) may be followed by another.
func (p LinearRetryPolicy) ShouldRetry(status int, err error, attempt int) bool {
	if attempt > p.MaxRetries {
		return false
	}
	return Transient(status, err)
}

// Backoff returns the wait before the attempt following attempt.
func (p LinearRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.Base * time.Duration(attempt)
}
