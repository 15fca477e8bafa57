// Package ratelimit implements the query-time submission limiter. The
// message store is the only source of truth: each check counts the
// fingerprint's persisted messages inside a rolling window, so no
// limiter state survives in process memory.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLimited indicates the fingerprint exhausted its window allowance.
var ErrLimited = errors.New("rate limit exceeded")

const (
	// DefaultLimit is the allowed number of submissions per window.
	DefaultLimit = 5
	// DefaultWindow is the rolling window measured back from now.
	DefaultWindow = time.Hour
)

// Counter is the slice of the storage layer the limiter needs.
type Counter interface {
	CountSince(ctx context.Context, fingerprint string, since time.Time) (int, error)
}

type Limiter struct {
	counter Counter
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewLimiter builds a limiter over counter. Non-positive limit or
// window fall back to the defaults.
func NewLimiter(counter Counter, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		counter: counter,
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether the fingerprint may submit now. It returns
// ErrLimited when the window count is at or above the limit, and the
// underlying storage error when the count itself fails: a broken store
// rejects submissions, never admits them.
//
// The check-then-insert sequence is not transactional; two concurrent
// requests from one fingerprint can both pass before either insert
// lands, allowing a one-time burst past the nominal limit. The limiter
// is an abuse deterrent, not a security boundary, so this looseness is
// accepted.
func (l *Limiter) Allow(ctx context.Context, fingerprint string) error {
	since := l.now().Add(-l.window)

	count, err := l.counter.CountSince(ctx, fingerprint, since)
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}

	if count >= l.limit {
		return ErrLimited
	}
	return nil
}
