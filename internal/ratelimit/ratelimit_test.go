package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	count     int
	err       error
	lastFP    string
	lastSince time.Time
}

func (f *fakeCounter) CountSince(_ context.Context, fingerprint string, since time.Time) (int, error) {
	f.lastFP = fingerprint
	f.lastSince = since
	return f.count, f.err
}

func TestAllowUnderLimit(t *testing.T) {
	fc := &fakeCounter{count: 4}
	l := NewLimiter(fc, 5, time.Hour)

	require.NoError(t, l.Allow(context.Background(), "abc"))
	assert.Equal(t, "abc", fc.lastFP)
}

func TestRejectAtLimit(t *testing.T) {
	fc := &fakeCounter{count: 5}
	l := NewLimiter(fc, 5, time.Hour)

	err := l.Allow(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrLimited)
}

func TestRejectAboveLimit(t *testing.T) {
	fc := &fakeCounter{count: 17}
	l := NewLimiter(fc, 5, time.Hour)

	assert.ErrorIs(t, l.Allow(context.Background(), "abc"), ErrLimited)
}

func TestWindowStart(t *testing.T) {
	fc := &fakeCounter{}
	l := NewLimiter(fc, 5, time.Hour)

	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	require.NoError(t, l.Allow(context.Background(), "abc"))
	assert.Equal(t, fixed.Add(-time.Hour), fc.lastSince)
}

func TestFailClosed(t *testing.T) {
	// A broken count query must reject the submission, never admit it.
	storeErr := errors.New("connection refused")
	fc := &fakeCounter{err: storeErr}
	l := NewLimiter(fc, 5, time.Hour)

	err := l.Allow(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrLimited)
}

func TestDefaults(t *testing.T) {
	fc := &fakeCounter{}
	l := NewLimiter(fc, 0, 0)

	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}
