package sqlkeeper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wurt83ow/guestbook/internal/models"
	"github.com/wurt83ow/guestbook/internal/storage"
	"go.uber.org/zap"
)

func newTestKeeper(t *testing.T) *SQLKeeper {
	t.Helper()

	path := filepath.Join(t.TempDir(), "guestbook_test.db")
	kp := NewSQLKeeper(func() string { return path }, zap.NewNop())
	require.NotNil(t, kp)
	t.Cleanup(func() { _ = kp.Close() })

	return kp
}

func insertAt(t *testing.T, kp *SQLKeeper, text, fp string, at time.Time) string {
	t.Helper()

	id, err := kp.InsertMessage(context.Background(), models.Message{
		Text:          text,
		CreatedAt:     at,
		IPFingerprint: fp,
		UserAgent:     "test-agent",
	})
	require.NoError(t, err)
	return id
}

func TestInsertAndCount(t *testing.T) {
	kp := newTestKeeper(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	count, err := kp.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	first := insertAt(t, kp, "hello", "fp-a", now)
	second := insertAt(t, kp, "world", "fp-a", now.Add(time.Minute))

	assert.NotEqual(t, first, second)

	count, err = kp.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCountSinceWindow(t *testing.T) {
	kp := newTestKeeper(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	insertAt(t, kp, "old", "fp-a", now.Add(-2*time.Hour))
	insertAt(t, kp, "recent", "fp-a", now.Add(-30*time.Minute))
	insertAt(t, kp, "other bucket", "fp-b", now.Add(-10*time.Minute))

	count, err := kp.CountSince(ctx, "fp-a", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only in-window messages of the fingerprint count")

	// The comparison is strictly greater-than.
	count, err = kp.CountSince(ctx, "fp-a", now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = kp.CountSince(ctx, "fp-b", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetMessagesNewestFirst(t *testing.T) {
	kp := newTestKeeper(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	insertAt(t, kp, "first", "fp", now)
	insertAt(t, kp, "third", "fp", now.Add(2*time.Minute))
	insertAt(t, kp, "second", "fp", now.Add(time.Minute))

	messages, err := kp.GetMessages(ctx, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "third", messages[0].Text)
	assert.Equal(t, "second", messages[1].Text)
	assert.True(t, messages[0].CreatedAt.After(messages[1].CreatedAt))
}

func TestDeleteMessage(t *testing.T) {
	kp := newTestKeeper(t)
	ctx := context.Background()

	id := insertAt(t, kp, "bye", "fp", time.Now().UTC())

	require.NoError(t, kp.DeleteMessage(ctx, id))

	// Deleting again reports not-found, never a silent success.
	assert.ErrorIs(t, kp.DeleteMessage(ctx, id), storage.ErrNotFound)
	assert.ErrorIs(t, kp.DeleteMessage(ctx, "99999"), storage.ErrNotFound)
	assert.ErrorIs(t, kp.DeleteMessage(ctx, "not-a-number"), storage.ErrNotFound)
}

func TestPing(t *testing.T) {
	kp := newTestKeeper(t)
	assert.NoError(t, kp.Ping(context.Background()))
}
