package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	sub := domain.Submission{
		ID:        "abc-123",
		Status:    domain.SubmissionProcessing,
		Progress:  10,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Set(ctx, sub, time.Hour))

	got, err := st.Get(ctx, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, sub, got)
}

func TestStoreGetMissing(t *testing.T) {
	t.Parallel()
	st, _ := newTestStore(t)

	_, err := st.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreTTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, mr := newTestStore(t)

	sub := domain.Submission{ID: "short", Status: domain.SubmissionProcessing}
	require.NoError(t, st.Set(ctx, sub, time.Minute))

	mr.FastForward(2 * time.Minute)
	_, err := st.Get(ctx, "short")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)

	require.NoError(t, st.Set(ctx, domain.Submission{ID: "gone"}, time.Hour))
	require.NoError(t, st.Delete(ctx, "gone"))
	_, err := st.Get(ctx, "gone")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorePing(t *testing.T) {
	t.Parallel()
	st, mr := newTestStore(t)

	require.NoError(t, st.Ping(context.Background()))
	mr.Close()
	assert.Error(t, st.Ping(context.Background()))
}
