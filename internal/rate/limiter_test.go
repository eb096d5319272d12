package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, Config{MaxLoginAttempts: max, LoginCooldownDuration: time.Minute}), mr
}

func TestLimiterBlocksAfterBudget(t *testing.T) {
	l, _ := newLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.CheckLogin(ctx, "alice"))
		require.NoError(t, l.RecordFailure(ctx, "alice"))
	}
	assert.ErrorIs(t, l.CheckLogin(ctx, "alice"), ErrRateLimited)
	assert.NoError(t, l.CheckLogin(ctx, "bob"))

	n, err := l.Attempts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLimiterResetClearsCounter(t *testing.T) {
	l, _ := newLimiter(t, 1)
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "alice"))
	require.ErrorIs(t, l.CheckLogin(ctx, "alice"), ErrRateLimited)
	require.NoError(t, l.Reset(ctx, "alice"))
	assert.NoError(t, l.CheckLogin(ctx, "alice"))
}

func TestLimiterWindowExpires(t *testing.T) {
	l, mr := newLimiter(t, 1)
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "alice"))
	assert.Equal(t, time.Minute, mr.TTL("cosyncjwt:login:alice"))

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, l.CheckLogin(ctx, "alice"))
}

func TestLimiterRedisDown(t *testing.T) {
	l, mr := newLimiter(t, 1)
	mr.Close()

	assert.ErrorIs(t, l.CheckLogin(context.Background(), "alice"), ErrRedisUnavailable)
	assert.ErrorIs(t, l.RecordFailure(context.Background(), "alice"), ErrRedisUnavailable)
	_, err := l.Attempts(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}
