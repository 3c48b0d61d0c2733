package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), mr
}

func TestTryLock_SecondCallerIsRejected(t *testing.T) {
	locker, mr := newLocker(t, time.Minute)
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "settlement")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(keyPrefix+"settlement"))

	_, ok, err = locker.TryLock(ctx, "settlement")
	require.NoError(t, err)
	assert.False(t, ok)

	// другое задание блокируется независимо
	_, ok, err = locker.TryLock(ctx, "strike-expiry")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(keyPrefix+"settlement"))

	_, ok, err = locker.TryLock(ctx, "settlement")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLock_ExpiresAfterTTL(t *testing.T) {
	locker, mr := newLocker(t, 30*time.Second)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "settlement")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	_, ok, err = locker.TryLock(ctx, "settlement")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelease_DoesNotDropForeignLock(t *testing.T) {
	locker, mr := newLocker(t, 30*time.Second)
	ctx := context.Background()

	staleRelease, ok, err := locker.TryLock(ctx, "settlement")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)
	_, ok, err = locker.TryLock(ctx, "settlement")
	require.NoError(t, err)
	require.True(t, ok)
	owner, err := mr.Get(keyPrefix + "settlement")
	require.NoError(t, err)

	require.NoError(t, staleRelease(ctx))

	current, err := mr.Get(keyPrefix + "settlement")
	require.NoError(t, err)
	assert.Equal(t, owner, current)
}

func TestTryLock_RedisUnavailable(t *testing.T) {
	locker, mr := newLocker(t, time.Minute)
	mr.Close()

	_, ok, err := locker.TryLock(context.Background(), "settlement")
	assert.Error(t, err)
	assert.False(t, ok)
}
