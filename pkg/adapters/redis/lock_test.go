package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/basiceq/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Exclusive(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "presets", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:presets"))

	waitCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "presets", time.Minute)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:presets"))

	unlock, err = locker.Lock(ctx, "presets", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestLocker_UnlockKeepsForeignLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "presets", time.Second)
	require.NoError(t, err)

	// The lease expires and another holder takes the key.
	mr.FastForward(2 * time.Second)
	other, err := locker.Lock(ctx, "presets", time.Minute)
	require.NoError(t, err)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:presets"), "stale unlock must not release another holder's lock")
	require.NoError(t, other(ctx))
}
