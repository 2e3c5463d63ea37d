package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	release, ok, err := l.TryLock(context.Background(), "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(context.Background(), "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be granted twice")

	_, ok, _ = l.TryLock(context.Background(), "expire", time.Minute)
	assert.True(t, ok, "keys are independent")

	release()
	_, ok, _ = l.TryLock(context.Background(), "sweep", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.TryLock(context.Background(), "expire", time.Minute)
	assert.True(t, ok, "expired lock is granted again")
}

func TestRedisLocker_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	_, ok, err := NewRedisLocker(client, "oriyet:").TryLock(context.Background(), "sweep", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
}
