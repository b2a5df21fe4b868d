package ratelimit

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_BurstThenDeny(t *testing.T) {
	l := NewLocal(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i)
	}
	ok, _ := l.Allow(ctx, "alice")
	assert.False(t, ok)

	// Buckets are per key.
	ok, _ = l.Allow(ctx, "bob")
	assert.True(t, ok)

	l.Forget("alice")
	ok, _ = l.Allow(ctx, "alice")
	assert.True(t, ok)
}

func TestDisabled(t *testing.T) {
	assert.IsType(t, Nop{}, NewLocal(0))
	assert.IsType(t, Nop{}, NewRedis(nil, "x:", 0))

	ok, err := Nop{}.Allow(context.Background(), "any")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_SlidingWindow(t *testing.T) {
	addr := os.Getenv("WIRECHAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WIRECHAT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	l := NewRedis(client, "wirechat:test:", 2).(*Redis)
	key := uuid.NewString()
	t.Cleanup(func() { _ = l.Reset(ctx, key) })

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Reset(ctx, key))
	ok, err = l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}
