package ratelimiter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real redis, e.g. REDIS_ADDR=localhost:6379.
func TestRedis_GetterSetter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	cache := NewRedis(RedisOptions{Addr: addr, KeyPrefix: "huddle-test:" + uuid.NewString() + ":"})
	defer cache.Close()
	require.NoError(t, cache.(*Redis).Ping(context.Background()))

	_, err := cache.Get("missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.SetWithExpiration("bucket", 3, time.Minute))
	v, err := cache.Get("bucket")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 2, Cache: cache})
	assert.True(t, rl.Allow("shared"))
	assert.True(t, rl.Allow("shared"))
	assert.False(t, rl.Allow("shared"))
}
