package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoRedis(t *testing.T) {
	t.Helper()
	if os.Getenv("REDIS_TEST_ADDR") == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}
}

func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	skipIfNoRedis(t)

	c, err := NewRedisCache(&Options{
		Backend:       BackendRedis,
		RedisAddr:     os.Getenv("REDIS_TEST_ADDR"),
		RedisPassword: os.Getenv("REDIS_TEST_PASSWORD"),
		DefaultTTL:    time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "txmatching-test:key", []byte("value"), time.Minute))

	val, err := c.Get(ctx, "txmatching-test:key")
	require.NoError(t, err)
	assert.Equal(t, "value", string(val))

	exists, err := c.Exists(ctx, "txmatching-test:key")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "txmatching-test:key"))
	_, err = c.Get(ctx, "txmatching-test:key")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "txmatching-prefix:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "txmatching-prefix:b", []byte("2"), time.Minute))

	n, err := c.DeleteByPrefix(ctx, "txmatching-prefix:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedisCache_Stats(t *testing.T) {
	c := newTestRedis(t)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, stats.Backend)
}

func TestParseInfo(t *testing.T) {
	raw := "# Stats\r\nkeyspace_hits:12\r\nkeyspace_misses:3\r\n\r\n# Memory\r\nused_memory:2048\r\nused_memory_human:2.00K\r\n"

	fields := parseInfo(raw)

	assert.Equal(t, int64(12), fields["keyspace_hits"])
	assert.Equal(t, int64(3), fields["keyspace_misses"])
	assert.Equal(t, int64(2048), fields["used_memory"])
	assert.NotContains(t, fields, "used_memory_human")
}
