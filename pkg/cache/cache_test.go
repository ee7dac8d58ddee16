package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmatching/pkg/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, BackendMemory, opts.Backend)
	assert.Equal(t, 30*time.Minute, opts.DefaultTTL)
	assert.Equal(t, 64, opts.MaxEntries)
	assert.Equal(t, "localhost:6379", opts.RedisAddr)
	assert.Equal(t, uint32(5), opts.BreakerMaxFailures)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.CacheConfig{
		Driver:             "redis",
		Host:               "redis.local",
		Port:               6380,
		Password:           "secret",
		DB:                 1,
		DefaultTTL:         10 * time.Minute,
		MaxEntries:         500,
		BreakerMaxFailures: 3,
		BreakerTimeout:     time.Second,
	}

	opts := FromConfig(cfg)

	assert.Equal(t, BackendRedis, opts.Backend)
	assert.Equal(t, 10*time.Minute, opts.DefaultTTL)
	assert.Equal(t, "redis.local:6380", opts.RedisAddr)
	assert.Equal(t, "secret", opts.RedisPassword)
	assert.Equal(t, 1, opts.RedisDB)
	assert.Equal(t, 500, opts.MaxEntries)
	assert.Equal(t, uint32(3), opts.BreakerMaxFailures)
	assert.Equal(t, time.Second, opts.BreakerTimeout)
}

func TestNew_Memory(t *testing.T) {
	c, err := New(&Options{Backend: BackendMemory})
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.(*MemoryCache)
	assert.True(t, ok, "expected *MemoryCache, got %T", c)
}

func TestNew_NilOptions(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
}

func TestNew_RedisUnavailable(t *testing.T) {
	_, err := New(&Options{Backend: BackendRedis, RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(&Options{Backend: BackendRedis, RedisAddr: "127.0.0.1:1"})
	})
}
