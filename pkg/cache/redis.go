package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPingTimeout = 5 * time.Second
	redisScanBatch   = 100
)

// RedisCache общий кэш результатов для нескольких запусков
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisCache подключается и проверяет доступность через PING
func NewRedisCache(opts *Options) (*RedisCache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	poolSize := opts.RedisPoolSize
	if poolSize <= 0 {
		poolSize = defaultRedisPoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.RedisAddr, err)
	}

	return &RedisCache{client: client, defaultTTL: opts.DefaultTTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

// DeleteByPrefix обходит ключи SCAN и удаляет их пачками по redisScanBatch.
// KEYS не используется: на большом инстансе он блокирует сервер.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		deleted int64
		batch   = make([]string, 0, redisScanBatch)
	)
	drop := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}

	it := c.client.Scan(ctx, 0, prefix+"*", redisScanBatch).Iterator()
	for it.Next(ctx) {
		if batch = append(batch, it.Val()); len(batch) < redisScanBatch {
			continue
		}
		if err := drop(); err != nil {
			return deleted, err
		}
	}
	if err := it.Err(); err != nil {
		return deleted, err
	}
	return deleted, drop()
}

// Stats собирает INFO stats/memory и DBSIZE одним pipeline
func (c *RedisCache) Stats(ctx context.Context) (*Stats, error) {
	var (
		info *redis.StringCmd
		size *redis.IntCmd
	)
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		info = p.Info(ctx, "stats", "memory")
		size = p.DBSize(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := parseInfo(info.Val())
	stats := &Stats{
		Backend:     BackendRedis,
		TotalKeys:   size.Val(),
		Hits:        fields["keyspace_hits"],
		Misses:      fields["keyspace_misses"],
		MemoryBytes: fields["used_memory"],
	}
	if lookups := stats.Hits + stats.Misses; lookups > 0 {
		stats.HitRate = float64(stats.Hits) / float64(lookups)
	}
	return stats, nil
}

// parseInfo разбирает числовые поля ответа INFO; остальные пропускаются
func parseInfo(raw string) map[string]int64 {
	out := make(map[string]int64)
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		name, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok || strings.HasPrefix(name, "#") {
			continue
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			out[name] = n
		}
	}
	return out
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
