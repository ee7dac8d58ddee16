package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"txmatching/pkg/config"
	"txmatching/pkg/logger"
)

// RedisLocker распределённая блокировка на Redis (SET NX PX).
// TTL защищает от вечной блокировки упавшим процессом, а пока блокировка
// удерживается, фоновая горутина продлевает его каждые ttl/3.
type RedisLocker struct {
	client       *redis.Client
	key          string
	ttl          time.Duration
	pollInterval time.Duration
	release      *redis.Script
	extend       *redis.Script
}

// Снимаем блокировку, только если она всё ещё наша
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Продлеваем TTL, только если блокировка всё ещё наша
var extendScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

// NewRedisLocker создаёт Redis блокировку
func NewRedisLocker(cfg config.LockConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisLocker(client, cfg), nil
}

func newRedisLocker(client *redis.Client, cfg config.LockConfig) *RedisLocker {
	key := cfg.Key
	if key == "" {
		key = "txmatching:solver-lock"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}

	return &RedisLocker{
		client:       client,
		key:          key,
		ttl:          ttl,
		pollInterval: poll,
		release:      releaseScript,
		extend:       extendScript,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context) (*Lease, error) {
	start := time.Now()
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, unavailable(ctx.Err())
			}
			return nil, fmt.Errorf("redis setnx error: %w", err)
		}
		if ok {
			waited := time.Since(start)
			logger.Log.Debug("solver lock acquired", "key", l.key, "waited", waited)

			renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
			done := make(chan struct{})
			go func() {
				defer close(done)
				l.keepAlive(renewCtx, token)
			}()

			return newLease(waited, func(ctx context.Context) error {
				stop()
				<-done
				return l.releaseToken(ctx, token)
			}), nil
		}

		select {
		case <-ctx.Done():
			return nil, unavailable(ctx.Err())
		case <-time.After(l.pollInterval):
		}
	}
}

// keepAlive продлевает TTL до отмены ctx. Если ключ уже чужой или исчез,
// продлевать нечего: расчёт больше не защищён, это пишется в лог.
func (l *RedisLocker) keepAlive(ctx context.Context, token string) {
	every := l.renewInterval()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, every)
		n, err := l.extend.Run(callCtx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			// следующая попытка через every, ключ живёт ещё минимум 2/3 TTL
			logger.Log.Warn("failed to extend solver lock", "key", l.key, "error", err)
		case n == 0:
			logger.Log.Error("solver lock lost while held", "key", l.key, "ttl", l.ttl)
			return
		}
	}
}

func (l *RedisLocker) renewInterval() time.Duration {
	return max(l.ttl/3, time.Millisecond)
}

func (l *RedisLocker) releaseToken(ctx context.Context, token string) error {
	n, err := l.release.Run(ctx, l.client, []string{l.key}, token).Int64()
	if err != nil {
		return fmt.Errorf("redis script error: %w", err)
	}
	if n == 0 {
		// блокировка истекла по TTL и, возможно, уже занята другим процессом
		logger.Log.Warn("solver lock expired before release", "key", l.key, "ttl", l.ttl)
		return ErrNotHeld
	}
	return nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
