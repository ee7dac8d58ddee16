package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"txmatching/pkg/logger"
)

// ErrBackendUnavailable возвращается, пока circuit breaker разомкнут
var ErrBackendUnavailable = errors.New("cache backend unavailable")

// BreakerCache оборачивает удалённый кэш в circuit breaker.
// Промах (ErrKeyNotFound) не считается отказом бэкенда.
type BreakerCache struct {
	next Cache
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerCache создаёт кэш с circuit breaker
func NewBreakerCache(next Cache, name string, maxFailures uint32, timeout time.Duration) *BreakerCache {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Log.Warn("cache circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrKeyNotFound)
		},
	}

	return &BreakerCache{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// State возвращает текущее состояние breaker
func (c *BreakerCache) State() gobreaker.State {
	return c.cb.State()
}

func (c *BreakerCache) execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return res, err
}

func (c *BreakerCache) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := c.execute(func() (interface{}, error) {
		return c.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.next.Set(ctx, key, value, ttl)
	})
	return err
}

func (c *BreakerCache) Delete(ctx context.Context, key string) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.next.Delete(ctx, key)
	})
	return err
}

func (c *BreakerCache) Exists(ctx context.Context, key string) (bool, error) {
	res, err := c.execute(func() (interface{}, error) {
		return c.next.Exists(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (c *BreakerCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := c.execute(func() (interface{}, error) {
		return c.next.DeleteByPrefix(ctx, prefix)
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

func (c *BreakerCache) Stats(ctx context.Context) (*Stats, error) {
	return c.next.Stats(ctx)
}

func (c *BreakerCache) Close() error {
	return c.next.Close()
}
