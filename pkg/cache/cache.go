// Package cache хранит готовые результаты расчёта пар между запусками.
//
// Бэкенд хранит байты: в памяти процесса (LRU) или в Redis за circuit breaker.
// Поверх него ResultCache[T] кладёт типизированные результаты под ключом из
// хэша набора пациентов и хэша конфигурации.
package cache

import (
	"context"
	"errors"
	"time"

	"txmatching/pkg/config"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrKeyNotFound промах: ключа нет или срок записи истёк
	ErrKeyNotFound = errors.New("key not found")
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache байтовое хранилище с TTL
type Cache interface {
	// Get возвращает ErrKeyNotFound при промахе.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set с ttl <= 0 использует TTL бэкенда по умолчанию.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete отсутствующего ключа не ошибка.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// DeleteByPrefix возвращает число удалённых ключей.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats снимок состояния бэкенда. Для Redis счётчики общие на инстанс.
type Stats struct {
	Backend     string
	TotalKeys   int64
	Hits        int64
	Misses      int64
	HitRate     float64
	MemoryBytes int64
}

// Options параметры бэкенда
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	// memory
	MaxEntries int

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// BreakerMaxFailures == 0 отключает breaker
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

const (
	defaultMaxEntries    = 64
	defaultRedisPoolSize = 10
)

// DefaultOptions in-memory кэш на 64 результата с TTL 30 минут
func DefaultOptions() *Options {
	return &Options{
		Backend:            BackendMemory,
		DefaultTTL:         30 * time.Minute,
		MaxEntries:         defaultMaxEntries,
		RedisAddr:          "localhost:6379",
		RedisPoolSize:      defaultRedisPoolSize,
		BreakerMaxFailures: 5,
		BreakerTimeout:     30 * time.Second,
	}
}

// FromConfig переводит секцию cache в Options
func FromConfig(cfg *config.CacheConfig) *Options {
	opts := DefaultOptions()
	opts.Backend = cfg.Driver
	opts.DefaultTTL = cfg.DefaultTTL
	opts.MaxEntries = cfg.MaxEntries
	opts.RedisAddr = cfg.Address()
	opts.RedisPassword = cfg.Password
	opts.RedisDB = cfg.DB
	opts.BreakerMaxFailures = cfg.BreakerMaxFailures
	opts.BreakerTimeout = cfg.BreakerTimeout
	return opts
}

// New выбирает бэкенд. Неизвестное имя даёт in-memory кэш.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Backend != BackendRedis {
		return NewMemoryCache(opts), nil
	}

	rc, err := NewRedisCache(opts)
	if err != nil {
		return nil, err
	}
	if opts.BreakerMaxFailures == 0 {
		return rc, nil
	}
	return NewBreakerCache(rc, "result-cache-redis", opts.BreakerMaxFailures, opts.BreakerTimeout), nil
}

func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
