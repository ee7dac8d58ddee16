// Package lock предоставляет глобальную блокировку расчёта пар:
// в процессе одновременно идёт не больше одного расчёта.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"txmatching/pkg/apperror"
	"txmatching/pkg/config"
)

// Backend types
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Стандартные ошибки
var (
	ErrLockerClosed = errors.New("locker is closed")
	ErrNotHeld      = errors.New("lock is not held")
)

// Locker интерфейс глобальной блокировки
type Locker interface {
	// Acquire блокирует до получения блокировки или отмены контекста
	Acquire(ctx context.Context) (*Lease, error)

	// Close закрывает блокировку и освобождает ресурсы
	Close() error
}

// Lease удерживаемая блокировка. Release идемпотентен.
type Lease struct {
	waited  time.Duration
	release func(ctx context.Context) error

	once sync.Once
	err  error
}

func newLease(waited time.Duration, release func(ctx context.Context) error) *Lease {
	return &Lease{waited: waited, release: release}
}

// Waited время ожидания блокировки
func (l *Lease) Waited() time.Duration {
	return l.waited
}

// Release освобождает блокировку
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.release(ctx)
	})
	return l.err
}

// New создаёт блокировку по конфигурации
func New(cfg config.LockConfig) (Locker, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisLocker(cfg)
	case BackendMemory, "":
		return NewMemoryLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

// unavailable оборачивает ошибку ожидания блокировки
func unavailable(err error) error {
	return apperror.Wrap(err, apperror.CodeLockUnavailable, "solver lock is unavailable")
}
