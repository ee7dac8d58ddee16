package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker блокировка внутри процесса. Семафор на канале позволяет
// прервать ожидание по контексту, чего не умеет sync.Mutex.
type MemoryLocker struct {
	sem chan struct{}

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewMemoryLocker создаёт in-memory блокировку
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		sem:  make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context) (*Lease, error) {
	start := time.Now()

	select {
	case <-l.done:
		return nil, ErrLockerClosed
	default:
	}

	select {
	case l.sem <- struct{}{}:
	case <-l.done:
		return nil, ErrLockerClosed
	case <-ctx.Done():
		return nil, unavailable(ctx.Err())
	}

	return newLease(time.Since(start), func(context.Context) error {
		select {
		case <-l.sem:
			return nil
		default:
			return ErrNotHeld
		}
	}), nil
}

func (l *MemoryLocker) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}
