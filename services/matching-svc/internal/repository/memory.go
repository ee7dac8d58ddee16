package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"txmatching/pkg/cache"
	"txmatching/pkg/domain"
	"txmatching/services/matching-svc/internal/solver"
)

// MemoryResultRepository хранит результаты в памяти процесса
type MemoryResultRepository struct {
	mu     sync.RWMutex
	nextID int64
	byHash map[string][]*StoredResult // новые в конце
}

// NewMemoryResultRepository создаёт пустое хранилище
func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{byHash: make(map[string][]*StoredResult)}
}

func (r *MemoryResultRepository) FindReusable(_ context.Context, pool *domain.Pool, cfg domain.Configuration) (*StoredResult, error) {
	ps := pool.PatientSet()

	r.mu.RLock()
	candidates := slices.Clone(r.byHash[cache.PatientSetHash(ps)])
	r.mu.RUnlock()

	for _, stored := range slices.Backward(candidates) {
		ok, err := reusable(stored.Configuration, stored.PatientSet, cfg, ps)
		if err != nil {
			return nil, err
		}
		if ok {
			return stored, nil
		}
	}
	return nil, ErrResultNotFound
}

func (r *MemoryResultRepository) Save(_ context.Context, pool *domain.Pool, cfg domain.Configuration, result *solver.Result) (*StoredResult, error) {
	if result == nil {
		return nil, ErrNilResult
	}
	ps := pool.PatientSet()
	hash := cache.PatientSetHash(ps)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := &StoredResult{
		ID:            r.nextID,
		Configuration: cfg.Clone(),
		PatientSet:    ps,
		Result:        result,
		CreatedAt:     time.Now(),
	}
	r.byHash[hash] = append(r.byHash[hash], stored)
	return stored, nil
}

// Len возвращает число сохранённых результатов
func (r *MemoryResultRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, list := range r.byHash {
		n += len(list)
	}
	return n
}
