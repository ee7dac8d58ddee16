// Package repository хранит посчитанные результаты подбора и находит среди них
// переиспользуемые для нового запроса.
package repository

import (
	"context"
	"errors"
	"time"

	"txmatching/pkg/domain"
	"txmatching/services/matching-svc/internal/solver"
)

// Стандартные ошибки
var (
	ErrResultNotFound = errors.New("reusable result not found")
	ErrNilResult      = errors.New("result is nil")
)

// StoredResult сохранённый результат расчёта
type StoredResult struct {
	ID            int64
	Configuration domain.Configuration
	PatientSet    domain.PatientSet
	Result        *solver.Result
	CreatedAt     time.Time
}

// ResultRepository интерфейс хранилища результатов.
// FindReusable возвращает результат, посчитанный для того же набора пациентов
// с конфигурацией, дающей надмножество решений для cfg, иначе ErrResultNotFound.
type ResultRepository interface {
	FindReusable(ctx context.Context, pool *domain.Pool, cfg domain.Configuration) (*StoredResult, error)
	Save(ctx context.Context, pool *domain.Pool, cfg domain.Configuration, result *solver.Result) (*StoredResult, error)
}

// reusable проверяет, можно ли отдать сохранённый результат для cfg
func reusable(stored domain.Configuration, ps domain.PatientSet, cfg domain.Configuration, want domain.PatientSet) (bool, error) {
	if !ps.Equal(want) {
		return false, nil
	}
	return domain.GivesSupersetOfSolutions(stored, cfg)
}
