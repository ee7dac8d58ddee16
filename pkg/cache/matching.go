package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"txmatching/pkg/domain"
	"txmatching/pkg/logger"
)

// ResultCache типизированный кэш готовых результатов расчёта.
// Значения хранятся в JSON, повреждённые записи удаляются при чтении.
type ResultCache[T any] struct {
	backend Cache
	ttl     time.Duration
}

// NewResultCache создаёт кэш результатов поверх произвольного бэкенда
func NewResultCache[T any](backend Cache, ttl time.Duration) *ResultCache[T] {
	return &ResultCache[T]{backend: backend, ttl: ttl}
}

// Key возвращает ключ для пары (конфигурация, набор пациентов)
func (c *ResultCache[T]) Key(cfg domain.Configuration, ps domain.PatientSet) (string, error) {
	cfgHash, err := ConfigHash(cfg)
	if err != nil {
		return "", err
	}
	return BuildMatchingKey(cfgHash, PatientSetHash(ps)), nil
}

// Get возвращает результат или ErrKeyNotFound
func (c *ResultCache[T]) Get(ctx context.Context, cfg domain.Configuration, ps domain.PatientSet) (*T, error) {
	key, err := c.Key(cfg, ps)
	if err != nil {
		return nil, err
	}

	data, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		logger.Log.Warn("dropping corrupted cache entry", "key", key, "error", err)
		if delErr := c.backend.Delete(ctx, key); delErr != nil {
			logger.Log.Debug("failed to delete corrupted cache entry", "key", key, "error", delErr)
		}
		return nil, ErrKeyNotFound
	}
	return &value, nil
}

// Set сохраняет результат
func (c *ResultCache[T]) Set(ctx context.Context, cfg domain.Configuration, ps domain.PatientSet, value *T) error {
	if value == nil {
		return errors.New("cache: nil result")
	}
	key, err := c.Key(cfg, ps)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return c.backend.Set(ctx, key, data, c.ttl)
}

// Invalidate сбрасывает все сохранённые результаты
func (c *ResultCache[T]) Invalidate(ctx context.Context) (int64, error) {
	return c.backend.DeleteByPrefix(ctx, MatchingKeyPrefix)
}
