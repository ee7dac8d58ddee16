package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SnapshotRead читает результат и его трансплантации из одного снимка,
// даже если параллельно сохраняется новый результат.
var SnapshotRead = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// WithTransaction выполняет fn в транзакции: коммит при успехе,
// откат при ошибке или панике.
func WithTransaction(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	_, err := inTx(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(tx)
	})
	return err
}

// WithTransactionResult то же, что WithTransaction, но с результатом
func WithTransactionResult[T any](ctx context.Context, db DB, fn func(tx pgx.Tx) (T, error)) (T, error) {
	return inTx(ctx, db, pgx.TxOptions{}, fn)
}

// WithSnapshot выполняет чтение в read-only транзакции с уровнем RepeatableRead.
// Ошибка fn возвращается как есть, без обёртки.
func WithSnapshot[T any](ctx context.Context, db DB, fn func(tx pgx.Tx) (T, error)) (T, error) {
	return inTx(ctx, db, SnapshotRead, fn)
}

func inTx[T any](ctx context.Context, db DB, opts pgx.TxOptions, fn func(tx pgx.Tx) (T, error)) (result T, err error) {
	var zero T

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // паника важнее ошибки отката
			panic(p)
		}
	}()

	result, err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return zero, fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
