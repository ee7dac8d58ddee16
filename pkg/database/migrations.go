package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"txmatching/pkg/logger"
)

// Migrator применяет SQL-миграции из встроенной файловой системы
type Migrator struct {
	pool       *pgxpool.Pool
	migrations fs.FS
}

// NewMigrator создаёт мигратор. dir каталог миграций внутри fsys.
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS, dir string) (*Migrator, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return &Migrator{pool: pool, migrations: sub}, nil
}

func (m *Migrator) provider() (*goose.Provider, func(), error) {
	db := stdlib.OpenDBFromPool(m.pool)
	p, err := goose.NewProvider(goose.DialectPostgres, db, m.migrations)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, func() { _ = p.Close() }, nil
}

// Up применяет все новые миграции
func (m *Migrator) Up(ctx context.Context) error {
	p, closeFn, err := m.provider()
	if err != nil {
		return err
	}
	defer closeFn()

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Log.Info("Migrations applied", "count", len(results))
	return nil
}

// Down откатывает последнюю миграцию
func (m *Migrator) Down(ctx context.Context) error {
	p, closeFn, err := m.provider()
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := p.Down(ctx); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	logger.Log.Info("Migration rolled back")
	return nil
}

// Version возвращает текущую версию схемы
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	p, closeFn, err := m.provider()
	if err != nil {
		return 0, err
	}
	defer closeFn()

	return p.GetDBVersion(ctx)
}

// RunMigrations применяет миграции, если включено auto_migrate
func RunMigrations(ctx context.Context, db *PostgresDB, autoMigrate bool, fsys fs.FS, dir string) error {
	if !autoMigrate {
		logger.Log.Info("Auto-migration is disabled")
		return nil
	}

	m, err := NewMigrator(db.Pool, fsys, dir)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
