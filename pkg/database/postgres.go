// Package database содержит подключение к PostgreSQL, транзакции и миграции
// хранилища результатов расчёта.
package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"txmatching/pkg/config"
	"txmatching/pkg/logger"
)

const (
	connectTimeout  = 10 * time.Second
	applicationName = "txmatching"
)

// DB то, что нужно репозиторию от пула. Реализуют *PostgresDB и pgxmock.PgxPoolIface.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
	Ping(ctx context.Context) error
}

// PostgresDB пул соединений; запросы идут через встроенный *pgxpool.Pool
type PostgresDB struct {
	*pgxpool.Pool
	database string
}

// NewPostgresDB открывает пул и ждёт успешного PING
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresDB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres %s:%d unreachable: %w", cfg.Host, cfg.Port, err)
	}

	logger.Log.Info("Connected to PostgreSQL",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_conns", pc.MaxConns,
	)
	return &PostgresDB{Pool: pool, database: cfg.Database}, nil
}

func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("invalid database settings: %w", err)
	}

	if n := cfg.MaxOpenConns; n > 0 {
		pc.MaxConns = int32(n) //nolint:gosec // из конфигурации
	}
	if n := cfg.MaxIdleConns; n > 0 {
		pc.MinConns = min(int32(n), pc.MaxConns) //nolint:gosec // из конфигурации
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	pc.ConnConfig.ConnectTimeout = connectTimeout
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	return pc, nil
}

// ConnectionString строит postgres:// URL; логин и пароль экранируются
func ConnectionString(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Close закрывает пул и пишет итоговую статистику соединений
func (db *PostgresDB) Close() {
	st := db.Stat()
	db.Pool.Close()
	logger.Log.Info("PostgreSQL connection pool closed",
		"database", db.database,
		"acquired_total", st.AcquireCount(),
		"wait_total", st.AcquireDuration(),
	)
}
