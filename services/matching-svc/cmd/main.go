// Package main is the entry point for matching-svc.
//
// matching-svc computes kidney paired exchange matchings for a pool of
// donor/recipient pairs and altruistic donors. It is a batch tool: it reads a
// patient pool as JSON, computes or reuses the ranked matchings and writes them
// as JSON.
//
// # Pipeline
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                      Service Layer                          │
//	│  (internal/service - MatchingService)                       │
//	│  - Global solver lock (memory or Redis)                     │
//	│  - Result cache (memory LRU or Redis behind a breaker)      │
//	│  - Result store lookup by configuration comparability       │
//	│  - Solve journal (pkg/audit)                                │
//	├─────────────────────────────────────────────────────────────┤
//	│                      Solver Layer                           │
//	│  (internal/solver)                                          │
//	│  - Score matrix (internal/scoring, internal/hla)            │
//	│  - Cycle and chain enumeration (internal/paths)             │
//	│  - Disjoint combinations (internal/clique)                  │
//	│  - Filter and bounded top-K ranking                         │
//	├─────────────────────────────────────────────────────────────┤
//	│                      Storage Layer                          │
//	│  (internal/repository)                                      │
//	│  - memory or PostgreSQL with goose migrations               │
//	└─────────────────────────────────────────────────────────────┘
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: TXMATCHING_)
//  2. Config files (config.yaml, config/config.yaml, /etc/txmatching/config.yaml)
//  3. Default values
//
// Key configuration options (environment variable format):
//
//	TXMATCHING_LOG_LEVEL              - debug, info, warn, error (default: info)
//	TXMATCHING_DATABASE_DRIVER        - memory, postgres (default: memory)
//	TXMATCHING_CACHE_ENABLED          - Enable result caching (default: false)
//	TXMATCHING_CACHE_DRIVER           - memory, redis (default: memory)
//	TXMATCHING_LOCK_BACKEND           - memory, redis (default: memory)
//	TXMATCHING_LOCK_REDIS_ADDR        - Redis address for the fleet-wide lock
//	TXMATCHING_AUDIT_ENABLED          - Write a solve journal (default: false)
//	TXMATCHING_AUDIT_BACKEND          - stdout, file (default: stdout)
//	TXMATCHING_MATCHING_MAX_CYCLE_LENGTH
//	TXMATCHING_MATCHING_MAX_SEQUENCE_LENGTH
//	TXMATCHING_MATCHING_MAX_NUMBER_OF_MATCHINGS
//
// Matching parameters given in the "configuration" object of the input file
// override the configured ones.
//
// # Usage
//
//	matching-svc -input patients.json -output matchings.json
//	cat patients.json | matching-svc
//	matching-svc -invalidate-cache
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"txmatching/pkg/audit"
	"txmatching/pkg/cache"
	"txmatching/pkg/config"
	"txmatching/pkg/database"
	"txmatching/pkg/lock"
	"txmatching/pkg/logger"
	"txmatching/pkg/metrics"
	"txmatching/pkg/telemetry"
	"txmatching/services/matching-svc/internal/converter"
	"txmatching/services/matching-svc/internal/repository"
	"txmatching/services/matching-svc/internal/service"
	"txmatching/services/matching-svc/internal/solver"
	"txmatching/services/matching-svc/migrations"
)

func main() {
	input := flag.String("input", "-", "patient pool JSON file, - for stdin")
	output := flag.String("output", "-", "result JSON file, - for stdout")
	invalidate := flag.Bool("invalidate-cache", false, "drop cached results and exit")
	flag.Parse()

	cfg, err := config.LoadWithServiceDefaults("matching-svc")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Service:    cfg.App.Name,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// =========================================================================
	// Telemetry (OpenTelemetry)
	// =========================================================================
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("Failed to shutdown telemetry", "error", err)
				}
			}()
			logger.Log.Info("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	// =========================================================================
	// Metrics (Prometheus)
	// =========================================================================
	//
	// Solves can run for minutes on large pools, so the metrics endpoint is
	// served for the lifetime of the process.
	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Log.Warn("Metrics server stopped", "error", err)
			}
		}()
	}

	// =========================================================================
	// Solver lock
	// =========================================================================
	locker, err := lock.New(cfg.Lock)
	if err != nil {
		logger.Fatal("Failed to create solver lock", "error", err)
	}
	defer locker.Close() //nolint:errcheck

	// =========================================================================
	// Result cache
	// =========================================================================
	//
	// The cache is optional: the service works without it and a failing
	// Redis is bypassed by the circuit breaker.
	var results *cache.ResultCache[solver.Result]
	if cfg.Cache.Enabled {
		backend, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create cache, continuing without cache", "error", err)
		} else {
			defer backend.Close() //nolint:errcheck
			results = cache.NewResultCache[solver.Result](backend, cfg.Cache.DefaultTTL)
			if cfg.Metrics.Enabled {
				if err := metrics.RegisterCacheCollector(cfg.Metrics.Namespace, cfg.Metrics.Subsystem, backend); err != nil {
					logger.Log.Warn("Failed to register cache collector", "error", err)
				}
			}
			logger.Log.Info("Result cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	// =========================================================================
	// Result store
	// =========================================================================
	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	// =========================================================================
	// Audit journal
	// =========================================================================
	journal := openJournal(cfg, *output)
	defer journal.Close() //nolint:errcheck

	svc := service.NewMatchingService(locker, results, repo, service.WithAudit(journal))

	if *invalidate {
		n, err := svc.InvalidateCache(ctx)
		if err != nil {
			logger.Fatal("Failed to invalidate cache", "error", err)
		}
		logger.Log.Info("Cache invalidated", "entries", n)
		return
	}

	// =========================================================================
	// Run
	// =========================================================================
	req, err := readRequest(*input)
	if err != nil {
		logger.Fatal("Failed to read input", "error", err)
	}

	pool, err := converter.ToPool(req)
	if err != nil {
		logger.Fatal("Invalid patients", "error", err)
	}

	base, err := cfg.Matching.Configuration()
	if err != nil {
		logger.Fatal("Invalid matching configuration", "error", err)
	}
	matchingCfg, err := converter.ToConfiguration(base, req.Configuration)
	if err != nil {
		logger.Fatal("Invalid matching configuration", "error", err)
	}

	logger.Log.Info("Starting matching",
		"service", cfg.App.Name,
		"version", cfg.App.Version,
		"donors", len(pool.Donors),
		"recipients", len(pool.Recipients),
	)

	resp, err := svc.Compute(ctx, pool, matchingCfg)
	if err != nil {
		_ = journal.Close()
		logger.Fatal("Matching failed", "error", err)
	}

	dto, err := converter.ToResponse(resp)
	if err != nil {
		logger.Fatal("Failed to encode result", "error", err)
	}
	if err := writeResponse(*output, dto); err != nil {
		logger.Fatal("Failed to write output", "error", err)
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.ResultRepository, func()) {
	switch cfg.Database.Driver {
	case "postgres", "postgresql":
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		if err := database.RunMigrations(ctx, db, cfg.Database.AutoMigrate, migrations.FS, migrations.Dir); err != nil {
			db.Close()
			logger.Fatal("Failed to run migrations", "error", err)
		}
		logger.Log.Info("Result store initialized", "driver", "postgres", "database", cfg.Database.Database)
		return repository.NewPostgresResultRepository(db), db.Close
	default:
		logger.Log.Info("Result store initialized", "driver", "memory")
		return repository.NewMemoryResultRepository(), func() {}
	}
}

// openJournal returns the solve journal. When the result goes to stdout the
// journal is written to stderr instead.
func openJournal(cfg *config.Config, output string) audit.Logger {
	if !cfg.Audit.Enabled {
		return audit.NoopLogger{}
	}
	if cfg.Audit.Backend == "stdout" && output == "-" {
		return audit.NewWriterLogger(os.Stderr)
	}

	journal, err := audit.New(&audit.Config{
		Enabled:     cfg.Audit.Enabled,
		Backend:     cfg.Audit.Backend,
		FilePath:    cfg.Audit.FilePath,
		MaxSize:     cfg.Audit.MaxSize,
		MaxBackups:  cfg.Audit.MaxBackups,
		MaxAge:      cfg.Audit.MaxAge,
		Compress:    cfg.Audit.Compress,
		BufferSize:  cfg.Audit.BufferSize,
		FlushPeriod: cfg.Audit.FlushPeriod,
	})
	if err != nil {
		logger.Log.Warn("Failed to open audit journal, continuing without it", "error", err)
		return audit.NoopLogger{}
	}
	logger.Log.Info("Audit journal initialized", "backend", cfg.Audit.Backend)
	return journal
}

func readRequest(path string) (*converter.Request, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return converter.DecodeRequest(r)
}

func writeResponse(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
