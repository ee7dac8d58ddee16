// Package service собирает пайплайн подбора пар: глобальная блокировка,
// кэш и хранилище готовых результатов, расчёт.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"txmatching/pkg/apperror"
	"txmatching/pkg/audit"
	"txmatching/pkg/cache"
	"txmatching/pkg/domain"
	"txmatching/pkg/lock"
	"txmatching/pkg/logger"
	"txmatching/pkg/metrics"
	"txmatching/pkg/telemetry"
	"txmatching/services/matching-svc/internal/repository"
	"txmatching/services/matching-svc/internal/solver"
)

// ServiceName имя сервиса в журнале расчётов
const ServiceName = "matching-svc"

// Источники результата
const (
	SourceCache  = "cache"
	SourceStore  = "store"
	SourceSolver = "solver"
)

// Response ответ на запрос подбора
type Response struct {
	SolveID string
	Source  string
	Result  *solver.Result // обрезан до max_matchings_to_show_to_viewer
}

// MatchingService сервис подбора пар
type MatchingService struct {
	locker  lock.Locker
	results *cache.ResultCache[solver.Result] // nil если кэш выключен
	repo    repository.ResultRepository
	metrics *metrics.Metrics
	journal audit.Logger
}

// Option настраивает MatchingService
type Option func(*MatchingService)

// WithAudit включает журнал расчётов
func WithAudit(l audit.Logger) Option {
	return func(s *MatchingService) {
		s.journal = l
	}
}

// NewMatchingService создаёт сервис. results может быть nil.
func NewMatchingService(locker lock.Locker, results *cache.ResultCache[solver.Result], repo repository.ResultRepository, opts ...Option) *MatchingService {
	s := &MatchingService{
		locker:  locker,
		results: results,
		repo:    repo,
		metrics: metrics.Get(),
		journal: audit.NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute возвращает подборы для пула: из кэша, из хранилища, если там есть
// результат для совместимой конфигурации, иначе считает заново и сохраняет.
// Одновременно выполняется не больше одного вызова.
func (s *MatchingService) Compute(ctx context.Context, pool *domain.Pool, cfg domain.Configuration) (*Response, error) {
	start := time.Now()
	solveID := uuid.NewString()
	log := logger.WithSolve(solveID)

	ctx, span := telemetry.StartSpan(ctx, "MatchingService.Compute",
		telemetry.WithAttributes(attribute.String(telemetry.AttrSolveID, solveID)),
	)
	defer span.End()

	entry := audit.NewEntry(ServiceName, audit.ActionSolve).Solve(solveID)
	defer func() {
		if err := s.journal.Log(context.WithoutCancel(ctx), entry.Duration(time.Since(start)).Build()); err != nil {
			log.Warn("failed to write audit entry", "error", err)
		}
	}()

	if pool == nil {
		s.metrics.RecordSolve(metrics.OutcomeRejected, time.Since(start))
		entry.Outcome(audit.OutcomeRejected).Error(string(apperror.Code(apperror.ErrNilPool)), apperror.ErrNilPool.Error())
		return nil, apperror.ErrNilPool
	}
	ps := pool.PatientSet()
	psHash := cache.PatientSetHash(ps)
	entry.Hashes(psHash, "")

	cfgHash, err := configHash(cfg)
	if err != nil {
		s.metrics.RecordSolve(metrics.OutcomeRejected, time.Since(start))
		telemetry.SetError(ctx, err)
		entry.Outcome(audit.OutcomeRejected).Error(string(apperror.Code(err)), err.Error())
		return nil, err
	}
	entry.Hashes(psHash, cfgHash)

	lease, err := s.locker.Acquire(ctx)
	if err != nil {
		s.metrics.RecordSolve(metrics.OutcomeError, time.Since(start))
		telemetry.SetError(ctx, err)
		entry.Outcome(audit.OutcomeFailure).Error(string(apperror.Code(err)), err.Error())
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release solver lock", "error", err)
		}
	}()
	s.metrics.RecordLockWait(lease.Waited())
	log.Debug("solver lock acquired", "waited", lease.Waited())

	resp, outcome, err := s.compute(ctx, log, pool, ps, cfg)
	s.metrics.RecordSolve(outcome, time.Since(start))
	if err != nil {
		telemetry.SetError(ctx, err)
		entry.Outcome(audit.OutcomeFailure).Error(string(apperror.Code(err)), err.Error())
		if apperror.IsCritical(err) {
			log.Error("matching failed", "error", err, "code", apperror.Code(err))
		}
		return nil, err
	}

	resp.SolveID = solveID
	entry.Outcome(audit.OutcomeSuccess).
		Result(resp.Source, len(resp.Result.Matchings), resp.Result.AllResultsFound).
		Meta("outcome", outcome)
	span.SetAttributes(attribute.String(telemetry.AttrReuseSource, resp.Source))
	log.Info("matching computed",
		"source", resp.Source,
		"matchings", len(resp.Result.Matchings),
		"all_results_found", resp.Result.AllResultsFound,
		"took", logger.Elapsed(start),
	)
	return resp, nil
}

// configHash validates cfg and returns its cache hash.
func configHash(cfg domain.Configuration) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	h, err := cache.ConfigHash(cfg)
	if err != nil {
		return "", apperror.Wrap(err, apperror.CodeInvalidConfiguration, "configuration cannot be hashed")
	}
	return h, nil
}

func (s *MatchingService) compute(ctx context.Context, log *slog.Logger, pool *domain.Pool, ps domain.PatientSet, cfg domain.Configuration) (*Response, string, error) {
	viewer := cfg.MaxMatchingsToShowToViewer

	if s.results != nil {
		cached, err := s.results.Get(ctx, cfg, ps)
		switch {
		case err == nil:
			s.metrics.RecordCache(true)
			return &Response{Source: SourceCache, Result: cached.ForViewer(viewer)}, metrics.OutcomeReused, nil
		case errors.Is(err, cache.ErrKeyNotFound):
			s.metrics.RecordCache(false)
		default:
			s.metrics.RecordCache(false)
			log.Warn("result cache lookup failed", "error", err)
		}
	}

	stored, err := s.repo.FindReusable(ctx, pool, cfg)
	switch {
	case err == nil:
		s.metrics.RecordStoreLookup(true)
		s.remember(ctx, log, cfg, ps, stored.Result)
		return &Response{Source: SourceStore, Result: stored.Result.ForViewer(viewer)}, metrics.OutcomeReused, nil
	case repository.IsNotFound(err):
		s.metrics.RecordStoreLookup(false)
	default:
		return nil, metrics.OutcomeError, err
	}

	result, err := solver.Solve(ctx, pool, cfg)
	if err != nil {
		return nil, metrics.OutcomeError, err
	}

	if _, err := s.repo.Save(ctx, pool, cfg, result); err != nil {
		return nil, metrics.OutcomeError, apperror.Wrap(err, apperror.CodeStorage, "failed to store matching result")
	}
	s.remember(ctx, log, cfg, ps, result)

	outcome := metrics.OutcomeSolved
	if !result.AllResultsFound {
		outcome = metrics.OutcomeCapped
	}
	return &Response{Source: SourceSolver, Result: result.ForViewer(viewer)}, outcome, nil
}

func (s *MatchingService) remember(ctx context.Context, log *slog.Logger, cfg domain.Configuration, ps domain.PatientSet, result *solver.Result) {
	if s.results == nil {
		return
	}
	if err := s.results.Set(ctx, cfg, ps, result); err != nil {
		log.Warn("failed to cache matching result", "error", err)
	}
}

// InvalidateCache сбрасывает кэш готовых результатов
func (s *MatchingService) InvalidateCache(ctx context.Context) (int64, error) {
	if s.results == nil {
		return 0, nil
	}
	start := time.Now()
	n, err := s.results.Invalidate(ctx)

	entry := audit.NewEntry(ServiceName, audit.ActionInvalidate).Duration(time.Since(start)).Meta("deleted", n)
	if err != nil {
		entry.Outcome(audit.OutcomeFailure).Error(string(apperror.Code(err)), err.Error())
	} else {
		entry.Outcome(audit.OutcomeSuccess)
	}
	if lerr := s.journal.Log(context.WithoutCancel(ctx), entry.Build()); lerr != nil {
		logger.Log.Warn("failed to write audit entry", "error", lerr)
	}
	return n, err
}
