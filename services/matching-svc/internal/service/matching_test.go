package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmatching/pkg/apperror"
	"txmatching/pkg/audit"
	"txmatching/pkg/cache"
	"txmatching/pkg/domain"
	"txmatching/pkg/lock"
	"txmatching/services/matching-svc/internal/repository"
	"txmatching/services/matching-svc/internal/solver"
)

func pairPool(n int) *domain.Pool {
	pool := &domain.Pool{}
	for i := 1; i <= n; i++ {
		id := int64(i)
		pool.Donors = append(pool.Donors, domain.Donor{
			Patient:            domain.Patient{ID: id, BloodGroup: domain.BloodGroupZero, Country: domain.CountryCZE},
			Kind:               domain.DonorKindPaired,
			RelatedRecipientID: 100 + id,
		})
		pool.Recipients = append(pool.Recipients, domain.Recipient{
			Patient:         domain.Patient{ID: 100 + id, BloodGroup: domain.BloodGroupZero, Country: domain.CountryCZE},
			RelatedDonorIDs: []int64{id},
		})
	}
	return pool
}

func newResultCache(t *testing.T) *cache.ResultCache[solver.Result] {
	t.Helper()
	opts := cache.DefaultOptions()
	opts.Backend = cache.BackendMemory
	backend, err := cache.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return cache.NewResultCache[solver.Result](backend, time.Minute)
}

func newService(t *testing.T, withCache bool) (*MatchingService, *repository.MemoryResultRepository, lock.Locker) {
	t.Helper()
	locker := lock.NewMemoryLocker()
	t.Cleanup(func() { _ = locker.Close() })
	repo := repository.NewMemoryResultRepository()

	var results *cache.ResultCache[solver.Result]
	if withCache {
		results = newResultCache(t)
	}
	return NewMatchingService(locker, results, repo), repo, locker
}

func TestCompute_SolveThenCache(t *testing.T) {
	svc, repo, _ := newService(t, true)
	ctx := context.Background()
	cfg := domain.DefaultConfiguration()

	first, err := svc.Compute(ctx, pairPool(3), cfg)
	require.NoError(t, err)
	assert.Equal(t, SourceSolver, first.Source)
	assert.NotEmpty(t, first.SolveID)
	assert.Len(t, first.Result.Matchings, 4)

	second, err := svc.Compute(ctx, pairPool(3), cfg)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.NotEqual(t, first.SolveID, second.SolveID)
	require.Len(t, second.Result.Matchings, 4)
	assert.Equal(t, first.Result.Matchings[0].Score, second.Result.Matchings[0].Score)
	assert.Equal(t, first.Result.Matchings[0].Rounds, second.Result.Matchings[0].Rounds)
	assert.Equal(t, 1, repo.Len())
}

func TestCompute_ReusesStoredResult(t *testing.T) {
	svc, repo, _ := newService(t, false)
	ctx := context.Background()
	cfg := domain.DefaultConfiguration()

	_, err := svc.Compute(ctx, pairPool(3), cfg)
	require.NoError(t, err)

	viewer := cfg.Clone()
	viewer.MaxMatchingsToShowToViewer = 1
	resp, err := svc.Compute(ctx, pairPool(3), viewer)
	require.NoError(t, err)
	assert.Equal(t, SourceStore, resp.Source)
	assert.Len(t, resp.Result.Matchings, 1)
	assert.Equal(t, 3, resp.Result.Matchings[0].TransplantCount())

	stricter := cfg.Clone()
	stricter.MaxCycleLength = 2
	resp, err = svc.Compute(ctx, pairPool(3), stricter)
	require.NoError(t, err)
	assert.Equal(t, SourceSolver, resp.Source)
	assert.Equal(t, 2, repo.Len())
}

func TestCompute_ViewerLimit(t *testing.T) {
	svc, _, _ := newService(t, true)
	cfg := domain.DefaultConfiguration()
	cfg.MaxMatchingsToShowToViewer = 2

	resp, err := svc.Compute(context.Background(), pairPool(3), cfg)
	require.NoError(t, err)
	assert.Len(t, resp.Result.Matchings, 2)
	assert.Equal(t, 1, resp.Result.Matchings[0].Rank)
}

func TestCompute_ConcurrentCallsSolveOnce(t *testing.T) {
	svc, repo, _ := newService(t, true)
	cfg := domain.DefaultConfiguration()

	var wg sync.WaitGroup
	sources := make([]string, 4)
	for i := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Compute(context.Background(), pairPool(4), cfg)
			if assert.NoError(t, err) {
				sources[i] = resp.Source
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, repo.Len())
	solved := 0
	for _, s := range sources {
		if s == SourceSolver {
			solved++
		}
	}
	assert.Equal(t, 1, solved)
}

func TestCompute_Capped(t *testing.T) {
	svc, _, _ := newService(t, false)
	cfg := domain.DefaultConfiguration()
	cfg.MaxMatchingsInAllSolutionsSolver = 1

	resp, err := svc.Compute(context.Background(), pairPool(3), cfg)
	require.NoError(t, err)
	assert.False(t, resp.Result.AllResultsFound)
	assert.Nil(t, resp.Result.FoundMatchingsCount)
	assert.Len(t, resp.Result.Matchings, 1)
}

func TestCompute_Rejected(t *testing.T) {
	svc, repo, _ := newService(t, true)

	_, err := svc.Compute(context.Background(), nil, domain.DefaultConfiguration())
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))

	cfg := domain.DefaultConfiguration()
	cfg.MaxNumberOfMatchings = 0
	_, err = svc.Compute(context.Background(), pairPool(2), cfg)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConfiguration))

	cfg = domain.DefaultConfiguration()
	cfg.MaximumTotalScore = math.Inf(1)
	_, err = svc.Compute(context.Background(), pairPool(2), cfg)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConfiguration))

	cfg = domain.DefaultConfiguration()
	cfg.SolverConstructorName = "ILPSolver"
	_, err = svc.Compute(context.Background(), pairPool(2), cfg)
	assert.True(t, apperror.Is(err, apperror.CodeUnsupportedCombination))

	assert.Equal(t, 0, repo.Len())
}

func TestCompute_LockTimeout(t *testing.T) {
	svc, _, locker := newService(t, false)

	held, err := locker.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release(context.Background()) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = svc.Compute(ctx, pairPool(2), domain.DefaultConfiguration())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeLockUnavailable))
}

type failingRepo struct {
	repository.ResultRepository
	findErr error
	saveErr error
}

func (r failingRepo) FindReusable(context.Context, *domain.Pool, domain.Configuration) (*repository.StoredResult, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return nil, repository.ErrResultNotFound
}

func (r failingRepo) Save(context.Context, *domain.Pool, domain.Configuration, *solver.Result) (*repository.StoredResult, error) {
	return nil, r.saveErr
}

func TestCompute_StorageErrors(t *testing.T) {
	locker := lock.NewMemoryLocker()
	defer locker.Close() //nolint:errcheck

	lookupErr := errors.New("connection reset")
	svc := NewMatchingService(locker, nil, failingRepo{findErr: lookupErr})
	_, err := svc.Compute(context.Background(), pairPool(2), domain.DefaultConfiguration())
	assert.ErrorIs(t, err, lookupErr)

	svc = NewMatchingService(locker, nil, failingRepo{saveErr: errors.New("disk full")})
	_, err = svc.Compute(context.Background(), pairPool(2), domain.DefaultConfiguration())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeStorage))
}

func TestInvalidateCache(t *testing.T) {
	svc, _, _ := newService(t, true)
	cfg := domain.DefaultConfiguration()

	_, err := svc.Compute(context.Background(), pairPool(2), cfg)
	require.NoError(t, err)

	n, err := svc.InvalidateCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	resp, err := svc.Compute(context.Background(), pairPool(2), cfg)
	require.NoError(t, err)
	assert.Equal(t, SourceStore, resp.Source)

	noCache, _, _ := newService(t, false)
	n, err = noCache.InvalidateCache(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type recordingJournal struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (j *recordingJournal) Log(_ context.Context, e *audit.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *recordingJournal) Close() error { return nil }

func TestCompute_Audit(t *testing.T) {
	locker := lock.NewMemoryLocker()
	t.Cleanup(func() { _ = locker.Close() })
	journal := &recordingJournal{}
	svc := NewMatchingService(locker, newResultCache(t), repository.NewMemoryResultRepository(), WithAudit(journal))
	ctx := context.Background()
	cfg := domain.DefaultConfiguration()

	_, err := svc.Compute(ctx, pairPool(2), cfg)
	require.NoError(t, err)
	_, err = svc.Compute(ctx, pairPool(2), cfg)
	require.NoError(t, err)
	_, err = svc.Compute(ctx, nil, cfg)
	require.Error(t, err)
	_, err = svc.InvalidateCache(ctx)
	require.NoError(t, err)

	require.Len(t, journal.entries, 4)

	solved := journal.entries[0]
	assert.Equal(t, audit.ActionSolve, solved.Action)
	assert.Equal(t, audit.OutcomeSuccess, solved.Outcome)
	assert.Equal(t, SourceSolver, solved.Source)
	assert.Equal(t, 1, solved.Matchings)
	assert.Equal(t, cache.PatientSetHash(pairPool(2).PatientSet()), solved.PatientSetHash)
	cfgHash, err := cache.ConfigHash(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfgHash, solved.ConfigHash)
	require.NotNil(t, solved.AllResultsFound)
	assert.True(t, *solved.AllResultsFound)

	reused := journal.entries[1]
	assert.Equal(t, SourceCache, reused.Source)
	assert.Equal(t, solved.PatientSetHash, reused.PatientSetHash)
	assert.NotEqual(t, solved.SolveID, reused.SolveID)

	rejected := journal.entries[2]
	assert.Equal(t, audit.OutcomeRejected, rejected.Outcome)
	assert.Equal(t, string(apperror.CodeNilInput), rejected.ErrorCode)
	assert.Empty(t, rejected.PatientSetHash)

	invalidated := journal.entries[3]
	assert.Equal(t, audit.ActionInvalidate, invalidated.Action)
	assert.Equal(t, audit.OutcomeSuccess, invalidated.Outcome)
	assert.Equal(t, int64(1), invalidated.Metadata["deleted"])
}
