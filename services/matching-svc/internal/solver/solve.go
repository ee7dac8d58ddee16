// Package solver turns a patient pool and a configuration into ranked
// matchings: it scores every donor against every recipient, enumerates
// cycles and chains, combines disjoint ones and keeps the best of them.
package solver

import (
	"context"
	"iter"

	"go.opentelemetry.io/otel/attribute"

	"txmatching/pkg/apperror"
	"txmatching/pkg/domain"
	"txmatching/pkg/logger"
	"txmatching/pkg/metrics"
	"txmatching/pkg/telemetry"
	"txmatching/services/matching-svc/internal/clique"
	"txmatching/services/matching-svc/internal/paths"
	"txmatching/services/matching-svc/internal/scoring"
)

// Pipeline stages, used as span and metric labels.
const (
	StageScoreMatrix = "score_matrix"
	StageEnumerate   = "enumerate"
	StageRank        = "rank"
)

// Solve runs the full matching pipeline over pool.
func Solve(ctx context.Context, pool *domain.Pool, cfg domain.Configuration) (*Result, error) {
	if pool == nil {
		return nil, apperror.ErrNilPool
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.IsSupported() {
		return nil, apperror.Newf(apperror.CodeUnsupportedCombination,
			"unsupported combination (%s, %s) of (scorer, solver)", cfg.ScorerConstructorName, cfg.SolverConstructorName)
	}

	report, err := pool.Validate()
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		logger.Log.Warn("patient pool warning", "code", w.Code, "message", w.Message)
	}
	stats := domain.CalculatePoolStatistics(pool)
	logger.Log.Info("solving",
		"donors", stats.Donors,
		"recipients", stats.Recipients,
		"chain_starters", stats.ChainStarters(),
		"unpaired_recipients", stats.UnpairedRecipients,
		"countries", stats.Countries(),
	)

	m := metrics.Get()

	matrix, err := scoreMatrix(ctx, m, pool, cfg)
	if err != nil {
		return nil, err
	}

	g, candidates := enumerate(ctx, m, pool, matrix, cfg)

	ranking := rank(ctx, m, pool, g, candidates, cfg)

	result := &Result{
		Matchings:           ranking.Matchings,
		ScoreMatrix:         matrix,
		DonorIDs:            make([]int64, len(pool.Donors)),
		RecipientIDs:        make([]int64, len(pool.Recipients)),
		AllResultsFound:     ranking.AllResultsFound,
		FoundMatchingsCount: ranking.FoundMatchingsCount,
	}
	for i, d := range pool.Donors {
		result.DonorIDs[i] = d.ID
	}
	for i, r := range pool.Recipients {
		result.RecipientIDs[i] = r.ID
	}
	return result, nil
}

func scoreMatrix(ctx context.Context, m *metrics.Metrics, pool *domain.Pool, cfg domain.Configuration) (*scoring.Matrix, error) {
	_, end := telemetry.StartStage(ctx, StageScoreMatrix, telemetry.PoolAttributes(len(pool.Donors), len(pool.Recipients))...)
	timer := m.StageTimer(StageScoreMatrix)

	scorer, err := scoring.NewScorer(cfg)
	if err != nil {
		end(err)
		return nil, err
	}
	matrix := scoring.BuildMatrix(pool, scorer)

	d := timer.ObserveDuration()
	end(nil)
	logger.Log.Debug("score matrix built",
		"donors", matrix.Rows(),
		"recipients", matrix.Cols(),
		"duration", d,
	)
	return matrix, nil
}

func enumerate(ctx context.Context, m *metrics.Metrics, pool *domain.Pool, matrix *scoring.Matrix, cfg domain.Configuration) (*paths.Graph, []paths.Path) {
	ctx, end := telemetry.StartStage(ctx, StageEnumerate)
	timer := m.StageTimer(StageEnumerate)

	starters := make([]bool, len(pool.Donors))
	for i, d := range pool.Donors {
		starters[i] = d.Kind.IsChainStarter()
	}
	g := paths.NewGraph(matrix, starters)
	found, stats := paths.Collect(g, cfg.MaxCycleLength, cfg.MaxSequenceLength)

	d := timer.ObserveDuration()
	m.RecordPaths(stats.Cycles, stats.Sequences, stats.Retained)
	telemetry.SetAttributes(ctx, telemetry.PathAttributes(stats.Cycles, stats.Sequences, stats.Retained)...)
	end(nil)

	logger.Log.Info("paths enumerated",
		"edges", g.EdgeCount(),
		"cycles", stats.Cycles,
		"sequences", stats.Sequences,
		"retained", stats.Retained,
		"duration", d,
	)
	return g, found
}

func rank(ctx context.Context, m *metrics.Metrics, pool *domain.Pool, g *paths.Graph, found []paths.Path, cfg domain.Configuration) Ranking {
	ctx, end := telemetry.StartStage(ctx, StageRank)
	timer := m.StageTimer(StageRank)

	b := newBuilder(pool, g, found)
	ranking := Rank(b.matchings(clique.DisjointCombinations(g, found)), cfg)

	d := timer.ObserveDuration()
	m.RecordRanking(ranking.Examined, len(ranking.Matchings), !ranking.AllResultsFound)
	telemetry.SetAttributes(ctx, telemetry.RankingAttributes(ranking.Examined, len(ranking.Matchings), ranking.AllResultsFound)...)
	if !ranking.AllResultsFound {
		telemetry.AddEvent(ctx, "enumeration_cap_reached",
			attribute.Int("cap", cfg.MaxMatchingsInAllSolutionsSolver))
	}
	end(nil)

	logger.Log.Info("matchings ranked",
		"examined", ranking.Examined,
		"kept", ranking.Kept,
		"returned", len(ranking.Matchings),
		"all_results_found", ranking.AllResultsFound,
		"duration", d,
	)
	return ranking
}

// builder converts path index combinations into matchings. Rounds are built
// once per path and shared between matchings.
type builder struct {
	rounds []Round
}

func newBuilder(pool *domain.Pool, g *paths.Graph, found []paths.Path) *builder {
	b := &builder{rounds: make([]Round, len(found))}
	for i, p := range found {
		kind := RoundCycle
		if p.Kind == paths.KindChain {
			kind = RoundChain
		}
		steps := p.Transplants(g)
		round := Round{Kind: kind, Transplants: make([]Transplant, len(steps))}
		for k, s := range steps {
			donor := &pool.Donors[s.Donor]
			recipient := &pool.Recipients[s.Recipient]
			round.Transplants[k] = Transplant{
				DonorID:          donor.ID,
				RecipientID:      recipient.ID,
				DonorIndex:       s.Donor,
				RecipientIndex:   s.Recipient,
				Score:            s.Score,
				DonorCountry:     donor.Country,
				RecipientCountry: recipient.Country,
			}
		}
		b.rounds[i] = round
	}
	return b
}

func (b *builder) matchings(combos iter.Seq[[]int]) iter.Seq[Matching] {
	return func(yield func(Matching) bool) {
		for combo := range combos {
			rounds := make([]Round, len(combo))
			for i, idx := range combo {
				rounds[i] = b.rounds[idx]
			}
			if !yield(NewMatching(rounds)) {
				return
			}
		}
	}
}
