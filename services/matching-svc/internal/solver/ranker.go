package solver

import (
	"cmp"
	"container/heap"
	"iter"
	"slices"

	"txmatching/pkg/domain"
	"txmatching/pkg/logger"
)

const progressEvery = 100_000

// compareMatchings orders matchings by transplant count, score and round
// count (all higher first), then by earlier discovery. It returns a negative
// number when a ranks above b.
func compareMatchings(a, b Matching) int {
	return cmp.Or(
		cmp.Compare(b.TransplantCount(), a.TransplantCount()),
		cmp.Compare(b.Score, a.Score),
		cmp.Compare(len(b.Rounds), len(a.Rounds)),
		cmp.Compare(a.order, b.order),
	)
}

// worstFirst is a heap whose root is the lowest ranked retained matching.
type worstFirst []Matching

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return compareMatchings(h[i], h[j]) > 0 }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(Matching)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Ranking is the outcome of Rank.
type Ranking struct {
	Matchings           []Matching
	AllResultsFound     bool
	FoundMatchingsCount *int // nil when the enumeration cap stopped the stream
	Examined            int
	Kept                int // candidates that passed Keep
}

// Rank streams candidates through Keep and retains the best
// cfg.MaxNumberOfMatchings of them. At most cfg.MaxMatchingsInAllSolutionsSolver
// candidates are examined; if more remain the ranking is marked incomplete.
func Rank(candidates iter.Seq[Matching], cfg domain.Configuration) Ranking {
	limit := cfg.MaxNumberOfMatchings
	enumerationCap := cfg.MaxMatchingsInAllSolutionsSolver

	h := make(worstFirst, 0, min(limit, 1024))
	var r Ranking
	capped := false

	for m := range candidates {
		if r.Examined >= enumerationCap {
			capped = true
			break
		}
		m.order = r.Examined
		r.Examined++

		if r.Examined%progressEvery == 0 {
			logger.Log.Info("ranking progress", "examined", r.Examined, "retained", h.Len())
		}

		if !Keep(m, cfg) {
			continue
		}
		r.Kept++

		if h.Len() < limit {
			heap.Push(&h, m)
			continue
		}
		if limit > 0 && compareMatchings(m, h[0]) < 0 {
			h[0] = m
			heap.Fix(&h, 0)
		}
	}

	r.Matchings = slices.Clone([]Matching(h))
	slices.SortFunc(r.Matchings, compareMatchings)
	for i := range r.Matchings {
		r.Matchings[i].Rank = i + 1
	}

	r.AllResultsFound = !capped
	if capped {
		logger.Log.Error("enumeration cap reached, returning partial top matchings",
			"cap", enumerationCap,
			"returned", len(r.Matchings),
		)
	} else {
		n := r.Examined
		r.FoundMatchingsCount = &n
	}
	return r
}
