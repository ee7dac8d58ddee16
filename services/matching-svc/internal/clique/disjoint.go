package clique

import (
	"iter"

	"txmatching/services/matching-svc/internal/paths"
)

// DisjointnessGraph connects paths that share no donor and no recipient.
func DisjointnessGraph(g *paths.Graph, ps []paths.Path) []Bitset {
	n := len(ps)
	donors := make([]Bitset, n)
	recipients := make([]Bitset, n)
	for i, p := range ps {
		donors[i] = NewBitset(g.Size())
		for _, d := range p.Donors {
			donors[i].Set(d)
		}
		recipients[i] = NewBitset(g.Matrix().Cols())
		for _, r := range p.Recipients(g) {
			recipients[i].Set(r)
		}
	}

	adj := make([]Bitset, n)
	for i := range adj {
		adj[i] = NewBitset(n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if donors[i].IntersectionCount(donors[j]) == 0 && recipients[i].IntersectionCount(recipients[j]) == 0 {
				adj[i].Set(j)
				adj[j].Set(i)
			}
		}
	}
	return adj
}

// DisjointCombinations yields every maximal set of mutually disjoint paths
// as indices into ps. Paths not covered by any yielded clique are yielded
// afterwards as singletons, so every path appears in at least one candidate.
// The sequence is meant to be consumed once.
func DisjointCombinations(g *paths.Graph, ps []paths.Path) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if len(ps) == 0 {
			return
		}
		adj := DisjointnessGraph(g, ps)
		uncovered := NewBitset(len(ps))
		for i := range ps {
			uncovered.Set(i)
		}

		for c := range MaximalCliques(adj) {
			for _, v := range c {
				uncovered.Clear(v)
			}
			if !yield(c) {
				return
			}
		}

		for v := range uncovered.All() {
			if !yield([]int{v}) {
				return
			}
		}
	}
}
