package clique

import (
	"iter"
	"slices"
)

// MaximalCliques yields every maximal clique of the undirected graph given by
// adj, where adj[v] is the neighbour set of v. Each clique is a fresh sorted slice.
// The sequence is lazy: memory is bounded by the recursion depth.
func MaximalCliques(adj []Bitset) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		n := len(adj)
		if n == 0 {
			return
		}
		p := NewBitset(n)
		for v := 0; v < n; v++ {
			p.Set(v)
		}
		bk := &bronKerbosch{adj: adj, yield: yield}
		bk.expand(nil, p, NewBitset(n))
	}
}

type bronKerbosch struct {
	adj   []Bitset
	yield func([]int) bool
}

// expand returns false once the consumer stopped the iteration.
func (bk *bronKerbosch) expand(r []int, p, x Bitset) bool {
	if p.IsEmpty() {
		if x.IsEmpty() {
			clique := slices.Clone(r)
			slices.Sort(clique)
			return bk.yield(clique)
		}
		return true
	}

	pivot := bk.choosePivot(p, x)
	candidates := p.AndNot(bk.adj[pivot])

	for v := range candidates.All() {
		if !bk.expand(append(r, v), p.And(bk.adj[v]), x.And(bk.adj[v])) {
			return false
		}
		p.Clear(v)
		x.Set(v)
	}
	return true
}

// choosePivot picks the vertex of P ∪ X with the most neighbours in P.
func (bk *bronKerbosch) choosePivot(p, x Bitset) int {
	best, bestCount := -1, -1
	for u := range p.Or(x).All() {
		if c := p.IntersectionCount(bk.adj[u]); c > bestCount {
			best, bestCount = u, c
		}
	}
	return best
}
