package clique

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmatching/services/matching-svc/internal/paths"
	"txmatching/services/matching-svc/internal/scoring"
)

func TestBitset(t *testing.T) {
	b := NewBitset(130)
	b.Set(0)
	b.Set(64)
	b.Set(129)

	assert.True(t, b.Has(64))
	assert.False(t, b.Has(63))
	assert.Equal(t, 3, b.Count())
	assert.Equal(t, []int{0, 64, 129}, slices.Collect(b.All()))

	o := NewBitset(130)
	o.Set(64)
	o.Set(1)
	assert.Equal(t, []int{64}, slices.Collect(b.And(o).All()))
	assert.Equal(t, []int{0, 129}, slices.Collect(b.AndNot(o).All()))
	assert.Equal(t, []int{0, 1, 64, 129}, slices.Collect(b.Or(o).All()))
	assert.Equal(t, 1, b.IntersectionCount(o))

	c := b.Clone()
	c.Clear(0)
	assert.True(t, b.Has(0))
	assert.False(t, c.Has(0))

	assert.True(t, NewBitset(10).IsEmpty())
	assert.False(t, b.IsEmpty())
}

func graphFromEdges(n int, edges [][2]int) []Bitset {
	adj := make([]Bitset, n)
	for i := range adj {
		adj[i] = NewBitset(n)
	}
	for _, e := range edges {
		adj[e[0]].Set(e[1])
		adj[e[1]].Set(e[0])
	}
	return adj
}

func collectSorted(adj []Bitset) []string {
	var out []string
	for c := range MaximalCliques(adj) {
		out = append(out, fmt.Sprint(c))
	}
	sort.Strings(out)
	return out
}

func TestMaximalCliques_Small(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		edges [][2]int
		want  []string
	}{
		{"empty graph", 0, nil, nil},
		{"isolated vertices", 3, nil, []string{"[0]", "[1]", "[2]"}},
		{"triangle", 3, [][2]int{{0, 1}, {1, 2}, {0, 2}}, []string{"[0 1 2]"}},
		{"two triangles sharing an edge", 4, [][2]int{{0, 1}, {1, 2}, {0, 2}, {1, 3}, {2, 3}},
			[]string{"[0 1 2]", "[1 2 3]"}},
		{"five-cycle", 5, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 0}},
			[]string{"[0 1]", "[0 4]", "[1 2]", "[2 3]", "[3 4]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collectSorted(graphFromEdges(tt.n, tt.edges)))
		})
	}
}

// bruteForce lists maximal cliques by checking every vertex subset.
func bruteForce(adj []Bitset) []string {
	n := len(adj)
	isClique := func(mask int) bool {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if mask&(1<<i) != 0 && mask&(1<<j) != 0 && !adj[i].Has(j) {
					return false
				}
			}
		}
		return true
	}

	var out []string
	for mask := 1; mask < 1<<n; mask++ {
		if !isClique(mask) {
			continue
		}
		maximal := true
		for v := 0; v < n && maximal; v++ {
			if mask&(1<<v) == 0 && isClique(mask|1<<v) {
				maximal = false
			}
		}
		if !maximal {
			continue
		}
		var c []int
		for v := 0; v < n; v++ {
			if mask&(1<<v) != 0 {
				c = append(c, v)
			}
		}
		out = append(out, fmt.Sprint(c))
	}
	sort.Strings(out)
	return out
}

func TestMaximalCliques_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for round := 0; round < 30; round++ {
		n := 2 + rng.IntN(9)
		var edges [][2]int
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rng.Float64() < 0.5 {
					edges = append(edges, [2]int{i, j})
				}
			}
		}
		adj := graphFromEdges(n, edges)
		require.Equal(t, bruteForce(adj), collectSorted(adj), "round %d, n=%d, edges=%v", round, n, edges)
	}
}

func TestMaximalCliques_EarlyStop(t *testing.T) {
	adj := graphFromEdges(4, nil)
	n := 0
	for range MaximalCliques(adj) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func mustPathGraph(t *testing.T, rows [][]float64) *paths.Graph {
	t.Helper()
	m, err := scoring.MatrixFromRows(rows)
	require.NoError(t, err)
	return paths.NewGraph(m, nil)
}

func TestDisjointCombinations_TwoDisjointCycles(t *testing.T) {
	// pairs (0,R0) (1,R1) form one 2-cycle, (2,R2) (3,R3) another
	g := mustPathGraph(t, [][]float64{
		{-2, 3, -1, -1},
		{4, -2, -1, -1},
		{-1, -1, -2, 5},
		{-1, -1, 6, -2},
	})
	ps, _ := paths.Collect(g, 10, 10)
	require.Len(t, ps, 2)

	combos := slices.Collect(DisjointCombinations(g, ps))
	require.Len(t, combos, 1)
	assert.Equal(t, []int{0, 1}, combos[0])
}

func TestDisjointCombinations_OverlappingPaths(t *testing.T) {
	// donors 0,1,2 all compatible: every cycle shares a donor with every other
	g := mustPathGraph(t, [][]float64{
		{-2, 1, 1},
		{1, -2, 1},
		{1, 1, -2},
	})
	ps, _ := paths.Collect(g, 10, 10)
	require.Len(t, ps, 4)

	combos := slices.Collect(DisjointCombinations(g, ps))
	require.Len(t, combos, 4)

	seen := map[int]bool{}
	for _, c := range combos {
		require.Len(t, c, 1)
		seen[c[0]] = true
	}
	assert.Len(t, seen, 4)
}

func TestDisjointCombinations_SharedRecipientNotDisjoint(t *testing.T) {
	// donors 0 and 1 share recipient 0; altruists 3 and 4 both feed it
	g := mustPathGraph(t, [][]float64{
		{-2, -1},
		{-2, -1},
		{-1, -2},
		{2, -1},
		{3, -1},
	})
	ps := []paths.Path{
		{Kind: paths.KindChain, Donors: []int{3, 0}},
		{Kind: paths.KindChain, Donors: []int{4, 1}},
	}
	adj := DisjointnessGraph(g, ps)
	assert.False(t, adj[0].Has(1))

	combos := slices.Collect(DisjointCombinations(g, ps))
	assert.Equal(t, [][]int{{0}, {1}}, combos)
}

func TestDisjointCombinations_Empty(t *testing.T) {
	g := mustPathGraph(t, [][]float64{{-2}})
	assert.Empty(t, slices.Collect(DisjointCombinations(g, nil)))
}

func TestDisjointCombinations_EveryCandidateIsDisjoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	n := 7
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			switch {
			case i == j:
				rows[i][j] = -2
			case rng.Float64() < 0.35:
				rows[i][j] = float64(rng.IntN(10))
			default:
				rows[i][j] = -1
			}
		}
	}
	g := mustPathGraph(t, rows)
	ps, _ := paths.Collect(g, 4, 4)

	covered := make([]bool, len(ps))
	for combo := range DisjointCombinations(g, ps) {
		donors := map[int]bool{}
		recipients := map[int]bool{}
		for _, idx := range combo {
			covered[idx] = true
			for _, d := range ps[idx].Donors {
				require.False(t, donors[d], "donor %d reused", d)
				donors[d] = true
			}
			for _, r := range ps[idx].Recipients(g) {
				require.False(t, recipients[r], "recipient %d reused", r)
				recipients[r] = true
			}
		}
	}
	for i, c := range covered {
		assert.True(t, c, "path %d never offered", i)
	}
}
