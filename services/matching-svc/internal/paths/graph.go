// Package paths derives the donor compatibility graph from a score matrix and
// enumerates bounded simple cycles and chains over it.
package paths

import (
	"txmatching/services/matching-svc/internal/scoring"
)

// Graph is the directed donor graph: edge i -> j exists iff donor i can
// feasibly donate to the original recipient of donor j.
// It is read-only after construction.
type Graph struct {
	matrix      *scoring.Matrix
	recipientOf []int   // donor index -> original recipient index, -1 if none
	succ        [][]int // sorted successor donor indices
	inDegree    []int
	starter     []bool
}

// NewGraph builds the donor graph. chainStarters marks donors allowed to start
// a chain; nil means every donor without an original recipient.
func NewGraph(m *scoring.Matrix, chainStarters []bool) *Graph {
	n := m.Rows()
	g := &Graph{
		matrix:      m,
		recipientOf: make([]int, n),
		succ:        make([][]int, n),
		inDegree:    make([]int, n),
		starter:     make([]bool, n),
	}

	for i := 0; i < n; i++ {
		g.recipientOf[i] = m.OriginalRecipient(i)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rj := g.recipientOf[j]
			if i == j || rj < 0 || !m.Feasible(i, rj) {
				continue
			}
			g.succ[i] = append(g.succ[i], j)
			g.inDegree[j]++
		}
	}

	for i := 0; i < n; i++ {
		if chainStarters != nil {
			g.starter[i] = i < len(chainStarters) && chainStarters[i] && g.recipientOf[i] < 0
		} else {
			g.starter[i] = g.recipientOf[i] < 0
		}
	}
	return g
}

// Size returns the number of donors.
func (g *Graph) Size() int { return len(g.recipientOf) }

// Matrix returns the underlying score matrix.
func (g *Graph) Matrix() *scoring.Matrix { return g.matrix }

// RecipientOf returns the original recipient of donor i, -1 if none.
func (g *Graph) RecipientOf(i int) int { return g.recipientOf[i] }

// Successors returns the donors that donor i can feed into.
func (g *Graph) Successors(i int) []int { return g.succ[i] }

// InDegree returns the number of donors that can feed into donor i.
func (g *Graph) InDegree(i int) int { return g.inDegree[i] }

// IsChainStarter reports whether donor i may start a chain.
func (g *Graph) IsChainStarter(i int) bool { return g.starter[i] }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, s := range g.succ {
		total += len(s)
	}
	return total
}
