package paths

import (
	"iter"
	"slices"
)

// FindAllCycles yields every simple cycle of at most maxLength transplants.
//
// Each cycle is reported once, starting from its smallest donor index.
// A walk never visits the same donor twice nor transplants into the same
// recipient twice (donors may share an original recipient).
func FindAllCycles(g *Graph, maxLength int) iter.Seq[Path] {
	return func(yield func(Path) bool) {
		if maxLength < 2 {
			return
		}
		w := newWalker(g)
		for start := 0; start < g.Size(); start++ {
			if g.recipientOf[start] < 0 {
				continue
			}
			w.push(start)
			ok := w.cycles(start, maxLength, yield)
			w.pop()
			if !ok {
				return
			}
		}
	}
}

// FindAllSequences yields every maximal chain from a chain starter.
//
// A chain is reported when the walk cannot extend: no admissible successor
// is left or the chain already has maxLength transplants.
func FindAllSequences(g *Graph, maxLength int) iter.Seq[Path] {
	return func(yield func(Path) bool) {
		if maxLength < 1 {
			return
		}
		w := newWalker(g)
		for start := 0; start < g.Size(); start++ {
			if !g.starter[start] {
				continue
			}
			w.push(start)
			ok := w.chains(maxLength, yield)
			w.pop()
			if !ok {
				return
			}
		}
	}
}

// walker holds the DFS frontier shared by cycle and chain search.
type walker struct {
	g             *Graph
	stack         []int
	donorUsed     []bool
	recipientUsed []bool
}

func newWalker(g *Graph) *walker {
	return &walker{
		g:             g,
		stack:         make([]int, 0, 16),
		donorUsed:     make([]bool, g.Size()),
		recipientUsed: make([]bool, g.matrix.Cols()),
	}
}

func (w *walker) push(d int) {
	w.stack = append(w.stack, d)
	w.donorUsed[d] = true
	if r := w.g.recipientOf[d]; r >= 0 {
		w.recipientUsed[r] = true
	}
}

func (w *walker) pop() {
	d := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.donorUsed[d] = false
	if r := w.g.recipientOf[d]; r >= 0 {
		w.recipientUsed[r] = false
	}
}

func (w *walker) admissible(d int) bool {
	return !w.donorUsed[d] && !w.recipientUsed[w.g.recipientOf[d]]
}

func (w *walker) cycles(start, maxLength int, yield func(Path) bool) bool {
	last := w.stack[len(w.stack)-1]
	for _, next := range w.g.succ[last] {
		if next == start {
			if len(w.stack) >= 2 {
				donors := slices.Clone(w.stack)
				if !yield(Path{Kind: KindCycle, Donors: donors, Score: score(w.g, KindCycle, donors)}) {
					return false
				}
			}
			continue
		}
		if next < start || len(w.stack) >= maxLength || !w.admissible(next) {
			continue
		}
		w.push(next)
		ok := w.cycles(start, maxLength, yield)
		w.pop()
		if !ok {
			return false
		}
	}
	return true
}

func (w *walker) chains(maxLength int, yield func(Path) bool) bool {
	last := w.stack[len(w.stack)-1]
	extended := false

	if len(w.stack)-1 < maxLength {
		for _, next := range w.g.succ[last] {
			if !w.admissible(next) {
				continue
			}
			extended = true
			w.push(next)
			ok := w.chains(maxLength, yield)
			w.pop()
			if !ok {
				return false
			}
		}
	}

	if !extended && len(w.stack) >= 2 {
		donors := slices.Clone(w.stack)
		return yield(Path{Kind: KindChain, Donors: donors, Score: score(w.g, KindChain, donors)})
	}
	return true
}
