package paths

import (
	"slices"
)

// Kind distinguishes closed cycles from open chains.
type Kind int

const (
	KindCycle Kind = iota
	KindChain
)

func (k Kind) String() string {
	if k == KindChain {
		return "CHAIN"
	}
	return "CYCLE"
}

// Path is an ordered list of donor indices.
//
// For a cycle d0..dk-1 donor di donates to the recipient of d(i+1 mod k).
// For a chain d0..dk-1 donor di donates to the recipient of d(i+1) and the
// last donor does not donate.
type Path struct {
	Kind   Kind
	Donors []int
	Score  float64
}

// Transplant is one (donor index, recipient index) step of a path.
type Transplant struct {
	Donor     int
	Recipient int
	Score     float64
}

// Transplants expands the path into its donor/recipient steps.
func (p Path) Transplants(g *Graph) []Transplant {
	k := len(p.Donors)
	var n int
	switch p.Kind {
	case KindCycle:
		n = k
	default:
		n = max(k-1, 0)
	}

	out := make([]Transplant, n)
	for i := 0; i < n; i++ {
		d := p.Donors[i]
		r := g.recipientOf[p.Donors[(i+1)%k]]
		out[i] = Transplant{Donor: d, Recipient: r, Score: g.matrix.At(d, r)}
	}
	return out
}

// Length returns the number of transplants.
func (p Path) Length() int {
	if p.Kind == KindCycle {
		return len(p.Donors)
	}
	return max(len(p.Donors)-1, 0)
}

// Recipients returns the recipient indices that receive a kidney on this path.
func (p Path) Recipients(g *Graph) []int {
	out := make([]int, 0, len(p.Donors))
	for _, t := range p.Transplants(g) {
		out = append(out, t.Recipient)
	}
	return out
}

// key identifies the donor vertex set regardless of order.
func (p Path) key() string {
	sorted := slices.Clone(p.Donors)
	slices.Sort(sorted)
	buf := make([]byte, 0, len(sorted)*4)
	for _, d := range sorted {
		buf = appendInt(buf, d)
		buf = append(buf, ',')
	}
	return string(buf)
}

func appendInt(buf []byte, v int) []byte {
	if v >= 10 {
		buf = appendInt(buf, v/10)
	}
	return append(buf, byte('0'+v%10))
}

func score(g *Graph, kind Kind, donors []int) float64 {
	p := Path{Kind: kind, Donors: donors}
	var total float64
	for _, t := range p.Transplants(g) {
		total += t.Score
	}
	return total
}
