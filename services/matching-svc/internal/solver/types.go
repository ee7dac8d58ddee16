package solver

import (
	"slices"

	"txmatching/pkg/domain"
	"txmatching/services/matching-svc/internal/scoring"
)

// RoundKind distinguishes closed cycles from open chains.
type RoundKind string

const (
	RoundCycle RoundKind = "CYCLE"
	RoundChain RoundKind = "CHAIN"
)

// Transplant is one donor -> recipient kidney transfer.
type Transplant struct {
	DonorID          int64          `json:"donor_db_id"`
	RecipientID      int64          `json:"recipient_db_id"`
	DonorIndex       int            `json:"donor_index"`
	RecipientIndex   int            `json:"recipient_index"`
	Score            float64        `json:"score"`
	DonorCountry     domain.Country `json:"donor_country"`
	RecipientCountry domain.Country `json:"recipient_country"`
}

// Round is an ordered cycle or chain of transplants.
type Round struct {
	Kind        RoundKind    `json:"kind"`
	Transplants []Transplant `json:"transplants"`
}

// Length returns the number of transplants.
func (r Round) Length() int { return len(r.Transplants) }

// Score sums the transplant scores.
func (r Round) Score() float64 {
	var total float64
	for _, t := range r.Transplants {
		total += t.Score
	}
	return total
}

// CountryCount counts distinct donor and recipient countries.
func (r Round) CountryCount() int {
	seen := make(map[domain.Country]struct{}, 2*len(r.Transplants))
	for _, t := range r.Transplants {
		seen[t.DonorCountry] = struct{}{}
		seen[t.RecipientCountry] = struct{}{}
	}
	return len(seen)
}

// ContainsRecipient reports whether the round transplants into the recipient.
func (r Round) ContainsRecipient(id int64) bool {
	for _, t := range r.Transplants {
		if t.RecipientID == id {
			return true
		}
	}
	return false
}

// ContainsDonor reports whether the donor donates in this round.
func (r Round) ContainsDonor(id int64) bool {
	for _, t := range r.Transplants {
		if t.DonorID == id {
			return true
		}
	}
	return false
}

// Matching is a set of pairwise disjoint rounds with its aggregate score and rank.
type Matching struct {
	Rounds []Round `json:"rounds"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`

	order int // discovery order, tie breaker
}

// NewMatching computes the aggregate score of rounds.
func NewMatching(rounds []Round) Matching {
	m := Matching{Rounds: rounds}
	for _, r := range rounds {
		m.Score += r.Score()
	}
	return m
}

// TransplantCount returns the number of transplants over all rounds.
func (m Matching) TransplantCount() int {
	n := 0
	for _, r := range m.Rounds {
		n += r.Length()
	}
	return n
}

// Cycles returns the cycle rounds.
func (m Matching) Cycles() []Round {
	return m.roundsOf(RoundCycle)
}

// Chains returns the chain rounds.
func (m Matching) Chains() []Round {
	return m.roundsOf(RoundChain)
}

func (m Matching) roundsOf(kind RoundKind) []Round {
	var out []Round
	for _, r := range m.Rounds {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Transplants flattens the rounds into one list.
func (m Matching) Transplants() []Transplant {
	out := make([]Transplant, 0, m.TransplantCount())
	for _, r := range m.Rounds {
		out = append(out, r.Transplants...)
	}
	return out
}

// Result is the outcome of one solve.
type Result struct {
	Matchings           []Matching      `json:"matchings"`
	ScoreMatrix         *scoring.Matrix `json:"score_matrix"`
	DonorIDs            []int64         `json:"donor_db_ids"`     // matrix row order
	RecipientIDs        []int64         `json:"recipient_db_ids"` // matrix column order
	AllResultsFound     bool            `json:"all_results_found"`
	FoundMatchingsCount *int            `json:"found_matchings_count"`
}

// ForViewer returns a shallow copy holding at most n top matchings.
func (r *Result) ForViewer(n int) *Result {
	out := *r
	if n >= 0 && n < len(r.Matchings) {
		out.Matchings = slices.Clone(r.Matchings[:n])
	}
	return &out
}
