package hla

import (
	"txmatching/pkg/domain"
)

// MatchType is the quality of a single antigen match.
type MatchType int

const (
	MatchNone MatchType = iota
	MatchBroad
	MatchSplit
)

func (m MatchType) String() string {
	switch m {
	case MatchSplit:
		return "SPLIT"
	case MatchBroad:
		return "BROAD"
	default:
		return "NONE"
	}
}

// MaxMatchesPerGroup caps the number of matched antigens counted per locus.
const MaxMatchesPerGroup = 2

// groupWeights is the score of one matched antigen per locus.
var groupWeights = map[domain.HLAGroup]float64{
	domain.HLAGroupA:     1,
	domain.HLAGroupB:     3,
	domain.HLAGroupDRB1:  9,
	domain.HLAGroupOther: 0,
}

// Weight returns the per-match weight of a locus.
func Weight(g domain.HLAGroup) float64 {
	return groupWeights[g]
}

// MaxCompatibilityIndex is the index of a full match on every weighted locus.
func MaxCompatibilityIndex() float64 {
	var total float64
	for _, g := range domain.HLAGroups {
		total += MaxMatchesPerGroup * Weight(g)
	}
	return total
}

// Match is one donor antigen classified against the recipient typing.
type Match struct {
	Code string
	Type MatchType
}

// GroupScore is the detailed result for one locus. Matches follows the donor
// typing order, RecipientMatches the recipient typing order.
type GroupScore struct {
	Group            domain.HLAGroup
	Matches          []Match
	RecipientMatches []Match
	Index            float64
}

// DetailedScore classifies every donor antigen per locus.
//
// Exact code equality is a SPLIT match; equal broad antigens with different
// codes are a BROAD match. Recipient antigens are consumed one-to-one, split
// matches first, so a single recipient antigen never matches twice.
func DetailedScore(donor, recipient domain.HLATyping) []GroupScore {
	out := make([]GroupScore, 0, len(domain.HLAGroups))
	for _, g := range domain.HLAGroups {
		out = append(out, scoreGroup(g, donor.ByGroup(g), recipient.ByGroup(g)))
	}
	return out
}

func scoreGroup(g domain.HLAGroup, donor, recipient []domain.HLACode) GroupScore {
	matches := make([]Match, len(donor))
	// used[j] is the match type recipient antigen j was consumed by
	used := make([]MatchType, len(recipient))

	for i, d := range donor {
		matches[i] = Match{Code: d.Code, Type: MatchNone}
		for j, r := range recipient {
			if used[j] == MatchNone && r.Code == d.Code {
				used[j] = MatchSplit
				matches[i].Type = MatchSplit
				break
			}
		}
	}
	for i, d := range donor {
		if matches[i].Type != MatchNone {
			continue
		}
		for j, r := range recipient {
			if used[j] == MatchNone && r.Broad == d.Broad {
				used[j] = MatchBroad
				matches[i].Type = MatchBroad
				break
			}
		}
	}

	recipientMatches := make([]Match, len(recipient))
	for j, r := range recipient {
		recipientMatches[j] = Match{Code: r.Code, Type: used[j]}
	}

	matched := 0
	for _, m := range matches {
		if m.Type != MatchNone {
			matched++
		}
	}
	matched = min(matched, MaxMatchesPerGroup)

	return GroupScore{
		Group:            g,
		Matches:          matches,
		RecipientMatches: recipientMatches,
		Index:            float64(matched) * Weight(g),
	}
}

// CompatibilityIndex is the sum of the per-locus indices.
func CompatibilityIndex(donor, recipient domain.HLATyping) float64 {
	var total float64
	for _, gs := range DetailedScore(donor, recipient) {
		total += gs.Index
	}
	return total
}
