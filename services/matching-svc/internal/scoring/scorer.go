// Package scoring computes donor/recipient transplant scores and the
// donor x recipient score matrix.
package scoring

import (
	"math"

	"txmatching/pkg/apperror"
	"txmatching/pkg/domain"
	"txmatching/services/matching-svc/internal/hla"
)

// Scorer is the HLA additive scorer. It is immutable and safe for concurrent use.
type Scorer struct {
	cfg    domain.Configuration
	manual map[[2]int64]float64
}

// NewScorer builds a scorer for cfg. Only the HLA additive scorer is supported.
func NewScorer(cfg domain.Configuration) (*Scorer, error) {
	if cfg.ScorerConstructorName != domain.ScorerHLAAdditive {
		return nil, apperror.Newf(apperror.CodeUnsupportedCombination,
			"unsupported scorer %q", cfg.ScorerConstructorName).
			WithDetails("scorer", cfg.ScorerConstructorName)
	}
	return &Scorer{
		cfg:    cfg.Clone(),
		manual: cfg.ManualScores(),
	}, nil
}

// Score scores a donor/recipient pair including the original-pair sentinel.
// originalDonors are the recipient's own donors present in the pool.
func (s *Scorer) Score(donor *domain.Donor, recipient *domain.Recipient, originalDonors []*domain.Donor) float64 {
	if recipient.IsRelatedDonor(donor.ID) {
		return domain.OriginalPairScore
	}
	return s.ScoreTransplant(donor, recipient, originalDonors)
}

// ScoreTransplant scores a transplant that is not an original pair.
// A manual override is returned verbatim.
func (s *Scorer) ScoreTransplant(donor *domain.Donor, recipient *domain.Recipient, originalDonors []*domain.Donor) float64 {
	if manual, ok := s.manual[[2]int64{donor.ID, recipient.ID}]; ok {
		return manual
	}

	ci := hla.CompatibilityIndex(donor.HLA, recipient.HLA)
	bloodOK := bloodCompatible(donor, recipient)

	score := ci
	if bloodOK {
		score += s.cfg.BloodGroupCompatibilityBonus
	}

	feasible := s.feasible(donor, recipient, originalDonors, ci, bloodOK, score)

	if s.cfg.UseBinaryScoring {
		if feasible && score <= s.cfg.MaximumTotalScore+domain.Epsilon {
			return 1.0
		}
		return math.Inf(-1)
	}
	if !feasible {
		return domain.InfeasibleScore
	}
	return score
}

func (s *Scorer) feasible(donor *domain.Donor, recipient *domain.Recipient, originalDonors []*domain.Donor,
	ci float64, bloodOK bool, score float64) bool {
	if s.cfg.IsForbidden(donor.Country, recipient.Country) {
		return false
	}
	if s.cfg.RequireCompatibleBloodGroup && !bloodOK {
		return false
	}
	if domain.FloatLess(score, s.cfg.MinimumTotalScore) {
		return false
	}

	if s.cfg.RequireBetterMatchInCompatibilityIndex || s.cfg.RequireBetterMatchInCompatibilityIndexOrBloodGroup {
		better := betterThanOriginals(ci, recipient, originalDonors)
		if s.cfg.RequireBetterMatchInCompatibilityIndexOrBloodGroup {
			better = better || bloodBetterThanOriginals(bloodOK, recipient, originalDonors)
		}
		if !better {
			return false
		}
	}
	return true
}

// betterThanOriginals reports whether ci beats every original donor's index.
// A recipient without original donors in the pool has nothing to beat.
func betterThanOriginals(ci float64, recipient *domain.Recipient, originalDonors []*domain.Donor) bool {
	for _, od := range originalDonors {
		if !domain.FloatGreater(ci, hla.CompatibilityIndex(od.HLA, recipient.HLA)) {
			return false
		}
	}
	return true
}

// bloodBetterThanOriginals: the new donor is blood compatible while none of the originals are.
func bloodBetterThanOriginals(bloodOK bool, recipient *domain.Recipient, originalDonors []*domain.Donor) bool {
	if !bloodOK {
		return false
	}
	for _, od := range originalDonors {
		if bloodCompatible(od, recipient) {
			return false
		}
	}
	return true
}

// bloodCompatible uses the recipient's acceptable blood groups and falls back
// to AB0 rules when none are listed.
func bloodCompatible(donor *domain.Donor, recipient *domain.Recipient) bool {
	if len(recipient.AcceptableBloodGroups) == 0 {
		return domain.CompatibleBlood(donor.BloodGroup, recipient.BloodGroup)
	}
	return recipient.AcceptsBloodGroup(donor.BloodGroup)
}
