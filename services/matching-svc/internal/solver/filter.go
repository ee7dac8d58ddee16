package solver

import (
	"txmatching/pkg/domain"
)

// Keep reports whether a matching satisfies the hard constraints of cfg.
// It only reads max_cycle_length, max_sequence_length,
// max_number_of_distinct_countries_in_round and required_patient_db_ids.
// Required ids are recipient database ids.
func Keep(m Matching, cfg domain.Configuration) bool {
	for _, r := range m.Rounds {
		switch r.Kind {
		case RoundCycle:
			if r.Length() > cfg.MaxCycleLength {
				return false
			}
		case RoundChain:
			if r.Length() > cfg.MaxSequenceLength {
				return false
			}
		}
		if r.CountryCount() > cfg.MaxNumberOfDistinctCountriesInRound {
			return false
		}
	}

	for _, id := range cfg.RequiredPatientDBIDs {
		found := false
		for _, r := range m.Rounds {
			if r.ContainsRecipient(id) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
