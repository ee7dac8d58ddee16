package domain

import (
	"cmp"
	"slices"

	"txmatching/pkg/apperror"
)

// GivesSupersetOfSolutions решает, можно ли переиспользовать результат, посчитанный
// с lessStrict, для запроса с moreStrict на том же наборе пациентов.
//
// Сохранённый результат уже отфильтрован и обрезан до top-K, поэтому сравнение
// консервативное: совпадать должны все параметры, влияющие на результат
// (в том числе minimum_total_score, max_number_of_distinct_countries_in_round и
// manual_donor_recipient_scores). Ослабленный числовой лимит тоже даёт false.
// Отличаться может только max_matchings_to_show_to_viewer.
func GivesSupersetOfSolutions(lessStrict, moreStrict Configuration) (bool, error) {
	if err := checkSupported(lessStrict); err != nil {
		return false, err
	}
	if err := checkSupported(moreStrict); err != nil {
		return false, err
	}

	for _, p := range breakingParameters {
		if !p.equal(lessStrict, moreStrict) {
			return false, nil
		}
	}
	return true, nil
}

func checkSupported(c Configuration) error {
	if c.IsSupported() {
		return nil
	}
	return apperror.Newf(apperror.CodeUnsupportedCombination,
		"unsupported combination (%s, %s) of (scorer, solver)", c.ScorerConstructorName, c.SolverConstructorName).
		WithDetails("scorer", c.ScorerConstructorName).
		WithDetails("solver", c.SolverConstructorName)
}

type breakingParameter struct {
	name  string
	equal func(a, b Configuration) bool
}

// BreakingParameterNames возвращает имена параметров, по которым сравниваются конфигурации
func BreakingParameterNames() []string {
	names := make([]string, len(breakingParameters))
	for i, p := range breakingParameters {
		names[i] = p.name
	}
	return names
}

var breakingParameters = []breakingParameter{
	{"minimum_total_score", func(a, b Configuration) bool { return a.MinimumTotalScore == b.MinimumTotalScore }},
	{"max_number_of_distinct_countries_in_round", func(a, b Configuration) bool {
		return a.MaxNumberOfDistinctCountriesInRound == b.MaxNumberOfDistinctCountriesInRound
	}},
	{"manual_donor_recipient_scores", func(a, b Configuration) bool {
		return sameSet(a.ManualDonorRecipientScores, b.ManualDonorRecipientScores, compareManualScores)
	}},
	{"maximum_total_score", func(a, b Configuration) bool { return a.MaximumTotalScore == b.MaximumTotalScore }},
	{"require_compatible_blood_group", func(a, b Configuration) bool {
		return a.RequireCompatibleBloodGroup == b.RequireCompatibleBloodGroup
	}},
	{"require_better_match_in_compatibility_index", func(a, b Configuration) bool {
		return a.RequireBetterMatchInCompatibilityIndex == b.RequireBetterMatchInCompatibilityIndex
	}},
	{"require_better_match_in_compatibility_index_or_blood_group", func(a, b Configuration) bool {
		return a.RequireBetterMatchInCompatibilityIndexOrBloodGroup == b.RequireBetterMatchInCompatibilityIndexOrBloodGroup
	}},
	{"blood_group_compatibility_bonus", func(a, b Configuration) bool {
		return a.BloodGroupCompatibilityBonus == b.BloodGroupCompatibilityBonus
	}},
	{"use_binary_scoring", func(a, b Configuration) bool { return a.UseBinaryScoring == b.UseBinaryScoring }},
	{"max_cycle_length", func(a, b Configuration) bool { return a.MaxCycleLength == b.MaxCycleLength }},
	{"max_sequence_length", func(a, b Configuration) bool { return a.MaxSequenceLength == b.MaxSequenceLength }},
	{"required_patient_db_ids", func(a, b Configuration) bool {
		return sameSet(a.RequiredPatientDBIDs, b.RequiredPatientDBIDs, cmp.Compare[int64])
	}},
	{"forbidden_country_combinations", func(a, b Configuration) bool {
		return sameSet(a.ForbiddenCountryCombinations, b.ForbiddenCountryCombinations, compareForbidden)
	}},
	{"max_number_of_matchings", func(a, b Configuration) bool { return a.MaxNumberOfMatchings == b.MaxNumberOfMatchings }},
	{"max_matchings_in_all_solutions_solver", func(a, b Configuration) bool {
		return a.MaxMatchingsInAllSolutionsSolver == b.MaxMatchingsInAllSolutionsSolver
	}},
}

// sameSet сравнивает срезы без учёта порядка
func sameSet[T any](a, b []T, compare func(x, y T) int) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.SortFunc(as, compare)
	slices.SortFunc(bs, compare)
	for i := range as {
		if compare(as[i], bs[i]) != 0 {
			return false
		}
	}
	return true
}

func compareManualScores(x, y ManualDonorRecipientScore) int {
	return cmp.Or(
		cmp.Compare(x.DonorID, y.DonorID),
		cmp.Compare(x.RecipientID, y.RecipientID),
		cmp.Compare(x.Score, y.Score),
	)
}

func compareForbidden(x, y ForbiddenCountryCombination) int {
	return cmp.Or(
		cmp.Compare(x.DonorCountry, y.DonorCountry),
		cmp.Compare(x.RecipientCountry, y.RecipientCountry),
	)
}
