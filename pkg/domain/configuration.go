package domain

import (
	"fmt"
	"math"
	"slices"

	"txmatching/pkg/apperror"
)

// ForbiddenCountryCombination запрещённое направление трансплантации между странами
type ForbiddenCountryCombination struct {
	DonorCountry     Country `json:"donor_country"`
	RecipientCountry Country `json:"recipient_country"`
}

// ManualDonorRecipientScore ручная оценка пары донор-реципиент
type ManualDonorRecipientScore struct {
	DonorID     int64   `json:"donor_db_id"`
	RecipientID int64   `json:"recipient_db_id"`
	Score       float64 `json:"score"`
}

// DefaultForbiddenCountryCombinations запреты по умолчанию
func DefaultForbiddenCountryCombinations() []ForbiddenCountryCombination {
	return []ForbiddenCountryCombination{
		{DonorCountry: CountryAUT, RecipientCountry: CountryIL},
		{DonorCountry: CountryIL, RecipientCountry: CountryAUT},
	}
}

// Configuration параметры расчёта. Значение создаётся вызывающей стороной и после
// этого не изменяется; методы возвращают копии.
type Configuration struct {
	ScorerConstructorName string `json:"scorer_constructor_name"`
	SolverConstructorName string `json:"solver_constructor_name"`

	RequireCompatibleBloodGroup                        bool    `json:"require_compatible_blood_group"`
	MinimumTotalScore                                  float64 `json:"minimum_total_score"`
	MaximumTotalScore                                  float64 `json:"maximum_total_score"`
	RequireBetterMatchInCompatibilityIndex             bool    `json:"require_better_match_in_compatibility_index"`
	RequireBetterMatchInCompatibilityIndexOrBloodGroup bool    `json:"require_better_match_in_compatibility_index_or_blood_group"`
	BloodGroupCompatibilityBonus                       float64 `json:"blood_group_compatibility_bonus"`
	UseBinaryScoring                                   bool    `json:"use_binary_scoring"`

	MaxCycleLength                      int     `json:"max_cycle_length"`
	MaxSequenceLength                   int     `json:"max_sequence_length"`
	MaxNumberOfDistinctCountriesInRound int     `json:"max_number_of_distinct_countries_in_round"`
	RequiredPatientDBIDs                []int64 `json:"required_patient_db_ids"`

	ForbiddenCountryCombinations []ForbiddenCountryCombination `json:"forbidden_country_combinations"`
	ManualDonorRecipientScores   []ManualDonorRecipientScore   `json:"manual_donor_recipient_scores"`

	MaxMatchingsToShowToViewer       int `json:"max_matchings_to_show_to_viewer"`
	MaxNumberOfMatchings             int `json:"max_number_of_matchings"`
	MaxMatchingsInAllSolutionsSolver int `json:"max_matchings_in_all_solutions_solver"`
}

// DefaultConfiguration возвращает конфигурацию со значениями по умолчанию
func DefaultConfiguration() Configuration {
	return Configuration{
		ScorerConstructorName:               ScorerHLAAdditive,
		SolverConstructorName:               SolverAllSolutions,
		MinimumTotalScore:                   DefaultMinimumTotalScore,
		MaximumTotalScore:                   DefaultMaximumTotalScore,
		MaxCycleLength:                      DefaultMaxCycleLength,
		MaxSequenceLength:                   DefaultMaxSequenceLength,
		MaxNumberOfDistinctCountriesInRound: DefaultMaxNumberOfDistinctCountriesInRound,
		RequiredPatientDBIDs:                []int64{},
		ForbiddenCountryCombinations:        DefaultForbiddenCountryCombinations(),
		ManualDonorRecipientScores:          []ManualDonorRecipientScore{},
		MaxMatchingsToShowToViewer:          DefaultMaxMatchingsToShowToViewer,
		MaxNumberOfMatchings:                DefaultMaxNumberOfMatchings,
		MaxMatchingsInAllSolutionsSolver:    DefaultMaxMatchingsInAllSolutionsSolver,
	}
}

// Clone возвращает глубокую копию
func (c Configuration) Clone() Configuration {
	c.RequiredPatientDBIDs = slices.Clone(c.RequiredPatientDBIDs)
	c.ForbiddenCountryCombinations = slices.Clone(c.ForbiddenCountryCombinations)
	c.ManualDonorRecipientScores = slices.Clone(c.ManualDonorRecipientScores)
	return c
}

// IsSupported сообщает, выбрана ли поддерживаемая пара scorer/solver
func (c Configuration) IsSupported() bool {
	return c.ScorerConstructorName == ScorerHLAAdditive && c.SolverConstructorName == SolverAllSolutions
}

// Validate проверяет конфигурацию
func (c Configuration) Validate() error {
	v := apperror.NewValidationErrors()

	if c.ScorerConstructorName == "" {
		v.AddErrorWithField(apperror.CodeInvalidConfiguration, "scorer is required", "scorer_constructor_name")
	}
	if c.SolverConstructorName == "" {
		v.AddErrorWithField(apperror.CodeInvalidConfiguration, "solver is required", "solver_constructor_name")
	}

	// NaN и ±Inf не сериализуются в JSON и ломают сравнение конфигураций
	finite := true
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"minimum_total_score", c.MinimumTotalScore},
		{"maximum_total_score", c.MaximumTotalScore},
		{"blood_group_compatibility_bonus", c.BloodGroupCompatibilityBonus},
	} {
		if !isFinite(f.value) {
			finite = false
			v.AddErrorWithField(apperror.CodeInvalidConfiguration, fmt.Sprintf("must be finite, got %v", f.value), f.name)
		}
	}
	if finite && c.MaximumTotalScore < c.MinimumTotalScore {
		v.AddErrorWithField(apperror.CodeInvalidConfiguration,
			fmt.Sprintf("must be >= minimum_total_score (%v), got %v", c.MinimumTotalScore, c.MaximumTotalScore),
			"maximum_total_score")
	}
	if c.BloodGroupCompatibilityBonus < 0 {
		v.AddErrorWithField(apperror.CodeInvalidConfiguration, "must be non-negative", "blood_group_compatibility_bonus")
	}

	positive := []struct {
		name  string
		value int
	}{
		{"max_cycle_length", c.MaxCycleLength},
		{"max_sequence_length", c.MaxSequenceLength},
		{"max_number_of_distinct_countries_in_round", c.MaxNumberOfDistinctCountriesInRound},
		{"max_number_of_matchings", c.MaxNumberOfMatchings},
		{"max_matchings_in_all_solutions_solver", c.MaxMatchingsInAllSolutionsSolver},
	}
	for _, f := range positive {
		if f.value <= 0 {
			v.AddErrorWithField(apperror.CodeInvalidConfiguration, fmt.Sprintf("must be positive, got %d", f.value), f.name)
		}
	}
	if c.MaxMatchingsToShowToViewer < 0 {
		v.AddErrorWithField(apperror.CodeInvalidConfiguration, "must be non-negative", "max_matchings_to_show_to_viewer")
	}

	seen := make(map[[2]int64]struct{}, len(c.ManualDonorRecipientScores))
	for _, m := range c.ManualDonorRecipientScores {
		if !validManualScore(m.Score) {
			v.AddErrorWithField(apperror.CodeInvalidConfiguration,
				fmt.Sprintf("score %v for donor %d and recipient %d must be finite and non-negative, or %v to forbid the transplant",
					m.Score, m.DonorID, m.RecipientID, InfeasibleScore),
				"manual_donor_recipient_scores")
		}
		key := [2]int64{m.DonorID, m.RecipientID}
		if _, dup := seen[key]; dup {
			v.AddErrorWithField(apperror.CodeInvalidConfiguration,
				fmt.Sprintf("duplicate manual score for donor %d and recipient %d", m.DonorID, m.RecipientID),
				"manual_donor_recipient_scores")
		}
		seen[key] = struct{}{}
	}

	return v.Err(apperror.CodeInvalidConfiguration, "configuration is invalid")
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// validManualScore: ручная оценка не может совпасть с OriginalPairScore,
// иначе матрица покажет ложную исходную пару. InfeasibleScore допустим как запрет.
func validManualScore(score float64) bool {
	return score == InfeasibleScore || (isFinite(score) && score >= 0)
}

// ManualScores строит индекс ручных оценок по паре (донор, реципиент)
func (c Configuration) ManualScores() map[[2]int64]float64 {
	out := make(map[[2]int64]float64, len(c.ManualDonorRecipientScores))
	for _, m := range c.ManualDonorRecipientScores {
		out[[2]int64{m.DonorID, m.RecipientID}] = m.Score
	}
	return out
}

// IsForbidden проверяет запрет трансплантации между странами
func (c Configuration) IsForbidden(donor, recipient Country) bool {
	for _, f := range c.ForbiddenCountryCombinations {
		if f.DonorCountry == donor && f.RecipientCountry == recipient {
			return true
		}
	}
	return false
}
