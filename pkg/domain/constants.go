package domain

import "math"

// Математические константы
const (
	Epsilon = 1e-9
)

// Значения ячеек матрицы совместимости
const (
	// OriginalPairScore отмечает собственного реципиента донора (не новая трансплантация)
	OriginalPairScore = -2.0
	// InfeasibleScore отмечает невозможную трансплантацию
	InfeasibleScore = -1.0
)

// Поддерживаемые scorer/solver
const (
	ScorerHLAAdditive  = "HLAAdditiveScorer"
	SolverAllSolutions = "AllSolutionsSolver"
)

// Значения конфигурации по умолчанию
const (
	DefaultMinimumTotalScore                   = 0.0
	DefaultMaximumTotalScore                   = 27.0
	DefaultMaxCycleLength                      = 100
	DefaultMaxSequenceLength                   = 100
	DefaultMaxNumberOfDistinctCountriesInRound = 100
	DefaultMaxMatchingsToShowToViewer          = 10
	DefaultMaxNumberOfMatchings                = 1000
	DefaultMaxMatchingsInAllSolutionsSolver    = 10_000_000
)

// IsFeasibleScore проверяет, что ячейка матрицы описывает возможную новую трансплантацию.
// Отрицательные значения (включая -Inf бинарного режима) и NaN недопустимы.
func IsFeasibleScore(score float64) bool {
	return !math.IsNaN(score) && score >= 0
}

// FloatEquals сравнивает два float64 с учётом Epsilon
func FloatEquals(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) < Epsilon
}

// FloatGreater проверяет a > b с учётом Epsilon
func FloatGreater(a, b float64) bool {
	return a > b+Epsilon
}

// FloatLess проверяет a < b с учётом Epsilon
func FloatLess(a, b float64) bool {
	return a < b-Epsilon
}
