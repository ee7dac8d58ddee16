package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	AttrStage   = "matching.stage"
	AttrSolveID = "matching.solve_id"

	// Пул
	AttrDonors     = "pool.donors"
	AttrRecipients = "pool.recipients"

	// Перебор
	AttrCycles        = "paths.cycles"
	AttrSequences     = "paths.sequences"
	AttrRetainedPaths = "paths.retained"

	// Ранжирование
	AttrCandidates      = "ranking.candidates"
	AttrMatchings       = "ranking.matchings"
	AttrAllResultsFound = "ranking.all_results_found"

	// Переиспользование
	AttrReuseSource = "reuse.source"
)

// PoolAttributes возвращает атрибуты пула пациентов
func PoolAttributes(donors, recipients int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrDonors, donors),
		attribute.Int(AttrRecipients, recipients),
	}
}

// PathAttributes возвращает атрибуты перебора путей
func PathAttributes(cycles, sequences, retained int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrCycles, cycles),
		attribute.Int(AttrSequences, sequences),
		attribute.Int(AttrRetainedPaths, retained),
	}
}

// RankingAttributes возвращает атрибуты ранжирования
func RankingAttributes(candidates, matchings int, allFound bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrCandidates, candidates),
		attribute.Int(AttrMatchings, matchings),
		attribute.Bool(AttrAllResultsFound, allFound),
	}
}
