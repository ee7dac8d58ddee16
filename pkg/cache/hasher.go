package cache

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"txmatching/pkg/domain"
)

// MatchingKeyPrefix префикс ключей готовых результатов
const MatchingKeyPrefix = "matching:"

// ConfigHash вычисляет хеш конфигурации расчёта.
// max_matchings_to_show_to_viewer не влияет на результат и в хеш не входит,
// порядок элементов в списках тоже не важен. Конфигурацию, которую нельзя
// сериализовать (NaN, ±Inf), хешировать отказывается.
func ConfigHash(cfg domain.Configuration) (string, error) {
	c := cfg.Clone()
	c.MaxMatchingsToShowToViewer = 0

	slices.Sort(c.RequiredPatientDBIDs)
	slices.SortFunc(c.ForbiddenCountryCombinations, func(a, b domain.ForbiddenCountryCombination) int {
		return cmp.Or(
			cmp.Compare(a.DonorCountry, b.DonorCountry),
			cmp.Compare(a.RecipientCountry, b.RecipientCountry),
		)
	})
	slices.SortFunc(c.ManualDonorRecipientScores, func(a, b domain.ManualDonorRecipientScore) int {
		return cmp.Or(
			cmp.Compare(a.DonorID, b.DonorID),
			cmp.Compare(a.RecipientID, b.RecipientID),
			cmp.Compare(a.Score, b.Score),
		)
	})

	// nil и пустой срез должны давать один и тот же хеш
	if c.RequiredPatientDBIDs == nil {
		c.RequiredPatientDBIDs = []int64{}
	}
	if c.ForbiddenCountryCombinations == nil {
		c.ForbiddenCountryCombinations = []domain.ForbiddenCountryCombination{}
	}
	if c.ManualDonorRecipientScores == nil {
		c.ManualDonorRecipientScores = []domain.ManualDonorRecipientScore{}
	}

	return hashJSON(c)
}

// PatientSetHash вычисляет хеш набора пациентов
func PatientSetHash(ps domain.PatientSet) string {
	donors := slices.Sorted(slices.Values(ps.DonorIDs))
	recipients := slices.Sorted(slices.Values(ps.RecipientIDs))

	var data []byte
	for _, id := range donors {
		data = fmt.Appendf(data, "d:%d;", id)
	}
	for _, id := range recipients {
		data = fmt.Appendf(data, "r:%d;", id)
	}
	return ShortHash(data)
}

// BuildMatchingKey строит ключ кэша для результата расчёта
func BuildMatchingKey(configHash, patientSetHash string) string {
	return fmt.Sprintf("%s%s:%s", MatchingKeyPrefix, configHash, patientSetHash)
}

func hashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash configuration: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16]), nil
}

// QuickHash быстрый хеш для произвольных данных
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
