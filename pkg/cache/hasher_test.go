package cache

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmatching/pkg/domain"
)

func configHash(t *testing.T, cfg domain.Configuration) string {
	t.Helper()
	h, err := ConfigHash(cfg)
	require.NoError(t, err)
	return h
}

func TestConfigHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		cfg := domain.DefaultConfiguration()
		assert.Equal(t, configHash(t, cfg), configHash(t, cfg.Clone()))
	})

	t.Run("viewer count is ignored", func(t *testing.T) {
		a := domain.DefaultConfiguration()
		b := domain.DefaultConfiguration()
		b.MaxMatchingsToShowToViewer = 3
		assert.Equal(t, configHash(t, a), configHash(t, b))
	})

	t.Run("list order is ignored", func(t *testing.T) {
		a := domain.DefaultConfiguration()
		a.RequiredPatientDBIDs = []int64{3, 1, 2}
		a.ManualDonorRecipientScores = []domain.ManualDonorRecipientScore{
			{DonorID: 2, RecipientID: 1, Score: 5},
			{DonorID: 1, RecipientID: 2, Score: 7},
		}
		b := a.Clone()
		b.RequiredPatientDBIDs = []int64{1, 2, 3}
		b.ManualDonorRecipientScores = []domain.ManualDonorRecipientScore{
			{DonorID: 1, RecipientID: 2, Score: 7},
			{DonorID: 2, RecipientID: 1, Score: 5},
		}
		b.ForbiddenCountryCombinations = []domain.ForbiddenCountryCombination{
			a.ForbiddenCountryCombinations[1], a.ForbiddenCountryCombinations[0],
		}
		assert.Equal(t, configHash(t, a), configHash(t, b))
	})

	t.Run("nil and empty lists are equal", func(t *testing.T) {
		a := domain.DefaultConfiguration()
		b := domain.DefaultConfiguration()
		b.RequiredPatientDBIDs = nil
		b.ManualDonorRecipientScores = nil
		assert.Equal(t, configHash(t, a), configHash(t, b))
	})

	t.Run("input is not mutated", func(t *testing.T) {
		cfg := domain.DefaultConfiguration()
		cfg.RequiredPatientDBIDs = []int64{3, 1}
		_ = configHash(t, cfg)
		assert.Equal(t, []int64{3, 1}, cfg.RequiredPatientDBIDs)
	})

	t.Run("non-finite scores are rejected", func(t *testing.T) {
		for name, v := range map[string]float64{"+Inf": math.Inf(1), "-Inf": math.Inf(-1), "NaN": math.NaN()} {
			cfg := domain.DefaultConfiguration()
			cfg.MaximumTotalScore = v
			_, err := ConfigHash(cfg)
			assert.Error(t, err, name)
		}
	})

	t.Run("result-affecting fields change the hash", func(t *testing.T) {
		base := domain.DefaultConfiguration()
		mutations := map[string]func(*domain.Configuration){
			"maximum_total_score":     func(c *domain.Configuration) { c.MaximumTotalScore = 20 },
			"use_binary_scoring":      func(c *domain.Configuration) { c.UseBinaryScoring = true },
			"max_cycle_length":        func(c *domain.Configuration) { c.MaxCycleLength = 3 },
			"required_patient_db_ids": func(c *domain.Configuration) { c.RequiredPatientDBIDs = []int64{1} },
			"max_number_of_matchings": func(c *domain.Configuration) { c.MaxNumberOfMatchings = 5 },
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				changed := base.Clone()
				mutate(&changed)
				assert.NotEqual(t, configHash(t, base), configHash(t, changed))
			})
		}
	})
}

func TestPatientSetHash(t *testing.T) {
	a := domain.PatientSet{DonorIDs: []int64{1, 2}, RecipientIDs: []int64{10}}
	b := domain.PatientSet{DonorIDs: []int64{2, 1}, RecipientIDs: []int64{10}}
	c := domain.PatientSet{DonorIDs: []int64{1}, RecipientIDs: []int64{2, 10}}

	assert.Equal(t, PatientSetHash(a), PatientSetHash(b))
	assert.NotEqual(t, PatientSetHash(a), PatientSetHash(c), "donor and recipient ids must not mix")
	assert.Len(t, PatientSetHash(a), 16)
}

func TestBuildMatchingKey(t *testing.T) {
	key := BuildMatchingKey("cfg", "ps")
	assert.Equal(t, "matching:cfg:ps", key)
	assert.True(t, strings.HasPrefix(key, MatchingKeyPrefix))
}

func TestQuickHash(t *testing.T) {
	data := []byte("test data")

	assert.Len(t, QuickHash(data), 64)
	assert.Equal(t, QuickHash(data), QuickHash(data))
	assert.NotEqual(t, QuickHash(data), QuickHash([]byte("other")))
}

func TestShortHash(t *testing.T) {
	data := []byte("test data")

	assert.Len(t, ShortHash(data), 16)
	assert.Equal(t, QuickHash(data)[:16], ShortHash(data))
}
