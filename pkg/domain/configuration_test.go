package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmatching/pkg/apperror"
)

func TestDefaultConfiguration(t *testing.T) {
	c := DefaultConfiguration()

	assert.True(t, c.IsSupported())
	assert.NoError(t, c.Validate())
	assert.Equal(t, 27.0, c.MaximumTotalScore)
	assert.Equal(t, 100, c.MaxCycleLength)
	assert.Equal(t, 10, c.MaxMatchingsToShowToViewer)
	assert.Equal(t, 1000, c.MaxNumberOfMatchings)
	assert.Equal(t, 10_000_000, c.MaxMatchingsInAllSolutionsSolver)
	assert.True(t, c.IsForbidden(CountryAUT, CountryIL))
	assert.True(t, c.IsForbidden(CountryIL, CountryAUT))
	assert.False(t, c.IsForbidden(CountryCZE, CountryAUT))
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
		field  string
	}{
		{"zero cycle length", func(c *Configuration) { c.MaxCycleLength = 0 }, "max_cycle_length"},
		{"negative bonus", func(c *Configuration) { c.BloodGroupCompatibilityBonus = -1 }, "blood_group_compatibility_bonus"},
		{"maximum below minimum", func(c *Configuration) { c.MinimumTotalScore = 30 }, "maximum_total_score"},
		{"no top-k", func(c *Configuration) { c.MaxNumberOfMatchings = 0 }, "max_number_of_matchings"},
		{"uncapped maximum", func(c *Configuration) { c.MaximumTotalScore = math.Inf(1) }, "maximum_total_score"},
		{"NaN minimum", func(c *Configuration) { c.MinimumTotalScore = math.NaN() }, "minimum_total_score"},
		{"infinite bonus", func(c *Configuration) { c.BloodGroupCompatibilityBonus = math.Inf(-1) }, "blood_group_compatibility_bonus"},
		{"manual score marks original pair", func(c *Configuration) {
			c.ManualDonorRecipientScores = []ManualDonorRecipientScore{{DonorID: 1, RecipientID: 2, Score: OriginalPairScore}}
		}, "manual_donor_recipient_scores"},
		{"manual score negative", func(c *Configuration) {
			c.ManualDonorRecipientScores = []ManualDonorRecipientScore{{DonorID: 1, RecipientID: 2, Score: -0.5}}
		}, "manual_donor_recipient_scores"},
		{"manual score NaN", func(c *Configuration) {
			c.ManualDonorRecipientScores = []ManualDonorRecipientScore{{DonorID: 1, RecipientID: 2, Score: math.NaN()}}
		}, "manual_donor_recipient_scores"},
		{"duplicate manual score", func(c *Configuration) {
			c.ManualDonorRecipientScores = []ManualDonorRecipientScore{
				{DonorID: 1, RecipientID: 2, Score: 3},
				{DonorID: 1, RecipientID: 2, Score: 4},
			}
		}, "manual_donor_recipient_scores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfiguration()
			tt.mutate(&c)

			err := c.Validate()
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeInvalidConfiguration))

			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			cause, ok := appErr.Cause.(*apperror.Error)
			require.True(t, ok)
			assert.Equal(t, tt.field, cause.Field)
		})
	}
}

func TestConfiguration_ManualInfeasibleAllowed(t *testing.T) {
	c := DefaultConfiguration()
	c.ManualDonorRecipientScores = []ManualDonorRecipientScore{
		{DonorID: 1, RecipientID: 2, Score: InfeasibleScore},
		{DonorID: 3, RecipientID: 4, Score: 0},
	}
	assert.NoError(t, c.Validate())
}

func TestConfiguration_CloneIsDeep(t *testing.T) {
	c := DefaultConfiguration()
	c.RequiredPatientDBIDs = []int64{1}

	clone := c.Clone()
	clone.RequiredPatientDBIDs[0] = 99
	clone.ForbiddenCountryCombinations[0].DonorCountry = CountryCZE

	assert.Equal(t, int64(1), c.RequiredPatientDBIDs[0])
	assert.Equal(t, CountryAUT, c.ForbiddenCountryCombinations[0].DonorCountry)
}

func TestConfiguration_ManualScores(t *testing.T) {
	c := DefaultConfiguration()
	c.ManualDonorRecipientScores = []ManualDonorRecipientScore{{DonorID: 4, RecipientID: 5, Score: 12.5}}

	scores := c.ManualScores()
	assert.Equal(t, 12.5, scores[[2]int64{4, 5}])
	_, ok := scores[[2]int64{5, 4}]
	assert.False(t, ok)
}
