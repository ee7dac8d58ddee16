package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmatching/pkg/apperror"
)

func pairedPool() Pool {
	return Pool{
		Donors: []Donor{
			{Patient: Patient{ID: 1, BloodGroup: BloodGroupA}, Kind: DonorKindPaired, RelatedRecipientID: 10},
			{Patient: Patient{ID: 2, BloodGroup: BloodGroupZero}, Kind: DonorKindNonDirected},
			{Patient: Patient{ID: 3, BloodGroup: BloodGroupB}, Kind: DonorKindPaired, RelatedRecipientID: 11},
		},
		Recipients: []Recipient{
			{Patient: Patient{ID: 11, BloodGroup: BloodGroupB}, RelatedDonorIDs: []int64{3}},
			{Patient: Patient{ID: 10, BloodGroup: BloodGroupA}, RelatedDonorIDs: []int64{1}},
		},
	}
}

func TestPool_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *Pool)
		wantErr  bool
		warnings bool
	}{
		{
			name:   "valid",
			mutate: func(p *Pool) {},
		},
		{
			name: "duplicate donor",
			mutate: func(p *Pool) {
				p.Donors = append(p.Donors, p.Donors[0])
			},
			wantErr: true,
		},
		{
			name: "unknown blood group",
			mutate: func(p *Pool) {
				p.Recipients[0].BloodGroup = "Q"
			},
			wantErr: true,
		},
		{
			name: "recipient does not list donor",
			mutate: func(p *Pool) {
				p.Recipients[1].RelatedDonorIDs = nil
			},
			wantErr: true,
		},
		{
			name: "non-directed donor with recipient",
			mutate: func(p *Pool) {
				p.Donors[1].RelatedRecipientID = 10
			},
			wantErr: true,
		},
		{
			name: "recipient outside pool is a warning",
			mutate: func(p *Pool) {
				p.Recipients = p.Recipients[:1]
			},
			warnings: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pairedPool()
			tt.mutate(&p)

			v, err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.Is(err, apperror.CodeInvalidPatient))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.warnings, v.HasWarnings())
		})
	}
}

func TestPool_Indexes(t *testing.T) {
	p := pairedPool()

	donorIdx := p.DonorIndex()
	assert.Equal(t, 2, donorIdx[3])
	assert.Equal(t, 0, p.RecipientIndex()[11])

	originals := p.OriginalDonors(&p.Recipients[1], donorIdx)
	require.Len(t, originals, 1)
	assert.Equal(t, int64(1), originals[0].ID)
}

func TestPool_PatientSet(t *testing.T) {
	p := pairedPool()
	set := p.PatientSet()

	assert.Equal(t, []int64{1, 2, 3}, set.DonorIDs)
	assert.Equal(t, []int64{10, 11}, set.RecipientIDs)

	q := pairedPool()
	q.Donors[0], q.Donors[2] = q.Donors[2], q.Donors[0]
	assert.True(t, set.Equal(q.PatientSet()))

	q.Recipients = q.Recipients[:1]
	assert.False(t, set.Equal(q.PatientSet()))
}
