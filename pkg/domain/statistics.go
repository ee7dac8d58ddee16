package domain

import (
	"maps"
	"slices"
)

// PoolStatistics сводка по пулу пациентов
type PoolStatistics struct {
	Donors             int
	Recipients         int
	PairedDonors       int
	BridgingDonors     int
	NonDirectedDonors  int
	UnpairedRecipients int // реципиенты без доноров в пуле
	DonorsByCountry    map[Country]int
	RecipientsByBlood  map[BloodGroup]int
}

// Countries возвращает страны доноров в отсортированном порядке
func (s *PoolStatistics) Countries() []Country {
	return slices.Sorted(maps.Keys(s.DonorsByCountry))
}

// ChainStarters количество доноров, которые могут начинать цепочку
func (s *PoolStatistics) ChainStarters() int {
	return s.BridgingDonors + s.NonDirectedDonors
}

// CalculatePoolStatistics вычисляет статистику пула
func CalculatePoolStatistics(p *Pool) *PoolStatistics {
	stats := &PoolStatistics{
		Donors:            len(p.Donors),
		Recipients:        len(p.Recipients),
		DonorsByCountry:   make(map[Country]int),
		RecipientsByBlood: make(map[BloodGroup]int),
	}

	for _, d := range p.Donors {
		switch d.Kind {
		case DonorKindPaired:
			stats.PairedDonors++
		case DonorKindBridging:
			stats.BridgingDonors++
		case DonorKindNonDirected:
			stats.NonDirectedDonors++
		}
		stats.DonorsByCountry[d.Country]++
	}

	donorIndex := p.DonorIndex()
	for i := range p.Recipients {
		r := &p.Recipients[i]
		stats.RecipientsByBlood[r.BloodGroup]++
		if len(p.OriginalDonors(r, donorIndex)) == 0 {
			stats.UnpairedRecipients++
		}
	}

	return stats
}
