package domain

import (
	"fmt"
	"slices"

	"txmatching/pkg/apperror"
)

// Pool набор активных доноров и реципиентов одного расчёта.
// Порядок срезов задаёт индексы строк и столбцов матрицы совместимости.
type Pool struct {
	Donors     []Donor
	Recipients []Recipient
}

// Validate проверяет целостность пула.
// Ошибки: дубликаты, неизвестные группы крови, несогласованные пары.
// Предупреждения: ссылки на пациентов вне пула (такие доноры не участвуют в обменах).
func (p *Pool) Validate() (*apperror.ValidationErrors, error) {
	v := apperror.NewValidationErrors()

	recipients := make(map[int64]*Recipient, len(p.Recipients))
	for i := range p.Recipients {
		r := &p.Recipients[i]
		if r.ID <= 0 {
			v.AddErrorWithField(apperror.CodeInvalidPatient, fmt.Sprintf("recipient #%d has non-positive id", i), "recipients.id")
			continue
		}
		if _, dup := recipients[r.ID]; dup {
			v.AddError(apperror.CodeDuplicatePatient, fmt.Sprintf("recipient %d is listed twice", r.ID))
			continue
		}
		recipients[r.ID] = r
		if !r.BloodGroup.Valid() {
			v.AddError(apperror.CodeInvalidPatient, fmt.Sprintf("recipient %d has unknown blood group %q", r.ID, r.BloodGroup))
		}
		for _, g := range r.AcceptableBloodGroups {
			if !g.Valid() {
				v.AddError(apperror.CodeInvalidPatient, fmt.Sprintf("recipient %d accepts unknown blood group %q", r.ID, g))
			}
		}
	}

	donors := make(map[int64]*Donor, len(p.Donors))
	for i := range p.Donors {
		d := &p.Donors[i]
		if d.ID <= 0 {
			v.AddErrorWithField(apperror.CodeInvalidPatient, fmt.Sprintf("donor #%d has non-positive id", i), "donors.id")
			continue
		}
		if _, dup := donors[d.ID]; dup {
			v.AddError(apperror.CodeDuplicatePatient, fmt.Sprintf("donor %d is listed twice", d.ID))
			continue
		}
		donors[d.ID] = d
		if !d.BloodGroup.Valid() {
			v.AddError(apperror.CodeInvalidPatient, fmt.Sprintf("donor %d has unknown blood group %q", d.ID, d.BloodGroup))
		}

		switch d.Kind {
		case DonorKindPaired:
			if !d.HasRecipient() {
				v.AddError(apperror.CodeDanglingPairing, fmt.Sprintf("paired donor %d has no recipient", d.ID))
				continue
			}
			r, ok := recipients[d.RelatedRecipientID]
			if !ok {
				v.AddWarning(apperror.CodeDanglingPairing,
					fmt.Sprintf("recipient %d of donor %d is not in the pool", d.RelatedRecipientID, d.ID))
				continue
			}
			if !r.IsRelatedDonor(d.ID) {
				v.AddError(apperror.CodeDanglingPairing,
					fmt.Sprintf("recipient %d does not list donor %d as related", r.ID, d.ID))
			}
		case DonorKindBridging, DonorKindNonDirected:
			if d.HasRecipient() {
				v.AddError(apperror.CodeInvalidPatient,
					fmt.Sprintf("%s donor %d must not have a recipient", d.Kind, d.ID))
			}
		default:
			v.AddError(apperror.CodeInvalidPatient, fmt.Sprintf("donor %d has unspecified kind", d.ID))
		}
	}

	for _, r := range recipients {
		for _, donorID := range r.RelatedDonorIDs {
			d, ok := donors[donorID]
			if !ok {
				v.AddWarning(apperror.CodeDanglingPairing,
					fmt.Sprintf("related donor %d of recipient %d is not in the pool", donorID, r.ID))
				continue
			}
			if d.RelatedRecipientID != r.ID {
				v.AddError(apperror.CodeDanglingPairing,
					fmt.Sprintf("donor %d is listed by recipient %d but paired with %d", d.ID, r.ID, d.RelatedRecipientID))
			}
		}
	}

	return v, v.Err(apperror.CodeInvalidPatient, "patient pool is invalid")
}

// DonorIndex возвращает отображение id донора -> индекс строки
func (p *Pool) DonorIndex() map[int64]int {
	idx := make(map[int64]int, len(p.Donors))
	for i, d := range p.Donors {
		idx[d.ID] = i
	}
	return idx
}

// RecipientIndex возвращает отображение id реципиента -> индекс столбца
func (p *Pool) RecipientIndex() map[int64]int {
	idx := make(map[int64]int, len(p.Recipients))
	for i, r := range p.Recipients {
		idx[r.ID] = i
	}
	return idx
}

// OriginalDonors возвращает исходных доноров реципиента, присутствующих в пуле
func (p *Pool) OriginalDonors(r *Recipient, donorIndex map[int64]int) []*Donor {
	var out []*Donor
	for _, id := range r.RelatedDonorIDs {
		if i, ok := donorIndex[id]; ok {
			out = append(out, &p.Donors[i])
		}
	}
	return out
}

// PatientSet идентичность набора пациентов пула
func (p *Pool) PatientSet() PatientSet {
	ps := PatientSet{
		DonorIDs:     make([]int64, len(p.Donors)),
		RecipientIDs: make([]int64, len(p.Recipients)),
	}
	for i, d := range p.Donors {
		ps.DonorIDs[i] = d.ID
	}
	for i, r := range p.Recipients {
		ps.RecipientIDs[i] = r.ID
	}
	slices.Sort(ps.DonorIDs)
	slices.Sort(ps.RecipientIDs)
	return ps
}

// PatientSet отсортированные id доноров и реципиентов
type PatientSet struct {
	DonorIDs     []int64 `json:"donor_ids"`
	RecipientIDs []int64 `json:"recipient_ids"`
}

// Equal сравнивает наборы пациентов
func (s PatientSet) Equal(other PatientSet) bool {
	return slices.Equal(s.DonorIDs, other.DonorIDs) && slices.Equal(s.RecipientIDs, other.RecipientIDs)
}
