// Package converter переводит входной JSON с пациентами в доменную модель
// и результат расчёта обратно в JSON.
package converter

import (
	"encoding/json"
	"fmt"
	"io"

	"txmatching/pkg/apperror"
	"txmatching/pkg/domain"
	"txmatching/pkg/logger"
	"txmatching/services/matching-svc/internal/hla"
	"txmatching/services/matching-svc/internal/service"
	"txmatching/services/matching-svc/internal/solver"
)

// DonorDTO донор во входном файле
type DonorDTO struct {
	DBID                 int64    `json:"db_id"`
	MedicalID            string   `json:"medical_id"`
	BloodGroup           string   `json:"blood_group"`
	Country              string   `json:"country"`
	HLATyping            []string `json:"hla_typing"`
	DonorType            string   `json:"donor_type"`
	RelatedRecipientDBID int64    `json:"related_recipient_db_id,omitempty"`
}

// RecipientDTO реципиент во входном файле
type RecipientDTO struct {
	DBID                  int64    `json:"db_id"`
	MedicalID             string   `json:"medical_id"`
	BloodGroup            string   `json:"blood_group"`
	Country               string   `json:"country"`
	HLATyping             []string `json:"hla_typing"`
	AcceptableBloodGroups []string `json:"acceptable_blood_groups"`
	RelatedDonorDBIDs     []int64  `json:"related_donor_db_ids"`
}

// Request входной файл: пациенты и, опционально, параметры расчёта
type Request struct {
	Donors        []DonorDTO      `json:"donors"`
	Recipients    []RecipientDTO  `json:"recipients"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// DecodeRequest читает запрос из JSON
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "failed to decode request")
	}
	return &req, nil
}

// ToPool конвертирует пациентов запроса в пул
func ToPool(req *Request) (*domain.Pool, error) {
	v := apperror.NewValidationErrors()
	pool := &domain.Pool{
		Donors:     make([]domain.Donor, 0, len(req.Donors)),
		Recipients: make([]domain.Recipient, 0, len(req.Recipients)),
	}

	for _, d := range req.Donors {
		blood, err := domain.ParseBloodGroup(d.BloodGroup)
		if err != nil {
			v.AddErrorWithField(apperror.CodeInvalidPatient, fmt.Sprintf("donor %d: %v", d.DBID, err), "blood_group")
			continue
		}
		kind, err := domain.ParseDonorKind(d.DonorType)
		if err != nil {
			v.AddErrorWithField(apperror.CodeInvalidPatient, fmt.Sprintf("donor %d: %v", d.DBID, err), "donor_type")
			continue
		}
		pool.Donors = append(pool.Donors, domain.Donor{
			Patient:            toPatient(d.DBID, d.MedicalID, blood, d.Country, d.HLATyping),
			Kind:               kind,
			RelatedRecipientID: d.RelatedRecipientDBID,
		})
	}

	for _, r := range req.Recipients {
		blood, err := domain.ParseBloodGroup(r.BloodGroup)
		if err != nil {
			v.AddErrorWithField(apperror.CodeInvalidPatient, fmt.Sprintf("recipient %d: %v", r.DBID, err), "blood_group")
			continue
		}
		acceptable := make([]domain.BloodGroup, 0, len(r.AcceptableBloodGroups))
		for _, raw := range r.AcceptableBloodGroups {
			g, err := domain.ParseBloodGroup(raw)
			if err != nil {
				v.AddErrorWithField(apperror.CodeInvalidPatient, fmt.Sprintf("recipient %d: %v", r.DBID, err), "acceptable_blood_groups")
				continue
			}
			acceptable = append(acceptable, g)
		}
		pool.Recipients = append(pool.Recipients, domain.Recipient{
			Patient:               toPatient(r.DBID, r.MedicalID, blood, r.Country, r.HLATyping),
			AcceptableBloodGroups: acceptable,
			RelatedDonorIDs:       append([]int64(nil), r.RelatedDonorDBIDs...),
		})
	}

	if err := v.Err(apperror.CodeInvalidPatient, "failed to convert patients"); err != nil {
		return nil, err
	}
	return pool, nil
}

func toPatient(id int64, medicalID string, blood domain.BloodGroup, country string, codes []string) domain.Patient {
	typing := hla.NewTyping(codes)
	if bad := hla.Unparsed(typing); len(bad) > 0 {
		logger.Log.Warn("unparsed HLA codes are ignored",
			"code", apperror.CodeInvalidHLACode,
			"patient_id", id,
			"codes", bad,
		)
	}
	return domain.Patient{
		ID:         id,
		MedicalID:  medicalID,
		BloodGroup: blood,
		Country:    domain.Country(country),
		HLA:        typing,
	}
}

// ToConfiguration накладывает параметры из запроса на base.
// Поля, отсутствующие в запросе, берутся из base.
func ToConfiguration(base domain.Configuration, raw json.RawMessage) (domain.Configuration, error) {
	cfg := base.Clone()
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.Configuration{}, apperror.Wrap(err, apperror.CodeInvalidConfiguration, "failed to decode configuration")
	}
	return cfg, nil
}

// ResponseDTO результат расчёта для вывода
type ResponseDTO struct {
	SolveID             string        `json:"solve_id"`
	Source              string        `json:"source"`
	AllResultsFound     bool          `json:"all_results_found"`
	FoundMatchingsCount *int          `json:"found_matchings_count"`
	Matchings           []MatchingDTO `json:"matchings"`
	ScoreMatrix         *MatrixDTO    `json:"score_matrix"`
}

// MatchingDTO подбор для вывода
type MatchingDTO struct {
	Rank         int        `json:"order_id"`
	Score        float64    `json:"score"`
	CountryCount int        `json:"max_countries_in_round"`
	Rounds       []RoundDTO `json:"rounds"`
}

// RoundDTO цикл или цепочка для вывода
type RoundDTO struct {
	Kind        string          `json:"kind"`
	Transplants []TransplantDTO `json:"transplants"`
}

// TransplantDTO трансплантация для вывода
type TransplantDTO struct {
	DonorDBID     int64   `json:"donor_db_id"`
	RecipientDBID int64   `json:"recipient_db_id"`
	Score         float64 `json:"score"`
}

// MatrixDTO матрица оценок с порядком строк и столбцов
type MatrixDTO struct {
	DonorDBIDs     []int64         `json:"donor_db_ids"`
	RecipientDBIDs []int64         `json:"recipient_db_ids"`
	Scores         json.RawMessage `json:"scores"`
}

// ToResponse конвертирует ответ сервиса для вывода
func ToResponse(resp *service.Response) (*ResponseDTO, error) {
	res := resp.Result
	out := &ResponseDTO{
		SolveID:             resp.SolveID,
		Source:              resp.Source,
		AllResultsFound:     res.AllResultsFound,
		FoundMatchingsCount: res.FoundMatchingsCount,
		Matchings:           make([]MatchingDTO, 0, len(res.Matchings)),
	}

	for _, m := range res.Matchings {
		out.Matchings = append(out.Matchings, toMatching(m))
	}

	if res.ScoreMatrix != nil {
		scores, err := json.Marshal(res.ScoreMatrix)
		if err != nil {
			return nil, fmt.Errorf("failed to encode score matrix: %w", err)
		}
		out.ScoreMatrix = &MatrixDTO{
			DonorDBIDs:     res.DonorIDs,
			RecipientDBIDs: res.RecipientIDs,
			Scores:         scores,
		}
	}
	return out, nil
}

func toMatching(m solver.Matching) MatchingDTO {
	dto := MatchingDTO{
		Rank:   m.Rank,
		Score:  m.Score,
		Rounds: make([]RoundDTO, 0, len(m.Rounds)),
	}
	for _, r := range m.Rounds {
		dto.CountryCount = max(dto.CountryCount, r.CountryCount())
		round := RoundDTO{Kind: string(r.Kind), Transplants: make([]TransplantDTO, len(r.Transplants))}
		for i, t := range r.Transplants {
			round.Transplants[i] = TransplantDTO{
				DonorDBID:     t.DonorID,
				RecipientDBID: t.RecipientID,
				Score:         t.Score,
			}
		}
		dto.Rounds = append(dto.Rounds, round)
	}
	return dto
}
