package domain

import (
	"fmt"
	"strings"
)

// BloodGroup группа крови по системе AB0
type BloodGroup string

const (
	BloodGroupA    BloodGroup = "A"
	BloodGroupB    BloodGroup = "B"
	BloodGroupAB   BloodGroup = "AB"
	BloodGroupZero BloodGroup = "0"
)

// ParseBloodGroup разбирает группу крови, "O" принимается как синоним "0"
func ParseBloodGroup(s string) (BloodGroup, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return BloodGroupA, nil
	case "B":
		return BloodGroupB, nil
	case "AB":
		return BloodGroupAB, nil
	case "0", "O":
		return BloodGroupZero, nil
	default:
		return "", fmt.Errorf("unknown blood group %q", s)
	}
}

// Valid проверяет, что группа крови известна
func (b BloodGroup) Valid() bool {
	switch b {
	case BloodGroupA, BloodGroupB, BloodGroupAB, BloodGroupZero:
		return true
	}
	return false
}

// CompatibleBlood проверяет AB0-совместимость донора и реципиента:
// 0 подходит всем, A и B подходят своей группе и AB, AB только AB.
func CompatibleBlood(donor, recipient BloodGroup) bool {
	switch donor {
	case BloodGroupZero:
		return recipient.Valid()
	case BloodGroupA:
		return recipient == BloodGroupA || recipient == BloodGroupAB
	case BloodGroupB:
		return recipient == BloodGroupB || recipient == BloodGroupAB
	case BloodGroupAB:
		return recipient == BloodGroupAB
	}
	return false
}

// Country код страны трансплантационного центра
type Country string

const (
	CountryCZE Country = "CZE"
	CountryAUT Country = "AUT"
	CountryIL  Country = "IL"
)

// DonorKind тип донора
type DonorKind int

const (
	DonorKindUnspecified DonorKind = iota
	DonorKindPaired
	DonorKindBridging
	DonorKindNonDirected
)

// String возвращает строковое представление типа донора
func (k DonorKind) String() string {
	switch k {
	case DonorKindPaired:
		return "paired"
	case DonorKindBridging:
		return "bridging"
	case DonorKindNonDirected:
		return "non_directed"
	default:
		return "unspecified"
	}
}

// ParseDonorKind разбирает тип донора из строки
func ParseDonorKind(s string) (DonorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paired", "donor":
		return DonorKindPaired, nil
	case "bridging", "bridging_donor":
		return DonorKindBridging, nil
	case "non_directed", "altruist":
		return DonorKindNonDirected, nil
	default:
		return DonorKindUnspecified, fmt.Errorf("unknown donor kind %q", s)
	}
}

// IsChainStarter сообщает, может ли донор начинать цепочку
func (k DonorKind) IsChainStarter() bool {
	return k == DonorKindBridging || k == DonorKindNonDirected
}

// HLAGroup локус HLA
type HLAGroup int

const (
	HLAGroupA HLAGroup = iota
	HLAGroupB
	HLAGroupDRB1
	HLAGroupOther
)

// HLAGroups все локусы в порядке подсчёта индекса совместимости
var HLAGroups = []HLAGroup{HLAGroupA, HLAGroupB, HLAGroupDRB1, HLAGroupOther}

// String возвращает строковое представление локуса
func (g HLAGroup) String() string {
	switch g {
	case HLAGroupA:
		return "A"
	case HLAGroupB:
		return "B"
	case HLAGroupDRB1:
		return "DRB1"
	default:
		return "Other"
	}
}

// HLACode один HLA-антиген. Производные поля вычисляются один раз при создании
// (см. пакет hla) и дальше не меняются.
type HLACode struct {
	Raw   string   // код как пришёл из источника
	Code  string   // нормализованный код, пусто если разбор не удался
	Broad string   // широкий (broad) антиген, равен Code если сплитов нет
	Group HLAGroup // локус
}

// Parsed сообщает, удалось ли разобрать код
func (c HLACode) Parsed() bool {
	return c.Code != ""
}

// HLATyping типирование пациента
type HLATyping struct {
	Codes []HLACode
}

// ByGroup возвращает разобранные коды указанного локуса
func (t HLATyping) ByGroup(group HLAGroup) []HLACode {
	var out []HLACode
	for _, c := range t.Codes {
		if c.Parsed() && c.Group == group {
			out = append(out, c)
		}
	}
	return out
}

// RawCodes возвращает исходные коды
func (t HLATyping) RawCodes() []string {
	out := make([]string, len(t.Codes))
	for i, c := range t.Codes {
		out[i] = c.Raw
	}
	return out
}

// Patient общие параметры донора и реципиента
type Patient struct {
	ID         int64 // идентификатор в БД
	MedicalID  string
	BloodGroup BloodGroup
	Country    Country
	HLA        HLATyping
}

// Donor донор. У парного донора RelatedRecipientID > 0,
// у bridging и non-directed доноров он равен нулю.
type Donor struct {
	Patient
	Kind               DonorKind
	RelatedRecipientID int64
}

// HasRecipient проверяет наличие парного реципиента
func (d *Donor) HasRecipient() bool {
	return d.RelatedRecipientID > 0
}

// Recipient реципиент
type Recipient struct {
	Patient
	AcceptableBloodGroups []BloodGroup
	RelatedDonorIDs       []int64
}

// AcceptsBloodGroup проверяет, входит ли группа донора в список приемлемых
func (r *Recipient) AcceptsBloodGroup(group BloodGroup) bool {
	for _, g := range r.AcceptableBloodGroups {
		if g == group {
			return true
		}
	}
	return false
}

// IsRelatedDonor проверяет, является ли донор исходным донором реципиента
func (r *Recipient) IsRelatedDonor(donorID int64) bool {
	for _, id := range r.RelatedDonorIDs {
		if id == donorID {
			return true
		}
	}
	return false
}
