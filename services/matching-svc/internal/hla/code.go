// Package hla classifies HLA antigen codes and computes the HLA compatibility
// index between a donor and a recipient.
package hla

import (
	"regexp"
	"strconv"
	"strings"

	"txmatching/pkg/domain"
)

// codePattern accepts serological codes such as "A23", "B 77", "DR04", "Cw3", "DQ7".
var codePattern = regexp.MustCompile(`^(A|B|CW|C|DRB1|DR|DQ|DP|BW)\s*0*([0-9]+)$`)

// ParseCode builds an HLACode with all derived fields filled in.
// A code that cannot be parsed keeps its raw form and an empty Code,
// which makes it contribute no match.
func ParseCode(raw string) domain.HLACode {
	out := domain.HLACode{Raw: raw, Group: domain.HLAGroupOther}

	m := codePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil {
		return out
	}

	number, err := strconv.Atoi(m[2])
	if err != nil || number == 0 {
		return out
	}

	locus := m[1]
	switch locus {
	case "C":
		locus = "CW"
	case "DRB1":
		locus = "DR"
	}

	out.Code = locus + strconv.Itoa(number)
	out.Broad = Broad(out.Code)
	out.Group = groupOf(locus, number)
	return out
}

func groupOf(locus string, number int) domain.HLAGroup {
	switch locus {
	case "A":
		return domain.HLAGroupA
	case "B":
		return domain.HLAGroupB
	case "DR":
		// DR51, DR52 and DR53 are encoded by DRB3/4/5, not DRB1
		if number >= 51 && number <= 53 {
			return domain.HLAGroupOther
		}
		return domain.HLAGroupDRB1
	default:
		return domain.HLAGroupOther
	}
}

// NewTyping parses every raw code of a patient's typing.
func NewTyping(raw []string) domain.HLATyping {
	codes := make([]domain.HLACode, 0, len(raw))
	for _, r := range raw {
		codes = append(codes, ParseCode(r))
	}
	return domain.HLATyping{Codes: codes}
}

// Unparsed returns the raw codes that could not be classified.
func Unparsed(t domain.HLATyping) []string {
	var out []string
	for _, c := range t.Codes {
		if !c.Parsed() {
			out = append(out, c.Raw)
		}
	}
	return out
}
