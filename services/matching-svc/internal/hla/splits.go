package hla

// serologicalSplits maps a broad antigen to its split antigens.
// Codes are stored in normalized form (locus prefix + number, no leading zeros).
var serologicalSplits = map[string][]string{
	"A9":  {"A23", "A24"},
	"A10": {"A25", "A26", "A34", "A66"},
	"A19": {"A29", "A30", "A31", "A32", "A33", "A74"},
	"A28": {"A68", "A69"},

	"B5":  {"B51", "B52"},
	"B12": {"B44", "B45"},
	"B14": {"B64", "B65"},
	"B15": {"B62", "B63", "B75", "B76", "B77"},
	"B16": {"B38", "B39"},
	"B17": {"B57", "B58"},
	"B21": {"B49", "B50"},
	"B22": {"B54", "B55", "B56"},
	"B40": {"B60", "B61"},
	"B70": {"B71", "B72"},

	"DR2": {"DR15", "DR16"},
	"DR3": {"DR17", "DR18"},
	"DR5": {"DR11", "DR12"},
	"DR6": {"DR13", "DR14"},

	"DQ1": {"DQ5", "DQ6"},
	"DQ3": {"DQ7", "DQ8", "DQ9"},

	"CW3": {"CW9", "CW10"},
}

// broadOf is the inverse of serologicalSplits: split -> broad.
var broadOf = func() map[string]string {
	out := make(map[string]string)
	for broad, splits := range serologicalSplits {
		for _, split := range splits {
			out[split] = broad
		}
	}
	return out
}()

// Splits returns the split antigens of a broad antigen, nil if it has none.
func Splits(broad string) []string {
	splits := serologicalSplits[broad]
	if splits == nil {
		return nil
	}
	out := make([]string, len(splits))
	copy(out, splits)
	return out
}

// Broad returns the broad antigen for code. Codes without a split relation are their own broad.
func Broad(code string) string {
	if b, ok := broadOf[code]; ok {
		return b
	}
	return code
}
