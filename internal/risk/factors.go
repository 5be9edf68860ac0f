package risk

import (
	"sort"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

// Factor names understood by the extractor and referenced from the
// registry.
const (
	FactorAgeOver45      = "age_over_45"
	FactorAgeOver50      = "age_over_50"
	FactorAgeOver60      = "age_over_60"
	FactorAgeOver65      = "age_over_65"
	FactorFatigue        = "fatigue"
	FactorHeadaches      = "headaches"
	FactorDyspnea        = "dyspnea"
	FactorCough          = "cough"
	FactorHypertension   = "hypertension"
	FactorDiabetes       = "diabetes"
	FactorObesity        = "obesity"
	FactorCovidSevere    = "covid_severe"
	FactorCovidPneumonia = "covid_pneumonia"
)

// FactorSet is the flat set of risk factors derived for one prediction.
// Synthesized marks factors whose value was drawn at random because the
// record did not contain them; such a factor is never a measurement.
type FactorSet struct {
	Age         int                `json:"age"`
	AgeState    patient.FieldState `json:"ageState"`
	Flags       map[string]bool    `json:"flags"`
	Synthesized map[string]bool    `json:"synthesized,omitempty"`
}

func NewFactorSet() FactorSet {
	return FactorSet{
		Flags:       make(map[string]bool),
		Synthesized: make(map[string]bool),
	}
}

// Active reports whether the named factor is present. Unknown names are
// inactive.
func (f FactorSet) Active(name string) bool {
	return f.Flags[name]
}

// IsSynthesized reports whether the factor was drawn rather than read.
func (f FactorSet) IsSynthesized(name string) bool {
	return f.Synthesized[name]
}

// ActiveNames returns the active factor names sorted alphabetically.
func (f FactorSet) ActiveNames() []string {
	out := make([]string, 0, len(f.Flags))
	for name, on := range f.Flags {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (f FactorSet) set(name string, v bool) {
	f.Flags[name] = v
}
