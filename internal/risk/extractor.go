package risk

import (
	"strings"
	"time"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

// DefaultAge is used when the birth date is missing or unparsable. Age
// threshold factors stay inactive in that case.
const DefaultAge = 50

var (
	severeCovid = map[string]bool{
		"severe":         true,
		"critical":       true,
		"тяжелая":        true,
		"тяжёлая":        true,
		"крайне тяжелая": true,
	}
	nonSevereCovid = map[string]bool{
		"asymptomatic":  true,
		"mild":          true,
		"moderate":      true,
		"бессимптомная": true,
		"легкая":        true,
		"лёгкая":        true,
		"средняя":       true,
	}
)

// Extractor derives a FactorSet from a stored record. It never fails:
// absent sections yield inactive factors, malformed values fall back to
// defaults, and factors listed in Fallbacks are drawn from Source when the
// record cannot answer them and Synthesize is set.
type Extractor struct {
	Source     Source
	Fallbacks  map[string]float64
	Synthesize bool
	DefaultAge int
	Now        func() time.Time
}

// NewExtractor wires an extractor to the registry's fallback table.
func NewExtractor(reg *Registry, src Source, synthesize bool) *Extractor {
	return &Extractor{
		Source:     src,
		Fallbacks:  reg.FallbackProbabilities(),
		Synthesize: synthesize,
		DefaultAge: DefaultAge,
		Now:        time.Now,
	}
}

func (e *Extractor) Extract(rec *patient.Record) FactorSet {
	fs := NewFactorSet()
	if rec == nil {
		rec = &patient.Record{}
	}

	e.extractAge(&fs, rec.Patient.BirthDate)

	// Fixed order keeps draws from the source reproducible.
	e.extractCovid(&fs, rec)

	if a := rec.Anamnesis; a != nil {
		fs.set(FactorFatigue, a.Fatigue)
		fs.set(FactorHeadaches, a.Headache)
		fs.set(FactorDyspnea, a.Dyspnea)
		fs.set(FactorCough, a.Cough)
	} else {
		for _, name := range []string{FactorFatigue, FactorHeadaches, FactorDyspnea, FactorCough} {
			e.fallback(&fs, name)
		}
	}

	if c := rec.Comorbidities; c != nil {
		fs.set(FactorHypertension, c.Hypertension)
		fs.set(FactorDiabetes, c.Diabetes)
		fs.set(FactorObesity, c.Obesity)
	} else {
		for _, name := range []string{FactorHypertension, FactorDiabetes, FactorObesity} {
			e.fallback(&fs, name)
		}
	}
	return fs
}

func (e *Extractor) extractAge(fs *FactorSet, birthDate string) {
	year, state := patient.ParseBirthYear(birthDate)
	age := 0
	if state == patient.FieldPresent {
		age = e.now().Year() - year
		if age < 0 {
			state = patient.FieldMalformed
		}
	}
	if state != patient.FieldPresent {
		fs.Age = e.defaultAge()
		fs.AgeState = state
		for _, name := range []string{FactorAgeOver45, FactorAgeOver50, FactorAgeOver60, FactorAgeOver65} {
			fs.set(name, false)
		}
		return
	}
	fs.Age = age
	fs.AgeState = patient.FieldPresent
	fs.set(FactorAgeOver45, age > 45)
	fs.set(FactorAgeOver50, age > 50)
	fs.set(FactorAgeOver60, age > 60)
	fs.set(FactorAgeOver65, age > 65)
}

func (e *Extractor) extractCovid(fs *FactorSet, rec *patient.Record) {
	if severe, known := covidSeverity(rec.Anamnesis); known {
		fs.set(FactorCovidSevere, severe)
	} else {
		e.fallback(fs, FactorCovidSevere)
	}

	if c := rec.Comorbidities; c != nil && c.Pneumonia {
		fs.set(FactorCovidPneumonia, true)
	} else if rec.Anamnesis != nil && !rec.Anamnesis.Covid19 {
		fs.set(FactorCovidPneumonia, false)
	} else {
		e.fallback(fs, FactorCovidPneumonia)
	}
}

// covidSeverity reads the recorded severity. A history that states no
// COVID-19 episode counts as a recorded non-severe course.
func covidSeverity(a *patient.Anamnesis) (severe, known bool) {
	if a == nil {
		return false, false
	}
	s := strings.ToLower(strings.TrimSpace(a.CovidSeverity))
	switch {
	case severeCovid[s]:
		return true, true
	case nonSevereCovid[s]:
		return false, true
	case !a.Covid19 && s == "":
		return false, true
	}
	return false, false
}

func (e *Extractor) fallback(fs *FactorSet, name string) {
	p, ok := e.Fallbacks[name]
	if !e.Synthesize || !ok || e.Source == nil {
		fs.set(name, false)
		return
	}
	fs.set(name, e.Source.Float64() < p)
	fs.Synthesized[name] = true
}

func (e *Extractor) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Extractor) defaultAge() int {
	if e.DefaultAge <= 0 {
		return DefaultAge
	}
	return e.DefaultAge
}
