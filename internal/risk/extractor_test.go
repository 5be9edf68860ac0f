package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

func newTestExtractor(synthesize bool, values ...float64) *Extractor {
	e := NewExtractor(MustDefaultRegistry(), NewFixedSource(values...), synthesize)
	e.Now = fixedNow
	return e
}

func TestExtract_EmptyRecordNoSynthesis(t *testing.T) {
	e := newTestExtractor(false)

	for _, rec := range []*patient.Record{nil, {}} {
		fs := e.Extract(rec)
		assert.Equal(t, DefaultAge, fs.Age)
		assert.Equal(t, patient.FieldAbsent, fs.AgeState)
		assert.Empty(t, fs.ActiveNames())
		assert.Empty(t, fs.Synthesized)
		for _, name := range []string{FactorAgeOver45, FactorHypertension, FactorCovidSevere, FactorCovidPneumonia, FactorCough} {
			_, ok := fs.Flags[name]
			assert.True(t, ok, "factor %s should be set explicitly", name)
		}
	}
}

func TestExtract_SynthesizesUnrecordedCovid(t *testing.T) {
	e := newTestExtractor(true, 0.1, 0.9)

	fs := e.Extract(&patient.Record{})
	assert.True(t, fs.Active(FactorCovidSevere))
	assert.True(t, fs.IsSynthesized(FactorCovidSevere))
	assert.False(t, fs.Active(FactorCovidPneumonia))
	assert.True(t, fs.IsSynthesized(FactorCovidPneumonia))

	// no fallback probability declared for these
	assert.False(t, fs.Active(FactorHypertension))
	assert.False(t, fs.IsSynthesized(FactorHypertension))
	assert.False(t, fs.IsSynthesized(FactorCough))
}

func TestExtract_AgeThresholds(t *testing.T) {
	e := newTestExtractor(false)

	fs := e.Extract(&patient.Record{Patient: patient.Patient{BirthDate: "1956-05-01"}})
	assert.Equal(t, 70, fs.Age)
	assert.Equal(t, patient.FieldPresent, fs.AgeState)
	for _, name := range []string{FactorAgeOver45, FactorAgeOver50, FactorAgeOver60, FactorAgeOver65} {
		assert.True(t, fs.Active(name), name)
	}

	fs = e.Extract(&patient.Record{Patient: patient.Patient{BirthDate: "1966-01-01"}})
	assert.Equal(t, 60, fs.Age)
	assert.True(t, fs.Active(FactorAgeOver50))
	assert.False(t, fs.Active(FactorAgeOver60))
	assert.False(t, fs.Active(FactorAgeOver65))
}

func TestExtract_MalformedBirthDate(t *testing.T) {
	e := newTestExtractor(false)

	for _, bd := range []string{"01.02.1950", "unknown", "2099-01-01"} {
		fs := e.Extract(&patient.Record{Patient: patient.Patient{BirthDate: bd}})
		assert.Equal(t, DefaultAge, fs.Age, bd)
		assert.Equal(t, patient.FieldMalformed, fs.AgeState, bd)
		assert.False(t, fs.Active(FactorAgeOver45), bd)
	}
}

func TestExtract_NamedFields(t *testing.T) {
	e := newTestExtractor(true, 0.0)

	fs := e.Extract(&patient.Record{
		Anamnesis: &patient.Anamnesis{
			Fatigue:       true,
			Cough:         true,
			Covid19:       true,
			CovidSeverity: "Severe",
		},
		Comorbidities: &patient.Comorbidities{
			Hypertension: true,
			Pneumonia:    true,
		},
	})

	assert.Equal(t,
		[]string{FactorCough, FactorCovidPneumonia, FactorCovidSevere, FactorFatigue, FactorHypertension},
		fs.ActiveNames())
	assert.Empty(t, fs.Synthesized)
}

func TestExtract_RecordedNegativeIsNotSynthesized(t *testing.T) {
	e := newTestExtractor(true, 0.0)

	fs := e.Extract(&patient.Record{
		Anamnesis:     &patient.Anamnesis{Covid19: false},
		Comorbidities: &patient.Comorbidities{},
	})
	assert.False(t, fs.Active(FactorCovidSevere))
	assert.False(t, fs.Active(FactorCovidPneumonia))
	assert.False(t, fs.IsSynthesized(FactorCovidSevere))
	assert.False(t, fs.IsSynthesized(FactorCovidPneumonia))

	fs = e.Extract(&patient.Record{
		Anamnesis: &patient.Anamnesis{Covid19: true, CovidSeverity: "mild"},
	})
	assert.False(t, fs.Active(FactorCovidSevere))
	assert.False(t, fs.IsSynthesized(FactorCovidSevere))
	// COVID-19 recorded but pneumonia unknown
	assert.True(t, fs.IsSynthesized(FactorCovidPneumonia))
}

func TestExtract_UnknownSeverityFallsBack(t *testing.T) {
	e := newTestExtractor(true, 0.7)

	fs := e.Extract(&patient.Record{
		Anamnesis: &patient.Anamnesis{Covid19: true, CovidSeverity: "unclear"},
	})
	assert.True(t, fs.IsSynthesized(FactorCovidSevere))
	assert.False(t, fs.Active(FactorCovidSevere))
}
