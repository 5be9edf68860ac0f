// Package patient holds the stored clinical record of a single patient with
// named, explicitly optional fields. A nil section pointer means the
// corresponding table has no row for the patient.
package patient

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotFound is returned by record stores when no patient row exists.
var ErrNotFound = errors.New("patient not found")

// FieldState distinguishes an absent value from one that is present but
// could not be parsed.
type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldPresent
	FieldMalformed
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// MarshalText lets FieldState serialize as its name.
func (s FieldState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Patient struct {
	ID         int64  `json:"id"`
	CardNumber string `json:"cardNumber"`
	Surname    string `json:"surname"`
	Name       string `json:"name"`
	Patronymic string `json:"patronymic,omitempty"`
	BirthDate  string `json:"birthDate,omitempty"` // YYYY-MM-DD as entered
	Gender     string `json:"gender,omitempty"`
}

// FullName joins the name parts the way they are shown in patient lists.
func (p Patient) FullName() string {
	return strings.TrimSpace(strings.Join([]string{p.Surname, p.Name, p.Patronymic}, " "))
}

// Anamnesis is the extended history questionnaire.
type Anamnesis struct {
	Weakness      bool   `json:"weakness"`
	Fatigue       bool   `json:"fatigue"`
	Cough         bool   `json:"cough"`
	Headache      bool   `json:"headache"`
	Dyspnea       bool   `json:"dyspnea"`
	ChestPain     bool   `json:"chestPain"`
	Covid19       bool   `json:"covid19"`
	CovidSeverity string `json:"covidSeverity,omitempty"`
	BloodPressure string `json:"bloodPressure,omitempty"`
}

type Comorbidities struct {
	Hypertension        bool `json:"hypertension"`
	Diabetes            bool `json:"diabetes"`
	Obesity             bool `json:"obesity"`
	Atherosclerosis     bool `json:"atherosclerosis"`
	ChronicHeartFailure bool `json:"chronicHeartFailure"`
	RespiratoryFailure  bool `json:"respiratoryFailure"`
	Cerebrovascular     bool `json:"cerebrovascular"`
	Pneumonia           bool `json:"pneumonia"`
}

// BloodPanel values are nil when not measured.
type BloodPanel struct {
	Erythrocytes    *float64 `json:"erythrocytes,omitempty"`
	Leukocytes      *float64 `json:"leukocytes,omitempty"`
	Hemoglobin      *float64 `json:"hemoglobin,omitempty"`
	Lymphocytes     *float64 `json:"lymphocytes,omitempty"`
	CRPElevated     bool     `json:"crpElevated"`
	DDimerElevated  bool     `json:"dDimerElevated"`
	ThrombocytesLow bool     `json:"thrombocytesLow"`
}

type UrinePanel struct {
	NotPerformed bool     `json:"notPerformed"`
	Protein      *float64 `json:"protein,omitempty"`
	Leukocytes   *float64 `json:"leukocytes,omitempty"`
}

type ECG struct {
	Pulse        *int `json:"pulse,omitempty"`
	QRSDeviation bool `json:"qrsDeviation"`
	QTDeviation  bool `json:"qtDeviation"`
}

type Echo struct {
	EjectionFraction *float64 `json:"ejectionFraction,omitempty"`
	LeftAtrium       *float64 `json:"leftAtrium,omitempty"`
}

// Record is everything stored for one patient.
type Record struct {
	Patient       Patient        `json:"patient"`
	Anamnesis     *Anamnesis     `json:"anamnesis,omitempty"`
	Comorbidities *Comorbidities `json:"comorbidities,omitempty"`
	Blood         *BloodPanel    `json:"blood,omitempty"`
	Urine         *UrinePanel    `json:"urine,omitempty"`
	ECG           *ECG           `json:"ecg,omitempty"`
	Echo          *Echo          `json:"echo,omitempty"`
}

// ParseBirthYear extracts the year from a YYYY-MM-DD birth date. Only the
// leading year component is required.
func ParseBirthYear(birthDate string) (int, FieldState) {
	s := strings.TrimSpace(birthDate)
	if s == "" {
		return 0, FieldAbsent
	}
	yearPart, _, _ := strings.Cut(s, "-")
	year, err := strconv.Atoi(yearPart)
	if err != nil || year <= 0 {
		return 0, FieldMalformed
	}
	return year, FieldPresent
}
