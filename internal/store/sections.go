package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

// Each loader returns (nil, nil) when the patient has no row in the table.

func (s *Store) loadAnamnesis(ctx context.Context, patientID int64) (*patient.Anamnesis, error) {
	var a patient.Anamnesis
	err := s.db.QueryRowContext(ctx, `
		SELECT weakness, fatigue, cough, headache, dyspnea, chest_pain, covid19, covid_severity, blood_pressure
		FROM anamnesis
		WHERE patient_id = $1`, patientID,
	).Scan(&a.Weakness, &a.Fatigue, &a.Cough, &a.Headache, &a.Dyspnea, &a.ChestPain,
		&a.Covid19, &a.CovidSeverity, &a.BloodPressure)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load anamnesis: %w", err)
	}
	return &a, nil
}

func (s *Store) loadComorbidities(ctx context.Context, patientID int64) (*patient.Comorbidities, error) {
	var c patient.Comorbidities
	err := s.db.QueryRowContext(ctx, `
		SELECT hypertension, diabetes, obesity, atherosclerosis, chronic_heart_failure,
			respiratory_failure, cerebrovascular, pneumonia
		FROM comorbidities
		WHERE patient_id = $1`, patientID,
	).Scan(&c.Hypertension, &c.Diabetes, &c.Obesity, &c.Atherosclerosis, &c.ChronicHeartFailure,
		&c.RespiratoryFailure, &c.Cerebrovascular, &c.Pneumonia)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load comorbidities: %w", err)
	}
	return &c, nil
}

func (s *Store) loadBlood(ctx context.Context, patientID int64) (*patient.BloodPanel, error) {
	var b patient.BloodPanel
	var ery, leu, hb, lym sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT erythrocytes, leukocytes, hemoglobin, lymphocytes, crp_elevated, d_dimer_elevated, thrombocytes_low
		FROM blood_tests
		WHERE patient_id = $1`, patientID,
	).Scan(&ery, &leu, &hb, &lym, &b.CRPElevated, &b.DDimerElevated, &b.ThrombocytesLow)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blood panel: %w", err)
	}
	b.Erythrocytes = floatPtr(ery)
	b.Leukocytes = floatPtr(leu)
	b.Hemoglobin = floatPtr(hb)
	b.Lymphocytes = floatPtr(lym)
	return &b, nil
}

func (s *Store) loadUrine(ctx context.Context, patientID int64) (*patient.UrinePanel, error) {
	var u patient.UrinePanel
	var protein, leu sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT not_performed, protein, leukocytes
		FROM urine_tests
		WHERE patient_id = $1`, patientID,
	).Scan(&u.NotPerformed, &protein, &leu)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load urine panel: %w", err)
	}
	u.Protein = floatPtr(protein)
	u.Leukocytes = floatPtr(leu)
	return &u, nil
}

func (s *Store) loadECG(ctx context.Context, patientID int64) (*patient.ECG, error) {
	var e patient.ECG
	var pulse sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT pulse, qrs_deviation, qt_deviation
		FROM ecg_data
		WHERE patient_id = $1`, patientID,
	).Scan(&pulse, &e.QRSDeviation, &e.QTDeviation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ECG: %w", err)
	}
	if pulse.Valid {
		p := int(pulse.Int64)
		e.Pulse = &p
	}
	return &e, nil
}

func (s *Store) loadEcho(ctx context.Context, patientID int64) (*patient.Echo, error) {
	var ef, la sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT ejection_fraction, left_atrium
		FROM echo_data
		WHERE patient_id = $1`, patientID,
	).Scan(&ef, &la)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load echocardiography: %w", err)
	}
	return &patient.Echo{EjectionFraction: floatPtr(ef), LeftAtrium: floatPtr(la)}, nil
}
