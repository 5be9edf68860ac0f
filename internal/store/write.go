package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertPatient(ctx context.Context, ex execer, p patient.Patient) (int64, error) {
	var id int64
	err := ex.QueryRowContext(ctx, `
		INSERT INTO patients (card_number, surname, name, patronymic, birth_date, gender)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.CardNumber, p.Surname, p.Name, nullString(p.Patronymic), nullString(p.BirthDate), nullString(p.Gender),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert patient: %w", err)
	}
	return id, nil
}

func saveAnamnesis(ctx context.Context, ex execer, patientID int64, a patient.Anamnesis) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO anamnesis (patient_id, weakness, fatigue, cough, headache, dyspnea, chest_pain,
			covid19, covid_severity, blood_pressure)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (patient_id) DO UPDATE SET
			weakness = EXCLUDED.weakness,
			fatigue = EXCLUDED.fatigue,
			cough = EXCLUDED.cough,
			headache = EXCLUDED.headache,
			dyspnea = EXCLUDED.dyspnea,
			chest_pain = EXCLUDED.chest_pain,
			covid19 = EXCLUDED.covid19,
			covid_severity = EXCLUDED.covid_severity,
			blood_pressure = EXCLUDED.blood_pressure,
			updated_at = now()`,
		patientID, a.Weakness, a.Fatigue, a.Cough, a.Headache, a.Dyspnea, a.ChestPain,
		a.Covid19, a.CovidSeverity, a.BloodPressure,
	)
	if err != nil {
		return fmt.Errorf("failed to save anamnesis: %w", err)
	}
	return nil
}

func saveComorbidities(ctx context.Context, ex execer, patientID int64, c patient.Comorbidities) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO comorbidities (patient_id, hypertension, diabetes, obesity, atherosclerosis,
			chronic_heart_failure, respiratory_failure, cerebrovascular, pneumonia)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (patient_id) DO UPDATE SET
			hypertension = EXCLUDED.hypertension,
			diabetes = EXCLUDED.diabetes,
			obesity = EXCLUDED.obesity,
			atherosclerosis = EXCLUDED.atherosclerosis,
			chronic_heart_failure = EXCLUDED.chronic_heart_failure,
			respiratory_failure = EXCLUDED.respiratory_failure,
			cerebrovascular = EXCLUDED.cerebrovascular,
			pneumonia = EXCLUDED.pneumonia,
			updated_at = now()`,
		patientID, c.Hypertension, c.Diabetes, c.Obesity, c.Atherosclerosis,
		c.ChronicHeartFailure, c.RespiratoryFailure, c.Cerebrovascular, c.Pneumonia,
	)
	if err != nil {
		return fmt.Errorf("failed to save comorbidities: %w", err)
	}
	return nil
}

func saveBlood(ctx context.Context, ex execer, patientID int64, b patient.BloodPanel) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO blood_tests (patient_id, erythrocytes, leukocytes, hemoglobin, lymphocytes,
			crp_elevated, d_dimer_elevated, thrombocytes_low)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id) DO UPDATE SET
			erythrocytes = EXCLUDED.erythrocytes,
			leukocytes = EXCLUDED.leukocytes,
			hemoglobin = EXCLUDED.hemoglobin,
			lymphocytes = EXCLUDED.lymphocytes,
			crp_elevated = EXCLUDED.crp_elevated,
			d_dimer_elevated = EXCLUDED.d_dimer_elevated,
			thrombocytes_low = EXCLUDED.thrombocytes_low`,
		patientID, b.Erythrocytes, b.Leukocytes, b.Hemoglobin, b.Lymphocytes,
		b.CRPElevated, b.DDimerElevated, b.ThrombocytesLow,
	)
	if err != nil {
		return fmt.Errorf("failed to save blood panel: %w", err)
	}
	return nil
}

func saveUrine(ctx context.Context, ex execer, patientID int64, u patient.UrinePanel) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO urine_tests (patient_id, not_performed, protein, leukocytes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE SET
			not_performed = EXCLUDED.not_performed,
			protein = EXCLUDED.protein,
			leukocytes = EXCLUDED.leukocytes`,
		patientID, u.NotPerformed, u.Protein, u.Leukocytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save urine panel: %w", err)
	}
	return nil
}

func saveECG(ctx context.Context, ex execer, patientID int64, e patient.ECG) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO ecg_data (patient_id, pulse, qrs_deviation, qt_deviation)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE SET
			pulse = EXCLUDED.pulse,
			qrs_deviation = EXCLUDED.qrs_deviation,
			qt_deviation = EXCLUDED.qt_deviation`,
		patientID, e.Pulse, e.QRSDeviation, e.QTDeviation,
	)
	if err != nil {
		return fmt.Errorf("failed to save ECG: %w", err)
	}
	return nil
}

func saveEcho(ctx context.Context, ex execer, patientID int64, e patient.Echo) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO echo_data (patient_id, ejection_fraction, left_atrium)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id) DO UPDATE SET
			ejection_fraction = EXCLUDED.ejection_fraction,
			left_atrium = EXCLUDED.left_atrium`,
		patientID, e.EjectionFraction, e.LeftAtrium,
	)
	if err != nil {
		return fmt.Errorf("failed to save echo: %w", err)
	}
	return nil
}
