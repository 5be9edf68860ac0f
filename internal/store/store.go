// Package store persists patient records in PostgreSQL through the pgx
// database/sql driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Open connects to url and verifies the connection with a ping.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return New(db, logger), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListPatients(ctx context.Context) ([]patient.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_number, surname, name, patronymic, birth_date, gender
		FROM patients
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []patient.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}
	return patients, nil
}

// ImportRecord inserts the patient and every non-nil section in one
// transaction and returns the new patient id.
func (s *Store) ImportRecord(ctx context.Context, rec patient.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id, err := insertPatient(ctx, tx, rec.Patient)
	if err != nil {
		return 0, err
	}
	if rec.Anamnesis != nil {
		if err := saveAnamnesis(ctx, tx, id, *rec.Anamnesis); err != nil {
			return 0, err
		}
	}
	if rec.Comorbidities != nil {
		if err := saveComorbidities(ctx, tx, id, *rec.Comorbidities); err != nil {
			return 0, err
		}
	}
	if rec.Blood != nil {
		if err := saveBlood(ctx, tx, id, *rec.Blood); err != nil {
			return 0, err
		}
	}
	if rec.Urine != nil {
		if err := saveUrine(ctx, tx, id, *rec.Urine); err != nil {
			return 0, err
		}
	}
	if rec.ECG != nil {
		if err := saveECG(ctx, tx, id, *rec.ECG); err != nil {
			return 0, err
		}
	}
	if rec.Echo != nil {
		if err := saveEcho(ctx, tx, id, *rec.Echo); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	s.logger.Info("patient imported",
		zap.Int64("patient_id", id),
		zap.String("card_number", rec.Patient.CardNumber))
	return id, nil
}

// LoadRecord reads the patient row and every diagnostic section. Missing
// sections stay nil; a missing patient yields patient.ErrNotFound.
func (s *Store) LoadRecord(ctx context.Context, patientID int64) (*patient.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, card_number, surname, name, patronymic, birth_date, gender
		FROM patients
		WHERE id = $1`, patientID)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec := &patient.Record{Patient: p}
	if rec.Anamnesis, err = s.loadAnamnesis(ctx, patientID); err != nil {
		return nil, err
	}
	if rec.Comorbidities, err = s.loadComorbidities(ctx, patientID); err != nil {
		return nil, err
	}
	if rec.Blood, err = s.loadBlood(ctx, patientID); err != nil {
		return nil, err
	}
	if rec.Urine, err = s.loadUrine(ctx, patientID); err != nil {
		return nil, err
	}
	if rec.ECG, err = s.loadECG(ctx, patientID); err != nil {
		return nil, err
	}
	if rec.Echo, err = s.loadEcho(ctx, patientID); err != nil {
		return nil, err
	}

	s.logger.Debug("patient record loaded", zap.Int64("patient_id", patientID))
	return rec, nil
}

// PresentCategories reports which diagnostic tables hold a row for the
// patient without loading the rows themselves.
func (s *Store) PresentCategories(ctx context.Context, patientID int64) (map[patient.Category]bool, error) {
	var exists, history, blood, urine, ecg, echo, comorb bool
	err := s.db.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM patients WHERE id = $1),
			EXISTS (SELECT 1 FROM anamnesis WHERE patient_id = $1),
			EXISTS (SELECT 1 FROM blood_tests WHERE patient_id = $1),
			EXISTS (SELECT 1 FROM urine_tests WHERE patient_id = $1),
			EXISTS (SELECT 1 FROM ecg_data WHERE patient_id = $1),
			EXISTS (SELECT 1 FROM echo_data WHERE patient_id = $1),
			EXISTS (SELECT 1 FROM comorbidities WHERE patient_id = $1)`, patientID,
	).Scan(&exists, &history, &blood, &urine, &ecg, &echo, &comorb)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostic categories: %w", err)
	}
	if !exists {
		return nil, patient.ErrNotFound
	}
	return map[patient.Category]bool{
		patient.CategoryHistory:       history,
		patient.CategoryBlood:         blood,
		patient.CategoryUrine:         urine,
		patient.CategoryECG:           ecg,
		patient.CategoryEcho:          echo,
		patient.CategoryComorbidities: comorb,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(sc scanner) (patient.Patient, error) {
	var p patient.Patient
	var patronymic, birthDate, gender sql.NullString
	if err := sc.Scan(&p.ID, &p.CardNumber, &p.Surname, &p.Name, &patronymic, &birthDate, &gender); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan patient: %w", err)
	}
	p.Patronymic = patronymic.String
	p.BirthDate = birthDate.String
	p.Gender = gender.String
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
