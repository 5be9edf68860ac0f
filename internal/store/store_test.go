package store

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

var patientColumns = []string{"id", "card_number", "surname", "name", "patronymic", "birth_date", "gender"}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, New(db, zap.NewNop())
}

func TestLoadRecord_Success(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM patients\s+WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(patientColumns).
			AddRow(int64(7), "C-7", "Ivanov", "Petr", nil, "1956-05-01", "M"))
	mock.ExpectQuery(`FROM anamnesis`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"weakness", "fatigue", "cough", "headache", "dyspnea", "chest_pain", "covid19", "covid_severity", "blood_pressure"}).
			AddRow(false, true, true, false, true, false, true, "severe", "140/90"))
	mock.ExpectQuery(`FROM comorbidities`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"hypertension"}))
	mock.ExpectQuery(`FROM blood_tests`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"erythrocytes", "leukocytes", "hemoglobin", "lymphocytes", "crp_elevated", "d_dimer_elevated", "thrombocytes_low"}).
			AddRow(4.5, nil, 132.0, nil, true, false, false))
	mock.ExpectQuery(`FROM urine_tests`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"not_performed"}))
	mock.ExpectQuery(`FROM ecg_data`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"pulse", "qrs_deviation", "qt_deviation"}).
			AddRow(nil, false, true))
	mock.ExpectQuery(`FROM echo_data`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"ejection_fraction"}))

	rec, err := s.LoadRecord(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "Ivanov Petr", rec.Patient.FullName())
	assert.Equal(t, "1956-05-01", rec.Patient.BirthDate)

	require.NotNil(t, rec.Anamnesis)
	assert.True(t, rec.Anamnesis.Fatigue)
	assert.Equal(t, "severe", rec.Anamnesis.CovidSeverity)

	assert.Nil(t, rec.Comorbidities)
	require.NotNil(t, rec.Blood)
	require.NotNil(t, rec.Blood.Erythrocytes)
	assert.Equal(t, 4.5, *rec.Blood.Erythrocytes)
	assert.Nil(t, rec.Blood.Leukocytes)
	assert.True(t, rec.Blood.CRPElevated)
	assert.Nil(t, rec.Urine)
	require.NotNil(t, rec.ECG)
	assert.Nil(t, rec.ECG.Pulse)
	assert.True(t, rec.ECG.QTDeviation)
	assert.Nil(t, rec.Echo)

	present := rec.PresentCategories()
	assert.True(t, present[patient.CategoryHistory])
	assert.False(t, present[patient.CategoryComorbidities])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRecord_NotFound(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM patients\s+WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(patientColumns))

	rec, err := s.LoadRecord(context.Background(), 99)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, patient.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRecord_QueryError(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(`FROM patients`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(patientColumns).AddRow(int64(1), "C-1", "A", "B", nil, nil, nil))
	mock.ExpectQuery(`FROM anamnesis`).WithArgs(int64(1)).WillReturnError(boom)

	_, err := s.LoadRecord(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, patient.ErrNotFound))
}

func TestPresentCategories(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	cols := []string{"patient", "history", "blood", "urine", "ecg", "echo", "comorbidities"}
	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(true, true, false, false, true, false, false))

	present, err := s.PresentCategories(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, present[patient.CategoryHistory])
	assert.True(t, present[patient.CategoryECG])
	assert.False(t, present[patient.CategoryBlood])
	assert.Len(t, present, 6)

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(false, false, false, false, false, false, false))

	_, err = s.PresentCategories(context.Background(), 4)
	assert.ErrorIs(t, err, patient.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPatients(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM patients\s+ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(patientColumns).
			AddRow(int64(1), "C-1", "Ivanov", "Petr", "Sergeevich", "1956-05-01", "M").
			AddRow(int64(2), "C-2", "Petrova", "Anna", nil, nil, "F"))

	patients, err := s.ListPatients(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "Ivanov Petr Sergeevich", patients[0].FullName())
	assert.Equal(t, "", patients[1].Patronymic)
	assert.Equal(t, "", patients[1].BirthDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPatient(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO patients`).
		WithArgs("C-9", "Sidorov", "Ivan", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	id, err := insertPatient(context.Background(), s.db, patient.Patient{CardNumber: "C-9", Surname: "Sidorov", Name: "Ivan", BirthDate: "1970-01-01"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSections(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO anamnesis`).
		WithArgs(int64(5), false, true, false, false, true, false, true, "moderate", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO comorbidities`).
		WithArgs(int64(5), true, false, true, false, false, false, false, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, saveAnamnesis(ctx, s.db, 5, patient.Anamnesis{Fatigue: true, Dyspnea: true, Covid19: true, CovidSeverity: "moderate"}))
	require.NoError(t, saveComorbidities(ctx, s.db, 5, patient.Comorbidities{Hypertension: true, Obesity: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnamnesis_Error(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO anamnesis`).WillReturnError(errors.New("fk violation"))
	err := saveAnamnesis(context.Background(), s.db, 5, patient.Anamnesis{})
	assert.ErrorContains(t, err, "failed to save anamnesis")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrateDownRejectsNonPositiveSteps(t *testing.T) {
	assert.Error(t, MigrateDown("postgres://localhost/none", 0))
}

func TestImportRecord(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	ef := 55.0
	pulse := 72
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO patients`).
		WithArgs("C-11", "Orlova", "Maria", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`INSERT INTO anamnesis`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ecg_data`).
		WithArgs(int64(11), sqlmock.AnyArg(), false, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO echo_data`).
		WithArgs(int64(11), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.ImportRecord(context.Background(), patient.Record{
		Patient:   patient.Patient{CardNumber: "C-11", Surname: "Orlova", Name: "Maria"},
		Anamnesis: &patient.Anamnesis{Cough: true},
		ECG:       &patient.ECG{Pulse: &pulse, QTDeviation: true},
		Echo:      &patient.Echo{EjectionFraction: &ef},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRecord_RollsBackOnError(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO patients`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectExec(`INSERT INTO comorbidities`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	_, err := s.ImportRecord(context.Background(), patient.Record{
		Patient:       patient.Patient{CardNumber: "C-12"},
		Comorbidities: &patient.Comorbidities{Diabetes: true},
	})
	assert.ErrorContains(t, err, "failed to save comorbidities")
	assert.NoError(t, mock.ExpectationsWereMet())
}
