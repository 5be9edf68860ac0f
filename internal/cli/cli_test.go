package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/config"
	"github.com/Skufu/postcovid-risk/internal/patient"
	"github.com/Skufu/postcovid-risk/internal/service"
)

type fakeStore struct {
	records  map[int64]*patient.Record
	imported []patient.Record
	closed   bool
}

func (f *fakeStore) LoadRecord(_ context.Context, id int64) (*patient.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) PresentCategories(_ context.Context, id int64) (map[patient.Category]bool, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return rec.PresentCategories(), nil
}

func (f *fakeStore) ListPatients(context.Context) ([]patient.Patient, error) {
	return []patient.Patient{f.records[1].Patient}, nil
}

func (f *fakeStore) ImportRecord(_ context.Context, rec patient.Record) (int64, error) {
	f.imported = append(f.imported, rec)
	return int64(100 + len(f.imported)), nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func useFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	t.Setenv("PCR_RISK_SEED", "7")
	t.Setenv("PCR_LOG_LEVEL", "error")
	fs := &fakeStore{records: map[int64]*patient.Record{
		1: {
			Patient:       patient.Patient{ID: 1, CardNumber: "C-1", Surname: "Ivanov", Name: "Petr", BirthDate: "1950-03-02"},
			Anamnesis:     &patient.Anamnesis{Covid19: true, CovidSeverity: "severe", Dyspnea: true},
			Comorbidities: &patient.Comorbidities{Hypertension: true, Diabetes: true},
		},
	}}
	orig := openStore
	openStore = func(context.Context, *config.Config, *zap.Logger) (recordStore, error) {
		return fs, nil
	}
	t.Cleanup(func() { openStore = orig })
	return fs
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPredictCommand(t *testing.T) {
	fs := useFakeStore(t)

	out, err := run(t, "predict", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Patient: Ivanov Petr (age ")
	assert.Contains(t, out, ", present)")
	assert.Contains(t, out, "Cardiovascular disease")
	assert.Contains(t, out, "Chronic lung disease")
	assert.True(t, fs.closed)
}

func TestPredictCommandJSON(t *testing.T) {
	useFakeStore(t)

	out, err := run(t, "predict", "1", "--output", "json", "--top", "2")
	require.NoError(t, err)

	var pred service.Prediction
	require.NoError(t, json.Unmarshal([]byte(out), &pred))
	assert.Len(t, pred.Assessments, 2)
	assert.GreaterOrEqual(t, pred.Assessments[0].Percentage, pred.Assessments[1].Percentage)
}

func TestPredictCommandSeedIsReproducible(t *testing.T) {
	useFakeStore(t)

	first, err := run(t, "predict", "1")
	require.NoError(t, err)
	second, err := run(t, "predict", "1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPredictCommandErrors(t *testing.T) {
	useFakeStore(t)

	_, err := run(t, "predict", "abc")
	assert.ErrorContains(t, err, "invalid patient id")

	_, err = run(t, "predict", "42")
	assert.True(t, errors.Is(err, service.ErrPatientNotFound))

	_, err = run(t, "predict", "1", "--output", "yaml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestPlanCommand(t *testing.T) {
	useFakeStore(t)

	out, err := run(t, "plan", "1", "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "TOP 2 RISKS")
	assert.Contains(t, out, "FOLLOW-UP SCHEDULE")
}

func TestReportCommand(t *testing.T) {
	useFakeStore(t)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	out, err := run(t, "report", "1", "--format", "xlsx", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "report written to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))

	_, err = run(t, "report", "1", "--format", "xlsx")
	assert.ErrorContains(t, err, "--out is required")

	_, err = run(t, "report", "1", "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported report format")

	out, err = run(t, "report", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "POST-COVID DISEASE RISK REPORT")
}

func TestPatientsCommand(t *testing.T) {
	useFakeStore(t)

	out, err := run(t, "patients")
	require.NoError(t, err)
	assert.Contains(t, out, "CARD")
	assert.Contains(t, out, "Ivanov Petr")
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENABLE_DB", "false")

	_, err := run(t, "migrate", "up")
	assert.ErrorContains(t, err, "DATABASE_URL is required")
}

func TestOpenStoreRequiresURL(t *testing.T) {
	_, err := openStore(context.Background(), &config.Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildServerWithoutDatabase(t *testing.T) {
	t.Setenv("ENABLE_DB", "false")
	cfg, err := config.Load("")
	require.NoError(t, err)

	server, cleanup, err := buildServer(context.Background(), &CLIContext{Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, ":"+cfg.Server.Port, server.Addr)
	assert.NotNil(t, server.Handler)
}

func TestBuildServerWithDatabase(t *testing.T) {
	fs := useFakeStore(t)
	t.Setenv("ENABLE_DB", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	cfg, err := config.Load("")
	require.NoError(t, err)

	_, cleanup, err := buildServer(context.Background(), &CLIContext{Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	cleanup()
	assert.True(t, fs.closed)
}

func TestPatientsImportCommand(t *testing.T) {
	fs := useFakeStore(t)

	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"patient": {"cardNumber": "C-20", "surname": "Smirnov", "name": "Oleg", "birthDate": "1961-07-14"},
   "anamnesis": {"cough": true, "covid19": true, "covidSeverity": "moderate"},
   "ecg": {"pulse": 88, "qtDeviation": true}}
]`), 0o600))

	out, err := run(t, "patients", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported C-20 as patient 101")
	require.Len(t, fs.imported, 1)
	rec := fs.imported[0]
	require.NotNil(t, rec.ECG)
	require.NotNil(t, rec.ECG.Pulse)
	assert.Equal(t, 88, *rec.ECG.Pulse)
	assert.Equal(t, "moderate", rec.Anamnesis.CovidSeverity)
	assert.Nil(t, rec.Blood)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"patient": {"surname": "X"}}]`), 0o600))
	_, err = run(t, "patients", "import", bad)
	assert.ErrorContains(t, err, "card number is required")

	_, err = run(t, "patients", "import", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read records")
}
