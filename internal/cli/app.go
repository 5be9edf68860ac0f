package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/config"
	"github.com/Skufu/postcovid-risk/internal/metrics"
	"github.com/Skufu/postcovid-risk/internal/patient"
	"github.com/Skufu/postcovid-risk/internal/risk"
	"github.com/Skufu/postcovid-risk/internal/service"
	"github.com/Skufu/postcovid-risk/internal/store"
)

// recordStore is what commands need from the database.
type recordStore interface {
	service.RecordStore
	ListPatients(ctx context.Context) ([]patient.Patient, error)
	ImportRecord(ctx context.Context, rec patient.Record) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// openStore is replaced in tests.
var openStore = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (recordStore, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return store.Open(ctx, cfg.Database.URL, logger)
}

// newPredictionService wires registry, calculator, extractor and gate from cfg.
func newPredictionService(cfg *config.Config, st service.RecordStore, m *metrics.Metrics, logger *zap.Logger) (*service.PredictionService, error) {
	reg, err := cfg.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	calcCfg, err := cfg.CalculatorConfig()
	if err != nil {
		return nil, err
	}
	gate, err := cfg.GateConfig()
	if err != nil {
		return nil, err
	}

	src := risk.NewSource(cfg.Risk.Seed)
	calc, err := risk.NewCalculator(reg, calcCfg, src)
	if err != nil {
		return nil, err
	}
	ext := risk.NewExtractor(reg, src, cfg.Risk.SynthesizeMissing)

	return service.NewPredictionService(st, reg, calc, ext, gate, m, logger, service.Options{
		TopN:                  cfg.Risk.TopN,
		SignificantPercentage: cfg.Risk.SignificantPercentage,
	})
}

// withService opens the store, builds the service and runs fn.
func withService(ctx context.Context, cc *CLIContext, fn func(*service.PredictionService, recordStore) error) error {
	st, err := openStore(ctx, cc.Config, cc.Logger)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer st.Close()

	svc, err := newPredictionService(cc.Config, st, nil, cc.Logger)
	if err != nil {
		return err
	}
	return fn(svc, st)
}
