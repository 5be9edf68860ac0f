// Package service combines the record store with the risk engine: it gates
// predictions on diagnostic sufficiency, runs the calculator and builds
// prevention plans.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/metrics"
	"github.com/Skufu/postcovid-risk/internal/patient"
	"github.com/Skufu/postcovid-risk/internal/risk"
)

// RecordStore is the subset of the store the service needs.
type RecordStore interface {
	LoadRecord(ctx context.Context, patientID int64) (*patient.Record, error)
	PresentCategories(ctx context.Context, patientID int64) (map[patient.Category]bool, error)
}

// Prediction is the full per-category result for one patient.
type Prediction struct {
	Patient     patient.Patient  `json:"patient"`
	AssessedAt  time.Time        `json:"assessedAt"`
	Age         int              `json:"age"`
	AgeState    string           `json:"ageState"`
	Synthesized []string         `json:"synthesizedFactors"`
	Assessments risk.Assessments `json:"assessments"`
}

// Plan is a prevention plan built from the highest risks.
type Plan struct {
	ID                     string           `json:"id"`
	Patient                patient.Patient  `json:"patient"`
	CreatedAt              time.Time        `json:"createdAt"`
	TopRisks               risk.Assessments `json:"topRisks"`
	SignificantRisks       risk.Assessments `json:"significantRisks"`
	Assessments            risk.Assessments `json:"assessments"`
	GeneralRecommendations []string         `json:"generalRecommendations"`
	FollowUp               risk.FollowUp    `json:"followUpSchedule"`
	Synthesized            []string         `json:"synthesizedFactors"`
}

type Options struct {
	// TopN is used when a caller passes a non-positive top-N.
	TopN int
	// SignificantPercentage is the cut-off for detailed recommendations.
	SignificantPercentage float64
}

type PredictionService struct {
	store     RecordStore
	registry  *risk.Registry
	calc      *risk.Calculator
	extractor *risk.Extractor
	gate      risk.Gate
	metrics   *metrics.Metrics
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewPredictionService(
	store RecordStore,
	registry *risk.Registry,
	calc *risk.Calculator,
	extractor *risk.Extractor,
	gate risk.Gate,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts Options,
) (*PredictionService, error) {
	if store == nil || registry == nil || calc == nil || extractor == nil {
		return nil, errors.New("service: store, registry, calculator and extractor are required")
	}
	if err := gate.Validate(); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	return &PredictionService{
		store:     store,
		registry:  registry,
		calc:      calc,
		extractor: extractor,
		gate:      gate,
		metrics:   m,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}, nil
}

func (s *PredictionService) Registry() *risk.Registry { return s.registry }

func (s *PredictionService) Options() Options { return s.opts }

// Sufficiency reports which gated categories the patient has data for.
func (s *PredictionService) Sufficiency(ctx context.Context, patientID int64) (risk.GateResult, error) {
	present, err := s.store.PresentCategories(ctx, patientID)
	if err != nil {
		return risk.GateResult{}, fmt.Errorf("sufficiency for patient %d: %w", patientID, err)
	}
	return s.gate.Check(present), nil
}

// Predict scores every registry category for the patient. It returns
// ErrPatientNotFound or *InsufficientDataError when prediction is refused.
func (s *PredictionService) Predict(ctx context.Context, patientID int64) (*Prediction, error) {
	start := time.Now()

	res, err := s.Sufficiency(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		s.metrics.ObserveGateRefusal()
		s.logger.Warn("prediction refused: insufficient diagnostic data",
			zap.Int64("patient_id", patientID),
			zap.Int("present", len(res.Present)),
			zap.Int("min", res.Min))
		return nil, &InsufficientDataError{Present: res.Present, Missing: res.Missing, Min: res.Min}
	}

	rec, err := s.store.LoadRecord(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient %d: %w", patientID, err)
	}

	factors := s.extractor.Extract(rec)
	assessments := s.calc.Predict(factors)
	for _, a := range assessments {
		s.metrics.ObserveAssessment(a.CategoryID, a.Level.String())
	}
	s.metrics.ObservePrediction(time.Since(start))

	synth := synthesizedNames(factors)
	if len(synth) > 0 {
		s.logger.Info("prediction used synthesized factors",
			zap.Int64("patient_id", patientID),
			zap.Strings("factors", synth))
	}

	return &Prediction{
		Patient:     rec.Patient,
		AssessedAt:  s.now().UTC(),
		Age:         factors.Age,
		AgeState:    factors.AgeState.String(),
		Synthesized: synth,
		Assessments: assessments,
	}, nil
}

// PreventionPlan predicts and keeps the topN highest risks. topN <= 0
// falls back to the configured default.
func (s *PredictionService) PreventionPlan(ctx context.Context, patientID int64, topN int) (*Plan, error) {
	pred, err := s.Predict(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = s.opts.TopN
	}

	significant := risk.Assessments{}
	for _, a := range pred.Assessments {
		if a.Percentage > s.opts.SignificantPercentage {
			significant = append(significant, a)
		}
	}

	return &Plan{
		ID:                     uuid.NewString(),
		Patient:                pred.Patient,
		CreatedAt:              pred.AssessedAt,
		TopRisks:               risk.TopRisks(pred.Assessments, topN),
		SignificantRisks:       significant,
		Assessments:            pred.Assessments,
		GeneralRecommendations: s.registry.GeneralRecommendations(),
		FollowUp:               s.registry.FollowUp(),
		Synthesized:            pred.Synthesized,
	}, nil
}

func synthesizedNames(fs risk.FactorSet) []string {
	out := []string{}
	for name, synth := range fs.Synthesized {
		if synth {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
