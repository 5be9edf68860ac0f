package risk

import (
	"fmt"
	"math"
	"sort"
)

// Config bounds the calculator. Floor 0 disables the lower clamp.
type Config struct {
	JitterMin  float64
	JitterMax  float64
	Floor      float64
	Ceiling    float64
	Thresholds Thresholds
}

func DefaultConfig() Config {
	return Config{
		JitterMin:  0.9,
		JitterMax:  1.1,
		Floor:      0.25,
		Ceiling:    0.98,
		Thresholds: DefaultThresholds,
	}
}

func (c Config) Validate() error {
	if c.JitterMin <= 0 || c.JitterMax < c.JitterMin {
		return fmt.Errorf("jitter interval [%v, %v] is invalid", c.JitterMin, c.JitterMax)
	}
	if c.Ceiling <= 0 || c.Ceiling > 1 {
		return fmt.Errorf("ceiling %v outside (0,1]", c.Ceiling)
	}
	if c.Floor < 0 || c.Floor >= c.Ceiling {
		return fmt.Errorf("floor %v must be in [0, ceiling)", c.Floor)
	}
	return c.Thresholds.Validate()
}

// Assessment is the outcome for one category.
type Assessment struct {
	CategoryID      string   `json:"categoryId"`
	Disease         string   `json:"disease"`
	Percentage      float64  `json:"riskPercentage"`
	Level           Level    `json:"riskLevel"`
	Multiplier      float64  `json:"multiplier"`
	Recommendations []string `json:"recommendations"`
	ActiveFactors   []string `json:"activeFactors"`
}

// Assessments are kept in registry order.
type Assessments []Assessment

func (a Assessments) ByID(id string) (Assessment, bool) {
	for _, x := range a {
		if x.CategoryID == id {
			return x, true
		}
	}
	return Assessment{}, false
}

type Calculator struct {
	registry *Registry
	cfg      Config
	source   Source
}

func NewCalculator(reg *Registry, cfg Config, src Source) (*Calculator, error) {
	if reg == nil {
		return nil, fmt.Errorf("calculator: nil registry")
	}
	if src == nil {
		return nil, fmt.Errorf("calculator: nil random source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("calculator: %w", err)
	}
	return &Calculator{registry: reg, cfg: cfg, source: src}, nil
}

func (c *Calculator) Config() Config { return c.cfg }

// Predict scores every category. One jitter value is drawn per category in
// registry order.
func (c *Calculator) Predict(factors FactorSet) Assessments {
	cats := c.registry.Categories()
	out := make(Assessments, 0, len(cats))
	for _, cat := range cats {
		multiplier := 1.0
		active := []string{}
		for _, w := range cat.Weights {
			if factors.Active(w.Factor) {
				multiplier += w.Weight
				active = append(active, w.Factor)
			}
		}

		raw := c.clamp(cat.BaseRisk * multiplier * c.jitter())
		pct := math.Round(raw*1000) / 10

		out = append(out, Assessment{
			CategoryID:      cat.ID,
			Disease:         cat.Name,
			Percentage:      pct,
			Level:           c.cfg.Thresholds.LevelFor(pct),
			Multiplier:      multiplier,
			Recommendations: cat.Recommendations,
			ActiveFactors:   active,
		})
	}
	return out
}

// LevelFor exposes the configured banding.
func (c *Calculator) LevelFor(percentage float64) Level {
	return c.cfg.Thresholds.LevelFor(percentage)
}

func (c *Calculator) jitter() float64 {
	return c.cfg.JitterMin + c.source.Float64()*(c.cfg.JitterMax-c.cfg.JitterMin)
}

func (c *Calculator) clamp(raw float64) float64 {
	raw = math.Max(raw, 0)
	if raw > c.cfg.Ceiling {
		raw = c.cfg.Ceiling
	}
	if c.cfg.Floor > 0 && raw < c.cfg.Floor {
		raw = c.cfg.Floor
	}
	return raw
}

// TopRisks returns the n highest percentages. The sort is stable, so equal
// percentages keep their incoming (registry) order. n <= 0 yields an empty
// result.
func TopRisks(assessments Assessments, n int) Assessments {
	if n <= 0 || len(assessments) == 0 {
		return Assessments{}
	}
	sorted := make(Assessments, len(assessments))
	copy(sorted, assessments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Percentage > sorted[j].Percentage
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
