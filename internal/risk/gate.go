package risk

import (
	"fmt"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

// Gate refuses predictions for records with too few populated diagnostic
// categories.
type Gate struct {
	Categories []patient.Category
	Min        int
}

func DefaultGate() Gate {
	return Gate{Categories: patient.AllCategories(), Min: 2}
}

func (g Gate) Validate() error {
	if len(g.Categories) == 0 {
		return fmt.Errorf("gate: no diagnostic categories configured")
	}
	if g.Min < 0 || g.Min > len(g.Categories) {
		return fmt.Errorf("gate: minimum %d outside [0,%d]", g.Min, len(g.Categories))
	}
	return nil
}

type GateResult struct {
	Allowed bool               `json:"allowed"`
	Min     int                `json:"minCategories"`
	Present []patient.Category `json:"present"`
	Missing []patient.Category `json:"missing"`
}

// Check counts the configured categories present for the patient. Present
// and Missing follow the configured category order.
func (g Gate) Check(present map[patient.Category]bool) GateResult {
	res := GateResult{
		Min:     g.Min,
		Present: []patient.Category{},
		Missing: []patient.Category{},
	}
	for _, c := range g.Categories {
		if present[c] {
			res.Present = append(res.Present, c)
		} else {
			res.Missing = append(res.Missing, c)
		}
	}
	res.Allowed = len(res.Present) >= g.Min
	return res
}
