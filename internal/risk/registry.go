// Package risk implements the weighted disease-risk heuristic: a static
// registry of disease categories, extraction of named risk factors from a
// patient record, and the calculator that turns factors into per-category
// risk percentages and levels.
//
// The calculator is not a statistical model. Every prediction applies a
// bounded random jitter and some factors may be synthesized when the record
// does not contain them, so two predictions for the same patient can differ.
// Pin the Source to make results reproducible.
package risk

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistryYAML []byte

// Weight is the additive contribution of one factor to a category's risk
// multiplier.
type Weight struct {
	Factor string  `yaml:"factor" json:"factor"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// Category is one scored disease category.
type Category struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	BaseRisk        float64  `yaml:"base_risk" json:"baseRisk"`
	Weights         []Weight `yaml:"weights" json:"weights"`
	Recommendations []string `yaml:"recommendations" json:"recommendations"`
}

// FollowUp holds the follow-up schedule printed with every plan.
type FollowUp struct {
	Immediate string `yaml:"immediate" json:"immediate"`
	ShortTerm string `yaml:"short_term" json:"shortTerm"`
	LongTerm  string `yaml:"long_term" json:"longTerm"`
}

type registryFile struct {
	Categories             []Category         `yaml:"categories"`
	FallbackProbabilities  map[string]float64 `yaml:"fallback_probabilities"`
	GeneralRecommendations []string           `yaml:"general_recommendations"`
	FollowUp               FollowUp           `yaml:"follow_up"`
}

// Registry is the immutable catalogue of categories. Accessors return
// copies so callers cannot mutate it.
type Registry struct {
	categories []Category
	index      map[string]int
	fallbacks  map[string]float64
	general    []string
	followUp   FollowUp
}

// DefaultRegistry parses the catalogue embedded in the binary.
func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultRegistryYAML)
}

// MustDefaultRegistry panics if the embedded catalogue is invalid, which
// can only happen through a bad edit to registry.yaml.
func MustDefaultRegistry() *Registry {
	r, err := DefaultRegistry()
	if err != nil {
		panic(fmt.Sprintf("risk: embedded registry: %v", err))
	}
	return r
}

// LoadRegistryFile reads a catalogue from disk.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %q: %w", path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates a YAML catalogue.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return NewRegistry(f.Categories, f.FallbackProbabilities, f.GeneralRecommendations, f.FollowUp)
}

// NewRegistry validates and freezes a catalogue.
func NewRegistry(categories []Category, fallbacks map[string]float64, general []string, followUp FollowUp) (*Registry, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("registry has no categories")
	}
	r := &Registry{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
		fallbacks:  make(map[string]float64, len(fallbacks)),
		general:    append([]string(nil), general...),
		followUp:   followUp,
	}
	for _, c := range categories {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("category %q: id and name are required", c.ID)
		}
		if _, dup := r.index[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.ID)
		}
		if !inUnitInterval(c.BaseRisk) {
			return nil, fmt.Errorf("category %q: base risk %v outside [0,1]", c.ID, c.BaseRisk)
		}
		// Negative weights are allowed as long as no factor combination can
		// drive the multiplier below zero.
		worst := 1.0
		for _, w := range c.Weights {
			if w.Factor == "" {
				return nil, fmt.Errorf("category %q: weight with empty factor", c.ID)
			}
			if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
				return nil, fmt.Errorf("category %q: factor %q has non-finite weight", c.ID, w.Factor)
			}
			if w.Weight < 0 {
				worst += w.Weight
			}
		}
		if worst < 0 {
			return nil, fmt.Errorf("category %q: negative weights can push the multiplier to %v", c.ID, worst)
		}
		r.index[c.ID] = len(r.categories)
		r.categories = append(r.categories, cloneCategory(c))
	}
	for name, p := range fallbacks {
		if !inUnitInterval(p) {
			return nil, fmt.Errorf("fallback probability for %q outside [0,1]", name)
		}
		r.fallbacks[name] = p
	}
	return r, nil
}

// Categories returns the categories in registry order.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	for i, c := range r.categories {
		out[i] = cloneCategory(c)
	}
	return out
}

// Category looks up a category by id.
func (r *Registry) Category(id string) (Category, bool) {
	i, ok := r.index[id]
	if !ok {
		return Category{}, false
	}
	return cloneCategory(r.categories[i]), true
}

// Len is the number of categories.
func (r *Registry) Len() int { return len(r.categories) }

// FallbackProbabilities returns the per-factor probability used when a
// factor is synthesized.
func (r *Registry) FallbackProbabilities() map[string]float64 {
	out := make(map[string]float64, len(r.fallbacks))
	for k, v := range r.fallbacks {
		out[k] = v
	}
	return out
}

// GeneralRecommendations apply to every patient regardless of risk.
func (r *Registry) GeneralRecommendations() []string {
	return append([]string(nil), r.general...)
}

// FollowUp returns the follow-up schedule.
func (r *Registry) FollowUp() FollowUp { return r.followUp }

func cloneCategory(c Category) Category {
	c.Weights = append([]Weight(nil), c.Weights...)
	c.Recommendations = append([]string(nil), c.Recommendations...)
	return c
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
