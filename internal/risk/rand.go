package risk

import (
	"math/rand"
	"sync"
	"time"
)

// Source supplies uniform values in [0,1). It drives both the calculator
// jitter and synthesized factors.
type Source interface {
	Float64() float64
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// NewSource returns a goroutine-safe pseudo-random source. A zero seed
// seeds from the clock.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

// FixedSource cycles through a fixed list of values. An empty list always
// yields 0.5.
type FixedSource struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func NewFixedSource(values ...float64) *FixedSource {
	return &FixedSource{values: values}
}

func (s *FixedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0.5
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
