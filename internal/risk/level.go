package risk

import "fmt"

// Level is the ordinal risk bucket derived from a percentage.
type Level int

const (
	LevelLow Level = iota
	LevelModerate
	LevelElevated
	LevelHigh
)

var levelNames = [...]string{"Low", "Moderate", "Elevated", "High"}

func (l Level) String() string {
	if l < LevelLow || l > LevelHigh {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	for i, name := range levelNames {
		if name == string(b) {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", string(b))
}

// Thresholds are the three percentage edges between the four levels.
// A percentage p is Low when p < Thresholds[0], Moderate when
// p < Thresholds[1], Elevated when p < Thresholds[2], and High otherwise,
// so the bands partition [0,100] without gaps or overlaps.
type Thresholds [3]float64

var DefaultThresholds = Thresholds{30, 50, 70}

func (t Thresholds) Validate() error {
	prev := 0.0
	for i, edge := range t {
		if edge <= prev || edge >= 100 {
			return fmt.Errorf("level threshold %d (%v) must be strictly ascending inside (0,100)", i, edge)
		}
		prev = edge
	}
	return nil
}

// LevelFor maps a percentage onto its level.
func (t Thresholds) LevelFor(percentage float64) Level {
	switch {
	case percentage < t[0]:
		return LevelLow
	case percentage < t[1]:
		return LevelModerate
	case percentage < t[2]:
		return LevelElevated
	default:
		return LevelHigh
	}
}
