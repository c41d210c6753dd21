package model

import "fmt"

// Style describes how aggressively a team runs its tires
type Style int

const (
	Balanced Style = iota
	Conservative
	Aggressive
)

var styleNames = map[Style]string{
	Balanced:     "balanced",
	Conservative: "conservative",
	Aggressive:   "aggressive",
}

func (s Style) String() string {
	if n, ok := styleNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// ThresholdScale scales the wear threshold at which a stint is considered over.
// Conservative teams stop earlier, aggressive ones push into the cliff.
func (s Style) ThresholdScale() float64 {
	switch s {
	case Conservative:
		return 1.2
	case Aggressive:
		return 0.8
	default:
		return 1.0
	}
}

func ParseStyle(name string) (Style, error) {
	for k, v := range styleNames {
		if v == name {
			return k, nil
		}
	}
	return Balanced, fmt.Errorf("unknown style %q", name)
}

// Styles lists all styles in a stable order
func Styles() []Style {
	return []Style{Balanced, Conservative, Aggressive}
}
