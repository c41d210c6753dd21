package strategy

import (
	"math"

	"github.com/mpapenbr/racesim/pkg/model"
)

// PitDesire returns a value in [0,1] expressing the urge to pit.
// It grows with falling tire percentage, jumps once the tire gets close to
// the compound threshold and gets a bonus under safety car.
// A fuel level below the reserve always yields 1.
//
//nolint:whitespace // editor/linter issue
func PitDesire(
	t *model.Tuning,
	compound model.CompoundID,
	pct float64,
	underSafetyCar bool,
	fuel float64,
) float64 {
	if fuel < t.FuelReserve {
		return 1
	}
	worn := 1 - pct/100
	desire := worn * worn
	if pct <= t.Compound(compound).Threshold+t.PitThresholdMargin {
		desire += 0.5
	}
	if underSafetyCar {
		desire += t.SafetyCarPitBonus
	}
	return math.Max(0, math.Min(1, desire))
}

// WantsToPit compares the desire against the configured trigger
func WantsToPit(t *model.Tuning, desire float64) bool {
	return desire >= t.PitDesireTrigger
}
