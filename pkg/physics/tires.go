package physics

import (
	"math"

	"github.com/mpapenbr/racesim/pkg/model"
)

// WearPerTick returns the tire wear for one tick.
// The rate doubles once the percentage is at or below the compound threshold.
func WearPerTick(c *model.Compound, pct, suspension float64) float64 {
	rate := c.WearRate / suspension
	if pct <= c.Threshold {
		rate *= 2
	}
	return rate
}

// Wear applies one tick of tire wear to s, keeping the percentage in [1,100]
func Wear(t *model.Tuning, s *State) {
	c := t.Compound(s.Compound)
	s.TirePct = clamp(s.TirePct-WearPerTick(c, s.TirePct, s.Attrs.Suspension), 1, 100)
}

// Heat advances the tire temperature by one tick.
// severity is the corner severity in [0,1], decel the speed lost this tick.
func Heat(t *model.Tuning, s *State, severity, decel float64) {
	in := t.HeatSpeed*s.Speed + t.HeatCorner*severity + t.HeatBraking*math.Max(0, decel)
	out := (s.TireTemp - t.AmbientTemp) / t.CoolingTau
	s.TireTemp += in - out
}

// ThermalFactor is a gaussian around the optimal temperature, floored at
// the configured minimum
func ThermalFactor(t *model.Tuning, c *model.Compound, temp float64) float64 {
	d := temp - c.OptimalTemp
	g := math.Exp(-(d * d) / (2 * c.TempWindow * c.TempWindow))
	return math.Max(t.ThermalGripFloor, g)
}

// WearFactor is near flat above the threshold and drops steeply below.
func WearFactor(c *model.Compound, pct float64) float64 {
	above := func(p float64) float64 { return 1 - 0.1*(100-p)/100 }
	if pct > c.Threshold {
		return above(pct)
	}
	return above(c.Threshold) * (0.5 + 0.5*pct/c.Threshold)
}

// Grip combines compound grip with the thermal and wear factors
func Grip(t *model.Tuning, compound model.CompoundID, pct, temp float64) float64 {
	c := t.Compound(compound)
	return c.Grip * ThermalFactor(t, c, temp) * WearFactor(c, pct)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
