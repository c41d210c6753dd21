package physics

import (
	"math"

	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/track"
)

// TopSpeed is the speed cap of a car. It drops to the limp speed once the
// tires are below the blowout percentage and never reaches zero.
func TopSpeed(t *model.Tuning, s *State, eff model.Attributes) float64 {
	top := t.CarMaxSpeed * eff.Engine
	if s.TirePct < t.BlowoutPercentage {
		top = math.Min(top, t.LimpSpeed)
	}
	return math.Max(top, t.MinSpeed)
}

// CornerAttribute returns the attribute dominating the speed cap of a corner class
func CornerAttribute(c track.CornerClass, eff model.Attributes) float64 {
	switch c {
	case track.FastCorner:
		return eff.Aero
	case track.MediumCorner:
		return (eff.Aero + eff.Suspension) / 2
	case track.SlowCorner:
		return (eff.Brake + eff.Suspension) / 2
	default:
		return eff.Engine
	}
}

func cornerSpeed(t *model.Tuning, c track.CornerClass) float64 {
	switch c {
	case track.FastCorner:
		return t.CornerSpeeds.Fast
	case track.MediumCorner:
		return t.CornerSpeeds.Medium
	case track.SlowCorner:
		return t.CornerSpeeds.Slow
	default:
		return t.CornerSpeeds.Straight
	}
}

// Acceleration returns the speed gain per tick
func Acceleration(t *model.Tuning, s *State, eff model.Attributes) float64 {
	return t.BaseAcceleration * eff.Engine * eff.Gearbox * WeightFactor(t, s.Fuel)
}

// Approach moves speed toward target. Below target the car accelerates but
// never beyond min(target, accelCap). Above target braking acts like a
// spring toward target and ignores accelCap.
// The result is clamped to [MinSpeed, top].
//
//nolint:whitespace // editor/linter issue
func Approach(
	t *model.Tuning,
	s *State,
	eff model.Attributes,
	target, accelCap, top float64,
) float64 {
	speed := s.Speed
	switch {
	case speed < target:
		limit := math.Min(target, accelCap)
		if speed < limit {
			speed = math.Min(speed+Acceleration(t, s, eff), limit)
		}
	case speed > target:
		speed -= t.BrakeIntensity * eff.Brake * (speed - target) * t.BrakeGain
		speed = math.Max(speed, target)
	}
	return clamp(speed, t.MinSpeed, top)
}

// Target computes the target speed and the corner derived acceleration cap
// at the current position of s
//
//nolint:whitespace // editor/linter issue
func Target(
	tr *track.Track,
	t *model.Tuning,
	s *State,
	eff model.Attributes,
) (target, accelCap float64) {
	tire := Grip(t, s.Compound, s.TirePct, s.TireTemp)
	target = tr.DesiredSpeedAt(s.Distance) * eff.Aero * eff.Engine * tire
	class := tr.Corner(s.Distance)
	accelCap = t.CarMaxSpeed * cornerSpeed(t, class) * CornerAttribute(class, eff) * tire
	return target, accelCap
}

// Step runs the speed controller for one tick and updates speed and target of s
func Step(tr *track.Track, t *model.Tuning, s *State, eff model.Attributes) {
	target, accelCap := Target(tr, t, s, eff)
	s.TargetSpeed = target
	s.Speed = Approach(t, s, eff, target, accelCap, TopSpeed(t, s, eff))
}
