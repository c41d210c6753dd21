package physics

import (
	"math"

	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/track"
)

// Result describes what happened during Advance
type Result struct {
	Eff     model.Attributes // attributes used for this tick
	FuelOut bool             // the tank ran dry this tick
	Covered float64          // distance moved
}

// Advance runs one free running tick of a car on the main track:
// wear, fuel, speed, temperature and movement. Inactive states are left
// untouched. Running out of fuel stops the car before it moves.
func Advance(tr *track.Track, t *model.Tuning, s *State, d Draft) Result {
	if !s.Active {
		return Result{Eff: s.Attrs}
	}
	s.PrevDistance = s.Distance
	eff := s.Slipstream.Effective(t, s.Attrs, d)

	Wear(t, s)
	if Burn(t, s, eff.Engine) {
		return Result{Eff: eff, FuelOut: true}
	}
	before := s.Speed
	Step(tr, t, s, eff)
	Heat(t, s, tr.CornerSeverity(s.Distance), before-s.Speed)

	s.Distance = tr.Wrap(s.Distance + s.Speed)
	return Result{Eff: eff, Covered: s.Speed}
}

// Follow runs one tick like Advance but drives toward an externally given
// target speed capped at top. Used for formation driving behind the safety car.
func Follow(tr *track.Track, t *model.Tuning, s *State, target, top float64) Result {
	if !s.Active {
		return Result{Eff: s.Attrs}
	}
	s.PrevDistance = s.Distance
	eff := s.Attrs

	Wear(t, s)
	if Burn(t, s, eff.Engine) {
		return Result{Eff: eff, FuelOut: true}
	}
	before := s.Speed
	s.TargetSpeed = target
	s.Speed = Approach(t, s, eff, target, top, math.Min(top, TopSpeed(t, s, eff)))
	Heat(t, s, tr.CornerSeverity(s.Distance), before-s.Speed)

	s.Distance = tr.Wrap(s.Distance + s.Speed)
	return Result{Eff: eff, Covered: s.Speed}
}
