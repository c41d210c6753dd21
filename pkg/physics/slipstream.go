package physics

import "github.com/mpapenbr/racesim/pkg/model"

// NoCar marks the absence of a slipstream target
const NoCar = -1

// Slipstream is the draft state of a car. Modifiers are derived from it
// once per tick and never written back to the base attributes.
type Slipstream struct {
	Target   int `json:"target"`   // car currently drafted, NoCar if none
	Timer    int `json:"timer"`    // remaining ticks with slipstream bonus
	Cooldown int `json:"cooldown"` // remaining ticks of the penalty after being passed
}

// Draft describes the surroundings of a car for one tick
type Draft struct {
	AheadID      int     // nearest active car ahead, NoCar if none
	AheadGap     float64 // forward gap to AheadID
	PassedTarget bool    // the previously drafted car is now behind
	Cornering    bool    // the car is in a corner (any class but straight)
}

func NewSlipstream() Slipstream {
	return Slipstream{Target: NoCar}
}

// Penalize starts the cooldown of a car which just got passed
func (s *Slipstream) Penalize(ticks int) {
	s.Cooldown = max(s.Cooldown, ticks)
}

// Reset drops all slipstream state (used after pit stops and safety car periods)
func (s *Slipstream) Reset() {
	*s = NewSlipstream()
}

// Active reports whether the bonus timer is running
func (s *Slipstream) Active() bool {
	return s.Timer > 0
}

// Effective advances the slipstream by one tick and returns the attributes
// to use for this tick.
func (s *Slipstream) Effective(t *model.Tuning, base model.Attributes, d Draft) model.Attributes {
	eff := base
	if s.Cooldown > 0 {
		s.Cooldown--
		eff.Engine *= t.SlipstreamPenalty
	}
	if d.PassedTarget && s.Target != NoCar {
		s.Timer += t.SlipstreamBonus
		s.Target = NoCar
	}
	dirty := false
	if d.AheadID != NoCar && d.AheadGap <= t.SlipstreamRange {
		s.Target = d.AheadID
		s.Timer = max(s.Timer, t.SlipstreamTicks)
		dirty = d.Cornering && d.AheadGap >= t.DirtyAirMinGap
	}
	if dirty {
		eff.Aero *= t.DirtyAirAero
	}
	if s.Timer > 0 {
		s.Timer--
		if !dirty {
			eff.Engine *= t.SlipstreamEngine
		}
	}
	return eff
}
