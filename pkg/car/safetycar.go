package car

import (
	"math"

	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/pkg/incident"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/track"
)

// SafetyCarID is the id used for the safety car in the field
const SafetyCarID = -2

// SafetyCar leads the field at pace speed. It has no tire or fuel model.
// Once exiting it leaves the track at the pit entrance.
type SafetyCar struct {
	tuning       *model.Tuning
	track        *track.Track
	distance     float64
	prevDistance float64
	speed        float64
	exiting      bool
	active       bool
}

// NewSafetyCar puts the safety car on the track at the pit exit
func NewSafetyCar(t *model.Tuning, tr *track.Track) *SafetyCar {
	return &SafetyCar{
		tuning:       t,
		track:        tr,
		distance:     tr.PitExit(),
		prevDistance: tr.PitExit(),
		speed:        t.SafetyCarSpeed,
		active:       true,
	}
}

func (s *SafetyCar) Distance() float64 {
	return s.distance
}

func (s *SafetyCar) Speed() float64 {
	return s.speed
}

func (s *SafetyCar) Active() bool {
	return s.active
}

func (s *SafetyCar) Exiting() bool {
	return s.exiting
}

// Exit lets the safety car leave at the next pit entrance
func (s *SafetyCar) Exit() {
	s.exiting = true
}

// Update moves the safety car at pace speed
func (s *SafetyCar) Update() {
	if !s.active {
		return
	}
	s.prevDistance = s.distance
	s.speed = math.Max(s.tuning.MinSpeed, s.tuning.SafetyCarSpeed)
	s.distance = s.track.Wrap(s.distance + s.speed)
	if s.exiting && crossed(s.prevDistance, s.distance, s.track.PitEntrance()) {
		s.active = false
	}
}

func (s *SafetyCar) Contender() incident.Contender {
	return incident.Contender{
		ID:        SafetyCarID,
		Distance:  s.distance,
		Active:    s.active,
		SafetyCar: true,
	}
}

func (s *SafetyCar) View() View {
	pos := s.track.PositionAt(s.distance)
	return View{
		ID:              SafetyCarID,
		Driver:          "Safety Car",
		Phase:           lo.Ternary(s.exiting, "exiting", "leading"),
		X:               pos.X,
		Y:               pos.Y,
		Distance:        s.distance,
		Speed:           s.speed,
		Active:          s.active,
		SafetyCar:       true,
		SafetyCarEnding: s.exiting,
	}
}
