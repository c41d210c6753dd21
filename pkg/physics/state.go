// Package physics contains the per tick model of a car on the main track:
// tire wear and temperature, fuel consumption, speed control and slipstream.
package physics

import (
	"github.com/mpapenbr/racesim/pkg/model"
)

// State is the plain data advanced by the physics step.
// It contains no references to shared session data so it can be copied
// freely (see Snapshot).
type State struct {
	Distance     float64 `json:"distance"`
	PrevDistance float64 `json:"prevDistance"`
	Speed        float64 `json:"speed"`
	TargetSpeed  float64 `json:"targetSpeed"`

	Compound model.CompoundID `json:"compound"`
	TirePct  float64          `json:"tirePct"`
	TireTemp float64          `json:"tireTemp"`
	Fuel     float64          `json:"fuel"`

	Attrs      model.Attributes `json:"attrs"`
	Slipstream Slipstream       `json:"slipstream"`

	Crashed bool `json:"crashed"`
	Active  bool `json:"active"`
}

// NewState creates a fresh state on new tires with a full tank
func NewState(t *model.Tuning, attrs model.Attributes, compound model.CompoundID) State {
	return State{
		Compound:   compound,
		TirePct:    100,
		TireTemp:   t.BlanketTemp,
		Fuel:       t.FuelCapacity,
		Attrs:      attrs,
		Slipstream: NewSlipstream(),
		Active:     true,
	}
}

// Snapshot is the copy of a car handed to the predictor
type Snapshot struct {
	CarID      int   `json:"carId"`
	Generation int   `json:"generation"`
	Laps       int   `json:"laps"`
	State      State `json:"state"`
}

// Refit puts a fresh set of tires on the car
func (s *State) Refit(t *model.Tuning, compound model.CompoundID) {
	s.Compound = compound
	s.TirePct = 100
	s.TireTemp = t.BlanketTemp
}

// Refuel fills the tank
func (s *State) Refuel(t *model.Tuning) {
	s.Fuel = t.FuelCapacity
}
