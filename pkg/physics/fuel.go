package physics

import "github.com/mpapenbr/racesim/pkg/model"

// Burn consumes fuel for one tick. Returns true if the tank ran dry,
// in which case the car is marked crashed and inactive.
func Burn(t *model.Tuning, s *State, engine float64) bool {
	s.Fuel -= t.FuelCoefficient * s.Speed * engine
	if s.Fuel > 0 {
		return false
	}
	s.Fuel = 0
	s.Crashed = true
	s.Active = false
	return true
}

// WeightFactor is 1 on a full tank and grows while fuel burns
func WeightFactor(t *model.Tuning, fuel float64) float64 {
	return 1 + t.WeightEffect*(1-fuel/t.FuelCapacity)
}
