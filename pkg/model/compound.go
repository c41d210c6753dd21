package model

import (
	"fmt"
	"strings"
)

type CompoundID int

const (
	Hard CompoundID = iota
	Medium
	Soft
)

// Compound describes the wear and grip characteristics of a tire type
type Compound struct {
	Name        string  `json:"name" mapstructure:"name"`
	WearRate    float64 `json:"wearRate" mapstructure:"wearRate"`       // percent per tick
	Grip        float64 `json:"grip" mapstructure:"grip"`               // grip multiplier on fresh tires
	Threshold   float64 `json:"threshold" mapstructure:"threshold"`     // wear doubles at or below this percentage
	OptimalTemp float64 `json:"optimalTemp" mapstructure:"optimalTemp"` // center of the thermal window
	TempWindow  float64 `json:"tempWindow" mapstructure:"tempWindow"`   // sigma of the thermal window
}

func DefaultCompounds() []Compound {
	return []Compound{
		{Name: "hard", WearRate: 0.005, Grip: 0.9, Threshold: 25, OptimalTemp: 85, TempWindow: 25},
		{Name: "medium", WearRate: 0.01, Grip: 1.0, Threshold: 35, OptimalTemp: 95, TempWindow: 20},
		{Name: "soft", WearRate: 0.015, Grip: 1.1, Threshold: 50, OptimalTemp: 105, TempWindow: 15},
	}
}

// ParseCompound resolves a compound by its (case insensitive) name
func (t *Tuning) ParseCompound(name string) (CompoundID, error) {
	for i := range t.Compounds {
		if strings.EqualFold(t.Compounds[i].Name, name) {
			return CompoundID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown compound %q", name)
}

// Compound returns the compound data for id.
// Panics on unknown ids, those are programming errors.
func (t *Tuning) Compound(id CompoundID) *Compound {
	return &t.Compounds[id]
}

func (t *Tuning) CompoundIDs() []CompoundID {
	ret := make([]CompoundID, len(t.Compounds))
	for i := range t.Compounds {
		ret[i] = CompoundID(i)
	}
	return ret
}
