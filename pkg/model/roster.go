package model

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/pkg/utils"
)

// Roster contains the teams taking part in a session
type Roster struct {
	FormatVersion string `json:"formatVersion"`
	Teams         []Team `json:"teams"`
}

type Team struct {
	Name    string   `json:"name"`
	Color   string   `json:"color"` // hex value, e.g. "FF8700"
	Drivers []Driver `json:"drivers"`
}

type Driver struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// Entry is one car of the roster
type Entry struct {
	Index     int // position in the flattened roster
	TeamIndex int // used as pit box ordering
	Team      string
	Color     string
	Driver    Driver
}

// Attributes are the performance multipliers of a car, drawn once at creation
type Attributes struct {
	Engine     float64 `json:"engine"`
	Aero       float64 `json:"aero"`
	Gearbox    float64 `json:"gearbox"`
	Suspension float64 `json:"suspension"`
	Brake      float64 `json:"brake"`
}

// NeutralAttributes has all multipliers set to 1
func NeutralAttributes() Attributes {
	return Attributes{Engine: 1, Aero: 1, Gearbox: 1, Suspension: 1, Brake: 1}
}

// DrawAttributes draws every attribute uniformly from [lo,hi)
func DrawAttributes(r Rand, lo, hi float64) Attributes {
	return Attributes{
		Engine:     Uniform(r, lo, hi),
		Aero:       Uniform(r, lo, hi),
		Gearbox:    Uniform(r, lo, hi),
		Suspension: Uniform(r, lo, hi),
		Brake:      Uniform(r, lo, hi),
	}
}

// Entries flattens the roster in team order
func (r *Roster) Entries() []Entry {
	ret := lo.FlatMap(r.Teams, func(t Team, ti int) []Entry {
		return lo.Map(t.Drivers, func(d Driver, _ int) Entry {
			return Entry{TeamIndex: ti, Team: t.Name, Color: t.Color, Driver: d}
		})
	})
	for i := range ret {
		ret[i].Index = i
	}
	return ret
}

// Validate checks the roster has at least one driver and no duplicate numbers
func (r *Roster) Validate() error {
	entries := r.Entries()
	if len(entries) == 0 {
		return ErrEmptyRoster
	}
	dups := lo.FindDuplicatesBy(entries, func(e Entry) int { return e.Driver.Number })
	if len(dups) > 0 {
		return fmt.Errorf("%w: duplicate car number %d", ErrInvalidRoster, dups[0].Driver.Number)
	}
	return nil
}

// Seed derives a stable seed from the roster content
func (r *Roster) Seed() uint64 {
	parts := lo.Map(r.Entries(), func(e Entry, _ int) string {
		return fmt.Sprintf("%s/%d", e.Driver.Name, e.Driver.Number)
	})
	return utils.SeedFromString(strings.Join(parts, ","))
}
