package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestTuning_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(t *Tuning)
		wantErr bool
	}{
		{name: "defaults", modify: func(t *Tuning) {}},
		{name: "zero tick rate", modify: func(t *Tuning) { t.TickRate = 0 }, wantErr: true},
		{name: "one compound", modify: func(t *Tuning) { t.Compounds = t.Compounds[:1] }, wantErr: true},
		{name: "crash chance > 1", modify: func(t *Tuning) { t.CrashChance = 1.5 }, wantErr: true},
		{name: "zero max speed", modify: func(t *Tuning) { t.CarMaxSpeed = 0 }, wantErr: true},
		{name: "bad threshold", modify: func(t *Tuning) { t.Compounds[0].Threshold = 100 }, wantErr: true},
		{name: "zero warmup speed", modify: func(t *Tuning) { t.WarmupSpeed = 0 }, wantErr: true},
		{name: "zero safety car max speed", modify: func(t *Tuning) { t.SafetyCarMaxSpeed = 0 }, wantErr: true},
		{name: "negative pit stationary ticks", modify: func(t *Tuning) { t.PitStationaryTicks = -1 }, wantErr: true},
		{name: "negative pit travel ticks", modify: func(t *Tuning) { t.PitTravelTicks = -1 }, wantErr: true},
		{name: "negative warmup stagger", modify: func(t *Tuning) { t.WarmupStagger = -1 }, wantErr: true},
		{name: "negative countdown", modify: func(t *Tuning) { t.CountdownTicks = -1 }, wantErr: true},
		{name: "zero pit stop ticks", modify: func(t *Tuning) { t.PitStationaryTicks = 0; t.PitTravelTicks = 0 }},
		{
			name:    "corner order",
			modify:  func(t *Tuning) { t.FastCorner = 1; t.SlowCorner = 0.5 },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := DefaultTuning()
			tt.modify(tuning)
			err := tuning.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidTuning), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTuning_ParseCompound(t *testing.T) {
	tuning := DefaultTuning()
	id, err := tuning.ParseCompound("Soft")
	assert.NoError(t, err)
	assert.Equal(t, Soft, id)
	assert.Equal(t, "soft", tuning.Compound(id).Name)

	_, err = tuning.ParseCompound("wet")
	assert.Error(t, err)
	assert.Equal(t, []CompoundID{Hard, Medium, Soft}, tuning.CompoundIDs())
}

func TestTuning_QualifyingTicks(t *testing.T) {
	tuning := DefaultTuning()
	tuning.QualifyingMinutes = 2
	assert.Equal(t, 2*60*30, tuning.QualifyingTicks())
}

func TestRoster_Entries(t *testing.T) {
	r := Roster{Teams: []Team{
		{Name: "Red", Color: "FF0000", Drivers: []Driver{{Name: "A", Number: 1}, {Name: "B", Number: 2}}},
		{Name: "Blue", Color: "0000FF", Drivers: []Driver{{Name: "C", Number: 3}}},
	}}
	want := []Entry{
		{Index: 0, TeamIndex: 0, Team: "Red", Color: "FF0000", Driver: Driver{Name: "A", Number: 1}},
		{Index: 1, TeamIndex: 0, Team: "Red", Color: "FF0000", Driver: Driver{Name: "B", Number: 2}},
		{Index: 2, TeamIndex: 1, Team: "Blue", Color: "0000FF", Driver: Driver{Name: "C", Number: 3}},
	}
	if diff := cmp.Diff(want, r.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, r.Validate())
	assert.Equal(t, r.Seed(), r.Seed())
}

func TestRoster_Validate(t *testing.T) {
	empty := Roster{}
	assert.ErrorIs(t, empty.Validate(), ErrEmptyRoster)

	dup := Roster{Teams: []Team{
		{Name: "Red", Drivers: []Driver{{Name: "A", Number: 7}, {Name: "B", Number: 7}}},
	}}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidRoster)
}

func TestStyle(t *testing.T) {
	for _, s := range Styles() {
		got, err := ParseStyle(s.String())
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Greater(t, Conservative.ThresholdScale(), Aggressive.ThresholdScale())
	_, err := ParseStyle("reckless")
	assert.Error(t, err)
}

func TestDrawAttributes(t *testing.T) {
	r := NewRand(42)
	for range 100 {
		a := DrawAttributes(r, 0.8, 1.2)
		for _, v := range []float64{a.Engine, a.Aero, a.Gearbox, a.Suspension, a.Brake} {
			assert.GreaterOrEqual(t, v, 0.8)
			assert.Less(t, v, 1.2)
		}
	}
}
