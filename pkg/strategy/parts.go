package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/pkg/model"
)

type (
	PartType int
	Part     interface {
		Type() PartType
		Output() string
	}
	StintPart interface {
		Part
		Compound() model.CompoundID
		Laps() int
		LapStart() int
		LapEnd() int
		StintTime() time.Duration
	}
	PitPart interface {
		Part
		PitTime() time.Duration
	}
	Result struct {
		Parts []Part
	}
)

const (
	PartTypeStint PartType = iota
	PartTypePit
)

type (
	stintPart struct {
		compound     model.CompoundID
		compoundName string
		laps         int
		lapStart     int
		lapEnd       int
		stintTime    time.Duration
	}
	pitPart struct {
		pitTime time.Duration
	}
)

func (s stintPart) Type() PartType {
	return PartTypeStint
}

func (s stintPart) Compound() model.CompoundID {
	return s.compound
}

func (s stintPart) Laps() int {
	return s.laps
}

func (s stintPart) LapStart() int {
	return s.lapStart
}

func (s stintPart) LapEnd() int {
	return s.lapEnd
}

func (s stintPart) StintTime() time.Duration {
	return s.stintTime
}

func (s stintPart) Output() string {
	return fmt.Sprintf("%s %d-%d (%d): %s",
		s.compoundName, s.lapStart, s.lapEnd, s.laps, s.stintTime.Round(time.Millisecond))
}

func (p pitPart) Type() PartType {
	return PartTypePit
}

func (p pitPart) PitTime() time.Duration {
	return p.pitTime
}

func (p pitPart) Output() string {
	return fmt.Sprintf("Pit %s", p.pitTime.Round(time.Millisecond))
}

// Stints returns the stint parts in order
func (r *Result) Stints() []StintPart {
	return lo.FilterMap(r.Parts, func(p Part, _ int) (StintPart, bool) {
		s, ok := p.(StintPart)
		return s, ok
	})
}

// Stops counts the pit parts
func (r *Result) Stops() int {
	return lo.CountBy(r.Parts, func(p Part) bool { return p.Type() == PartTypePit })
}

// Compounds returns the distinct compounds used by the stints
func (r *Result) Compounds() []model.CompoundID {
	return lo.Uniq(lo.Map(r.Stints(), func(s StintPart, _ int) model.CompoundID {
		return s.Compound()
	}))
}

func (r *Result) Laps() int {
	return lo.SumBy(r.Stints(), func(s StintPart) int { return s.Laps() })
}

func (r *Result) Output() string {
	return strings.Join(lo.Map(r.Parts, func(p Part, _ int) string { return p.Output() }), "\n")
}
