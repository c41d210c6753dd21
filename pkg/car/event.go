package car

import (
	"fmt"

	"github.com/mpapenbr/racesim/pkg/model"
)

type EventKind int

const (
	EventLap EventKind = iota
	EventBestLap
	EventPitEntry
	EventTireChange
	EventPitExit
	EventCrash
	EventFuelOut
	EventFinished
	EventOvertake
	EventMistake
)

func (k EventKind) String() string {
	switch k {
	case EventLap:
		return "lap"
	case EventBestLap:
		return "best lap"
	case EventPitEntry:
		return "pit entry"
	case EventTireChange:
		return "tire change"
	case EventPitExit:
		return "pit exit"
	case EventCrash:
		return "crash"
	case EventFuelOut:
		return "fuel out"
	case EventFinished:
		return "finished"
	case EventOvertake:
		return "overtake"
	case EventMistake:
		return "mistake"
	default:
		return "unknown"
	}
}

// Event is reported by a car to its session.
// Lap and LapTicks are set for lap events, Compound for tire changes,
// Other holds the id of the second car involved in overtakes.
type Event struct {
	Kind     EventKind
	CarID    int
	Number   int
	Lap      int
	LapTicks int
	Compound model.CompoundID
	Other    int
}

func (e Event) String() string {
	switch e.Kind {
	case EventLap, EventBestLap:
		return fmt.Sprintf("#%d %s %d: %d ticks", e.Number, e.Kind, e.Lap, e.LapTicks)
	case EventOvertake:
		return fmt.Sprintf("#%d %s car %d", e.Number, e.Kind, e.Other)
	default:
		return fmt.Sprintf("#%d %s", e.Number, e.Kind)
	}
}
