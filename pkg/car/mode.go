package car

// Mode is either RaceMode or QualifyingMode
type Mode interface {
	isMode()
	String() string
}

type RacePhase int

const (
	Grid RacePhase = iota
	Warmup
	Racing
	ToPitlane
	InPitlane
	UnderSafetyCar
	Crashed
	RaceFinished
)

func (p RacePhase) String() string {
	switch p {
	case Grid:
		return "grid"
	case Warmup:
		return "warmup"
	case Racing:
		return "racing"
	case ToPitlane:
		return "to pitlane"
	case InPitlane:
		return "in pitlane"
	case UnderSafetyCar:
		return "safety car"
	case Crashed:
		return "crashed"
	case RaceFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// PitPhase is the sub state while a car is on the pit lane.
// Both modes use the pit lane.
type PitPhase int

const (
	Stopping PitPhase = iota
	Stopped
	Exiting
)

func (p PitPhase) String() string {
	switch p {
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "exiting"
	}
}

type RaceMode struct {
	Phase RacePhase
}

func (RaceMode) isMode() {}

func (m RaceMode) String() string {
	return m.Phase.String()
}

type QualifyingPhase int

const (
	InPit QualifyingPhase = iota
	OutLap
	FastLap
	InLap
)

func (p QualifyingPhase) String() string {
	switch p {
	case InPit:
		return "in pit"
	case OutLap:
		return "out lap"
	case FastLap:
		return "fast lap"
	default:
		return "in lap"
	}
}

type QualifyingMode struct {
	Phase     QualifyingPhase
	RunsLeft  int
	ExitDelay int // ticks to wait in the pit before the next run
}

func (QualifyingMode) isMode() {}

func (m QualifyingMode) String() string {
	return m.Phase.String()
}
