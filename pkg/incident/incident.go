// Package incident resolves close encounters between cars.
package incident

import (
	"sort"

	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/track"
)

type Kind int

const (
	None Kind = iota
	Overtake
	Crash
	Mistake
)

func (k Kind) String() string {
	switch k {
	case Overtake:
		return "overtake"
	case Crash:
		return "crash"
	case Mistake:
		return "mistake"
	default:
		return "none"
	}
}

// Contender is the view of a car the resolver works on.
// Distance is a main track arc-length.
type Contender struct {
	ID             int
	Distance       float64
	Crashed        bool
	Active         bool
	InPitLane      bool
	SafetyCar      bool
	UnderSafetyCar bool
}

func (c Contender) eligible() bool {
	return c.Active && !c.Crashed && !c.InPitLane && !c.SafetyCar && !c.UnderSafetyCar
}

// Outcome of a resolution. Target is the car involved (overtakes),
// NewDistance the position after an overtake, SpeedFactor the remaining
// speed after a mistake.
type Outcome struct {
	Kind        Kind
	Target      int
	NewDistance float64
	SpeedFactor float64
}

type (
	Option   func(*Resolver)
	Resolver struct {
		tuning *model.Tuning
		track  *track.Track
		rnd    model.Rand
		l      *log.Logger
	}
)

func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		r.l = l
	}
}

func New(tr *track.Track, t *model.Tuning, rnd model.Rand, opts ...Option) *Resolver {
	ret := &Resolver{
		tuning: t,
		track:  tr,
		rnd:    rnd,
		l:      log.Default().Named("incident"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Candidates returns the eligible cars within the overtake gap ahead of
// subject, nearest first. Cars at the same distance count as ahead.
func (r *Resolver) Candidates(subject Contender, all []Contender) []Contender {
	if !subject.eligible() {
		return nil
	}
	ret := lo.Filter(all, func(c Contender, _ int) bool {
		if c.ID == subject.ID || !c.eligible() {
			return false
		}
		return r.track.Gap(subject.Distance, c.Distance) <= r.tuning.OvertakeGap
	})
	sort.SliceStable(ret, func(i, j int) bool {
		return r.track.Gap(subject.Distance, ret[i].Distance) <
			r.track.Gap(subject.Distance, ret[j].Distance)
	})
	return ret
}

// Resolve runs the trials for every candidate pair. Per pair the trials are
// independent and short-circuit: overtake, else crash, else mistake.
// An overtake or a crash ends the evaluation, a mistake does not.
func (r *Resolver) Resolve(subject Contender, candidates []Contender) Outcome {
	ret := Outcome{Kind: None, Target: -1, SpeedFactor: 1}
	for _, c := range candidates {
		switch {
		case r.rnd.Float64() < r.tuning.OvertakeChance:
			r.l.Debug("overtake", log.Int("car", subject.ID), log.Int("passed", c.ID))
			return Outcome{
				Kind:        Overtake,
				Target:      c.ID,
				NewDistance: r.track.Wrap(c.Distance + r.tuning.PassMargin),
				SpeedFactor: 1,
			}
		case r.rnd.Float64() < r.tuning.CrashChance:
			r.l.Debug("crash", log.Int("car", subject.ID), log.Int("with", c.ID))
			return Outcome{Kind: Crash, Target: c.ID, SpeedFactor: 0}
		case r.rnd.Float64() < r.tuning.MistakeChance:
			if ret.Kind == None {
				ret = Outcome{Kind: Mistake, Target: c.ID, SpeedFactor: 1 - r.tuning.MistakeSpeedLoss}
			}
		}
	}
	return ret
}
