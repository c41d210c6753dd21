package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/car"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/track"
)

var ErrNoPitLane = errors.New("qualifying needs a track with pit lane")

// Qualifying runs a timed qualifying session. Every car leaves the pit lane
// after a random delay and does its runs (out lap, timed lap, in lap).
type Qualifying struct {
	*runner
	id            uuid.UUID
	tuning        *model.Tuning
	cars          []*car.Car
	announcements *Announcements
	tick          int
	ticksLeft     int
	over          bool
	l             *log.Logger
}

func NewQualifying(tr *track.Track, roster *model.Roster, t *model.Tuning, opts ...Option) (*Qualifying, error) {
	entries, err := validate(roster, t)
	if err != nil {
		return nil, err
	}
	if !tr.HasPitLane() {
		return nil, ErrNoPitLane
	}
	o := newOptions("qualifying", opts...)
	seed := o.seed.GetOr(roster.Seed())
	attrs, styles := drawCars(t, entries, seed)
	rnd := model.NewRand(seed + 3)

	ret := &Qualifying{
		runner:        newRunner("qualifying", t.TickRate, o),
		id:            uuid.New(),
		tuning:        t,
		announcements: NewAnnouncements(t.AnnouncementTicks),
		ticksLeft:     t.QualifyingTicks(),
		l:             o.l,
	}
	ret.cars = lo.Map(entries, func(e model.Entry, i int) *car.Car {
		mode := car.QualifyingMode{
			Phase:     car.InPit,
			RunsLeft:  t.QualifyingRuns,
			ExitDelay: rnd.IntN(t.QualifyingMaxExitDelay + 1),
		}
		return car.New(e, attrs[i], mode, t, tr,
			car.WithStyle(styles[i]),
			car.WithLogger(o.l.Named("car")))
	})
	ret.announcements.Add("Qualifying has started.", 0)
	ret.l.Info("qualifying created",
		log.String("session", ret.id.String()),
		log.Int("cars", len(entries)),
		log.Int("ticks", ret.ticksLeft))
	return ret, nil
}

func (q *Qualifying) ID() string {
	return q.id.String()
}

func (q *Qualifying) Cars() []*car.Car {
	return q.cars
}

func (q *Qualifying) Announcements() *Announcements {
	return q.announcements
}

// Over reports whether the time is up or no car has a run left
func (q *Qualifying) Over() bool {
	return q.over
}

// Run drives the session until it is over, ctx is done or CmdStop is received
func (q *Qualifying) Run(ctx context.Context, inbox <-chan Command) error {
	return q.run(ctx, q, inbox)
}

func (q *Qualifying) handle(Command) {}

// Tick advances the session by one tick
func (q *Qualifying) Tick() *Snapshot {
	if q.over {
		return q.snapshot()
	}
	q.tick++
	q.ticksLeft = max(0, q.ticksLeft-1)
	q.announcements.Tick()
	ctx := car.Context{Tick: q.tick, TicksLeft: q.ticksLeft}
	for _, c := range q.cars {
		for _, e := range c.UpdateQualifying(ctx) {
			q.l.Debug("event", log.String("event", e.String()))
			if e.Kind == car.EventFuelOut {
				q.announcements.Add(fmt.Sprintf("Car %d ran out of fuel!", e.Number), q.tuning.CrashAnnounceTicks)
			}
		}
	}
	if q.ticksLeft == 0 || lo.EveryBy(q.cars, func(c *car.Car) bool { return c.Done() }) {
		q.over = true
		q.announcements.Add("Qualifying finished!", finishedTicks)
		q.l.Info("qualifying finished", log.Int("tick", q.tick))
	}
	return q.snapshot()
}

// StartingGrid returns the roster indices ordered by best lap. Cars without
// a lap time start from the back in roster order.
func (q *Qualifying) StartingGrid() []int {
	return lo.Map(qualifyingOrder(q.cars), func(c *car.Car, _ int) int { return c.ID() })
}

func (q *Qualifying) Results() []Standing {
	return qualifyingStandings(q.tuning, q.cars)
}

func (q *Qualifying) snapshot() *Snapshot {
	return &Snapshot{
		SessionID:     q.id.String(),
		Kind:          "qualifying",
		Tick:          q.tick,
		Phase:         lo.Ternary(q.over, "finished", "running"),
		TimeLeft:      float64(q.ticksLeft) / float64(q.tuning.TickRate),
		Cars:          lo.Map(q.cars, func(c *car.Car, _ int) car.View { return c.View() }),
		Standings:     q.Results(),
		Announcements: q.announcements.Pending(),
	}
}
