package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/car"
	"github.com/mpapenbr/racesim/pkg/incident"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/predict"
	"github.com/mpapenbr/racesim/pkg/strategy"
	"github.com/mpapenbr/racesim/pkg/track"
)

var (
	ErrEmptyRoster = model.ErrEmptyRoster
	ErrInvalidGrid = errors.New("invalid grid")
)

type Phase int

const (
	PhaseWarmup Phase = iota
	PhaseCountdown
	PhaseRacing
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseWarmup:
		return "warmup"
	case PhaseCountdown:
		return "countdown"
	case PhaseRacing:
		return "racing"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

const (
	goTicks       = 60
	finishedTicks = 180
)

// Race runs a race session. All methods except Broadcast and Run must be
// called from the goroutine driving the race.
type Race struct {
	*runner
	id            uuid.UUID
	track         *track.Track
	tuning        *model.Tuning
	laps          int
	cars          []*car.Car // roster order
	order         []*car.Car // ranking
	announcements *Announcements
	rnd           model.Rand
	predictor     *predict.Predictor
	predictions   map[int]predict.Prediction
	avgTopSpeed   float64

	phase     Phase
	tick      int
	countdown int

	sc        *car.SafetyCar
	converged bool
	scLap     int
	crashes   []int // crashed cars not yet handled by a safety car period

	ticks      metric.Int64Counter
	incidents  metric.Int64Counter
	activeCars atomic.Int64
	l          *log.Logger
}

// drawCars draws the attributes and styles of all entries. The draw only
// depends on seed, so qualifying and race of a weekend use the same cars.
func drawCars(t *model.Tuning, entries []model.Entry, seed uint64) ([]model.Attributes, []model.Style) {
	rnd := model.NewRand(seed)
	styles := model.Styles()
	attrs := make([]model.Attributes, len(entries))
	ret := make([]model.Style, len(entries))
	for i := range entries {
		attrs[i] = model.DrawAttributes(rnd, t.AttributeMin, t.AttributeMax)
		ret[i] = styles[rnd.IntN(len(styles))]
	}
	return attrs, ret
}

func validate(roster *model.Roster, t *model.Tuning) ([]model.Entry, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := roster.Validate(); err != nil {
		return nil, err
	}
	return roster.Entries(), nil
}

func checkGrid(grid []int, n int) error {
	if len(grid) != n {
		return fmt.Errorf("%w: %d slots for %d cars", ErrInvalidGrid, len(grid), n)
	}
	if dups := lo.FindDuplicates(grid); len(dups) > 0 {
		return fmt.Errorf("%w: car %d placed twice", ErrInvalidGrid, dups[0])
	}
	for _, idx := range grid {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: unknown car %d", ErrInvalidGrid, idx)
		}
	}
	return nil
}

//nolint:funlen // setup
func NewRace(tr *track.Track, roster *model.Roster, t *model.Tuning, opts ...Option) (*Race, error) {
	entries, err := validate(roster, t)
	if err != nil {
		return nil, err
	}
	o := newOptions("race", opts...)
	laps := t.Laps
	if o.laps > 0 {
		laps = o.laps
	}
	grid := o.grid
	if grid == nil {
		grid = lo.Range(len(entries))
	}
	if err = checkGrid(grid, len(entries)); err != nil {
		return nil, err
	}
	seed := o.seed.GetOr(roster.Seed())

	ret := &Race{
		runner:        newRunner("race", t.TickRate, o),
		id:            uuid.New(),
		track:         tr,
		tuning:        t,
		laps:          laps,
		announcements: NewAnnouncements(t.AnnouncementTicks),
		rnd:           model.NewRand(seed + 2),
		predictor:     o.predictor,
		predictions:   make(map[int]predict.Prediction),
		l:             o.l,
	}
	planner := strategy.NewCachedPlanner(
		strategy.New(t, strategy.EstimateLapTicks(tr, t), strategy.WithLogger(o.l.Named("strategy"))),
		time.Minute, 256)
	resolver := incident.New(tr, t, model.NewRand(seed+1), incident.WithLogger(o.l.Named("incident")))
	attrs, styles := drawCars(t, entries, seed)

	slots := make([]int, len(entries))
	for slot, idx := range grid {
		slots[idx] = slot
	}
	ret.cars = make([]*car.Car, len(entries))
	for i, e := range entries {
		ret.cars[i] = car.New(e, attrs[i], car.RaceMode{Phase: car.Grid}, t, tr,
			car.WithPlanner(planner),
			car.WithResolver(resolver),
			car.WithStyle(styles[i]),
			car.WithGridSlot(slots[i]),
			car.WithLaps(laps),
			car.WithLogger(o.l.Named("car")))
		ret.avgTopSpeed += t.CarMaxSpeed * attrs[i].Engine
	}
	ret.avgTopSpeed /= float64(len(entries))
	ret.order = lo.Map(grid, func(idx, _ int) *car.Car { return ret.cars[idx] })
	ret.activeCars.Store(int64(len(entries)))
	ret.setupMetrics(o.meter)

	if t.EnableWarmup {
		ret.phase = PhaseWarmup
		for slot, c := range ret.order {
			c.StartWarmup(slot * t.WarmupStagger)
		}
		ret.announcements.Add("Warm-up lap has started.", 0)
	} else {
		ret.startCountdown()
	}
	ret.l.Info("race created",
		log.String("session", ret.id.String()),
		log.Int("cars", len(entries)),
		log.Int("laps", laps),
		log.Any("seed", seed))
	return ret, nil
}

func (r *Race) setupMetrics(meter metric.Meter) {
	var err error
	if r.ticks, err = meter.Int64Counter("rsim.session.ticks",
		metric.WithDescription("Number of simulated ticks"),
		metric.WithUnit("{tick}")); err != nil {
		r.l.Error("failed to register metric", log.ErrorField(err))
	}
	if r.incidents, err = meter.Int64Counter("rsim.session.incidents",
		metric.WithDescription("Number of incidents by kind"),
		metric.WithUnit("{count}")); err != nil {
		r.l.Error("failed to register metric", log.ErrorField(err))
	}
	if _, err = meter.Int64ObservableGauge("rsim.session.active_cars",
		metric.WithDescription("Number of cars still in the race"),
		metric.WithUnit("{count}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(r.activeCars.Load(), metric.WithAttributes(attribute.String("session", r.id.String())))
			return nil
		})); err != nil {
		r.l.Error("failed to register metric", log.ErrorField(err))
	}
}

func (r *Race) startCountdown() {
	r.phase = PhaseCountdown
	r.countdown = r.tuning.CountdownTicks
	r.announcements.Add("Race starting soon...", 0)
}

func (r *Race) ID() string {
	return r.id.String()
}

func (r *Race) Phase() Phase {
	return r.phase
}

func (r *Race) Cars() []*car.Car {
	return r.cars
}

// Order returns the current ranking
func (r *Race) Order() []*car.Car {
	return append([]*car.Car{}, r.order...)
}

func (r *Race) Finished() bool {
	return r.phase == PhaseFinished
}

// Over is the same as Finished
func (r *Race) Over() bool {
	return r.Finished()
}

func (r *Race) SafetyCar() *car.SafetyCar {
	return r.sc
}

func (r *Race) Announcements() *Announcements {
	return r.announcements
}

// Run drives the race until it is finished, ctx is done or CmdStop is received
func (r *Race) Run(ctx context.Context, inbox <-chan Command) error {
	return r.run(ctx, r, inbox)
}

func (r *Race) handle(cmd Command) {
	if cmd == CmdDeploySafetyCar {
		r.DeploySafetyCar()
	}
}

// Results returns the classification
func (r *Race) Results() []Standing {
	return raceStandings(r.tuning, r.order, r.laps, true, r.avgTopSpeed, r.predictions)
}

// Tick advances the race by one tick
func (r *Race) Tick() *Snapshot {
	if r.phase == PhaseFinished {
		return r.snapshot()
	}
	r.tick++
	r.ticks.Add(context.Background(), 1)
	r.announcements.Tick()
	switch r.phase {
	case PhaseWarmup:
		r.updateWarmup()
	case PhaseCountdown:
		r.countdown--
		if r.countdown <= 0 {
			r.start()
		}
	case PhaseRacing:
		r.updateRacing()
	case PhaseFinished:
	}
	return r.snapshot()
}

func (r *Race) updateWarmup() {
	parked := 0
	for _, c := range r.order {
		if c.UpdateWarmup() {
			parked++
		}
	}
	if parked == len(r.order) {
		r.announcements.Add("All cars are on the grid.", 0)
		r.startCountdown()
	}
}

func (r *Race) start() {
	for _, c := range r.order {
		c.Start()
	}
	r.phase = PhaseRacing
	r.announcements.Add("Go!", goTicks)
	r.l.Info("race started", log.String("session", r.id.String()))
}

// field returns the contenders in ranking order, the safety car last
func (r *Race) field() []incident.Contender {
	ret := lo.Map(r.order, func(c *car.Car, _ int) incident.Contender { return c.Contender() })
	if r.sc != nil {
		ret = append(ret, r.sc.Contender())
	}
	return ret
}

func (r *Race) updateRacing() {
	if r.sc != nil {
		r.sc.Update()
		if !r.sc.Active() {
			r.endSafetyCar()
		}
	}
	ctx := car.Context{Tick: r.tick, Field: r.field()}
	if r.sc != nil {
		r.updateUnderSafetyCar(ctx)
	} else {
		for i, c := range r.order {
			r.handleEvents(c.Update(ctx))
			ctx.Field[i] = c.Contender()
		}
	}
	if r.phase == PhaseFinished {
		return
	}
	r.rollSafetyCar()
	if r.sc == nil {
		r.rank()
	}
	r.updatePredictions()
	active := lo.CountBy(r.cars, func(c *car.Car) bool { return c.Active() })
	r.activeCars.Store(int64(active))
	if active == 0 {
		r.finish("All cars are out!")
	}
}

func (r *Race) handleEvents(events []car.Event) {
	for _, e := range events {
		r.l.Debug("event", log.String("event", e.String()))
		switch e.Kind {
		case car.EventOvertake:
			if e.Other >= 0 && e.Other < len(r.cars) {
				r.cars[e.Other].Passed()
			}
			r.countIncident(incident.Overtake.String())
		case car.EventMistake:
			r.countIncident(incident.Mistake.String())
		case car.EventCrash:
			r.countIncident(incident.Crash.String())
			r.crashes = append(r.crashes, e.CarID)
			r.announcements.Add(fmt.Sprintf("Car %d crashed!", e.Number), r.tuning.CrashAnnounceTicks)
		case car.EventFuelOut:
			r.countIncident("fuelOut")
			r.crashes = append(r.crashes, e.CarID)
			r.announcements.Add(fmt.Sprintf("Car %d ran out of fuel!", e.Number), r.tuning.CrashAnnounceTicks)
		case car.EventFinished:
			r.finish("Race finished!")
		case car.EventLap, car.EventBestLap, car.EventPitEntry, car.EventTireChange, car.EventPitExit:
		}
	}
}

func (r *Race) countIncident(kind string) {
	r.incidents.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (r *Race) finish(msg string) {
	if r.phase == PhaseFinished {
		return
	}
	for _, c := range r.cars {
		c.Finish()
	}
	r.phase = PhaseFinished
	r.announcements.Add(msg, finishedTicks)
	r.l.Info("race finished", log.String("session", r.id.String()), log.Int("tick", r.tick))
}

// rank orders the cars by covered distance. Crashed cars go to the end in
// the order they were in.
func (r *Race) rank() {
	dist := lo.SliceToMap(r.order, func(c *car.Car) (int, float64) { return c.ID(), c.TotalDistance() })
	sort.SliceStable(r.order, func(i, j int) bool {
		a, b := r.order[i], r.order[j]
		if a.Crashed() != b.Crashed() {
			return !a.Crashed()
		}
		if a.Crashed() {
			return false
		}
		return dist[a.ID()] > dist[b.ID()]
	})
}

func (r *Race) updatePredictions() {
	if r.predictor == nil {
		return
	}
	for _, c := range r.cars {
		if p, ok := r.predictor.Poll(c.ID(), c.Generation()); ok {
			r.predictions[c.ID()] = p
		}
		if c.Active() && !c.OnPitLane() {
			r.predictor.Schedule(c.Snapshot())
		}
	}
}

// Prediction returns the latest valid prediction for the car
func (r *Race) Prediction(carID int) (predict.Prediction, bool) {
	p, ok := r.predictions[carID]
	if !ok || carID < 0 || carID >= len(r.cars) || p.Generation != r.cars[carID].Generation() {
		return predict.Prediction{}, false
	}
	return p, true
}

func (r *Race) leaderLap() int {
	if len(r.order) == 0 {
		return 0
	}
	return min(r.laps, r.order[0].Laps()+1)
}

func (r *Race) snapshot() *Snapshot {
	views := lo.Map(r.order, func(c *car.Car, _ int) car.View { return c.View() })
	scState := ""
	if r.sc != nil {
		views = append(views, r.sc.View())
		scState = lo.Ternary(r.sc.Exiting(), "ending", "deployed")
	}
	return &Snapshot{
		SessionID:     r.id.String(),
		Kind:          "race",
		Tick:          r.tick,
		Phase:         r.phase.String(),
		Lap:           r.leaderLap(),
		Laps:          r.laps,
		SafetyCar:     scState,
		Cars:          views,
		Standings:     raceStandings(r.tuning, r.order, r.laps, r.phase >= PhaseRacing, r.avgTopSpeed, r.predictions),
		Announcements: r.announcements.Pending(),
	}
}
