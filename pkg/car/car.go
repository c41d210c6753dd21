// Package car contains the agent driving one car through a session.
package car

import (
	"math"

	"github.com/aarondl/opt/omit"
	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/incident"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/physics"
	"github.com/mpapenbr/racesim/pkg/strategy"
	"github.com/mpapenbr/racesim/pkg/track"
)

type (
	// Planner provides strategy plans
	Planner interface {
		Plan(req strategy.Request) *strategy.Plan
	}
	// Resolver resolves close encounters between cars
	Resolver interface {
		Candidates(subject incident.Contender, all []incident.Contender) []incident.Contender
		Resolve(subject incident.Contender, candidates []incident.Contender) incident.Outcome
	}
	// Context is the per tick input of a car.
	// Field contains the current positions of all cars of the session
	// (including the car itself).
	Context struct {
		Tick      int
		Field     []incident.Contender
		TicksLeft int // remaining qualifying time
	}
)

type (
	Option func(*Car)
	Car    struct {
		entry    model.Entry
		tuning   *model.Tuning
		track    *track.Track
		mode     Mode
		style    model.Style
		planner  Planner
		resolver Resolver
		l        *log.Logger

		state      physics.State
		generation int
		raceLaps   int
		underSC    bool
		scEnding   bool

		gridSlot     int
		gridDistance float64
		warmupDelay  int
		warmupDriven float64

		onPitLane   bool
		pit         PitPhase
		pitDistance float64
		pitBox      float64
		pitTimer    int
		pitIntent   bool
		stops       int
		used        []model.CompoundID
		plan        *strategy.Plan

		laps     int
		timing   bool
		lapStart int
		lapHold  int
		lapTimes []int
		best     omit.Val[int]
	}
)

func WithPlanner(p Planner) Option {
	return func(c *Car) {
		c.planner = p
	}
}

func WithResolver(r Resolver) Option {
	return func(c *Car) {
		c.resolver = r
	}
}

func WithStyle(s model.Style) Option {
	return func(c *Car) {
		c.style = s
	}
}

// WithGridSlot places the car on the given grid slot (0 is pole)
func WithGridSlot(slot int) Option {
	return func(c *Car) {
		c.gridSlot = slot
	}
}

// WithLaps sets the race distance
func WithLaps(laps int) Option {
	return func(c *Car) {
		c.raceLaps = laps
	}
}

// WithCompound sets the starting compound. Without this option a race car
// starts on the first compound of its plan, a qualifying car on the
// compound with the most grip.
func WithCompound(id model.CompoundID) Option {
	return func(c *Car) {
		c.state.Compound = id
		c.used = []model.CompoundID{id}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Car) {
		c.l = l
	}
}

//nolint:whitespace // editor/linter issue
func New(
	entry model.Entry,
	attrs model.Attributes,
	mode Mode,
	t *model.Tuning,
	tr *track.Track,
	opts ...Option,
) *Car {
	ret := &Car{
		entry:  entry,
		tuning: t,
		track:  tr,
		mode:   mode,
		style:  model.Balanced,
		state:  physics.NewState(t, attrs, model.Medium),
		l:      log.Default().Named("car"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.pitBox = ret.computePitBox()

	switch mode.(type) {
	case RaceMode:
		ret.gridDistance = tr.Wrap(tr.StartFinish() - t.GridOffset - float64(ret.gridSlot)*t.GridSpacing)
		ret.state.Distance = ret.gridDistance
		ret.state.PrevDistance = ret.gridDistance
		if ret.used == nil {
			ret.state.Compound = ret.startCompound()
			ret.used = []model.CompoundID{ret.state.Compound}
		}
		ret.replan()
	case QualifyingMode:
		if ret.used == nil {
			ret.state.Compound = ret.gripCompound()
			ret.used = []model.CompoundID{ret.state.Compound}
		}
		ret.onPitLane = true
		ret.pit = Stopped
		ret.pitDistance = ret.pitBox
		ret.state.Distance = tr.PitProjection(ret.pitBox)
		ret.state.PrevDistance = ret.state.Distance
	}
	ret.state.Refit(t, ret.state.Compound)
	return ret
}

func (c *Car) startCompound() model.CompoundID {
	if c.planner == nil {
		return model.Medium
	}
	p := c.planner.Plan(strategy.Request{LapsLeft: c.raceLaps, Style: c.style, FreeStart: true})
	return p.FirstCompound()
}

func (c *Car) gripCompound() model.CompoundID {
	return lo.MaxBy(c.tuning.CompoundIDs(), func(a, b model.CompoundID) bool {
		return c.tuning.Compound(a).Grip > c.tuning.Compound(b).Grip
	})
}

// computePitBox places the boxes of the teams along the pit lane, starting
// at PitStopFraction of the lane.
func (c *Car) computePitBox() float64 {
	if !c.track.HasPitLane() {
		return 0
	}
	l := c.track.PitLane().Length()
	box := l*c.tuning.PitStopFraction + float64(c.entry.TeamIndex)*c.tuning.PitBoxSpacing
	return math.Max(0, math.Min(box, 0.95*l))
}

func (c *Car) replan() {
	if c.planner == nil || c.raceLaps == 0 {
		return
	}
	c.plan = c.planner.Plan(strategy.Request{
		LapsLeft: max(1, c.lapsLeft()),
		Current:  c.state.Compound,
		TirePct:  c.state.TirePct,
		Style:    c.style,
		Used:     c.used,
		Stops:    c.stops,
		StartLap: c.laps + 1,
	})
}

func (c *Car) lapsLeft() int {
	return c.raceLaps - c.laps
}

func (c *Car) ID() int {
	return c.entry.Index
}

func (c *Car) Entry() model.Entry {
	return c.entry
}

func (c *Car) Mode() Mode {
	return c.mode
}

func (c *Car) Style() model.Style {
	return c.style
}

// State returns a copy of the physical state
func (c *Car) State() physics.State {
	return c.state
}

func (c *Car) Laps() int {
	return c.laps
}

func (c *Car) LapTimes() []int {
	return append([]int{}, c.lapTimes...)
}

// BestLap returns the best lap in ticks
func (c *Car) BestLap() omit.Val[int] {
	return c.best
}

func (c *Car) Stops() int {
	return c.stops
}

func (c *Car) Plan() *strategy.Plan {
	return c.plan
}

func (c *Car) Generation() int {
	return c.generation
}

func (c *Car) OnPitLane() bool {
	return c.onPitLane
}

func (c *Car) PitPhase() PitPhase {
	return c.pit
}

func (c *Car) PitIntent() bool {
	return c.pitIntent
}

func (c *Car) UnderSafetyCar() bool {
	return c.underSC
}

// SafetyCarEnding reports whether the safety car in front of this car
// announced to come in
func (c *Car) SafetyCarEnding() bool {
	return c.scEnding
}

func (c *Car) Crashed() bool {
	return c.state.Crashed
}

func (c *Car) Active() bool {
	return c.state.Active
}

func (c *Car) Finished() bool {
	m, ok := c.mode.(RaceMode)
	return ok && m.Phase == RaceFinished
}

// TotalDistance is the distance covered since the start/finish line was
// crossed the first time. Cars still behind the line have negative values.
func (c *Car) TotalDistance() float64 {
	since := c.track.SinceStartFinish(c.state.Distance)
	if !c.timing {
		since -= c.track.Length()
	}
	return float64(c.laps)*c.track.Length() + since
}

// Contender returns the view used by the incident resolver
func (c *Car) Contender() incident.Contender {
	return incident.Contender{
		ID:             c.ID(),
		Distance:       c.state.Distance,
		Crashed:        c.state.Crashed,
		Active:         c.state.Active && !c.Finished(),
		InPitLane:      c.onPitLane,
		UnderSafetyCar: c.underSC,
	}
}

// Snapshot returns a plain copy of the state for the predictor
func (c *Car) Snapshot() physics.Snapshot {
	return physics.Snapshot{
		CarID:      c.ID(),
		Generation: c.generation,
		Laps:       c.laps,
		State:      c.state,
	}
}

// Passed is called when another car overtook this one
func (c *Car) Passed() {
	c.state.Slipstream.Penalize(c.tuning.PassedCooldown)
}

func (c *Car) event(kind EventKind) Event {
	return Event{Kind: kind, CarID: c.ID(), Number: c.entry.Driver.Number, Other: -1}
}

// crossed reports whether the move from prev to cur passed line.
// A move with cur < prev wrapped around the end of the track.
func crossed(prev, cur, line float64) bool {
	if cur >= prev {
		return prev < line && cur >= line
	}
	return prev < line || cur >= line
}

// lineCrossed checks the start/finish line with hysteresis
func (c *Car) lineCrossed() bool {
	if c.lapHold > 0 {
		c.lapHold--
		return false
	}
	if crossed(c.state.PrevDistance, c.state.Distance, c.track.StartFinish()) {
		c.lapHold = c.tuning.LapCrossingHysteresis
		return true
	}
	return false
}

// completeLap handles a start/finish crossing. The first crossing only
// starts the timing.
func (c *Car) completeLap(tick int) []Event {
	if !c.timing {
		c.timing = true
		c.lapStart = tick
		return nil
	}
	c.laps++
	return c.recordLap(tick, c.laps)
}

func (c *Car) recordLap(tick, lap int) []Event {
	lapTicks := tick - c.lapStart
	c.lapStart = tick
	c.lapTimes = append(c.lapTimes, lapTicks)
	e := c.event(EventLap)
	e.Lap, e.LapTicks = lap, lapTicks
	ret := []Event{e}
	if best, ok := c.best.Get(); !ok || lapTicks < best {
		c.best = omit.From(lapTicks)
		b := e
		b.Kind = EventBestLap
		ret = append(ret, b)
	}
	return ret
}

func (c *Car) crash(kind EventKind) Event {
	c.state.Crashed = true
	c.state.Active = false
	c.generation++
	if _, ok := c.mode.(RaceMode); ok {
		c.mode = RaceMode{Phase: Crashed}
	}
	c.l.Debug("car out", log.Int("car", c.entry.Driver.Number), log.String("reason", kind.String()))
	return c.event(kind)
}
