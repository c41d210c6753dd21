package car

import (
	"math"

	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/incident"
	"github.com/mpapenbr/racesim/pkg/physics"
	"github.com/mpapenbr/racesim/pkg/strategy"
	"github.com/mpapenbr/racesim/pkg/track"
)

func (c *Car) racePhase() (RacePhase, bool) {
	m, ok := c.mode.(RaceMode)
	return m.Phase, ok
}

func (c *Car) setPhase(p RacePhase) {
	c.mode = RaceMode{Phase: p}
}

// StartWarmup lets the car leave the grid after delay ticks for a lap at
// warmup speed
func (c *Car) StartWarmup(delay int) {
	if p, ok := c.racePhase(); !ok || p != Grid {
		return
	}
	c.setPhase(Warmup)
	c.warmupDelay = delay
	c.warmupDriven = 0
}

// UpdateWarmup moves the car during the warmup lap. Returns true once the
// car is parked on its grid slot again.
func (c *Car) UpdateWarmup() bool {
	p, ok := c.racePhase()
	if !ok {
		return true
	}
	if p != Warmup {
		return p == Grid
	}
	if c.warmupDelay > 0 {
		c.warmupDelay--
		return false
	}
	speed := c.tuning.WarmupSpeed
	c.warmupDriven += speed
	c.state.PrevDistance = c.state.Distance
	if c.warmupDriven >= c.track.Length() {
		c.state.Distance = c.gridDistance
		c.state.PrevDistance = c.gridDistance
		c.state.Speed = 0
		c.setPhase(Grid)
		return true
	}
	c.state.Speed = speed
	c.state.Distance = c.track.Wrap(c.state.Distance + speed)
	return false
}

// Start releases the car from the grid
func (c *Car) Start() {
	if p, ok := c.racePhase(); ok && p == Grid {
		c.setPhase(Racing)
	}
}

// Finish ends the race for the car
func (c *Car) Finish() {
	switch p, ok := c.racePhase(); {
	case !ok, p == Crashed, p == RaceFinished:
		return
	}
	c.setPhase(RaceFinished)
}

// Update runs one race tick
func (c *Car) Update(ctx Context) []Event {
	p, ok := c.racePhase()
	if !ok || !c.state.Active {
		return nil
	}
	switch p {
	case Racing, ToPitlane:
	case InPitlane:
		return c.updatePitLane(ctx)
	default:
		return nil
	}

	c.checkPitIntent(false)
	res := physics.Advance(c.track, c.tuning, &c.state, c.draft(ctx.Field))
	if res.FuelOut {
		return []Event{c.crash(EventFuelOut)}
	}
	var ret []Event
	if c.resolver != nil {
		subject := c.Contender()
		outcome := c.resolver.Resolve(subject, c.resolver.Candidates(subject, ctx.Field))
		switch outcome.Kind {
		case incident.Overtake:
			c.state.Distance = outcome.NewDistance
			e := c.event(EventOvertake)
			e.Other = outcome.Target
			ret = append(ret, e)
		case incident.Crash:
			return []Event{c.crash(EventCrash)}
		case incident.Mistake:
			c.state.Speed = math.Max(c.tuning.MinSpeed, c.state.Speed*outcome.SpeedFactor)
			ret = append(ret, c.event(EventMistake))
		case incident.None:
		}
	}
	return append(ret, c.afterMove(ctx)...)
}

// afterMove handles line crossings of a car moving on the main track
func (c *Car) afterMove(ctx Context) []Event {
	var ret []Event
	if c.lineCrossed() {
		ret = append(ret, c.completeLap(ctx.Tick)...)
		if c.raceLaps > 0 && c.laps >= c.raceLaps {
			c.setPhase(RaceFinished)
			return append(ret, c.event(EventFinished))
		}
	}
	if c.pitIntent && crossed(c.state.PrevDistance, c.state.Distance, c.track.PitEntrance()) {
		ret = append(ret, c.enterPitLane())
	}
	return ret
}

// checkPitIntent sets the pit intent from the pit desire. A car that still
// misses its mandatory stop always pits close to the end of the race.
func (c *Car) checkPitIntent(underSC bool) {
	if c.pitIntent || c.raceLaps == 0 {
		return
	}
	left := c.lapsLeft()
	if left <= 0 {
		return
	}
	mandatory := (c.stops == 0 || len(lo.Uniq(c.used)) < 2) && left <= c.tuning.MandatoryStopLaps
	desire := strategy.PitDesire(c.tuning, c.state.Compound, c.state.TirePct, underSC, c.state.Fuel)
	if mandatory || strategy.WantsToPit(c.tuning, desire) {
		c.pitIntent = true
		if p, _ := c.racePhase(); p == Racing {
			c.setPhase(ToPitlane)
		}
		c.l.Debug("pit intent",
			log.Int("car", c.entry.Driver.Number),
			log.Float64("desire", desire),
			log.Bool("mandatory", mandatory))
	}
}

func (c *Car) draft(field []incident.Contender) physics.Draft {
	ret := physics.Draft{AheadID: physics.NoCar}
	best := math.Inf(1)
	for _, o := range field {
		if o.ID == c.ID() || !o.Active || o.Crashed || o.InPitLane || o.SafetyCar {
			continue
		}
		gap := c.track.Gap(c.state.Distance, o.Distance)
		if gap > 0 && gap < best {
			best = gap
			ret.AheadID = o.ID
			ret.AheadGap = gap
		}
		if o.ID == c.state.Slipstream.Target && gap > c.track.Length()/2 {
			ret.PassedTarget = true
		}
	}
	ret.Cornering = c.track.Corner(c.state.Distance) != track.Straight
	return ret
}

// enterPitLane moves the car from the main track onto the pit lane and
// decides the compound for the stop
func (c *Car) enterPitLane() Event {
	c.onPitLane = true
	c.pit = Stopping
	c.pitDistance = 0
	c.moveOnPitLane(0)
	c.state.Speed = c.tuning.PitLaneSpeed
	c.state.PrevDistance = c.state.Distance
	c.setPhase(InPitlane)
	if c.planner != nil {
		c.plan = c.planner.Plan(strategy.Request{
			LapsLeft: max(1, c.lapsLeft()),
			Current:  c.state.Compound,
			TirePct:  c.state.TirePct,
			Style:    c.style,
			Used:     c.used,
			Stops:    c.stops,
			PitNow:   true,
			StartLap: c.laps + 1,
		})
	}
	return c.event(EventPitEntry)
}

func (c *Car) pitLaneLength() float64 {
	if !c.track.HasPitLane() {
		return 0
	}
	return c.track.PitLane().Length()
}

// moveOnPitLane sets the pit lane distance and projects it onto the main
// track
func (c *Car) moveOnPitLane(pd float64) {
	c.state.Speed = pd - c.pitDistance
	c.pitDistance = pd
	c.state.PrevDistance = c.state.Distance
	c.state.Distance = c.track.PitProjection(c.pitDistance)
}

// driveOnPitLane moves toward target at pit lane speed. Returns true once
// target is reached.
func (c *Car) driveOnPitLane(target float64) bool {
	if target-c.pitDistance <= c.tuning.PitLaneSpeed {
		c.moveOnPitLane(math.Max(c.pitDistance, target))
		return true
	}
	c.moveOnPitLane(c.pitDistance + c.tuning.PitLaneSpeed)
	return false
}

func (c *Car) nextCompound() {
	next := c.state.Compound
	if c.plan != nil {
		if id, ok := c.plan.NextCompound(); ok {
			next = id
		}
	}
	if next == c.state.Compound && len(lo.Uniq(c.used)) < 2 {
		next = lo.Ternary(next == 0, next+1, next-1)
	}
	c.state.Refit(c.tuning, next)
	c.state.Refuel(c.tuning)
	c.state.Slipstream.Reset()
	c.used = append(c.used, next)
}

// updatePitLane runs the pit stop sequence: drive to the box, stand still,
// leave the pit lane
func (c *Car) updatePitLane(ctx Context) []Event {
	var ret []Event
	switch c.pit {
	case Stopping:
		if c.driveOnPitLane(c.pitBox) {
			c.pit = Stopped
			c.pitTimer = c.tuning.PitStationaryTicks
			c.state.Speed = 0
		}
	case Stopped:
		c.state.PrevDistance = c.state.Distance
		c.pitTimer--
		if c.pitTimer <= 0 {
			c.nextCompound()
			c.stops++
			c.generation++
			c.pitIntent = false
			c.replan()
			c.pit = Exiting
			e := c.event(EventTireChange)
			e.Compound = c.state.Compound
			ret = append(ret, e)
		}
	case Exiting:
		if c.driveOnPitLane(c.pitLaneLength()) {
			c.onPitLane = false
			c.state.Speed = c.tuning.PitLaneSpeed
			ret = append(ret, c.event(EventPitExit))
			if c.underSC {
				c.setPhase(UnderSafetyCar)
			} else {
				c.setPhase(Racing)
			}
		}
	}
	if c.lineCrossed() {
		ret = append(ret, c.completeLap(ctx.Tick)...)
		if c.raceLaps > 0 && c.laps >= c.raceLaps {
			c.setPhase(RaceFinished)
			c.onPitLane = false
			ret = append(ret, c.event(EventFinished))
		}
	}
	return ret
}

// EnterSafetyCar switches the car into formation mode
func (c *Car) EnterSafetyCar() {
	c.underSC = true
	if p, ok := c.racePhase(); ok && (p == Racing || p == ToPitlane) {
		c.setPhase(UnderSafetyCar)
	}
}

// LeaveSafetyCar resumes normal racing after the safety car left
func (c *Car) LeaveSafetyCar() {
	if !c.underSC {
		return
	}
	c.underSC = false
	c.scEnding = false
	c.state.Slipstream.Reset()
	if p, ok := c.racePhase(); ok && p == UnderSafetyCar {
		c.setPhase(lo.Ternary(c.pitIntent, ToPitlane, Racing))
	}
}

// SignalSafetyCarEnding tells a car in formation that the safety car comes
// in at the end of the lap
func (c *Car) SignalSafetyCarEnding() {
	if c.underSC {
		c.scEnding = true
	}
}

// Converged reports whether the car runs at safety car pace.
// Cars on the pit lane or out of the race count as converged.
func (c *Car) Converged() bool {
	if c.onPitLane || !c.state.Active || c.Finished() {
		return true
	}
	return math.Abs(c.state.Speed-c.tuning.SafetyCarSpeed) <= c.tuning.SafetyCarEpsilon
}

// UpdateUnderSafetyCar runs one tick in formation behind the car (or safety
// car) at main track distance ahead. No incidents happen in this mode.
func (c *Car) UpdateUnderSafetyCar(ctx Context, ahead float64) []Event {
	p, ok := c.racePhase()
	if !ok || !c.state.Active {
		return nil
	}
	switch p {
	case UnderSafetyCar:
	case InPitlane:
		return c.updatePitLane(ctx)
	default:
		return nil
	}
	c.checkPitIntent(true)
	gap := c.track.Gap(c.state.Distance, ahead)
	t := c.tuning
	target := t.SafetyCarSpeed + t.SafetyCarGapGain*(gap-t.SafetyCarGap)
	target = math.Max(t.MinSpeed, math.Min(t.SafetyCarMaxSpeed, target))
	res := physics.Follow(c.track, t, &c.state, target, t.SafetyCarMaxSpeed)
	if res.FuelOut {
		return []Event{c.crash(EventFuelOut)}
	}
	return c.afterMove(ctx)
}
