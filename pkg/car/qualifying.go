package car

import (
	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/physics"
)

func (c *Car) qualifyingMode() (QualifyingMode, bool) {
	m, ok := c.mode.(QualifyingMode)
	return m, ok
}

// UpdateQualifying runs one qualifying tick. A run is out lap, one timed
// lap and in lap. Cars do not interact during qualifying.
func (c *Car) UpdateQualifying(ctx Context) []Event {
	m, ok := c.qualifyingMode()
	if !ok || !c.state.Active {
		return nil
	}
	var ret []Event
	switch m.Phase {
	case InPit:
		c.updateQualifyingPit(ctx, &m)
	case OutLap, FastLap, InLap:
		res := physics.Advance(c.track, c.tuning, &c.state, physics.Draft{AheadID: physics.NoCar})
		if res.FuelOut {
			c.mode = m
			return []Event{c.crash(EventFuelOut)}
		}
		if c.lineCrossed() {
			switch m.Phase {
			case OutLap:
				m.Phase = FastLap
				c.lapStart = ctx.Tick
			case FastLap:
				m.Phase = InLap
				m.RunsLeft--
				c.laps++
				ret = append(ret, c.recordLap(ctx.Tick, c.laps)...)
			case InLap:
			}
		}
		if m.Phase == InLap && crossed(c.state.PrevDistance, c.state.Distance, c.track.PitEntrance()) {
			c.onPitLane = true
			c.pit = Stopping
			c.pitDistance = 0
			c.moveOnPitLane(0)
			c.state.Speed = c.tuning.PitLaneSpeed
			c.state.PrevDistance = c.state.Distance
			m.Phase = InPit
			ret = append(ret, c.event(EventPitEntry))
		}
	}
	c.mode = m
	return ret
}

func (c *Car) updateQualifyingPit(ctx Context, m *QualifyingMode) {
	switch c.pit {
	case Stopping:
		if c.driveOnPitLane(c.pitBox) {
			c.pit = Stopped
			c.state.Speed = 0
			c.state.Refit(c.tuning, c.state.Compound)
			c.state.Refuel(c.tuning)
			c.generation++
			m.ExitDelay = c.tuning.PitStationaryTicks
		}
	case Stopped:
		c.state.PrevDistance = c.state.Distance
		if m.ExitDelay > 0 {
			m.ExitDelay--
			return
		}
		if m.RunsLeft > 0 && ctx.TicksLeft > 0 {
			c.pit = Exiting
			c.l.Debug("leaving pit",
				log.Int("car", c.entry.Driver.Number),
				log.Int("runsLeft", m.RunsLeft))
		}
	case Exiting:
		if c.driveOnPitLane(c.pitLaneLength()) {
			c.onPitLane = false
			c.state.Speed = c.tuning.PitLaneSpeed
			c.lapHold = 0
			m.Phase = OutLap
		}
	}
}

// Done reports whether a qualifying car has no further run
func (c *Car) Done() bool {
	m, ok := c.qualifyingMode()
	if !ok {
		return c.Finished() || !c.state.Active
	}
	return !c.state.Active || (m.Phase == InPit && c.pit == Stopped && m.RunsLeft <= 0)
}
