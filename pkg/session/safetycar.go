package session

import (
	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/car"
)

// DeploySafetyCar sends out the safety car. The ranking is frozen until the
// safety car is back in the pits. Returns false if the race is not running
// or a safety car is already out.
func (r *Race) DeploySafetyCar() bool {
	if r.phase != PhaseRacing || r.sc != nil {
		return false
	}
	r.rank()
	r.sc = car.NewSafetyCar(r.tuning, r.track)
	r.converged = false
	for _, c := range r.cars {
		c.EnterSafetyCar()
	}
	r.announcements.Add("Safety Car Deployed!", 0)
	r.l.Info("safety car deployed",
		log.Int("tick", r.tick),
		log.Int("crashes", len(r.crashes)))
	return true
}

// rollSafetyCar deploys the safety car with SafetyCarChance per tick for
// every crashed car not yet handled
func (r *Race) rollSafetyCar() {
	if r.sc != nil {
		return
	}
	for range r.crashes {
		if r.rnd.Float64() < r.tuning.SafetyCarChance {
			r.DeploySafetyCar()
			return
		}
	}
}

// updateUnderSafetyCar moves the field in formation. Every car follows the
// car ranked ahead of it on track, the leader follows the safety car.
func (r *Race) updateUnderSafetyCar(ctx car.Context) {
	ahead := r.sc.Distance()
	for i, c := range r.order {
		r.handleEvents(c.UpdateUnderSafetyCar(ctx, ahead))
		ctx.Field[i] = c.Contender()
		if c.Active() && !c.OnPitLane() && !c.Finished() {
			ahead = c.State().Distance
		}
	}
	if r.phase == PhaseFinished {
		return
	}
	leader, ok := lo.Find(r.order, func(c *car.Car) bool { return c.Active() })
	if !ok {
		return
	}
	if !r.converged && lo.EveryBy(r.cars, func(c *car.Car) bool { return c.Converged() }) {
		r.converged = true
		r.scLap = leader.Laps()
		r.l.Debug("field converged", log.Int("lap", r.scLap))
	}
	if r.converged && !r.sc.Exiting() && leader.Laps()-r.scLap >= r.tuning.SafetyCarLaps {
		r.sc.Exit()
		for _, c := range r.cars {
			c.SignalSafetyCarEnding()
		}
		r.announcements.Add("Safety Car Ending! Prepare for Restart.", 0)
		r.l.Info("safety car ending", log.Int("tick", r.tick))
	}
}

// endSafetyCar releases the field after the safety car left the track
func (r *Race) endSafetyCar() {
	r.sc = nil
	r.converged = false
	r.crashes = nil
	for _, c := range r.cars {
		c.LeaveSafetyCar()
	}
	r.l.Info("safety car in", log.Int("tick", r.tick))
}
