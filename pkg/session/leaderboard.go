package session

import (
	"math"
	"sort"

	"github.com/aarondl/opt/omit"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/racesim/pkg/car"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/predict"
)

// speed floor for gap computation
const minGapSpeed = 0.1

// Standing is one line of the leaderboard
type Standing struct {
	Pos              int               `json:"pos"`
	CarID            int               `json:"carId"`
	Number           int               `json:"number"`
	Driver           string            `json:"driver"`
	Team             string            `json:"team"`
	Lap              int               `json:"lap"`
	Gap              string            `json:"gap"`
	BestLap          float64           `json:"bestLap,omitempty"` // seconds
	Status           string            `json:"status"`
	Compound         string            `json:"compound"`
	TirePct          float64           `json:"tirePct"`
	Stops            int               `json:"stops"`
	PredictedTirePct omit.Val[float64] `json:"predictedTirePct"`
}

func status(c *car.Car) string {
	switch {
	case c.Crashed():
		return "OUT"
	case c.Finished():
		return "FIN"
	case c.OnPitLane():
		return "PIT"
	case c.UnderSafetyCar():
		return "SC"
	default:
		return "RUN"
	}
}

func gapText(seconds float64) string {
	return "+" + decimal.NewFromFloat(math.Max(0, seconds)).StringFixed(2) + "s"
}

// gapSeconds converts a distance gap into seconds at the given speed
func gapSeconds(t *model.Tuning, distance, speed float64) float64 {
	return distance / math.Max(speed, minGapSpeed) / float64(t.TickRate)
}

func bestLapSeconds(t *model.Tuning, c *car.Car) float64 {
	if best, ok := c.BestLap().Get(); ok {
		return float64(best) / float64(t.TickRate)
	}
	return 0
}

func standing(t *model.Tuning, pos int, c *car.Car) Standing {
	e := c.Entry()
	s := c.State()
	return Standing{
		Pos:      pos,
		CarID:    c.ID(),
		Number:   e.Driver.Number,
		Driver:   e.Driver.Name,
		Team:     e.Team,
		BestLap:  bestLapSeconds(t, c),
		Status:   status(c),
		Compound: t.Compound(s.Compound).Name,
		TirePct:  s.TirePct,
		Stops:    c.Stops(),
	}
}

// raceStandings builds the leaderboard from the ranked cars. The gap is
// shown to the car ahead. Before the start the gap is based on the grid
// distance at the average top speed of the field.
//
//nolint:whitespace // editor/linter issue
func raceStandings(
	t *model.Tuning,
	order []*car.Car,
	laps int,
	started bool,
	avgTopSpeed float64,
	predictions map[int]predict.Prediction,
) []Standing {
	ret := make([]Standing, len(order))
	for i, c := range order {
		s := standing(t, i+1, c)
		s.Lap = min(laps, c.Laps()+1)
		switch {
		case i == 0:
			s.Gap = "Leader"
		case c.Crashed():
			s.Gap = "OUT"
		default:
			diff := order[i-1].TotalDistance() - c.TotalDistance()
			speed := avgTopSpeed
			if started {
				speed = c.State().Speed
			}
			s.Gap = gapText(gapSeconds(t, diff, speed))
		}
		if p, ok := predictions[c.ID()]; ok && p.Generation == c.Generation() {
			s.PredictedTirePct = omit.From(p.TirePct)
		}
		ret[i] = s
	}
	return ret
}

// qualifyingOrder sorts cars by best lap, cars without a time last.
// The order of cars with equal times is kept.
func qualifyingOrder(cars []*car.Car) []*car.Car {
	ret := append([]*car.Car{}, cars...)
	sort.SliceStable(ret, func(i, j int) bool {
		a, aok := ret[i].BestLap().Get()
		b, bok := ret[j].BestLap().Get()
		if aok != bok {
			return aok
		}
		return aok && a < b
	})
	return ret
}

func qualifyingStandings(t *model.Tuning, cars []*car.Car) []Standing {
	order := qualifyingOrder(cars)
	ret := make([]Standing, len(order))
	pole, hasPole := 0, false
	if len(order) > 0 {
		pole, hasPole = order[0].BestLap().Get()
	}
	for i, c := range order {
		s := standing(t, i+1, c)
		s.Lap = c.Laps()
		s.Status = c.Mode().String()
		best, ok := c.BestLap().Get()
		switch {
		case !ok:
			s.Gap = "-"
		case i == 0 || !hasPole:
			s.Gap = "Pole"
		default:
			s.Gap = gapText(float64(best-pole) / float64(t.TickRate))
		}
		ret[i] = s
	}
	return ret
}
