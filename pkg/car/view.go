package car

// View is the renderable state of a car
type View struct {
	ID              int     `json:"id"`
	Number          int     `json:"number"`
	Driver          string  `json:"driver"`
	Team            string  `json:"team,omitempty"`
	Color           string  `json:"color,omitempty"`
	Phase           string  `json:"phase"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Distance        float64 `json:"distance"`
	Lap             int     `json:"lap"`
	Speed           float64 `json:"speed"`
	Compound        string  `json:"compound,omitempty"`
	TirePct         float64 `json:"tirePct"`
	TireTemp        float64 `json:"tireTemp"`
	Fuel            float64 `json:"fuel"`
	BestLap         float64 `json:"bestLap,omitempty"` // seconds
	Stops           int     `json:"stops"`
	OnPitLane       bool    `json:"onPitLane"`
	Pitting         bool    `json:"pitting"`
	UnderSafetyCar  bool    `json:"underSafetyCar"`
	SafetyCarEnding bool    `json:"safetyCarEnding,omitempty"`
	SafetyCar       bool    `json:"safetyCar,omitempty"`
	Crashed         bool    `json:"crashed"`
	Active          bool    `json:"active"`
}

func (c *Car) View() View {
	pos := c.track.PositionAt(c.state.Distance)
	if c.onPitLane && c.track.HasPitLane() {
		pos = c.track.PitLane().PositionAt(c.pitDistance)
	}
	phase := c.mode.String()
	if c.onPitLane {
		phase += " (" + c.pit.String() + ")"
	}
	ret := View{
		ID:              c.ID(),
		Number:          c.entry.Driver.Number,
		Driver:          c.entry.Driver.Name,
		Team:            c.entry.Team,
		Color:           c.entry.Color,
		Phase:           phase,
		X:               pos.X,
		Y:               pos.Y,
		Distance:        c.state.Distance,
		Lap:             c.laps,
		Speed:           c.state.Speed,
		Compound:        c.tuning.Compound(c.state.Compound).Name,
		TirePct:         c.state.TirePct,
		TireTemp:        c.state.TireTemp,
		Fuel:            c.state.Fuel,
		Stops:           c.stops,
		OnPitLane:       c.onPitLane,
		Pitting:         c.pitIntent || c.onPitLane,
		UnderSafetyCar:  c.underSC,
		SafetyCarEnding: c.scEnding,
		Crashed:         c.state.Crashed,
		Active:          c.state.Active,
	}
	if best, ok := c.best.Get(); ok {
		ret.BestLap = float64(best) / float64(c.tuning.TickRate)
	}
	return ret
}
