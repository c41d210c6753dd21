//nolint:funlen // readability
package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/pkg/car"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/predict"
	"github.com/mpapenbr/racesim/pkg/track"
)

func testTrack(t *testing.T, withPit bool) *track.Track {
	t.Helper()
	opts := []track.Option{}
	if withPit {
		opts = append(opts, track.WithPitLane([]geom.XY{{X: -5, Y: 80}, {X: -5, Y: -5}, {X: 20, Y: -5}}))
	}
	tr, err := track.New(
		[]geom.XY{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
		geom.XY{X: 0, Y: 0},
		opts...)
	require.NoError(t, err)
	return tr
}

func testRoster() *model.Roster {
	return &model.Roster{
		Teams: []model.Team{
			{Name: "Red", Color: "FF0000", Drivers: []model.Driver{{Name: "A", Number: 1}, {Name: "B", Number: 2}}},
			{Name: "Blue", Color: "0000FF", Drivers: []model.Driver{{Name: "C", Number: 3}}},
		},
	}
}

// calmTuning disables random incidents
func calmTuning() *model.Tuning {
	t := model.DefaultTuning()
	t.OvertakeChance = 0
	t.CrashChance = 0
	t.MistakeChance = 0
	t.SafetyCarChance = 0
	t.CountdownTicks = 5
	return t
}

func ids(cars []*car.Car) []int {
	return lo.Map(cars, func(c *car.Car, _ int) int { return c.ID() })
}

func tickUntil(t *testing.T, r *Race, maxTicks int, cond func() bool) {
	t.Helper()
	for range maxTicks {
		if cond() {
			return
		}
		r.Tick()
	}
	require.True(t, cond(), "condition not reached within %d ticks", maxTicks)
}

func TestNewRace_Errors(t *testing.T) {
	tr := testTrack(t, true)
	invalid := model.DefaultTuning()
	invalid.TickRate = 0
	noWarmupSpeed := model.DefaultTuning()
	noWarmupSpeed.EnableWarmup = true
	noWarmupSpeed.WarmupSpeed = 0
	tests := []struct {
		name   string
		roster *model.Roster
		tuning *model.Tuning
		opts   []Option
		want   error
	}{
		{name: "empty roster", roster: &model.Roster{}, tuning: model.DefaultTuning(), want: ErrEmptyRoster},
		{name: "invalid tuning", roster: testRoster(), tuning: invalid, want: model.ErrInvalidTuning},
		{name: "warmup never ends", roster: testRoster(), tuning: noWarmupSpeed, want: model.ErrInvalidTuning},
		{
			name: "grid too short", roster: testRoster(), tuning: model.DefaultTuning(),
			opts: []Option{WithGrid([]int{0, 1})}, want: ErrInvalidGrid,
		},
		{
			name: "grid duplicates", roster: testRoster(), tuning: model.DefaultTuning(),
			opts: []Option{WithGrid([]int{0, 1, 1})}, want: ErrInvalidGrid,
		},
		{
			name: "grid unknown car", roster: testRoster(), tuning: model.DefaultTuning(),
			opts: []Option{WithGrid([]int{0, 1, 3})}, want: ErrInvalidGrid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRace(tr, tt.roster, tt.tuning, tt.opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRace_Grid(t *testing.T) {
	tr := testTrack(t, true)
	r, err := NewRace(tr, testRoster(), calmTuning(), WithGrid([]int{2, 0, 1}))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0, 1}, ids(r.Order()))
	assert.Equal(t, PhaseCountdown, r.Phase())
	pole := r.Cars()[2].TotalDistance()
	assert.Greater(t, pole, r.Cars()[0].TotalDistance())
	assert.Greater(t, r.Cars()[0].TotalDistance(), r.Cars()[1].TotalDistance())

	snap := r.Tick()
	assert.Equal(t, "countdown", snap.Phase)
	assert.Equal(t, "Leader", snap.Standings[0].Gap)
	assert.Equal(t, 3, snap.Standings[0].Number)
	assert.Equal(t, "Race starting soon...", snap.Announcements[0].Text)
}

func TestRace_SameSeedSameRace(t *testing.T) {
	tr := testTrack(t, true)
	tuning := model.DefaultTuning()
	tuning.CountdownTicks = 1
	run := func() []Standing {
		r, err := NewRace(tr, testRoster(), tuning, WithSeed(42), WithLaps(2))
		require.NoError(t, err)
		tickUntil(t, r, 20000, r.Finished)
		return r.Results()
	}
	first := run()
	second := run()
	assert.Empty(t, cmp.Diff(first, second))
}

func TestRace_RunToFinish(t *testing.T) {
	tr := testTrack(t, true)
	r, err := NewRace(tr, testRoster(), calmTuning(), WithLaps(3))
	require.NoError(t, err)

	laps := map[int]int{}
	phases := []string{}
	for range 20000 {
		if r.Finished() {
			break
		}
		snap := r.Tick()
		if len(phases) == 0 || phases[len(phases)-1] != snap.Phase {
			phases = append(phases, snap.Phase)
		}
		for _, c := range r.Cars() {
			s := c.State()
			require.GreaterOrEqual(t, s.TirePct, 1.0)
			require.LessOrEqual(t, s.TirePct, 100.0)
			require.GreaterOrEqual(t, s.Fuel, 0.0)
			require.LessOrEqual(t, s.Fuel, r.tuning.FuelCapacity)
			require.GreaterOrEqual(t, s.Speed, 0.0)
			require.GreaterOrEqual(t, s.Distance, 0.0)
			require.Less(t, s.Distance, tr.Length())
			require.GreaterOrEqual(t, c.Laps(), laps[c.ID()])
			laps[c.ID()] = c.Laps()
		}
	}
	require.True(t, r.Finished())
	assert.Equal(t, []string{"countdown", "racing", "finished"}, phases)

	results := r.Results()
	require.Len(t, results, 3)
	assert.Equal(t, "Leader", results[0].Gap)
	assert.Equal(t, "FIN", results[0].Status)
	assert.Equal(t, 3, r.Order()[0].Laps())
	assert.GreaterOrEqual(t, r.Order()[0].Stops(), 1)

	texts := lo.Map(r.Announcements().Pending(), func(a Announcement, _ int) string { return a.Text })
	assert.Contains(t, texts, "Race finished!")

	// a finished race does not move anymore
	before := r.Cars()[0].State()
	snap := r.Tick()
	assert.Equal(t, "finished", snap.Phase)
	assert.Equal(t, before, r.Cars()[0].State())
}

func TestRace_Warmup(t *testing.T) {
	tr := testTrack(t, true)
	tuning := calmTuning()
	tuning.EnableWarmup = true
	tuning.WarmupStagger = 10
	r, err := NewRace(tr, testRoster(), tuning)
	require.NoError(t, err)
	assert.Equal(t, PhaseWarmup, r.Phase())

	grid := lo.Map(r.Order(), func(c *car.Car, _ int) float64 { return c.State().Distance })
	tickUntil(t, r, 5000, func() bool { return r.Phase() != PhaseWarmup })
	assert.Equal(t, PhaseCountdown, r.Phase())
	assert.Equal(t, grid, lo.Map(r.Order(), func(c *car.Car, _ int) float64 { return c.State().Distance }))

	texts := lo.Map(r.Announcements().Pending(), func(a Announcement, _ int) string { return a.Text })
	assert.Contains(t, texts, "All cars are on the grid.")
	assert.Contains(t, texts, "Race starting soon...")

	tickUntil(t, r, 100, func() bool { return r.Phase() == PhaseRacing })
}

func TestRace_SafetyCar(t *testing.T) {
	tr := testTrack(t, true)
	tuning := calmTuning()
	tuning.SafetyCarLaps = 1
	r, err := NewRace(tr, testRoster(), tuning, WithLaps(30))
	require.NoError(t, err)

	assert.False(t, r.DeploySafetyCar(), "not before the start")
	tickUntil(t, r, 1000, func() bool { return r.Phase() == PhaseRacing })
	for range 300 {
		r.Tick()
	}
	require.True(t, r.DeploySafetyCar())
	assert.False(t, r.DeploySafetyCar(), "already deployed")

	frozen := ids(r.Order())
	for _, c := range r.Cars() {
		assert.True(t, c.UnderSafetyCar())
	}
	snap := r.Tick()
	assert.Equal(t, "deployed", snap.SafetyCar)
	assert.True(t, lo.ContainsBy(snap.Cars, func(v car.View) bool { return v.SafetyCar }))

	ending := false
	tickUntil(t, r, 60000, func() bool {
		if r.SafetyCar() != nil {
			require.Equal(t, frozen, ids(r.Order()), "order must be frozen")
			if r.SafetyCar().Exiting() {
				ending = true
				for _, c := range r.Cars() {
					require.True(t, c.SafetyCarEnding(), "car %d not told about the ending", c.ID())
				}
			} else {
				require.False(t, lo.SomeBy(r.Cars(), func(c *car.Car) bool { return c.SafetyCarEnding() }))
			}
		}
		return r.SafetyCar() == nil || r.Finished()
	})
	require.False(t, r.Finished())
	assert.True(t, ending)
	for _, c := range r.Cars() {
		assert.False(t, c.UnderSafetyCar())
		assert.False(t, c.SafetyCarEnding())
	}
	texts := lo.Map(r.Announcements().Pending(), func(a Announcement, _ int) string { return a.Text })
	assert.NotContains(t, texts, "Safety Car Deployed!", "expired by now")
}

func TestRace_CrashRollsSafetyCar(t *testing.T) {
	tr := testTrack(t, true)
	tuning := calmTuning()
	tuning.SafetyCarChance = 1
	r, err := NewRace(tr, testRoster(), tuning)
	require.NoError(t, err)
	tickUntil(t, r, 1000, func() bool { return r.Phase() == PhaseRacing })

	r.rollSafetyCar()
	assert.Nil(t, r.SafetyCar(), "no crash, no safety car")

	r.crashes = []int{1}
	r.rollSafetyCar()
	require.NotNil(t, r.SafetyCar())

	r.endSafetyCar()
	assert.Nil(t, r.SafetyCar())
	assert.Empty(t, r.crashes)
}

func TestRace_Run(t *testing.T) {
	tr := testTrack(t, true)
	r, err := NewRace(tr, testRoster(), calmTuning(), WithLaps(1), WithSpeed(0))
	require.NoError(t, err)

	sub := r.Broadcast().Subscribe()
	done := make(chan error, 1)
	go func() {
		done <- r.Run(context.Background(), nil)
	}()
	var last *Snapshot
	count := 0
	for snap := range sub {
		last = snap
		count++
	}
	require.NoError(t, <-done)
	require.NotNil(t, last)
	assert.Equal(t, "finished", last.Phase)
	assert.Equal(t, r.ID(), last.SessionID)
	assert.Equal(t, last.Tick, count)
}

func TestRace_RunStop(t *testing.T) {
	tr := testTrack(t, true)
	r, err := NewRace(tr, testRoster(), calmTuning(), WithSpeed(100))
	require.NoError(t, err)

	inbox := make(chan Command, 2)
	inbox <- CmdDeploySafetyCar
	inbox <- CmdStop
	require.NoError(t, r.Run(context.Background(), inbox))
	assert.False(t, r.Finished())
}

func TestRace_RunCanceled(t *testing.T) {
	tr := testTrack(t, true)
	r, err := NewRace(tr, testRoster(), calmTuning(), WithSpeed(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Run(ctx, nil), context.DeadlineExceeded)
}

func TestRace_Predictions(t *testing.T) {
	tr := testTrack(t, true)
	tuning := calmTuning()
	p := predict.New(tr, tuning, predict.WithInterval(0), predict.WithTargetLaps(0.5))
	defer p.Close()
	r, err := NewRace(tr, testRoster(), tuning, WithPredictor(p), WithLaps(30))
	require.NoError(t, err)
	tickUntil(t, r, 1000, func() bool { return r.Phase() == PhaseRacing })

	var pred predict.Prediction
	ok := false
	for range 2000 {
		r.Tick()
		if pred, ok = r.Prediction(0); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, ok)
	assert.Equal(t, 0, pred.CarID)
	assert.LessOrEqual(t, pred.TirePct, r.Cars()[0].State().TirePct+1e-9)
	standing, found := lo.Find(r.Results(), func(s Standing) bool { return s.CarID == 0 })
	require.True(t, found)
	assert.True(t, standing.PredictedTirePct.IsSet())
}

func TestGapText(t *testing.T) {
	tuning := model.DefaultTuning()
	tests := []struct {
		name     string
		distance float64
		speed    float64
		want     string
	}{
		{name: "one second", distance: 15, speed: 0.5, want: "+1.00s"},
		{name: "rounded", distance: 10, speed: 0.7, want: "+0.48s"},
		{name: "standing car uses speed floor", distance: 3, speed: 0, want: "+1.00s"},
		{name: "negative is zero", distance: -3, speed: 0.5, want: "+0.00s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gapText(gapSeconds(tuning, tt.distance, tt.speed)))
		})
	}
}
