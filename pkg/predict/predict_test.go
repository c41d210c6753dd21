package predict

import (
	"testing"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/physics"
	"github.com/mpapenbr/racesim/pkg/track"
)

func testTrack(t *testing.T) *track.Track {
	t.Helper()
	tr, err := track.New(
		[]geom.XY{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
		geom.XY{X: 0, Y: 0})
	require.NoError(t, err)
	return tr
}

func testSnapshot(tuning *model.Tuning, carID, generation int) physics.Snapshot {
	return physics.Snapshot{
		CarID:      carID,
		Generation: generation,
		State:      physics.NewState(tuning, model.NeutralAttributes(), model.Medium),
	}
}

func (p *Predictor) isPending(carID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending[carID]
}

func TestFastForward(t *testing.T) {
	tuning := model.DefaultTuning()
	tr := testTrack(t)
	p := New(tr, tuning, WithTargetLaps(2))
	defer p.Close()

	snap := testSnapshot(tuning, 1, 3)
	orig := snap
	pred, err := p.FastForward(snap)
	require.NoError(t, err)

	assert.Equal(t, orig, snap, "snapshot must not be modified")
	assert.Equal(t, 1, pred.CarID)
	assert.Equal(t, 3, pred.Generation)
	assert.True(t, pred.Active)
	assert.GreaterOrEqual(t, pred.Laps, 2.0)
	assert.Less(t, pred.TirePct, 100.0)
	assert.Less(t, pred.Fuel, tuning.FuelCapacity)
	assert.Positive(t, pred.Ticks)
}

func TestFastForward_InactiveCar(t *testing.T) {
	tuning := model.DefaultTuning()
	p := New(testTrack(t), tuning)
	defer p.Close()

	snap := testSnapshot(tuning, 1, 0)
	snap.State.Active = false
	pred, err := p.FastForward(snap)
	require.NoError(t, err)
	assert.Equal(t, 0, pred.Ticks)
	assert.InDelta(t, 0, pred.Laps, 1e-9)
}

func TestPredictor_ScheduleAndPoll(t *testing.T) {
	tuning := model.DefaultTuning()
	now := time.Unix(1000, 0)
	p := New(testTrack(t), tuning,
		WithWorkers(1),
		WithInterval(time.Second),
		WithClock(func() time.Time { return now }))
	defer p.Close()

	_, ok := p.Poll(1, 0)
	assert.False(t, ok, "nothing scheduled yet")

	require.True(t, p.Schedule(testSnapshot(tuning, 1, 0)))
	assert.False(t, p.Schedule(testSnapshot(tuning, 1, 0)), "still pending")

	var pred Prediction
	assert.Eventually(t, func() bool {
		pred, ok = p.Poll(1, 0)
		return ok
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, pred.CarID)
	assert.False(t, p.isPending(1))

	assert.False(t, p.Schedule(testSnapshot(tuning, 1, 0)), "interval not elapsed")
	now = now.Add(time.Second)
	assert.True(t, p.Schedule(testSnapshot(tuning, 1, 0)))
}

func TestPredictor_StaleGenerationIsDiscarded(t *testing.T) {
	tuning := model.DefaultTuning()
	p := New(testTrack(t), tuning, WithInterval(0))
	defer p.Close()

	require.True(t, p.Schedule(testSnapshot(tuning, 2, 1)))
	assert.Eventually(t, func() bool {
		_, ok := p.Poll(2, 2)
		return !p.isPending(2) && !ok
	}, 5*time.Second, time.Millisecond)

	// the stale result is gone
	_, ok := p.Poll(2, 1)
	assert.False(t, ok)
}

func TestPredictor_PanicIsRecovered(t *testing.T) {
	tuning := model.DefaultTuning()
	p := New(testTrack(t), tuning, WithInterval(0))
	defer p.Close()
	// unknown compounds are programming errors and panic in the tire model
	broken := testSnapshot(tuning, 3, 0)
	broken.State.Compound = model.CompoundID(len(tuning.Compounds) + 5)

	require.True(t, p.Schedule(broken))
	require.True(t, p.Schedule(testSnapshot(tuning, 4, 0)))
	assert.Eventually(t, func() bool {
		_, ok := p.Poll(3, 0)
		return !ok && !p.isPending(3)
	}, 5*time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		_, ok := p.Poll(4, 0)
		return ok
	}, 5*time.Second, time.Millisecond)
}

func TestPredictor_Close(t *testing.T) {
	tuning := model.DefaultTuning()
	p := New(testTrack(t), tuning)
	p.Close()
	p.Close()
	assert.False(t, p.Schedule(testSnapshot(tuning, 1, 0)))
	_, ok := p.Poll(1, 0)
	assert.False(t, ok)
}

func TestPredictor_SafeRun(t *testing.T) {
	tuning := model.DefaultTuning()
	p := New(testTrack(t), tuning)
	defer p.Close()

	ok := p.safeRun(testSnapshot(tuning, 1, 0))
	require.NoError(t, ok.err)
	assert.Equal(t, 1, ok.pred.CarID)

	broken := testSnapshot(tuning, 2, 0)
	broken.State.Compound = model.CompoundID(len(tuning.Compounds))
	failed := p.safeRun(broken)
	assert.ErrorIs(t, failed.err, ErrPanic)
}
