package session

import (
	"sort"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/pkg/car"
	"github.com/mpapenbr/racesim/pkg/model"
)

func runQualifying(t *testing.T, q *Qualifying, maxTicks int) {
	t.Helper()
	for range maxTicks {
		if q.Over() {
			return
		}
		q.Tick()
	}
	require.True(t, q.Over())
}

func TestNewQualifying_NeedsPitLane(t *testing.T) {
	_, err := NewQualifying(testTrack(t, false), testRoster(), model.DefaultTuning())
	assert.ErrorIs(t, err, ErrNoPitLane)
}

func TestQualifying(t *testing.T) {
	tuning := calmTuning()
	tuning.QualifyingRuns = 1
	tuning.QualifyingMaxExitDelay = 100
	q, err := NewQualifying(testTrack(t, true), testRoster(), tuning)
	require.NoError(t, err)

	runQualifying(t, q, tuning.QualifyingTicks())
	for _, c := range q.Cars() {
		assert.True(t, c.BestLap().IsSet(), "car %d has no time", c.ID())
		assert.True(t, c.Done())
		assert.Equal(t, car.InPit, c.Mode().(car.QualifyingMode).Phase)
	}

	grid := q.StartingGrid()
	assert.ElementsMatch(t, []int{0, 1, 2}, grid)
	times := lo.Map(grid, func(idx, _ int) int { return q.Cars()[idx].BestLap().MustGet() })
	assert.True(t, sort.IntsAreSorted(times))

	results := q.Results()
	assert.Equal(t, "Pole", results[0].Gap)
	assert.Equal(t, grid[0], results[0].CarID)

	snap := q.Tick()
	assert.Equal(t, "finished", snap.Phase)
	assert.Equal(t, "qualifying", snap.Kind)
	texts := lo.Map(snap.Announcements, func(a Announcement, _ int) string { return a.Text })
	assert.Contains(t, texts, "Qualifying finished!")
}

func TestQualifying_TimeIsUp(t *testing.T) {
	tuning := calmTuning()
	tuning.QualifyingMinutes = 0.1
	tuning.QualifyingMaxExitDelay = 0
	q, err := NewQualifying(testTrack(t, true), testRoster(), tuning)
	require.NoError(t, err)

	runQualifying(t, q, tuning.QualifyingTicks()+1)
	assert.Equal(t, []int{0, 1, 2}, q.StartingGrid(), "no times, roster order")
	for _, s := range q.Results() {
		assert.Equal(t, "-", s.Gap)
	}
	snap := q.Tick()
	assert.InDelta(t, 0, snap.TimeLeft, 1e-9)
}

func TestQualifyingGridFeedsRace(t *testing.T) {
	tr := testTrack(t, true)
	tuning := calmTuning()
	tuning.QualifyingRuns = 1
	q, err := NewQualifying(tr, testRoster(), tuning, WithSeed(7))
	require.NoError(t, err)
	runQualifying(t, q, tuning.QualifyingTicks())

	r, err := NewRace(tr, testRoster(), tuning, WithSeed(7), WithGrid(q.StartingGrid()))
	require.NoError(t, err)
	assert.Equal(t, q.StartingGrid(), ids(r.Order()))
	for i, c := range r.Cars() {
		assert.Equal(t, q.Cars()[i].State().Attrs, c.State().Attrs, "same seed, same cars")
	}
}
