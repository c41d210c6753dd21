package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/track"
)

const squareTrack = `{
	"formatVersion": "v1.0.0",
	"name": "square",
	"points": [[0, 0], [100, 0], [100, 100], [0, 100]],
	"start_finish_index": 1,
	"max_laps": 12,
	"pit_lane_points": [[-5, 80], [-5, -5], [20, -5]]
}`

func TestParseTrack(t *testing.T) {
	def, err := ParseTrack([]byte(squareTrack))
	require.NoError(t, err)
	assert.Equal(t, "square", def.Name)
	assert.Equal(t, 12, def.MaxLaps)
	assert.InDelta(t, 400, def.Track.Length(), 1e-9)
	assert.InDelta(t, 100, def.Track.StartFinish(), 1e-9)
	assert.True(t, def.Track.HasPitLane())
}

func TestParseTrack_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "no json", data: `{`, want: ErrInvalidData},
		{name: "format major", data: `{"formatVersion": "v2.0.0", "points": []}`, want: ErrUnsupportedFormat},
		{name: "format garbage", data: `{"formatVersion": "abc", "points": []}`, want: ErrUnsupportedFormat},
		{name: "too few points", data: `{"points": [[0, 0], [1, 1]]}`, want: track.ErrTooFewPoints},
		{name: "bad point", data: `{"points": [[0, 0, 1], [1, 1], [2, 0]]}`, want: ErrInvalidData},
		{
			name: "start finish out of range",
			data: `{"points": [[0, 0], [100, 0], [100, 100]], "start_finish_index": 3}`,
			want: ErrInvalidData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTrack([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadTrack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.json")
	require.NoError(t, os.WriteFile(path, []byte(squareTrack), 0o600))
	def, err := LoadTrack(path, track.WithTuning(model.DefaultTuning()))
	require.NoError(t, err)
	assert.InDelta(t, 400, def.Track.Length(), 1e-9)

	_, err = LoadTrack(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRoster(t *testing.T) {
	want := &model.Roster{
		FormatVersion: SupportedFormat,
		Teams: []model.Team{
			{Name: "Red", Color: "FF0000", Drivers: []model.Driver{{Name: "A", Number: 1}, {Name: "B", Number: 2}}},
			{Name: "Blue", Color: "0000FF", Drivers: []model.Driver{{Name: "C", Number: 3}}},
		},
	}
	tests := []struct {
		name string
		data string
	}{
		{
			name: "object",
			data: `{"formatVersion": "1.2.0", "teams": [
				{"name": "Red", "color": "FF0000", "drivers": [{"name": "A", "number": 1}, {"name": "B", "number": 2}]},
				{"name": "Blue", "color": "0000FF", "drivers": [{"name": "C", "number": 3}]}]}`,
		},
		{
			name: "plain list",
			data: `[
				{"team_name": "Red", "color": "FF0000", "drivers": [{"name": "A", "number": 1}, {"name": "B", "number": 2}]},
				{"team_name": "Blue", "color": "0000FF", "drivers": [{"name": "C", "number": 3}]}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoster([]byte(tt.data))
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("ParseRoster() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRoster_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "no json", data: `[`, want: ErrInvalidData},
		{name: "no teams", data: `{"formatVersion": "v1"}`, want: ErrInvalidData},
		{name: "format", data: `{"formatVersion": "v3", "teams": []}`, want: ErrUnsupportedFormat},
		{name: "empty", data: `[]`, want: model.ErrEmptyRoster},
		{
			name: "duplicate number",
			data: `[{"name": "X", "drivers": [{"name": "A", "number": 1}, {"name": "B", "number": 1}]}]`,
			want: model.ErrInvalidRoster,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoster([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
