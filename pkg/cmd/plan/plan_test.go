package plan

import (
	"bytes"
	"testing"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/strategy"
	"github.com/mpapenbr/racesim/pkg/track"
)

func TestRequest(t *testing.T) {
	tuning := model.DefaultTuning()
	tests := []struct {
		name    string
		args    planArgs
		want    strategy.Request
		wantErr bool
	}{
		{
			name: "free start",
			args: planArgs{laps: 10, tirePct: 40, style: "balanced"},
			want: strategy.Request{LapsLeft: 10, TirePct: 100, FreeStart: true},
		},
		{
			name: "current compound",
			args: planArgs{laps: 8, compound: "SOFT", tirePct: 60, style: "aggressive", stops: 1},
			want: strategy.Request{
				LapsLeft: 8, Current: model.Soft, TirePct: 60,
				Style: model.Aggressive, Stops: 1,
			},
		},
		{
			name: "race distance",
			args: planArgs{compound: "hard", tirePct: 100, style: "conservative"},
			want: strategy.Request{LapsLeft: tuning.Laps, Current: model.Hard, TirePct: 100, Style: model.Conservative},
		},
		{name: "unknown style", args: planArgs{style: "wild"}, wantErr: true},
		{name: "unknown compound", args: planArgs{compound: "wet", style: "balanced"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := request(tuning, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintPlan(t *testing.T) {
	tr, err := track.New(
		[]geom.XY{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
		geom.XY{X: 0, Y: 0})
	require.NoError(t, err)
	var buf bytes.Buffer
	err = printPlan(&buf, tr, model.DefaultTuning(), planArgs{laps: 15, tirePct: 100, style: "balanced"})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Lap time estimate:")
	assert.Contains(t, out, "Pit ")
	assert.Contains(t, out, "estimated time:")
}
