package track

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/pkg/loader"
	"github.com/mpapenbr/racesim/pkg/model"
)

func TestPrintTrack(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{
			name: "with pit lane",
			data: `{"name": "square", "points": [[0, 0], [100, 0], [100, 100], [0, 100]], "max_laps": 7,
				"pit_lane_points": [[-5, 80], [-5, -5], [20, -5]]}`,
			want: []string{"square", "Length:", "400.0", "Laps:", "entrance", "straight:", "slow:"},
		},
		{
			name: "without pit lane",
			data: `{"points": [[0, 0], [100, 0], [100, 100], [0, 100]]}`,
			want: []string{"none", "Lap estimate:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := loader.ParseTrack([]byte(tt.data))
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, printTrack(&buf, def, model.DefaultTuning()))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}
