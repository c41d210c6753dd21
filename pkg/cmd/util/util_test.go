package util

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aarondl/opt/omit"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/config"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/session"
	"github.com/mpapenbr/racesim/pkg/track"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name string
		text string
		want log.Level
	}{
		{name: "debug", text: "debug", want: log.DebugLevel},
		{name: "warn", text: "warn", want: log.WarnLevel},
		{name: "invalid", text: "chatty", want: log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.text, log.InfoLevel))
		})
	}
}

func TestSetupLogger_InvalidFilter(t *testing.T) {
	defer func(old string) { config.LogFilter = old }(config.LogFilter)
	config.LogFilter = "nope:::"
	_, err := SetupLogger(&bytes.Buffer{})
	assert.Error(t, err)
}

func TestPrintStandings(t *testing.T) {
	var buf bytes.Buffer
	err := PrintStandings(&buf, "title", []session.Standing{
		{
			Pos: 1, Number: 44, Driver: "A", Team: "Red", Lap: 3, Gap: "Leader",
			BestLap: 12.5, Status: "RUN", Compound: "soft", TirePct: 80.4,
			PredictedTirePct: omit.From(61.0),
		},
		{Pos: 2, Number: 7, Driver: "B", Team: "Blue", Lap: 3, Gap: "+1.20s", Status: "PIT", Compound: "hard", TirePct: 99},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "title", lines[0])
	assert.Contains(t, lines[2], "12.50s")
	assert.Contains(t, lines[2], "soft 80% (61%)")
	assert.Contains(t, lines[3], "+1.20s")
	assert.Contains(t, lines[3], " - ")
}

func TestStandingsPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewStandingsPrinter(&buf, 10)
	snap := func(tick int) *session.Snapshot {
		return &session.Snapshot{
			Kind: "race", Tick: tick, Phase: "racing", Lap: 1, Laps: 5,
			Announcements: []session.Announcement{{Text: "Go!", Remaining: 3}},
		}
	}
	assert.False(t, p.Print(snap(5)))
	assert.True(t, p.Print(snap(10)))
	assert.False(t, p.Print(snap(19)))
	assert.True(t, p.Print(snap(23)), "skipped ticks do not delay the next table")
	assert.Contains(t, buf.String(), "race tick 10 (racing) lap 1/5")
	assert.Contains(t, buf.String(), ">> Go!")

	assert.False(t, NewStandingsPrinter(&buf, 0).Print(snap(100)))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadInputs(t *testing.T) {
	defer func(tf, rf string) { config.TrackFile, config.RosterFile = tf, rf }(config.TrackFile, config.RosterFile)
	config.TrackFile = writeFile(t, "track.json",
		`{"name": "square", "points": [[0, 0], [100, 0], [100, 100], [0, 100]], "max_laps": 3}`)
	config.RosterFile = ""

	in, err := LoadInputs(false)
	require.NoError(t, err)
	assert.Equal(t, "square", in.Track.Name)
	assert.Nil(t, in.Roster)

	_, err = LoadInputs(true)
	require.Error(t, err, "roster required")

	config.RosterFile = writeFile(t, "roster.json",
		`[{"team_name": "Red", "color": "FF0000", "drivers": [{"name": "A", "number": 1}]}]`)
	in, err = LoadInputs(true)
	require.NoError(t, err)
	assert.Len(t, in.Roster.Entries(), 1)

	config.TrackFile = ""
	_, err = LoadInputs(false)
	assert.Error(t, err)
}

func TestRunSession(t *testing.T) {
	defer func(every int, url string) { config.PrintEvery, config.NatsURL = every, url }(
		config.PrintEvery, config.NatsURL)
	config.PrintEvery = 100
	config.NatsURL = ""

	tr, err := track.New(
		[]geom.XY{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
		geom.XY{X: 0, Y: 0})
	require.NoError(t, err)
	tuning := model.DefaultTuning()
	tuning.EnableWarmup = false
	tuning.CrashChance = 0
	tuning.SafetyCarChance = 0
	roster := &model.Roster{Teams: []model.Team{
		{Name: "Red", Drivers: []model.Driver{{Name: "A", Number: 1}, {Name: "B", Number: 2}}},
	}}
	r, err := session.NewRace(tr, roster, tuning, session.WithLaps(1), session.WithSpeed(0))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RunSession(context.Background(), r, nil, &buf))
	assert.True(t, r.Finished())
	assert.Contains(t, buf.String(), "race tick ")
	assert.Contains(t, buf.String(), "Pos")
}
