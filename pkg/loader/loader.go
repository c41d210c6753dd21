// Package loader reads track and roster definitions from JSON files
package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/samber/lo"
	"golang.org/x/mod/semver"

	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/track"
)

// SupportedFormat is the major version of the file formats read by this package
const SupportedFormat = "v1"

var (
	ErrUnsupportedFormat = errors.New("unsupported format version")
	ErrInvalidData       = errors.New("invalid data")
)

type (
	trackFile struct {
		Name          string      `json:"name"`
		Points        [][]float64 `json:"points"`
		MaxLaps       int         `json:"max_laps"`
		PitLanePoints [][]float64 `json:"pit_lane_points"`
	}
	teamFile struct {
		Name     string   `json:"name"`
		TeamName string   `json:"team_name"`
		Color    string   `json:"color"`
		Drivers  []driver `json:"drivers"`
	}
	driver struct {
		Name   string `json:"name"`
		Number int    `json:"number"`
	}
)

// TrackDefinition is a loaded track with its metadata
type TrackDefinition struct {
	Name    string
	MaxLaps int
	Track   *track.Track
}

var (
	formatPath      = jp.MustParseString("$.formatVersion")
	startFinishPath = jp.MustParseString("$.start_finish_index")
	teamsPath       = jp.MustParseString("$.teams")
)

// checkFormat accepts a missing version and any version with the supported
// major version
func checkFormat(obj any) error {
	res := formatPath.Get(obj)
	if len(res) == 0 {
		return nil
	}
	v, ok := res[0].(string)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, res[0])
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Major(v) != SupportedFormat {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, v)
	}
	return nil
}

func toXY(points [][]float64) ([]geom.XY, error) {
	ret := make([]geom.XY, len(points))
	for i, p := range points {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: point %d has %d coordinates", ErrInvalidData, i, len(p))
		}
		ret[i] = geom.XY{X: p[0], Y: p[1]}
	}
	return ret, nil
}

func LoadTrack(path string, opts ...track.Option) (*TrackDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret, err := ParseTrack(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ret, nil
}

// ParseTrack reads a track. The start/finish line is placed at the point
// with index start_finish_index (default 0).
func ParseTrack(data []byte, opts ...track.Option) (*TrackDefinition, error) {
	obj, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if err = checkFormat(obj); err != nil {
		return nil, err
	}
	var tf trackFile
	if err = oj.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	points, err := toXY(tf.Points)
	if err != nil {
		return nil, err
	}
	sfIdx := 0
	if res := startFinishPath.Get(obj); len(res) > 0 && res[0] != nil {
		idx, ok := res[0].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: start_finish_index %v", ErrInvalidData, res[0])
		}
		sfIdx = int(idx)
	}
	if sfIdx < 0 || sfIdx >= len(points) {
		return nil, fmt.Errorf("%w: start_finish_index %d out of range", ErrInvalidData, sfIdx)
	}
	if len(tf.PitLanePoints) > 0 {
		pit, pitErr := toXY(tf.PitLanePoints)
		if pitErr != nil {
			return nil, pitErr
		}
		opts = append([]track.Option{track.WithPitLane(pit)}, opts...)
	}
	tr, err := track.New(points, points[sfIdx], opts...)
	if err != nil {
		return nil, err
	}
	return &TrackDefinition{Name: tf.Name, MaxLaps: tf.MaxLaps, Track: tr}, nil
}

func LoadRoster(path string) (*model.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret, err := ParseRoster(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ret, nil
}

// ParseRoster reads either an object {"formatVersion", "teams": [...]} or a
// plain list of teams. A team is named by "name" or "team_name".
func ParseRoster(data []byte) (*model.Roster, error) {
	obj, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	teams := obj
	if _, isObject := obj.(map[string]any); isObject {
		if err = checkFormat(obj); err != nil {
			return nil, err
		}
		res := teamsPath.Get(obj)
		if len(res) == 0 {
			return nil, fmt.Errorf("%w: no teams", ErrInvalidData)
		}
		teams = res[0]
	}
	var tf []teamFile
	if err = oj.Unmarshal([]byte(oj.JSON(teams)), &tf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	ret := &model.Roster{
		FormatVersion: SupportedFormat,
		Teams: lo.Map(tf, func(t teamFile, _ int) model.Team {
			return model.Team{
				Name:  lo.Ternary(t.Name != "", t.Name, t.TeamName),
				Color: t.Color,
				Drivers: lo.Map(t.Drivers, func(d driver, _ int) model.Driver {
					return model.Driver(d)
				}),
			}
		}),
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
