package track

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/model"
)

var (
	ErrTooFewPoints   = errors.New("track needs at least 3 distinct points")
	ErrInvalidPoint   = errors.New("track contains non-finite coordinates")
	ErrZeroLength     = errors.New("track has zero length")
	ErrInvalidPitLane = errors.New("invalid pit lane")
)

type CornerClass int

const (
	Straight CornerClass = iota
	FastCorner
	MediumCorner
	SlowCorner
)

func (c CornerClass) String() string {
	switch c {
	case FastCorner:
		return "fast"
	case MediumCorner:
		return "medium"
	case SlowCorner:
		return "slow"
	default:
		return "straight"
	}
}

type speedEntry struct {
	dist  float64
	speed float64
}

// Track is immutable after construction and safe for concurrent reads.
type Track struct {
	line        polyline
	speeds      []speedEntry
	startFinish float64
	pit         *PitLane
	corners     cornerConfig
}

// PitLane is an open polyline with its own arc-length coordinate.
// Entrance and exit are arc-lengths on the main track.
type PitLane struct {
	line     polyline
	entrance float64
	exit     float64
}

type cornerConfig struct {
	lookahead float64
	fast      float64
	medium    float64
	slow      float64
}

type config struct {
	pitLane       []geom.XY
	smoothing     int
	minSpeed      float64
	maxSpeed      float64
	curvatureGain float64
	corners       cornerConfig
	l             *log.Logger
}

type Option func(*config)

func WithPitLane(points []geom.XY) Option {
	return func(c *config) {
		c.pitLane = points
	}
}

// WithSmoothing resamples the track into n points. n < 3 disables smoothing.
func WithSmoothing(n int) Option {
	return func(c *config) {
		c.smoothing = n
	}
}

func WithSpeedLimits(minSpeed, maxSpeed float64) Option {
	return func(c *config) {
		c.minSpeed = minSpeed
		c.maxSpeed = maxSpeed
	}
}

func WithCurvatureGain(gain float64) Option {
	return func(c *config) {
		c.curvatureGain = gain
	}
}

// WithCornerThresholds configures the corner classification
func WithCornerThresholds(lookahead, fast, medium, slow float64) Option {
	return func(c *config) {
		c.corners = cornerConfig{lookahead: lookahead, fast: fast, medium: medium, slow: slow}
	}
}

// WithTuning applies the track related values of t
func WithTuning(t *model.Tuning) Option {
	return func(c *config) {
		c.smoothing = t.SmoothingPoints
		c.minSpeed = t.DesiredMinSpeed
		c.maxSpeed = t.DesiredMaxSpeed
		c.curvatureGain = t.CurvatureGain
		c.corners = cornerConfig{
			lookahead: t.CornerLookahead,
			fast:      t.FastCorner,
			medium:    t.MediumCorner,
			slow:      t.SlowCorner,
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		c.l = l
	}
}

// New builds a closed track from points. The start/finish line is placed at
// the track position closest to startFinish.
func New(points []geom.XY, startFinish geom.XY, opts ...Option) (*Track, error) {
	def := model.DefaultTuning()
	cfg := &config{l: log.Default().Named("track")}
	WithTuning(def)(cfg)
	for _, opt := range opts {
		opt(cfg)
	}
	for _, p := range append(append([]geom.XY{}, points...), startFinish) {
		if !finite(p) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, p)
		}
	}
	unique := dedupe(points)
	if len(unique) < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(unique))
	}
	if cfg.smoothing >= 3 {
		unique = smoothClosed(unique, cfg.smoothing)
	}
	if l := closedLineString(unique).Length(); l <= 0 || math.IsNaN(l) {
		return nil, ErrZeroLength
	}

	t := &Track{line: newPolyline(unique, true), corners: cfg.corners}
	t.speeds = buildSpeedTable(&t.line, cfg.minSpeed, cfg.maxSpeed, cfg.curvatureGain)
	t.startFinish = t.DistanceOf(startFinish)

	if cfg.pitLane != nil {
		pit, err := t.buildPitLane(cfg.pitLane)
		if err != nil {
			return nil, err
		}
		t.pit = pit
	}
	cfg.l.Debug("track built",
		log.Int("points", len(unique)),
		log.Float64("length", t.Length()),
		log.Float64("startFinish", t.startFinish),
		log.Bool("pitLane", t.pit != nil))
	return t, nil
}

func (t *Track) buildPitLane(points []geom.XY) (*PitLane, error) {
	for _, p := range points {
		if !finite(p) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, p)
		}
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: needs at least 2 points, got %d",
			ErrInvalidPitLane, len(points))
	}
	line := newPolyline(points, false)
	if line.length() <= 0 {
		return nil, fmt.Errorf("%w: zero length", ErrInvalidPitLane)
	}
	return &PitLane{
		line:     line,
		entrance: t.DistanceOf(points[0]),
		exit:     t.DistanceOf(points[len(points)-1]),
	}, nil
}

func buildSpeedTable(line *polyline, minSpeed, maxSpeed, gain float64) []speedEntry {
	n := len(line.points)
	ret := make([]speedEntry, 0, n+1)
	for i := 0; i < n; i++ {
		angle := turnAngle(line.vertex(i+n-1), line.vertex(i), line.vertex(i+1))
		factor := math.Min(1, gain*angle/math.Pi)
		speed := math.Max(minSpeed, maxSpeed-(maxSpeed-minSpeed)*factor)
		ret = append(ret, speedEntry{dist: line.cumulative[i], speed: speed})
	}
	// closes the loop for interpolation between the last vertex and the first
	return append(ret, speedEntry{dist: line.length(), speed: ret[0].speed})
}

func closedLineString(points []geom.XY) geom.LineString {
	flat := make([]float64, 0, 2*(len(points)+1))
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	flat = append(flat, points[0].X, points[0].Y)
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

func finite(p geom.XY) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func (t *Track) Length() float64 {
	return t.line.length()
}

// Points returns a copy of the (possibly smoothed) track points
func (t *Track) Points() []geom.XY {
	return append([]geom.XY{}, t.line.points...)
}

// StartFinish returns the arc-length of the start/finish line
func (t *Track) StartFinish() float64 {
	return t.startFinish
}

// Wrap maps d into [0,Length)
func (t *Track) Wrap(d float64) float64 {
	l := t.Length()
	r := math.Mod(d, l)
	if r < 0 {
		r += l
	}
	if r >= l {
		r = 0
	}
	return r
}

// Gap returns the forward arc distance from from to to
func (t *Track) Gap(from, to float64) float64 {
	return t.Wrap(to - from)
}

// SinceStartFinish expresses d relative to the start/finish line
func (t *Track) SinceStartFinish(d float64) float64 {
	return t.Wrap(d - t.startFinish)
}

func (t *Track) PositionAt(d float64) geom.XY {
	return t.line.positionAt(t.Wrap(d))
}

// DesiredSpeedAt interpolates the curvature based speed table
func (t *Track) DesiredSpeedAt(d float64) float64 {
	d = t.Wrap(d)
	idx := sort.Search(len(t.speeds), func(i int) bool { return t.speeds[i].dist >= d })
	if idx >= len(t.speeds) {
		return t.speeds[len(t.speeds)-1].speed
	}
	if idx == 0 || t.speeds[idx].dist == d {
		return t.speeds[idx].speed
	}
	a, b := t.speeds[idx-1], t.speeds[idx]
	span := b.dist - a.dist
	if span <= 0 {
		return b.speed
	}
	return a.speed + (b.speed-a.speed)*(d-a.dist)/span
}

// DistanceOf returns the arc-length of the track point closest to p
func (t *Track) DistanceOf(p geom.XY) float64 {
	arc, _ := t.line.project(p)
	return t.Wrap(arc)
}

// TurnAngleAt returns the heading change between d-lookahead and d+lookahead
func (t *Track) TurnAngleAt(d, lookahead float64) float64 {
	return turnAngle(t.PositionAt(d-lookahead), t.PositionAt(d), t.PositionAt(d+lookahead))
}

// Corner classifies the track at d using the configured lookahead
func (t *Track) Corner(d float64) CornerClass {
	angle := t.TurnAngleAt(d, t.corners.lookahead)
	switch {
	case angle >= t.corners.slow:
		return SlowCorner
	case angle >= t.corners.medium:
		return MediumCorner
	case angle >= t.corners.fast:
		return FastCorner
	default:
		return Straight
	}
}

// CornerSeverity maps the turn angle at d into [0,1]
func (t *Track) CornerSeverity(d float64) float64 {
	if t.corners.slow <= 0 {
		return 0
	}
	return math.Min(1, t.TurnAngleAt(d, t.corners.lookahead)/t.corners.slow)
}

// CornerProfile sums up the track length per corner class, sampled every step
func (t *Track) CornerProfile(step float64) map[CornerClass]float64 {
	ret := map[CornerClass]float64{}
	if step <= 0 {
		return ret
	}
	for d := 0.0; d < t.Length(); d += step {
		ret[t.Corner(d)] += math.Min(step, t.Length()-d)
	}
	return ret
}

func (t *Track) HasPitLane() bool {
	return t.pit != nil
}

// PitLane returns nil if the track has no pit lane
func (t *Track) PitLane() *PitLane {
	return t.pit
}

// PitEntrance returns the main track arc-length of the pit entrance.
// Without a pit lane this is the start/finish line.
func (t *Track) PitEntrance() float64 {
	if t.pit == nil {
		return t.startFinish
	}
	return t.pit.entrance
}

// PitExit returns the main track arc-length of the pit exit.
// Without a pit lane this is the start/finish line.
func (t *Track) PitExit() float64 {
	if t.pit == nil {
		return t.startFinish
	}
	return t.pit.exit
}

// PitProjection maps a pit lane distance linearly onto the main track span
// between entrance and exit
func (t *Track) PitProjection(pd float64) float64 {
	if t.pit == nil {
		return t.startFinish
	}
	frac := math.Max(0, math.Min(1, pd/t.pit.Length()))
	span := t.Gap(t.pit.entrance, t.pit.exit)
	return t.Wrap(t.pit.entrance + span*frac)
}

func (p *PitLane) Length() float64 {
	return p.line.length()
}

// PositionAt clamps pd to [0,Length]
func (p *PitLane) PositionAt(pd float64) geom.XY {
	return p.line.positionAt(math.Max(0, math.Min(pd, p.Length())))
}

func (p *PitLane) Points() []geom.XY {
	return append([]geom.XY{}, p.line.points...)
}
