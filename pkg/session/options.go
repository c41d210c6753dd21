// Package session runs races and qualifying sessions. A session owns its
// cars, the announcements and the safety car and advances them one tick at
// a time.
package session

import (
	"github.com/aarondl/opt/omit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/predict"
)

type (
	Option  func(*options)
	options struct {
		seed      omit.Val[uint64]
		grid      []int
		laps      int
		predictor *predict.Predictor
		l         *log.Logger
		meter     metric.Meter
		speed     float64
	}
)

// WithSeed overrides the seed derived from the roster
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = omit.From(seed)
	}
}

// WithGrid sets the starting order. grid[i] is the roster index of the car
// on grid slot i.
func WithGrid(grid []int) Option {
	return func(o *options) {
		o.grid = grid
	}
}

// WithLaps overrides the race distance of the tuning
func WithLaps(laps int) Option {
	return func(o *options) {
		o.laps = laps
	}
}

// WithPredictor enables tire predictions. The session does not close the
// predictor.
func WithPredictor(p *predict.Predictor) Option {
	return func(o *options) {
		o.predictor = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.l = l
	}
}

func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithSpeed sets the real time factor used by Run. 0 runs as fast as
// possible.
func WithSpeed(speed float64) Option {
	return func(o *options) {
		o.speed = max(0, speed)
	}
}

func newOptions(name string, opts ...Option) *options {
	ret := &options{
		l:     log.Default().Named(name),
		meter: otel.Meter("rsim.session"),
		speed: 1,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
