// Package predict runs advisory what-if simulations of single cars on a
// worker pool. A prediction fast forwards a copy of the car state without
// other cars and reports the tire state at the end of the horizon.
package predict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/physics"
	"github.com/mpapenbr/racesim/pkg/track"
)

var ErrPanic = errors.New("prediction panicked")

// Prediction is the result of a fast forward
type Prediction struct {
	CarID      int           `json:"carId"`
	Generation int           `json:"generation"`
	TirePct    float64       `json:"tirePct"`
	Fuel       float64       `json:"fuel"`
	Laps       float64       `json:"laps"`  // distance covered in laps
	Ticks      int           `json:"ticks"` // simulated ticks
	Active     bool          `json:"active"`
	Elapsed    time.Duration `json:"elapsed"`
}

type (
	Option    func(*Predictor)
	Predictor struct {
		track      *track.Track
		tuning     *model.Tuning
		workers    int
		interval   time.Duration
		clock      func() time.Time
		targetLaps float64
		tracer     trace.Tracer
		meter      metric.Meter
		duration   metric.Float64Histogram
		discarded  metric.Int64Counter
		l          *log.Logger

		mu      sync.Mutex
		closed  bool
		jobs    chan physics.Snapshot
		slots   map[int]chan result
		pending map[int]bool
		last    map[int]time.Time
		wg      sync.WaitGroup
	}
	result struct {
		pred Prediction
		err  error
	}
)

func WithWorkers(n int) Option {
	return func(p *Predictor) {
		p.workers = max(1, n)
	}
}

// WithInterval sets the minimum wall clock time between two predictions of
// the same car
func WithInterval(d time.Duration) Option {
	return func(p *Predictor) {
		p.interval = d
	}
}

func WithClock(clock func() time.Time) Option {
	return func(p *Predictor) {
		p.clock = clock
	}
}

// WithTargetLaps sets the prediction horizon
func WithTargetLaps(laps float64) Option {
	return func(p *Predictor) {
		p.targetLaps = laps
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Predictor) {
		p.tracer = t
	}
}

func WithMeter(m metric.Meter) Option {
	return func(p *Predictor) {
		p.meter = m
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Predictor) {
		p.l = l
	}
}

// New starts the workers. Close must be called to stop them.
func New(tr *track.Track, t *model.Tuning, opts ...Option) *Predictor {
	ret := &Predictor{
		track:      tr,
		tuning:     t,
		workers:    2,
		interval:   time.Second,
		clock:      time.Now,
		targetLaps: 1,
		tracer:     otel.Tracer("rsim.predict"),
		meter:      otel.Meter("rsim.predict"),
		l:          log.Default().Named("predict"),
		slots:      make(map[int]chan result),
		pending:    make(map[int]bool),
		last:       make(map[int]time.Time),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.setupMetrics()
	ret.jobs = make(chan physics.Snapshot, ret.workers)
	for range ret.workers {
		ret.wg.Add(1)
		go ret.work()
	}
	return ret
}

func (p *Predictor) setupMetrics() {
	var err error
	if p.duration, err = p.meter.Float64Histogram("rsim.predict.duration",
		metric.WithDescription("Duration of a prediction"),
		metric.WithUnit("ms")); err != nil {
		p.l.Error("failed to register metric", log.ErrorField(err))
	}
	if p.discarded, err = p.meter.Int64Counter("rsim.predict.discarded",
		metric.WithDescription("Number of discarded predictions"),
		metric.WithUnit("{count}")); err != nil {
		p.l.Error("failed to register metric", log.ErrorField(err))
	}
}

func (p *Predictor) slot(carID int) chan result {
	ch, ok := p.slots[carID]
	if !ok {
		ch = make(chan result, 1)
		p.slots[carID] = ch
	}
	return ch
}

// Schedule queues a prediction for the car of snap. It returns false if a
// prediction of this car is still pending (or not yet polled), the interval
// has not elapsed, the queue is full or the predictor is closed.
func (p *Predictor) Schedule(snap physics.Snapshot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.pending[snap.CarID] {
		return false
	}
	now := p.clock()
	if last, ok := p.last[snap.CarID]; ok && now.Sub(last) < p.interval {
		return false
	}
	p.slot(snap.CarID)
	select {
	case p.jobs <- snap:
		p.pending[snap.CarID] = true
		p.last[snap.CarID] = now
		return true
	default:
		return false
	}
}

// Poll returns the prediction for the car if one is ready and belongs to
// the given generation. Stale results are discarded. Never blocks.
func (p *Predictor) Poll(carID, generation int) (Prediction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.slots[carID]
	if !ok {
		return Prediction{}, false
	}
	select {
	case r := <-ch:
		p.pending[carID] = false
		if r.err != nil {
			return Prediction{}, false
		}
		if r.pred.Generation != generation {
			p.discarded.Add(context.Background(), 1,
				metric.WithAttributes(attribute.Int("car", carID)))
			return Prediction{}, false
		}
		return r.pred, true
	default:
		return Prediction{}, false
	}
}

// Close stops the workers. Results not yet polled are dropped.
func (p *Predictor) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Predictor) work() {
	defer p.wg.Done()
	for snap := range p.jobs {
		r := p.safeRun(snap)
		p.mu.Lock()
		ch := p.slot(snap.CarID)
		p.mu.Unlock()
		// the slot is empty: a job is only queued after the last result was polled
		select {
		case ch <- r:
		default:
			p.l.Warn("result slot occupied, dropping prediction", log.Int("car", snap.CarID))
		}
	}
}

func (p *Predictor) safeRun(snap physics.Snapshot) (ret result) {
	ctx, span := p.tracer.Start(context.Background(), "predict.fastforward",
		trace.WithAttributes(
			attribute.Int("car", snap.CarID),
			attribute.Int("generation", snap.Generation)))
	defer span.End()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ret = result{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			span.RecordError(ret.err)
			p.l.Warn("prediction failed", log.Int("car", snap.CarID), log.Any("panic", r))
		}
		p.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	}()
	pred, err := p.FastForward(snap)
	if err != nil {
		span.RecordError(err)
		return result{err: err}
	}
	pred.Elapsed = time.Since(start)
	return result{pred: pred}
}

// FastForward simulates the car of snap on its own until the target laps
// are covered or the car stops. snap is not modified.
func (p *Predictor) FastForward(snap physics.Snapshot) (Prediction, error) {
	// the clone must not share memory with the car once Snapshot grows
	// reference fields
	clone, err := deep.Copy(snap)
	if err != nil {
		return Prediction{}, err
	}
	s := &clone.State
	target := p.targetLaps * p.track.Length()
	maxTicks := int(target/p.tuning.MinSpeed) + 1
	covered := 0.0
	ticks := 0
	for ; ticks < maxTicks && covered < target && s.Active; ticks++ {
		res := physics.Advance(p.track, p.tuning, s, physics.Draft{AheadID: physics.NoCar})
		covered += res.Covered
	}
	return Prediction{
		CarID:      snap.CarID,
		Generation: snap.Generation,
		TirePct:    s.TirePct,
		Fuel:       s.Fuel,
		Laps:       covered / p.track.Length(),
		Ticks:      ticks,
		Active:     s.Active,
	}, nil
}
