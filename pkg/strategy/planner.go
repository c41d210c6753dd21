package strategy

import (
	"math"
	"math/bits"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/physics"
	"github.com/mpapenbr/racesim/pkg/track"
)

type (
	// Request describes the situation a plan is computed for
	Request struct {
		LapsLeft  int
		Current   model.CompoundID // compound currently fitted
		TirePct   float64
		Style     model.Style
		Used      []model.CompoundID // compounds used so far (Current is added automatically)
		Stops     int                // completed stops
		FreeStart bool               // choose the starting compound (car creation)
		PitNow    bool               // the car is stopping now, the plan starts with a pit part
		StartLap  int                // lap number of the first stint, defaults to 1
	}
	// Plan is the result of the planner.
	// Fallback is set if no plan satisfied the constraints.
	Plan struct {
		Result         *Result
		EstimatedTicks float64
		Fallback       bool
		tickRate       int
	}
	Option  func(*Planner)
	Planner struct {
		tuning   *model.Tuning
		lapTicks float64
		mu       sync.Mutex
		memo     map[memoKey]node
		l        *log.Logger
	}
	memoKey struct {
		lapsLeft  int
		pctBucket int
		style     model.Style
		used      uint32
		stops     int
		compound  model.CompoundID
	}
	stint struct {
		compound model.CompoundID
		laps     int
	}
	node struct {
		ticks    float64
		stints   []stint
		feasible bool
	}
)

func WithLogger(l *log.Logger) Option {
	return func(p *Planner) {
		p.l = l
	}
}

// New creates a planner. lapTicks is the estimated duration of a lap on
// fresh tires (see EstimateLapTicks).
func New(t *model.Tuning, lapTicks float64, opts ...Option) *Planner {
	ret := &Planner{
		tuning:   t,
		lapTicks: math.Max(1, lapTicks),
		memo:     make(map[memoKey]node),
		l:        log.Default().Named("strategy"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// EstimateLapTicks integrates the desired speed profile of the track
func EstimateLapTicks(tr *track.Track, t *model.Tuning) float64 {
	const step = 1.0
	ticks := 0.0
	for d := 0.0; d < tr.Length(); d += step {
		ticks += math.Min(step, tr.Length()-d) / math.Max(tr.DesiredSpeedAt(d), t.MinSpeed)
	}
	return ticks
}

func (p *Planner) LapTicks() float64 {
	return p.lapTicks
}

// LapsUntilThreshold returns the number of full laps a tire at pct can do
// before reaching the (style scaled) wear threshold
func (p *Planner) LapsUntilThreshold(c model.CompoundID, pct float64, style model.Style) int {
	comp := p.tuning.Compound(c)
	limit := comp.Threshold * style.ThresholdScale()
	if pct <= limit {
		return 0
	}
	return int(math.Floor((pct - limit) / (comp.WearRate * p.lapTicks)))
}

// EstimateStintTicks sums up the lap times of a stint, each lap slowed down
// by the wear state at its start
func (p *Planner) EstimateStintTicks(c model.CompoundID, pct float64, laps int) float64 {
	comp := p.tuning.Compound(c)
	ticks := 0.0
	for range laps {
		ticks += p.lapTicks / (comp.Grip * physics.WearFactor(comp, pct))
		pct = math.Max(1, pct-physics.WearPerTick(comp, pct, 1)*p.lapTicks)
	}
	return ticks
}

func (p *Planner) pitPenalty() float64 {
	return float64(p.tuning.PitTravelTicks + p.tuning.PitStationaryTicks)
}

func (p *Planner) Plan(req Request) *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	lapsLeft := max(1, req.LapsLeft)
	used := maskOf(req.Used)
	var best node
	best.ticks = math.Inf(1)
	prefixPit := false
	switch {
	case req.FreeStart:
		for _, c := range p.tuning.CompoundIDs() {
			n := p.search(lapsLeft, 100, c, used|bit(c), req.Stops, req.Style)
			if n.feasible && n.ticks < best.ticks {
				best = n
			}
		}
	case req.PitNow:
		prefixPit = true
		for _, c := range p.tuning.CompoundIDs() {
			n := p.search(lapsLeft, 100, c, used|bit(req.Current)|bit(c), req.Stops+1, req.Style)
			if n.feasible && n.ticks+p.pitPenalty() < best.ticks {
				best = n
				best.ticks += p.pitPenalty()
			}
		}
	default:
		best = p.search(lapsLeft, req.TirePct, req.Current, used|bit(req.Current), req.Stops, req.Style)
	}
	if !best.feasible {
		p.l.Debug("no feasible plan, using fallback",
			log.Int("lapsLeft", lapsLeft), log.Int("stops", req.Stops))
		return p.fallback(req, lapsLeft, used)
	}
	return p.build(req, best.stints, best.ticks, prefixPit, false)
}

//nolint:whitespace // editor/linter issue
func (p *Planner) search(
	lapsLeft int,
	pct float64,
	compound model.CompoundID,
	used uint32,
	stops int,
	style model.Style,
) node {
	bucket := int(math.Floor(pct / p.tuning.PlannerPctBucket))
	quantized := math.Min(100, float64(bucket)*p.tuning.PlannerPctBucket)
	if pct >= 100 {
		quantized = 100
	}
	key := memoKey{lapsLeft, bucket, style, used, stops, compound}
	if n, ok := p.memo[key]; ok {
		return n
	}
	res := node{ticks: math.Inf(1)}
	kmax := p.LapsUntilThreshold(compound, quantized, style)
	if kmax >= lapsLeft && stops >= 1 && bits.OnesCount32(used) >= 2 {
		res = node{
			ticks:    p.EstimateStintTicks(compound, quantized, lapsLeft),
			stints:   []stint{{compound, lapsLeft}},
			feasible: true,
		}
	}
	if stops < p.tuning.MaxStops && lapsLeft > 1 {
		k := max(1, min(kmax, lapsLeft-1))
		stintTicks := p.EstimateStintTicks(compound, quantized, k)
		for _, c := range p.tuning.CompoundIDs() {
			sub := p.search(lapsLeft-k, 100, c, used|bit(c), stops+1, style)
			if !sub.feasible {
				continue
			}
			total := stintTicks + p.pitPenalty() + sub.ticks
			if total < res.ticks {
				res = node{
					ticks:    total,
					stints:   append([]stint{{compound, k}}, sub.stints...),
					feasible: true,
				}
			}
		}
	}
	p.memo[key] = res
	return res
}

// fallback is a hand picked two stint plan
func (p *Planner) fallback(req Request, lapsLeft int, used uint32) *Plan {
	first := req.Current
	if req.FreeStart {
		first = model.Medium
	}
	other := func(not model.CompoundID) model.CompoundID {
		candidates := lo.Filter(p.tuning.CompoundIDs(), func(c model.CompoundID, _ int) bool {
			return c != not
		})
		fresh := lo.Filter(candidates, func(c model.CompoundID, _ int) bool {
			return used&bit(c) == 0
		})
		if len(fresh) > 0 {
			return fresh[0]
		}
		return candidates[0]
	}
	var stints []stint
	if req.PitNow {
		stints = []stint{{other(req.Current), lapsLeft}}
	} else {
		a := max(1, lapsLeft/2)
		stints = []stint{{first, a}}
		if b := lapsLeft - a; b > 0 {
			stints = append(stints, stint{other(first), b})
		}
	}
	ticks := 0.0
	for i, s := range stints {
		pct := 100.0
		if i == 0 && !req.FreeStart && !req.PitNow {
			pct = req.TirePct
		}
		ticks += p.EstimateStintTicks(s.compound, pct, s.laps)
	}
	pits := len(stints) - 1
	if req.PitNow {
		pits++
	}
	ticks += float64(pits) * p.pitPenalty()
	return p.build(req, stints, ticks, req.PitNow, true)
}

//nolint:whitespace // editor/linter issue
func (p *Planner) build(
	req Request,
	stints []stint,
	ticks float64,
	prefixPit, fallback bool,
) *Plan {
	toDur := func(t float64) time.Duration {
		return time.Duration(t / float64(p.tuning.TickRate) * float64(time.Second))
	}
	pit := &pitPart{pitTime: toDur(p.pitPenalty())}
	parts := make([]Part, 0, 2*len(stints))
	if prefixPit {
		parts = append(parts, pit)
	}
	lap := max(1, req.StartLap)
	for i, s := range stints {
		if i > 0 {
			parts = append(parts, pit)
		}
		pct := 100.0
		if i == 0 && !prefixPit && !req.FreeStart {
			pct = req.TirePct
		}
		parts = append(parts, &stintPart{
			compound:     s.compound,
			compoundName: p.tuning.Compound(s.compound).Name,
			laps:         s.laps,
			lapStart:     lap,
			lapEnd:       lap + s.laps - 1,
			stintTime:    toDur(p.EstimateStintTicks(s.compound, pct, s.laps)),
		})
		lap += s.laps
	}
	return &Plan{
		Result:         &Result{Parts: parts},
		EstimatedTicks: ticks,
		Fallback:       fallback,
		tickRate:       p.tuning.TickRate,
	}
}

func (p *Plan) EstimatedTime() time.Duration {
	return time.Duration(p.EstimatedTicks / float64(p.tickRate) * float64(time.Second))
}

// FirstCompound returns the compound of the first stint
func (p *Plan) FirstCompound() model.CompoundID {
	return p.Result.Stints()[0].Compound()
}

// NextCompound returns the compound fitted at the first pit stop of the plan
func (p *Plan) NextCompound() (model.CompoundID, bool) {
	idx := slices.IndexFunc(p.Result.Parts, func(part Part) bool {
		return part.Type() == PartTypePit
	})
	if idx < 0 {
		return 0, false
	}
	for _, part := range p.Result.Parts[idx+1:] {
		if s, ok := part.(StintPart); ok {
			return s.Compound(), true
		}
	}
	return 0, false
}

func bit(c model.CompoundID) uint32 {
	return 1 << uint(c)
}

func maskOf(ids []model.CompoundID) uint32 {
	var ret uint32
	for _, c := range ids {
		ret |= bit(c)
	}
	return ret
}
