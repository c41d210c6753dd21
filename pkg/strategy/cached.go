package strategy

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/utils/cache"
	"github.com/mpapenbr/racesim/pkg/utils/cache/loadercache"
)

// requestKey is the comparable form of a Request.
// The tire percentage is reduced to the planner bucket.
type requestKey struct {
	lapsLeft  int
	current   model.CompoundID
	pctBucket int
	style     model.Style
	used      uint32
	stops     int
	freeStart bool
	pitNow    bool
	startLap  int
}

// CachedPlanner shares plans between cars in the same situation
type CachedPlanner struct {
	planner *Planner
	bucket  float64
	cache   cache.Cache[requestKey, Plan]
	l       *log.Logger
}

func NewCachedPlanner(p *Planner, expiration time.Duration, maxItems int) *CachedPlanner {
	ret := &CachedPlanner{
		planner: p,
		bucket:  p.tuning.PlannerPctBucket,
		l:       p.l,
	}
	ret.cache = loadercache.New(
		loadercache.WithLoader[requestKey, Plan](ret.load),
		loadercache.WithExpiration[requestKey, Plan](expiration),
		loadercache.WithMaxItems[requestKey, Plan](maxItems),
		loadercache.WithLogger[requestKey, Plan](p.l.Named("cache")),
	)
	return ret
}

func (c *CachedPlanner) key(req Request) requestKey {
	return requestKey{
		lapsLeft:  req.LapsLeft,
		current:   req.Current,
		pctBucket: int(math.Floor(req.TirePct / c.bucket)),
		style:     req.Style,
		used:      maskOf(req.Used),
		stops:     req.Stops,
		freeStart: req.FreeStart,
		pitNow:    req.PitNow,
		startLap:  req.StartLap,
	}
}

func (c *CachedPlanner) load(k requestKey) (*Plan, error) {
	used := slices.DeleteFunc(c.planner.tuning.CompoundIDs(), func(id model.CompoundID) bool {
		return k.used&bit(id) == 0
	})
	return c.planner.Plan(Request{
		LapsLeft:  k.lapsLeft,
		Current:   k.current,
		TirePct:   math.Min(100, float64(k.pctBucket)*c.bucket),
		Style:     k.style,
		Used:      used,
		Stops:     k.stops,
		FreeStart: k.freeStart,
		PitNow:    k.pitNow,
		StartLap:  k.startLap,
	}), nil
}

// Plan returns the cached plan for req or computes it.
// The returned plan must not be modified.
func (c *CachedPlanner) Plan(req Request) *Plan {
	p, err := c.cache.Get(context.Background(), c.key(req))
	if err != nil {
		c.l.Warn("cached plan failed, computing directly", log.ErrorField(err))
		return c.planner.Plan(req)
	}
	return p
}

func (c *CachedPlanner) Len() int {
	return c.cache.Len()
}
