package track

import (
	"math"
	"sort"

	"github.com/peterstace/simplefeatures/geom"
)

// polyline holds points together with the cumulative arc-length table.
// For closed polylines the segment from the last to the first point is
// part of the table, so len(cumulative) == len(points)+1.
type polyline struct {
	points     []geom.XY
	cumulative []float64
	closed     bool
}

func newPolyline(points []geom.XY, closed bool) polyline {
	segments := len(points) - 1
	if closed {
		segments = len(points)
	}
	cum := make([]float64, 0, segments+1)
	cum = append(cum, 0)
	total := 0.0
	for i := 0; i < segments; i++ {
		total += points[(i+1)%len(points)].Sub(points[i]).Length()
		cum = append(cum, total)
	}
	return polyline{points: points, cumulative: cum, closed: closed}
}

func (p *polyline) length() float64 {
	return p.cumulative[len(p.cumulative)-1]
}

func (p *polyline) vertex(i int) geom.XY {
	return p.points[i%len(p.points)]
}

// segmentAt returns the index i of the segment with
// cumulative[i] <= d <= cumulative[i+1]
func (p *polyline) segmentAt(d float64) int {
	idx := sort.SearchFloat64s(p.cumulative, d)
	// SearchFloat64s returns the first index with cumulative[idx] >= d
	if idx >= len(p.cumulative) {
		return len(p.cumulative) - 2
	}
	if idx > 0 && p.cumulative[idx] > d {
		idx--
	}
	return min(idx, len(p.cumulative)-2)
}

// positionAt expects d to be within [0,length]
func (p *polyline) positionAt(d float64) geom.XY {
	i := p.segmentAt(d)
	segLen := p.cumulative[i+1] - p.cumulative[i]
	a, b := p.vertex(i), p.vertex(i+1)
	if segLen <= 0 {
		return a
	}
	t := (d - p.cumulative[i]) / segLen
	return a.Add(b.Sub(a).Scale(t))
}

// project returns the arc-length of the point on the polyline closest to pt
// and the distance between them
func (p *polyline) project(pt geom.XY) (arc, dist float64) {
	best := math.Inf(1)
	segments := len(p.cumulative) - 1
	for i := 0; i < segments; i++ {
		a, b := p.vertex(i), p.vertex(i+1)
		ab := b.Sub(a)
		segLen2 := ab.Dot(ab)
		t := 0.0
		if segLen2 > 0 {
			t = math.Max(0, math.Min(1, pt.Sub(a).Dot(ab)/segLen2))
		}
		d := pt.Sub(a.Add(ab.Scale(t))).Length()
		if d < best {
			best = d
			arc = p.cumulative[i] + t*(p.cumulative[i+1]-p.cumulative[i])
		}
	}
	return arc, best
}

// turnAngle computes the angle (rad, [0,pi]) between the directions a->b and b->c.
// Degenerate vectors yield 0.
func turnAngle(a, b, c geom.XY) float64 {
	v1 := b.Sub(a)
	v2 := c.Sub(b)
	m1, m2 := v1.Length(), v2.Length()
	if m1 == 0 || m2 == 0 {
		return 0
	}
	cos := math.Max(-1, math.Min(1, v1.Dot(v2)/(m1*m2)))
	return math.Acos(cos)
}
