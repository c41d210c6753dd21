package track

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"
)

// dedupe removes repeated points (not only consecutive ones)
func dedupe(points []geom.XY) []geom.XY {
	seen := make(map[geom.XY]struct{}, len(points))
	ret := make([]geom.XY, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		ret = append(ret, p)
	}
	return ret
}

// smoothClosed resamples the closed loop through points with a periodic
// Catmull-Rom spline into n points
func smoothClosed(points []geom.XY, n int) []geom.XY {
	m := len(points)
	if m < 3 || n < 3 {
		return points
	}
	ret := make([]geom.XY, n)
	for k := 0; k < n; k++ {
		t := float64(k) * float64(m) / float64(n)
		j := int(math.Floor(t))
		u := t - float64(j)
		ret[k] = catmullRom(
			points[(j-1+m)%m],
			points[j%m],
			points[(j+1)%m],
			points[(j+2)%m],
			u)
	}
	return ret
}

func catmullRom(p0, p1, p2, p3 geom.XY, u float64) geom.XY {
	u2 := u * u
	u3 := u2 * u
	// 0.5 * (2p1 + (-p0+p2)u + (2p0-5p1+4p2-p3)u^2 + (-p0+3p1-3p2+p3)u^3)
	c0 := p1.Scale(2)
	c1 := p2.Sub(p0).Scale(u)
	c2 := p0.Scale(2).Sub(p1.Scale(5)).Add(p2.Scale(4)).Sub(p3).Scale(u2)
	c3 := p1.Scale(3).Sub(p0).Sub(p2.Scale(3)).Add(p3).Scale(u3)
	return c0.Add(c1).Add(c2).Add(c3).Scale(0.5)
}
