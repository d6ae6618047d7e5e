package stock

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/chisel/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Hit is one crossing of a ray with a stock surface.
type Hit struct {
	Point v3.Vec  // where the ray crosses the surface
	Away  v3.Vec  // outward surface normal at Point
	LineP float64 // ray parameter of Point; the ray direction is unit length
}

// Intersects collects the forward crossings of a ray with a form, nearest
// first.
type Intersects struct {
	Hits []Hit

	// Mid is a point inside the crossed material, biased toward the first
	// hit. MidOut is the unit direction from Mid to the nearest surface and
	// MidDist the distance along it. For segments, surfaces facing along
	// the segment are passed over, since leaving through them does not
	// clear it.
	Mid     v3.Vec
	MidOut  v3.Vec
	MidDist float64
}

// Hit reports whether the ray crossed the form at all.
func (x Intersects) Hit() bool { return len(x.Hits) > 0 }

// First returns the nearest forward crossing.
func (x Intersects) First() Hit {
	if len(x.Hits) == 0 {
		return Hit{}
	}
	return x.Hits[0]
}

// Through returns the farthest forward crossing.
func (x Intersects) Through() Hit {
	if len(x.Hits) == 0 {
		return Hit{}
	}
	return x.Hits[len(x.Hits)-1]
}

// ThroughDistance is the distance along the ray to the last crossing, or 0
// when nothing was hit.
func (x Intersects) ThroughDistance() float64 {
	return x.Through().LineP
}

// hitMerge is the parameter distance under which two crossings at an edge
// or corner count as one.
const hitMerge = 1e-9

// Intersect casts a ray from p along dir against f inflated by tol plus the
// form's material tolerance. Only crossings at or ahead of p are kept.
func Intersect(f Form, p, dir v3.Vec, tol float64) Intersects {
	all := lineHits(f, p, geom.Unit(dir), tol+f.Clearance().MaterialTolerance)
	var x Intersects
	for _, h := range all {
		if h.LineP >= -hitMerge {
			x.Hits = append(x.Hits, h)
		}
	}
	if x.Hit() {
		first, through := x.First().Point, x.Through().Point
		x.Mid = first.MulScalar(1.5).Add(through).DivScalar(2.5)
		x.MidOut, x.MidDist = nearestSurface(f, x.Mid, v3.Vec{})
	}
	return x
}

// IntersectSegment reports whether the segment from start to end passes
// through f inflated by tol, and returns the ray intersections measured from
// start toward end. Grazing contact and crossings that only touch an
// endpoint do not count.
func IntersectSegment(f Form, start, end v3.Vec, tol float64) (bool, Intersects) {
	d := end.Sub(start)
	l := d.Length()
	if l < geom.Epsilon {
		return false, Intersects{}
	}
	dir := d.DivScalar(l)
	x := Intersect(f, start, dir, tol)
	all := lineHits(f, start, dir, tol+f.Clearance().MaterialTolerance)
	if len(all) < 2 {
		return false, x
	}
	// Convex shapes: material occupies [enter, exit] along the line.
	enter, exit := all[0].LineP, all[len(all)-1].LineP
	const eps = 1e-7
	lo, hi := math.Max(enter, 0), math.Min(exit, l)
	if hi-lo <= eps || enter >= l-eps || exit <= eps {
		return false, x
	}
	// Rebuild mid from the part of the segment actually inside so a long
	// segment is pushed out where it crosses.
	a := start.Add(dir.MulScalar(lo))
	b := start.Add(dir.MulScalar(hi))
	x.Mid = a.MulScalar(1.5).Add(b).DivScalar(2.5)
	x.MidOut, x.MidDist = nearestSurface(f, x.Mid, dir)
	return true, x
}

// lineHits returns every crossing along the full line through p, sorted by
// parameter.
func lineHits(f Form, p, dir v3.Vec, inflate float64) []Hit {
	var hits []Hit
	switch f := f.(type) {
	case *Box:
		hits = boxHits(f, p, dir, inflate)
	case *Cylinder:
		hits = cylinderHits(f, p, dir, inflate)
	default:
		panic(fmt.Sprintf("stock: unknown form %T", f))
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].LineP < hits[j].LineP })
	return mergeHits(hits)
}

// mergeHits collapses crossings that coincide at edges, averaging their
// normals.
func mergeHits(hits []Hit) []Hit {
	if len(hits) < 2 {
		return hits
	}
	out := hits[:1]
	for _, h := range hits[1:] {
		last := &out[len(out)-1]
		if h.LineP-last.LineP < hitMerge {
			last.Away = geom.Unit(last.Away.Add(h.Away))
			continue
		}
		out = append(out, h)
	}
	return out
}

func boxHits(b *Box, p, dir v3.Vec, inflate float64) []Hit {
	o := b.local(p.Sub(b.Center))
	d := b.local(dir)
	half := b.Size.MulScalar(0.5).AddScalar(inflate)
	oc := [3]float64{o.X, o.Y, o.Z}
	dc := [3]float64{d.X, d.Y, d.Z}
	hc := [3]float64{half.X, half.Y, half.Z}
	const slack = 1e-9

	var hits []Hit
	for i := 0; i < 3; i++ {
		if math.Abs(dc[i]) < geom.Epsilon {
			continue
		}
		for _, s := range [2]float64{-1, 1} {
			t := (s*hc[i] - oc[i]) / dc[i]
			inside := true
			for j := 0; j < 3; j++ {
				if j == i {
					continue
				}
				if math.Abs(oc[j]+dc[j]*t) > hc[j]+slack {
					inside = false
					break
				}
			}
			if !inside {
				continue
			}
			hits = append(hits, Hit{
				Point: p.Add(dir.MulScalar(t)),
				Away:  b.axis(i).MulScalar(s),
				LineP: t,
			})
		}
	}
	return hits
}

func cylinderHits(c *Cylinder, p, dir v3.Vec, inflate float64) []Hit {
	rel := p.Sub(c.Base)
	oa := rel.Dot(c.Axis)
	da := dir.Dot(c.Axis)
	op := rel.Sub(c.Axis.MulScalar(oa))
	dp := dir.Sub(c.Axis.MulScalar(da))
	r := c.Radius + inflate
	lo, hi := -inflate, c.Height+inflate
	const slack = 1e-9

	var hits []Hit
	// Caps apply unless the ray runs parallel to them.
	if math.Abs(da) > geom.Epsilon {
		for _, end := range [2]struct {
			h    float64
			sign float64
		}{{lo, -1}, {hi, 1}} {
			t := (end.h - oa) / da
			if op.Add(dp.MulScalar(t)).Length() <= r+slack {
				hits = append(hits, Hit{
					Point: p.Add(dir.MulScalar(t)),
					Away:  c.Axis.MulScalar(end.sign),
					LineP: t,
				})
			}
		}
	}
	// The side applies unless the ray runs along the axis.
	a := dp.Dot(dp)
	if a > geom.Epsilon*geom.Epsilon {
		bq := 2 * op.Dot(dp)
		cq := op.Dot(op) - r*r
		disc := bq*bq - 4*a*cq
		if disc >= 0 {
			sq := math.Sqrt(disc)
			for _, t := range [2]float64{(-bq - sq) / (2 * a), (-bq + sq) / (2 * a)} {
				h := oa + da*t
				if h < lo-slack || h > hi+slack {
					continue
				}
				radial := op.Add(dp.MulScalar(t))
				hits = append(hits, Hit{
					Point: p.Add(dir.MulScalar(t)),
					Away:  geom.Unit(radial),
					LineP: t,
				})
			}
		}
	}
	return hits
}

// headOn is the alignment above which a face normal counts as facing
// along a segment.
const headOn = 0.7

// nearestSurface returns the outward unit direction from q to the closest
// face of the form's material boundary and the distance to it. Distances
// are measured to the form inflated by its material tolerance. Faces whose
// normal lies within headOn of a non-zero along are skipped.
func nearestSurface(f Form, q, along v3.Vec) (v3.Vec, float64) {
	tol := f.Clearance().MaterialTolerance
	skip := func(n v3.Vec) bool {
		return !geom.IsZero(along) && abs(n.Dot(along)) > headOn
	}
	switch f := f.(type) {
	case *Box:
		o := f.local(q.Sub(f.Center))
		half := f.Size.MulScalar(0.5).AddScalar(tol)
		oc := [3]float64{o.X, o.Y, o.Z}
		hc := [3]float64{half.X, half.Y, half.Z}
		best, bestDist := -1, math.Inf(1)
		for i := 0; i < 3; i++ {
			if skip(f.axis(i)) {
				continue
			}
			if d := hc[i] - math.Abs(oc[i]); d < bestDist {
				best, bestDist = i, d
			}
		}
		sign := 1.0
		if oc[best] < 0 {
			sign = -1
		}
		return f.axis(best).MulScalar(sign), bestDist
	case *Cylinder:
		rel := q.Sub(f.Base)
		oa := rel.Dot(f.Axis)
		radial := rel.Sub(f.Axis.MulScalar(oa))
		var out v3.Vec
		dist := math.Inf(1)
		if !skip(f.Axis) {
			out, dist = f.Axis.MulScalar(-1), oa+tol
			if d := f.Height + tol - oa; d < dist {
				out, dist = f.Axis, d
			}
		}
		side := geom.Unit(radial)
		if geom.IsZero(side) {
			side = geom.Perpendicular(f.Axis)
		}
		if skip(side) {
			// Leave sideways across the segment instead.
			side = geom.Unit(f.Axis.Cross(along))
			if side.Dot(radial) < 0 {
				side = side.Neg()
			}
		}
		if d := f.Radius + tol - radial.Dot(side); d < dist {
			out, dist = side, d
		}
		return out, dist
	}
	panic(fmt.Sprintf("stock: unknown form %T", f))
}

func abs(x float64) float64 { return math.Abs(x) }

// sqrt1m returns sqrt(1-x^2) clamped at zero.
func sqrt1m(x float64) float64 {
	return math.Sqrt(math.Max(0, 1-x*x))
}
