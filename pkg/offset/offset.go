// Package offset grows or shrinks 2D polylines by a fixed distance with
// round joins. Work is done on a fixed-point grid sized to the input so
// cleanup compares exact integers.
//
// The raw offset curve of a shape with narrow features crosses itself.
// Crossings are resolved by keeping the boundary of the region the raw
// curve winds around, so a narrow slot fills in and a narrow neck splits
// the result into separate loops.
package offset

import (
	"math"
	"sort"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// gridLimit is the largest fixed-point coordinate magnitude. Differences of
// two coordinates and their cross products stay inside int64.
const gridLimit = 1 << 30

type ipt struct{ x, y int64 }

// grid maps between floating point and fixed-point coordinates.
type grid struct {
	origin v2.Vec
	scale  float64
}

func newGrid(pts []v2.Vec, delta float64) grid {
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = v2.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
		hi = v2.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
	}
	origin := v2.Vec{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2}
	ext := math.Max(hi.X-lo.X, hi.Y-lo.Y)/2 + 2*math.Abs(delta)
	if ext < 1e-12 {
		ext = 1
	}
	return grid{origin: origin, scale: gridLimit / (2 * ext)}
}

func (g grid) to(p v2.Vec) ipt {
	return ipt{
		x: int64(math.Round((p.X - g.origin.X) * g.scale)),
		y: int64(math.Round((p.Y - g.origin.Y) * g.scale)),
	}
}

func (g grid) from(p ipt) v2.Vec {
	return v2.Vec{X: float64(p.x)/g.scale + g.origin.X, Y: float64(p.y)/g.scale + g.origin.Y}
}

// Polyline offsets pts by delta and returns the resulting closed loops, or
// nil when the shape collapses. tol bounds the chord error of round joins.
//
// A closed polyline (first point repeated at the end) grows for positive
// delta and shrinks for negative delta. Outer loops keep the input's
// direction of travel; holes left inside a grown shape run the other way.
// An open polyline is outlined at |delta| with round end caps. The first
// loop holds the point nearest the input's start and every loop starts at
// its vertex nearest that point.
func Polyline(pts []v2.Vec, closed bool, delta, tol float64) [][]v2.Vec {
	if len(pts) == 0 {
		return nil
	}
	g := newGrid(pts, delta)
	in := make([]ipt, 0, len(pts))
	for _, p := range pts {
		in = append(in, g.to(p))
	}
	start := in[0]
	r := math.Abs(delta) * g.scale
	tolGrid := math.Max(tol, 1e-9) * g.scale
	step := arcStep(r, tolGrid)

	var loops [][]ipt
	if closed {
		ring := cleanRing(in)
		if len(ring) < 3 || signedArea(ring) == 0 {
			return nil
		}
		if delta == 0 {
			loops = [][]ipt{ring}
		} else {
			// Offsetting always works on the left of travel; reverse when
			// the requested side is on the right.
			reversed := (signedArea(ring) > 0) == (delta > 0)
			if reversed {
				reverse(ring)
			}
			raw := offsetLeft(ring, r, step)
			for _, l := range resolve(raw, signedArea(ring) > 0) {
				if clears(l, ring, true, r, tolGrid) {
					if reversed {
						reverse(l)
					}
					loops = append(loops, l)
				}
			}
		}
	} else {
		line := dedupe(in)
		switch {
		case delta == 0:
			return [][]v2.Vec{toFloat(g, line, false)}
		case len(line) == 1:
			loops = [][]ipt{circle(line[0], r, step)}
		default:
			// Walk out and back; the reversals at each end become caps.
			ring := append([]ipt(nil), line...)
			for i := len(line) - 2; i > 0; i-- {
				ring = append(ring, line[i])
			}
			raw := cleanRing(offsetLeft(ring, r, step))
			for _, l := range resolve(raw, signedArea(raw) > 0) {
				if clears(l, line, false, r, tolGrid) {
					loops = append(loops, l)
				}
			}
		}
	}
	if len(loops) == 0 {
		return nil
	}
	return order(g, loops, start)
}

// order re-seams each loop at its vertex nearest start and sorts the loops
// by that distance.
func order(g grid, loops [][]ipt, start ipt) [][]v2.Vec {
	type seamed struct {
		pts  []ipt
		dist float64
	}
	s := make([]seamed, len(loops))
	for i, l := range loops {
		l = reseam(l, start)
		s[i] = seamed{pts: l, dist: dist2(l[0], start)}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].dist < s[j].dist })
	out := make([][]v2.Vec, len(s))
	for i, l := range s {
		out[i] = toFloat(g, l.pts, true)
	}
	return out
}

// Area returns the signed area of a closed polyline, positive when it runs
// counter-clockwise.
func Area(pts []v2.Vec) float64 {
	n := len(pts)
	if n > 1 && pts[0] == pts[n-1] {
		n--
	}
	var a float64
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

func toFloat(g grid, pts []ipt, closeRing bool) []v2.Vec {
	out := make([]v2.Vec, 0, len(pts)+1)
	for _, p := range pts {
		out = append(out, g.from(p))
	}
	if closeRing && len(out) > 0 {
		out = append(out, out[0])
	}
	return out
}

// arcStep returns the angle between arc samples keeping the chord error of
// radius r below tol.
func arcStep(r, tol float64) float64 {
	if r <= tol {
		return math.Pi / 2
	}
	return math.Max(2*math.Acos(1-tol/r), math.Pi/180)
}

// offsetLeft offsets a cyclic sequence to the left of travel by r.
func offsetLeft(ring []ipt, r, step float64) []ipt {
	n := len(ring)
	var out []ipt
	for i := 0; i < n; i++ {
		prev, cur, next := ring[(i-1+n)%n], ring[i], ring[(i+1)%n]
		e0 := vec(prev, cur)
		e1 := vec(cur, next)
		m0 := leftNormal(e0).MulScalar(r)
		m1 := leftNormal(e1).MulScalar(r)
		p := v2.Vec{X: float64(cur.x), Y: float64(cur.y)}
		cross := e0.X*e1.Y - e0.Y*e1.X
		dot := e0.X*e1.X + e0.Y*e1.Y
		l2 := e0.Length() * e1.Length()

		switch {
		case math.Abs(cross) <= 1e-12*l2 && dot > 0:
			// Straight through.
			out = append(out, snap(p.Add(m1)))
		case cross > 1e-12*l2:
			// Left turn: the offset lines overlap, take their meeting point.
			q0, q1 := p.Add(m0), p.Add(m1)
			den := e0.X*e1.Y - e0.Y*e1.X
			d := q1.Sub(q0)
			t := (d.X*e1.Y - d.Y*e1.X) / den
			out = append(out, snap(q0.Add(e0.MulScalar(t))))
		default:
			// Right turn or reversal: round join swinging clockwise.
			sweep := math.Atan2(m0.X*m1.Y-m0.Y*m1.X, m0.X*m1.X+m0.Y*m1.Y)
			if sweep > 0 || (math.Abs(cross) <= 1e-12*l2 && dot < 0) {
				sweep = -math.Abs(sweep)
				if sweep == 0 {
					sweep = -math.Pi
				}
			}
			out = append(out, arc(p, m0, sweep, step)...)
		}
	}
	return out
}

// arc samples the circle around c from c+m0 through sweep radians.
func arc(c, m0 v2.Vec, sweep, step float64) []ipt {
	k := int(math.Ceil(math.Abs(sweep) / step))
	if k < 1 {
		k = 1
	}
	out := make([]ipt, 0, k+1)
	for j := 0; j <= k; j++ {
		a := sweep * float64(j) / float64(k)
		s, co := math.Sincos(a)
		v := v2.Vec{X: m0.X*co - m0.Y*s, Y: m0.X*s + m0.Y*co}
		out = append(out, snap(c.Add(v)))
	}
	return out
}

func circle(c ipt, r, step float64) []ipt {
	center := v2.Vec{X: float64(c.x), Y: float64(c.y)}
	pts := arc(center, v2.Vec{X: 0, Y: r}, 2*math.Pi, step)
	return pts[:len(pts)-1]
}

func vec(a, b ipt) v2.Vec {
	return v2.Vec{X: float64(b.x - a.x), Y: float64(b.y - a.y)}
}

func leftNormal(e v2.Vec) v2.Vec {
	l := e.Length()
	if l == 0 {
		return v2.Vec{}
	}
	return v2.Vec{X: -e.Y / l, Y: e.X / l}
}

func snap(p v2.Vec) ipt {
	return ipt{x: int64(math.Round(p.X)), y: int64(math.Round(p.Y))}
}
