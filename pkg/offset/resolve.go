package offset

import (
	"math"
	"sort"
)

type edge struct{ a, b ipt }

// resolve splits a raw offset ring at its self crossings and returns the
// boundary loops of the region it winds around positively. ccw says which
// way raw runs around that region; loops come back in the same sense.
func resolve(raw []ipt, ccw bool) [][]ipt {
	raw = cleanRing(raw)
	if len(raw) < 3 {
		return nil
	}
	raw = append([]ipt(nil), raw...)
	if !ccw {
		reverse(raw)
	}
	var kept []edge
	for _, e := range split(raw) {
		l, r := sides(e)
		if winding(raw, l[0], l[1]) > 0 && winding(raw, r[0], r[1]) <= 0 {
			kept = append(kept, e)
		}
	}
	var loops [][]ipt
	for _, l := range link(kept) {
		l = cleanRing(l)
		if len(l) < 3 || signedArea(l) == 0 {
			continue
		}
		if !ccw {
			reverse(l)
		}
		loops = append(loops, l)
	}
	return loops
}

type cut struct {
	t float64
	p ipt
}

// split breaks every segment of ring wherever another segment crosses or
// touches its interior.
func split(ring []ipt) []edge {
	n := len(ring)
	cuts := make([][]cut, n)
	for i := 0; i < n; i++ {
		a0, a1 := ring[i], ring[(i+1)%n]
		for j := i + 1; j < n; j++ {
			b0, b1 := ring[j], ring[(j+1)%n]
			if !boxesMeet(a0, a1, b0, b1) {
				continue
			}
			for _, q := range [2]ipt{b0, b1} {
				if t, ok := interior(q, a0, a1); ok {
					cuts[i] = append(cuts[i], cut{t, q})
				}
			}
			for _, q := range [2]ipt{a0, a1} {
				if t, ok := interior(q, b0, b1); ok {
					cuts[j] = append(cuts[j], cut{t, q})
				}
			}
			o1, o2 := orient(a0, a1, b0), orient(a0, a1, b1)
			o3, o4 := orient(b0, b1, a0), orient(b0, b1, a1)
			if o1 == 0 || o2 == 0 || o3 == 0 || o4 == 0 || (o1 > 0) == (o2 > 0) || (o3 > 0) == (o4 > 0) {
				continue
			}
			t := o3 / (o3 - o4)
			x := ipt{
				x: int64(math.Round(float64(a0.x) + t*float64(a1.x-a0.x))),
				y: int64(math.Round(float64(a0.y) + t*float64(a1.y-a0.y))),
			}
			cuts[i] = append(cuts[i], cut{t, x})
			cuts[j] = append(cuts[j], cut{o1 / (o1 - o2), x})
		}
	}
	var out []edge
	for i := 0; i < n; i++ {
		c := cuts[i]
		sort.Slice(c, func(x, y int) bool { return c[x].t < c[y].t })
		prev := ring[i]
		for _, k := range append(c, cut{1, ring[(i+1)%n]}) {
			if k.p != prev {
				out = append(out, edge{prev, k.p})
				prev = k.p
			}
		}
	}
	return out
}

// orient is the cross product of b-a and c-a, exact on the grid.
func orient(a, b, c ipt) float64 {
	return float64((b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x))
}

// interior reports whether q lies on segment a-b strictly between its ends
// and where along it.
func interior(q, a, b ipt) (float64, bool) {
	if orient(a, b, q) != 0 {
		return 0, false
	}
	dx, dy := b.x-a.x, b.y-a.y
	d := (q.x-a.x)*dx + (q.y-a.y)*dy
	l := dx*dx + dy*dy
	if d <= 0 || d >= l {
		return 0, false
	}
	return float64(d) / float64(l), true
}

func boxesMeet(a0, a1, b0, b1 ipt) bool {
	return max(a0.x, a1.x) >= min(b0.x, b1.x) && max(b0.x, b1.x) >= min(a0.x, a1.x) &&
		max(a0.y, a1.y) >= min(b0.y, b1.y) && max(b0.y, b1.y) >= min(a0.y, a1.y)
}

// sides returns test points just left and right of the middle of e.
func sides(e edge) (l, r [2]float64) {
	dx, dy := float64(e.b.x-e.a.x), float64(e.b.y-e.a.y)
	length := math.Hypot(dx, dy)
	h := math.Min(0.25, length/8) / length
	mx, my := (float64(e.a.x)+float64(e.b.x))/2, (float64(e.a.y)+float64(e.b.y))/2
	return [2]float64{mx - dy*h, my + dx*h}, [2]float64{mx + dy*h, my - dx*h}
}

// winding returns how many times ring winds counter-clockwise around p.
func winding(ring []ipt, px, py float64) int {
	w := 0
	n := len(ring)
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		ay, by := float64(a.y), float64(b.y)
		side := float64(b.x-a.x)*(py-ay) - (px-float64(a.x))*float64(b.y-a.y)
		if ay <= py {
			if by > py && side > 0 {
				w++
			}
		} else if by <= py && side < 0 {
			w--
		}
	}
	return w
}

// link chains edges into closed loops. Where several edges leave a vertex
// the sharpest left turn wins, which keeps loops that only touch apart.
func link(edges []edge) [][]ipt {
	from := make(map[ipt][]int, len(edges))
	for i, e := range edges {
		from[e.a] = append(from[e.a], i)
	}
	used := make([]bool, len(edges))
	var loops [][]ipt
	for i := range edges {
		if used[i] {
			continue
		}
		first := edges[i].a
		var loop []ipt
		for e := i; e >= 0; {
			used[e] = true
			loop = append(loop, edges[e].a)
			if edges[e].b == first {
				loops = append(loops, loop)
				break
			}
			e = leftmost(edges, from[edges[e].b], used, edges[e])
		}
	}
	return loops
}

func leftmost(edges []edge, out []int, used []bool, in edge) int {
	best, bestTurn := -1, math.Inf(-1)
	ix, iy := float64(in.b.x-in.a.x), float64(in.b.y-in.a.y)
	for _, k := range out {
		if used[k] {
			continue
		}
		ox, oy := float64(edges[k].b.x-edges[k].a.x), float64(edges[k].b.y-edges[k].a.y)
		if turn := math.Atan2(ix*oy-iy*ox, ix*ox+iy*oy); turn > bestTurn {
			best, bestTurn = k, turn
		}
	}
	return best
}
