package offset

import "math"

// dedupe drops consecutive repeated points.
func dedupe(pts []ipt) []ipt {
	out := make([]ipt, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

// cleanRing treats pts as cyclic: it drops a repeated closing point,
// repeated points and vertices lying straight between their neighbours.
// Reversals are kept.
func cleanRing(pts []ipt) []ipt {
	ring := dedupe(pts)
	for len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	for changed := true; changed && len(ring) >= 3; {
		changed = false
		n := len(ring)
		out := make([]ipt, 0, n)
		for i := 0; i < n; i++ {
			prev, cur, next := ring[(i-1+n)%n], ring[i], ring[(i+1)%n]
			if prev == cur {
				changed = true
				continue
			}
			ax, ay := cur.x-prev.x, cur.y-prev.y
			bx, by := next.x-cur.x, next.y-cur.y
			if ax*by-ay*bx == 0 && ax*bx+ay*by > 0 {
				changed = true
				continue
			}
			out = append(out, cur)
		}
		ring = out
	}
	return ring
}

// signedArea returns twice the signed area of a cyclic sequence.
func signedArea(ring []ipt) float64 {
	n := len(ring)
	var a float64
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		a += float64(p.x)*float64(q.y) - float64(q.x)*float64(p.y)
	}
	return a
}

func reverse(ring []ipt) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

// reseam rotates a cyclic sequence to start at the vertex nearest start.
func reseam(ring []ipt, start ipt) []ipt {
	best, bestD := 0, math.Inf(1)
	for i, p := range ring {
		dx, dy := float64(p.x-start.x), float64(p.y-start.y)
		if d := dx*dx + dy*dy; d < bestD {
			best, bestD = i, d
		}
	}
	out := make([]ipt, 0, len(ring))
	out = append(out, ring[best:]...)
	return append(out, ring[:best]...)
}

// clears reports whether every vertex of out keeps at least r from src,
// less the chord tolerance and a couple of grid units for snapping. A loop
// left over from an offset that passed through itself comes closer.
func clears(out, src []ipt, closed bool, r, tol float64) bool {
	limit := math.Max(r-tol-2, 0)
	limit *= limit
	edges := len(src) - 1
	if closed {
		edges = len(src)
	}
	for _, p := range out {
		for i := 0; i < edges; i++ {
			if segDist2(p, src[i], src[(i+1)%len(src)]) < limit {
				return false
			}
		}
	}
	return true
}

func dist2(a, b ipt) float64 {
	dx, dy := float64(a.x-b.x), float64(a.y-b.y)
	return dx*dx + dy*dy
}

func segDist2(p, a, b ipt) float64 {
	px, py := float64(p.x-a.x), float64(p.y-a.y)
	dx, dy := float64(b.x-a.x), float64(b.y-a.y)
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = math.Max(0, math.Min(1, (px*dx+py*dy)/l2))
	}
	ex, ey := px-t*dx, py-t*dy
	return ex*ex + ey*ey
}
