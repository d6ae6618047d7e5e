package pipeline

import (
	"math"

	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// maxSlope caps the square end lift on near vertical segments.
const maxSlope = 100

// offsetLine is one path segment moved so the tool's cutting surface, not
// its tip, runs along it. The chain enters the line at parameter enterT.
type offsetLine struct {
	origin, dir v3.Vec // segment start and full segment vector
	src         int    // index of the source point at the segment start
	enter       v3.Vec
	enterT      float64
}

// surfaceOffset returns how far the tip must move from a segment with
// vector d for tool t to touch it with its side instead of its tip.
func surfaceOffset(t *toolpath.Tool, d v3.Vec) v3.Vec {
	r := t.Radius()
	h := math.Hypot(d.X, d.Y)
	if h < geom.Epsilon || r <= 0 {
		return v3.Vec{}
	}
	switch t.Shape {
	case toolpath.ShapeBall:
		// Centre sits r along the segment's upward normal; the tip is r
		// below the centre.
		n := geom.Unit(geom.ZAxis.Sub(d.MulScalar(d.Z / d.Length2())))
		return n.MulScalar(r).Sub(geom.ZAxis.MulScalar(r))
	case toolpath.ShapeSquare:
		slope := math.Min(math.Abs(d.Z)/h, maxSlope)
		return geom.ZAxis.MulScalar(r * slope)
	}
	return v3.Vec{}
}

// heightOffset moves a 3-axis path so the tool surface follows it. Each
// segment becomes an offset line and consecutive lines are joined where
// they meet. A join that would make the chain run backwards along a line
// drops that line and joins against the one before instead.
func heightOffset(p *toolpath.Path) *toolpath.Path {
	if p.Len() < 2 {
		return p
	}
	var chain []offsetLine
	for i := 0; i+1 < p.Len(); i++ {
		a, b := p.Points[i].Pos, p.Points[i+1].Pos
		d := b.Sub(a)
		if d.Length() < geom.Epsilon {
			continue
		}
		l := offsetLine{origin: a.Add(surfaceOffset(p.Tool, d)), dir: d, src: i}
		l.enter = l.origin
		for len(chain) > 0 {
			top := chain[len(chain)-1]
			t1, t2, ok := geom.ClosestOnLines(top.origin, top.dir, l.origin, l.dir)
			if !ok {
				break
			}
			if t1 < top.enterT-geom.Epsilon && len(chain) > 1 {
				chain = chain[:len(chain)-1]
				continue
			}
			q1 := top.origin.Add(top.dir.MulScalar(t1))
			q2 := l.origin.Add(l.dir.MulScalar(t2))
			l.enter = geom.Lerp(q1, q2, 0.5)
			l.enterT = t2
			break
		}
		chain = append(chain, l)
	}
	if len(chain) == 0 {
		return p
	}

	q := p.CloneEmpty()
	for _, l := range chain {
		q.Append(p.Points[l.src].At(l.enter))
	}
	end := chain[len(chain)-1]
	q.Append(p.LastPoint().At(end.origin.Add(end.dir)))
	return q
}
