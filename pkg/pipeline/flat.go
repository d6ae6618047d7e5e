package pipeline

import (
	"math"

	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/offset"
	"github.com/chazu/chisel/pkg/toolpath"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// offset2D moves a flat path sideways by its offset factor times half the
// tool width. Closed paths grow or shrink; open paths become an outline.
// An offset that pinches the shape apart or leaves holes returns one path
// per loop, the one nearest the path's start first. Codes and messages of
// the first point go to the first loop only.
func offset2D(p *toolpath.Path) ([]*toolpath.Path, error) {
	if !p.Flat() {
		p.Points[0].AddWarning(WarnOffsetNotFlat)
		return []*toolpath.Path{p}, nil
	}
	tol := p.Tool.EffectiveTolerance()
	pts := make([]v2.Vec, p.Len())
	for i, pt := range p.Points {
		pts[i] = geom.Flatten(pt.Pos)
	}
	delta := p.Additions.Offset * p.Tool.Radius()
	loops := offset.Polyline(pts, p.Closed(tol), delta, tol)
	if loops == nil {
		return nil, ErrCollapsed
	}
	template := p.FirstPoint()
	z := template.Pos.Z
	out := make([]*toolpath.Path, 0, len(loops))
	for _, l := range loops {
		q := p.CloneEmpty()
		for _, v := range l {
			q.Append(motion(template, geom.Lift(v, z)))
		}
		out = append(out, q)
	}
	first := out[0].Points
	first[0].PreCode = template.PreCode
	first[0].Warnings = template.Warnings
	first[0].Errors = template.Errors
	return out, nil
}

// lead adds a lead-in arc before the first point and a lead-out arc after
// the last. factor scales the arc radius in tool widths; its sign picks the
// side of travel the arc centre lies on, positive on the left.
func lead(p *toolpath.Path, factor float64) {
	if p.Len() < 2 {
		return
	}
	if !p.Flat() {
		p.Points[0].AddWarning(WarnLeadNotFlat)
		return
	}
	side := 1.0
	if factor < 0 {
		side = -1
	}
	r := math.Abs(factor) * p.Tool.Width
	clear := p.Tool.EffectiveInsertWidth() / 2
	tol := p.Tool.EffectiveTolerance()
	path := p.Positions()
	n := len(path)

	in, okIn := leadArc(path, path[0], path[1].Sub(path[0]), side, -side, r, clear, tol)
	out, okOut := leadArc(path, path[n-1], path[n-1].Sub(path[n-2]), side, side, r, clear, tol)
	if !okIn {
		p.Points[0].AddWarning(WarnLeadBlocked)
	}
	if !okOut {
		p.Points[n-1].AddWarning(WarnLeadBlocked)
	}

	first, last := p.FirstPoint(), p.LastPoint()
	pts := make([]toolpath.Point, 0, len(in)+n+len(out))
	for i := len(in) - 1; i >= 0; i-- {
		pts = append(pts, motion(first, in[i]))
	}
	pts = append(pts, p.Points...)
	for _, v := range out {
		pts = append(pts, motion(last, v))
	}
	p.Points = pts
}

// leadArc walks an arc of radius r leaving end tangent to t, with its
// centre on side of travel (+1 left) and turning by turn (+1
// counter-clockwise), until a sample is farther than clear from the path.
// It returns the samples from end outward.
func leadArc(path []v3.Vec, end, t v3.Vec, side, turn, r, clear, tol float64) ([]v3.Vec, bool) {
	t.Z = 0
	t = geom.Unit(t)
	if geom.IsZero(t) || r <= 0 {
		return nil, false
	}
	normal := geom.Rotate(t, geom.ZAxis, side*math.Pi/2)
	centre := end.Add(normal.MulScalar(r))
	step := arcStepFor(r, tol)
	var arc []v3.Vec
	for a := step; a <= maxLeadSweep+1e-12; a += step {
		q := centre.Add(geom.Rotate(end.Sub(centre), geom.ZAxis, turn*a))
		arc = append(arc, q)
		if geom.PolylineDistance(q, path) > clear {
			return arc, true
		}
	}
	return nil, false
}

// motion returns a bare point at pos with the orientation, feed and speed
// of pt. Codes and messages stay on pt.
func motion(pt toolpath.Point, pos v3.Vec) toolpath.Point {
	return toolpath.Point{Pos: pos, Dir: pt.Dir, Feed: pt.Feed, Speed: pt.Speed}
}
