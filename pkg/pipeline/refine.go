package pipeline

import (
	"github.com/chazu/chisel/pkg/machine"
	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
)

// refine adds points where segments cross the stock surface, and one
// inside when a segment passes right through, so depth limited passes see
// every crossing.
func refine(m machine.Machine, p *toolpath.Path) *toolpath.Path {
	if p.Len() < 2 {
		return p
	}
	q := p.CloneEmpty()
	q.Append(p.Points[0])
	for i := 1; i < p.Len(); i++ {
		a, b := p.Points[i-1], p.Points[i]
		l := b.Pos.Sub(a.Pos).Length()
		if ok, x := stock.IntersectSegment(p.Form, a.Pos, b.Pos, 0); ok {
			var ts []float64
			for _, h := range x.Hits {
				if h.LineP > 1e-7 && h.LineP < l-1e-7 {
					ts = append(ts, h.LineP/l)
				}
			}
			if len(ts) == 2 {
				ts = []float64{ts[0], (ts[0] + ts[1]) / 2, ts[1]}
			}
			for _, t := range ts {
				pt := machine.Interpolate(m, a, b, t, false)
				q.Append(motion(pt, pt.Pos))
			}
		}
		q.Append(b)
	}
	return q
}
