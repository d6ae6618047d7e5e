package stock

import (
	"fmt"

	"github.com/chazu/chisel/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Inside reports whether p lies within f inflated by tol plus the material
// tolerance.
func Inside(f Form, p v3.Vec, tol float64) bool {
	inflate := tol + f.Clearance().MaterialTolerance
	switch f := f.(type) {
	case *Box:
		o := f.local(p.Sub(f.Center))
		h := f.Size.MulScalar(0.5).AddScalar(inflate)
		return abs(o.X) < h.X && abs(o.Y) < h.Y && abs(o.Z) < h.Z
	case *Cylinder:
		rel := p.Sub(f.Base)
		oa := rel.Dot(f.Axis)
		if oa <= -inflate || oa >= f.Height+inflate {
			return false
		}
		return rel.Sub(f.Axis.MulScalar(oa)).Length() < f.Radius+inflate
	}
	panic(fmt.Sprintf("stock: unknown form %T", f))
}

// InBubble reports whether p is closer to the stock than its safe distance,
// allowing slack for points placed exactly on the bubble.
func InBubble(f Form, p v3.Vec, slack float64) bool {
	return Inside(f, p, f.Clearance().SafeDistance-slack)
}

// Depth returns how much material lies above p along dir: the distance to
// the last forward crossing of the uninflated stock, or 0 when the ray
// leaves nothing behind.
func Depth(f Form, p, dir v3.Vec) float64 {
	x := Intersect(f, p, dir, 0)
	if !x.Hit() {
		return 0
	}
	return x.ThroughDistance()
}

// Lift moves p along dir to where the ray last leaves the safety bubble. A
// ray that never meets the bubble returns p unchanged.
func Lift(f Form, p, dir v3.Vec) v3.Vec {
	dir = geom.Unit(dir)
	x := Intersect(f, p, dir, f.Clearance().SafeDistance)
	if !x.Hit() {
		return p
	}
	return p.Add(dir.MulScalar(x.ThroughDistance()))
}
