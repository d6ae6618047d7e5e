// Package stock models the raw material a job cuts into. A Form is one of a
// fixed set of shapes (box or cylinder) carrying the clearance used for
// rapid moves and the slack used by intersection tests.
package stock

import (
	"fmt"

	"github.com/chazu/chisel/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Form is a stock shape. The set of implementations is closed: *Box and
// *Cylinder. Operations on forms are free functions that switch on the
// concrete type.
type Form interface {
	form()
	// Clearance returns the clearance and slack shared by every shape.
	Clearance() Material
}

// Material holds the numeric parameters shared by every stock shape.
type Material struct {
	SafeDistance      float64 // clearance kept by rapid moves
	MaterialTolerance float64 // slack added to every intersection test
}

// Box is a rectangular block. XAxis and YAxis are unit vectors spanning the
// block's local frame; the local Z axis is their cross product.
type Box struct {
	Material
	Center v3.Vec
	XAxis  v3.Vec
	YAxis  v3.Vec
	Size   v3.Vec // full extent along the local axes
}

// Cylinder is a right circular cylinder starting at Base and extending
// Height along the unit vector Axis.
type Cylinder struct {
	Material
	Base   v3.Vec
	Axis   v3.Vec
	Height float64
	Radius float64
}

func (*Box) form()      {}
func (*Cylinder) form() {}

func (b *Box) Clearance() Material      { return b.Material }
func (c *Cylinder) Clearance() Material { return c.Material }

// NewBox returns an axis-aligned box centered at center.
func NewBox(center, size v3.Vec, m Material) (*Box, error) {
	return NewOrientedBox(center, geom.XAxis, geom.YAxis, size, m)
}

// NewOrientedBox returns a box whose local frame is spanned by xAxis and
// yAxis. yAxis is orthogonalized against xAxis.
func NewOrientedBox(center, xAxis, yAxis, size v3.Vec, m Material) (*Box, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("stock: box size must be positive, got %v", size)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	x := geom.Unit(xAxis)
	y := geom.Unit(yAxis.Sub(x.MulScalar(yAxis.Dot(x))))
	if geom.IsZero(x) || geom.IsZero(y) {
		return nil, fmt.Errorf("stock: box axes must be independent")
	}
	return &Box{Material: m, Center: center, XAxis: x, YAxis: y, Size: size}, nil
}

// NewCylinder returns a cylinder standing on base along axis.
func NewCylinder(base, axis v3.Vec, height, radius float64, m Material) (*Cylinder, error) {
	if height <= 0 || radius <= 0 {
		return nil, fmt.Errorf("stock: cylinder height and radius must be positive, got %g and %g", height, radius)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	a := geom.Unit(axis)
	if geom.IsZero(a) {
		return nil, fmt.Errorf("stock: cylinder axis must be nonzero")
	}
	return &Cylinder{Material: m, Base: base, Axis: a, Height: height, Radius: radius}, nil
}

func (m Material) validate() error {
	if m.SafeDistance < 0 {
		return fmt.Errorf("stock: safe distance must not be negative, got %g", m.SafeDistance)
	}
	if m.MaterialTolerance < 0 {
		return fmt.Errorf("stock: material tolerance must not be negative, got %g", m.MaterialTolerance)
	}
	return nil
}

// ZAxis returns the third axis of the box frame.
func (b *Box) ZAxis() v3.Vec {
	return b.XAxis.Cross(b.YAxis)
}

// local expresses a world vector in the box frame.
func (b *Box) local(v v3.Vec) v3.Vec {
	return v3.Vec{X: v.Dot(b.XAxis), Y: v.Dot(b.YAxis), Z: v.Dot(b.ZAxis())}
}

func (b *Box) axis(i int) v3.Vec {
	switch i {
	case 0:
		return b.XAxis
	case 1:
		return b.YAxis
	default:
		return b.ZAxis()
	}
}

// Bounds returns the world axis-aligned bounds of a form.
func Bounds(f Form) (lo, hi v3.Vec) {
	switch f := f.(type) {
	case *Box:
		h := f.Size.MulScalar(0.5)
		ext := v3.Vec{}
		for i, half := range [3]float64{h.X, h.Y, h.Z} {
			a := f.axis(i).MulScalar(half)
			ext = ext.Add(v3.Vec{X: abs(a.X), Y: abs(a.Y), Z: abs(a.Z)})
		}
		return f.Center.Sub(ext), f.Center.Add(ext)
	case *Cylinder:
		top := f.Base.Add(f.Axis.MulScalar(f.Height))
		// Disc extent along each world axis is r*sqrt(1-a_i^2).
		r := v3.Vec{
			X: f.Radius * sqrt1m(f.Axis.X),
			Y: f.Radius * sqrt1m(f.Axis.Y),
			Z: f.Radius * sqrt1m(f.Axis.Z),
		}
		lo := v3.Vec{X: min(f.Base.X, top.X), Y: min(f.Base.Y, top.Y), Z: min(f.Base.Z, top.Z)}
		hi := v3.Vec{X: max(f.Base.X, top.X), Y: max(f.Base.Y, top.Y), Z: max(f.Base.Z, top.Z)}
		return lo.Sub(r), hi.Add(r)
	}
	panic(fmt.Sprintf("stock: unknown form %T", f))
}

// Describe returns a short human readable summary of a form.
func Describe(f Form) string {
	switch f := f.(type) {
	case *Box:
		return fmt.Sprintf("box %gx%gx%g at (%g, %g, %g)",
			f.Size.X, f.Size.Y, f.Size.Z, f.Center.X, f.Center.Y, f.Center.Z)
	case *Cylinder:
		return fmt.Sprintf("cylinder r=%g h=%g at (%g, %g, %g)",
			f.Radius, f.Height, f.Base.X, f.Base.Y, f.Base.Z)
	}
	return fmt.Sprintf("%T", f)
}
