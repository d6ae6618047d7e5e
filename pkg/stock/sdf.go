package stock

import (
	"fmt"

	"github.com/chazu/chisel/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SDF returns a signed distance field for f placed in world coordinates.
// The field is negative inside the material.
func SDF(f Form) (sdf.SDF3, error) {
	switch f := f.(type) {
	case *Box:
		s, err := sdf.Box3D(f.Size, 0)
		if err != nil {
			return nil, fmt.Errorf("stock: box field: %w", err)
		}
		axis, angle := geom.FrameRotation(f.XAxis, f.YAxis, f.ZAxis())
		m := sdf.Translate3d(f.Center).Mul(sdf.Rotate3d(axis, angle))
		return sdf.Transform3D(s, m), nil
	case *Cylinder:
		s, err := sdf.Cylinder3D(f.Height, f.Radius, 0)
		if err != nil {
			return nil, fmt.Errorf("stock: cylinder field: %w", err)
		}
		// sdf.Cylinder3D is centered on the origin along Z.
		axis, angle := geom.RotationBetween(geom.ZAxis, f.Axis)
		center := f.Base.Add(f.Axis.MulScalar(f.Height / 2))
		m := sdf.Translate3d(center).Mul(sdf.Rotate3d(axis, angle))
		return sdf.Transform3D(s, m), nil
	}
	return nil, fmt.Errorf("stock: unknown form %T", f)
}

// Distance returns the signed Euclidean distance from p to the stock
// surface, negative inside.
func Distance(f Form, p v3.Vec) float64 {
	switch f := f.(type) {
	case *Box:
		s, err := sdf.Box3D(f.Size, 0)
		if err != nil {
			panic(fmt.Sprintf("stock: %v", err))
		}
		return s.Evaluate(f.local(p.Sub(f.Center)))
	case *Cylinder:
		s, err := sdf.Cylinder3D(f.Height, f.Radius, 0)
		if err != nil {
			panic(fmt.Sprintf("stock: %v", err))
		}
		rel := p.Sub(f.Base)
		u := geom.Perpendicular(f.Axis)
		w := f.Axis.Cross(u)
		return s.Evaluate(v3.Vec{X: rel.Dot(u), Y: rel.Dot(w), Z: rel.Dot(f.Axis) - f.Height/2})
	}
	panic(fmt.Sprintf("stock: unknown form %T", f))
}
