// Package geom collects the small vector routines shared by the stock,
// kinematics and pipeline packages. Points and directions are sdfx vectors
// throughout so that the same values flow into the SDF kernel unchanged.
package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

// Common directions.
var (
	XAxis = v3.Vec{X: 1}
	YAxis = v3.Vec{Y: 1}
	ZAxis = v3.Vec{Z: 1}
)

// Unit returns v scaled to length one, or the zero vector if v is
// shorter than Epsilon.
func Unit(v v3.Vec) v3.Vec {
	l := v.Length()
	if l < Epsilon {
		return v3.Vec{}
	}
	return v.DivScalar(l)
}

// Lerp linearly blends a and b.
func Lerp(a, b v3.Vec, t float64) v3.Vec {
	return a.Add(b.Sub(a).MulScalar(t))
}

// IsZero reports whether v is shorter than Epsilon.
func IsZero(v v3.Vec) bool {
	return v.Length() < Epsilon
}

// IsFinite reports whether every component of v is a real number.
func IsFinite(v v3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Parallel reports whether two unit vectors point the same way within tol
// radians.
func Parallel(a, b v3.Vec, tol float64) bool {
	return AngleBetween(a, b) <= tol
}

// AngleBetween returns the unsigned angle between a and b.
func AngleBetween(a, b v3.Vec) float64 {
	a, b = Unit(a), Unit(b)
	return math.Atan2(a.Cross(b).Length(), a.Dot(b))
}

// Perpendicular returns some unit vector orthogonal to v.
func Perpendicular(v v3.Vec) v3.Vec {
	v = Unit(v)
	if math.Abs(v.X) < 0.9 {
		return Unit(v.Cross(XAxis))
	}
	return Unit(v.Cross(YAxis))
}

// Rotate turns v about axis by angle (right hand rule, Rodrigues).
func Rotate(v, axis v3.Vec, angle float64) v3.Vec {
	k := Unit(axis)
	c, s := math.Cos(angle), math.Sin(angle)
	return v.MulScalar(c).
		Add(k.Cross(v).MulScalar(s)).
		Add(k.MulScalar(k.Dot(v) * (1 - c)))
}

// RotationBetween returns the axis and angle that turn unit vector from
// onto unit vector to.
func RotationBetween(from, to v3.Vec) (v3.Vec, float64) {
	from, to = Unit(from), Unit(to)
	axis := from.Cross(to)
	angle := math.Atan2(axis.Length(), from.Dot(to))
	if axis.Length() < Epsilon {
		if angle < math.Pi/2 {
			return ZAxis, 0
		}
		return Perpendicular(from), math.Pi
	}
	return Unit(axis), angle
}

// FrameRotation converts an orthonormal frame (the images of X, Y and Z)
// into an axis-angle rotation.
func FrameRotation(x, y, z v3.Vec) (v3.Vec, float64) {
	trace := x.X + y.Y + z.Z
	angle := math.Acos(math.Max(-1, math.Min(1, (trace-1)/2)))
	if angle < Epsilon {
		return ZAxis, 0
	}
	if math.Pi-angle < 1e-6 {
		// R = 2kk^T - I, pick the largest diagonal for stability.
		xx, yy, zz := (x.X+1)/2, (y.Y+1)/2, (z.Z+1)/2
		switch {
		case xx >= yy && xx >= zz:
			kx := math.Sqrt(xx)
			return Unit(v3.Vec{X: kx, Y: x.Y / (2 * kx), Z: x.Z / (2 * kx)}), angle
		case yy >= zz:
			ky := math.Sqrt(yy)
			return Unit(v3.Vec{X: y.X / (2 * ky), Y: ky, Z: y.Z / (2 * ky)}), angle
		default:
			kz := math.Sqrt(zz)
			return Unit(v3.Vec{X: z.X / (2 * kz), Y: z.Y / (2 * kz), Z: kz}), angle
		}
	}
	// Columns of R are x, y, z so R[2][1]-R[1][2] = y.Z - z.Y and so on.
	axis := v3.Vec{X: y.Z - z.Y, Y: z.X - x.Z, Z: x.Y - y.X}
	return Unit(axis), angle
}

// ClosestOnLines returns the parameters of the mutually closest points of
// the lines p1+t1*d1 and p2+t2*d2. ok is false for parallel lines.
func ClosestOnLines(p1, d1, p2, d2 v3.Vec) (t1, t2 float64, ok bool) {
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	b := d1.Dot(d2)
	c := d1.Dot(r)
	f := d2.Dot(r)
	den := a*e - b*b
	if math.Abs(den) < Epsilon*a*e || a < Epsilon || e < Epsilon {
		return 0, 0, false
	}
	t1 = (b*f - c*e) / den
	t2 = (a*f - b*c) / den
	return t1, t2, true
}

// SegmentDistance returns the distance from p to the segment [a,b].
func SegmentDistance(p, a, b v3.Vec) float64 {
	d := b.Sub(a)
	l2 := d.Length2()
	if l2 < Epsilon*Epsilon {
		return p.Sub(a).Length()
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(d)/l2))
	return p.Sub(a.Add(d.MulScalar(t))).Length()
}

// PolylineDistance returns the distance from p to the nearest segment of
// pts. A single point polyline measures to that point.
func PolylineDistance(p v3.Vec, pts []v3.Vec) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Sub(pts[0]).Length()
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		best = math.Min(best, SegmentDistance(p, pts[i-1], pts[i]))
	}
	return best
}

// PolylineLength sums the segment lengths of pts.
func PolylineLength(pts []v3.Vec) float64 {
	var l float64
	for i := 1; i < len(pts); i++ {
		l += pts[i].Sub(pts[i-1]).Length()
	}
	return l
}

// Flatten drops the Z component.
func Flatten(v v3.Vec) v2.Vec {
	return v2.Vec{X: v.X, Y: v.Y}
}

// Lift places a 2D point at height z.
func Lift(v v2.Vec, z float64) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: z}
}
