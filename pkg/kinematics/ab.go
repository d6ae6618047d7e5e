// Package kinematics converts tool orientations to rotary axis values for an
// AB-table machine: A tilts the table about X, B spins it about Y, and a
// tool direction d is reached when Rx(A)·Ry(B)·d = +Z.
package kinematics

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// CuspTolerance is how close to A = π/2 the B axis stops mattering.
const CuspTolerance = 1e-6

// Axes holds rotary axis values in radians.
type Axes struct {
	A, B float64
}

// Limits bounds the rotary axes in radians. B is bounded by |B| <= BMax.
type Limits struct {
	AMin, AMax, BMax float64
}

// Primary returns the axis values for dir with A in [-π/2, π/2].
func Primary(dir v3.Vec) Axes {
	return Axes{
		A: math.Asin(clamp(dir.Y)),
		B: math.Atan2(-dir.X, dir.Z),
	}
}

// Alternate returns the other stance reaching the same direction.
func Alternate(ax Axes) Axes {
	return Axes{A: math.Pi - ax.A, B: ax.B + math.Pi}
}

// Direction returns the tool direction the axes produce.
func Direction(ax Axes) v3.Vec {
	sa, ca := math.Sincos(ax.A)
	sb, cb := math.Sincos(ax.B)
	return v3.Vec{X: -ca * sb, Y: sa, Z: ca * cb}
}

// AtCusp reports whether A sits at the singularity where B is free.
func AtCusp(a float64) bool {
	return math.Abs(a-math.Pi/2) < CuspTolerance
}

// ToMachine maps a workpiece point to machine coordinates for the given
// table rotation about pivot.
func ToMachine(ax Axes, p, pivot v3.Vec) v3.Vec {
	return rotX(rotY(p.Sub(pivot), ax.B), ax.A).Add(pivot)
}

// FromMachine is the inverse of ToMachine.
func FromMachine(ax Axes, m, pivot v3.Vec) v3.Vec {
	return rotY(rotX(m.Sub(pivot), -ax.A), -ax.B).Add(pivot)
}

// Unwrap shifts b by a multiple of 2π to lie within π of ref.
func Unwrap(b, ref float64) float64 {
	return b - 2*math.Pi*math.Round((b-ref)/(2*math.Pi))
}

// Solve picks axis values for dir that continue smoothly from prev. B is
// unwrapped toward prev.B and the alternate stance is taken when it is
// within the A limits and needs strictly less rotation.
func Solve(dir v3.Vec, prev Axes, lim Limits) Axes {
	p := Primary(dir)
	p.B = pull(Unwrap(p.B, prev.B), lim.BMax)
	if AtCusp(p.A) {
		p.B = prev.B
		return p
	}
	alt := Alternate(p)
	if alt.A < lim.AMin || alt.A > lim.AMax {
		return p
	}
	alt.B = pull(Unwrap(alt.B, prev.B), lim.BMax)
	if Cost(prev, alt) < Cost(prev, p) {
		return alt
	}
	return p
}

// Cost is the rotary travel between two axis settings; both axes move
// together so the larger move dominates.
func Cost(from, to Axes) float64 {
	return math.Max(math.Abs(to.A-from.A), math.Abs(to.B-from.B))
}

// InBounds reports whether each axis lies inside its limits.
func (l Limits) InBounds(ax Axes) (aOK, bOK bool) {
	const slack = 1e-9
	aOK = ax.A >= l.AMin-slack && ax.A <= l.AMax+slack
	bOK = math.Abs(ax.B) <= l.BMax+slack
	return aOK, bOK
}

// pull brings b inside [-bMax, bMax] by whole turns where possible.
func pull(b, bMax float64) float64 {
	for b > bMax && b-2*math.Pi >= -bMax {
		b -= 2 * math.Pi
	}
	for b < -bMax && b+2*math.Pi <= bMax {
		b += 2 * math.Pi
	}
	return b
}

func rotX(v v3.Vec, a float64) v3.Vec {
	s, c := math.Sincos(a)
	return v3.Vec{X: v.X, Y: v.Y*c - v.Z*s, Z: v.Y*s + v.Z*c}
}

func rotY(v v3.Vec, b float64) v3.Vec {
	s, c := math.Sincos(b)
	return v3.Vec{X: v.X*c + v.Z*s, Y: v.Y, Z: -v.X*s + v.Z*c}
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
