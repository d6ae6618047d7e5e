// Package machine binds a dialect to one of the supported kinematic
// families and provides the kinematics, code writing and code reading for
// each of them.
//
// Machine is a closed set of variants (*TwoAxis, *ThreeAxis, *ABTable).
// Behaviour lives in free functions that switch on the variant.
package machine

import (
	"fmt"
	"math"

	"github.com/chazu/chisel/pkg/dialect"
	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/kinematics"
	"github.com/chazu/chisel/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Machine is one configured machine.
type Machine interface {
	machine()
	// Dialect returns the code table the machine writes.
	Dialect() *dialect.Dialect
}

// TwoAxis is a machine that only moves in X and Y, such as a laser or
// plasma cutter.
type TwoAxis struct {
	D *dialect.Dialect
}

// ThreeAxis is a vertical mill with a fixed tool direction.
type ThreeAxis struct {
	D *dialect.Dialect
}

// ABTable is a 5-axis mill whose table tilts about X (A) and turns about Y
// (B) around Pivot.
type ABTable struct {
	D      *dialect.Dialect
	Limits kinematics.Limits
	Pivot  v3.Vec
}

func (*TwoAxis) machine()   {}
func (*ThreeAxis) machine() {}
func (*ABTable) machine()   {}

func (m *TwoAxis) Dialect() *dialect.Dialect   { return m.D }
func (m *ThreeAxis) Dialect() *dialect.Dialect { return m.D }
func (m *ABTable) Dialect() *dialect.Dialect   { return m.D }

// New builds the machine variant selected by the dialect kind.
func New(d *dialect.Dialect) (Machine, error) {
	if d == nil {
		return nil, fmt.Errorf("machine: nil dialect")
	}
	switch d.Kind {
	case dialect.KindTwoAxis:
		return &TwoAxis{D: d}, nil
	case dialect.KindThreeAxis:
		return &ThreeAxis{D: d}, nil
	case dialect.KindABTable:
		aMin, aMax, bMax := d.Radians()
		return &ABTable{
			D:      d,
			Limits: kinematics.Limits{AMin: aMin, AMax: aMax, BMax: bMax},
			Pivot:  v3.Vec{X: d.Pivot[0], Y: d.Pivot[1], Z: d.Pivot[2]},
		}, nil
	}
	return nil, fmt.Errorf("machine: unsupported kind %q", d.Kind)
}

// Name returns the dialect name of m.
func Name(m Machine) string { return m.Dialect().Name }

// FiveAxis reports whether m can reorient the tool.
func FiveAxis(m Machine) bool {
	_, ok := m.(*ABTable)
	return ok
}

// Axes is a full set of machine axis values. A and B are in radians and
// are zero on machines without rotary axes.
type Axes struct {
	Pos  v3.Vec
	A, B float64
}

func (a Axes) rotary() kinematics.Axes { return kinematics.Axes{A: a.A, B: a.B} }

// Forward converts a tool point to machine axes, continuing from prev.
func Forward(m Machine, pt toolpath.Point, prev Axes) Axes {
	switch m := m.(type) {
	case *TwoAxis:
		return Axes{Pos: v3.Vec{X: pt.Pos.X, Y: pt.Pos.Y}}
	case *ThreeAxis:
		return Axes{Pos: pt.Pos}
	case *ABTable:
		ax := kinematics.Solve(pt.Dir, prev.rotary(), m.Limits)
		return Axes{Pos: kinematics.ToMachine(ax, pt.Pos, m.Pivot), A: ax.A, B: ax.B}
	}
	panic(fmt.Sprintf("machine: unknown variant %T", m))
}

// Inverse converts machine axes back to a tool point with feed and speed
// unset.
func Inverse(m Machine, ax Axes) toolpath.Point {
	switch m := m.(type) {
	case *TwoAxis, *ThreeAxis:
		return toolpath.NewPoint(ax.Pos, geom.ZAxis)
	case *ABTable:
		r := ax.rotary()
		return toolpath.NewPoint(kinematics.FromMachine(r, ax.Pos, m.Pivot), kinematics.Direction(r))
	}
	panic(fmt.Sprintf("machine: unknown variant %T", m))
}

// Interpolate returns the tool point a fraction t of the way from one point
// to another, moving the machine axes linearly. With long set the rotary
// move takes the other way round.
func Interpolate(m Machine, from, to toolpath.Point, t float64, long bool) toolpath.Point {
	switch m := m.(type) {
	case *TwoAxis, *ThreeAxis:
		out := from.Clone()
		out.Pos = geom.Lerp(from.Pos, to.Pos, t)
		axis, angle := geom.RotationBetween(from.Dir, to.Dir)
		out.Dir = geom.Unit(geom.Rotate(from.Dir, axis, angle*t))
		return out
	case *ABTable:
		fa, ta := m.span(from, to, long)
		r := kinematics.Axes{
			A: fa.A + (ta.A-fa.A)*t,
			B: fa.B + (ta.B-fa.B)*t,
		}
		mp := geom.Lerp(kinematics.ToMachine(fa, from.Pos, m.Pivot), kinematics.ToMachine(ta, to.Pos, m.Pivot), t)
		out := from.Clone()
		out.Pos = kinematics.FromMachine(r, mp, m.Pivot)
		out.Dir = kinematics.Direction(r)
		return out
	}
	panic(fmt.Sprintf("machine: unknown variant %T", m))
}

// AngularDistance returns the rotation needed to move between the
// orientations of two points.
func AngularDistance(m Machine, from, to toolpath.Point, long bool) float64 {
	switch m := m.(type) {
	case *TwoAxis, *ThreeAxis:
		return geom.AngleBetween(from.Dir, to.Dir)
	case *ABTable:
		fa, ta := m.span(from, to, long)
		return kinematics.Cost(fa, ta)
	}
	panic(fmt.Sprintf("machine: unknown variant %T", m))
}

// span returns the rotary settings at both ends of a move. The long branch
// sends B the other way round.
func (m *ABTable) span(from, to toolpath.Point, long bool) (kinematics.Axes, kinematics.Axes) {
	fa := kinematics.Primary(from.Dir)
	ta := kinematics.Solve(to.Dir, fa, m.Limits)
	if long {
		if ta.B >= fa.B {
			ta.B -= 2 * math.Pi
		} else {
			ta.B += 2 * math.Pi
		}
	}
	return fa, ta
}
