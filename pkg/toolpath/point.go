package toolpath

import (
	"github.com/chazu/chisel/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point is one tool position with its orientation and motion parameters.
// Dir points from the tip back toward the spindle. A point is treated as a
// value: every transformation works on a Clone.
type Point struct {
	Pos      v3.Vec
	Dir      v3.Vec
	Feed     float64 // 0 is a rapid move, negative inherits the tool feed
	Speed    float64 // negative inherits
	PreCode  string
	PostCode string
	Warnings []string
	Errors   []string
}

// NewPoint returns a point at pos pointing along dir with feed and speed
// unset. A zero dir defaults to +Z.
func NewPoint(pos, dir v3.Vec) Point {
	d := geom.Unit(dir)
	if geom.IsZero(d) {
		d = geom.ZAxis
	}
	return Point{Pos: pos, Dir: d, Feed: -1, Speed: -1}
}

// Clone returns a deep copy of p.
func (p Point) Clone() Point {
	c := p
	c.Warnings = append([]string(nil), p.Warnings...)
	c.Errors = append([]string(nil), p.Errors...)
	return c
}

// At returns a copy of p moved to pos.
func (p Point) At(pos v3.Vec) Point {
	c := p.Clone()
	c.Pos = pos
	return c
}

// Lifted returns a copy of p moved h along its direction.
func (p Point) Lifted(h float64) Point {
	return p.At(p.Pos.Add(p.Dir.MulScalar(h)))
}

// Rapid returns a copy of p marked as a rapid move with no attached codes or
// messages.
func (p Point) Rapid() Point {
	return Point{Pos: p.Pos, Dir: p.Dir, Feed: 0, Speed: p.Speed}
}

// AddWarning attaches a warning to the point.
func (p *Point) AddWarning(msg string) { p.Warnings = append(p.Warnings, msg) }

// AddError attaches an error to the point.
func (p *Point) AddError(msg string) { p.Errors = append(p.Errors, msg) }
