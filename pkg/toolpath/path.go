package toolpath

import (
	"math"

	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/stock"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Additions selects the pipeline stages that still have to run on a path.
type Additions struct {
	Insert       bool      // approach from the safety bubble
	Retract      bool      // leave to the safety bubble
	StepDown     bool      // split deep cuts into roughing levels
	DropStart    bool      // skip leading points already at depth
	DropMiddle   float64   // split at finished runs longer than this; negative disables
	DropEnd      bool      // skip trailing points already at depth
	HeightOffset bool      // move a 3-axis path so the cutting surface follows it
	Lead         float64   // lead arc factor; the sign picks the side
	Onion        []float64 // finish pass heights above the path
	Offset       float64   // 2D offset in multiples of half the tool width
}

// NoAdditions is the resolved state: nothing left to run.
func NoAdditions() Additions {
	return Additions{DropMiddle: -1}
}

// Pending reports whether any stage is still requested.
func (a Additions) Pending() bool {
	return a.Insert || a.Retract || a.StepDown || a.HeightOffset ||
		a.Lead != 0 || len(a.Onion) > 0 || a.Offset != 0
}

// Clone returns a copy that shares no slices with a.
func (a Additions) Clone() Additions {
	c := a
	c.Onion = append([]float64(nil), a.Onion...)
	return c
}

// Path is an ordered cutting motion with the tool and stock it runs
// against. Tool and Form may be nil until the path is resolved against its
// operation or instruction.
type Path struct {
	Name      string
	Points    []Point
	Tool      *Tool
	Form      stock.Form
	Additions Additions
	PreCode   string
	PostCode  string
}

// NewPath returns an empty path with no additions.
func NewPath(name string, tool *Tool, form stock.Form) *Path {
	return &Path{Name: name, Tool: tool, Form: form, Additions: NoAdditions()}
}

// Clone returns a deep copy. Tool and Form are shared.
func (p *Path) Clone() *Path {
	c := p.CloneEmpty()
	c.Points = make([]Point, len(p.Points))
	for i, pt := range p.Points {
		c.Points[i] = pt.Clone()
	}
	return c
}

// CloneEmpty returns a copy of the path context with no points.
func (p *Path) CloneEmpty() *Path {
	return &Path{
		Name:      p.Name,
		Tool:      p.Tool,
		Form:      p.Form,
		Additions: p.Additions.Clone(),
		PreCode:   p.PreCode,
		PostCode:  p.PostCode,
	}
}

// Append adds points to the path.
func (p *Path) Append(pts ...Point) { p.Points = append(p.Points, pts...) }

// Len returns the number of points.
func (p *Path) Len() int { return len(p.Points) }

// FirstPoint returns the first point. The path must not be empty.
func (p *Path) FirstPoint() Point { return p.Points[0] }

// LastPoint returns the last point. The path must not be empty.
func (p *Path) LastPoint() Point { return p.Points[len(p.Points)-1] }

// Positions returns the point positions.
func (p *Path) Positions() []v3.Vec {
	out := make([]v3.Vec, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Pos
	}
	return out
}

// Length returns the travelled distance along the path.
func (p *Path) Length() float64 { return geom.PolylineLength(p.Positions()) }

// Closed reports whether the first and last points coincide within tol.
func (p *Path) Closed(tol float64) bool {
	if len(p.Points) < 3 {
		return false
	}
	return p.FirstPoint().Pos.Sub(p.LastPoint().Pos).Length() <= tol
}

// Flat reports whether the path lies in one horizontal plane with every
// direction vertical, so 2D stages may run on it.
func (p *Path) Flat() bool {
	if len(p.Points) == 0 {
		return false
	}
	z := p.Points[0].Pos.Z
	for _, pt := range p.Points {
		if math.Abs(pt.Pos.Z-z) > 1e-6 || !geom.Parallel(pt.Dir, geom.ZAxis, 1e-6) {
			return false
		}
	}
	return true
}

// Ready checks the path can be written as code: its context is resolved and
// no pipeline stage is pending.
func (p *Path) Ready() error {
	if err := p.HasContext(); err != nil {
		return err
	}
	if p.Additions.Pending() {
		return &UnprocessedAdditionsError{Path: p.Name}
	}
	return nil
}

// HasContext checks the tool and stock have been resolved.
func (p *Path) HasContext() error {
	if p.Tool == nil {
		return &MissingContextError{Path: p.Name, Missing: "tool"}
	}
	if p.Form == nil {
		return &MissingContextError{Path: p.Name, Missing: "stock"}
	}
	return nil
}

// Resolve fills a missing tool or stock from the enclosing context.
func (p *Path) Resolve(tool *Tool, form stock.Form) {
	if p.Tool == nil {
		p.Tool = tool
	}
	if p.Form == nil {
		p.Form = form
	}
}

// Operation is one coherent group of paths, such as one pocket.
type Operation struct {
	Name  string
	Paths []*Path
	Tool  *Tool      // default for paths without one
	Form  stock.Form // default for paths without one
}

// Clone returns a copy whose context can be resolved without touching o.
// Points are shared.
func (o *Operation) Clone() *Operation {
	c := *o
	c.Paths = make([]*Path, len(o.Paths))
	for i, p := range o.Paths {
		q := *p
		q.Additions = p.Additions.Clone()
		c.Paths[i] = &q
	}
	return &c
}

// Resolve fills path context from the operation, then from the given
// defaults, and reports the first path left without context.
func (o *Operation) Resolve(tool *Tool, form stock.Form) error {
	if o.Tool == nil {
		o.Tool = tool
	}
	if o.Form == nil {
		o.Form = form
	}
	for _, p := range o.Paths {
		p.Resolve(o.Tool, o.Form)
		if err := p.HasContext(); err != nil {
			return err
		}
	}
	return nil
}

// PointCount sums the points of every path.
func (o *Operation) PointCount() int {
	n := 0
	for _, p := range o.Paths {
		n += p.Len()
	}
	return n
}
