package toolpath

import (
	"fmt"
	"math"
	"strings"
)

// Shape is the profile of a tool's cutting end.
type Shape int

const (
	ShapeBall Shape = iota
	ShapeSquare
	ShapeV
	ShapeOther
)

func (s Shape) String() string {
	switch s {
	case ShapeBall:
		return "ball"
	case ShapeSquare:
		return "square"
	case ShapeV:
		return "v"
	case ShapeOther:
		return "other"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape converts a shape name as written in job files.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(name) {
	case "ball":
		return ShapeBall, nil
	case "square", "flat":
		return ShapeSquare, nil
	case "v":
		return ShapeV, nil
	case "other":
		return ShapeOther, nil
	}
	return ShapeOther, fmt.Errorf("toolpath: unknown tool shape %q", name)
}

// Tool holds the numeric parameters of one tool cutting one material.
// Negative values mean unset.
type Tool struct {
	Name        string
	Number      int
	Shape       Shape
	Speed       float64 // spindle speed
	FeedCut     float64
	FeedPlunge  float64
	Width       float64 // cutting diameter
	InsertWidth float64 // kerf used when judging lead-in clearance
	Length      float64 // from the holder to the tip
	CutDepth    float64 // deepest single roughing pass
	FinishDepth float64 // material left for the finish pass
	Tolerance   float64
	MinStep     float64
}

// NewTool returns a tool with every optional parameter unset.
func NewTool(name string, number int, shape Shape, width float64) *Tool {
	return &Tool{
		Name:        name,
		Number:      number,
		Shape:       shape,
		Width:       width,
		Speed:       -1,
		FeedCut:     -1,
		FeedPlunge:  -1,
		InsertWidth: -1,
		Length:      -1,
		CutDepth:    -1,
		FinishDepth: -1,
		Tolerance:   -1,
		MinStep:     -1,
	}
}

// Radius is half the cutting width.
func (t *Tool) Radius() float64 { return t.Width / 2 }

// EffectiveCutDepth returns the roughing pass depth, infinite when unset.
func (t *Tool) EffectiveCutDepth() float64 {
	if t.CutDepth <= 0 {
		return math.Inf(1)
	}
	return t.CutDepth
}

// EffectiveFinishDepth returns the finish allowance, zero when unset.
func (t *Tool) EffectiveFinishDepth() float64 {
	if t.FinishDepth < 0 {
		return 0
	}
	return t.FinishDepth
}

// EffectiveInsertWidth returns the insert width, falling back to the
// cutting width.
func (t *Tool) EffectiveInsertWidth() float64 {
	if t.InsertWidth < 0 {
		return t.Width
	}
	return t.InsertWidth
}

// EffectiveTolerance returns the geometric tolerance, 0.01 when unset.
func (t *Tool) EffectiveTolerance() float64 {
	if t.Tolerance < 0 {
		return 0.01
	}
	return t.Tolerance
}

// EffectiveLength returns the tool length, zero when unset.
func (t *Tool) EffectiveLength() float64 {
	if t.Length < 0 {
		return 0
	}
	return t.Length
}

// EffectiveMinStep returns the smallest meaningful move, the tolerance when
// unset.
func (t *Tool) EffectiveMinStep() float64 {
	if t.MinStep < 0 {
		return t.EffectiveTolerance()
	}
	return t.MinStep
}
