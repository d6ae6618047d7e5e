package machine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/chisel/pkg/codegen"
	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/kinematics"
	"github.com/chazu/chisel/pkg/toolpath"
)

// Messages recorded on the build context.
const (
	ErrOutOfBoundsA = "Out of bounds on A"
	ErrOutOfBoundsB = "Out of bounds on B"
	WarnNotVertical = "Tool direction is not vertical on a machine without rotary axes"
)

const radToDeg = 180 / math.Pi

// motionWords are the modal words a hand written block may change without
// the writer seeing it.
var motionWords = []string{"G", "X", "Y", "Z", "A", "B", "F"}

// Rotary positions are also kept unformatted under these keys, so solving
// continues from the last commanded setting after the words are forgotten.
const (
	rotaryA = "rotary A"
	rotaryB = "rotary B"
)

// appendRaw appends block verbatim and forgets the motion state, so the
// next move restates every word.
func appendRaw(c *codegen.CodeInfo, block string) {
	if block == "" {
		return
	}
	c.Append(block)
	c.ClearState(motionWords...)
}

// WriteHeader starts a program.
func WriteHeader(m Machine, c *codegen.CodeInfo, name string) {
	d := m.Dialect()
	if d.Header != "" {
		c.Append(d.Header)
	}
	if name != "" {
		c.AppendComment(name)
	}
	c.AppendComment("machine " + d.Name)
}

// WriteFooter ends a program.
func WriteFooter(m Machine, c *codegen.CodeInfo) {
	if f := m.Dialect().Footer; f != "" {
		c.Append(f)
	}
}

// WriteOperationStart marks the beginning of an operation.
func WriteOperationStart(m Machine, c *codegen.CodeInfo, name string) {
	d := m.Dialect()
	if d.SectionBreak != "" {
		c.AppendLine(d.SectionBreak)
	}
	if name != "" {
		c.AppendComment(name)
	}
}

// WriteToolChange switches to tool t unless it is already loaded. The
// change block moves the machine, so the next move restates its mode,
// every axis, feed and speed.
func WriteToolChange(m Machine, c *codegen.CodeInfo, t *toolpath.Tool) {
	if t == nil {
		return
	}
	if c.Word("T", strconv.Itoa(t.Number)) == "" {
		return
	}
	if block := m.Dialect().FormatToolChange(t.Number); block != "" {
		c.AppendComment(fmt.Sprintf("tool %d %s", t.Number, t.Name))
		appendRaw(c, block)
	}
	c.ClearState("S")
}

// WritePath writes a resolved path. It fails when the path still lacks
// context or has pending additions.
func WritePath(m Machine, c *codegen.CodeInfo, p *toolpath.Path) error {
	if err := p.Ready(); err != nil {
		return err
	}
	d := m.Dialect()
	appendRaw(c, p.PreCode)
	if _, twoAxis := m.(*TwoAxis); twoAxis {
		appendRaw(c, d.PathStart)
		WriteMoves(m, c, p.Tool, p.Points)
		appendRaw(c, d.PathEnd)
	} else {
		WriteMoves(m, c, p.Tool, p.Points)
	}
	appendRaw(c, p.PostCode)
	return nil
}

// WriteMoves writes points as moves continuing from the recorded machine
// state. Transitions between paths use it directly.
func WriteMoves(m Machine, c *codegen.CodeInfo, t *toolpath.Tool, pts []toolpath.Point) {
	if len(pts) == 0 {
		return
	}
	axes := solveAxes(m, c, pts)
	warned := false
	for i, pt := range pts {
		if !FiveAxis(m) && !warned && !geom.Parallel(pt.Dir, geom.ZAxis, 1e-6) {
			c.AddWarning(WarnNotVertical)
			warned = true
		}
		for _, w := range pt.Warnings {
			c.AddWarning(w)
		}
		for _, e := range pt.Errors {
			c.AddError(e)
		}
		appendRaw(c, pt.PreCode)
		writeMove(m, c, t, pt, axes[i])
		appendRaw(c, pt.PostCode)
	}
}

// solveAxes computes machine axes for a run of points, threading rotary
// state from the build context and smoothing B through the cusp.
func solveAxes(m Machine, c *codegen.CodeInfo, pts []toolpath.Point) []Axes {
	out := make([]Axes, len(pts))
	ab, ok := m.(*ABTable)
	if !ok {
		for i, pt := range pts {
			out[i] = Forward(m, pt, Axes{})
		}
		return out
	}

	prev := kinematics.Axes{A: stateAngle(c, rotaryA), B: stateAngle(c, rotaryB)}
	rot := make([]kinematics.Axes, len(pts))
	for i, pt := range pts {
		rot[i] = kinematics.Solve(pt.Dir, prev, ab.Limits)
		prev = rot[i]
	}
	smoothCusp(rot)
	for i, pt := range pts {
		out[i] = Axes{Pos: kinematics.ToMachine(rot[i], pt.Pos, ab.Pivot), A: rot[i].A, B: rot[i].B}
	}
	return out
}

// smoothCusp replaces B on runs of points at the cusp, where B has no
// effect on the tool direction, with an even blend between the settings
// either side of the run.
func smoothCusp(rot []kinematics.Axes) {
	n := len(rot)
	for i := 0; i < n; {
		if !kinematics.AtCusp(rot[i].A) {
			i++
			continue
		}
		j := i
		for j < n && kinematics.AtCusp(rot[j].A) {
			j++
		}
		// rot[i:j] is a cusp run.
		switch {
		case i == 0 && j == n:
			// Nothing to blend toward; keep the inherited B.
		case i == 0:
			for k := i; k < j; k++ {
				rot[k].B = rot[j].B
			}
		case j == n:
			for k := i; k < j; k++ {
				rot[k].B = rot[i-1].B
			}
		default:
			before, after := rot[i-1].B, rot[j].B
			steps := float64(j - i + 1)
			for k := i; k < j; k++ {
				rot[k].B = before + (after-before)*float64(k-i+1)/steps
			}
		}
		i = j
	}
}

// stateAngle reads a rotary axis from the build context in radians.
func stateAngle(c *codegen.CodeInfo, key string) float64 {
	s, ok := c.State(key)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// writeMove writes one modal move line. Words whose value has not changed
// are left out and a line with nothing new is skipped.
func writeMove(m Machine, c *codegen.CodeInfo, t *toolpath.Tool, pt toolpath.Point, ax Axes) {
	feed := pt.Feed
	if feed < 0 && t != nil {
		feed = t.FeedCut
	}
	speed := pt.Speed
	if speed < 0 && t != nil {
		speed = t.Speed
	}

	var words []string
	add := func(w string) {
		if w != "" {
			words = append(words, w)
		}
	}
	if feed == 0 {
		add(c.Word("G", "00"))
	} else {
		add(c.Word("G", "01"))
	}

	c.GrowRange("X", ax.Pos.X)
	c.GrowRange("Y", ax.Pos.Y)
	add(c.Word("X", c.Format(ax.Pos.X)))
	add(c.Word("Y", c.Format(ax.Pos.Y)))
	switch m := m.(type) {
	case *ThreeAxis:
		c.GrowRange("Z", ax.Pos.Z)
		add(c.Word("Z", c.Format(ax.Pos.Z)))
	case *ABTable:
		c.GrowRange("Z", ax.Pos.Z)
		add(c.Word("Z", c.Format(ax.Pos.Z)))
		a, b := ax.A*radToDeg, ax.B*radToDeg
		c.GrowRange("A", a)
		c.GrowRange("B", b)
		add(c.Word("A", c.Format(a)))
		add(c.Word("B", c.Format(b)))
		c.SetState(rotaryA, strconv.FormatFloat(ax.A, 'g', -1, 64))
		c.SetState(rotaryB, strconv.FormatFloat(ax.B, 'g', -1, 64))
		aOK, bOK := m.Limits.InBounds(ax.rotary())
		if !aOK {
			c.AddError(ErrOutOfBoundsA)
		}
		if !bOK {
			c.AddError(ErrOutOfBoundsB)
		}
	}

	moved := false
	for _, w := range words {
		if w[0] != 'G' {
			moved = true
			break
		}
	}
	if !moved && len(words) > 0 {
		// A bare mode change with no motion is not worth a line; forget it
		// so the next real move restates it.
		c.ClearState("G")
		words = words[:0]
	}

	if feed > 0 {
		add(c.Word("F", c.Format(feed)))
	}
	if speed >= 0 {
		if w := c.Word("S", c.Format(speed)); w != "" {
			if sc := m.Dialect().SpeedChange; sc != "" {
				w += " " + sc
			}
			add(w)
		}
	}
	if len(words) == 0 {
		return
	}
	c.AppendLine(strings.Join(words, " "))
}
