// Package route moves the tool between consecutive paths without passing
// through stock.
package route

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/chisel/pkg/codegen"
	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/logging"
	"github.com/chazu/chisel/pkg/machine"
	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Errors recorded on the build context for jumps that may cut material.
const (
	ErrInMaterial      = "Long transition between paths may pass through material"
	ErrInMaterialFirst = "Long transition into an operation may pass through material"
)

const (
	// maxRefine bounds the number of via points added to one route.
	maxRefine = 200
	// maxTurn is the largest rotation between two emitted orientations.
	maxTurn = math.Pi / 30
	// pushOut scales the safe distance when moving a via out of material.
	pushOut = 1.1
)

// RoutingFailureError means every way of turning the tool between two
// paths brings it into stock.
type RoutingFailureError struct {
	From, To string
}

func (e *RoutingFailureError) Error() string {
	return fmt.Sprintf("route: no safe move from %q to %q", e.From, e.To)
}

// WriteTransition writes the rapid moves from the end of one path to the
// start of the next. When both ends are clear of every stock's safety
// bubble a safe route is planned; otherwise a jump longer than the
// dialect's path jump is recorded as an error. first marks the transition
// into a new operation.
func WriteTransition(m machine.Machine, c *codegen.CodeInfo, from, to *toolpath.Path, first bool) error {
	if from == nil || from.Len() == 0 || to.Len() == 0 {
		return nil
	}
	if err := to.HasContext(); err != nil {
		return err
	}
	a, b := from.LastPoint(), to.FirstPoint()
	forms := stocks(from.Form, to.Form)
	tol := to.Tool.EffectiveTolerance()

	clear := true
	for _, f := range forms {
		if stock.InBubble(f, a.Pos, tol) || stock.InBubble(f, b.Pos, tol) {
			clear = false
		}
	}
	if !clear {
		if a.Pos.Sub(b.Pos).Length() > m.Dialect().PathJump {
			if first {
				c.AddError(ErrInMaterialFirst)
			} else {
				c.AddError(ErrInMaterial)
			}
		}
		return nil
	}

	pts, err := Route(m, to.Tool, forms, a, b)
	var rf *RoutingFailureError
	if errors.As(err, &rf) {
		rf.From, rf.To = from.Name, to.Name
		return rf
	}
	if err != nil {
		return fmt.Errorf("route: %s to %s: %w", from.Name, to.Name, err)
	}
	machine.WriteMoves(m, c, to.Tool, pts)
	return nil
}

// Route returns rapid points leading from a to b, not including either,
// such that no segment enters any form's safety bubble. On machines that
// turn the tool, orientations are sampled so no step turns more than
// maxTurn, and the long way round is tried when the short way gouges.
func Route(m machine.Machine, t *toolpath.Tool, forms []stock.Form, a, b toolpath.Point) ([]toolpath.Point, error) {
	tol := t.EffectiveTolerance()
	line, err := refine(forms, a.Pos, b.Pos, tol)
	if err != nil {
		return nil, err
	}
	if !machine.FiveAxis(m) {
		out := make([]toolpath.Point, 0, len(line))
		for _, v := range line[1 : len(line)-1] {
			p := b.Rapid()
			p.Pos = v
			out = append(out, p)
		}
		return out, nil
	}
	for _, long := range []bool{false, true} {
		if pts, ok := orient(m, t, forms, line, a, b, long); ok {
			return pts, nil
		}
	}
	return nil, &RoutingFailureError{}
}

// refine pushes a straight line out of the safety bubbles one via point at
// a time.
func refine(forms []stock.Form, a, b v3.Vec, tol float64) ([]v3.Vec, error) {
	line := []v3.Vec{a, b}
	for n := 0; ; n++ {
		i, via, hit := firstHit(forms, line, tol)
		if !hit {
			logging.Logger().Debug("route: refined", "vias", n)
			return line, nil
		}
		if n == maxRefine {
			return nil, fmt.Errorf("no clear line after %d via points", n)
		}
		line = append(line[:i+1], append([]v3.Vec{via}, line[i+1:]...)...)
	}
}

// firstHit finds the first segment that enters a bubble and the via point
// that clears it.
func firstHit(forms []stock.Form, line []v3.Vec, tol float64) (int, v3.Vec, bool) {
	for i := 0; i+1 < len(line); i++ {
		for _, f := range forms {
			safe := f.Clearance().SafeDistance
			ok, x := stock.IntersectSegment(f, line[i], line[i+1], safe-tol)
			if !ok {
				continue
			}
			return i, x.Mid.Add(x.MidOut.MulScalar(x.MidDist + pushOut*safe)), true
		}
	}
	return 0, v3.Vec{}, false
}

// orient samples the route with orientations moving from a's to b's along
// the chosen rotation branch and checks every sampled tool for stock
// contact.
func orient(m machine.Machine, t *toolpath.Tool, forms []stock.Form, line []v3.Vec, a, b toolpath.Point, long bool) ([]toolpath.Point, bool) {
	total := geom.PolylineLength(line)
	turn := machine.AngularDistance(m, a, b, long)
	var out []toolpath.Point
	done := 0.0
	for i := 0; i+1 < len(line); i++ {
		seg := line[i+1].Sub(line[i]).Length()
		s0, s1 := fraction(done, total), fraction(done+seg, total)
		done += seg
		// Axes move linearly, so the segment turns its share of the whole.
		steps := int(math.Ceil((s1 - s0) * turn / maxTurn))
		if steps < 1 {
			steps = 1
		}
		last := i+2 == len(line)
		for j := 1; j <= steps; j++ {
			if last && j == steps {
				break
			}
			u := float64(j) / float64(steps)
			p := b.Rapid()
			p.Dir = machine.Interpolate(m, a, b, s0+(s1-s0)*u, long).Dir
			p.Pos = geom.Lerp(line[i], line[i+1], u)
			if gouges(t, forms, p) {
				return nil, false
			}
			out = append(out, p)
		}
	}
	return out, true
}

func fraction(l, total float64) float64 {
	if total < geom.Epsilon {
		return 1
	}
	return math.Min(l/total, 1)
}

// gouges reports whether the tool at p touches any form.
func gouges(t *toolpath.Tool, forms []stock.Form, p toolpath.Point) bool {
	l := t.EffectiveLength()
	for _, f := range forms {
		if stock.Inside(f, p.Pos, 0) {
			return true
		}
		if l > 0 {
			if ok, _ := stock.IntersectSegment(f, p.Pos, p.Pos.Add(p.Dir.MulScalar(l)), 0); ok {
				return true
			}
		}
	}
	return false
}

// stocks lists the distinct forms of both ends.
func stocks(a, b stock.Form) []stock.Form {
	switch {
	case a == nil:
		return []stock.Form{b}
	case b == nil || a == b:
		return []stock.Form{a}
	}
	return []stock.Form{a, b}
}
