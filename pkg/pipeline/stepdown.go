package pipeline

import (
	"math"

	"github.com/chazu/chisel/pkg/logging"
	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
)

// stepDown returns the roughing passes for p, shallowest first. Each level
// cuts at most the tool's cut depth deeper than the last and never below
// the finish allowance. Sections already at finish depth are dropped as the
// path's drop settings ask.
func stepDown(p *toolpath.Path) []*toolpath.Path {
	cut := p.Tool.EffectiveCutDepth()
	finish := p.Tool.EffectiveFinishDepth()
	tol := p.Tool.EffectiveTolerance()

	depth := make([]float64, p.Len())
	deepest := 0.0
	for i, pt := range p.Points {
		depth[i] = stock.Depth(p.Form, pt.Pos, pt.Dir)
		deepest = math.Max(deepest, depth[i])
	}
	levels := 0
	switch {
	case deepest-finish <= tol:
	case math.IsInf(cut, 1):
		levels = 1
	default:
		levels = int(math.Ceil((deepest - finish - tol) / cut))
	}
	logging.Logger().Debug("pipeline: step down",
		"path", p.Name, "depth", deepest, "levels", levels)

	var out []*toolpath.Path
	for k := 1; k <= levels; k++ {
		above := 0.0
		if k > 1 {
			above = cut * float64(k-1)
		}
		pts := make([]toolpath.Point, p.Len())
		done := make([]bool, p.Len())
		for i, pt := range p.Points {
			pts[i] = pt.Lifted(math.Max(depth[i]-cut*float64(k), finish))
			done[i] = depth[i]-above <= finish+tol
		}
		for _, run := range keepRuns(p.Additions, pts, done) {
			q := p.CloneEmpty()
			q.Append(pts[run[0] : run[1]+1]...)
			out = append(out, q)
		}
	}
	return out
}

// keepRuns returns the inclusive index ranges of a level worth cutting.
// done marks points where the level removes nothing new.
func keepRuns(add toolpath.Additions, pts []toolpath.Point, done []bool) [][2]int {
	n := len(pts)
	s, e := 0, n-1
	if add.DropStart {
		for s < n && done[s] {
			s++
		}
		if s == n {
			return nil
		}
		if s > 0 {
			s--
		}
	}
	if add.DropEnd {
		for e >= 0 && done[e] {
			e--
		}
		if e < 0 {
			return nil
		}
		if e < n-1 {
			e++
		}
	}
	if s > e {
		return nil
	}
	allDone := true
	for i := s; i <= e; i++ {
		allDone = allDone && done[i]
	}
	if allDone && (add.DropStart || add.DropEnd || add.DropMiddle >= 0) {
		return nil
	}

	var runs [][2]int
	from := s
	if add.DropMiddle >= 0 {
		for i := s + 1; i < e; i++ {
			if !done[i] {
				continue
			}
			j := i
			for j+1 < e && done[j+1] {
				j++
			}
			// pts[i..j] is a finished stretch strictly inside the level.
			if j-i+1 >= 3 && stretch(pts[i:j+1]) > add.DropMiddle {
				runs = append(runs, [2]int{from, i})
				from = j
			}
			i = j
		}
	}
	return append(runs, [2]int{from, e})
}

func stretch(pts []toolpath.Point) float64 {
	l := 0.0
	for i := 1; i < len(pts); i++ {
		l += pts[i].Pos.Sub(pts[i-1].Pos).Length()
	}
	return l
}
