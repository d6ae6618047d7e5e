// Package pipeline expands a path's requested additions into the concrete
// paths a machine can cut: 2D offset, height offset, boundary refinement,
// step-down roughing, finish passes, lead arcs and approach moves.
//
// Process never mutates its input. Every returned path is ready to write.
package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/chisel/pkg/logging"
	"github.com/chazu/chisel/pkg/machine"
	"github.com/chazu/chisel/pkg/toolpath"
)

// ErrCollapsed is returned when a 2D offset leaves nothing of a path.
var ErrCollapsed = errors.New("pipeline: offset removed the whole path")

// Warnings attached to points by stages that cannot run.
const (
	WarnOffsetNotFlat = "2D offset skipped on a path that is not flat"
	WarnLeadNotFlat   = "Lead skipped on a path that is not flat"
	WarnLeadBlocked   = "No clear lead found"
	WarnHeightFive    = "Height offset skipped on a 5-axis machine"
)

// Process runs the pending stages of p for machine m and returns the paths
// to cut, in order.
func Process(m machine.Machine, p *toolpath.Path) ([]*toolpath.Path, error) {
	if err := p.HasContext(); err != nil {
		return nil, err
	}
	if p.Len() == 0 {
		return nil, fmt.Errorf("pipeline: path %q has no points", p.Name)
	}
	add := p.Additions
	bases := []*toolpath.Path{p.Clone()}

	if add.Offset != 0 {
		var err error
		if bases, err = offset2D(bases[0]); err != nil {
			return nil, err
		}
	}

	var out []*toolpath.Path
	for _, base := range bases {
		if add.HeightOffset {
			if machine.FiveAxis(m) {
				base.Points[0].AddWarning(WarnHeightFive)
			} else {
				base = heightOffset(base)
			}
		}
		if add.StepDown {
			base = refine(m, base)
			out = append(out, stepDown(base)...)
		}
		out = append(out, finishPasses(base)...)
	}

	for _, q := range out {
		if add.Lead != 0 {
			lead(q, add.Lead)
		}
		if add.Insert {
			insert(q)
		}
		if add.Retract {
			retract(q)
		}
		q.Additions = toolpath.NoAdditions()
	}
	logging.Logger().Debug("pipeline: processed path",
		"path", p.Name, "in", p.Len(), "paths", len(out))
	return out, nil
}

// finishPasses clones the path once per onion height and lifts it along
// the tool direction. Higher skins are cut first. With no heights one pass
// runs on the path itself.
func finishPasses(p *toolpath.Path) []*toolpath.Path {
	heights := append([]float64(nil), p.Additions.Onion...)
	if len(heights) == 0 {
		heights = []float64{0}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(heights)))
	out := make([]*toolpath.Path, 0, len(heights))
	for _, h := range heights {
		q := p.CloneEmpty()
		for _, pt := range p.Points {
			q.Append(pt.Lifted(h))
		}
		out = append(out, q)
	}
	return out
}
