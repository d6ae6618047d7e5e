package pipeline

import (
	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
)

// insert starts the path with a rapid from the safety bubble straight down
// the tool axis to the first point, which then plunges at the plunge feed.
func insert(p *toolpath.Path) {
	first := p.FirstPoint()
	above := stock.Lift(p.Form, first.Pos, first.Dir)
	if above.Sub(first.Pos).Length() < p.Tool.EffectiveMinStep() {
		return
	}
	if p.Tool.FeedPlunge > 0 && p.Points[0].Feed < 0 {
		p.Points[0].Feed = p.Tool.FeedPlunge
	}
	approach := first.Rapid()
	approach.Pos = above
	p.Points = append([]toolpath.Point{approach}, p.Points...)
}

// retract ends the path with a rapid up the tool axis out of the safety
// bubble.
func retract(p *toolpath.Path) {
	last := p.LastPoint()
	above := stock.Lift(p.Form, last.Pos, last.Dir)
	if above.Sub(last.Pos).Length() < p.Tool.EffectiveMinStep() {
		return
	}
	leave := last.Rapid()
	leave.Pos = above
	p.Append(leave)
}
