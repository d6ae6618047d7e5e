// Package project drops sample rays onto stock to make surface tool
// points. Each ray is independent, so rays are cast in parallel batches and
// the results come back in ray order.
package project

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/chisel/pkg/logging"
	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// batch is the number of rays one worker casts before taking more.
const batch = 256

// Ray is a sample to project: an origin and a direction of travel.
type Ray struct {
	Origin v3.Vec
	Dir    v3.Vec
}

// Result is the outcome of one ray. Point carries the crossing position
// with the outward surface normal as its direction; it is only meaningful
// when Hit is set.
type Result struct {
	Point toolpath.Point
	Form  stock.Form
	Dist  float64
	Hit   bool
}

// Options tune a projection.
type Options struct {
	// Parallel caps concurrent workers; zero uses GOMAXPROCS.
	Parallel int
	// Standoff moves every hit this far along its normal, for example the
	// radius of a ball end mill.
	Standoff float64
}

// Project casts every ray against forms and keeps the nearest forward
// crossing of each.
func Project(ctx context.Context, forms []stock.Form, rays []Ray, opts Options) ([]Result, error) {
	limit := opts.Parallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	out := make([]Result, len(rays))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for lo := 0; lo < len(rays); lo += batch {
		hi := min(lo+batch, len(rays))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = cast(forms, rays[i], opts.Standoff)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	logging.Logger().Debug("project: cast rays", "rays", len(rays), "forms", len(forms))
	return out, nil
}

func cast(forms []stock.Form, r Ray, standoff float64) Result {
	var best Result
	for _, f := range forms {
		x := stock.Intersect(f, r.Origin, r.Dir, 0)
		if !x.Hit() {
			continue
		}
		h := x.First()
		if best.Hit && h.LineP >= best.Dist {
			continue
		}
		best = Result{
			Point: toolpath.NewPoint(h.Point.Add(h.Away.MulScalar(standoff)), h.Away),
			Form:  f,
			Dist:  h.LineP,
			Hit:   true,
		}
	}
	return best
}

// Path collects the hits of results into a path named name, in ray order.
// It returns the number of rays that missed.
func Path(name string, results []Result) (*toolpath.Path, int) {
	p := toolpath.NewPath(name, nil, nil)
	missed := 0
	for _, r := range results {
		if !r.Hit {
			missed++
			continue
		}
		if p.Form == nil {
			p.Form = r.Form
		}
		p.Append(r.Point)
	}
	return p, missed
}
