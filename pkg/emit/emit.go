// Package emit compiles a machining instruction to code. Pipeline stages
// run per operation in parallel; writing is sequential because machine
// state threads through every line.
package emit

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/chisel/pkg/codegen"
	"github.com/chazu/chisel/pkg/logging"
	"github.com/chazu/chisel/pkg/machine"
	"github.com/chazu/chisel/pkg/pipeline"
	"github.com/chazu/chisel/pkg/route"
	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
)

// Instruction is one complete job for one machine.
type Instruction struct {
	Name       string
	Machine    machine.Machine
	Operations []*toolpath.Operation
	Start      *toolpath.Path // optional; written before the first operation
	End        *toolpath.Path // optional; written after the last
	Tool       *toolpath.Tool // default for operations without one
	Form       stock.Form     // default for operations without one
}

// Options tune a compile.
type Options struct {
	// Ignore lists error texts reported separately instead of as errors.
	Ignore []string
	// Parallel caps concurrent pipeline workers; zero uses GOMAXPROCS.
	Parallel int
}

// Result is the compiled code with its diagnostics.
type Result struct {
	Code     string
	Ranges   map[string]codegen.Range
	Warnings map[string]int
	Errors   map[string]int
	Ignored  map[string]int
	Report   string
}

// Messages recorded for paths that were dropped.
const (
	warnSkipped   = "Skipped %d invalid paths"
	warnCollapsed = "Offset removed %d paths"
)

// Compile processes and writes in. Fatal errors (missing context, an
// impossible 5-axis route) stop the compile; everything else is reported in
// the result.
func Compile(ctx context.Context, in *Instruction, opts Options) (*Result, error) {
	if in.Machine == nil {
		return nil, errors.New("emit: instruction has no machine")
	}
	m := in.Machine
	resolved := make([]*toolpath.Operation, len(in.Operations))
	for i, op := range in.Operations {
		resolved[i] = op.Clone()
		if err := resolved[i].Resolve(in.Tool, in.Form); err != nil {
			return nil, err
		}
	}

	ops, stats, err := process(ctx, m, resolved, opts.Parallel)
	if err != nil {
		return nil, err
	}
	start, err := ends(m, in.Start, in)
	if err != nil {
		return nil, err
	}
	end, err := ends(m, in.End, in)
	if err != nil {
		return nil, err
	}

	c := codegen.New(m.Dialect(), opts.Ignore)
	if err := write(ctx, m, c, in, ops, start, end); err != nil {
		return nil, err
	}
	if stats.skipped > 0 {
		c.AddWarning(fmt.Sprintf(warnSkipped, stats.skipped))
	}
	if stats.collapsed > 0 {
		c.AddWarning(fmt.Sprintf(warnCollapsed, stats.collapsed))
	}
	for _, w := range stats.warnings {
		c.AddWarning(w)
	}
	logging.Logger().Info("emit: compiled",
		"instruction", in.Name, "operations", len(ops), "bytes", c.Len())

	return &Result{
		Code:     c.String(),
		Ranges:   c.Ranges(),
		Warnings: c.Warnings(),
		Errors:   c.Errors(),
		Ignored:  c.Ignored(),
		Report:   c.Report(),
	}, nil
}

// processed is one operation after the pipeline ran on its paths.
type processed struct {
	op    *toolpath.Operation
	paths []*toolpath.Path
}

// opResult collects what the pipeline made of one operation, or of all of
// them once merged.
type opResult struct {
	paths              []*toolpath.Path
	skipped, collapsed int
	warnings           []string
}

// process runs the pipeline on every operation, in parallel, and returns
// the results in operation order.
func process(ctx context.Context, m machine.Machine, ops []*toolpath.Operation, limit int) ([]processed, opResult, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	results := make([]opResult, len(ops))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, op := range ops {
		g.Go(func() error {
			r, err := processOperation(ctx, m, op)
			if err != nil {
				return fmt.Errorf("emit: operation %q: %w", op.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, opResult{}, err
	}

	out := make([]processed, len(ops))
	var st opResult
	for i, r := range results {
		out[i] = processed{op: ops[i], paths: r.paths}
		st.skipped += r.skipped
		st.collapsed += r.collapsed
		st.warnings = append(st.warnings, r.warnings...)
	}
	return out, st, nil
}

func processOperation(ctx context.Context, m machine.Machine, op *toolpath.Operation) (opResult, error) {
	var r opResult
	for _, p := range op.Paths {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		findings := toolpath.Validate(p)
		if toolpath.HasErrors(findings) {
			r.skipped++
			logging.Logger().Warn("emit: skipping invalid path", "path", p.Name, "findings", len(findings))
			continue
		}
		for _, f := range findings {
			r.warnings = append(r.warnings, f.Message)
		}
		out, err := pipeline.Process(m, p)
		if errors.Is(err, pipeline.ErrCollapsed) {
			r.collapsed++
			logging.Logger().Warn("emit: offset removed path", "path", p.Name)
			continue
		}
		if err != nil {
			return r, err
		}
		r.paths = append(r.paths, out...)
	}
	return r, nil
}

// ends prepares the optional start or end path, borrowing tool and stock
// from the instruction or its first operation.
func ends(m machine.Machine, p *toolpath.Path, in *Instruction) (*toolpath.Path, error) {
	if p == nil || p.Len() == 0 {
		return nil, nil
	}
	p = p.Clone()
	p.Resolve(in.Tool, in.Form)
	if len(in.Operations) > 0 {
		p.Resolve(in.Operations[0].Tool, in.Operations[0].Form)
	}
	if err := p.HasContext(); err != nil {
		return nil, err
	}
	if !p.Additions.Pending() {
		return p, nil
	}
	out, err := pipeline.Process(m, p)
	if err != nil {
		return nil, err
	}
	joined := p.CloneEmpty()
	joined.Additions = toolpath.NoAdditions()
	for _, q := range out {
		joined.Append(q.Points...)
	}
	return joined, nil
}

// write emits the whole program in document order.
func write(ctx context.Context, m machine.Machine, c *codegen.CodeInfo, in *Instruction, ops []processed, start, end *toolpath.Path) error {
	machine.WriteHeader(m, c, in.Name)
	var prev *toolpath.Path
	if start != nil {
		machine.WriteToolChange(m, c, start.Tool)
		if err := machine.WritePath(m, c, start); err != nil {
			return err
		}
		prev = start
	}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(op.paths) == 0 {
			continue
		}
		machine.WriteOperationStart(m, c, op.op.Name)
		for i, p := range op.paths {
			machine.WriteToolChange(m, c, p.Tool)
			if err := route.WriteTransition(m, c, prev, p, i == 0); err != nil {
				return err
			}
			if err := machine.WritePath(m, c, p); err != nil {
				return err
			}
			prev = p
		}
	}
	if end != nil {
		if err := route.WriteTransition(m, c, prev, end, false); err != nil {
			return err
		}
		if err := machine.WritePath(m, c, end); err != nil {
			return err
		}
	}
	machine.WriteFooter(m, c)
	return nil
}
