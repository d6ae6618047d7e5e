// Package tessellate walks a machining instruction and produces triangle
// meshes of the stock it cuts, using a geometry kernel. One mesh is
// produced per distinct stock form.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/chisel/pkg/emit"
	"github.com/chazu/chisel/pkg/kernel"
	"github.com/chazu/chisel/pkg/stock"
)

// Options select what is meshed.
type Options struct {
	// Bubble meshes each form grown by its safe distance instead of the
	// material itself.
	Bubble bool
	// Cells is the marching cubes resolution; zero picks the kernel default.
	Cells int
}

// ErrNoStock is returned for an instruction that never names a stock.
var ErrNoStock = errors.New("tessellate: instruction has no stock")

// Forms returns every distinct stock form in the instruction, in the order
// first seen: the instruction default, then each operation and path, then
// the start and end paths.
func Forms(in *emit.Instruction) []stock.Form {
	if in == nil {
		return nil
	}
	var out []stock.Form
	seen := map[stock.Form]bool{}
	add := func(f stock.Form) {
		if f == nil || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}
	add(in.Form)
	for _, op := range in.Operations {
		add(op.Form)
		for _, p := range op.Paths {
			add(p.Form)
		}
	}
	if in.Start != nil {
		add(in.Start.Form)
	}
	if in.End != nil {
		add(in.End.Form)
	}
	return out
}

// Tessellate produces one mesh per distinct stock form. The instruction is
// never mutated.
func Tessellate(in *emit.Instruction, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, f := range Forms(in) {
		s, err := solid(k, f, opts.Bubble)
		if err != nil {
			return nil, err
		}
		mesh, err := k.ToMesh(s, opts.Cells)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", stock.Describe(f), err)
		}
		mesh.Name = stock.Describe(f)
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Solid unions every stock form of the instruction into one solid, for
// export.
func Solid(in *emit.Instruction, k kernel.Kernel, opts Options) (kernel.Solid, error) {
	var out kernel.Solid
	for _, f := range Forms(in) {
		s, err := solid(k, f, opts.Bubble)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = s
		} else {
			out = k.Union(out, s)
		}
	}
	if out == nil {
		return nil, ErrNoStock
	}
	return out, nil
}

func solid(k kernel.Kernel, f stock.Form, bubble bool) (kernel.Solid, error) {
	var (
		s   kernel.Solid
		err error
	)
	if bubble {
		s, err = k.Bubble(f)
	} else {
		s, err = k.Stock(f)
	}
	if err != nil {
		return nil, fmt.Errorf("tessellate: %s: %w", stock.Describe(f), err)
	}
	return s, nil
}
