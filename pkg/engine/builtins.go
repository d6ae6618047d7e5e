package engine

import (
	"context"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/chisel/pkg/dialect"
	"github.com/chazu/chisel/pkg/emit"
	"github.com/chazu/chisel/pkg/geom"
	"github.com/chazu/chisel/pkg/machine"
	"github.com/chazu/chisel/pkg/project"
	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
)

// state is what one evaluation builds up.
type state struct {
	dialects    *dialect.Registry
	instruction *emit.Instruction
	warnings    []EvalWarning
}

func (st *state) warn(format string, args ...any) {
	st.warnings = append(st.warnings, EvalWarning{Message: fmt.Sprintf(format, args...)})
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct{ vec v3.Vec }

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpMachine struct{ m machine.Machine }

func (s *sexpMachine) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(machine %q)", machine.Name(s.m))
}
func (s *sexpMachine) Type() *zygo.RegisteredType { return nil }

type sexpTool struct{ t *toolpath.Tool }

func (s *sexpTool) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(tool %q :number %d)", s.t.Name, s.t.Number)
}
func (s *sexpTool) Type() *zygo.RegisteredType { return nil }

type sexpForm struct{ f stock.Form }

func (s *sexpForm) SexpString(ps *zygo.PrintState) string {
	return "(" + stock.Describe(s.f) + ")"
}
func (s *sexpForm) Type() *zygo.RegisteredType { return nil }

type sexpPoint struct{ pt toolpath.Point }

func (s *sexpPoint) SexpString(ps *zygo.PrintState) string {
	p := s.pt.Pos
	return fmt.Sprintf("(pt (vec3 %g %g %g))", p.X, p.Y, p.Z)
}
func (s *sexpPoint) Type() *zygo.RegisteredType { return nil }

type sexpAdditions struct{ a toolpath.Additions }

func (s *sexpAdditions) SexpString(ps *zygo.PrintState) string { return "(additions)" }
func (s *sexpAdditions) Type() *zygo.RegisteredType            { return nil }

type sexpPath struct{ p *toolpath.Path }

func (s *sexpPath) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(path %q ; %d points)", s.p.Name, s.p.Len())
}
func (s *sexpPath) Type() *zygo.RegisteredType { return nil }

type sexpOperation struct{ op *toolpath.Operation }

func (s *sexpOperation) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(operation %q ; %d paths)", s.op.Name, len(s.op.Paths))
}
func (s *sexpOperation) Type() *zygo.RegisteredType { return nil }

type sexpInstruction struct{ in *emit.Instruction }

func (s *sexpInstruction) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(instruction %q)", s.in.Name)
}
func (s *sexpInstruction) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword values of job types
// ---------------------------------------------------------------------------

func (a kwArgs) getTool(key string, dst **toolpath.Tool) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	t, ok := v.(*sexpTool)
	if !ok {
		return fmt.Errorf("%s: %s: expected tool, got %s", a.form, key, v.SexpString(nil))
	}
	*dst = t.t
	return nil
}

func (a kwArgs) getForm(key string, dst *stock.Form) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, ok := v.(*sexpForm)
	if !ok {
		return fmt.Errorf("%s: %s: expected stock, got %s", a.form, key, v.SexpString(nil))
	}
	*dst = f.f
	return nil
}

func (a kwArgs) getAdditions(key string, dst *toolpath.Additions) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	ad, ok := v.(*sexpAdditions)
	if !ok {
		return fmt.Errorf("%s: %s: expected additions, got %s", a.form, key, v.SexpString(nil))
	}
	*dst = ad.a.Clone()
	return nil
}

func (a kwArgs) getPath(key string, dst **toolpath.Path) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	p, ok := v.(*sexpPath)
	if !ok {
		return fmt.Errorf("%s: %s: expected path, got %s", a.form, key, v.SexpString(nil))
	}
	*dst = p.p
	return nil
}

// material reads the clearance keywords shared by every stock form.
func (a kwArgs) material() (stock.Material, error) {
	var m stock.Material
	err := firstErr(
		a.getFloat("safe", &m.SafeDistance),
		a.getFloat("tolerance", &m.MaterialTolerance),
	)
	return m, err
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the job builtins into a zygomys environment.
// Builtins record the instruction on st.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *state) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (machine "pocketnc")
	// -----------------------------------------------------------------------
	env.AddFunction("machine", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("machine", args)
		dname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		d, err := st.dialects.Get(dname)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("machine: %w", err)
		}
		m, err := machine.New(d)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("machine: %w", err)
		}
		return &sexpMachine{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (tool "6mm flat" :number 3 :shape :square :width 6 :feed-cut 800
	//       :feed-plunge 200 :speed 12000 :cut-depth 2 :finish-depth 0.2)
	// -----------------------------------------------------------------------
	env.AddFunction("tool", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("tool", args)
		tname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		t := toolpath.NewTool(tname, 1, toolpath.ShapeSquare, 0)
		if v, ok := pa.kw["shape"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tool: shape: %w", err)
			}
			if t.Shape, err = toolpath.ParseShape(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("tool: %w", err)
			}
		}
		if err := firstErr(
			pa.getInt("number", &t.Number),
			pa.getFloat("width", &t.Width),
			pa.getFloat("speed", &t.Speed),
			pa.getFloat("feed-cut", &t.FeedCut),
			pa.getFloat("feed-plunge", &t.FeedPlunge),
			pa.getFloat("insert-width", &t.InsertWidth),
			pa.getFloat("length", &t.Length),
			pa.getFloat("cut-depth", &t.CutDepth),
			pa.getFloat("finish-depth", &t.FinishDepth),
			pa.getFloat("tolerance", &t.Tolerance),
			pa.getFloat("min-step", &t.MinStep),
		); err != nil {
			return zygo.SexpNull, err
		}
		if t.Width <= 0 {
			return zygo.SexpNull, fmt.Errorf("tool: %q needs a positive :width", tname)
		}
		return &sexpTool{t: t}, nil
	})

	// -----------------------------------------------------------------------
	// (box-stock :center (vec3 0 0 -5) :size (vec3 100 80 10) :safe 2)
	// -----------------------------------------------------------------------
	env.AddFunction("box_stock", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("box-stock", args)
		var center, size v3.Vec
		xAxis, yAxis := geom.XAxis, geom.YAxis
		if err := firstErr(
			pa.getVec("center", &center),
			pa.getVec("size", &size),
			pa.getVec("x-axis", &xAxis),
			pa.getVec("y-axis", &yAxis),
		); err != nil {
			return zygo.SexpNull, err
		}
		m, err := pa.material()
		if err != nil {
			return zygo.SexpNull, err
		}
		b, err := stock.NewOrientedBox(center, xAxis, yAxis, size, m)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box-stock: %w", err)
		}
		return &sexpForm{f: b}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder-stock :base (vec3 0 0 0) :axis (vec3 1 0 0) :height 80
	//                 :radius 20 :safe 2)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder_stock", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("cylinder-stock", args)
		var base v3.Vec
		axis := geom.ZAxis
		var height, radius float64
		if err := firstErr(
			pa.getVec("base", &base),
			pa.getVec("axis", &axis),
			pa.getFloat("height", &height),
			pa.getFloat("radius", &radius),
		); err != nil {
			return zygo.SexpNull, err
		}
		m, err := pa.material()
		if err != nil {
			return zygo.SexpNull, err
		}
		c, err := stock.NewCylinder(base, axis, height, radius, m)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder-stock: %w", err)
		}
		return &sexpForm{f: c}, nil
	})

	// -----------------------------------------------------------------------
	// (pt (vec3 0 0 5) :dir (vec3 0 0 1) :feed 300 :speed 10000 :pre "M08")
	// (pt 0 0 5)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("pt", args)
		var pos v3.Vec
		switch len(pa.positional) {
		case 1:
			v, err := toVec3(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pt: %w", err)
			}
			pos = v
		case 3:
			var c [3]float64
			for i, a := range pa.positional {
				f, err := toFloat64(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("pt: %c: %w", "xyz"[i], err)
				}
				c[i] = f
			}
			pos = v3.Vec{X: c[0], Y: c[1], Z: c[2]}
		default:
			return zygo.SexpNull, fmt.Errorf("pt requires a vec3 or three coordinates")
		}
		dir := geom.ZAxis
		if err := pa.getVec("dir", &dir); err != nil {
			return zygo.SexpNull, err
		}
		pt := toolpath.NewPoint(pos, dir)
		if err := firstErr(
			pa.getFloat("feed", &pt.Feed),
			pa.getFloat("speed", &pt.Speed),
			pa.getString("pre", &pt.PreCode),
			pa.getString("post", &pt.PostCode),
		); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["rapid"]; ok {
			if b, ok := v.(*zygo.SexpBool); ok && b.Val {
				pt.Feed = 0
			}
		}
		return &sexpPoint{pt: pt}, nil
	})

	// -----------------------------------------------------------------------
	// (additions :insert true :retract true :step-down true :lead 1.5
	//            :onion (list 0.5 0) :offset 1)
	// -----------------------------------------------------------------------
	env.AddFunction("additions", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("additions", args)
		a := toolpath.NoAdditions()
		if err := firstErr(
			pa.getBool("insert", &a.Insert),
			pa.getBool("retract", &a.Retract),
			pa.getBool("step-down", &a.StepDown),
			pa.getBool("drop-start", &a.DropStart),
			pa.getFloat("drop-middle", &a.DropMiddle),
			pa.getBool("drop-end", &a.DropEnd),
			pa.getBool("height-offset", &a.HeightOffset),
			pa.getFloat("lead", &a.Lead),
			pa.getFloat("offset", &a.Offset),
		); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["onion"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("additions: onion: %w", err)
			}
			for _, item := range items {
				h, err := toFloat64(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("additions: onion entry: %w", err)
				}
				a.Onion = append(a.Onion, h)
			}
		}
		return &sexpAdditions{a: a}, nil
	})

	// -----------------------------------------------------------------------
	// (path "contour" (pt 0 0 1) (pt 10 0 1) :tool t :stock s :additions a)
	// -----------------------------------------------------------------------
	env.AddFunction("path", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("path", args)
		pname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		p := toolpath.NewPath(pname, nil, nil)
		for i, item := range flatten(pa.positional[1:]) {
			pt, ok := item.(*sexpPoint)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("path %q: entry %d: expected pt, got %s", pname, i, item.SexpString(nil))
			}
			p.Append(pt.pt.Clone())
		}
		if err := pathOptions(pa, p); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpPath{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (project-path "surface" :stock s :dir (vec3 0 0 -1)
	//               :from (list (vec3 0 0 50) (vec3 1 0 50)) :standoff 1.5)
	// -----------------------------------------------------------------------
	env.AddFunction("project_path", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("project-path", args)
		pname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		var form stock.Form
		dir := v3.Vec{Z: -1}
		var standoff, feed float64 = 0, -1
		if err := firstErr(
			pa.getForm("stock", &form),
			pa.getVec("dir", &dir),
			pa.getFloat("standoff", &standoff),
			pa.getFloat("feed", &feed),
		); err != nil {
			return zygo.SexpNull, err
		}
		if form == nil {
			return zygo.SexpNull, fmt.Errorf("project-path %q requires :stock", pname)
		}
		from, ok := pa.kw["from"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("project-path %q requires :from", pname)
		}
		items, err := sexpListToSlice(from)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("project-path: from: %w", err)
		}
		rays := make([]project.Ray, 0, len(items))
		for _, item := range items {
			o, err := toVec3(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("project-path: from entry: %w", err)
			}
			rays = append(rays, project.Ray{Origin: o, Dir: dir})
		}

		res, err := project.Project(context.Background(), []stock.Form{form}, rays, project.Options{Standoff: standoff})
		if err != nil {
			return zygo.SexpNull, err
		}
		p, missed := project.Path(pname, res)
		if missed > 0 {
			st.warn("project-path %q: %d of %d rays missed the stock", pname, missed, len(rays))
		}
		p.Form = form
		for i := range p.Points {
			p.Points[i].Feed = feed
		}
		if err := pathOptions(pa, p); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpPath{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (operation "pocket" p1 p2 :tool t :stock s)
	// -----------------------------------------------------------------------
	env.AddFunction("operation", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("operation", args)
		oname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		op := &toolpath.Operation{Name: oname}
		for i, item := range flatten(pa.positional[1:]) {
			p, ok := item.(*sexpPath)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("operation %q: entry %d: expected path, got %s", oname, i, item.SexpString(nil))
			}
			op.Paths = append(op.Paths, p.p.Clone())
		}
		if err := firstErr(
			pa.getTool("tool", &op.Tool),
			pa.getForm("stock", &op.Form),
		); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpOperation{op: op}, nil
	})

	// -----------------------------------------------------------------------
	// (instruction "job" :machine m :tool t :stock s :start home op1 op2)
	// -----------------------------------------------------------------------
	env.AddFunction("instruction", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs("instruction", args)
		iname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, err
		}
		if st.instruction != nil {
			return zygo.SexpNull, fmt.Errorf("instruction %q: job already defines %q", iname, st.instruction.Name)
		}
		in := &emit.Instruction{Name: iname}
		mv, ok := pa.kw["machine"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("instruction %q requires :machine", iname)
		}
		m, ok := mv.(*sexpMachine)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("instruction: machine: expected machine, got %s", mv.SexpString(nil))
		}
		in.Machine = m.m
		if err := firstErr(
			pa.getTool("tool", &in.Tool),
			pa.getForm("stock", &in.Form),
			pa.getPath("start", &in.Start),
			pa.getPath("end", &in.End),
		); err != nil {
			return zygo.SexpNull, err
		}
		for i, item := range flatten(pa.positional[1:]) {
			op, ok := item.(*sexpOperation)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("instruction %q: entry %d: expected operation, got %s", iname, i, item.SexpString(nil))
			}
			in.Operations = append(in.Operations, op.op)
		}
		st.instruction = in
		return &sexpInstruction{in: in}, nil
	})
}

// pathOptions applies the keywords path and project-path share.
func pathOptions(pa kwArgs, p *toolpath.Path) error {
	return firstErr(
		pa.getTool("tool", &p.Tool),
		pa.getForm("stock", &p.Form),
		pa.getAdditions("additions", &p.Additions),
		pa.getString("pre", &p.PreCode),
		pa.getString("post", &p.PostCode),
	)
}
