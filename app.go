package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/chisel/pkg/dialect"
	"github.com/chazu/chisel/pkg/emit"
	"github.com/chazu/chisel/pkg/engine"
	"github.com/chazu/chisel/pkg/kernel"
	"github.com/chazu/chisel/pkg/kernel/sdfx"
	"github.com/chazu/chisel/pkg/logging"
	"github.com/chazu/chisel/pkg/machine"
	"github.com/chazu/chisel/pkg/tessellate"
	"github.com/chazu/chisel/pkg/toolpath"
)

// App ties the job engine, dialect table and geometry kernel together for
// the commands.
type App struct {
	cfg      Config
	dialects *dialect.Registry
	engine   *engine.Engine
	kernel   kernel.Kernel

	// meshCells is the stock mesh resolution; zero uses the kernel default.
	meshCells int
}

// JobError reports the errors found while evaluating a job source.
type JobError struct {
	Errors []engine.EvalError
}

func (e *JobError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "job: " + strings.Join(msgs, "; ")
}

// CompileResult is the output of compiling one job.
type CompileResult struct {
	*emit.Result
	Instruction *emit.Instruction
	Notes       []string // evaluation warnings
}

// NewApp builds an app from cfg. Dialect tables in cfg.DialectDir are
// loaded over the built-in ones.
func NewApp(cfg Config) (*App, error) {
	reg, err := dialect.NewRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.DialectDir != "" {
		if err := reg.LoadDir(cfg.DialectDir); err != nil {
			return nil, err
		}
	}
	return &App{
		cfg:      cfg,
		dialects: reg,
		engine:   engine.NewEngine(reg),
		kernel:   sdfx.New(),
	}, nil
}

// Dialects lists the machine names known to the app.
func (a *App) Dialects() []string { return a.dialects.Names() }

// Evaluate runs source and returns its instruction, with the configured
// machine override applied.
func (a *App) Evaluate(source string) (*emit.Instruction, []string, error) {
	return a.evaluate(context.Background(), source)
}

func (a *App) evaluate(ctx context.Context, source string) (*emit.Instruction, []string, error) {
	res, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	notes := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		notes[i] = w.Message
	}
	if len(res.Errors) > 0 {
		return nil, notes, &JobError{Errors: res.Errors}
	}
	if res.Instruction == nil {
		return nil, notes, &JobError{Errors: []engine.EvalError{{Message: "empty job"}}}
	}
	in := res.Instruction
	if a.cfg.Machine != "" {
		m, err := a.machine(a.cfg.Machine)
		if err != nil {
			return nil, notes, err
		}
		logging.Logger().Debug("machine override", "job", machine.Name(in.Machine), "using", a.cfg.Machine)
		in.Machine = m
	}
	return in, notes, nil
}

// Compile evaluates source and compiles the instruction it defines.
func (a *App) Compile(ctx context.Context, source string) (*CompileResult, error) {
	in, notes, err := a.evaluate(ctx, source)
	if err != nil {
		return nil, err
	}
	res, err := emit.Compile(ctx, in, emit.Options{Ignore: a.cfg.Ignore})
	if err != nil {
		return nil, err
	}
	logging.Logger().Info("compiled",
		"job", in.Name,
		"machine", machine.Name(in.Machine),
		"bytes", len(res.Code),
		"errors", len(res.Errors),
		"warnings", len(res.Warnings))
	return &CompileResult{Result: res, Instruction: in, Notes: notes}, nil
}

// Meshes tessellates every stock form named by source.
func (a *App) Meshes(source string, bubble bool) ([]*kernel.Mesh, error) {
	in, _, err := a.Evaluate(source)
	if err != nil {
		return nil, err
	}
	return tessellate.Tessellate(in, a.kernel, tessellate.Options{Bubble: bubble, Cells: a.meshCells})
}

// ExportSTL writes the union of the stock forms named by source to path.
func (a *App) ExportSTL(source, path string, bubble bool) error {
	in, _, err := a.Evaluate(source)
	if err != nil {
		return err
	}
	s, err := tessellate.Solid(in, a.kernel, tessellate.Options{Bubble: bubble})
	if err != nil {
		return err
	}
	if err := a.kernel.SaveSTL(s, path, a.meshCells); err != nil {
		return fmt.Errorf("stl: %w", err)
	}
	return nil
}

// Read parses code written for the named machine back into tool points.
// An empty name uses the configured machine.
func (a *App) Read(code, name string) (*toolpath.Path, error) {
	if name == "" {
		name = a.cfg.Machine
	}
	if name == "" {
		return nil, errors.New("read: no machine given")
	}
	m, err := a.machine(name)
	if err != nil {
		return nil, err
	}
	return machine.Read(m, code, nil)
}

func (a *App) machine(name string) (machine.Machine, error) {
	d, err := a.dialects.Get(name)
	if err != nil {
		return nil, err
	}
	return machine.New(d)
}
