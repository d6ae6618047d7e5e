// Package engine evaluates chisel job files. A job is a zygomys Lisp
// program run in a sandbox; its builtins (machine, tool, box-stock, path,
// operation, instruction and friends) build the instruction handed to the
// compiler.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/chisel/pkg/dialect"
	"github.com/chazu/chisel/pkg/emit"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a note about the job that does not stop evaluation, such
// as projection rays that missed the stock.
type EvalWarning struct {
	Message string
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Instruction *emit.Instruction
	Errors      []EvalError
	Warnings    []EvalWarning
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment.
type Engine struct {
	generation atomic.Uint64
	dialects   *dialect.Registry
}

// NewEngine creates an engine resolving machine names against dialects.
func NewEngine(dialects *dialect.Registry) *Engine {
	return &Engine{dialects: dialects}
}

// Evaluate runs a job source and returns the instruction it defines.
//
// Return semantics:
//   - On success: result with an instruction and no errors, nil error
//   - On parse/eval failure: result with eval errors, nil error
//   - On fatal failure (timeout, panic, superseded): nil result, error
//
// Empty source succeeds with a nil instruction.
func (e *Engine) Evaluate(source string) (*EvalResult, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate giving up when ctx ends as well as after
// EvalTimeout, whichever is first.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*EvalResult, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	gen := e.generation.Add(1)
	ctx, cancel := context.WithTimeoutCause(ctx, EvalTimeout, ErrTimeout)
	defer cancel()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, err := e.evaluate(source)
		ch <- evalResult{res: res, err: err}
	}()

	return await(ctx, ch, gen, e.generation.Load)
}

func (e *Engine) evaluate(source string) (*EvalResult, error) {
	if strings.TrimSpace(source) == "" {
		return &EvalResult{}, nil
	}
	reg := e.dialects
	if reg == nil {
		var err error
		if reg, err = dialect.NewRegistry(); err != nil {
			return nil, err
		}
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	st := &state{dialects: reg}
	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return &EvalResult{Errors: parseZygomysError(err)}, nil
	}
	if _, err := env.Run(); err != nil {
		return &EvalResult{Errors: parseZygomysError(err), Warnings: st.warnings}, nil
	}
	if st.instruction == nil {
		return &EvalResult{
			Errors:   []EvalError{{Message: "job defines no instruction"}},
			Warnings: st.warnings,
		}, nil
	}
	return &EvalResult{Instruction: st.instruction, Warnings: st.warnings}, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
