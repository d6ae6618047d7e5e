package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func evaluate(t *testing.T, source string) *EvalResult {
	t.Helper()
	res, err := NewEngine(nil).Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	return res
}

func TestEvaluateEmptyString(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		res := evaluate(t, src)
		if len(res.Errors) > 0 {
			t.Fatalf("unexpected eval errors: %v", res.Errors)
		}
		if res.Instruction != nil {
			t.Errorf("expected no instruction for %q", src)
		}
	}
}

func TestEvaluateWithoutInstruction(t *testing.T) {
	res := evaluate(t, "(def x 10)\n(+ x 2)")
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "no instruction") {
		t.Fatalf("errors = %v, want a missing instruction error", res.Errors)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	// Unmatched paren is a parse error.
	res := evaluate(t, "(+ 1 2")
	if res.Instruction != nil {
		t.Fatal("expected no instruction on syntax error")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if res.Errors[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	res := evaluate(t, "(+ 1 undefined-symbol)")
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	res := evaluate(t, "(+ 1 2)\n(+ 3")
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one eval error")
	}
	// Line info depends on the zygomys message format; only the message is
	// guaranteed.
	e := res.Errors[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q, want line and message", s)
	}

	e2 := EvalError{Message: "no location"}
	if strings.Contains(e2.Error(), "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", e2.Error())
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// Driving a real runaway job through zygomys is slow and flaky, so the
	// timeout plumbing is tested with a channel that never sends.
	ctx, cancel := context.WithTimeoutCause(context.Background(), 20*time.Millisecond, ErrTimeout)
	defer cancel()
	ch := make(chan evalResult)

	_, err := await(ctx, ch, 1, func() uint64 { return 1 })
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(nil).EvaluateContext(ctx, `(def x 1)`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	ch := make(chan evalResult, 1)
	ch <- evalResult{res: &EvalResult{}}

	_, err := await(context.Background(), ch, 1, func() uint64 { return 2 })
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad tool", 3, "bad tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
