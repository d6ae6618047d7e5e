package toolpath_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/chisel/pkg/stock"
	"github.com/chazu/chisel/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testForm(t *testing.T) stock.Form {
	t.Helper()
	b, err := stock.NewBox(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10}, stock.Material{SafeDistance: 1})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func line(name string, n int) *toolpath.Path {
	p := toolpath.NewPath(name, nil, nil)
	for i := 0; i < n; i++ {
		p.Append(toolpath.NewPoint(v3.Vec{X: float64(i)}, v3.Vec{Z: 1}))
	}
	return p
}

// ---------------------------------------------------------------------------
// Tool defaults
// ---------------------------------------------------------------------------

func TestToolUnsetValues(t *testing.T) {
	tl := toolpath.NewTool("end mill", 1, toolpath.ShapeSquare, 6)
	if !math.IsInf(tl.EffectiveCutDepth(), 1) {
		t.Errorf("unset cut depth = %v, want +Inf", tl.EffectiveCutDepth())
	}
	if tl.EffectiveFinishDepth() != 0 {
		t.Errorf("unset finish depth = %v, want 0", tl.EffectiveFinishDepth())
	}
	if tl.EffectiveInsertWidth() != 6 {
		t.Errorf("unset insert width = %v, want the tool width", tl.EffectiveInsertWidth())
	}
	tl.CutDepth = 2
	if tl.EffectiveCutDepth() != 2 {
		t.Errorf("cut depth = %v, want 2", tl.EffectiveCutDepth())
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		in      string
		want    toolpath.Shape
		wantErr bool
	}{
		{"ball", toolpath.ShapeBall, false},
		{"Square", toolpath.ShapeSquare, false},
		{"flat", toolpath.ShapeSquare, false},
		{"v", toolpath.ShapeV, false},
		{"drill", toolpath.ShapeOther, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := toolpath.ParseShape(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("shape = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Points and paths
// ---------------------------------------------------------------------------

func TestPointCloneDoesNotAlias(t *testing.T) {
	p := toolpath.NewPoint(v3.Vec{}, v3.Vec{})
	p.AddWarning("first")
	c := p.Clone()
	c.AddWarning("second")
	c.Warnings[0] = "changed"
	if len(p.Warnings) != 1 || p.Warnings[0] != "first" {
		t.Errorf("original warnings mutated: %v", p.Warnings)
	}
	if p.Dir.Z != 1 {
		t.Errorf("zero direction should default to +Z, got %v", p.Dir)
	}
}

func TestPathCloneDoesNotAlias(t *testing.T) {
	p := line("a", 3)
	p.Additions.Onion = []float64{0.5}
	c := p.Clone()
	c.Points[0].Pos = v3.Vec{X: 99}
	c.Additions.Onion[0] = 2
	if p.Points[0].Pos.X != 0 {
		t.Error("clone shares points with the original")
	}
	if p.Additions.Onion[0] != 0.5 {
		t.Error("clone shares onion heights with the original")
	}
}

func TestReady(t *testing.T) {
	form := testForm(t)
	tool := toolpath.NewTool("t", 1, toolpath.ShapeBall, 3)

	p := line("a", 2)
	var missing *toolpath.MissingContextError
	if err := p.Ready(); !errors.As(err, &missing) || missing.Missing != "tool" {
		t.Fatalf("Ready() = %v, want missing tool", err)
	}

	p.Resolve(tool, form)
	p.Additions.StepDown = true
	var pending *toolpath.UnprocessedAdditionsError
	if err := p.Ready(); !errors.As(err, &pending) {
		t.Fatalf("Ready() = %v, want unprocessed additions", err)
	}

	p.Additions = toolpath.NoAdditions()
	if err := p.Ready(); err != nil {
		t.Errorf("Ready() = %v, want nil", err)
	}
}

func TestOperationResolve(t *testing.T) {
	form := testForm(t)
	tool := toolpath.NewTool("t", 1, toolpath.ShapeBall, 3)
	own := toolpath.NewTool("own", 2, toolpath.ShapeSquare, 1)

	a, b := line("a", 2), line("b", 2)
	b.Tool = own
	op := &toolpath.Operation{Name: "pocket", Paths: []*toolpath.Path{a, b}, Form: form}
	if err := op.Resolve(tool, nil); err != nil {
		t.Fatal(err)
	}
	if a.Tool != tool || b.Tool != own {
		t.Error("resolve should only fill missing tools")
	}
	if a.Form != form {
		t.Error("resolve should fill the operation stock")
	}

	orphan := &toolpath.Operation{Paths: []*toolpath.Path{line("c", 1)}}
	if err := orphan.Resolve(tool, nil); err == nil {
		t.Error("expected missing stock error")
	}
}

func TestFlatAndClosed(t *testing.T) {
	p := line("a", 3)
	if !p.Flat() {
		t.Error("horizontal vertical-tool path should be flat")
	}
	p.Points[1].Pos.Z = 1
	if p.Flat() {
		t.Error("path with a Z change should not be flat")
	}

	sq := toolpath.NewPath("sq", nil, nil)
	for _, q := range []v3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {}} {
		sq.Append(toolpath.NewPoint(q, v3.Vec{Z: 1}))
	}
	if !sq.Closed(1e-9) {
		t.Error("square should be closed")
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	empty := toolpath.NewPath("empty", nil, nil)
	if errs := toolpath.Validate(empty); !toolpath.HasErrors(errs) {
		t.Error("empty path should fail validation")
	}

	bad := line("bad", 2)
	bad.Points[1].Pos.Y = math.NaN()
	errs := toolpath.Validate(bad)
	if !toolpath.HasErrors(errs) {
		t.Fatal("NaN position should fail validation")
	}
	if !strings.Contains(errs[0].Error(), "point 1") {
		t.Errorf("error %q should name the point", errs[0].Error())
	}

	good := line("good", 2)
	if errs := toolpath.Validate(good); len(errs) != 0 {
		t.Errorf("valid path reported %v", errs)
	}
}

func TestAdditionsPending(t *testing.T) {
	if toolpath.NoAdditions().Pending() {
		t.Error("NoAdditions should not be pending")
	}
	tests := []struct {
		name string
		set  func(*toolpath.Additions)
	}{
		{"insert", func(a *toolpath.Additions) { a.Insert = true }},
		{"step down", func(a *toolpath.Additions) { a.StepDown = true }},
		{"lead", func(a *toolpath.Additions) { a.Lead = -1 }},
		{"onion", func(a *toolpath.Additions) { a.Onion = []float64{0} }},
		{"offset", func(a *toolpath.Additions) { a.Offset = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := toolpath.NoAdditions()
			tt.set(&a)
			if !a.Pending() {
				t.Error("expected pending")
			}
		})
	}
}
