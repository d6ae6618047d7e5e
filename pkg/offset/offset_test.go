package offset_test

import (
	"math"
	"testing"

	"github.com/chazu/chisel/pkg/offset"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

func square(size float64) []v2.Vec {
	return []v2.Vec{{X: 0, Y: 0}, {X: size, Y: 0}, {X: size, Y: size}, {X: 0, Y: size}, {X: 0, Y: 0}}
}

func reversed(pts []v2.Vec) []v2.Vec {
	out := make([]v2.Vec, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// minDistance returns the smallest distance from p to the segments of pts.
func minDistance(p v2.Vec, pts []v2.Vec) float64 {
	best := math.Inf(1)
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		d := b.Sub(a)
		t := 0.0
		if l2 := d.Dot(d); l2 > 0 {
			t = math.Max(0, math.Min(1, p.Sub(a).Dot(d)/l2))
		}
		best = math.Min(best, p.Sub(a.Add(d.MulScalar(t))).Length())
	}
	return best
}

func TestZeroOffsetIsIdentity(t *testing.T) {
	in := square(10)
	loops := offset.Polyline(in, true, 0, 0.01)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	out := loops[0]
	if len(out) != len(in) {
		t.Fatalf("got %d points, want %d: %v", len(out), len(in), out)
	}
	for i := range in {
		if out[i].Sub(in[i]).Length() > 1e-6 {
			t.Errorf("point %d = %v, want %v", i, out[i], in[i])
		}
	}

	line := []v2.Vec{{X: 0, Y: 0}, {X: 3, Y: 1}, {X: 5, Y: -2}}
	got := offset.Polyline(line, false, 0, 0.01)
	if len(got) != 1 || len(got[0]) != len(line) {
		t.Fatalf("open identity has %d points, want %d", len(got), len(line))
	}
}

func TestClosedGrowAndShrink(t *testing.T) {
	tests := []struct {
		name  string
		in    []v2.Vec
		delta float64
		area  float64
		tol   float64
	}{
		{"ccw grow", square(10), 1, 100 + 40 + math.Pi, 0.1},
		{"ccw shrink", square(10), -1, 64, 1e-6},
		{"cw grow", reversed(square(10)), 1, -(100 + 40 + math.Pi), 0.1},
		{"cw shrink", reversed(square(10)), -2, -36, 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loops := offset.Polyline(tt.in, true, tt.delta, 0.01)
			if len(loops) != 1 {
				t.Fatalf("got %d loops, want 1", len(loops))
			}
			out := loops[0]
			if out[0] != out[len(out)-1] {
				t.Error("result is not closed")
			}
			if a := offset.Area(out); math.Abs(a-tt.area) > tt.tol {
				t.Errorf("area = %v, want %v", a, tt.area)
			}
			for _, p := range out {
				if d := minDistance(p, tt.in); math.Abs(d-math.Abs(tt.delta)) > 0.011 {
					t.Errorf("point %v is %v from the input, want %v", p, d, math.Abs(tt.delta))
				}
			}
		})
	}
}

func TestShrinkPastCollapseIsNil(t *testing.T) {
	for _, d := range []float64{-5, -6, -20} {
		if out := offset.Polyline(square(10), true, d, 0.01); out != nil {
			t.Errorf("delta %v: got %v, want nil", d, out)
		}
	}
}

func TestOpenPathOutline(t *testing.T) {
	in := []v2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}}
	loops := offset.Polyline(in, false, 1, 0.001)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	out := loops[0]
	if out[0] != out[len(out)-1] {
		t.Error("outline is not closed")
	}
	if a := math.Abs(offset.Area(out)); math.Abs(a-(20+math.Pi)) > 0.05 {
		t.Errorf("outline area = %v, want about %v", a, 20+math.Pi)
	}
	for _, p := range out {
		if d := minDistance(p, in); math.Abs(d-1) > 0.002 {
			t.Errorf("point %v is %v from the segment, want 1", p, d)
		}
	}
	if d := out[0].Sub(in[0]).Length(); d > 1.001 {
		t.Errorf("outline starts at %v, want next to the input start", out[0])
	}
}

func TestSinglePointBecomesCircle(t *testing.T) {
	loops := offset.Polyline([]v2.Vec{{X: 2, Y: 3}}, false, 0.5, 0.001)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	out := loops[0]
	if len(out) < 8 {
		t.Fatalf("got %d points, want a sampled circle", len(out))
	}
	for _, p := range out {
		if d := p.Sub(v2.Vec{X: 2, Y: 3}).Length(); math.Abs(d-0.5) > 1e-6 {
			t.Errorf("point %v is %v from the centre", p, d)
		}
	}
}

func TestDegenerateInput(t *testing.T) {
	if offset.Polyline(nil, true, 1, 0.01) != nil {
		t.Error("nil input should give nil")
	}
	flat := []v2.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 0}}
	if offset.Polyline(flat, true, 1, 0.01) != nil {
		t.Error("a closed polyline with no area should give nil")
	}
}

// checkLoops fails unless every vertex of every loop sits delta from in.
func checkLoops(t *testing.T, loops [][]v2.Vec, in []v2.Vec, delta float64) {
	t.Helper()
	for i, l := range loops {
		if l[0] != l[len(l)-1] {
			t.Errorf("loop %d is not closed", i)
		}
		for _, p := range l {
			if d := minDistance(p, in); math.Abs(d-delta) > 0.011 {
				t.Errorf("loop %d point %v is %v from the input, want %v", i, p, d, delta)
			}
		}
	}
}

func TestGrowFillsNarrowSlot(t *testing.T) {
	// A 1 wide notch cut 5 deep into the top edge closes up at radius 1.
	in := []v2.Vec{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 5.5, Y: 10}, {X: 5.5, Y: 5},
		{X: 4.5, Y: 5}, {X: 4.5, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}
	loops := offset.Polyline(in, true, 1, 0.01)
	if len(loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(loops))
	}
	checkLoops(t, loops, in, 1)
	if a := offset.Area(loops[0]); a < 142 || a > 100+40+math.Pi {
		t.Errorf("area = %v, want the filled square grown by 1", a)
	}
}

func TestShrinkSplitsAtNeck(t *testing.T) {
	// Two 10x10 squares joined by a 1 wide bridge.
	in := []v2.Vec{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 4.5}, {X: 15, Y: 4.5}, {X: 15, Y: 0},
		{X: 25, Y: 0}, {X: 25, Y: 10}, {X: 15, Y: 10}, {X: 15, Y: 5.5}, {X: 10, Y: 5.5},
		{X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}
	loops := offset.Polyline(in, true, -1, 0.01)
	if len(loops) != 2 {
		t.Fatalf("got %d loops, want 2", len(loops))
	}
	checkLoops(t, loops, in, 1)
	for i, l := range loops {
		if a := offset.Area(l); a < 64 || a > 64.1 {
			t.Errorf("loop %d area = %v, want about 64", i, a)
		}
	}
	if loops[0][0].X > 10 {
		t.Errorf("first loop starts at %v, want the square holding the input start", loops[0][0])
	}
}

func TestGrowTrapsHole(t *testing.T) {
	// A cup whose 1 wide mouth closes at radius 1, leaving its 6x6 cavity
	// as a hole.
	in := []v2.Vec{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 5.5, Y: 10}, {X: 5.5, Y: 8},
		{X: 8, Y: 8}, {X: 8, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 8}, {X: 4.5, Y: 8},
		{X: 4.5, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}
	for _, tt := range []struct {
		name string
		in   []v2.Vec
		sign float64
	}{
		{"ccw", in, 1},
		{"cw", reversed(in), -1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			loops := offset.Polyline(tt.in, true, 1, 0.01)
			if len(loops) != 2 {
				t.Fatalf("got %d loops, want outline and hole", len(loops))
			}
			checkLoops(t, loops, tt.in, 1)
			if a := tt.sign * offset.Area(loops[0]); a < 142 {
				t.Errorf("outline area = %v", offset.Area(loops[0]))
			}
			if a := tt.sign * offset.Area(loops[1]); a > -16 || a < -16.1 {
				t.Errorf("hole area = %v, want about 16 running the other way", offset.Area(loops[1]))
			}
		})
	}
}

func TestOpenOutlineKeepsHole(t *testing.T) {
	// A nearly closed open path outlines to a ring.
	in := []v2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0.5}}
	loops := offset.Polyline(in, false, 1, 0.01)
	if len(loops) != 2 {
		t.Fatalf("got %d loops, want 2", len(loops))
	}
	checkLoops(t, loops, in, 1)
	if a, h := offset.Area(loops[0]), offset.Area(loops[1]); a > -143 || math.Abs(h-64) > 0.01 {
		t.Errorf("areas = %v, %v, want an outline around a 8x8 hole", a, h)
	}
}
