package kernel

import (
	"testing"

	"github.com/chazu/chisel/pkg/stock"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{1, -2, 3, -4, 5, 0, 2, 2, -6}}
	min, max := m.Bounds()
	if min != [3]float32{-4, -2, -6} {
		t.Errorf("min = %v", min)
	}
	if max != [3]float32{2, 5, 3} {
		t.Errorf("max = %v", max)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel answers with the stock bounds and empty meshes.
type stubKernel struct{}

func (k *stubKernel) Stock(f stock.Form) (Solid, error) {
	lo, hi := stock.Bounds(f)
	return &stubSolid{minBB: [3]float64{lo.X, lo.Y, lo.Z}, maxBB: [3]float64{hi.X, hi.Y, hi.Z}}, nil
}

func (k *stubKernel) Bubble(f stock.Form) (Solid, error) { return k.Stock(f) }
func (k *stubKernel) Union(a, _ Solid) Solid              { return a }

func (k *stubKernel) ToMesh(_ Solid, _ int) (*Mesh, error) {
	return &Mesh{}, nil
}

func (k *stubKernel) SaveSTL(_ Solid, _ string, _ int) error { return nil }

var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelStockBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	b, err := stock.NewBox(v3.Vec{Z: 5}, v3.Vec{X: 10, Y: 20, Z: 10}, stock.Material{})
	if err != nil {
		t.Fatal(err)
	}
	s, err := k.Stock(b)
	if err != nil {
		t.Fatal(err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{-5, -10, 0} {
		t.Errorf("min = %v, want [-5 -10 0]", min)
	}
	if max != [3]float64{5, 10, 10} {
		t.Errorf("max = %v, want [5 10 10]", max)
	}
}
