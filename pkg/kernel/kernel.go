// Package kernel defines the solid geometry interface used to preview
// stock. Implementations turn stock forms into solids and solids into
// triangle meshes or STL files.
package kernel

import "github.com/chazu/chisel/pkg/stock"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and meshes stock solids.
type Kernel interface {
	// Stock returns the solid occupied by f.
	Stock(f stock.Form) (Solid, error)
	// Bubble returns f grown by its safe distance: the region rapid moves
	// keep out of.
	Bubble(f stock.Form) (Solid, error)

	Union(a, b Solid) Solid

	// ToMesh tessellates s with cells marching cubes along its longest side.
	ToMesh(s Solid, cells int) (*Mesh, error)
	// SaveSTL writes s to path as an STL file.
	SaveSTL(s Solid, path string, cells int) error
}
