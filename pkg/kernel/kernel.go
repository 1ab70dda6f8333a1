// Package kernel defines the abstract solid-modeling kernel interface and
// the flat triangle mesh shared by kernels, the renderer contract and the
// spatial index. Implementations (sdfx) build solids and tessellate them
// behind this interface, so mesh generation does not depend on a backend.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Sphere(radius float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output: an indexed mesh with shared vertices.
	ToMesh(s Solid) (*Mesh, error)
}
