// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Solids are tessellated with
// marching cubes and the triangle soup is welded into an indexed mesh.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/facet/pkg/geom"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/meshio"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// weldFraction is the weld tolerance as a fraction of one marching cell.
const weldFraction = 1e-3

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{cells: defaultMeshCells}
}

// NewWithResolution returns a kernel tessellating with the given number of
// marching cubes cells along the longest axis.
func NewWithResolution(cells int) *SdfxKernel {
	if cells < 2 {
		cells = 2
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions centered on the origin, the
// same placement dcel.NewCube uses.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

// Cylinder creates a cylinder with the given height and radius.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to an indexed triangle mesh using marching cubes.
// Coincident corners of the soup are welded; vertex normals are the
// normalized sum of the incident triangle normals.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)
	bb := geom.FromBox3(sdf3.BoundingBox())
	if !bb.IsValid() {
		return nil, fmt.Errorf("sdfx: solid has an empty bounding box")
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	soup := make([]geom.Triangle, len(triangles))
	for i, tri := range triangles {
		soup[i] = geom.Triangle{tri[0], tri[1], tri[2]}
	}
	cell := geom.Component(bb.Size(), bb.LongestAxis()) / float64(k.cells)
	welded := meshio.Weld(soup, cell*weldFraction)

	acc := make([]v3.Vec, welded.NumVertices())
	triNormals := make([]float32, 0, welded.NumTriangles()*3)
	indices := make([]uint32, 0, welded.NumTriangles()*3)
	for i, t := range welded.Triangles {
		n := welded.Triangle(i).Normal()
		triNormals = append(triNormals, float32(n.X), float32(n.Y), float32(n.Z))
		for _, v := range t {
			acc[v] = acc[v].Add(n)
			indices = append(indices, uint32(v))
		}
	}

	vertices := make([]float32, 0, len(acc)*3)
	normals := make([]float32, 0, len(acc)*3)
	for i, p := range welded.Vertices {
		n := geom.Normalize(acc[i])
		vertices = append(vertices, float32(p.X), float32(p.Y), float32(p.Z))
		normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
	}

	return &kernel.Mesh{
		Vertices:        vertices,
		Normals:         normals,
		Indices:         indices,
		TriangleNormals: triNormals,
	}, nil
}
