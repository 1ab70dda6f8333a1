package aabb

import (
	"iter"

	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/geom"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/trimesh"
)

// Kind tags the mesh representation a tree was built from.
type Kind int

const (
	// KindDCEL trees come from a *dcel.Mesh; face ids are dcel.FaceID.
	KindDCEL Kind = iota
	// KindMesh trees come from a flat *kernel.Mesh; faces are triangle indices.
	KindMesh
	// KindTriMesh trees come from a *trimesh.Mesh; faces are triangle indices.
	KindTriMesh
)

func (k Kind) String() string {
	switch k {
	case KindDCEL:
		return "dcel"
	case KindMesh:
		return "mesh"
	case KindTriMesh:
		return "trimesh"
	default:
		return "unknown"
	}
}

// Primitive is one triangle of the index together with the source
// vertices at its corners and the source face it was cut from.
type Primitive struct {
	Points   geom.Triangle
	Vertices [3]int
	Face     int
}

// IsDegenerate reports whether the primitive repeats a source vertex or
// has coincident or collinear corners.
func (p Primitive) IsDegenerate() bool {
	v := p.Vertices
	return v[0] == v[1] || v[1] == v[2] || v[0] == v[2] || p.Points.IsDegenerate()
}

// Source is a triangulated mesh the tree can index.
type Source interface {
	Kind() Kind
	BoundingBox() geom.BoundingBox
	// Triangles yields every triangle of the mesh with its origin.
	Triangles() iter.Seq[Primitive]
}

type dcelSource struct{ m *dcel.Mesh }

// FromDCEL adapts a half-edge mesh; polygonal faces are triangulated.
func FromDCEL(m *dcel.Mesh) Source { return dcelSource{m} }

func (s dcelSource) Kind() Kind { return KindDCEL }

// BoundingBox computes the box of the live vertices without touching the
// mesh's cached box.
func (s dcelSource) BoundingBox() geom.BoundingBox {
	b := geom.EmptyBox()
	for v := range s.m.Vertices() {
		b = b.Include(s.m.Coord(v))
	}
	return b
}

func (s dcelSource) Triangles() iter.Seq[Primitive] {
	return func(yield func(Primitive) bool) {
		for f := range s.m.Faces() {
			for _, t := range s.m.Triangulation(f) {
				p := Primitive{
					Points:   s.m.FaceTriangle(t),
					Vertices: [3]int{int(t[0]), int(t[1]), int(t[2])},
					Face:     int(f),
				}
				if !yield(p) {
					return
				}
			}
		}
	}
}

type meshSource struct{ m *kernel.Mesh }

// FromMesh adapts a flat render mesh.
func FromMesh(m *kernel.Mesh) Source { return meshSource{m} }

func (s meshSource) Kind() Kind { return KindMesh }

func (s meshSource) BoundingBox() geom.BoundingBox { return s.m.BoundingBox() }

func (s meshSource) Triangles() iter.Seq[Primitive] {
	return func(yield func(Primitive) bool) {
		for i := range s.m.TriangleCount() {
			p := Primitive{Points: s.m.TrianglePoints(i), Vertices: s.m.Triangle(i), Face: i}
			if !yield(p) {
				return
			}
		}
	}
}

type triMeshSource struct{ m *trimesh.Mesh }

// FromTriMesh adapts an indexed triangle mesh.
func FromTriMesh(m *trimesh.Mesh) Source { return triMeshSource{m} }

func (s triMeshSource) Kind() Kind { return KindTriMesh }

func (s triMeshSource) BoundingBox() geom.BoundingBox { return s.m.BoundingBox() }

func (s triMeshSource) Triangles() iter.Seq[Primitive] {
	return func(yield func(Primitive) bool) {
		for i, t := range s.m.Triangles {
			if !yield(Primitive{Points: s.m.Triangle(i), Vertices: t, Face: i}) {
				return
			}
		}
	}
}
