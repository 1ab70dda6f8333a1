// Package trimesh is a plain indexed triangle mesh: a vertex list and a
// list of index triples. It is the simplest of the representations the
// spatial index accepts and the exchange format of the loaders.
package trimesh

import (
	"fmt"

	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Vertices  []v3.Vec
	Triangles [][3]int
}

// New returns a mesh over the given arrays after checking every index.
func New(vertices []v3.Vec, triangles [][3]int) (*Mesh, error) {
	m := &Mesh{Vertices: vertices, Triangles: triangles}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Check reports the first triangle index that is out of range.
func (m *Mesh) Check() error {
	for i, t := range m.Triangles {
		for _, v := range t {
			if v < 0 || v >= len(m.Vertices) {
				return fmt.Errorf("trimesh: triangle %d: vertex index %d out of range [0,%d)", i, v, len(m.Vertices))
			}
		}
	}
	return nil
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int { return len(m.Vertices) }

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int { return len(m.Triangles) }

// Triangle returns the corner positions of triangle i.
func (m *Mesh) Triangle(i int) geom.Triangle {
	t := m.Triangles[i]
	return geom.Triangle{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// IsDegenerate reports whether triangle i repeats a vertex index or has
// coincident or collinear corners.
func (m *Mesh) IsDegenerate(i int) bool {
	t := m.Triangles[i]
	if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
		return true
	}
	return m.Triangle(i).IsDegenerate()
}

// BoundingBox returns the box of all vertices.
func (m *Mesh) BoundingBox() geom.BoundingBox {
	return geom.NewBox(m.Vertices...)
}

// FromDCEL triangulates every face of d. Vertex i of the result is the
// i-th live vertex of d in id order; the second return value maps each
// triangle back to the face it came from.
func FromDCEL(d *dcel.Mesh) (*Mesh, []dcel.FaceID) {
	dense := make(map[dcel.VertexID]int, d.NumVertices())
	m := &Mesh{Vertices: make([]v3.Vec, 0, d.NumVertices())}
	for v := range d.Vertices() {
		dense[v] = len(m.Vertices)
		m.Vertices = append(m.Vertices, d.Coord(v))
	}
	var faces []dcel.FaceID
	for f := range d.Faces() {
		for _, t := range d.Triangulation(f) {
			m.Triangles = append(m.Triangles, [3]int{dense[t[0]], dense[t[1]], dense[t[2]]})
			faces = append(faces, f)
		}
	}
	return m, faces
}

// ToDCEL builds a half-edge mesh with vertex i as id i and triangle j as
// face j.
func (m *Mesh) ToDCEL() (*dcel.Mesh, error) {
	faces := make([][]int, len(m.Triangles))
	for i, t := range m.Triangles {
		faces[i] = []int{t[0], t[1], t[2]}
	}
	d, err := dcel.FromVectors(m.Vertices, faces)
	if err != nil {
		return nil, fmt.Errorf("trimesh: %w", err)
	}
	d.UpdateNormals()
	return d, nil
}
