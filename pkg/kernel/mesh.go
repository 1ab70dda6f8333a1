package kernel

import (
	"fmt"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a flat indexed triangle mesh suitable for rendering.
// Vertices and Normals have 3 floats per vertex, Colors 4 bytes (RGBA) per
// vertex, Indices 3 uint32s per triangle. The per-triangle arrays are
// optional: TriangleNormals has 3 floats, TriangleColors 4 bytes and
// TriangleFaces one source face id per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Colors   []uint8   `json:"colors,omitempty"`
	Indices  []uint32  `json:"indices"` // [i0,i1,i2, ...] triangles

	TriangleNormals []float32 `json:"triangleNormals,omitempty"`
	TriangleColors  []uint8   `json:"triangleColors,omitempty"`
	TriangleFaces   []int32   `json:"triangleFaces,omitempty"`

	Name string `json:"name"` // which solid or file this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) [3]int {
	return [3]int{int(m.Indices[3*i]), int(m.Indices[3*i+1]), int(m.Indices[3*i+2])}
}

// TrianglePoints returns the corner positions of triangle i.
func (m *Mesh) TrianglePoints(i int) geom.Triangle {
	t := m.Triangle(i)
	return geom.Triangle{m.Vertex(t[0]), m.Vertex(t[1]), m.Vertex(t[2])}
}

// BoundingBox returns the box of all vertices, invalid for an empty mesh.
func (m *Mesh) BoundingBox() geom.BoundingBox {
	b := geom.EmptyBox()
	for i := range m.VertexCount() {
		b = b.Include(m.Vertex(i))
	}
	return b
}

// Validate checks the array lengths and that every index refers to a vertex.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("kernel: mesh %q: %d vertex floats is not a multiple of 3", m.Name, len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("kernel: mesh %q: %d indices is not a multiple of 3", m.Name, len(m.Indices))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("kernel: mesh %q: %d normal floats for %d vertices", m.Name, len(m.Normals), m.VertexCount())
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("kernel: mesh %q: index %d at %d out of range", m.Name, idx, i)
		}
	}
	return nil
}
