package dcel

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ToVectors flattens the mesh into a coordinate list and per-face index
// lists, renumbering live vertices densely in id order. The optional maps
// receive the dense index of each vertex and face; pass nil to skip them.
func (m *Mesh) ToVectors(vertexIndex map[VertexID]int, faceIndex map[FaceID]int) ([]v3.Vec, [][]int) {
	dense := make(map[VertexID]int, m.NumVertices())
	coords := make([]v3.Vec, 0, m.NumVertices())
	for v := range m.Vertices() {
		dense[v] = len(coords)
		if vertexIndex != nil {
			vertexIndex[v] = len(coords)
		}
		coords = append(coords, m.vertex(v).Coord)
	}

	faces := make([][]int, 0, m.NumFaces())
	for f := range m.Faces() {
		if faceIndex != nil {
			faceIndex[f] = len(faces)
		}
		var idx []int
		for v := range m.FaceVertices(f) {
			idx = append(idx, dense[v])
		}
		faces = append(faces, idx)
	}
	return coords, faces
}

// FromVectors builds a mesh from a coordinate list and per-face index
// lists. Vertex i gets id i and face j gets id j.
func FromVectors(coords []v3.Vec, faces [][]int) (*Mesh, error) {
	m := New()
	for _, p := range coords {
		m.AddVertex(p)
	}
	for j, idx := range faces {
		vs := make([]VertexID, len(idx))
		for k, i := range idx {
			if i < 0 || i >= len(coords) {
				return nil, fmt.Errorf("dcel: face %d: vertex index %d out of range", j, i)
			}
			vs[k] = VertexID(i)
		}
		if _, err := m.AddFace(vs...); err != nil {
			return nil, fmt.Errorf("dcel: face %d: %w", j, err)
		}
	}
	return m, nil
}
