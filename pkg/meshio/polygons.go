// Package meshio loads and saves meshes as flat vertex and face arrays.
//
// Wavefront OBJ is read and written with polygonal faces, optional vertex
// normals, vertex colors (the common "v x y z r g b" extension) and face
// colors carried in "usemtl #rrggbb" groups. Binary STL is read and
// written as triangle soup; Weld turns soup back into an indexed mesh.
package meshio

import (
	"fmt"
	"image/color"

	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/trimesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Polygons is the flat exchange form of a polygon mesh. Normals and Colors
// are per vertex and FaceColors per face; each is either empty or as long
// as the array it annotates.
type Polygons struct {
	Vertices   []v3.Vec
	Faces      [][]int
	Normals    []v3.Vec
	Colors     []color.RGBA
	FaceColors []color.RGBA
}

// Check verifies face indices and attribute lengths.
func (p *Polygons) Check() error {
	for j, f := range p.Faces {
		if len(f) < 3 {
			return fmt.Errorf("meshio: face %d has %d vertices", j, len(f))
		}
		for _, i := range f {
			if i < 0 || i >= len(p.Vertices) {
				return fmt.Errorf("meshio: face %d: vertex index %d out of range", j, i)
			}
		}
	}
	if n := len(p.Normals); n != 0 && n != len(p.Vertices) {
		return fmt.Errorf("meshio: %d normals for %d vertices", n, len(p.Vertices))
	}
	if n := len(p.Colors); n != 0 && n != len(p.Vertices) {
		return fmt.Errorf("meshio: %d colors for %d vertices", n, len(p.Vertices))
	}
	if n := len(p.FaceColors); n != 0 && n != len(p.Faces) {
		return fmt.Errorf("meshio: %d face colors for %d faces", n, len(p.Faces))
	}
	return nil
}

// NumTriangles returns how many triangles the faces split into.
func (p *Polygons) NumTriangles() int {
	n := 0
	for _, f := range p.Faces {
		n += len(f) - 2
	}
	return n
}

// FromDCEL flattens a half-edge mesh with its normals and colors.
func FromDCEL(m *dcel.Mesh) *Polygons {
	vi := make(map[dcel.VertexID]int, m.NumVertices())
	fi := make(map[dcel.FaceID]int, m.NumFaces())
	coords, faces := m.ToVectors(vi, fi)
	p := &Polygons{
		Vertices:   coords,
		Faces:      faces,
		Normals:    make([]v3.Vec, len(coords)),
		Colors:     make([]color.RGBA, len(coords)),
		FaceColors: make([]color.RGBA, len(faces)),
	}
	for v, i := range vi {
		vx := m.Vertex(v)
		p.Normals[i] = vx.Normal
		p.Colors[i] = vx.Color
	}
	for f, j := range fi {
		p.FaceColors[j] = m.Face(f).Color
	}
	return p
}

// ToDCEL builds a half-edge mesh, applying colors and computing normals.
// Vertex i gets id i and face j gets id j.
func (p *Polygons) ToDCEL() (*dcel.Mesh, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	m, err := dcel.FromVectors(p.Vertices, p.Faces)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	for i, c := range p.Colors {
		m.SetVertexColor(dcel.VertexID(i), c)
	}
	for j, c := range p.FaceColors {
		m.SetFaceColor(dcel.FaceID(j), c)
	}
	m.UpdateNormals()
	return m, nil
}

// ToTriMesh triangulates every face by ear clipping. The second return
// value maps each triangle to its face index.
func (p *Polygons) ToTriMesh() (*trimesh.Mesh, []int, error) {
	if err := p.Check(); err != nil {
		return nil, nil, err
	}
	m := &trimesh.Mesh{Vertices: p.Vertices, Triangles: make([][3]int, 0, p.NumTriangles())}
	owners := make([]int, 0, p.NumTriangles())
	for j, f := range p.Faces {
		pts := make([]v3.Vec, len(f))
		for k, i := range f {
			pts[k] = p.Vertices[i]
		}
		for _, t := range dcel.EarClip(pts) {
			m.Triangles = append(m.Triangles, [3]int{f[t[0]], f[t[1]], f[t[2]]})
			owners = append(owners, j)
		}
	}
	return m, owners, nil
}

// FromTriMesh wraps an indexed triangle mesh.
func FromTriMesh(m *trimesh.Mesh) *Polygons {
	faces := make([][]int, len(m.Triangles))
	for i, t := range m.Triangles {
		faces[i] = []int{t[0], t[1], t[2]}
	}
	return &Polygons{Vertices: m.Vertices, Faces: faces}
}
