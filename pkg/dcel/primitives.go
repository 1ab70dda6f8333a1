package dcel

import (
	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// boxFaces lists the six quads of a box with outward counter-clockwise
// winding, indexing corners as x + 2y + 4z bits of (max?1:0).
var boxFaces = [6][4]int{
	{0, 2, 3, 1}, // z min
	{4, 5, 7, 6}, // z max
	{0, 1, 5, 4}, // y min
	{3, 2, 6, 7}, // y max
	{0, 4, 6, 2}, // x min
	{1, 3, 7, 5}, // x max
}

// NewBox returns a closed mesh of the box b. With triangles set every quad
// is split along a diagonal, giving 12 triangular faces; otherwise the mesh
// has 6 quads. Normals are computed.
func NewBox(b geom.BoundingBox, triangles bool) *Mesh {
	m := New()
	var vs [8]VertexID
	for i := range vs {
		p := b.Min
		if i&1 != 0 {
			p.X = b.Max.X
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		vs[i] = m.AddVertex(p)
	}
	for _, q := range boxFaces {
		if triangles {
			mustAddFace(m, vs[q[0]], vs[q[1]], vs[q[2]])
			mustAddFace(m, vs[q[0]], vs[q[2]], vs[q[3]])
		} else {
			mustAddFace(m, vs[q[0]], vs[q[1]], vs[q[2]], vs[q[3]])
		}
	}
	m.UpdateNormals()
	return m
}

// NewCube returns the triangulated cube of the given edge length centered
// on c.
func NewCube(c v3.Vec, size float64) *Mesh {
	h := v3.Vec{X: size / 2, Y: size / 2, Z: size / 2}
	return NewBox(geom.BoundingBox{Min: c.Sub(h), Max: c.Add(h)}, true)
}

// NewTetrahedron returns the closed tetrahedron over four corners, with
// outward faces when d lies on the side (b-a)x(c-a) points to.
func NewTetrahedron(a, b, c, d v3.Vec) *Mesh {
	m := New()
	va, vb, vc, vd := m.AddVertex(a), m.AddVertex(b), m.AddVertex(c), m.AddVertex(d)
	mustAddFace(m, va, vc, vb)
	mustAddFace(m, va, vb, vd)
	mustAddFace(m, vb, vc, vd)
	mustAddFace(m, vc, va, vd)
	m.UpdateNormals()
	return m
}

func mustAddFace(m *Mesh, vs ...VertexID) FaceID {
	f, err := m.AddFace(vs...)
	if err != nil {
		panic(err)
	}
	return f
}
