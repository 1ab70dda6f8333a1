package dcel

import (
	"slices"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// UpdateNormals recomputes every face normal, then every vertex normal.
// Normals are never refreshed implicitly after topology or coordinate
// edits.
func (m *Mesh) UpdateNormals() {
	for f := range m.Faces() {
		m.UpdateFaceNormal(f)
	}
	for v := range m.Vertices() {
		m.UpdateVertexNormal(v)
	}
}

// UpdateFaceNormal recomputes the unit normal of f. For a triangle it is
// the normalized cross product of its first two boundary edges; larger
// faces use the Newell normal so reflex corners do not flip it.
func (m *Mesh) UpdateFaceNormal(f FaceID) v3.Vec {
	pts := m.faceCoords(f)
	var n v3.Vec
	if len(pts) == 3 {
		n = geom.Normalize(pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[1])))
	} else {
		n = geom.Normalize(geom.PolygonNormal(pts))
	}
	m.face(f).Normal = n
	return n
}

// UpdateVertexNormal sets the normal of v to the normalized, unweighted sum
// of its incident face normals. Face normals must be current.
func (m *Mesh) UpdateVertexNormal(v VertexID) v3.Vec {
	var sum v3.Vec
	for f := range m.VertexFaces(v) {
		sum = sum.Add(m.face(f).Normal)
	}
	n := geom.Normalize(sum)
	m.vertex(v).Normal = n
	return n
}

func (m *Mesh) faceCoords(f FaceID) []v3.Vec {
	var pts []v3.Vec
	for v := range m.FaceVertices(f) {
		pts = append(pts, m.vertex(v).Coord)
	}
	return pts
}

// FaceTriangle returns the corner positions of a triangle from
// Triangulation.
func (m *Mesh) FaceTriangle(t [3]VertexID) geom.Triangle {
	return geom.Triangle{m.vertex(t[0]).Coord, m.vertex(t[1]).Coord, m.vertex(t[2]).Coord}
}

// FaceArea returns the area of f as the sum of its triangulation.
func (m *Mesh) FaceArea(f FaceID) float64 {
	var a float64
	for _, t := range m.Triangulation(f) {
		a += m.FaceTriangle(t).Area()
	}
	return a
}

// BoundingBox returns the stored box. Adding or moving vertices grows it;
// deletions only shrink it after UpdateBoundingBox. An empty mesh has an
// invalid box.
func (m *Mesh) BoundingBox() geom.BoundingBox {
	return m.bbox
}

// UpdateBoundingBox recomputes the box from the live vertices.
func (m *Mesh) UpdateBoundingBox() geom.BoundingBox {
	b := geom.EmptyBox()
	for v := range m.Vertices() {
		b = b.Include(m.vertex(v).Coord)
	}
	m.bbox = b
	return b
}

// Centroid returns the mean of the live vertex positions.
func (m *Mesh) Centroid() v3.Vec {
	var sum v3.Vec
	n := 0
	for v := range m.Vertices() {
		sum = sum.Add(m.vertex(v).Coord)
		n++
	}
	if n == 0 {
		return sum
	}
	return sum.MulScalar(1 / float64(n))
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d v3.Vec) {
	for v := range m.Vertices() {
		vx := m.vertex(v)
		vx.Coord = vx.Coord.Add(d)
	}
	if m.bbox.IsValid() {
		m.bbox = geom.BoundingBox{Min: m.bbox.Min.Add(d), Max: m.bbox.Max.Add(d)}
	}
}

// Scale multiplies every vertex position by s.
func (m *Mesh) Scale(s float64) {
	for v := range m.Vertices() {
		vx := m.vertex(v)
		vx.Coord = vx.Coord.MulScalar(s)
	}
	m.UpdateBoundingBox()
}

// Adjacent reports whether faces f and g share an edge.
func (m *Mesh) Adjacent(f, g FaceID) bool {
	return slices.Contains(slices.Collect(m.FaceNeighbors(f)), g)
}
