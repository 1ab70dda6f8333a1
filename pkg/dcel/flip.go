package dcel

// FlipEdge replaces the edge carried by h with the other diagonal of the
// quadrilateral formed by its two adjacent triangles.
//
// With h = a→b in triangle (a, b, c) and its twin b→a in triangle (b, a, d),
// the result is h = d→c in (c, a, d) and twin = c→d in (d, b, c). It returns
// false without touching the mesh when h is a boundary edge, either face is
// not a triangle, or c and d are the same vertex or already connected.
// Normals are not updated.
func (m *Mesh) FlipEdge(h HalfEdgeID) bool {
	he := m.halfEdge(h)
	t := he.Twin
	if t == NoHalfEdge {
		return false
	}
	f1, f2 := he.Face, m.halfEdge(t).Face
	if !m.IsTriangle(f1) || !m.IsTriangle(f2) {
		return false
	}

	// a1 = b→c, a2 = c→a, b1 = a→d, b2 = d→b.
	a1, a2 := he.Next, he.Prev
	b1, b2 := m.halfEdge(t).Next, m.halfEdge(t).Prev
	a, b := he.From, m.halfEdge(t).From
	c, d := m.halfEdge(a2).From, m.halfEdge(b2).From
	if c == d {
		return false
	}
	if _, ok := m.edges[edgeKey{c, d}]; ok {
		return false
	}
	if _, ok := m.edges[edgeKey{d, c}]; ok {
		return false
	}

	link := func(x, y, z HalfEdgeID, f FaceID) {
		for _, e := range [3][3]HalfEdgeID{{x, y, z}, {y, z, x}, {z, x, y}} {
			r := m.halfEdge(e[0])
			r.Next, r.Prev, r.Face = e[1], e[2], f
		}
	}

	// f1 = (c, a, d): a2 c→a, b1 a→d, h d→c.
	m.halfEdge(h).From = d
	link(h, a2, b1, f1)
	// f2 = (d, b, c): b2 d→b, a1 b→c, t c→d.
	m.halfEdge(t).From = c
	link(t, b2, a1, f2)

	m.face(f1).Outer = h
	m.face(f2).Outer = t

	if va := m.vertex(a); va.Out == h {
		va.Out = b1
	}
	if vb := m.vertex(b); vb.Out == t {
		vb.Out = a1
	}
	m.vertex(a).Cardinality--
	m.vertex(b).Cardinality--
	m.vertex(c).Cardinality++
	m.vertex(d).Cardinality++

	delete(m.edges, edgeKey{a, b})
	delete(m.edges, edgeKey{b, a})
	m.edges[edgeKey{d, c}] = h
	m.edges[edgeKey{c, d}] = t
	return true
}
