package dcel

import "iter"

// Vertices yields live vertex ids in ascending order.
func (m *Mesh) Vertices() iter.Seq[VertexID] {
	return func(yield func(VertexID) bool) {
		for i := range m.vertices.all() {
			if !yield(VertexID(i)) {
				return
			}
		}
	}
}

// HalfEdges yields live half-edge ids in ascending order.
func (m *Mesh) HalfEdges() iter.Seq[HalfEdgeID] {
	return func(yield func(HalfEdgeID) bool) {
		for i := range m.halfEdges.all() {
			if !yield(HalfEdgeID(i)) {
				return
			}
		}
	}
}

// Faces yields live face ids in ascending order.
func (m *Mesh) Faces() iter.Seq[FaceID] {
	return func(yield func(FaceID) bool) {
		for i := range m.faces.all() {
			if !yield(FaceID(i)) {
				return
			}
		}
	}
}

// Next returns the following half-edge around the same face.
func (m *Mesh) Next(h HalfEdgeID) HalfEdgeID { return m.halfEdge(h).Next }

// Prev returns the preceding half-edge around the same face.
func (m *Mesh) Prev(h HalfEdgeID) HalfEdgeID { return m.halfEdge(h).Prev }

// Twin returns the opposite half-edge, NoHalfEdge on the boundary.
func (m *Mesh) Twin(h HalfEdgeID) HalfEdgeID { return m.halfEdge(h).Twin }

// FromVertex returns the origin of h.
func (m *Mesh) FromVertex(h HalfEdgeID) VertexID { return m.halfEdge(h).From }

// ToVertex returns the destination of h.
func (m *Mesh) ToVertex(h HalfEdgeID) VertexID {
	return m.halfEdge(m.halfEdge(h).Next).From
}

// HalfEdgeFace returns the face h bounds.
func (m *Mesh) HalfEdgeFace(h HalfEdgeID) FaceID { return m.halfEdge(h).Face }

// IsBoundary reports whether h has no twin.
func (m *Mesh) IsBoundary(h HalfEdgeID) bool { return m.halfEdge(h).Twin == NoHalfEdge }

// FaceHalfEdges yields the boundary cycle of f starting at its outer
// half-edge.
func (m *Mesh) FaceHalfEdges(f FaceID) iter.Seq[HalfEdgeID] {
	return func(yield func(HalfEdgeID) bool) {
		start := m.face(f).Outer
		if start == NoHalfEdge {
			return
		}
		h := start
		for steps := m.halfEdges.slots(); steps > 0; steps-- {
			if !yield(h) {
				return
			}
			h = m.halfEdge(h).Next
			if h == start {
				return
			}
		}
	}
}

// FaceVertices yields the corners of f in boundary order.
func (m *Mesh) FaceVertices(f FaceID) iter.Seq[VertexID] {
	return func(yield func(VertexID) bool) {
		for h := range m.FaceHalfEdges(f) {
			if !yield(m.halfEdge(h).From) {
				return
			}
		}
	}
}

// FaceNeighbors yields the faces sharing an edge with f, in boundary order.
// Boundary edges contribute nothing.
func (m *Mesh) FaceNeighbors(f FaceID) iter.Seq[FaceID] {
	return func(yield func(FaceID) bool) {
		for h := range m.FaceHalfEdges(f) {
			if t := m.halfEdge(h).Twin; t != NoHalfEdge {
				if !yield(m.halfEdge(t).Face) {
					return
				}
			}
		}
	}
}

// FaceDegree returns the number of corners of f.
func (m *Mesh) FaceDegree(f FaceID) int {
	n := 0
	for range m.FaceHalfEdges(f) {
		n++
	}
	return n
}

// IsTriangle reports whether f has exactly three corners.
func (m *Mesh) IsTriangle(f FaceID) bool {
	return m.FaceDegree(f) == 3
}

// VertexOutgoing yields the half-edges leaving v. For an interior vertex
// the walk starts at the stored Out half-edge and circles once. When the
// walk reaches the boundary it resumes from Out in the other direction, so
// every half-edge of the fan is still visited once.
func (m *Mesh) VertexOutgoing(v VertexID) iter.Seq[HalfEdgeID] {
	return func(yield func(HalfEdgeID) bool) {
		start := m.vertex(v).Out
		if start == NoHalfEdge {
			return
		}
		limit := m.halfEdges.slots()

		h := start
		for steps := limit; steps > 0; steps-- {
			if !yield(h) {
				return
			}
			t := m.halfEdge(m.halfEdge(h).Prev).Twin
			if t == NoHalfEdge {
				break
			}
			if t == start {
				return
			}
			h = t
		}

		h = start
		for steps := limit; steps > 0; steps-- {
			t := m.halfEdge(h).Twin
			if t == NoHalfEdge {
				return
			}
			h = m.halfEdge(t).Next
			if h == start || !yield(h) {
				return
			}
		}
	}
}

// VertexFaces yields the faces incident to v.
func (m *Mesh) VertexFaces(v VertexID) iter.Seq[FaceID] {
	return func(yield func(FaceID) bool) {
		for h := range m.VertexOutgoing(v) {
			if !yield(m.halfEdge(h).Face) {
				return
			}
		}
	}
}

// VertexNeighbors yields the vertices sharing an edge with v.
func (m *Mesh) VertexNeighbors(v VertexID) iter.Seq[VertexID] {
	return func(yield func(VertexID) bool) {
		for h := range m.VertexOutgoing(v) {
			if !yield(m.ToVertex(h)) {
				return
			}
			// An incoming boundary edge reaches a neighbor no outgoing
			// half-edge points to.
			p := m.halfEdge(h).Prev
			if m.halfEdge(p).Twin == NoHalfEdge {
				if !yield(m.halfEdge(p).From) {
					return
				}
			}
		}
	}
}
