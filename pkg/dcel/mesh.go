// Package dcel implements a half-edge mesh (doubly connected edge list).
//
// Vertices, half-edges and faces live in three slot arenas owned by Mesh and
// refer to each other by integer id. Deleting an entity frees its slot for
// reuse; ids of surviving entities never change. Accessors panic on ids that
// are out of range or deleted, since holding such an id is a caller bug.
package dcel

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// VertexID identifies a vertex slot.
type VertexID int

// HalfEdgeID identifies a half-edge slot.
type HalfEdgeID int

// FaceID identifies a face slot.
type FaceID int

// Null references.
const (
	NoVertex   VertexID   = -1
	NoHalfEdge HalfEdgeID = -1
	NoFace     FaceID     = -1
)

// DefaultColor is assigned to new vertices and faces.
var DefaultColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// Vertex is a mesh vertex.
type Vertex struct {
	ID    VertexID
	Coord v3.Vec
	// Out is one half-edge leaving this vertex, NoHalfEdge when isolated.
	Out HalfEdgeID
	// Cardinality is the number of edges incident to the vertex.
	Cardinality int
	Normal      v3.Vec
	Color       color.RGBA
}

// HalfEdge is one directed side of an edge. Twin is NoHalfEdge on the
// boundary.
type HalfEdge struct {
	ID   HalfEdgeID
	From VertexID
	Twin HalfEdgeID
	Next HalfEdgeID
	Prev HalfEdgeID
	Face FaceID
}

// Face is a polygon bounded by a closed cycle of half-edges.
type Face struct {
	ID     FaceID
	Outer  HalfEdgeID
	Normal v3.Vec
	Color  color.RGBA
}

// ErrMalformedFace is wrapped by MalformedFaceError.
var ErrMalformedFace = errors.New("malformed face")

// ErrDuplicateEdge is returned when a new face would reuse a directed edge
// that already bounds another face.
var ErrDuplicateEdge = errors.New("directed edge already in use")

// MalformedFaceError reports a face that cannot be built from the given
// vertex list.
type MalformedFaceError struct {
	Vertices []VertexID
	Reason   string
}

func (e *MalformedFaceError) Error() string {
	return fmt.Sprintf("dcel: malformed face %v: %s", e.Vertices, e.Reason)
}

func (e *MalformedFaceError) Unwrap() error { return ErrMalformedFace }

type edgeKey struct {
	from, to VertexID
}

// Mesh is a half-edge mesh. The zero value is not usable; call New.
type Mesh struct {
	vertices  store[Vertex]
	halfEdges store[HalfEdge]
	faces     store[Face]

	edges map[edgeKey]HalfEdgeID
	bbox  geom.BoundingBox
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{
		edges: make(map[edgeKey]HalfEdgeID),
		bbox:  geom.EmptyBox(),
	}
}

// Clear removes every entity.
func (m *Mesh) Clear() {
	*m = *New()
}

// Clone returns a deep copy with identical ids.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		vertices:  m.vertices.clone(),
		halfEdges: m.halfEdges.clone(),
		faces:     m.faces.clone(),
		edges:     make(map[edgeKey]HalfEdgeID, len(m.edges)),
		bbox:      m.bbox,
	}
	for k, v := range m.edges {
		c.edges[k] = v
	}
	return c
}

// NumVertices returns the number of live vertices.
func (m *Mesh) NumVertices() int { return m.vertices.live }

// NumHalfEdges returns the number of live half-edges.
func (m *Mesh) NumHalfEdges() int { return m.halfEdges.live }

// NumFaces returns the number of live faces.
func (m *Mesh) NumFaces() int { return m.faces.live }

// HasVertex reports whether id names a live vertex.
func (m *Mesh) HasVertex(id VertexID) bool { return m.vertices.has(int(id)) }

// HasHalfEdge reports whether id names a live half-edge.
func (m *Mesh) HasHalfEdge(id HalfEdgeID) bool { return m.halfEdges.has(int(id)) }

// HasFace reports whether id names a live face.
func (m *Mesh) HasFace(id FaceID) bool { return m.faces.has(int(id)) }

func (m *Mesh) vertex(id VertexID) *Vertex {
	if !m.vertices.has(int(id)) {
		panic(fmt.Sprintf("dcel: vertex %d does not exist", id))
	}
	return m.vertices.at(int(id))
}

func (m *Mesh) halfEdge(id HalfEdgeID) *HalfEdge {
	if !m.halfEdges.has(int(id)) {
		panic(fmt.Sprintf("dcel: half-edge %d does not exist", id))
	}
	return m.halfEdges.at(int(id))
}

func (m *Mesh) face(id FaceID) *Face {
	if !m.faces.has(int(id)) {
		panic(fmt.Sprintf("dcel: face %d does not exist", id))
	}
	return m.faces.at(int(id))
}

// Vertex returns a copy of the vertex record.
func (m *Mesh) Vertex(id VertexID) Vertex { return *m.vertex(id) }

// HalfEdge returns a copy of the half-edge record.
func (m *Mesh) HalfEdge(id HalfEdgeID) HalfEdge { return *m.halfEdge(id) }

// Face returns a copy of the face record.
func (m *Mesh) Face(id FaceID) Face { return *m.face(id) }

// Coord returns the position of a vertex.
func (m *Mesh) Coord(id VertexID) v3.Vec { return m.vertex(id).Coord }

// SetCoord moves a vertex. Normals and the bounding box are not refreshed
// beyond growing the box to include p.
func (m *Mesh) SetCoord(id VertexID, p v3.Vec) {
	m.vertex(id).Coord = p
	m.bbox = m.bbox.Include(p)
}

// SetVertexColor sets the color of a vertex.
func (m *Mesh) SetVertexColor(id VertexID, c color.RGBA) { m.vertex(id).Color = c }

// SetFaceColor sets the color of a face.
func (m *Mesh) SetFaceColor(id FaceID, c color.RGBA) { m.face(id).Color = c }

// AddVertex appends a vertex at p and returns its id.
func (m *Mesh) AddVertex(p v3.Vec) VertexID {
	id := VertexID(m.vertices.add(Vertex{
		Coord: p,
		Out:   NoHalfEdge,
		Color: DefaultColor,
	}))
	m.vertices.at(int(id)).ID = id
	m.bbox = m.bbox.Include(p)
	return id
}

// AddFace creates a face bounded by the given vertices in order. Each
// boundary half-edge is paired with an existing opposite half-edge when one
// exists. The face normal is left zero until UpdateNormals.
func (m *Mesh) AddFace(vs ...VertexID) (FaceID, error) {
	if len(vs) < 3 {
		return NoFace, &MalformedFaceError{Vertices: vs, Reason: "fewer than 3 vertices"}
	}
	seen := make(map[VertexID]bool, len(vs))
	for _, v := range vs {
		if !m.HasVertex(v) {
			return NoFace, &MalformedFaceError{Vertices: vs, Reason: fmt.Sprintf("vertex %d does not exist", v)}
		}
		if seen[v] {
			return NoFace, &MalformedFaceError{Vertices: vs, Reason: fmt.Sprintf("vertex %d repeated", v)}
		}
		seen[v] = true
	}
	n := len(vs)
	for i, u := range vs {
		w := vs[(i+1)%n]
		if _, ok := m.edges[edgeKey{u, w}]; ok {
			return NoFace, fmt.Errorf("dcel: add face: edge %d->%d: %w", u, w, ErrDuplicateEdge)
		}
	}

	f := FaceID(m.faces.add(Face{Outer: NoHalfEdge, Color: DefaultColor}))
	m.faces.at(int(f)).ID = f

	hs := make([]HalfEdgeID, n)
	for i, u := range vs {
		h := HalfEdgeID(m.halfEdges.add(HalfEdge{From: u, Twin: NoHalfEdge, Face: f}))
		m.halfEdges.at(int(h)).ID = h
		hs[i] = h
	}
	for i, h := range hs {
		he := m.halfEdges.at(int(h))
		he.Next = hs[(i+1)%n]
		he.Prev = hs[(i+n-1)%n]

		u, w := vs[i], vs[(i+1)%n]
		m.edges[edgeKey{u, w}] = h
		if t, ok := m.edges[edgeKey{w, u}]; ok {
			he.Twin = t
			m.halfEdges.at(int(t)).Twin = h
		} else {
			m.vertices.at(int(u)).Cardinality++
			m.vertices.at(int(w)).Cardinality++
		}
		if v := m.vertices.at(int(u)); v.Out == NoHalfEdge {
			v.Out = h
		}
	}
	m.faces.at(int(f)).Outer = hs[0]
	return f, nil
}

// DeleteFace removes a face and its half-edges. Vertices are kept, possibly
// isolated.
func (m *Mesh) DeleteFace(f FaceID) {
	m.face(f)
	type entry struct {
		h        HalfEdgeID
		from, to VertexID
		twin     HalfEdgeID
	}
	var es []entry
	for h := range m.FaceHalfEdges(f) {
		he := m.halfEdge(h)
		es = append(es, entry{h: h, from: he.From, to: m.ToVertex(h), twin: he.Twin})
	}

	// Repair Out while the links are still intact.
	for _, e := range es {
		if v := m.vertex(e.from); v.Out == e.h {
			v.Out = m.otherOutgoing(e.h, f)
		}
	}

	for _, e := range es {
		if e.twin != NoHalfEdge {
			m.halfEdge(e.twin).Twin = NoHalfEdge
		} else {
			m.vertex(e.from).Cardinality--
			m.vertex(e.to).Cardinality--
		}
		delete(m.edges, edgeKey{e.from, e.to})
		m.halfEdges.remove(int(e.h))
	}
	m.faces.remove(int(f))
}

// otherOutgoing finds a half-edge leaving the origin of h that does not
// belong to face f.
func (m *Mesh) otherOutgoing(h HalfEdgeID, f FaceID) HalfEdgeID {
	he := m.halfEdge(h)
	if he.Twin != NoHalfEdge {
		return m.halfEdge(he.Twin).Next
	}
	if t := m.halfEdge(he.Prev).Twin; t != NoHalfEdge {
		return t
	}
	// Non-manifold fan: look for any other edge leaving the vertex.
	for i := range m.halfEdges.all() {
		o := m.halfEdges.at(i)
		if o.From == he.From && o.Face != f {
			return o.ID
		}
	}
	return NoHalfEdge
}

// DeleteVertex removes a vertex after deleting every face incident to it.
func (m *Mesh) DeleteVertex(v VertexID) {
	m.vertex(v)
	var fs []FaceID
	seen := make(map[FaceID]bool)
	for i := range m.halfEdges.all() {
		he := m.halfEdges.at(i)
		if he.From == v && !seen[he.Face] {
			seen[he.Face] = true
			fs = append(fs, he.Face)
		}
	}
	for _, f := range fs {
		m.DeleteFace(f)
	}
	m.vertices.remove(int(v))
}

// EdgeHalfEdge returns the half-edge from u to w, if any.
func (m *Mesh) EdgeHalfEdge(u, w VertexID) (HalfEdgeID, bool) {
	h, ok := m.edges[edgeKey{u, w}]
	return h, ok
}
