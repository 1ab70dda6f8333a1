package dcel

import "fmt"

// Severity classifies a validation finding.
type Severity int

const (
	// SeverityError marks a broken structural invariant.
	SeverityError Severity = iota
	// SeverityWarning marks a legal but unusual configuration.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ValidationError is one finding of Validate.
type ValidationError struct {
	Code     string
	Message  string
	Severity Severity
	Vertex   VertexID
	HalfEdge HalfEdgeID
	Face     FaceID
}

func (e ValidationError) Error() string {
	context := ""
	switch {
	case e.HalfEdge != NoHalfEdge:
		context = fmt.Sprintf(" (half-edge: %d)", e.HalfEdge)
	case e.Face != NoFace:
		context = fmt.Sprintf(" (face: %d)", e.Face)
	case e.Vertex != NoVertex:
		context = fmt.Sprintf(" (vertex: %d)", e.Vertex)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, context)
}

func finding(code string, sev Severity, format string, args ...any) ValidationError {
	return ValidationError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
		Vertex:   NoVertex,
		HalfEdge: NoHalfEdge,
		Face:     NoFace,
	}
}

// Validate checks the structural invariants of the mesh: closed next/prev
// cycles, twin symmetry, vertex Out references, face sizes and cardinality
// counts. Non-manifold vertices are reported as warnings.
func Validate(m *Mesh) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateHalfEdges(m)...)
	errs = append(errs, validateFaces(m)...)
	errs = append(errs, validateVertices(m)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateHalfEdges(m *Mesh) []ValidationError {
	var errs []ValidationError
	for h := range m.HalfEdges() {
		he := m.halfEdges.at(int(h))
		if n := m.halfEdges.at(int(he.Next)); n.Prev != h {
			e := finding("BROKEN_CYCLE", SeverityError, "next(%d).prev is %d", h, n.Prev)
			e.HalfEdge = h
			errs = append(errs, e)
		}
		if n := m.halfEdges.at(int(he.Next)); n.Face != he.Face {
			e := finding("BROKEN_CYCLE", SeverityError, "next half-edge %d bounds face %d, not %d", he.Next, n.Face, he.Face)
			e.HalfEdge = h
			errs = append(errs, e)
		}
		if he.Twin != NoHalfEdge {
			t := m.halfEdges.at(int(he.Twin))
			if t.Twin != h {
				e := finding("TWIN_MISMATCH", SeverityError, "twin %d points back to %d", he.Twin, t.Twin)
				e.HalfEdge = h
				errs = append(errs, e)
			} else if t.From != m.ToVertex(h) || m.ToVertex(he.Twin) != he.From {
				e := finding("TWIN_MISMATCH", SeverityError, "twin %d does not reverse the edge", he.Twin)
				e.HalfEdge = h
				errs = append(errs, e)
			}
		}
	}
	return errs
}

func validateFaces(m *Mesh) []ValidationError {
	var errs []ValidationError
	for f := range m.Faces() {
		n := 0
		closed := false
		h := m.faces.at(int(f)).Outer
		start := h
		for steps := m.halfEdges.slots(); steps > 0; steps-- {
			n++
			h = m.halfEdges.at(int(h)).Next
			if h == start {
				closed = true
				break
			}
		}
		if !closed {
			e := finding("BROKEN_CYCLE", SeverityError, "boundary cycle does not return to outer half-edge")
			e.Face = f
			errs = append(errs, e)
			continue
		}
		if n < 3 {
			e := finding("FACE_DEGREE", SeverityError, "face has %d corners", n)
			e.Face = f
			errs = append(errs, e)
		}
	}
	return errs
}

func validateVertices(m *Mesh) []ValidationError {
	var errs []ValidationError
	edges := make(map[VertexID]int)
	for h := range m.HalfEdges() {
		he := m.halfEdges.at(int(h))
		// Count each undirected edge once.
		if he.Twin == NoHalfEdge || he.Twin > h {
			edges[he.From]++
			edges[m.ToVertex(h)]++
		}
	}
	for v := range m.Vertices() {
		vx := m.vertices.at(int(v))
		if vx.Out != NoHalfEdge && m.halfEdges.at(int(vx.Out)).From != v {
			e := finding("BAD_ORIGIN", SeverityError, "outgoing half-edge %d starts at vertex %d", vx.Out, m.halfEdges.at(int(vx.Out)).From)
			e.Vertex = v
			errs = append(errs, e)
			continue
		}
		if vx.Cardinality != edges[v] {
			e := finding("CARDINALITY", SeverityError, "cardinality %d, counted %d edges", vx.Cardinality, edges[v])
			e.Vertex = v
			errs = append(errs, e)
		}
		if !m.IsVertexManifold(v) {
			e := finding("NON_MANIFOLD_VERTEX", SeverityWarning, "incident faces do not form a single fan")
			e.Vertex = v
			errs = append(errs, e)
		}
	}
	return errs
}

// IsVertexManifold reports whether the faces around v form one connected
// fan, so walking from Out reaches every half-edge leaving v.
func (m *Mesh) IsVertexManifold(v VertexID) bool {
	total := 0
	for h := range m.HalfEdges() {
		if m.halfEdges.at(int(h)).From == v {
			total++
		}
	}
	walked := 0
	for range m.VertexOutgoing(v) {
		walked++
	}
	return walked == total
}

// IsManifold reports whether Validate finds no errors and every vertex is
// manifold.
func (m *Mesh) IsManifold() bool {
	return len(Validate(m)) == 0
}

// IsClosed reports whether every half-edge has a twin.
func (m *Mesh) IsClosed() bool {
	for h := range m.HalfEdges() {
		if m.halfEdges.at(int(h)).Twin == NoHalfEdge {
			return false
		}
	}
	return true
}
