package dcel

import (
	"slices"
	"strings"
	"testing"
)

func TestValidateHealthyMeshes(t *testing.T) {
	m, _, _ := unitSquare(t)
	if errs := Validate(m); len(errs) != 0 {
		t.Errorf("unexpected findings: %v", errs)
	}
	if m.IsClosed() {
		t.Error("an open square is not closed")
	}
	if !m.IsManifold() {
		t.Error("an open square is still manifold")
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(m *Mesh)
		code    string
	}{
		{"twin mismatch", func(m *Mesh) { m.halfEdges.at(0).Twin = 5 }, "TWIN_MISMATCH"},
		{"broken next", func(m *Mesh) { m.halfEdges.at(0).Next = 4 }, "BROKEN_CYCLE"},
		{"bad origin", func(m *Mesh) { m.vertices.at(0).Out = 4 }, "BAD_ORIGIN"},
		{"cardinality", func(m *Mesh) { m.vertices.at(1).Cardinality = 10 }, "CARDINALITY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewCube(vec(0, 0, 0), 1)
			tt.corrupt(m)
			errs := Validate(m)
			if !HasErrors(errs) {
				t.Fatal("expected errors")
			}
			found := slices.ContainsFunc(errs, func(e ValidationError) bool { return e.Code == tt.code })
			if !found {
				t.Errorf("no %s finding in %v", tt.code, errs)
			}
		})
	}
}

func TestNonManifoldVertexWarning(t *testing.T) {
	// Two triangles touching only at vertex 0 (a bow tie).
	m := New()
	o := m.AddVertex(vec(0, 0, 0))
	a := m.AddVertex(vec(1, 0, 0))
	b := m.AddVertex(vec(1, 1, 0))
	c := m.AddVertex(vec(-1, 0, 0))
	d := m.AddVertex(vec(-1, -1, 0))
	if _, err := m.AddFace(o, a, b); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddFace(o, c, d); err != nil {
		t.Fatal(err)
	}

	if m.IsVertexManifold(o) {
		t.Error("bow tie center should not be manifold")
	}
	errs := Validate(m)
	if HasErrors(errs) {
		t.Errorf("bow tie has no structural errors: %v", errs)
	}
	if len(errs) != 1 || errs[0].Code != "NON_MANIFOLD_VERTEX" || errs[0].Vertex != o {
		t.Errorf("findings = %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "vertex: 0") {
		t.Errorf("Error() = %q", errs[0].Error())
	}
	if m.IsManifold() {
		t.Error("IsManifold() = true for a bow tie")
	}
}

func TestVectorsRoundTrip(t *testing.T) {
	m := NewBox(NewCube(vec(0, 0, 0), 2).BoundingBox(), false)
	m.DeleteVertex(0)

	vi := make(map[VertexID]int)
	fi := make(map[FaceID]int)
	coords, faces := m.ToVectors(vi, fi)
	if len(coords) != 7 || len(faces) != 3 {
		t.Fatalf("got %d coords and %d faces, want 7 and 3", len(coords), len(faces))
	}
	for v, i := range vi {
		if coords[i] != m.Coord(v) {
			t.Errorf("vertex %d mapped to %d with wrong coordinate", v, i)
		}
	}
	for f, j := range fi {
		if len(faces[j]) != m.FaceDegree(f) {
			t.Errorf("face %d mapped to %d with wrong size", f, j)
		}
	}

	// Maps are optional.
	c2, f2 := m.ToVectors(nil, nil)
	if len(c2) != len(coords) || len(f2) != len(faces) {
		t.Error("ToVectors without maps returned different sizes")
	}

	back, err := FromVectors(coords, faces)
	if err != nil {
		t.Fatalf("FromVectors: %v", err)
	}
	if back.NumVertices() != 7 || back.NumFaces() != 3 {
		t.Errorf("rebuilt mesh has %d vertices and %d faces", back.NumVertices(), back.NumFaces())
	}
	assertValid(t, back)

	if _, err := FromVectors(coords, [][]int{{0, 1, 42}}); err == nil {
		t.Error("expected an error for an out of range index")
	}
}
