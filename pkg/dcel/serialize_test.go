package dcel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"io"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

// equalMeshes compares two meshes slot by slot.
func equalMeshes(t *testing.T, a, b *Mesh) {
	t.Helper()
	if !slices.Equal(slices.Collect(a.Vertices()), slices.Collect(b.Vertices())) {
		t.Fatalf("vertex ids differ")
	}
	if !slices.Equal(slices.Collect(a.HalfEdges()), slices.Collect(b.HalfEdges())) {
		t.Fatalf("half-edge ids differ")
	}
	if !slices.Equal(slices.Collect(a.Faces()), slices.Collect(b.Faces())) {
		t.Fatalf("face ids differ")
	}
	for v := range a.Vertices() {
		if a.Vertex(v) != b.Vertex(v) {
			t.Errorf("vertex %d: %+v != %+v", v, a.Vertex(v), b.Vertex(v))
		}
	}
	for h := range a.HalfEdges() {
		if a.HalfEdge(h) != b.HalfEdge(h) {
			t.Errorf("half-edge %d: %+v != %+v", h, a.HalfEdge(h), b.HalfEdge(h))
		}
	}
	for f := range a.Faces() {
		if a.Face(f) != b.Face(f) {
			t.Errorf("face %d: %+v != %+v", f, a.Face(f), b.Face(f))
		}
	}
	if a.BoundingBox() != b.BoundingBox() {
		t.Errorf("bounding box %+v != %+v", a.BoundingBox(), b.BoundingBox())
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	m := NewCube(vec(1, 2, 3), 2)
	m.SetFaceColor(4, color.RGBA{R: 200, G: 10, B: 20, A: 255})
	m.SetVertexColor(2, color.RGBA{R: 1, G: 2, B: 3, A: 4})

	var buf bytes.Buffer
	if err := m.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got := New()
	if err := got.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	equalMeshes(t, m, got)
	assertValid(t, got)
}

func TestSerializeKeepsIDsAfterDeletion(t *testing.T) {
	m := NewCube(vec(0, 0, 0), 1)
	m.DeleteFace(3)
	m.DeleteVertex(7)

	var buf bytes.Buffer
	if err := m.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got := New()
	if err := got.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	equalMeshes(t, m, got)

	// Free slots are recycled the same way after decoding.
	if a, b := m.AddVertex(vec(0, 0, 0)), got.AddVertex(vec(0, 0, 0)); a != b {
		t.Errorf("recycled vertex ids differ: %d vs %d", a, b)
	}
}

func TestRecycleOrderSurvivesRoundTrip(t *testing.T) {
	m := NewCube(vec(0, 0, 0), 1)
	m.DeleteVertex(5)
	m.DeleteVertex(2)
	for f := range m.Faces() {
		m.DeleteFace(f)
		break
	}

	var buf bytes.Buffer
	if err := m.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got := New()
	if err := got.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	for i, want := range []VertexID{2, 5, 8} {
		p := vec(float64(i), float64(i*i), 3)
		a, b := m.AddVertex(p), got.AddVertex(p)
		if a != want || b != want {
			t.Errorf("AddVertex = %d before and %d after a round trip, want %d", a, b, want)
		}
	}
	fa, err := m.AddFace(2, 5, 8)
	if err != nil {
		t.Fatalf("AddFace: %v", err)
	}
	fb, err := got.AddFace(2, 5, 8)
	if err != nil {
		t.Fatalf("AddFace after round trip: %v", err)
	}
	if fa != fb {
		t.Errorf("recycled face ids differ: %d vs %d", fa, fb)
	}
}

func TestSerializeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got := NewCube(vec(0, 0, 0), 1)
	if err := got.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.NumVertices() != 0 || got.NumFaces() != 0 {
		t.Error("deserializing an empty mesh should clear the target")
	}
	if got.BoundingBox().IsValid() {
		t.Error("empty mesh should have an invalid box")
	}
}

func TestDeserializeFailureIsAtomic(t *testing.T) {
	src := NewCube(vec(0, 0, 0), 1)
	var buf bytes.Buffer
	if err := src.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	full := buf.Bytes()

	corruptMagic := slices.Clone(full)
	corruptMagic[48] = 'X'

	tests := []struct {
		name    string
		data    []byte
		corrupt bool
	}{
		{"truncated header", full[:20], false},
		{"truncated records", full[:len(full)-10], false},
		{"bad magic", corruptMagic, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := NewTetrahedron(vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0), vec(0, 0, 1))
			before := target.Clone()

			// Leading bytes that are not part of the mesh.
			r := bytes.NewReader(append([]byte("prefix"), tt.data...))
			if _, err := r.Seek(6, io.SeekStart); err != nil {
				t.Fatal(err)
			}

			err := target.Deserialize(r)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.corrupt && !errors.Is(err, ErrCorrupt) {
				t.Errorf("error %v does not wrap ErrCorrupt", err)
			}
			pos, _ := r.Seek(0, io.SeekCurrent)
			if pos != 6 {
				t.Errorf("reader at %d after failure, want 6", pos)
			}
			equalMeshes(t, before, target)
		})
	}
}

func TestDeserializeTruncatedHugeCount(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCube(vec(0, 0, 0), 1).Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	stream := slices.Clone(buf.Bytes()[:200])
	// The vertex slot count follows the 48-byte box and 32-byte header.
	binary.LittleEndian.PutUint64(stream[80:], maxSlots-1)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	m := NewCube(vec(0, 0, 0), 1)
	err := m.Deserialize(bytes.NewReader(stream))
	runtime.ReadMemStats(&after)

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want unexpected EOF", err)
	}
	if grown := after.TotalAlloc - before.TotalAlloc; grown > 16<<20 {
		t.Errorf("decoding a truncated stream allocated %d bytes", grown)
	}
	if m.NumFaces() != 12 {
		t.Error("failed decode modified the target")
	}
}

func TestDeserializeLeavesReaderAfterMesh(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCube(vec(0, 0, 0), 1).Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	n := buf.Len()
	buf.WriteString("trailer")

	r := bytes.NewReader(buf.Bytes())
	if err := New().Deserialize(r); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != int64(n) {
		t.Errorf("reader at %d, want %d", pos, n)
	}
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.dcel")
	m := NewBox(NewCube(vec(0, 0, 0), 4).BoundingBox(), false)
	if err := m.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	equalMeshes(t, m, got)

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.dcel")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
