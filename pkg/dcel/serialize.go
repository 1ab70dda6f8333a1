package dcel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrCorrupt is wrapped by Deserialize when the stream is not a valid mesh.
var ErrCorrupt = errors.New("corrupt mesh stream")

const (
	formatVersion = 1
	// maxSlots bounds a single arena on decode so a corrupt count cannot
	// trigger a huge allocation.
	maxSlots = 1 << 26
	// sectionChunk is the number of records decoded per read.
	sectionChunk = 4096
)

var magic = [4]byte{'D', 'C', 'E', 'L'}

type boxRecord struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

type headerRecord struct {
	Magic     [4]byte
	Version   uint32
	Vertices  uint64
	HalfEdges uint64
	Faces     uint64
}

type vertexRecord struct {
	Alive       uint8
	_           [7]byte
	X, Y, Z     float64
	Out         int64
	Cardinality int64
	NX, NY, NZ  float64
	Color       [4]uint8
	_           [4]byte
}

type halfEdgeRecord struct {
	Alive uint8
	_     [7]byte
	From  int64
	Twin  int64
	Next  int64
	Prev  int64
	Face  int64
}

type faceRecord struct {
	Alive      uint8
	_          [7]byte
	Outer      int64
	NX, NY, NZ float64
	Color      [4]uint8
	_          [4]byte
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func rgba(c color.RGBA) [4]uint8 { return [4]uint8{c.R, c.G, c.B, c.A} }

func toRGBA(c [4]uint8) color.RGBA { return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]} }

// Serialize writes the mesh as little-endian binary: bounding box, header,
// then the vertex, half-edge and face arenas, each prefixed by its slot
// count. Deleted slots are written too so ids survive a round trip.
func (m *Mesh) Serialize(w io.Writer) error {
	le := binary.LittleEndian
	b := m.bbox
	recs := []any{
		boxRecord{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z},
		headerRecord{
			Magic:     magic,
			Version:   formatVersion,
			Vertices:  uint64(m.vertices.live),
			HalfEdges: uint64(m.halfEdges.live),
			Faces:     uint64(m.faces.live),
		},
	}
	for _, r := range recs {
		if err := binary.Write(w, le, r); err != nil {
			return fmt.Errorf("dcel: serialize: %w", err)
		}
	}

	vs := make([]vertexRecord, m.vertices.slots())
	for i := range vs {
		v := m.vertices.items[i]
		vs[i] = vertexRecord{
			Alive: b2u(m.vertices.alive[i]),
			X:     v.Coord.X, Y: v.Coord.Y, Z: v.Coord.Z,
			Out:         int64(v.Out),
			Cardinality: int64(v.Cardinality),
			NX:          v.Normal.X, NY: v.Normal.Y, NZ: v.Normal.Z,
			Color: rgba(v.Color),
		}
	}
	hs := make([]halfEdgeRecord, m.halfEdges.slots())
	for i := range hs {
		h := m.halfEdges.items[i]
		hs[i] = halfEdgeRecord{
			Alive: b2u(m.halfEdges.alive[i]),
			From:  int64(h.From),
			Twin:  int64(h.Twin),
			Next:  int64(h.Next),
			Prev:  int64(h.Prev),
			Face:  int64(h.Face),
		}
	}
	fs := make([]faceRecord, m.faces.slots())
	for i := range fs {
		f := m.faces.items[i]
		fs[i] = faceRecord{
			Alive: b2u(m.faces.alive[i]),
			Outer: int64(f.Outer),
			NX:    f.Normal.X, NY: f.Normal.Y, NZ: f.Normal.Z,
			Color: rgba(f.Color),
		}
	}

	for _, section := range []struct {
		n    int
		recs any
	}{{len(vs), vs}, {len(hs), hs}, {len(fs), fs}} {
		if err := binary.Write(w, le, uint64(section.n)); err != nil {
			return fmt.Errorf("dcel: serialize: %w", err)
		}
		if err := binary.Write(w, le, section.recs); err != nil {
			return fmt.Errorf("dcel: serialize: %w", err)
		}
	}
	return nil
}

// Deserialize replaces the mesh with one read from r. The stream is decoded
// into a scratch mesh first; on any failure r is rewound to where it was,
// the receiver is left untouched and the error is returned.
func (m *Mesh) Deserialize(r io.ReadSeeker) error {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("dcel: deserialize: %w", err)
	}
	tmp, err := decode(r)
	if err != nil {
		if _, serr := r.Seek(start, io.SeekStart); serr != nil {
			err = errors.Join(err, serr)
		}
		return fmt.Errorf("dcel: deserialize: %w", err)
	}
	*m = *tmp
	return nil
}

// readSection reads a slot count followed by that many fixed-size records.
// Records are decoded in chunks so a count larger than the stream fails at
// end of input without allocating for the claimed size.
func readSection[T any](r io.Reader) ([]T, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxSlots {
		return nil, fmt.Errorf("%w: %d slots", ErrCorrupt, n)
	}
	var recs []T
	chunk := make([]T, min(n, sectionChunk))
	for left := int(n); left > 0; left -= len(chunk) {
		chunk = chunk[:min(left, len(chunk))]
		if err := binary.Read(r, binary.LittleEndian, chunk); err != nil {
			return nil, err
		}
		recs = append(recs, chunk...)
	}
	return recs, nil
}

func decode(r io.Reader) (*Mesh, error) {
	le := binary.LittleEndian
	var box boxRecord
	if err := binary.Read(r, le, &box); err != nil {
		return nil, err
	}
	var hdr headerRecord
	if err := binary.Read(r, le, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, hdr.Magic[:])
	}
	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, hdr.Version)
	}

	vs, err := readSection[vertexRecord](r)
	if err != nil {
		return nil, err
	}
	hs, err := readSection[halfEdgeRecord](r)
	if err != nil {
		return nil, err
	}
	fs, err := readSection[faceRecord](r)
	if err != nil {
		return nil, err
	}

	m := New()
	m.bbox = geom.BoundingBox{
		Min: v3.Vec{X: box.MinX, Y: box.MinY, Z: box.MinZ},
		Max: v3.Vec{X: box.MaxX, Y: box.MaxY, Z: box.MaxZ},
	}
	for i, rec := range vs {
		m.vertices.items = append(m.vertices.items, Vertex{
			ID:          VertexID(i),
			Coord:       v3.Vec{X: rec.X, Y: rec.Y, Z: rec.Z},
			Out:         HalfEdgeID(rec.Out),
			Cardinality: int(rec.Cardinality),
			Normal:      v3.Vec{X: rec.NX, Y: rec.NY, Z: rec.NZ},
			Color:       toRGBA(rec.Color),
		})
		m.vertices.alive = append(m.vertices.alive, rec.Alive != 0)
	}
	for i, rec := range hs {
		m.halfEdges.items = append(m.halfEdges.items, HalfEdge{
			ID:   HalfEdgeID(i),
			From: VertexID(rec.From),
			Twin: HalfEdgeID(rec.Twin),
			Next: HalfEdgeID(rec.Next),
			Prev: HalfEdgeID(rec.Prev),
			Face: FaceID(rec.Face),
		})
		m.halfEdges.alive = append(m.halfEdges.alive, rec.Alive != 0)
	}
	for i, rec := range fs {
		m.faces.items = append(m.faces.items, Face{
			ID:     FaceID(i),
			Outer:  HalfEdgeID(rec.Outer),
			Normal: v3.Vec{X: rec.NX, Y: rec.NY, Z: rec.NZ},
			Color:  toRGBA(rec.Color),
		})
		m.faces.alive = append(m.faces.alive, rec.Alive != 0)
	}
	m.vertices.rebuildFree()
	m.halfEdges.rebuildFree()
	m.faces.rebuildFree()

	if uint64(m.vertices.live) != hdr.Vertices ||
		uint64(m.halfEdges.live) != hdr.HalfEdges ||
		uint64(m.faces.live) != hdr.Faces {
		return nil, fmt.Errorf("%w: live counts do not match header", ErrCorrupt)
	}
	if err := m.checkReferences(); err != nil {
		return nil, err
	}
	for h := range m.HalfEdges() {
		he := m.halfEdges.at(int(h))
		m.edges[edgeKey{he.From, m.halfEdges.at(int(he.Next)).From}] = h
	}
	return m, nil
}

// checkReferences verifies that every stored id of a live entity names a
// live entity, so navigation on a decoded mesh cannot index out of range.
func (m *Mesh) checkReferences() error {
	bad := func(what string, id int) error {
		return fmt.Errorf("%w: %s %d dangling", ErrCorrupt, what, id)
	}
	for v := range m.Vertices() {
		out := m.vertices.at(int(v)).Out
		if out != NoHalfEdge && !m.HasHalfEdge(out) {
			return bad("vertex", int(v))
		}
	}
	for h := range m.HalfEdges() {
		he := m.halfEdges.at(int(h))
		if !m.HasVertex(he.From) || !m.HasHalfEdge(he.Next) || !m.HasHalfEdge(he.Prev) || !m.HasFace(he.Face) {
			return bad("half-edge", int(h))
		}
		if he.Twin != NoHalfEdge && !m.HasHalfEdge(he.Twin) {
			return bad("half-edge", int(h))
		}
	}
	for f := range m.Faces() {
		if !m.HasHalfEdge(m.faces.at(int(f)).Outer) {
			return bad("face", int(f))
		}
	}
	return nil
}

// SaveFile serializes the mesh to path.
func (m *Mesh) SaveFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dcel: save: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("dcel: save: %w", cerr)
		}
	}()
	return m.Serialize(f)
}

// LoadFile reads a mesh previously written by SaveFile.
func LoadFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dcel: load: %w", err)
	}
	defer f.Close()
	m := New()
	if err := m.Deserialize(f); err != nil {
		return nil, err
	}
	return m, nil
}
