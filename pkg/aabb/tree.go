// Package aabb is a bounding volume hierarchy over the triangles of a mesh.
//
// A Tree copies the triangles of its source when it is built and never
// looks at the source again: edits made to the mesh afterwards are not
// seen, and queries on a stale tree are a caller error. Each primitive
// remembers the source vertices and face it came from, so queries can
// answer in terms of mesh entities. Face and vertex queries require the
// tree to have been built from the matching Kind and panic otherwise.
//
// Trees are safe for concurrent readers. IsInside draws from a generator
// owned by the tree and guarded by a mutex.
package aabb

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Tree is an immutable spatial index over mesh triangles.
type Tree struct {
	kind        Kind
	box         geom.BoundingBox
	forDistance bool

	prims   []Primitive
	faces   map[int][]int
	points  map[v3.Vec]int
	skipped int

	root *node
	// seeds indexes primitive corners for distance queries.
	seeds    *kdtree.Tree
	seedPrim map[v3.Vec]int

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a tree over the triangles of src. Degenerate triangles are
// skipped. With forDistanceQueries set the tree also indexes the triangle
// corners in a k-d tree, which makes SquaredDistance, NearestPoint and the
// nearest face queries faster at the cost of build time and memory.
func New(src Source, forDistanceQueries bool) *Tree {
	t := &Tree{
		kind:        src.Kind(),
		box:         src.BoundingBox(),
		forDistance: forDistanceQueries,
		faces:       make(map[int][]int),
		points:      make(map[v3.Vec]int),
	}
	for p := range src.Triangles() {
		if p.IsDegenerate() {
			t.skipped++
			continue
		}
		t.add(p)
	}
	t.build()
	return t
}

func (t *Tree) add(p Primitive) {
	i := len(t.prims)
	t.prims = append(t.prims, p)
	t.faces[p.Face] = append(t.faces[p.Face], i)
	for k, v := range p.Vertices {
		if _, ok := t.points[p.Points[k]]; !ok {
			t.points[p.Points[k]] = v
		}
	}
}

// build creates the hierarchy, the optional k-d tree and a fresh generator
// from the primitive list.
func (t *Tree) build() {
	t.root = buildBVH(t.prims)
	t.seeds, t.seedPrim = nil, nil
	if t.forDistance && len(t.prims) > 0 {
		t.seedPrim = make(map[v3.Vec]int)
		var pts kdtree.Points
		for i, p := range t.prims {
			for _, c := range p.Points {
				if _, ok := t.seedPrim[c]; !ok {
					t.seedPrim[c] = i
					pts = append(pts, kdtree.Point{c.X, c.Y, c.Z})
				}
			}
		}
		t.seeds = kdtree.New(pts, false)
	}
	t.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Clone returns an independent tree over a copy of the primitives. The
// hierarchy is rebuilt rather than shared.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		kind:        t.kind,
		box:         t.box,
		forDistance: t.forDistance,
		prims:       slices.Clone(t.prims),
		faces:       make(map[int][]int, len(t.faces)),
		points:      maps.Clone(t.points),
		skipped:     t.skipped,
	}
	for f, ps := range t.faces {
		c.faces[f] = slices.Clone(ps)
	}
	c.build()
	return c
}

// Seed resets the generator used by IsInside.
func (t *Tree) Seed(seed uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Kind returns the representation the tree was built from.
func (t *Tree) Kind() Kind { return t.kind }

// BoundingBox returns the box of the source mesh.
func (t *Tree) BoundingBox() geom.BoundingBox { return t.box }

// ForDistanceQueries reports whether distance acceleration was built.
func (t *Tree) ForDistanceQueries() bool { return t.forDistance }

// NumPrimitives returns the number of indexed triangles.
func (t *Tree) NumPrimitives() int { return len(t.prims) }

// Skipped returns how many degenerate triangles were left out.
func (t *Tree) Skipped() int { return t.skipped }

// Primitive returns primitive i.
func (t *Tree) Primitive(i int) Primitive {
	if i < 0 || i >= len(t.prims) {
		panic(fmt.Sprintf("aabb: primitive %d does not exist", i))
	}
	return t.prims[i]
}

// Origin returns the source vertices and face of primitive i.
func (t *Tree) Origin(i int) (vertices [3]int, face int) {
	p := t.Primitive(i)
	return p.Vertices, p.Face
}

// PrimitivesOfFace returns the primitives cut from a source face, nil when
// the face contributed none.
func (t *Tree) PrimitivesOfFace(face int) []int {
	return slices.Clone(t.faces[face])
}

// VertexAt returns the source vertex sitting exactly at p.
func (t *Tree) VertexAt(p v3.Vec) (int, bool) {
	v, ok := t.points[p]
	return v, ok
}

func (t *Tree) requireKind(k Kind) {
	if t.kind != k {
		panic(fmt.Sprintf("aabb: %s query on a tree built from a %s source", k, t.kind))
	}
}
