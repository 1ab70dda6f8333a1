package aabb

import (
	"math"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// segmentHits calls hit with every primitive the closed segment touches.
func (t *Tree) segmentHits(s geom.Segment, hit func(int)) {
	t.root.visit(s.OverlapsBox, func(i int) bool {
		if geom.SegmentIntersectsTriangle(s, t.prims[i].Points) {
			hit(i)
		}
		return true
	})
}

// boxHits calls hit with every primitive overlapping b.
func (t *Tree) boxHits(b geom.BoundingBox, hit func(int)) {
	t.root.visit(b.Overlaps, func(i int) bool {
		if geom.TriangleOverlapsBox(t.prims[i].Points, b) {
			hit(i)
		}
		return true
	})
}

// NumberIntersectedPrimitives counts the primitives touched by the closed
// segment from p to q. A crossing through an edge or vertex shared by
// several primitives counts each of them.
func (t *Tree) NumberIntersectedPrimitives(p, q v3.Vec) int {
	n := 0
	t.segmentHits(geom.Segment{p, q}, func(int) { n++ })
	return n
}

// NumberIntersectedPrimitivesRay counts the primitives the ray crosses.
func (t *Tree) NumberIntersectedPrimitivesRay(r geom.Ray) int {
	n := 0
	t.segmentHits(r.ClipTo(t.box), func(int) { n++ })
	return n
}

// NumberIntersectedPrimitivesBox counts the primitives overlapping b.
func (t *Tree) NumberIntersectedPrimitivesBox(b geom.BoundingBox) int {
	n := 0
	t.boxHits(b, func(int) { n++ })
	return n
}

// IntersectedPrimitives returns the primitives touched by the segment from
// p to q in tree order.
func (t *Tree) IntersectedPrimitives(p, q v3.Vec) []int {
	var out []int
	t.segmentHits(geom.Segment{p, q}, func(i int) { out = append(out, i) })
	return out
}

// OverlappingPrimitives returns the primitives overlapping b in tree order.
func (t *Tree) OverlappingPrimitives(b geom.BoundingBox) []int {
	var out []int
	t.boxHits(b, func(i int) { out = append(out, i) })
	return out
}

// seed returns a primitive near p found through the corner k-d tree, or
// -1 when the tree was not built for distance queries.
func (t *Tree) seed(p v3.Vec) int {
	if t.seeds == nil {
		return -1
	}
	c, _ := t.seeds.Nearest(kdtree.Point{p.X, p.Y, p.Z})
	kp := c.(kdtree.Point)
	return t.seedPrim[v3.Vec{X: kp[0], Y: kp[1], Z: kp[2]}]
}

// closest finds the primitive nearest to p by branch and bound. Ties go to
// the lowest primitive index so the answer does not depend on the seed.
func (t *Tree) closest(p v3.Vec) (prim int, at v3.Vec, d2 float64) {
	prim, d2 = -1, math.Inf(1)
	consider := func(i int) {
		q := t.prims[i].Points.ClosestPoint(p)
		d := q.Sub(p).Length2()
		if d < d2 || d == d2 && i < prim {
			prim, at, d2 = i, q, d
		}
	}
	if s := t.seed(p); s >= 0 {
		consider(s)
	}
	if t.root == nil {
		return prim, at, d2
	}

	stack := []*node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.box.SquaredDistance(p) > d2 {
			continue
		}
		if n.isLeaf() {
			for _, i := range n.prims {
				consider(i)
			}
			continue
		}
		// Nearer child on top.
		l, r := n.left, n.right
		if l.box.SquaredDistance(p) < r.box.SquaredDistance(p) {
			l, r = r, l
		}
		stack = append(stack, l, r)
	}
	return prim, at, d2
}

// SquaredDistance returns the squared distance from p to the nearest
// primitive, +Inf for an empty tree.
func (t *Tree) SquaredDistance(p v3.Vec) float64 {
	_, _, d2 := t.closest(p)
	return d2
}

// NearestPoint returns the point of the indexed surface nearest to p. It
// panics on an empty tree.
func (t *Tree) NearestPoint(p v3.Vec) v3.Vec {
	_, q, _ := t.closestOrPanic(p)
	return q
}

// NearestPrimitive returns the primitive nearest to p. It panics on an
// empty tree.
func (t *Tree) NearestPrimitive(p v3.Vec) int {
	i, _, _ := t.closestOrPanic(p)
	return i
}

func (t *Tree) closestOrPanic(p v3.Vec) (int, v3.Vec, float64) {
	i, q, d2 := t.closest(p)
	if i < 0 {
		panic("aabb: nearest query on an empty tree")
	}
	return i, q, d2
}
