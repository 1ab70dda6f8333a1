package aabb

import (
	"cmp"
	"slices"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// maxPrimitivesPerLeaf is the threshold for splitting nodes.
const maxPrimitivesPerLeaf = 4

// node is either internal, with two children, or a leaf holding primitive
// indices.
type node struct {
	box         geom.BoundingBox
	left, right *node
	prims       []int
}

func (n *node) isLeaf() bool { return n.left == nil }

func buildBVH(prims []Primitive) *node {
	if len(prims) == 0 {
		return nil
	}
	idx := make([]int, len(prims))
	centroids := make([]v3.Vec, len(prims))
	for i, p := range prims {
		idx[i] = i
		centroids[i] = p.Points.Centroid()
	}
	return buildNode(prims, centroids, idx)
}

// buildNode splits idx at the median centroid along the longest axis of
// its box.
func buildNode(prims []Primitive, centroids []v3.Vec, idx []int) *node {
	n := &node{box: geom.EmptyBox()}
	for _, i := range idx {
		n.box = n.box.Extend(prims[i].Points.Box())
	}
	if len(idx) <= maxPrimitivesPerLeaf {
		n.prims = idx
		return n
	}

	axis := n.box.LongestAxis()
	slices.SortFunc(idx, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(geom.Component(centroids[a], axis), geom.Component(centroids[b], axis)),
			cmp.Compare(a, b),
		)
	})
	mid := len(idx) / 2
	n.left = buildNode(prims, centroids, idx[:mid])
	n.right = buildNode(prims, centroids, idx[mid:])
	return n
}

// visit walks the nodes whose box passes enter and calls leaf for every
// primitive of the leaves reached, stopping when leaf returns false.
func (n *node) visit(enter func(geom.BoundingBox) bool, leaf func(int) bool) {
	if n == nil {
		return
	}
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !enter(cur.box) {
			continue
		}
		if cur.isLeaf() {
			for _, i := range cur.prims {
				if !leaf(i) {
					return
				}
			}
			continue
		}
		stack = append(stack, cur.right, cur.left)
	}
}

func (n *node) depth() int {
	if n == nil {
		return 0
	}
	if n.isLeaf() {
		return 1
	}
	return 1 + max(n.left.depth(), n.right.depth())
}
