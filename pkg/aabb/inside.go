package aabb

import (
	"fmt"
	"math/rand/v2"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// boundaryPoint maps a side in [0,6) and two unit samples to a point on
// the surface of b. Side%3 is the axis of the face; sides 0 to 2 lie on the
// minimum, 3 to 5 on the maximum.
func boundaryPoint(b geom.BoundingBox, side int, u, v float64) v3.Vec {
	axis := side % 3
	s := b.Size()
	q := b.Min
	i, j := (axis+1)%3, (axis+2)%3
	q = geom.WithComponent(q, i, geom.Component(b.Min, i)+u*geom.Component(s, i))
	q = geom.WithComponent(q, j, geom.Component(b.Min, j)+v*geom.Component(s, j))
	if side >= 3 {
		q = geom.WithComponent(q, axis, geom.Component(b.Max, axis))
	}
	return q
}

// vote casts one ray from p through each target and reports
// whether more of them crossed the surface an odd number of times.
func (t *Tree) vote(p v3.Vec, targets []v3.Vec) bool {
	inside, outside := 0, 0
	for _, q := range targets {
		if t.NumberIntersectedPrimitivesRay(geom.RayThrough(p, q))%2 == 1 {
			inside++
		} else {
			outside++
		}
	}
	return inside > outside
}

func checkCount(checks int) {
	if checks <= 0 || checks%2 == 0 {
		panic(fmt.Sprintf("aabb: number of checks must be a positive odd number, got %d", checks))
	}
}

// sample draws checks uniformly distributed points on the surface of the
// tree's bounding box.
func (t *Tree) sample(checks int, intN func(int) int, float func() float64) []v3.Vec {
	out := make([]v3.Vec, checks)
	for k := range out {
		side := intN(6)
		u := float()
		out[k] = boundaryPoint(t.box, side, u, float())
	}
	return out
}

// IsInside reports whether p lies inside the indexed surface, which must
// be closed and free of self intersections. It fires checks rays from p
// through random points on the faces of the bounding box and takes the
// majority of the parity answers, so a ray grazing an edge is outvoted.
// checks must be odd; IsInside panics otherwise.
func (t *Tree) IsInside(p v3.Vec, checks int) bool {
	checkCount(checks)
	t.mu.Lock()
	targets := t.sample(checks, t.rng.IntN, t.rng.Float64)
	t.mu.Unlock()
	return t.vote(p, targets)
}

// IsInsidePseudoRandom is IsInside drawing from the process-wide generator.
func (t *Tree) IsInsidePseudoRandom(p v3.Vec, checks int) bool {
	checkCount(checks)
	return t.vote(p, t.sample(checks, rand.IntN, rand.Float64))
}
