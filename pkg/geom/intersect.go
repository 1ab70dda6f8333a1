package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Segment is the closed line segment between two points.
type Segment [2]v3.Vec

// ClosestPoint returns the point of the segment nearest to p.
func (s Segment) ClosestPoint(p v3.Vec) v3.Vec {
	d := s[1].Sub(s[0])
	l2 := d.Length2()
	if l2 == 0 {
		return s[0]
	}
	t := p.Sub(s[0]).Dot(d) / l2
	t = math.Max(0, math.Min(1, t))
	return s[0].Add(d.MulScalar(t))
}

// Box returns the bounding box of the segment.
func (s Segment) Box() BoundingBox {
	return NewBox(s[0], s[1])
}

// Ray is a half-line starting at Origin going along Dir.
type Ray struct {
	Origin v3.Vec
	Dir    v3.Vec
}

// RayThrough returns the ray from origin passing through p.
func RayThrough(origin, p v3.Vec) Ray {
	return Ray{Origin: origin, Dir: p.Sub(origin)}
}

// At returns Origin + t*Dir.
func (r Ray) At(t float64) v3.Vec {
	return r.Origin.Add(r.Dir.MulScalar(t))
}

// ClipTo returns the part of the ray that can reach b as a segment. The far
// end is pushed past the box so a segment query over the clipped ray sees
// every primitive inside b that the ray crosses. A zero direction returns
// the degenerate segment at Origin.
func (r Ray) ClipTo(b BoundingBox) Segment {
	l := r.Dir.Length()
	if l == 0 || !b.IsValid() {
		return Segment{r.Origin, r.Origin}
	}
	reach := r.Origin.Sub(b.Center()).Length() + b.Diag() + 1
	return Segment{r.Origin, r.At(reach / l)}
}

// OverlapsBox reports whether the closed segment meets the closed box b,
// clipping the segment against each slab in turn.
func (s Segment) OverlapsBox(b BoundingBox) bool {
	if !b.IsValid() {
		return false
	}
	t0, t1 := 0.0, 1.0
	d := s[1].Sub(s[0])
	for i := range 3 {
		o, di := Component(s[0], i), Component(d, i)
		lo, hi := Component(b.Min, i), Component(b.Max, i)
		if di == 0 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		ta, tb := (lo-o)/di, (hi-o)/di
		if ta > tb {
			ta, tb = tb, ta
		}
		t0, t1 = math.Max(t0, ta), math.Min(t1, tb)
		if t0 > t1 {
			return false
		}
	}
	return true
}

// orient returns the signed volume of the tetrahedron (a, b, c, d), six
// times its actual volume. Positive when d lies on the side (b-a)x(c-a)
// points to.
func orient(a, b, c, d v3.Vec) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// SegmentIntersectsTriangle reports whether the closed segment s and the
// closed triangle t share at least one point. Touching an edge or vertex
// counts as an intersection.
func SegmentIntersectsTriangle(s Segment, t Triangle) bool {
	p, q := s[0], s[1]
	a, b, c := t[0], t[1], t[2]

	sp := sign(orient(a, b, c, p))
	sq := sign(orient(a, b, c, q))
	if sp != 0 && sp == sq {
		return false
	}
	if sp == 0 && sq == 0 {
		return coplanarSegmentTriangle(s, t)
	}

	s1 := sign(orient(p, q, a, b))
	s2 := sign(orient(p, q, b, c))
	s3 := sign(orient(p, q, c, a))
	return (s1 >= 0 && s2 >= 0 && s3 >= 0) || (s1 <= 0 && s2 <= 0 && s3 <= 0)
}

// RayIntersectsTriangle reports whether the ray crosses the closed
// triangle.
func RayIntersectsTriangle(r Ray, t Triangle) bool {
	return SegmentIntersectsTriangle(r.ClipTo(t.Box()), t)
}

func coplanarSegmentTriangle(s Segment, t Triangle) bool {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	if n == (v3.Vec{}) {
		return false
	}
	axis := DominantAxis(n)
	p, q := Project(s[0], axis), Project(s[1], axis)
	a, b, c := Project(t[0], axis), Project(t[1], axis), Project(t[2], axis)
	if InTriangle2(p, a, b, c) || InTriangle2(q, a, b, c) {
		return true
	}
	return segments2Intersect(p, q, a, b) ||
		segments2Intersect(p, q, b, c) ||
		segments2Intersect(p, q, c, a)
}

// TriangleOverlapsBox reports whether the closed triangle and the closed box
// share at least one point, using the separating axis test of
// Akenine-Möller.
func TriangleOverlapsBox(t Triangle, b BoundingBox) bool {
	if !b.IsValid() {
		return false
	}
	c := b.Center()
	h := b.Size().MulScalar(0.5)
	v0, v1, v2 := t[0].Sub(c), t[1].Sub(c), t[2].Sub(c)

	// Box face normals.
	tb := NewBox(v0, v1, v2)
	if tb.Min.X > h.X || tb.Max.X < -h.X ||
		tb.Min.Y > h.Y || tb.Max.Y < -h.Y ||
		tb.Min.Z > h.Z || tb.Max.Z < -h.Z {
		return false
	}

	e0, e1, e2 := v1.Sub(v0), v2.Sub(v1), v0.Sub(v2)

	// Triangle normal.
	n := e0.Cross(e1)
	if !planeOverlapsBox(n, v0, h) {
		return false
	}

	// Edge cross products.
	axes := [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	for _, e := range [3]v3.Vec{e0, e1, e2} {
		for _, u := range axes {
			a := u.Cross(e)
			if a == (v3.Vec{}) {
				continue
			}
			p0, p1, p2 := a.Dot(v0), a.Dot(v1), a.Dot(v2)
			r := h.X*math.Abs(a.X) + h.Y*math.Abs(a.Y) + h.Z*math.Abs(a.Z)
			if math.Min(p0, math.Min(p1, p2)) > r || math.Max(p0, math.Max(p1, p2)) < -r {
				return false
			}
		}
	}
	return true
}

// planeOverlapsBox tests the plane through v with normal n against the box
// centered on the origin with half extents h.
func planeOverlapsBox(n, v, h v3.Vec) bool {
	var vmin, vmax v3.Vec
	for i := 0; i < 3; i++ {
		ni, vi, hi := Component(n, i), Component(v, i), Component(h, i)
		if ni > 0 {
			vmin = WithComponent(vmin, i, -hi-vi)
			vmax = WithComponent(vmax, i, hi-vi)
		} else {
			vmin = WithComponent(vmin, i, hi-vi)
			vmax = WithComponent(vmax, i, -hi-vi)
		}
	}
	if n.Dot(vmin) > 0 {
		return false
	}
	return n.Dot(vmax) >= 0
}
