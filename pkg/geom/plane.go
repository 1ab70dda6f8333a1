package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point2 is a point on one of the coordinate planes.
type Point2 struct {
	X, Y float64
}

// Project drops the given axis, keeping the remaining two coordinates in
// cyclic order so a polygon facing +axis stays counter-clockwise.
func Project(p v3.Vec, axis int) Point2 {
	switch axis {
	case 0:
		return Point2{p.Y, p.Z}
	case 1:
		return Point2{p.Z, p.X}
	}
	return Point2{p.X, p.Y}
}

// DominantAxis returns the axis along which n has its largest magnitude.
func DominantAxis(n v3.Vec) int {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	}
	return 2
}

// Orient2 is twice the signed area of (a, b, c); positive when the turn is
// counter-clockwise.
func Orient2(a, b, c Point2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// InTriangle2 reports whether p lies in the closed triangle (a, b, c) of
// either winding.
func InTriangle2(p, a, b, c Point2) bool {
	d1 := sign(Orient2(a, b, p))
	d2 := sign(Orient2(b, c, p))
	d3 := sign(Orient2(c, a, p))
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// SignedArea2 returns the signed area of a closed 2D polygon.
func SignedArea2(pts []Point2) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

// PolygonNormal returns the Newell normal of a closed polygon. Its length
// is twice the polygon's area; it is zero for degenerate input.
func PolygonNormal(pts []v3.Vec) v3.Vec {
	var n v3.Vec
	for i := range pts {
		c, d := pts[i], pts[(i+1)%len(pts)]
		n.X += (c.Y - d.Y) * (c.Z + d.Z)
		n.Y += (c.Z - d.Z) * (c.X + d.X)
		n.Z += (c.X - d.X) * (c.Y + d.Y)
	}
	return n
}

func onSegment2(a, b, p Point2) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

func segments2Intersect(p1, p2, q1, q2 Point2) bool {
	d1 := sign(Orient2(q1, q2, p1))
	d2 := sign(Orient2(q1, q2, p2))
	d3 := sign(Orient2(p1, p2, q1))
	d4 := sign(Orient2(p1, p2, q2))
	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment2(q1, q2, p1)) ||
		(d2 == 0 && onSegment2(q1, q2, p2)) ||
		(d3 == 0 && onSegment2(p1, p2, q1)) ||
		(d4 == 0 && onSegment2(p1, p2, q2))
}
