package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangle is three points in counter-clockwise order when seen from the
// side its normal points to.
type Triangle [3]v3.Vec

// Box returns the bounding box of the triangle.
func (t Triangle) Box() BoundingBox {
	return NewBox(t[0], t[1], t[2])
}

// Centroid returns the average of the three corners.
func (t Triangle) Centroid() v3.Vec {
	return t[0].Add(t[1]).Add(t[2]).MulScalar(1.0 / 3.0)
}

// Area returns the triangle area.
func (t Triangle) Area() float64 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Length() / 2
}

// Normal returns the unit normal, or the zero vector for a degenerate
// triangle.
func (t Triangle) Normal() v3.Vec {
	return Normalize(t[1].Sub(t[0]).Cross(t[2].Sub(t[0])))
}

// IsDegenerate reports whether two corners coincide or all three are
// collinear.
func (t Triangle) IsDegenerate() bool {
	if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
		return true
	}
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0])) == v3.Vec{}
}

// Normalize returns v scaled to unit length, or the zero vector if v is
// zero.
func Normalize(v v3.Vec) v3.Vec {
	l := v.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return v.MulScalar(1 / l)
}

// ClosestPoint returns the point of the closed triangle nearest to p.
// Follows the Voronoi-region walk from Ericson, Real-Time Collision
// Detection, 5.1.5.
func (t Triangle) ClosestPoint(p v3.Vec) v3.Vec {
	a, b, c := t[0], t[1], t[2]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.MulScalar(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.MulScalar(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).MulScalar(w))
	}

	denom := va + vb + vc
	if denom == 0 {
		// Degenerate triangle: fall back to the nearest edge point.
		return t.closestOnEdges(p)
	}
	v := vb / denom
	w := vc / denom
	return a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
}

func (t Triangle) closestOnEdges(p v3.Vec) v3.Vec {
	best := t[0]
	bestD := math.Inf(1)
	for i := 0; i < 3; i++ {
		q := Segment{t[i], t[(i+1)%3]}.ClosestPoint(p)
		if d := q.Sub(p).Length2(); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}

// SquaredDistance returns the squared distance from p to the triangle.
func (t Triangle) SquaredDistance(p v3.Vec) float64 {
	return t.ClosestPoint(p).Sub(p).Length2()
}
