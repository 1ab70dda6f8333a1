package dcel

import (
	"slices"

	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangulation splits f into triangles over its own corners. A triangle
// face is returned as is. Larger faces, convex or not, are ear-clipped in
// the coordinate plane that best preserves their shape. The result always
// has FaceDegree(f)-2 triangles with the face's winding.
func (m *Mesh) Triangulation(f FaceID) [][3]VertexID {
	vs := slices.Collect(m.FaceVertices(f))
	if len(vs) < 3 {
		return nil
	}
	if len(vs) == 3 {
		return [][3]VertexID{{vs[0], vs[1], vs[2]}}
	}
	pts := make([]v3.Vec, len(vs))
	for i, v := range vs {
		pts[i] = m.vertex(v).Coord
	}
	out := make([][3]VertexID, 0, len(vs)-2)
	for _, t := range EarClip(pts) {
		out = append(out, [3]VertexID{vs[t[0]], vs[t[1]], vs[t[2]]})
	}
	return out
}

// EarClip triangulates a simple polygon given by its corners in order and
// returns index triples into pts. If numerical degeneracy leaves no ear the
// remaining corners are fanned, so the count is always len(pts)-2.
func EarClip(pts []v3.Vec) [][3]int {
	n := len(pts)
	if n < 3 {
		return nil
	}
	axis := geom.DominantAxis(geom.PolygonNormal(pts))
	p2 := make([]geom.Point2, n)
	for i, p := range pts {
		p2[i] = geom.Project(p, axis)
	}
	// Clockwise in the projection plane flips which corners count as
	// convex.
	dir := 1.0
	if geom.SignedArea2(p2) < 0 {
		dir = -1
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	tris := make([][3]int, 0, n-2)

	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			a := idx[(i+len(idx)-1)%len(idx)]
			b := idx[i]
			c := idx[(i+1)%len(idx)]
			if dir*geom.Orient2(p2[a], p2[b], p2[c]) <= 0 {
				continue
			}
			if containsOther(p2, idx, a, b, c) {
				continue
			}
			tris = append(tris, [3]int{a, b, c})
			idx = slices.Delete(idx, i, i+1)
			clipped = true
			break
		}
		if !clipped {
			for i := 1; i+1 < len(idx); i++ {
				tris = append(tris, [3]int{idx[0], idx[i], idx[i+1]})
			}
			return tris
		}
	}
	return append(tris, [3]int{idx[0], idx[1], idx[2]})
}

// containsOther reports whether a remaining corner other than a, b, c lies
// in the candidate ear. Corners coincident with a, b or c are ignored.
func containsOther(p2 []geom.Point2, idx []int, a, b, c int) bool {
	for _, j := range idx {
		if j == a || j == b || j == c {
			continue
		}
		q := p2[j]
		if q == p2[a] || q == p2[b] || q == p2[c] {
			continue
		}
		if geom.InTriangle2(q, p2[a], p2[b], p2[c]) {
			return true
		}
	}
	return false
}
