package meshio

import (
	"math"

	"github.com/chazu/facet/pkg/geom"
	"github.com/chazu/facet/pkg/trimesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
)

// minWeldTolerance keeps query rectangles from collapsing to zero volume.
const minWeldTolerance = 1e-12

type weldPoint struct {
	index int
	at    v3.Vec
	rect  rtreego.Rect
}

func (w *weldPoint) Bounds() rtreego.Rect { return w.rect }

func point(v v3.Vec) rtreego.Point { return rtreego.Point{v.X, v.Y, v.Z} }

// Welder assigns shared vertex indices to points closer than a tolerance.
type Welder struct {
	tol      float64
	tree     *rtreego.Rtree
	Vertices []v3.Vec
}

// NewWelder returns an empty welder.
func NewWelder(tol float64) *Welder {
	return &Welder{
		tol:  math.Max(tol, minWeldTolerance),
		tree: rtreego.NewTree(3, 25, 50),
	}
}

// Index returns the index of the first recorded vertex within the
// tolerance of v, recording v when there is none.
func (w *Welder) Index(v v3.Vec) int {
	best, bestD := -1, math.Inf(1)
	for _, s := range w.tree.SearchIntersect(point(v).ToRect(w.tol)) {
		wp := s.(*weldPoint)
		if d := wp.at.Sub(v).Length(); d <= w.tol && (d < bestD || d == bestD && wp.index < best) {
			best, bestD = wp.index, d
		}
	}
	if best >= 0 {
		return best
	}
	wp := &weldPoint{index: len(w.Vertices), at: v, rect: point(v).ToRect(minWeldTolerance)}
	w.tree.Insert(wp)
	w.Vertices = append(w.Vertices, v)
	return wp.index
}

// Weld merges the corners of a triangle soup that lie within tol of each
// other into an indexed mesh. Triangles that collapse onto a repeated index
// are dropped; their corners stay in the vertex list.
func Weld(tris []geom.Triangle, tol float64) *trimesh.Mesh {
	w := NewWelder(tol)
	m := &trimesh.Mesh{Triangles: make([][3]int, 0, len(tris))}
	for _, t := range tris {
		idx := [3]int{w.Index(t[0]), w.Index(t[1]), w.Index(t[2])}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2] {
			continue
		}
		m.Triangles = append(m.Triangles, idx)
	}
	m.Vertices = w.Vertices
	return m
}
