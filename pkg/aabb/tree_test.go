package aabb

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/geom"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/trimesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

// unitCube is the triangulated cube [-0.5,0.5]^3.
func unitCube() *dcel.Mesh { return dcel.NewCube(vec(0, 0, 0), 1) }

// terrain is a height field of n x n quads, two triangles each.
func terrain(n int) *trimesh.Mesh {
	m := &trimesh.Mesh{}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			x, y := float64(i)/float64(n)*4, float64(j)/float64(n)*4
			m.Vertices = append(m.Vertices, vec(x, y, math.Sin(x)*math.Cos(y)))
		}
	}
	at := func(i, j int) int { return j*(n+1) + i }
	for j := range n {
		for i := range n {
			m.Triangles = append(m.Triangles,
				[3]int{at(i, j), at(i+1, j), at(i+1, j+1)},
				[3]int{at(i, j), at(i+1, j+1), at(i, j+1)})
		}
	}
	return m
}

func randomPoint(r *rand.Rand, b geom.BoundingBox, pad float64) v3.Vec {
	s := b.Size()
	return vec(
		b.Min.X-pad+r.Float64()*(s.X+2*pad),
		b.Min.Y-pad+r.Float64()*(s.Y+2*pad),
		b.Min.Z-pad+r.Float64()*(s.Z+2*pad),
	)
}

func TestBuild(t *testing.T) {
	tree := New(FromDCEL(unitCube()), false)
	assert.Equal(t, KindDCEL, tree.Kind())
	assert.Equal(t, 12, tree.NumPrimitives())
	assert.Equal(t, 0, tree.Skipped())
	assert.Equal(t, vec(-0.5, -0.5, -0.5), tree.BoundingBox().Min)
	assert.False(t, tree.ForDistanceQueries())

	big := New(FromTriMesh(terrain(30)), true)
	require.Equal(t, 1800, big.NumPrimitives())
	// Median splits keep the hierarchy balanced.
	assert.LessOrEqual(t, big.root.depth(), 11)
}

func TestBuildDoesNotTouchSourceBox(t *testing.T) {
	m := unitCube()
	m.SetCoord(0, vec(-5, -5, -5))
	m.SetCoord(0, vec(-0.5, -0.5, -0.5))
	stale := m.BoundingBox()
	require.Equal(t, vec(-5, -5, -5), stale.Min)

	tree := New(FromDCEL(m), false)
	assert.Equal(t, vec(-0.5, -0.5, -0.5), tree.BoundingBox().Min)
	assert.Equal(t, stale, m.BoundingBox(), "building a tree must not refresh the mesh box")
}

func TestIsInsideCube(t *testing.T) {
	for _, forDistance := range []bool{false, true} {
		tree := New(FromDCEL(unitCube()), forDistance)
		assert.True(t, tree.IsInside(vec(0, 0, 0), 101))
		assert.False(t, tree.IsInside(vec(10, 10, 10), 101))
		assert.True(t, tree.IsInside(vec(0.4, -0.3, 0.1), 101))
		assert.False(t, tree.IsInside(vec(0.6, 0, 0), 101))

		assert.True(t, tree.IsInsidePseudoRandom(vec(0, 0, 0), 101))
		assert.False(t, tree.IsInsidePseudoRandom(vec(10, 10, 10), 101))
	}
}

func TestIsInsideSeeded(t *testing.T) {
	tree := New(FromDCEL(dcel.NewTetrahedron(vec(0, 0, 0), vec(2, 0, 0), vec(0, 2, 0), vec(0, 0, 2))), false)
	tree.Seed(42)
	assert.True(t, tree.IsInside(vec(0.3, 0.3, 0.3), 11))
	assert.False(t, tree.IsInside(vec(1, 1, 1), 11))
	assert.False(t, tree.IsInside(vec(-0.1, 0.5, 0.5), 11))
}

func TestIsInsideRequiresOddChecks(t *testing.T) {
	tree := New(FromDCEL(unitCube()), false)
	assert.Panics(t, func() { tree.IsInside(vec(0, 0, 0), 100) })
	assert.Panics(t, func() { tree.IsInsidePseudoRandom(vec(0, 0, 0), 0) })
	assert.Panics(t, func() { tree.IsInside(vec(0, 0, 0), -3) })
	assert.NotPanics(t, func() { tree.IsInside(vec(0, 0, 0), 1) })
}

func TestRayParity(t *testing.T) {
	tree := New(FromDCEL(unitCube()), false)
	// Leaving from inside crosses the surface once.
	assert.Equal(t, 1, tree.NumberIntersectedPrimitivesRay(geom.RayThrough(vec(0, 0, 0), vec(5, 0.1, 0.2))))
	// From outside the ray enters and leaves.
	assert.Equal(t, 2, tree.NumberIntersectedPrimitivesRay(geom.RayThrough(vec(10, 10, 10), vec(0, 0.1, 0.2))))
	// Pointing away never reaches the cube.
	assert.Equal(t, 0, tree.NumberIntersectedPrimitivesRay(geom.RayThrough(vec(10, 10, 10), vec(20, 20, 21))))
}

func TestSegmentAndBoxCounts(t *testing.T) {
	tree := New(FromDCEL(unitCube()), false)
	assert.Equal(t, 0, tree.NumberIntersectedPrimitives(vec(0, 0, 0), vec(0.1, 0.1, 0.1)))
	assert.Equal(t, 2, tree.NumberIntersectedPrimitives(vec(-2, 0.1, 0.2), vec(2, 0.1, 0.2)))
	assert.Equal(t, 1, tree.NumberIntersectedPrimitives(vec(0, 0.1, 0.2), vec(2, 0.1, 0.2)))

	assert.Equal(t, 12, tree.NumberIntersectedPrimitivesBox(geom.NewBox(vec(-1, -1, -1), vec(1, 1, 1))))
	assert.Equal(t, 0, tree.NumberIntersectedPrimitivesBox(geom.NewBox(vec(-0.1, -0.1, -0.1), vec(0.1, 0.1, 0.1))))
	assert.Equal(t, 0, tree.NumberIntersectedPrimitivesBox(geom.NewBox(vec(2, 2, 2), vec(3, 3, 3))))
}

func TestCountsMatchLinearScan(t *testing.T) {
	src := terrain(12)
	tree := New(FromTriMesh(src), false)
	r := rand.New(rand.NewPCG(1, 2))
	box := tree.BoundingBox()

	for range 200 {
		p, q := randomPoint(r, box, 1), randomPoint(r, box, 1)
		want := 0
		for i := range tree.NumPrimitives() {
			if geom.SegmentIntersectsTriangle(geom.Segment{p, q}, tree.Primitive(i).Points) {
				want++
			}
		}
		require.Equal(t, want, tree.NumberIntersectedPrimitives(p, q), "segment %v %v", p, q)

		b := geom.NewBox(randomPoint(r, box, 0), randomPoint(r, box, 0))
		want = 0
		for i := range tree.NumPrimitives() {
			if geom.TriangleOverlapsBox(tree.Primitive(i).Points, b) {
				want++
			}
		}
		require.Equal(t, want, tree.NumberIntersectedPrimitivesBox(b), "box %+v", b)
	}
}

func TestNearestPointIsOnSurface(t *testing.T) {
	src := terrain(15)
	plain := New(FromTriMesh(src), false)
	fast := New(FromTriMesh(src), true)
	r := rand.New(rand.NewPCG(3, 4))

	for range 300 {
		p := randomPoint(r, plain.BoundingBox(), 2)
		q := fast.NearestPoint(p)
		d2 := fast.SquaredDistance(p)
		assert.InDelta(t, q.Sub(p).Length2(), d2, 1e-9)
		assert.InDelta(t, plain.SquaredDistance(p), d2, 1e-12)
		assert.Equal(t, plain.NearestPrimitive(p), fast.NearestPrimitive(p))

		best := math.Inf(1)
		for i := range plain.NumPrimitives() {
			best = math.Min(best, plain.Primitive(i).Points.SquaredDistance(p))
		}
		require.InDelta(t, best, d2, 1e-12)
	}

	cube := New(FromDCEL(unitCube()), true)
	assert.InDelta(t, 0.25, cube.SquaredDistance(vec(0, 0, 0)), 1e-12)
	assert.InDelta(t, 2.25, cube.SquaredDistance(vec(0, 0, 2)), 1e-12)
	assert.InDelta(t, 0, cube.NearestPoint(vec(0.1, 0.2, 2)).Sub(vec(0.1, 0.2, 0.5)).Length(), 1e-12)
}

func TestEmptyTree(t *testing.T) {
	tree := New(FromTriMesh(&trimesh.Mesh{}), true)
	assert.Equal(t, 0, tree.NumPrimitives())
	assert.True(t, math.IsInf(tree.SquaredDistance(vec(0, 0, 0)), 1))
	assert.Equal(t, 0, tree.NumberIntersectedPrimitives(vec(0, 0, 0), vec(1, 1, 1)))
	assert.Panics(t, func() { tree.NearestPoint(vec(0, 0, 0)) })
}

func TestDegenerateTrianglesAreSkipped(t *testing.T) {
	m := dcel.NewTetrahedron(vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0), vec(0, 0, 1))
	a := m.AddVertex(vec(3, 0, 0))
	b := m.AddVertex(vec(4, 0, 0))
	c := m.AddVertex(vec(5, 0, 0))
	sliver, err := m.AddFace(a, b, c)
	require.NoError(t, err)

	tree := New(FromDCEL(m), false)
	assert.Equal(t, 4, tree.NumPrimitives())
	assert.Equal(t, 1, tree.Skipped())
	assert.Nil(t, tree.PrimitivesOfFace(int(sliver)))
	assert.Equal(t, 0, tree.NumberIntersectedPrimitives(vec(4, -1, 0), vec(4, 1, 0)))
	assert.Equal(t, 0, tree.NumberIntersectedPrimitivesBox(geom.NewBox(vec(2.5, -1, -1), vec(5.5, 1, 1))))

	tm := &trimesh.Mesh{
		Vertices:  []v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0), vec(0, 0, 0)},
		Triangles: [][3]int{{0, 1, 2}, {0, 0, 1}, {0, 3, 1}},
	}
	tt := New(FromTriMesh(tm), false)
	assert.Equal(t, 1, tt.NumPrimitives())
	assert.Equal(t, 2, tt.Skipped())
}

func TestKindMismatchPanics(t *testing.T) {
	d := New(FromDCEL(unitCube()), false)
	tm, _ := trimesh.FromDCEL(unitCube())
	tr := New(FromTriMesh(tm), false)

	assert.Panics(t, func() { tr.NearestFace(vec(0, 0, 0)) })
	assert.Panics(t, func() { tr.NearestVertex(vec(0, 0, 0)) })
	assert.Panics(t, func() { tr.ContainedFaces(tr.BoundingBox()) })
	assert.Panics(t, func() { tr.IntersectedFaces(vec(0, 0, 0), vec(1, 1, 1)) })
	assert.Panics(t, func() { d.NearestTriangle(vec(0, 0, 0)) })
	assert.Panics(t, func() { d.IntersectedTriangles(vec(0, 0, 0), vec(1, 1, 1)) })
	assert.Panics(t, func() { d.ContainedTriangles(d.BoundingBox()) })
	assert.NotPanics(t, func() { d.NearestFace(vec(0, 0, 0)) })
}

func TestDCELFaceQueries(t *testing.T) {
	// Quads: faces 0..5 are z min, z max, y min, y max, x min, x max.
	m := dcel.NewBox(geom.NewBox(vec(-0.5, -0.5, -0.5), vec(0.5, 0.5, 0.5)), false)
	tree := New(FromDCEL(m), true)
	require.Equal(t, 12, tree.NumPrimitives())

	all := tree.ContainedFaces(geom.NewBox(vec(-1, -1, -1), vec(1, 1, 1)))
	assert.ElementsMatch(t, []dcel.FaceID{0, 1, 2, 3, 4, 5}, all)

	top := tree.CompletelyContainedFaces(geom.NewBox(vec(-1, -1, 0.4), vec(1, 1, 0.6)))
	assert.Equal(t, []dcel.FaceID{1}, top)
	// Touching the boundary is not strictly inside.
	assert.Empty(t, tree.CompletelyContainedFaces(geom.NewBox(vec(-0.5, -0.5, 0.4), vec(0.5, 0.5, 0.6))))

	hit := tree.IntersectedFaces(vec(-2, 0.1, 0.2), vec(2, 0.1, 0.2))
	assert.ElementsMatch(t, []dcel.FaceID{4, 5}, hit)

	assert.Equal(t, dcel.FaceID(1), tree.NearestFace(vec(0, 0, 2)))
	v := tree.NearestVertex(vec(0.4, 0.45, 2))
	assert.Equal(t, vec(0.5, 0.5, 0.5), m.Coord(v))

	for f := range m.Faces() {
		prims := tree.PrimitivesOfFace(int(f))
		require.Len(t, prims, 2)
		for _, i := range prims {
			_, face := tree.Origin(i)
			assert.Equal(t, int(f), face)
		}
	}
	for vid := range m.Vertices() {
		got, ok := tree.VertexAt(m.Coord(vid))
		require.True(t, ok)
		assert.Equal(t, int(vid), got)
	}
	_, ok := tree.VertexAt(vec(9, 9, 9))
	assert.False(t, ok)
}

func TestNearestVertexIsLocalToNearestFace(t *testing.T) {
	// A large triangle near the query and a far vertex of a second triangle
	// sitting closer to the query than any corner of the first.
	m := dcel.New()
	a := m.AddVertex(vec(-10, -10, 0))
	b := m.AddVertex(vec(10, -10, 0))
	c := m.AddVertex(vec(0, 10, 0))
	d := m.AddVertex(vec(0, 0, 3))
	e := m.AddVertex(vec(1, 0, 30))
	f := m.AddVertex(vec(0, 1, 30))
	_, err := m.AddFace(a, b, c)
	require.NoError(t, err)
	_, err = m.AddFace(d, e, f)
	require.NoError(t, err)

	tree := New(FromDCEL(m), false)
	q := vec(0, 0, 1)
	assert.Equal(t, dcel.FaceID(0), tree.NearestFace(q))
	// d is the closest vertex of the mesh, but not of the nearest face.
	assert.NotEqual(t, d, tree.NearestVertex(q))
	assert.Contains(t, []dcel.VertexID{a, b, c}, tree.NearestVertex(q))
}

func TestTriMeshQueries(t *testing.T) {
	tm, faces := trimesh.FromDCEL(unitCube())
	tree := New(FromTriMesh(tm), false)
	assert.Equal(t, KindTriMesh, tree.Kind())

	hit := tree.IntersectedTriangles(vec(-2, 0.1, 0.2), vec(2, 0.1, 0.2))
	assert.Len(t, hit, 2)
	for _, i := range hit {
		assert.InDelta(t, 0.5, math.Abs(tm.Triangle(i).Centroid().X), 1e-12)
	}

	n := tree.NearestTriangle(vec(0.1, 0.1, 3))
	assert.InDelta(t, 0.5, tm.Triangle(n).Centroid().Z, 1e-12)
	assert.Contains(t, []dcel.FaceID{2, 3}, faces[n], "top of the cube")

	assert.Len(t, tree.ContainedTriangles(geom.NewBox(vec(-1, -1, -1), vec(1, 1, 1))), 12)
	inside := tree.CompletelyContainedTriangles(geom.NewBox(vec(-1, -1, 0.4), vec(1, 1, 0.6)))
	assert.Len(t, inside, 2)
}

func TestKernelMeshSource(t *testing.T) {
	tm, _ := trimesh.FromDCEL(unitCube())
	km := &kernel.Mesh{}
	for _, v := range tm.Vertices {
		km.Vertices = append(km.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	for _, tri := range tm.Triangles {
		km.Indices = append(km.Indices, uint32(tri[0]), uint32(tri[1]), uint32(tri[2]))
	}
	require.NoError(t, km.Validate())

	tree := New(FromMesh(km), true)
	assert.Equal(t, KindMesh, tree.Kind())
	assert.Equal(t, 12, tree.NumPrimitives())
	assert.True(t, tree.IsInside(vec(0, 0, 0), 101))
	assert.False(t, tree.IsInside(vec(0, 0, 3), 101))
	assert.Panics(t, func() { tree.NearestFace(vec(0, 0, 0)) })
	assert.Panics(t, func() { tree.NearestTriangle(vec(0, 0, 0)) })
}

func TestCloneIsIndependent(t *testing.T) {
	src := unitCube()
	tree := New(FromDCEL(src), true)
	c := tree.Clone()

	// Edits to the source after building are not seen by either tree.
	src.Translate(vec(100, 0, 0))

	assert.Equal(t, tree.NumPrimitives(), c.NumPrimitives())
	assert.Equal(t, tree.Kind(), c.Kind())
	assert.True(t, c.ForDistanceQueries())
	assert.NotSame(t, tree.root, c.root)
	assert.True(t, c.IsInside(vec(0, 0, 0), 51))
	assert.InDelta(t, tree.SquaredDistance(vec(0, 0, 2)), c.SquaredDistance(vec(0, 0, 2)), 0)
	assert.Equal(t, tree.PrimitivesOfFace(3), c.PrimitivesOfFace(3))
}

func TestBoundaryPoint(t *testing.T) {
	b := geom.NewBox(vec(0, 0, 0), vec(1, 2, 3))
	tests := []struct {
		side int
		want v3.Vec
	}{
		{0, vec(0, 1, 1.5)},
		{1, vec(0.5, 0, 1.5)},
		{2, vec(0.5, 1, 0)},
		{3, vec(1, 1, 1.5)},
		{4, vec(0.5, 2, 1.5)},
		{5, vec(0.5, 1, 3)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, boundaryPoint(b, tt.side, 0.5, 0.5), "side %d", tt.side)
	}
}
