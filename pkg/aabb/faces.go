package aabb

import (
	"math"

	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// facesOf maps primitives to their faces, keeping the first occurrence of
// each face.
func (t *Tree) facesOf(prims []int) []int {
	return lo.Uniq(lo.Map(prims, func(i int, _ int) int { return t.prims[i].Face }))
}

// faceInside reports whether every corner of every primitive of face lies
// strictly inside b.
func (t *Tree) faceInside(face int, b geom.BoundingBox) bool {
	return lo.EveryBy(t.faces[face], func(i int) bool {
		return lo.EveryBy(t.prims[i].Points[:], b.IsIntern)
	})
}

func toFaceIDs(faces []int) []dcel.FaceID {
	return lo.Map(faces, func(f int, _ int) dcel.FaceID { return dcel.FaceID(f) })
}

// ContainedFaces returns the faces with a triangle overlapping b.
func (t *Tree) ContainedFaces(b geom.BoundingBox) []dcel.FaceID {
	t.requireKind(KindDCEL)
	return toFaceIDs(t.facesOf(t.OverlappingPrimitives(b)))
}

// CompletelyContainedFaces returns the faces whose vertices all lie
// strictly inside b.
func (t *Tree) CompletelyContainedFaces(b geom.BoundingBox) []dcel.FaceID {
	t.requireKind(KindDCEL)
	faces := lo.Filter(t.facesOf(t.OverlappingPrimitives(b)), func(f int, _ int) bool {
		return t.faceInside(f, b)
	})
	return toFaceIDs(faces)
}

// IntersectedFaces returns the faces touched by the segment from p to q.
func (t *Tree) IntersectedFaces(p, q v3.Vec) []dcel.FaceID {
	t.requireKind(KindDCEL)
	return toFaceIDs(t.facesOf(t.IntersectedPrimitives(p, q)))
}

// NearestFace returns the face nearest to p.
func (t *Tree) NearestFace(p v3.Vec) dcel.FaceID {
	t.requireKind(KindDCEL)
	return dcel.FaceID(t.prims[t.NearestPrimitive(p)].Face)
}

// NearestVertex returns the vertex of the nearest face that is closest to
// p. This is not always the globally nearest vertex of the mesh.
func (t *Tree) NearestVertex(p v3.Vec) dcel.VertexID {
	t.requireKind(KindDCEL)
	face := t.prims[t.NearestPrimitive(p)].Face
	best, bestD := -1, math.Inf(1)
	for _, i := range t.faces[face] {
		pr := t.prims[i]
		for k, c := range pr.Points {
			if d := c.Sub(p).Length2(); d < bestD {
				best, bestD = pr.Vertices[k], d
			}
		}
	}
	return dcel.VertexID(best)
}

// IntersectedTriangles returns the triangle indices touched by the segment
// from p to q.
func (t *Tree) IntersectedTriangles(p, q v3.Vec) []int {
	t.requireKind(KindTriMesh)
	return t.facesOf(t.IntersectedPrimitives(p, q))
}

// NearestTriangle returns the index of the triangle nearest to p.
func (t *Tree) NearestTriangle(p v3.Vec) int {
	t.requireKind(KindTriMesh)
	return t.prims[t.NearestPrimitive(p)].Face
}

// ContainedTriangles returns the triangle indices overlapping b.
func (t *Tree) ContainedTriangles(b geom.BoundingBox) []int {
	t.requireKind(KindTriMesh)
	return t.facesOf(t.OverlappingPrimitives(b))
}

// CompletelyContainedTriangles returns the triangle indices whose corners
// all lie strictly inside b.
func (t *Tree) CompletelyContainedTriangles(b geom.BoundingBox) []int {
	t.requireKind(KindTriMesh)
	return lo.Filter(t.facesOf(t.OverlappingPrimitives(b)), func(f int, _ int) bool {
		return t.faceInside(f, b)
	})
}
