// Package geom is the small geometric kernel shared by the mesh and the
// spatial index: bounding boxes, triangles, segments and the closest-point,
// intersection and overlap predicates evaluated on them.
//
// Points and vectors are sdfx v3.Vec values.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BoundingBox is an axis-aligned box. A box whose Min exceeds its Max on
// any axis is invalid; EmptyBox returns the canonical invalid box.
type BoundingBox struct {
	Min v3.Vec
	Max v3.Vec
}

// EmptyBox returns a box that contains nothing. Including any point into
// it yields the degenerate box around that point.
func EmptyBox() BoundingBox {
	inf := math.Inf(1)
	return BoundingBox{
		Min: v3.Vec{X: inf, Y: inf, Z: inf},
		Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// NewBox returns the smallest box containing the given points.
func NewBox(pts ...v3.Vec) BoundingBox {
	b := EmptyBox()
	for _, p := range pts {
		b = b.Include(p)
	}
	return b
}

// FromBox3 converts an sdfx box.
func FromBox3(b sdf.Box3) BoundingBox {
	return BoundingBox{Min: b.Min, Max: b.Max}
}

// FromArrays converts a kernel.Solid style (min, max) pair.
func FromArrays(min, max [3]float64) BoundingBox {
	return BoundingBox{
		Min: v3.Vec{X: min[0], Y: min[1], Z: min[2]},
		Max: v3.Vec{X: max[0], Y: max[1], Z: max[2]},
	}
}

// Box3 converts to an sdfx box.
func (b BoundingBox) Box3() sdf.Box3 {
	return sdf.Box3{Min: b.Min, Max: b.Max}
}

// IsValid reports whether Min <= Max on every axis.
func (b BoundingBox) IsValid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Include grows the box to contain p.
func (b BoundingBox) Include(p v3.Vec) BoundingBox {
	return BoundingBox{
		Min: v3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: v3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Extend returns the union of two boxes.
func (b BoundingBox) Extend(o BoundingBox) BoundingBox {
	if !o.IsValid() {
		return b
	}
	return b.Include(o.Min).Include(o.Max)
}

// Contains reports whether p lies in the closed box.
func (b BoundingBox) Contains(p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IsIntern reports whether p lies strictly inside the box.
func (b BoundingBox) IsIntern(p v3.Vec) bool {
	return p.X > b.Min.X && p.X < b.Max.X &&
		p.Y > b.Min.Y && p.Y < b.Max.Y &&
		p.Z > b.Min.Z && p.Z < b.Max.Z
}

// Overlaps reports whether the closed boxes share at least one point.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Size returns the extent along each axis.
func (b BoundingBox) Size() v3.Vec {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() v3.Vec {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Diag returns the length of the box diagonal, 0 for an invalid box.
func (b BoundingBox) Diag() float64 {
	if !b.IsValid() {
		return 0
	}
	return b.Size().Length()
}

// LongestAxis returns 0, 1 or 2 for the axis with the largest extent.
func (b BoundingBox) LongestAxis() int {
	s := b.Size()
	switch {
	case s.Y > s.X && s.Y >= s.Z:
		return 1
	case s.Z > s.X && s.Z > s.Y:
		return 2
	}
	return 0
}

// SquaredDistance returns the squared distance from p to the closed box,
// zero when p is inside.
func (b BoundingBox) SquaredDistance(p v3.Vec) float64 {
	dx := math.Max(0, math.Max(b.Min.X-p.X, p.X-b.Max.X))
	dy := math.Max(0, math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y))
	dz := math.Max(0, math.Max(b.Min.Z-p.Z, p.Z-b.Max.Z))
	return dx*dx + dy*dy + dz*dz
}

// Component returns the i-th coordinate of v (0 = X, 1 = Y, 2 = Z).
func Component(v v3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

// WithComponent returns v with its i-th coordinate replaced.
func WithComponent(v v3.Vec, i int, x float64) v3.Vec {
	switch i {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
	return v
}
