// Package tessellate turns meshes into flat draw buffers and kernel solids
// into half-edge meshes. Buffers are produced on explicit request only: a
// Drawable keeps showing the state of its mesh as of the last Update call,
// however the mesh has been edited since.
package tessellate

import (
	"fmt"
	"image/color"

	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/geom"
	"github.com/chazu/facet/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

func float3(v v3.Vec) []float32 {
	return []float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func rgbaBytes(cs []color.RGBA) []uint8 {
	return lo.FlatMap(cs, func(c color.RGBA, _ int) []uint8 { return []uint8{c.R, c.G, c.B, c.A} })
}

// Update flattens m into draw buffers: one entry per live vertex in id
// order, and one triangle per piece of each face's triangulation carrying
// the face normal, color and id. Normals are copied as stored, so callers
// run UpdateNormals first after editing.
func Update(m *dcel.Mesh) *kernel.Mesh {
	out := &kernel.Mesh{}
	dense := make(map[dcel.VertexID]uint32, m.NumVertices())
	colors := make([]color.RGBA, 0, m.NumVertices())
	for v := range m.Vertices() {
		vx := m.Vertex(v)
		dense[v] = uint32(len(colors))
		out.Vertices = append(out.Vertices, float3(vx.Coord)...)
		out.Normals = append(out.Normals, float3(vx.Normal)...)
		colors = append(colors, vx.Color)
	}
	out.Colors = rgbaBytes(colors)

	var triColors []color.RGBA
	for f := range m.Faces() {
		face := m.Face(f)
		for _, t := range m.Triangulation(f) {
			out.Indices = append(out.Indices, dense[t[0]], dense[t[1]], dense[t[2]])
			out.TriangleNormals = append(out.TriangleNormals, float3(face.Normal)...)
			out.TriangleFaces = append(out.TriangleFaces, int32(f))
			triColors = append(triColors, face.Color)
		}
	}
	out.TriangleColors = rgbaBytes(triColors)
	return out
}

// Drawable holds the draw buffers of one mesh.
type Drawable struct {
	mesh *dcel.Mesh
	buf  *kernel.Mesh
	box  geom.BoundingBox
}

// NewDrawable returns a drawable with buffers already built.
func NewDrawable(m *dcel.Mesh) *Drawable {
	d := &Drawable{mesh: m}
	d.Update()
	return d
}

// Update rebuilds the buffers from the current state of the mesh.
func (d *Drawable) Update() {
	d.buf = Update(d.mesh)
	d.box = d.mesh.UpdateBoundingBox()
}

// Buffers returns the buffers built by the last Update.
func (d *Drawable) Buffers() *kernel.Mesh { return d.buf }

// TriangleFace returns the face drawn by buffer triangle i.
func (d *Drawable) TriangleFace(i int) dcel.FaceID {
	return dcel.FaceID(d.buf.TriangleFaces[i])
}

// SceneCenter returns the center of the mesh box, the origin when empty.
func (d *Drawable) SceneCenter() v3.Vec {
	if !d.box.IsValid() {
		return v3.Vec{}
	}
	return d.box.Center()
}

// SceneRadius returns half the diagonal of the mesh box.
func (d *Drawable) SceneRadius() float64 {
	return d.box.Diag() / 2
}

// ToDCEL builds a half-edge mesh from a flat indexed mesh, copying its
// vertex colors when present and computing normals.
func ToDCEL(km *kernel.Mesh) (*dcel.Mesh, error) {
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	coords := make([]v3.Vec, km.VertexCount())
	for i := range coords {
		coords[i] = km.Vertex(i)
	}
	faces := make([][]int, km.TriangleCount())
	for i := range faces {
		t := km.Triangle(i)
		faces[i] = t[:]
	}
	m, err := dcel.FromVectors(coords, faces)
	if err != nil {
		return nil, fmt.Errorf("tessellate: mesh %q: %w", km.Name, err)
	}
	if len(km.Colors) == 4*len(coords) {
		for i := range coords {
			c := km.Colors[4*i : 4*i+4]
			m.SetVertexColor(dcel.VertexID(i), color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
	}
	m.UpdateNormals()
	return m, nil
}

// Solid tessellates a kernel solid into a half-edge mesh.
func Solid(k kernel.Kernel, s kernel.Solid) (*dcel.Mesh, error) {
	km, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed: %w", err)
	}
	return ToDCEL(km)
}
