package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/facet/pkg/aabb"
	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/engine"
	"github.com/chazu/facet/pkg/geom"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kernel/sdfx"
	"github.com/chazu/facet/pkg/meshio"
	"github.com/chazu/facet/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
)

// dcelExt marks files in the binary half-edge format.
const dcelExt = ".dcel"

// App ties the mesh, index and scripting packages together behind the
// operations the commands expose.
type App struct {
	cfg    Config
	log    logrus.FieldLogger
	engine *engine.Engine
	kernel kernel.Kernel
}

// NewApp creates an App with an engine and the sdfx kernel.
func NewApp(cfg Config, log logrus.FieldLogger) *App {
	k := sdfx.New()
	return &App{
		cfg:    cfg,
		log:    log,
		kernel: k,
		engine: engine.NewEngine(
			engine.WithKernel(k),
			engine.WithChecks(cfg.Checks),
			engine.WithTimeout(cfg.EvalTimeout.Duration),
			engine.WithLogger(log),
		),
	}
}

// Load reads a mesh from an OBJ, STL or .dcel file.
func (a *App) Load(path string) (*dcel.Mesh, error) {
	start := time.Now()
	var (
		m   *dcel.Mesh
		err error
	)
	if strings.EqualFold(filepath.Ext(path), dcelExt) {
		m, err = dcel.LoadFile(path)
	} else {
		var p *meshio.Polygons
		if p, err = meshio.Load(path, a.cfg.WeldTolerance); err == nil {
			m, err = p.ToDCEL()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("facet: load %s: %w", path, err)
	}
	a.log.WithFields(logrus.Fields{
		"path":     path,
		"vertices": m.NumVertices(),
		"faces":    m.NumFaces(),
		"elapsed":  time.Since(start),
	}).Info("mesh loaded")
	return m, nil
}

// Save writes m in the format named by the extension of path.
func (a *App) Save(path string, m *dcel.Mesh) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), dcelExt) {
		err = m.SaveFile(path)
	} else {
		f := meshio.FormatOf(path)
		if f == meshio.FormatUnknown {
			return fmt.Errorf("facet: save %s: unknown mesh format", path)
		}
		err = meshio.Save(path, meshio.FromDCEL(m), f)
	}
	if err != nil {
		return fmt.Errorf("facet: save %s: %w", path, err)
	}
	a.log.WithFields(logrus.Fields{"path": path, "faces": m.NumFaces()}).Info("mesh saved")
	return nil
}

// Index builds the spatial index of m.
func (a *App) Index(m *dcel.Mesh) *aabb.Tree {
	start := time.Now()
	t := aabb.New(aabb.FromDCEL(m), a.cfg.ForDistance)
	a.log.WithFields(logrus.Fields{
		"primitives": t.NumPrimitives(),
		"skipped":    t.Skipped(),
		"elapsed":    time.Since(start),
	}).Debug("index built")
	return t
}

// Info summarizes a mesh.
type Info struct {
	Vertices, HalfEdges, Faces, Triangles int
	Closed, Manifold                      bool
	Box                                   geom.BoundingBox
	Area                                  float64
	// SceneCenter and SceneRadius frame the mesh for a viewer.
	SceneCenter v3.Vec
	SceneRadius float64
	Problems    []dcel.ValidationError
}

// Info reports the size, topology and extent of m.
func (a *App) Info(m *dcel.Mesh) Info {
	d := tessellate.NewDrawable(m)
	info := Info{
		Vertices:    m.NumVertices(),
		HalfEdges:   m.NumHalfEdges(),
		Faces:       m.NumFaces(),
		Triangles:   d.Buffers().TriangleCount(),
		Closed:      m.IsClosed(),
		Manifold:    m.IsManifold(),
		Box:         m.UpdateBoundingBox(),
		SceneCenter: d.SceneCenter(),
		SceneRadius: d.SceneRadius(),
		Problems:    dcel.Validate(m),
	}
	for f := range m.Faces() {
		info.Area += m.FaceArea(f)
	}
	return info
}

// Inside classifies each point against the closed surface m.
func (a *App) Inside(m *dcel.Mesh, pts []v3.Vec) ([]bool, error) {
	if !m.IsClosed() {
		a.log.Warn("inside query on a mesh with boundary edges; answers are unreliable")
	}
	t := a.Index(m)
	if t.NumPrimitives() == 0 {
		return nil, fmt.Errorf("facet: inside: mesh has no faces")
	}
	out := make([]bool, len(pts))
	for i, p := range pts {
		out[i] = t.IsInside(p, a.cfg.Checks)
	}
	return out, nil
}

// Nearest is the answer to a closest-point query.
type Nearest struct {
	Point    v3.Vec
	Distance float64
	Face     dcel.FaceID
	Vertex   dcel.VertexID
}

// Nearest finds the surface point, face and vertex of m nearest to p.
func (a *App) Nearest(m *dcel.Mesh, p v3.Vec) (Nearest, error) {
	t := a.Index(m)
	if t.NumPrimitives() == 0 {
		return Nearest{}, fmt.Errorf("facet: nearest: mesh has no faces")
	}
	return Nearest{
		Point:    t.NearestPoint(p),
		Distance: math.Sqrt(t.SquaredDistance(p)),
		Face:     t.NearestFace(p),
		Vertex:   t.NearestVertex(p),
	}, nil
}

// Flip flips the edge between vertices u and w, in either direction.
func (a *App) Flip(m *dcel.Mesh, u, w dcel.VertexID) error {
	if !m.HasVertex(u) || !m.HasVertex(w) {
		return fmt.Errorf("facet: flip: no vertex %d or %d", u, w)
	}
	h, ok := m.EdgeHalfEdge(u, w)
	if !ok {
		h, ok = m.EdgeHalfEdge(w, u)
	}
	if !ok {
		return fmt.Errorf("facet: flip: no edge between %d and %d", u, w)
	}
	if !m.FlipEdge(h) {
		return fmt.Errorf("facet: flip: edge %d-%d is on the boundary or not between two triangles", u, w)
	}
	m.UpdateNormals()
	return nil
}

// Box builds an axis-aligned box of the given size centered on c. With
// smooth set the box is tessellated by the kernel instead of built from
// six faces.
func (a *App) Box(c v3.Vec, size v3.Vec, quads, smooth bool) (*dcel.Mesh, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("facet: box: sizes must be positive, got %v", size)
	}
	if !smooth {
		h := size.MulScalar(0.5)
		return dcel.NewBox(geom.BoundingBox{Min: c.Sub(h), Max: c.Add(h)}, !quads), nil
	}
	s := a.kernel.Translate(a.kernel.Box(size.X, size.Y, size.Z), c.X, c.Y, c.Z)
	m, err := tessellate.Solid(a.kernel, s)
	if err != nil {
		return nil, fmt.Errorf("facet: box: %w", err)
	}
	return m, nil
}

// Evaluate runs a script against a copy of base, which may be nil.
func (a *App) Evaluate(base *dcel.Mesh, source string) (*engine.EvalResult, error) {
	res, err := a.engine.Run(base, source)
	if err != nil {
		return nil, fmt.Errorf("facet: eval: %w", err)
	}
	for _, w := range res.Warnings {
		a.log.WithField("builtin", w.Builtin).Warn(w.Message)
	}
	return res, nil
}
