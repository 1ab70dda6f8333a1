package engine

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/chazu/facet/pkg/aabb"
	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/geom"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/tessellate"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or direction.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid is an untessellated kernel solid.
type sexpSolid struct {
	solid kernel.Solid
	what  string
}

func (v *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(shape " + v.what + ")"
}
func (v *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool reads a zygomys boolean; nil counts as false.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected a shape, got %T", s)
}

// solidAndVec3 reads the (shape vec3) argument pair of shape-move and
// shape-rotate.
func solidAndVec3(builtin string, args []zygo.Sexp) (kernel.Solid, v3.Vec, error) {
	if len(args) != 2 {
		return nil, v3.Vec{}, fmt.Errorf("%s requires a shape and a vec3, got %d arguments", builtin, len(args))
	}
	sol, err := toSolid(args[0])
	if err != nil {
		return nil, v3.Vec{}, fmt.Errorf("%s: %w", builtin, err)
	}
	v, err := toVec3(args[1])
	if err != nil {
		return nil, v3.Vec{}, fmt.Errorf("%s: %w", builtin, err)
	}
	return sol, v, nil
}

// toPoint accepts either one vec3 or three numbers.
func toPoint(args []zygo.Sexp) (v3.Vec, error) {
	switch len(args) {
	case 1:
		return toVec3(args[0])
	case 3:
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return v3.Vec{}, err
			}
			c[i] = f
		}
		return v3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
	}
	return v3.Vec{}, fmt.Errorf("expected a vec3 or three numbers, got %d arguments", len(args))
}

// toAxis converts :x, :y or :z to an axis index.
func toAxis(s zygo.Sexp) (int, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	switch name {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// optFloat reads keyword name as a number, falling back to def.
func optFloat(pa kwArgs, name string, def float64) (float64, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// optVec3 reads keyword name as a vec3, falling back to def.
func optVec3(pa kwArgs, name string, def v3.Vec) (v3.Vec, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	p, err := toVec3(v)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

func sexpInt(n int) zygo.Sexp       { return &zygo.SexpInt{Val: int64(n)} }
func sexpFloat(f float64) zygo.Sexp { return &zygo.SexpFloat{Val: f} }
func sexpBool(b bool) zygo.Sexp     { return &zygo.SexpBool{Val: b} }

func faceList(fs []dcel.FaceID) zygo.Sexp {
	out := make([]zygo.Sexp, len(fs))
	for i, f := range fs {
		out[i] = sexpInt(int(f))
	}
	return zygo.MakeList(out)
}

// ---------------------------------------------------------------------------
// Session state
// ---------------------------------------------------------------------------

// session is the state shared by the builtins of one evaluation.
type session struct {
	mesh   *dcel.Mesh
	kernel kernel.Kernel
	checks int

	// tree indexes mesh; nil after any edit.
	tree     *aabb.Tree
	warnings []EvalWarning
}

func newSession(base *dcel.Mesh, k kernel.Kernel, checks int) *session {
	m := dcel.New()
	if base != nil {
		m = base.Clone()
	}
	return &session{mesh: m, kernel: k, checks: checks}
}

// edited drops the cached spatial index.
func (s *session) edited() { s.tree = nil }

func (s *session) warn(builtin, format string, args ...any) {
	s.warnings = append(s.warnings, EvalWarning{Builtin: builtin, Message: fmt.Sprintf(format, args...)})
}

// index returns the spatial index of the current mesh, building it on
// first use after an edit.
func (s *session) index() *aabb.Tree {
	if s.tree == nil {
		s.tree = aabb.New(aabb.FromDCEL(s.mesh), true)
	}
	return s.tree
}

// indexNonEmpty is index for queries that need at least one triangle.
func (s *session) indexNonEmpty(builtin string) (*aabb.Tree, error) {
	t := s.index()
	if t.NumPrimitives() == 0 {
		return nil, fmt.Errorf("%s: mesh has no faces", builtin)
	}
	return t, nil
}

func (s *session) vertexArg(builtin string, a zygo.Sexp) (dcel.VertexID, error) {
	n, err := toInt(a)
	if err != nil {
		return dcel.NoVertex, fmt.Errorf("%s: vertex: %w", builtin, err)
	}
	if !s.mesh.HasVertex(dcel.VertexID(n)) {
		return dcel.NoVertex, fmt.Errorf("%s: no vertex %d", builtin, n)
	}
	return dcel.VertexID(n), nil
}

func (s *session) faceArg(builtin string, a zygo.Sexp) (dcel.FaceID, error) {
	n, err := toInt(a)
	if err != nil {
		return dcel.NoFace, fmt.Errorf("%s: face: %w", builtin, err)
	}
	if !s.mesh.HasFace(dcel.FaceID(n)) {
		return dcel.NoFace, fmt.Errorf("%s: no face %d", builtin, n)
	}
	return dcel.FaceID(n), nil
}

// merge copies src into the session mesh and returns the new face ids.
func (s *session) merge(src *dcel.Mesh) []dcel.FaceID {
	ids := make(map[dcel.VertexID]dcel.VertexID, src.NumVertices())
	for v := range src.Vertices() {
		vx := src.Vertex(v)
		ids[v] = s.mesh.AddVertex(vx.Coord)
		s.mesh.SetVertexColor(ids[v], vx.Color)
	}
	var out []dcel.FaceID
	for f := range src.Faces() {
		var vs []dcel.VertexID
		for v := range src.FaceVertices(f) {
			vs = append(vs, ids[v])
		}
		// Fresh vertices cannot collide with existing edges.
		id, err := s.mesh.AddFace(vs...)
		if err != nil {
			panic(fmt.Sprintf("engine: merge: %v", err))
		}
		s.mesh.SetFaceColor(id, src.Face(f).Color)
		out = append(out, id)
	}
	s.edited()
	return out
}

// transform moves every vertex through m.
func (s *session) transform(m sdf.M44) {
	for v := range s.mesh.Vertices() {
		s.mesh.SetCoord(v, m.MulPosition(s.mesh.Coord(v)))
	}
	s.mesh.UpdateBoundingBox()
	s.edited()
}

// shape builds a primitive and applies the :rotate (Euler degrees) and :at
// placement keywords, rotating first.
func (s *session) shape(builtin string, build func(*session, kwArgs) (kernel.Solid, error), args []zygo.Sexp) (kernel.Solid, error) {
	pa := parseArgs(args)
	sol, err := build(s, pa)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", builtin, err)
	}
	rot, err := optVec3(pa, "rotate", v3.Vec{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", builtin, err)
	}
	if rot != (v3.Vec{}) {
		sol = s.kernel.Rotate(sol, rot.X, rot.Y, rot.Z)
	}
	at, err := optVec3(pa, "at", v3.Vec{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", builtin, err)
	}
	if at != (v3.Vec{}) {
		sol = s.kernel.Translate(sol, at.X, at.Y, at.Z)
	}
	return sol, nil
}

// solid tessellates a kernel solid and merges it into the mesh.
func (s *session) solid(builtin string, sol kernel.Solid) (zygo.Sexp, error) {
	m, err := tessellate.Solid(s.kernel, sol)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", builtin, err)
	}
	return faceList(s.merge(m)), nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all facet DSL builtins into a zygomys
// environment. The builtins edit and query the session mesh.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *session) {
	registerConstruction(env, s)
	registerEditing(env, s)
	registerSolids(env, s)
	registerQueries(env, s)
}

func registerConstruction(env *zygo.Zlisp, s *session) {
	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: p}, nil
	})

	// (vertex 0 0 1) or (vertex (vec3 0 0 1))
	env.AddFunction("vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: %w", err)
		}
		s.edited()
		return sexpInt(int(s.mesh.AddVertex(p))), nil
	})

	// (face a b c ...)
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		vs := make([]dcel.VertexID, len(args))
		for i, a := range args {
			v, err := s.vertexArg("face", a)
			if err != nil {
				return zygo.SexpNull, err
			}
			vs[i] = v
		}
		f, err := s.mesh.AddFace(vs...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}
		s.edited()
		return sexpInt(int(f)), nil
	})

	// (box :min (vec3 0 0 0) :max (vec3 1 1 1) :quads true)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, err := optVec3(pa, "min", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		hi, err := optVec3(pa, "max", v3.Vec{X: 1, Y: 1, Z: 1})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		quads := false
		if v, ok := pa.kw["quads"]; ok {
			if quads, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: quads: %w", err)
			}
		}
		b := geom.NewBox(lo, hi)
		if b.Diag() == 0 {
			return zygo.SexpNull, fmt.Errorf("box: empty box %v", b)
		}
		return faceList(s.merge(dcel.NewBox(b, !quads))), nil
	})

	// (cube :size 2 :at (vec3 0 0 0))
	env.AddFunction("cube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size, err := optFloat(pa, "size", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cube: %w", err)
		}
		if size <= 0 {
			return zygo.SexpNull, fmt.Errorf("cube: size must be positive, got %g", size)
		}
		at, err := optVec3(pa, "at", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cube: %w", err)
		}
		return faceList(s.merge(dcel.NewCube(at, size))), nil
	})

	// (tetra a b c d) with four vec3 corners
	env.AddFunction("tetra", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("tetra requires 4 corners, got %d", len(args))
		}
		var c [4]v3.Vec
		for i, a := range args {
			p, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tetra: corner %d: %w", i, err)
			}
			c[i] = p
		}
		return faceList(s.merge(dcel.NewTetrahedron(c[0], c[1], c[2], c[3]))), nil
	})
}

func registerEditing(env *zygo.Zlisp, s *session) {
	// (delete-face f)
	env.AddFunction("delete_face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("delete-face requires a face")
		}
		f, err := s.faceArg("delete-face", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		s.mesh.DeleteFace(f)
		s.edited()
		return zygo.SexpNull, nil
	})

	// (delete-vertex v)
	env.AddFunction("delete_vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("delete-vertex requires a vertex")
		}
		v, err := s.vertexArg("delete-vertex", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		s.mesh.DeleteVertex(v)
		s.edited()
		return zygo.SexpNull, nil
	})

	// (move-vertex v (vec3 1 2 3))
	env.AddFunction("move_vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("move-vertex requires a vertex and a position")
		}
		v, err := s.vertexArg("move-vertex", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		p, err := toPoint(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move-vertex: %w", err)
		}
		s.mesh.SetCoord(v, p)
		s.edited()
		return zygo.SexpNull, nil
	})

	// (flip a b) flips the edge between vertices a and b.
	env.AddFunction("flip", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("flip requires two vertices")
		}
		a, err := s.vertexArg("flip", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		b, err := s.vertexArg("flip", args[1])
		if err != nil {
			return zygo.SexpNull, err
		}
		h, ok := s.mesh.EdgeHalfEdge(a, b)
		if !ok {
			h, ok = s.mesh.EdgeHalfEdge(b, a)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("flip: no edge between %d and %d", a, b)
		}
		if !s.mesh.FlipEdge(h) {
			s.warn("flip", "edge %d-%d cannot be flipped", a, b)
			return sexpBool(false), nil
		}
		s.edited()
		return sexpBool(true), nil
	})

	// (face-color f 255 0 0)
	env.AddFunction("face_color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("face-color requires a face and three channels")
		}
		f, err := s.faceArg("face-color", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		var rgb [3]uint8
		for i, a := range args[1:] {
			c, err := toInt(a)
			if err != nil || c < 0 || c > 255 {
				return zygo.SexpNull, fmt.Errorf("face-color: channel %d must be an integer in [0,255]", i)
			}
			rgb[i] = uint8(c)
		}
		s.mesh.SetFaceColor(f, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		return zygo.SexpNull, nil
	})

	// (translate (vec3 1 0 0))
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		d, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		s.mesh.Translate(d)
		s.edited()
		return zygo.SexpNull, nil
	})

	// (scale 2)
	env.AddFunction("scale", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("scale requires a factor")
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scale: %w", err)
		}
		s.mesh.Scale(f)
		s.edited()
		return zygo.SexpNull, nil
	})

	// (rotate :axis :z :degrees 90)
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		axis := 2
		if v, ok := pa.kw["axis"]; ok {
			a, err := toAxis(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rotate: axis: %w", err)
			}
			axis = a
		}
		deg, err := optFloat(pa, "degrees", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		rad := deg * math.Pi / 180
		switch axis {
		case 0:
			s.transform(sdf.RotateX(rad))
		case 1:
			s.transform(sdf.RotateY(rad))
		default:
			s.transform(sdf.RotateZ(rad))
		}
		return zygo.SexpNull, nil
	})

	// (clear)
	env.AddFunction("clear", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		s.mesh.Clear()
		s.edited()
		return zygo.SexpNull, nil
	})
}

func registerSolids(env *zygo.Zlisp, s *session) {
	// Each primitive is registered twice: the plain name tessellates the
	// solid into the mesh and returns its faces, the shape- name returns an
	// untessellated handle for union, difference and intersect.
	for _, p := range []struct {
		name, shape string
		build       func(s *session, pa kwArgs) (kernel.Solid, error)
	}{
		// (sphere :radius 10 :at (vec3 0 0 0) :rotate (vec3 0 0 45))
		{"sphere", "shape_sphere", buildSphere},
		// (cylinder :height 10 :radius 2 :at (vec3 0 0 0))
		{"cylinder", "shape_cylinder", buildCylinder},
		// (solid-box 10 20 30 :at (vec3 0 0 0))
		{"solid_box", "shape_box", buildBox},
	} {
		build, display, shape := p.build, builtinName(p.name), builtinName(p.shape)
		env.AddFunction(p.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			sol, err := s.shape(display, build, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return s.solid(display, sol)
		})
		env.AddFunction(p.shape, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			sol, err := s.shape(shape, build, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpSolid{solid: sol, what: shape}, nil
		})
	}

	// (union a b ...), (difference a b ...), (intersect a b ...)
	for _, op := range []struct {
		name    string
		combine func(a, b kernel.Solid) kernel.Solid
	}{
		{"union", func(a, b kernel.Solid) kernel.Solid { return s.kernel.Union(a, b) }},
		{"difference", func(a, b kernel.Solid) kernel.Solid { return s.kernel.Difference(a, b) }},
		{"intersect", func(a, b kernel.Solid) kernel.Solid { return s.kernel.Intersection(a, b) }},
	} {
		env.AddFunction(op.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 shapes, got %d", op.name, len(args))
			}
			acc, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op.name, err)
			}
			for _, a := range args[1:] {
				next, err := toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %w", op.name, err)
				}
				acc = op.combine(acc, next)
			}
			return &sexpSolid{solid: acc, what: op.name}, nil
		})
	}

	// (shape-move s (vec3 1 0 0))
	env.AddFunction("shape_move", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sol, d, err := solidAndVec3("shape-move", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{solid: s.kernel.Translate(sol, d.X, d.Y, d.Z), what: "shape-move"}, nil
	})

	// (shape-rotate s (vec3 0 0 90)) with Euler angles in degrees
	env.AddFunction("shape_rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sol, r, err := solidAndVec3("shape-rotate", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{solid: s.kernel.Rotate(sol, r.X, r.Y, r.Z), what: "shape-rotate"}, nil
	})

	// (emit s) tessellates a shape into the mesh and returns its faces.
	env.AddFunction("emit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("emit requires exactly 1 shape, got %d", len(args))
		}
		sol, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("emit: %w", err)
		}
		return s.solid("emit", sol)
	})
}

// builtinName is the name scripts use for a registered builtin.
func builtinName(registered string) string {
	return strings.ReplaceAll(registered, "_", "-")
}

func buildSphere(s *session, pa kwArgs) (kernel.Solid, error) {
	r, err := optFloat(pa, "radius", 1)
	if err != nil {
		return nil, err
	}
	if r <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %g", r)
	}
	return s.kernel.Sphere(r), nil
}

func buildCylinder(s *session, pa kwArgs) (kernel.Solid, error) {
	h, err := optFloat(pa, "height", 1)
	if err != nil {
		return nil, err
	}
	r, err := optFloat(pa, "radius", 1)
	if err != nil {
		return nil, err
	}
	if h <= 0 || r <= 0 {
		return nil, fmt.Errorf("height and radius must be positive")
	}
	return s.kernel.Cylinder(h, r, 0), nil
}

func buildBox(s *session, pa kwArgs) (kernel.Solid, error) {
	if len(pa.positional) != 3 {
		return nil, fmt.Errorf("requires three sizes")
	}
	size, err := toPoint(pa.positional)
	if err != nil {
		return nil, err
	}
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("sizes must be positive")
	}
	return s.kernel.Box(size.X, size.Y, size.Z), nil
}

func registerQueries(env *zygo.Zlisp, s *session) {
	env.AddFunction("num_vertices", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return sexpInt(s.mesh.NumVertices()), nil
	})
	env.AddFunction("num_faces", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return sexpInt(s.mesh.NumFaces()), nil
	})
	env.AddFunction("is_closed", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return sexpBool(s.mesh.IsClosed()), nil
	})

	// (area f)
	env.AddFunction("area", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("area requires a face")
		}
		f, err := s.faceArg("area", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		return sexpFloat(s.mesh.FaceArea(f)), nil
	})

	// (inside (vec3 0 0 0) :checks 101)
	env.AddFunction("inside", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p, err := toPoint(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("inside: %w", err)
		}
		checks := s.checks
		if v, ok := pa.kw["checks"]; ok {
			if checks, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("inside: checks: %w", err)
			}
		}
		if checks <= 0 || checks%2 == 0 {
			return zygo.SexpNull, fmt.Errorf("inside: checks must be a positive odd number, got %d", checks)
		}
		t, err := s.indexNonEmpty("inside")
		if err != nil {
			return zygo.SexpNull, err
		}
		return sexpBool(t.IsInside(p, checks)), nil
	})

	// (nearest (vec3 5 0 0))
	env.AddFunction("nearest", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest: %w", err)
		}
		t, err := s.indexNonEmpty("nearest")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: t.NearestPoint(p)}, nil
	})

	// (distance (vec3 5 0 0))
	env.AddFunction("distance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: %w", err)
		}
		t, err := s.indexNonEmpty("distance")
		if err != nil {
			return zygo.SexpNull, err
		}
		return sexpFloat(math.Sqrt(t.SquaredDistance(p))), nil
	})

	// (nearest-face (vec3 5 0 0))
	env.AddFunction("nearest_face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest-face: %w", err)
		}
		t, err := s.indexNonEmpty("nearest-face")
		if err != nil {
			return zygo.SexpNull, err
		}
		return sexpInt(int(t.NearestFace(p))), nil
	})

	// (nearest-vertex (vec3 5 0 0))
	env.AddFunction("nearest_vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest-vertex: %w", err)
		}
		t, err := s.indexNonEmpty("nearest-vertex")
		if err != nil {
			return zygo.SexpNull, err
		}
		return sexpInt(int(t.NearestVertex(p))), nil
	})

	// (hits (vec3 -5 0 0) (vec3 5 0 0)) counts triangles on the segment.
	env.AddFunction("hits", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("hits requires two points")
		}
		p, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hits: %w", err)
		}
		q, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hits: %w", err)
		}
		return sexpInt(s.index().NumberIntersectedPrimitives(p, q)), nil
	})

	// (faces-in :min (vec3 ..) :max (vec3 ..)) lists faces overlapping the box.
	env.AddFunction("faces_in", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, err := optVec3(pa, "min", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("faces-in: %w", err)
		}
		hi, err := optVec3(pa, "max", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("faces-in: %w", err)
		}
		return faceList(s.index().ContainedFaces(geom.NewBox(lo, hi))), nil
	})
}
