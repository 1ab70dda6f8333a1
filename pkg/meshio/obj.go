package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/facet/pkg/dcel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrSyntax is wrapped by every OBJ parse error.
var ErrSyntax = errors.New("obj syntax error")

type objReader struct {
	p         Polygons
	line      int
	colors    []color.RGBA
	hasColors bool
	normals   []v3.Vec
	vertexN   map[int]int
	current   color.RGBA
	hasFaceC  bool
}

func (r *objReader) errorf(format string, args ...any) error {
	return fmt.Errorf("meshio: obj line %d: %w: %s", r.line, ErrSyntax, fmt.Sprintf(format, args...))
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// index resolves a 1-based or negative relative OBJ index against n items.
func index(tok string, n int) (int, bool) {
	i, err := strconv.Atoi(tok)
	if err != nil || i == 0 {
		return 0, false
	}
	if i < 0 {
		i += n
	} else {
		i--
	}
	return i, i >= 0 && i < n
}

func (r *objReader) vertex(fields []string) error {
	if len(fields) != 3 && len(fields) != 4 && len(fields) != 6 && len(fields) != 7 {
		return r.errorf("vertex with %d values", len(fields))
	}
	xs, err := parseFloats(fields)
	if err != nil {
		return r.errorf("%v", err)
	}
	r.p.Vertices = append(r.p.Vertices, v3.Vec{X: xs[0], Y: xs[1], Z: xs[2]})
	c := dcel.DefaultColor
	if len(xs) >= 6 {
		rgb := xs[len(xs)-3:]
		c = color.RGBA{R: unit(rgb[0]), G: unit(rgb[1]), B: unit(rgb[2]), A: 255}
		r.hasColors = true
	}
	r.colors = append(r.colors, c)
	return nil
}

func unit(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
}

func (r *objReader) face(fields []string) error {
	if len(fields) < 3 {
		return r.errorf("face with %d vertices", len(fields))
	}
	f := make([]int, len(fields))
	for k, tok := range fields {
		parts := strings.Split(tok, "/")
		i, ok := index(parts[0], len(r.p.Vertices))
		if !ok {
			return r.errorf("bad vertex reference %q", tok)
		}
		f[k] = i
		if len(parts) == 3 && parts[2] != "" {
			n, ok := index(parts[2], len(r.normals))
			if !ok {
				return r.errorf("bad normal reference %q", tok)
			}
			r.vertexN[i] = n
		}
	}
	r.p.Faces = append(r.p.Faces, f)
	r.p.FaceColors = append(r.p.FaceColors, r.current)
	return nil
}

// ReadOBJ parses a Wavefront OBJ stream. Texture coordinates, groups and
// material libraries are ignored.
func ReadOBJ(in io.Reader) (*Polygons, error) {
	r := &objReader{vertexN: make(map[int]int), current: dcel.DefaultColor}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		r.line++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 && !strings.HasPrefix(strings.TrimSpace(line), "usemtl") {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "v":
			err = r.vertex(fields[1:])
		case "vn":
			var xs []float64
			if len(fields) != 4 {
				err = r.errorf("normal with %d values", len(fields)-1)
			} else if xs, err = parseFloats(fields[1:]); err != nil {
				err = r.errorf("%v", err)
			} else {
				r.normals = append(r.normals, v3.Vec{X: xs[0], Y: xs[1], Z: xs[2]})
			}
		case "f":
			err = r.face(fields[1:])
		case "usemtl":
			r.current = dcel.DefaultColor
			if len(fields) > 1 {
				if c, ok := parseHexColor(fields[1]); ok {
					r.current = c
					r.hasFaceC = true
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("meshio: obj: %w", err)
	}

	p := r.p
	if r.hasColors {
		p.Colors = r.colors
	}
	if !r.hasFaceC {
		p.FaceColors = nil
	}
	if len(r.vertexN) > 0 {
		p.Normals = make([]v3.Vec, len(p.Vertices))
		for v, n := range r.vertexN {
			p.Normals[v] = r.normals[n]
		}
	}
	return &p, nil
}

// LoadOBJ reads an OBJ file.
func LoadOBJ(path string) (*Polygons, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	defer f.Close()
	p, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func parseHexColor(s string) (color.RGBA, bool) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// WriteOBJ writes p as Wavefront OBJ. Coordinates keep full precision.
func WriteOBJ(out io.Writer, p *Polygons) error {
	if err := p.Check(); err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "# %d vertices, %d faces\n", len(p.Vertices), len(p.Faces))
	for i, v := range p.Vertices {
		fmt.Fprintf(w, "v %s %s %s", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
		if len(p.Colors) > 0 {
			c := p.Colors[i]
			fmt.Fprintf(w, " %s %s %s",
				formatFloat(float64(c.R)/255), formatFloat(float64(c.G)/255), formatFloat(float64(c.B)/255))
		}
		w.WriteByte('\n')
	}
	for _, n := range p.Normals {
		fmt.Fprintf(w, "vn %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
	}
	group := ""
	for j, f := range p.Faces {
		if len(p.FaceColors) > 0 {
			if g := hexColor(p.FaceColors[j]); g != group {
				fmt.Fprintf(w, "usemtl %s\n", g)
				group = g
			}
		}
		w.WriteString("f")
		for _, i := range f {
			if len(p.Normals) > 0 {
				fmt.Fprintf(w, " %d//%d", i+1, i+1)
			} else {
				fmt.Fprintf(w, " %d", i+1)
			}
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("meshio: obj: %w", err)
	}
	return nil
}

// SaveOBJ writes p to an OBJ file.
func SaveOBJ(path string, p *Polygons) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("meshio: %w", cerr)
		}
	}()
	return WriteOBJ(f, p)
}
