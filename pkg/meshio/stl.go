package meshio

import (
	"fmt"

	"github.com/chazu/facet/pkg/geom"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// SaveSTL triangulates p and writes it to a binary STL file.
func SaveSTL(path string, p *Polygons) error {
	m, _, err := p.ToTriMesh()
	if err != nil {
		return err
	}
	tris := make([]*sdf.Triangle3, m.NumTriangles())
	for i := range tris {
		t := sdf.Triangle3(m.Triangle(i))
		tris[i] = &t
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("meshio: stl: %w", err)
	}
	return nil
}

// LoadSTL reads an ASCII or binary STL file and welds the soup with
// tolerance tol.
func LoadSTL(path string, tol float64) (p *Polygons, err error) {
	// The ASCII reader indexes past the end when the vertex count is not a
	// multiple of three.
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("meshio: stl %s: malformed facet list: %v", path, r)
		}
	}()
	soup, err := render.LoadSTL(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: stl %s: %w", path, err)
	}
	tris := make([]geom.Triangle, len(soup))
	for i, t := range soup {
		tris[i] = geom.Triangle(*t)
	}
	return FromTriMesh(Weld(tris, tol)), nil
}
