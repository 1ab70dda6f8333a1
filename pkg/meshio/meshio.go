package meshio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format tags a file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatOBJ
	FormatSTL
)

func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatSTL:
		return "stl"
	default:
		return "unknown"
	}
}

// FormatOf guesses the format from a file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return FormatOBJ
	case ".stl":
		return FormatSTL
	default:
		return FormatUnknown
	}
}

// Load reads path in the format its extension names. STL soups are welded
// with tolerance tol.
func Load(path string, tol float64) (*Polygons, error) {
	switch FormatOf(path) {
	case FormatOBJ:
		return LoadOBJ(path)
	case FormatSTL:
		return LoadSTL(path, tol)
	default:
		return nil, fmt.Errorf("meshio: %s: unsupported format", path)
	}
}

// Save writes p to path in format f; FormatUnknown uses the extension.
func Save(path string, p *Polygons, f Format) error {
	if f == FormatUnknown {
		f = FormatOf(path)
	}
	switch f {
	case FormatOBJ:
		return SaveOBJ(path, p)
	case FormatSTL:
		return SaveSTL(path, p)
	default:
		return fmt.Errorf("meshio: %s: unsupported format", path)
	}
}
