package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/runcost/internal/ir"
)

// File is a compiled definition file.
type File struct {
	Path   string
	Series []ir.SeriesSpec // sorted by name
	Window *ir.WindowSpec  // file-level default window, may be nil
}

// Lookup returns the series with the given name.
func (f *File) Lookup(name string) (ir.SeriesSpec, bool) {
	for _, s := range f.Series {
		if s.Name == name {
			return s, true
		}
	}
	return ir.SeriesSpec{}, false
}

// Names returns the series names in file order.
func (f *File) Names() []string {
	names := make([]string, len(f.Series))
	for i, s := range f.Series {
		names[i] = s.Name
	}
	return names
}

// WindowFor returns the window a series is computed over: its own window
// if it declares one, otherwise the file's.
func (f *File) WindowFor(spec ir.SeriesSpec) *ir.WindowSpec {
	if spec.Window != nil {
		return spec.Window
	}
	return f.Window
}

// LoadFile reads and compiles a definition file. The format is chosen by
// extension: .cue for CUE, .yaml or .yml for YAML.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return CompileCUE(path, data)
	case ".yaml", ".yml":
		return CompileYAML(path, data)
	default:
		return nil, &CompileError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported extension %q: want .cue, .yaml or .yml", filepath.Ext(path)),
			File:    path,
		}
	}
}

// IsDefinitionFile reports whether path has a supported extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue", ".yaml", ".yml":
		return true
	}
	return false
}

func sortSeries(series []ir.SeriesSpec) {
	slices.SortFunc(series, func(a, b ir.SeriesSpec) int {
		return strings.Compare(a.Name, b.Name)
	})
}
