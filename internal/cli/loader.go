package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/runcost/internal/compiler"
	"github.com/roach88/runcost/internal/ir"
)

// LoadMode controls how errors are handled during definition loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No definition files found
	ErrCodeCompileFailed  = "E004" // CUE or YAML compile failed
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeSeriesNotFound = "E006" // Named series not defined
	ErrCodeComputeFailed  = "E007" // Build or compute failed
	ErrCodeLibrary        = "E008" // Library open, read or write failed
)

// LoadResult contains the definition files loaded from a path.
type LoadResult struct {
	Files     []*compiler.File
	FileCount int // Number of definition files found
}

// LoadError represents an error that occurred during definition loading.
type LoadError struct {
	Code    string
	Message string
	File    string
	Line    int
}

func (e *LoadError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDefinitions compiles the definition file at path, or every definition
// file under path when it is a directory.
// If mode is LoadModeFailFast, returns on first compile error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDefinitions(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions: %v", err)}}
	}

	paths := []string{path}
	if info.IsDir() {
		paths, err = FindDefinitionFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(paths) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no definition files found in %s", path)}}
		}
	}

	result := &LoadResult{FileCount: len(paths)}
	var errs []error
	for _, p := range paths {
		f, err := compiler.LoadFile(p)
		if err != nil {
			errs = append(errs, convertCompileError(err, p))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Files = append(result.Files, f)
	}

	return result, errs
}

// FindDefinitionFiles walks the directory and returns all .cue, .yaml and
// .yml paths, sorted.
func FindDefinitionFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && compiler.IsDefinitionFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, path string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		line := compileErr.Line
		if compileErr.Pos.IsValid() {
			line = compileErr.Pos.Line()
		}
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			File:    path,
			Line:    line,
		}
	}
	return &LoadError{
		Code:    ErrCodeCompileFailed,
		Message: err.Error(),
		File:    path,
	}
}

// namedSeries is a series selected for a command together with the file
// it came from.
type namedSeries struct {
	Spec ir.SeriesSpec
	File *compiler.File
}

// selectSeries returns the named series across files in argument order, or
// every series in file order when names is empty.
func selectSeries(files []*compiler.File, names []string) ([]namedSeries, error) {
	if len(names) == 0 {
		var all []namedSeries
		for _, f := range files {
			for _, s := range f.Series {
				all = append(all, namedSeries{Spec: s, File: f})
			}
		}
		return all, nil
	}

	selected := make([]namedSeries, 0, len(names))
	for _, name := range names {
		found := false
		for _, f := range files {
			if s, ok := f.Lookup(name); ok {
				selected = append(selected, namedSeries{Spec: s, File: f})
				found = true
				break
			}
		}
		if !found {
			return nil, &LoadError{Code: ErrCodeSeriesNotFound, Message: fmt.Sprintf("series %q is not defined", name)}
		}
	}
	return selected, nil
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
