package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadMode selects how many errors a load reports.
type LoadMode int

const (
	LoadModeFailFast   LoadMode = iota // stop at the first error
	LoadModeCollectAll                 // report every error
)

// Load error codes. Validation codes start at E120.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005" // directory or pipeline name
	ErrCodeBuildFailed = "E006"
	ErrCodeNoPipelines = "E007"
)

// LoadError is an error found while loading definitions, positioned in the
// CUE sources when the position is known.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if !e.Pos.IsValid() {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
}

// Set holds the definitions of a CUE instance, keyed by name.
type Set struct {
	Defs      map[string]*Definition
	Value     cue.Value
	FileCount int
}

// Lookup resolves a definition by name.
func (s *Set) Lookup(name string) (*Definition, bool) {
	d, ok := s.Defs[name]
	return d, ok
}

// Names returns the definition names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Defs))
	for n := range s.Defs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Body compiles the named definition.
func (s *Set) Body(name string) (Body, error) {
	def, ok := s.Lookup(name)
	if !ok {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("pipeline %q is not defined; have %v", name, s.Names())}
	}
	return Build(def, s.Lookup), nil
}

// LoadDir loads, compiles and validates the definitions of the CUE package
// in dir. In LoadModeFailFast the first error stops loading; in
// LoadModeCollectAll every compile, validation and cycle error is returned.
//
// A nil Set means the definitions could not be read at all.
func LoadDir(dir string, mode LoadMode) (*Set, []error) {
	files, err := checkDir(dir)
	if err != nil {
		return nil, []error{err}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	switch {
	case len(instances) == 0:
		return nil, []error{loadErrorf(ErrCodeLoadFailed, "no CUE instances loaded from %s", dir)}
	case instances[0].Err != nil:
		return nil, []error{loadErrorf(ErrCodeLoadFailed, "loading CUE files: %v", instances[0].Err)}
	}

	return newSet(cuecontext.New().BuildInstance(instances[0]), len(files), mode)
}

// LoadSource is LoadDir for a single CUE document.
func LoadSource(src []byte, mode LoadMode) (*Set, []error) {
	return newSet(cuecontext.New().CompileBytes(src), 1, mode)
}

func newSet(value cue.Value, files int, mode LoadMode) (*Set, []error) {
	if err := value.Err(); err != nil {
		return nil, []error{loadErrorf(ErrCodeBuildFailed, "building CUE value: %v", err)}
	}
	set, errs := fromValue(value, mode)
	set.FileCount = files
	return set, errs
}

// checkDir returns the CUE files of dir.
func checkDir(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return nil, loadErrorf(ErrCodeNotFound, "definitions directory not found: %s", dir)
	case err != nil:
		return nil, loadErrorf(ErrCodeNotFound, "accessing definitions directory: %v", err)
	case !info.IsDir():
		return nil, loadErrorf(ErrCodeNotFound, "not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, loadErrorf(ErrCodeScanError, "scanning %s: %v", dir, err)
	}
	if len(files) == 0 {
		return nil, loadErrorf(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}
	return files, nil
}

func fromValue(value cue.Value, mode LoadMode) (*Set, []error) {
	set := &Set{Defs: make(map[string]*Definition), Value: value}
	var errs []error
	// report records err and tells whether loading stops.
	report := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	pipelines := value.LookupPath(cue.ParsePath("pipeline"))
	if !pipelines.Exists() {
		return set, []error{loadErrorf(ErrCodeNoPipelines, "no pipeline definitions found")}
	}
	iter, err := pipelines.Fields()
	if err != nil {
		return set, []error{loadErrorf(ErrCodeGeneric, "iterating pipelines: %v", err)}
	}
	for iter.Next() {
		def, err := CompilePipeline(iter.Value())
		if err != nil {
			if report(compileLoadError("pipeline."+iter.Selector().String(), err)) {
				return set, errs
			}
			continue
		}
		set.Defs[def.Name] = def
	}
	if len(set.Defs) == 0 && len(errs) == 0 {
		return set, []error{loadErrorf(ErrCodeNoPipelines, "no pipeline definitions found")}
	}

	for _, name := range set.Names() {
		for _, verr := range Validate(set.Defs[name], set.Lookup) {
			if report(&LoadError{Code: verr.Code, Message: verr.Field + ": " + verr.Message, Pos: verr.Pos}) {
				return set, errs
			}
		}
	}
	for _, c := range AnalyzeCycles(set.Defs) {
		if report(&LoadError{Code: ErrReferenceCycle, Message: c.Error(), Pos: set.Defs[c.Path[0]].Pos}) {
			return set, errs
		}
	}
	return set, errs
}

// FindCUEFiles returns the .cue files directly inside dir, sorted. Files of
// subdirectories belong to other CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func loadErrorf(code, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// compileLoadError positions err at the field that failed to compile.
func compileLoadError(path string, err error) *LoadError {
	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		return loadErrorf(ErrCodeGeneric, "%s: %v", path, err)
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: path + ": " + compileErr.Field + ": " + compileErr.Message,
		Pos:     compileErr.Pos,
	}
}
