// Package modules resolves "use the library" paths to files and tracks which
// libraries have been loaded.
//
// A path is resolved relative to the importing file's directory first, then
// against each configured library directory. A path without an extension
// also tries the ".hl" suffix. The canonical identity of a library is its
// cleaned absolute path; loading the same identity twice is a no-op, and a
// library that is still loading when imported again is a cycle.
package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ext is the source file extension.
const Ext = ".hl"

// ErrNotFound is returned when no candidate file exists.
var ErrNotFound = errors.New("library not found")

type loadState int

const (
	loading loadState = iota + 1
	loaded
)

// Loader resolves library paths and records load state.
type Loader struct {
	paths []string

	mu    sync.Mutex
	state map[string]loadState
	stack []string
}

// NewLoader creates a loader that searches the given library directories
// after the importer's own directory.
func NewLoader(paths ...string) *Loader {
	return &Loader{paths: paths, state: make(map[string]loadState)}
}

// Resolve returns the absolute path of the library named by spec, imported
// from the file importer (which may be empty for the REPL).
func (l *Loader) Resolve(spec, importer string) (string, error) {
	var dirs []string
	if filepath.IsAbs(spec) {
		dirs = []string{""}
	} else {
		if importer != "" {
			dirs = append(dirs, filepath.Dir(importer))
		} else if wd, err := os.Getwd(); err == nil {
			dirs = append(dirs, wd)
		}
		dirs = append(dirs, l.paths...)
	}

	names := []string{spec}
	if filepath.Ext(spec) == "" {
		names = []string{spec + Ext, spec}
	}

	var tried []string
	for _, dir := range dirs {
		for _, name := range names {
			candidate := name
			if dir != "" {
				candidate = filepath.Join(dir, name)
			}
			tried = append(tried, candidate)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", err
			}
			return filepath.Clean(abs), nil
		}
	}
	return "", fmt.Errorf("%w: %q (tried %s)", ErrNotFound, spec, strings.Join(tried, ", "))
}

// Begin marks abs as loading. It reports false when the library is already
// loaded and the import should be skipped, and fails on an import cycle.
func (l *Loader) Begin(abs string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state[abs] {
	case loaded:
		return false, nil
	case loading:
		chain := append(append([]string{}, l.stack...), abs)
		for i := range chain {
			chain[i] = filepath.Base(chain[i])
		}
		return false, fmt.Errorf("import cycle: %s", strings.Join(chain, " -> "))
	}
	l.state[abs] = loading
	l.stack = append(l.stack, abs)
	return true, nil
}

// Finish records the outcome of loading abs. A failed load may be retried.
func (l *Loader) Finish(abs string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.stack) - 1; i >= 0; i-- {
		if l.stack[i] == abs {
			l.stack = append(l.stack[:i], l.stack[i+1:]...)
			break
		}
	}
	if err != nil {
		delete(l.state, abs)
		return
	}
	l.state[abs] = loaded
}

// MarkLoaded records abs as loaded without going through Begin. The entry
// script uses it so that importing it again is a no-op.
func (l *Loader) MarkLoaded(abs string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state[abs] = loaded
}

// Read returns the source text of abs.
func (l *Loader) Read(abs string) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("cannot read library %s: %w", abs, err)
	}
	return string(data), nil
}

// Loaded returns the loaded library paths.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for p, s := range l.state {
		if s == loaded {
			out = append(out, p)
		}
	}
	return out
}
