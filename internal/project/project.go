// Package project tracks the editor's project root folders and maps
// documents to the root that contains them.
package project

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
)

// Common errors.
var (
	ErrRootNotFound = errors.New("root not found")
	ErrRootExists   = errors.New("root already added")
)

// Roots is the ordered set of project root folders.
type Roots struct {
	mu    sync.RWMutex
	paths []string

	onChange []func([]string)
}

// NewRoots creates a set from paths. Relative paths are made absolute.
func NewRoots(paths ...string) *Roots {
	r := &Roots{}
	r.paths = normalize(paths)
	return r
}

// Set replaces every root, the equivalent of the editor's setPaths.
func (r *Roots) Set(paths ...string) {
	r.mu.Lock()
	r.paths = normalize(paths)
	notify := r.notifierLocked()
	r.mu.Unlock()

	notify()
}

// Add appends a root.
func (r *Roots) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	for _, p := range r.paths {
		if p == abs {
			r.mu.Unlock()
			return ErrRootExists
		}
	}
	r.paths = append(r.paths, abs)
	notify := r.notifierLocked()
	r.mu.Unlock()

	notify()
	return nil
}

// Remove drops a root.
func (r *Roots) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	idx := -1
	for i, p := range r.paths {
		if p == abs {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return ErrRootNotFound
	}
	r.paths = append(r.paths[:idx], r.paths[idx+1:]...)
	notify := r.notifierLocked()
	r.mu.Unlock()

	notify()
	return nil
}

// Paths returns the roots in order.
func (r *Roots) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.paths...)
}

// Len returns the number of roots.
func (r *Roots) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paths)
}

// Containing returns the root that contains path. When roots nest, the
// deepest one wins.
func (r *Roots) Containing(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	for _, root := range r.paths {
		if isSubPath(root, abs) && len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

// OnChange registers a callback run after the roots change.
func (r *Roots) OnChange(fn func(paths []string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// notifierLocked captures the current roots and callbacks so they can be run
// after the lock is released.
func (r *Roots) notifierLocked() func() {
	snapshot := make([]string, len(r.paths))
	copy(snapshot, r.paths)
	callbacks := make([]func([]string), len(r.onChange))
	copy(callbacks, r.onChange)
	return func() {
		for _, cb := range callbacks {
			cb(snapshot)
		}
	}
}

func normalize(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out
}

// isSubPath checks if child is parent or inside it.
func isSubPath(parent, child string) bool {
	parent = filepath.Clean(parent)
	child = filepath.Clean(child)

	if child == parent {
		return true
	}

	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return strings.HasPrefix(child, parent)
}
