// Package resolver decides which config files feed the toolbar.
//
// There is always a global config. A project may add its own config, found
// by resolving the project config setting against the project root that
// contains the active document. The project path is never the global path:
// a project setting that points back at the global file means no override.
package resolver

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/flextoolbar/internal/logging"
	"github.com/dshills/flextoolbar/internal/project"
	"github.com/dshills/flextoolbar/internal/toolbar/loader"
)

// Source is the result of a resolution.
type Source struct {
	// Global is the global config path.
	Global string
	// Project is the project config path, or empty for no override.
	Project string
	// Changed reports whether Project differs from the previous resolution.
	Changed bool
}

// Paths returns the config files to load, global first.
func (s Source) Paths() []string {
	if s.Project == "" {
		return []string{s.Global}
	}
	return []string{s.Global, s.Project}
}

// Resolver tracks the active project config path.
type Resolver struct {
	mu sync.Mutex

	global     string
	roots      *project.Roots
	setting    string
	persistent bool
	fs         loader.FileSystem
	logger     *logging.Logger

	// project is the current project config path.
	project string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProjectConfigPath sets the project config setting, a path relative to
// the project root (or absolute). A directory means "look for toolbar.* in
// it". Empty disables project configs.
func WithProjectConfigPath(setting string) Option {
	return func(r *Resolver) {
		r.setting = setting
	}
}

// WithPersistent keeps the last project config when the active document has
// none of its own.
func WithPersistent(persistent bool) Option {
	return func(r *Resolver) {
		r.persistent = persistent
	}
}

// WithFS sets the file system used to probe for config files.
func WithFS(fsys loader.FileSystem) Option {
	return func(r *Resolver) {
		if fsys != nil {
			r.fs = fsys
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.OrNop(logger).WithComponent("resolver")
	}
}

// New creates a Resolver for the global config path and project roots.
func New(global string, roots *project.Roots, opts ...Option) *Resolver {
	if roots == nil {
		roots = project.NewRoots()
	}
	r := &Resolver{
		global: cleanAbs(global),
		roots:  roots,
		fs:     loader.OSFS{},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve recomputes the project config for the active document. An empty
// documentPath stands for an item without a file.
func (r *Resolver) Resolve(documentPath string) Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.project
	candidate, found := r.candidate(documentPath)

	switch {
	case found && r.sameFile(candidate, r.global):
		r.project = ""
	case found:
		r.project = candidate
	case !r.persistent:
		r.project = ""
	}

	if prev != r.project {
		r.logger.Debug("project config %q -> %q", prev, r.project)
	}
	return Source{Global: r.global, Project: r.project, Changed: prev != r.project}
}

// Current returns the last resolution without recomputing it.
func (r *Resolver) Current() Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Source{Global: r.global, Project: r.project}
}

// SetGlobal changes the global config path. A project path equal to the new
// global path is dropped.
func (r *Resolver) SetGlobal(global string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = cleanAbs(global)
	if r.project != "" && r.sameFile(r.project, r.global) {
		r.project = ""
	}
}

// SetProjectConfigPath changes the project config setting and forgets the
// remembered project path.
func (r *Resolver) SetProjectConfigPath(setting string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if setting != r.setting {
		r.setting = setting
		r.project = ""
	}
}

// SetPersistent changes the persistence flag.
func (r *Resolver) SetPersistent(persistent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistent = persistent
}

// candidate finds the project config for documentPath.
func (r *Resolver) candidate(documentPath string) (string, bool) {
	if r.setting == "" || documentPath == "" {
		return "", false
	}

	root, ok := r.roots.Containing(documentPath)
	if !ok {
		return "", false
	}

	p := r.setting
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)

	info, err := r.fs.Stat(p)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		return loader.FindInDir(r.fs, p)
	}
	return p, true
}

// sameFile compares cleaned paths, then file identity when both exist.
func (r *Resolver) sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, err := r.fs.Stat(a)
	if err != nil {
		return false
	}
	ib, err := r.fs.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// ResolveGlobal turns the global config setting into a file path. An empty
// setting means toolbar.json in configDir; a directory means the first
// toolbar.* file in it, or toolbar.json when it has none.
func ResolveGlobal(fsys loader.FileSystem, setting, configDir string) string {
	if fsys == nil {
		fsys = loader.OSFS{}
	}

	dir := setting
	if dir == "" {
		dir = configDir
	} else if info, err := fsys.Stat(setting); err != nil || !info.IsDir() {
		return cleanAbs(setting)
	}

	if p, ok := loader.FindInDir(fsys, dir); ok {
		return cleanAbs(p)
	}
	return cleanAbs(filepath.Join(dir, loader.DefaultBaseName+".json"))
}

func cleanAbs(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
