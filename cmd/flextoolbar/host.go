package main

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dshills/flextoolbar/internal/toolbar/condition"
)

// grammars maps file extensions to grammar names.
var grammars = map[string]string{
	".go":   "Go",
	".js":   "JavaScript",
	".ts":   "TypeScript",
	".py":   "Python",
	".rb":   "Ruby",
	".rs":   "Rust",
	".md":   "GitHub Markdown",
	".json": "JSON",
	".toml": "TOML",
	".yaml": "YAML",
	".yml":  "YAML",
	".lua":  "Lua",
	".sh":   "Shell Script",
	".txt":  "Plain Text",
}

func guessGrammar(path string) string {
	if path == "" {
		return ""
	}
	if g, ok := grammars[strings.ToLower(filepath.Ext(path))]; ok {
		return g
	}
	return "Plain Text"
}

// previewEditor is the document shown in the preview.
type previewEditor struct {
	path     string
	grammar  string
	modified atomic.Bool
}

func (e *previewEditor) Path() string        { return e.path }
func (e *previewEditor) GrammarName() string { return e.grammar }
func (e *previewEditor) IsModified() bool    { return e.modified.Load() }

// previewHost answers the toolbar's questions from command line flags.
type previewHost struct {
	mu       sync.Mutex
	editor   *previewEditor
	packages []string
	roots    []string
}

func newHost(opts options) *previewHost {
	h := &previewHost{
		packages: opts.packages,
		roots:    opts.projects,
	}
	if opts.file != "" {
		grammar := opts.grammar
		if grammar == "" {
			grammar = guessGrammar(opts.file)
		}
		h.editor = &previewEditor{path: opts.file, grammar: grammar}
	}
	return h
}

func (h *previewHost) ActiveEditor() condition.Editor {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.editor == nil {
		return nil
	}
	return h.editor
}

func (h *previewHost) ActivePackages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.packages...)
}

func (h *previewHost) ProjectPaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.roots...)
}

// toggleModified flips the document's modified flag and reports the new
// value. It is false when there is no document.
func (h *previewHost) toggleModified() bool {
	h.mu.Lock()
	ed := h.editor
	h.mu.Unlock()
	if ed == nil {
		return false
	}
	for {
		old := ed.modified.Load()
		if ed.modified.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
