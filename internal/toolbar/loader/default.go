package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// defaultButtons is the starter toolbar written when no global config exists.
var defaultButtons = []map[string]any{
	{
		"type":     "button",
		"icon":     "gear",
		"callback": "settings-view:open",
		"tooltip":  "Open Settings",
	},
	{
		"type":     "button",
		"icon":     "columns",
		"iconset":  "fa",
		"callback": map[string]any{"": "pane:split-right", "shift": "pane:split-down"},
		"tooltip":  "Split Pane",
	},
	{
		"type": "spacer",
	},
	{
		"type":     "button",
		"icon":     "markdown",
		"callback": "markdown-preview:toggle",
		"tooltip":  "Markdown Preview",
		"show":     map[string]any{"pattern": "*.md"},
	},
	{
		"type":    "url",
		"icon":    "octoface",
		"url":     "https://github.com",
		"tooltip": "Github Page",
	},
}

// DefaultJSON returns the starter config document.
func DefaultJSON() ([]byte, error) {
	doc := []byte("[]")
	for i, b := range defaultButtons {
		var err error
		doc, err = sjson.SetBytes(doc, "-1", b)
		if err != nil {
			return nil, fmt.Errorf("building default button %d: %w", i, err)
		}
	}
	return pretty.Pretty(doc), nil
}

// EnsureDefault writes the starter config to path unless a file already
// exists there. It reports whether a file was written.
func EnsureDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if filepath.Ext(path) != ".json" {
		return false, fmt.Errorf("%w: default config must be .json, got %s", ErrUnsupportedFormat, path)
	}

	data, err := DefaultJSON()
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
