package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flextoolbar/internal/toolbar/button"
	"github.com/dshills/flextoolbar/internal/toolbar/condition"
)

// MemFS is an in-memory FileSystem for tests.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

type stubEditor struct {
	modified bool
}

func (e *stubEditor) Path() string        { return "/p/sample.js" }
func (e *stubEditor) GrammarName() string { return "JavaScript" }
func (e *stubEditor) IsModified() bool    { return e.modified }

func load(t *testing.T, path, content string) *Config {
	t.Helper()
	memfs := NewMemFS()
	memfs.AddFile(path, content)
	cfg, err := New(WithFS(memfs)).Load(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })
	return cfg
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		path    string
		content string
	}{
		{"/c/config.json", `[{"type": "json", "icon": "gear"}]`},
		{"/c/config.json5", `[
			// comment
			{type: 'json5', icon: 'gear',},
		]`},
		{"/c/config.toml", `
[[button]]
type = "toml"
icon = "gear"
`},
		{"/c/config.yaml", `
- type: yaml
  icon: gear
`},
		{"/c/config.yml", `[{type: yml, icon: gear}]`},
		{"/c/config.lua", `return { { type = "lua", icon = "gear" } }`},
	}

	for _, tt := range tests {
		t.Run(filepath.Ext(tt.path), func(t *testing.T) {
			cfg := load(t, tt.path, tt.content)
			require.Len(t, cfg.Records, 1)
			assert.Equal(t, filepath.Ext(tt.path)[1:], cfg.Records[0]["type"])
			assert.Equal(t, "gear", cfg.Records[0]["icon"])
			assert.Equal(t, tt.path, cfg.Path)
		})
	}
}

func TestLoadJSON5Syntax(t *testing.T) {
	cfg := load(t, "/c/toolbar.json5", `[
		/* block comment */
		{
			icon: 'file-code',
			tooltip: 'It\'s "quoted"',
			callback: 'editor:run',
			priority: 10,
		},
		{type: "spacer"},
	]`)

	require.Len(t, cfg.Records, 2)
	assert.Equal(t, "file-code", cfg.Records[0]["icon"])
	assert.Equal(t, `It's "quoted"`, cfg.Records[0]["tooltip"])
	assert.Equal(t, "editor:run", cfg.Records[0]["callback"])
	assert.EqualValues(t, 10, cfg.Records[0]["priority"])
	assert.Equal(t, "spacer", cfg.Records[1]["type"])
}

func TestLoadKeepsOrder(t *testing.T) {
	cfg := load(t, "/c/toolbar.json", `[
		{"icon": "a", "callback": "x"},
		{"type": "spacer"},
		{"icon": "b", "callback": "y", "show": {"grammar": "go", "pattern": "*.go"}}
	]`)

	require.Len(t, cfg.Records, 3)
	assert.Equal(t, "a", cfg.Records[0]["icon"])
	assert.Equal(t, "spacer", cfg.Records[1]["type"])
	show, ok := cfg.Records[2]["show"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "*.go", show["pattern"])
}

func TestLoadTOMLNestedCondition(t *testing.T) {
	cfg := load(t, "/c/toolbar.toml", `
[[button]]
icon = "play"
callback = "go:run"
priority = 10

[button.show]
grammar = "go"
`)

	require.Len(t, cfg.Records, 1)
	d, err := button.Parse(cfg.Records[0])
	require.NoError(t, err)
	assert.Equal(t, 10, d.Priority)

	ok, err := d.Visible(condition.Context{Grammar: "Go"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadErrors(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/c/bad.json", `[{"icon": }]`)
	memfs.AddFile("/c/object.json", `{"icon": "gear"}`)
	memfs.AddFile("/c/scalar.json", `[1, 2]`)
	memfs.AddFile("/c/bad.toml", "[[button]\nicon = 1\n")
	memfs.AddFile("/c/table.toml", "icon = \"gear\"\n")
	memfs.AddFile("/c/bad.yaml", "- icon: [\n")
	memfs.AddFile("/c/bad.lua", "return {")
	memfs.AddFile("/c/runtime.lua", "error('nope')")
	memfs.AddFile("/c/bad.json5", "[{icon: }]")
	l := New(WithFS(memfs))

	for _, p := range []string{
		"/c/bad.json", "/c/object.json", "/c/scalar.json", "/c/bad.toml",
		"/c/table.toml", "/c/bad.yaml", "/c/bad.lua", "/c/runtime.lua", "/c/bad.json5",
	} {
		_, err := l.Load(p)
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, p)
		if perr != nil {
			assert.Equal(t, p, perr.Path)
		}
	}

	_, err := l.Load("/c/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Load("/c/toolbar.cson")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadTOMLErrorPosition(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/c/bad.toml", "[[button]]\nicon = \n")
	_, err := New(WithFS(memfs)).Load("/c/bad.toml")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Positive(t, perr.Line)
}

func TestLoadEmptyYAML(t *testing.T) {
	cfg := load(t, "/c/toolbar.yaml", "\n")
	assert.Empty(t, cfg.Records)
}

func TestLuaPredicate(t *testing.T) {
	cfg := load(t, "/c/toolbar.lua", `
return {
  {
    text = "save",
    callback = "core:save",
    show = { ["function"] = function(editor) return editor:isModified() end },
  },
  {
    icon = "hash",
    callback = "x",
    show = function(editor) if editor.grammar == "JavaScript" then return 1 end return 0 end,
  },
}
`)
	require.Len(t, cfg.Records, 2)

	first, err := button.Parse(cfg.Records[0])
	require.NoError(t, err)
	require.Len(t, first.Predicates(), 1)

	ed := &stubEditor{}
	ok, err := first.Visible(condition.Context{Editor: ed})
	require.NoError(t, err)
	assert.False(t, ok)

	ed.modified = true
	ok, err = first.Visible(condition.Context{Editor: ed})
	require.NoError(t, err)
	assert.True(t, ok)

	second, err := button.Parse(cfg.Records[1])
	require.NoError(t, err)
	ok, err = second.Visible(condition.Context{Editor: ed})
	require.NoError(t, err)
	assert.True(t, ok, "1 is truthy")
}

func TestLuaPredicateZeroIsFalse(t *testing.T) {
	cfg := load(t, "/c/toolbar.lua", `return { { callback = "x", show = function() return 0 end } }`)
	d, err := button.Parse(cfg.Records[0])
	require.NoError(t, err)

	ok, err := d.Visible(condition.Context{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLuaPredicateErrorsFailClosed(t *testing.T) {
	cfg := load(t, "/c/toolbar.lua", `return { { callback = "x", show = function(editor) return editor:isModified() end } }`)
	d, err := button.Parse(cfg.Records[0])
	require.NoError(t, err)

	// No editor: indexing nil raises a Lua error.
	ok, err := d.Visible(condition.Context{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, condition.ErrPredicateFailed)
}

func TestLuaFunctionButton(t *testing.T) {
	cfg := load(t, "/c/toolbar.lua", `
clicks = 0
return {
  { type = "function", icon = "bug", tooltip = "Debug Target",
    callback = function(target) clicks = clicks + 1 end },
}
`)
	d, err := button.Parse(cfg.Records[0])
	require.NoError(t, err)

	_, ok := d.Callback.(button.Action)
	require.True(t, ok)

	opts := d.Options(button.Hooks{})
	run := opts.Callback.(button.Action)
	require.NoError(t, run(opts.Data))
}

func TestLuaModifierCallbacks(t *testing.T) {
	cfg := load(t, "/c/toolbar.lua", `
return {
  { icon = "gear",
    callback = {
      [""] = "settings-view:open",
      shift = function(data) end,
      ["alt+shift"] = { nested = function() end },
    },
    show = { ["function"] = function() return true end } },
}
`)
	cb, ok := cfg.Records[0]["callback"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "settings-view:open", cb[""])

	_, ok = cb["shift"].(button.Action)
	assert.True(t, ok, "shift entry is %T", cb["shift"])

	nested, ok := cb["alt+shift"].(map[string]any)
	require.True(t, ok)
	_, ok = nested["nested"].(button.Action)
	assert.True(t, ok)

	show, ok := cfg.Records[0]["show"].(map[string]any)
	require.True(t, ok)
	_, ok = show["function"].(condition.Predicate)
	assert.True(t, ok)
}

func TestLuaClosed(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/c/toolbar.lua", `return { { callback = "x", show = function() return true end } }`)
	cfg, err := New(WithFS(memfs)).Load("/c/toolbar.lua")
	require.NoError(t, err)

	d, err := button.Parse(cfg.Records[0])
	require.NoError(t, err)
	require.NoError(t, cfg.Close())
	require.NoError(t, cfg.Close())

	_, err = d.Visible(condition.Context{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLuaSandbox(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/c/toolbar.lua", `os.execute("true") return {}`)
	_, err := New(WithFS(memfs)).Load("/c/toolbar.lua")
	assert.Error(t, err)
}

func TestFindInDir(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/p/toolbar.yaml", "[]")
	memfs.AddFile("/p/toolbar.lua", "return {}")

	p, ok := FindInDir(memfs, "/p")
	require.True(t, ok)
	assert.Equal(t, "/p/toolbar.yaml", p)

	_, ok = FindInDir(memfs, "/q")
	assert.False(t, ok)
}

func TestFindInDirLegacy(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/p/toolbar.cson", "[]")

	p, ok := FindInDir(memfs, "/p")
	require.True(t, ok)
	assert.Equal(t, "/p/toolbar.cson", p)

	memfs.AddFile("/p/toolbar.json", "[]")
	p, _ = FindInDir(memfs, "/p")
	assert.Equal(t, "/p/toolbar.json", p, "supported formats win")

	_, err := New(WithFS(memfs)).Load("/p/toolbar.cson")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "toolbar.cson")
	assert.Contains(t, err.Error(), ".json5")
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a/toolbar.JSON"))
	assert.True(t, Supported("toolbar.lua"))
	assert.False(t, Supported("toolbar.cson"))
	assert.False(t, Supported("toolbar"))
}

func TestDefaultJSON(t *testing.T) {
	data, err := DefaultJSON()
	require.NoError(t, err)

	memfs := NewMemFS()
	memfs.AddFile("/c/toolbar.json", string(data))
	cfg, err := New(WithFS(memfs)).Load("/c/toolbar.json")
	require.NoError(t, err)
	require.Len(t, cfg.Records, len(defaultButtons))

	for _, rec := range cfg.Records {
		_, err := button.Parse(rec)
		assert.NoError(t, err)
	}
}

func TestEnsureDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "toolbar.json")

	wrote, err := EnsureDefault(path)
	require.NoError(t, err)
	assert.True(t, wrote)

	cfg, err := New().Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Records)

	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
	wrote, err = EnsureDefault(path)
	require.NoError(t, err)
	assert.False(t, wrote)

	_, err = EnsureDefault(filepath.Join(t.TempDir(), "toolbar.lua"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
