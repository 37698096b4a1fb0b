package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runArgs(t, "-version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "flextoolbar dev")
}

func TestRunBadFlag(t *testing.T) {
	code, _, errOut := runArgs(t, "-nope")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage: flextoolbar")
}

func TestRunPrintSettings(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("pollIntervalMs = 450\n"), 0o644))

	code, out, _ := runArgs(t, "-settings", settingsPath, "-print-settings")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "pollIntervalMs = 450")
}

func TestRunPlain(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	doc := filepath.Join(project, "main.go")
	require.NoError(t, os.WriteFile(doc, []byte("package main\n"), 0o644))
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "toolbar.json"), []byte(`[
		{"text": "Run", "callback": "go:run", "show": "Go", "priority": 10},
		{"type": "spacer", "priority": 20},
		{"text": "Lint", "callback": "go:lint", "disable": {"pattern": "main.go"}, "priority": 30},
		{"text": "Preview", "callback": "markdown:preview", "show": {"pattern": "*.md"}}
	]`), 0o644))

	code, out, errOut := runArgs(t,
		"-settings", filepath.Join(dir, "missing.toml"),
		"-config-dir", configDir,
		"-plain",
		doc,
	)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "global:  "+filepath.Join(configDir, "toolbar.json"))
	assert.Contains(t, out, "Run")
	assert.Contains(t, out, "----")
	assert.Contains(t, out, "Lint")
	assert.Contains(t, out, "(disabled)")
	assert.NotContains(t, out, "Preview")
}

func TestRunPlainCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	code, out, errOut := runArgs(t,
		"-settings", filepath.Join(dir, "missing.toml"),
		"-config-dir", dir,
		"-log-level", "error",
		"-plain",
	)
	require.Equal(t, 0, code, errOut)

	_, err := os.Stat(filepath.Join(dir, "toolbar.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Open Settings")
}

func TestRunInvalidSettings(t *testing.T) {
	code, _, errOut := runArgs(t, "-settings", filepath.Join(t.TempDir(), "missing.toml"), "-log-level", "loud", "-plain")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "logLevel")
}

func TestGuessGrammar(t *testing.T) {
	assert.Equal(t, "Go", guessGrammar("/p/main.go"))
	assert.Equal(t, "GitHub Markdown", guessGrammar("README.MD"))
	assert.Equal(t, "Plain Text", guessGrammar("Makefile"))
	assert.Equal(t, "", guessGrammar(""))
}

func TestHostToggleModified(t *testing.T) {
	h := newHost(options{file: "/p/main.go"})
	require.NotNil(t, h.ActiveEditor())
	assert.Equal(t, "Go", h.ActiveEditor().GrammarName())

	assert.True(t, h.toggleModified())
	assert.True(t, h.ActiveEditor().IsModified())
	assert.False(t, h.toggleModified())

	empty := newHost(options{})
	assert.Nil(t, empty.ActiveEditor())
	assert.False(t, empty.toggleModified())
}

func TestStringList(t *testing.T) {
	var s stringList
	require.NoError(t, s.Set("a, b"))
	require.NoError(t, s.Set("c"))
	assert.Equal(t, stringList{"a", "b", "c"}, s)
	assert.Equal(t, "a,b,c", s.String())
}
