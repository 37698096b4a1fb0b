package button

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flextoolbar/internal/toolbar/condition"
)

func TestParseURL(t *testing.T) {
	d, err := Parse(map[string]any{
		"type":    "url",
		"icon":    "octoface",
		"url":     "http://github.com",
		"tooltip": "Github Page",
	})
	require.NoError(t, err)

	opened := ""
	opts := d.Options(Hooks{OpenURL: func(data any) error {
		opened = data.(string)
		return nil
	}})

	assert.Equal(t, "octoface", opts.Icon)
	assert.Equal(t, "http://github.com", opts.Data)
	assert.Equal(t, "Github Page", opts.Tooltip)

	cb, ok := opts.Callback.(Action)
	require.True(t, ok)
	require.NoError(t, cb(opts.Data))
	assert.Equal(t, "http://github.com", opened)
}

func TestParseSpacer(t *testing.T) {
	d, err := Parse(map[string]any{"type": "spacer"})
	require.NoError(t, err)
	assert.Equal(t, TypeSpacer, d.Type)
	assert.Equal(t, SpacerOptions{Priority: 45}, d.SpacerOptions())

	d, err = Parse(map[string]any{"type": "spacer", "priority": float64(10)})
	require.NoError(t, err)
	assert.Equal(t, SpacerOptions{Priority: 10}, d.SpacerOptions())
}

func TestParseButton(t *testing.T) {
	d, err := Parse(map[string]any{
		"type":     "button",
		"icon":     "columns",
		"iconset":  "fa",
		"tooltip":  "Split Right",
		"callback": "pane:split-right",
	})
	require.NoError(t, err)

	opts := d.Options(Hooks{})
	assert.Equal(t, "columns", opts.Icon)
	assert.Equal(t, "fa", opts.Iconset)
	assert.Equal(t, "Split Right", opts.Tooltip)
	assert.Equal(t, "pane:split-right", opts.Callback)
	assert.Equal(t, DefaultPriority, opts.Priority)
}

func TestParseFunction(t *testing.T) {
	var got int
	callback := Action(func(any) error {
		got++
		return nil
	})

	d, err := Parse(map[string]any{
		"type":     "function",
		"icon":     "bug",
		"callback": callback,
		"tooltip":  "Debug Target",
	})
	require.NoError(t, err)

	opts := d.Options(Hooks{})
	assert.Equal(t, "bug", opts.Icon)
	assert.Equal(t, "Debug Target", opts.Tooltip)
	require.NotNil(t, opts.Data)

	run, ok := opts.Callback.(Action)
	require.True(t, ok)
	require.NoError(t, run(opts.Data))
	assert.Equal(t, 1, got)
}

func TestParseDefaultsToButton(t *testing.T) {
	d, err := Parse(map[string]any{
		"text":     "test",
		"callback": "application:about",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeButton, d.Type)
	assert.Equal(t, "test", d.Options(Hooks{}).Text)
}

func TestParseModifierCallback(t *testing.T) {
	cb := map[string]any{"": "pane:split-right", "shift": "pane:split-down"}
	d, err := Parse(map[string]any{"icon": "columns", "callback": cb})
	require.NoError(t, err)
	assert.Equal(t, cb, d.Options(Hooks{}).Callback)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want error
	}{
		{"unknown type", map[string]any{"type": "menu"}, ErrUnknownType},
		{"type not string", map[string]any{"type": 1}, ErrInvalidField},
		{"missing callback", map[string]any{"icon": "x"}, ErrMissingCallback},
		{"function missing callback", map[string]any{"type": "function"}, ErrMissingCallback},
		{"url missing url", map[string]any{"type": "url"}, ErrInvalidField},
		{"icon not string", map[string]any{"icon": 3, "callback": "a"}, ErrInvalidField},
		{"fractional priority", map[string]any{"type": "spacer", "priority": 1.5}, ErrInvalidField},
		{"bad class", map[string]any{"class": 3, "callback": "a"}, ErrInvalidField},
		{"bad show", map[string]any{"callback": "a", "show": map[string]any{"nope": "x"}}, condition.ErrUnknownKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseClass(t *testing.T) {
	d, err := Parse(map[string]any{"callback": "a", "class": "big red"})
	require.NoError(t, err)
	assert.Equal(t, []string{"big", "red"}, d.Class)

	d, err = Parse(map[string]any{"callback": "a", "class": []any{"one", "two"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, d.Class)
}

func TestVisibleShowHide(t *testing.T) {
	ctx := condition.Context{Grammar: "go", FilePath: "/p/main_test.go"}

	d, err := Parse(map[string]any{"callback": "a"})
	require.NoError(t, err)
	ok, err := d.Visible(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "no show field is always visible")

	d, err = Parse(map[string]any{"callback": "a", "show": "go", "hide": map[string]any{"pattern": "*_test.go"}})
	require.NoError(t, err)
	ok, err = d.Visible(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	d, err = Parse(map[string]any{"callback": "a", "show": "!go"})
	require.NoError(t, err)
	ok, err = d.Visible(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnabled(t *testing.T) {
	ctx := condition.Context{Packages: condition.NewPackageSet("git")}

	d, err := Parse(map[string]any{"callback": "a"})
	require.NoError(t, err)
	ok, err := d.Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	d, err = Parse(map[string]any{"callback": "a", "enable": map[string]any{"package": "git"}, "disable": map[string]any{"package": "vim"}})
	require.NoError(t, err)
	ok, err = d.Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	d, err = Parse(map[string]any{"callback": "a", "disable": map[string]any{"package": "git"}})
	require.NoError(t, err)
	ok, err = d.Enabled(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVisibleFailsClosed(t *testing.T) {
	d, err := Parse(map[string]any{
		"callback": "a",
		"show": func(condition.Editor) (any, error) {
			return nil, errors.New("broken")
		},
	})
	require.NoError(t, err)

	ok, err := d.Visible(condition.Context{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, condition.ErrPredicateFailed)
}

func TestPredicates(t *testing.T) {
	d, err := Parse(map[string]any{
		"callback": "a",
		"show":     map[string]any{"grammar": "go", "function": func(condition.Editor) bool { return true }},
		"disable":  func(condition.Editor) bool { return false },
	})
	require.NoError(t, err)
	assert.Len(t, d.Predicates(), 2)
}
