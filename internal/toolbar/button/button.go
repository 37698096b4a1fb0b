// Package button parses toolbar button records and maps them to the shape the
// toolbar widget expects.
package button

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dshills/flextoolbar/internal/toolbar/condition"
)

// DefaultPriority is used for buttons and spacers without a priority.
const DefaultPriority = 45

// Type is the descriptor variant.
type Type string

const (
	// TypeButton runs an editor command.
	TypeButton Type = "button"
	// TypeURL opens a URL.
	TypeURL Type = "url"
	// TypeFunction calls a function from a scripted config.
	TypeFunction Type = "function"
	// TypeSpacer separates button groups.
	TypeSpacer Type = "spacer"
)

// Errors returned by Parse.
var (
	ErrUnknownType     = errors.New("unknown button type")
	ErrInvalidField    = errors.New("invalid button field")
	ErrMissingCallback = errors.New("button has no callback")
)

// Action is a callback supplied as a function by a scripted config. It
// receives the button's data value.
type Action func(data any) error

// Descriptor is one configured toolbar entry. Descriptors are immutable and
// replaced on every reload.
type Descriptor struct {
	Type     Type
	Icon     string
	Iconset  string
	Text     string
	HTML     bool
	Tooltip  string
	URL      string
	Class    []string
	Style    map[string]any
	Priority int

	// Callback is a command name, a map of modifier keys to command names,
	// or an Action.
	Callback any

	Show    condition.Condition
	Hide    condition.Condition
	Enable  condition.Condition
	Disable condition.Condition

	hasHide    bool
	hasDisable bool
}

// Parse builds a Descriptor from a raw config record. A record without type
// is a button.
func Parse(raw map[string]any) (*Descriptor, error) {
	d := &Descriptor{Type: TypeButton, Priority: DefaultPriority}

	if v, ok := raw["type"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: type must be a string, got %T", ErrInvalidField, v)
		}
		switch t := Type(strings.ToLower(s)); t {
		case TypeButton, TypeURL, TypeFunction, TypeSpacer:
			d.Type = t
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, s)
		}
	}

	var err error
	if d.Icon, err = stringField(raw, "icon"); err != nil {
		return nil, err
	}
	if d.Iconset, err = stringField(raw, "iconset"); err != nil {
		return nil, err
	}
	if d.Text, err = stringField(raw, "text"); err != nil {
		return nil, err
	}
	if d.Tooltip, err = stringField(raw, "tooltip"); err != nil {
		return nil, err
	}
	if d.URL, err = stringField(raw, "url"); err != nil {
		return nil, err
	}
	if v, ok := raw["html"].(bool); ok {
		d.HTML = v
	}
	if d.Class, err = classField(raw["class"]); err != nil {
		return nil, err
	}
	if v, ok := raw["style"].(map[string]any); ok {
		d.Style = v
	}
	if v, ok := raw["priority"]; ok {
		p, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("%w: priority must be a number, got %T", ErrInvalidField, v)
		}
		d.Priority = p
	}

	d.Callback = raw["callback"]
	switch d.Type {
	case TypeButton, TypeFunction:
		if d.Callback == nil {
			return nil, ErrMissingCallback
		}
	case TypeURL:
		if d.URL == "" {
			return nil, fmt.Errorf("%w: url button needs a url", ErrInvalidField)
		}
	}

	if d.Show, err = conditionField(raw, "show"); err != nil {
		return nil, err
	}
	if d.Hide, err = conditionField(raw, "hide"); err != nil {
		return nil, err
	}
	if d.Enable, err = conditionField(raw, "enable"); err != nil {
		return nil, err
	}
	if d.Disable, err = conditionField(raw, "disable"); err != nil {
		return nil, err
	}
	_, d.hasHide = raw["hide"]
	_, d.hasDisable = raw["disable"]

	return d, nil
}

// Visible reports whether the descriptor is shown in ctx.
func (d *Descriptor) Visible(ctx condition.Context) (bool, error) {
	show, err := condition.Evaluate(d.Show, ctx)
	if err != nil || !show {
		return false, err
	}
	if !d.hasHide {
		return true, nil
	}
	hide, err := condition.Evaluate(d.Hide, ctx)
	if err != nil {
		return false, err
	}
	return !hide, nil
}

// Enabled reports whether a visible descriptor is clickable in ctx.
func (d *Descriptor) Enabled(ctx condition.Context) (bool, error) {
	enable, err := condition.Evaluate(d.Enable, ctx)
	if err != nil || !enable {
		return false, err
	}
	if !d.hasDisable {
		return true, nil
	}
	disable, err := condition.Evaluate(d.Disable, ctx)
	if err != nil {
		return false, err
	}
	return !disable, nil
}

// Predicates returns every function predicate in the descriptor's
// conditions.
func (d *Descriptor) Predicates() []condition.Predicate {
	var preds []condition.Predicate
	for _, c := range []condition.Condition{d.Show, d.Hide, d.Enable, d.Disable} {
		preds = append(preds, c.Predicates()...)
	}
	return preds
}

// Observe returns one observation per function predicate, in the order of
// Predicates. With ctx.Memo set, predicates already run by Visible or Enabled
// are not run again.
func (d *Descriptor) Observe(ctx condition.Context) []condition.Observation {
	var obs []condition.Observation
	for _, c := range []condition.Condition{d.Show, d.Hide, d.Enable, d.Disable} {
		obs = append(obs, c.Observe(ctx)...)
	}
	return obs
}

func stringField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidField, key, v)
	}
	return s, nil
}

func classField(v any) ([]string, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(c), nil
	case []string:
		return c, nil
	case []any:
		out := make([]string, 0, len(c))
		for _, item := range c {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: class entries must be strings, got %T", ErrInvalidField, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: class must be a string or list, got %T", ErrInvalidField, v)
	}
}

func conditionField(raw map[string]any, key string) (condition.Condition, error) {
	c, err := condition.Parse(raw[key])
	if err != nil {
		return condition.Condition{}, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if math.Trunc(n) != n {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
