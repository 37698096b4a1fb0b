package button

// Options is what the toolbar widget receives for a button.
type Options struct {
	Icon     string
	Iconset  string
	Text     string
	HTML     bool
	Tooltip  string
	Class    []string
	Style    map[string]any
	Priority int
	Disabled bool

	// Callback is a command name, a modifier map, or an Action.
	Callback any
	// Data is passed to an Action callback when the button is clicked.
	Data any
}

// SpacerOptions is what the toolbar widget receives for a spacer.
type SpacerOptions struct {
	Priority int
}

// Hooks supplies the host actions that url and function buttons are bound to.
type Hooks struct {
	// OpenURL opens a URL button's address.
	OpenURL Action
}

// Options maps a non-spacer descriptor to widget options.
//
//	url      -> {Icon, Data: url, Tooltip, Callback: hooks.OpenURL}
//	button   -> {Icon, Iconset, Tooltip, Callback}
//	function -> {Icon, Data: callback, Tooltip, Callback: runner}
func (d *Descriptor) Options(hooks Hooks) Options {
	opts := Options{
		Icon:     d.Icon,
		Iconset:  d.Iconset,
		Text:     d.Text,
		HTML:     d.HTML,
		Tooltip:  d.Tooltip,
		Class:    d.Class,
		Style:    d.Style,
		Priority: d.Priority,
	}

	switch d.Type {
	case TypeURL:
		opts.Data = d.URL
		if hooks.OpenURL != nil {
			opts.Callback = hooks.OpenURL
		}
	case TypeFunction:
		opts.Data = d.Callback
		opts.Callback = Action(runFunction)
	default:
		opts.Callback = d.Callback
	}
	return opts
}

// SpacerOptions maps a spacer descriptor to widget options.
func (d *Descriptor) SpacerOptions() SpacerOptions {
	return SpacerOptions{Priority: d.Priority}
}

// runFunction invokes the function stored as a function button's data.
func runFunction(data any) error {
	switch fn := data.(type) {
	case Action:
		return fn(nil)
	case func(any) error:
		return fn(nil)
	case func():
		fn()
		return nil
	default:
		return ErrMissingCallback
	}
}
