package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/flextoolbar/internal/toolbar/button"
)

// Errors returned by Strip.Click.
var (
	ErrNoButton  = errors.New("no button at position")
	ErrDisabled  = errors.New("button is disabled")
	ErrNoCommand = errors.New("no command for modifiers")
)

// Dispatcher runs a named editor command.
type Dispatcher func(command string) error

// Styles used by Strip.
type Styles struct {
	Bar      tcell.Style
	Button   tcell.Style
	Disabled tcell.Style
	Spacer   tcell.Style
}

// DefaultStyles returns the default strip palette.
func DefaultStyles() Styles {
	bar := tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	return Styles{
		Bar:      bar,
		Button:   bar.Bold(true),
		Disabled: bar.Dim(true),
		Spacer:   bar.Foreground(tcell.ColorGray),
	}
}

// span is the screen columns occupied by one item.
type span struct {
	start, end int
	item       Item
}

// Strip draws the toolbar as one row of a tcell screen and maps clicks back
// to buttons.
type Strip struct {
	rec *Recorder

	mu       sync.Mutex
	screen   tcell.Screen
	row      int
	styles   Styles
	dispatch Dispatcher
	spans    []span
}

// NewStrip creates a strip drawing on row of screen.
func NewStrip(screen tcell.Screen, row int, dispatch Dispatcher) *Strip {
	if dispatch == nil {
		dispatch = func(string) error { return nil }
	}
	return &Strip{
		rec:      NewRecorder(),
		screen:   screen,
		row:      row,
		styles:   DefaultStyles(),
		dispatch: dispatch,
	}
}

// SetStyles replaces the palette.
func (s *Strip) SetStyles(styles Styles) {
	s.mu.Lock()
	s.styles = styles
	s.mu.Unlock()
	s.Draw()
}

// Clear removes every item and blanks the row.
func (s *Strip) Clear() {
	s.rec.Clear()
	s.Draw()
}

// AddButton adds a button and redraws.
func (s *Strip) AddButton(opts button.Options) {
	s.rec.AddButton(opts)
	s.Draw()
}

// AddSpacer adds a spacer and redraws.
func (s *Strip) AddSpacer(opts button.SpacerOptions) {
	s.rec.AddSpacer(opts)
	s.Draw()
}

// Items returns the strip's items ordered by priority.
func (s *Strip) Items() []Item {
	return s.rec.Sorted()
}

// Draw lays out the items by priority and paints the row.
func (s *Strip) Draw() {
	items := s.rec.Sorted()

	s.mu.Lock()
	defer s.mu.Unlock()

	width, _ := s.screen.Size()
	for x := 0; x < width; x++ {
		s.screen.SetContent(x, s.row, ' ', nil, s.styles.Bar)
	}

	s.spans = s.spans[:0]
	x := 0
	for _, it := range items {
		label := " " + it.Label() + " "
		style := s.styles.Button
		switch {
		case it.Kind == KindSpacer:
			style = s.styles.Spacer
		case it.Button.Disabled:
			style = s.styles.Disabled
		}

		start := x
		x = s.drawString(x, label, style, width)
		s.spans = append(s.spans, span{start: start, end: x, item: it})
		if x >= width {
			break
		}
	}
	s.screen.Show()
}

// drawString paints str from column x and returns the next free column.
func (s *Strip) drawString(x int, str string, style tcell.Style, width int) int {
	g := uniseg.NewGraphemes(str)
	for g.Next() && x < width {
		runes := g.Runes()
		s.screen.SetContent(x, s.row, runes[0], runes[1:], style)
		w := g.Width()
		if w < 1 {
			w = 1
		}
		x += w
	}
	return x
}

// ButtonAt returns the item drawn at column x.
func (s *Strip) ButtonAt(x int) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.spans), func(i int) bool { return s.spans[i].end > x })
	if i < len(s.spans) && s.spans[i].start <= x {
		return s.spans[i].item, true
	}
	return Item{}, false
}

// Click activates the button at column x with the given modifiers.
func (s *Strip) Click(x int, mods tcell.ModMask) error {
	it, ok := s.ButtonAt(x)
	if !ok || it.Kind != KindButton {
		return ErrNoButton
	}
	if it.Button.Disabled {
		return ErrDisabled
	}
	return s.invoke(it.Button, mods)
}

func (s *Strip) invoke(opts button.Options, mods tcell.ModMask) error {
	switch cb := opts.Callback.(type) {
	case map[string]any:
		entry, ok := entryFor(cb, mods)
		if !ok {
			return ErrNoCommand
		}
		return s.run(entry, opts)
	case nil:
		return fmt.Errorf("%w: %q", button.ErrMissingCallback, opts.Tooltip)
	default:
		return s.run(cb, opts)
	}
}

// run executes one callback value: an action or a command name.
func (s *Strip) run(cb any, opts button.Options) error {
	switch cb := cb.(type) {
	case button.Action:
		return cb(opts.Data)
	case string:
		return s.dispatch(cb)
	default:
		return fmt.Errorf("%w: unsupported callback %T", button.ErrInvalidField, cb)
	}
}

// entryFor picks the callback for the held modifiers from a modifier map
// such as {"": "a", "shift": "b", "alt+shift": "c"}. Values are command
// names or actions.
func entryFor(m map[string]any, mods tcell.ModMask) (any, bool) {
	if v, ok := m[modifierKey(mods)]; ok && v != nil {
		return v, true
	}
	for key, v := range m {
		if v != nil && sameModifiers(key, mods) {
			return v, true
		}
	}
	return nil, false
}

func modifierKey(mods tcell.ModMask) string {
	var parts []string
	if mods&tcell.ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if mods&tcell.ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if mods&tcell.ModShift != 0 {
		parts = append(parts, "shift")
	}
	return strings.Join(parts, "+")
}

func sameModifiers(key string, mods tcell.ModMask) bool {
	parts := strings.Split(strings.ToLower(key), "+")
	sort.Strings(parts)
	if len(parts) == 1 && parts[0] == "" {
		parts = nil
	}
	return strings.Join(parts, "+") == modifierKey(mods)
}
