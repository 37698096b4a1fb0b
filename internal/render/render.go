// Package render provides toolbar widgets: an in-memory Recorder and a
// terminal Strip drawn with tcell.
package render

import (
	"sort"
	"sync"

	"github.com/dshills/flextoolbar/internal/toolbar/button"
)

// Kind distinguishes buttons from spacers.
type Kind int

const (
	KindButton Kind = iota
	KindSpacer
)

// Item is one entry added to a toolbar.
type Item struct {
	Kind   Kind
	Button button.Options
	Spacer button.SpacerOptions
}

// Priority returns the item's sort priority.
func (it Item) Priority() int {
	if it.Kind == KindSpacer {
		return it.Spacer.Priority
	}
	return it.Button.Priority
}

// Label returns the text shown for the item.
func (it Item) Label() string {
	if it.Kind == KindSpacer {
		return "|"
	}
	switch {
	case it.Button.Text != "":
		return it.Button.Text
	case it.Button.Icon != "":
		return it.Button.Icon
	default:
		return it.Button.Tooltip
	}
}

// Recorder keeps the items it is given. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	items  []Item
	clears int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Clear removes every item.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
	r.clears++
}

// AddButton appends a button.
func (r *Recorder) AddButton(opts button.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Item{Kind: KindButton, Button: opts})
}

// AddSpacer appends a spacer.
func (r *Recorder) AddSpacer(opts button.SpacerOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Item{Kind: KindSpacer, Spacer: opts})
}

// Items returns the items in the order they were added.
func (r *Recorder) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.items...)
}

// Sorted returns the items ordered by priority. Equal priorities keep their
// insertion order.
func (r *Recorder) Sorted() []Item {
	items := r.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority() < items[j].Priority()
	})
	return items
}

// Labels returns the label of every item in insertion order.
func (r *Recorder) Labels() []string {
	items := r.Items()
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label()
	}
	return out
}

// Clears returns how many times Clear was called.
func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}
