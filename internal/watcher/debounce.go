package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces events per path and delivers each path once its
// delay has passed without further events.
type debouncer struct {
	delay   time.Duration
	deliver func(Event)

	mu      sync.Mutex
	pending map[string]*pendingEvent
	closed  bool
}

// pendingEvent tracks a debounced event.
type pendingEvent struct {
	event Event
	timer *time.Timer
}

func newDebouncer(delay time.Duration, deliver func(Event)) *debouncer {
	if delay <= 0 {
		delay = DefaultConfig().DebounceDelay
	}
	return &debouncer{
		delay:   delay,
		deliver: deliver,
		pending: make(map[string]*pendingEvent),
	}
}

// add schedules event, merging it into a pending event for the same path.
func (d *debouncer) add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if p, ok := d.pending[event.Path]; ok {
		p.event.Op |= event.Op
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(d.delay)
		return
	}

	p := &pendingEvent{event: event}
	path := event.Path
	p.timer = time.AfterFunc(d.delay, func() { d.fire(path) })
	d.pending[path] = p
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	event := p.event
	d.mu.Unlock()

	d.deliver(event)
}

// flush delivers every pending event immediately.
func (d *debouncer) flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for path, p := range d.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	d.mu.Unlock()

	for _, path := range paths {
		d.fire(path)
	}
}

// drop forgets a pending event without delivering it.
func (d *debouncer) drop(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}
