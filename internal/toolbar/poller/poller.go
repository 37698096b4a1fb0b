// Package poller re-evaluates function conditions on a fixed interval and
// reports when any of them flips.
//
// Every Reset replaces the running task: the old task is cancelled before
// the new ticker exists, so two tasks never deliver ticks for the same
// poller. An empty predicate set arms nothing.
package poller

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dshills/flextoolbar/internal/logging"
	"github.com/dshills/flextoolbar/internal/toolbar/condition"
)

// DefaultInterval is the polling period.
const DefaultInterval = 300 * time.Millisecond

// Poller owns at most one polling task.
type Poller struct {
	clock    clock.Clock
	interval time.Duration
	logger   *logging.Logger
	onChange func()
	editor   func() condition.Editor

	mu      sync.Mutex
	task    *task
	stopped bool

	ticks   atomic.Int64
	changes atomic.Int64
}

// task is one armed polling loop. It is created by Reset and never reused.
type task struct {
	ticker *clock.Ticker
	reg    *Registry
	done   chan struct{}
	once   sync.Once
}

func (t *task) cancel() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

func (t *task) cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the polling period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock sets the clock used for the ticker.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Poller) {
		p.logger = logging.OrNop(logger).WithComponent("poller")
	}
}

// New creates an idle poller. onChange runs on the poller goroutine after a
// tick observed a change; editor supplies the handle passed to predicates and
// may return nil.
func New(onChange func(), editor func() condition.Editor, opts ...Option) *Poller {
	if onChange == nil {
		onChange = func() {}
	}
	if editor == nil {
		editor = func() condition.Editor { return nil }
	}
	p := &Poller{
		clock:    clock.New(),
		interval: DefaultInterval,
		logger:   logging.Nop(),
		onChange: onChange,
		editor:   editor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reset cancels the current task and, when preds is not empty, arms a new
// one seeded by running every predicate once. It never waits for the old
// task, so it is safe to call from onChange.
func (p *Poller) Reset(preds []condition.Predicate) {
	var reg *Registry
	if len(preds) > 0 {
		reg = NewRegistry(preds, p.editor(), p.logger)
	}
	p.arm(reg)
}

// ResetObserved is Reset seeded with results the caller already observed.
// No predicate runs until the first tick.
func (p *Poller) ResetObserved(obs []condition.Observation) {
	var reg *Registry
	if len(obs) > 0 {
		reg = NewObservedRegistry(obs, p.logger)
	}
	p.arm(reg)
}

func (p *Poller) arm(reg *Registry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.task != nil {
		p.task.cancel()
		p.task = nil
	}
	if p.stopped || reg.Len() == 0 {
		return
	}

	t := &task{
		ticker: p.clock.Ticker(p.interval),
		reg:    reg,
		done:   make(chan struct{}),
	}
	p.task = t
	p.logger.Debug("armed %d predicates every %s", reg.Len(), p.interval)
	go p.run(t)
}

// SetInterval changes the polling period. It takes effect on the next Reset.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

// Stop disarms the current task. Reset arms nothing until Start is called.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.task != nil {
		p.task.cancel()
		p.task = nil
	}
}

// Start allows Reset to arm tasks again.
func (p *Poller) Start() {
	p.mu.Lock()
	p.stopped = false
	p.mu.Unlock()
}

// Armed reports whether a task is running.
func (p *Poller) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task != nil
}

// Len returns the number of predicates polled by the current task.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task == nil {
		return 0
	}
	return p.task.reg.Len()
}

// Ticks returns the number of ticks handled since the poller was created.
func (p *Poller) Ticks() int64 {
	return p.ticks.Load()
}

// Changes returns the number of ticks that reported a change.
func (p *Poller) Changes() int64 {
	return p.changes.Load()
}

func (p *Poller) run(t *task) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			if t.cancelled() {
				return
			}
			p.ticks.Add(1)
			if !t.reg.Poll(p.editor(), p.logger) {
				continue
			}
			if t.cancelled() {
				return
			}
			p.changes.Add(1)
			p.onChange()
		}
	}
}
