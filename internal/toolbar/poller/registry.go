package poller

import (
	"github.com/dshills/flextoolbar/internal/logging"
	"github.com/dshills/flextoolbar/internal/toolbar/condition"
)

// entry pairs a predicate with its last observed result.
type entry struct {
	pred condition.Predicate
	last bool
}

// Registry is the ordered set of function conditions polled for one reload.
// It is built once per reload and never shared between tasks.
type Registry struct {
	entries []entry
}

// NewRegistry builds a registry seeded with an immediate evaluation of every
// predicate against ed. Failing predicates are recorded as false.
func NewRegistry(preds []condition.Predicate, ed condition.Editor, logger *logging.Logger) *Registry {
	obs := make([]condition.Observation, 0, len(preds))
	for _, p := range preds {
		if p == nil {
			continue
		}
		ok, err := p.Call(ed)
		obs = append(obs, condition.Observation{Predicate: p, Result: ok, Err: err})
	}
	return NewObservedRegistry(obs, logger)
}

// NewObservedRegistry builds a registry from results already observed, so
// the first tick compares against exactly what the caller acted on.
// Observations with an error are recorded as false.
func NewObservedRegistry(obs []condition.Observation, logger *logging.Logger) *Registry {
	logger = logging.OrNop(logger)
	r := &Registry{entries: make([]entry, 0, len(obs))}
	for i, o := range obs {
		if o.Predicate == nil {
			continue
		}
		last := o.Result
		if o.Err != nil {
			logger.Debug("predicate %d failed while seeding: %v", i, o.Err)
			last = false
		}
		r.entries = append(r.entries, entry{pred: o.Predicate, last: last})
	}
	return r
}

// Len returns the number of registered predicates.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Results returns the last recorded result of every predicate, in order.
func (r *Registry) Results() []bool {
	if r == nil {
		return nil
	}
	out := make([]bool, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.last
	}
	return out
}

// Poll re-evaluates every predicate against ed. Every predicate runs even
// when an earlier one fails. If any result differs from the recorded one,
// all recorded results are replaced and Poll reports true.
func (r *Registry) Poll(ed condition.Editor, logger *logging.Logger) bool {
	if r.Len() == 0 {
		return false
	}
	logger = logging.OrNop(logger)

	fresh := make([]bool, len(r.entries))
	changed := false
	for i, e := range r.entries {
		ok, err := e.pred.Call(ed)
		if err != nil {
			logger.Debug("predicate %d failed: %v", i, err)
			ok = false
		}
		fresh[i] = ok
		if ok != e.last {
			changed = true
		}
	}

	if changed {
		for i := range r.entries {
			r.entries[i].last = fresh[i]
		}
	}
	return changed
}
