package condition

// Observation is the result of one predicate run.
type Observation struct {
	Predicate Predicate
	Result    bool
	Err       error
}

// Memo records function clause results for one evaluation round so every
// predicate runs at most once, however many times its condition is
// evaluated. A nil Memo records nothing. A Memo is not safe for concurrent
// use.
type Memo struct {
	results map[*Clause]Observation
}

// NewMemo returns an empty Memo.
func NewMemo() *Memo {
	return &Memo{results: make(map[*Clause]Observation)}
}

// Len returns the number of predicates run through m.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return len(m.results)
}

func (m *Memo) call(cl *Clause, ed Editor) (bool, error) {
	if m == nil {
		return cl.Predicate.Call(ed)
	}
	if o, ok := m.results[cl]; ok {
		return o.Result, o.Err
	}
	ok, err := cl.Predicate.Call(ed)
	m.results[cl] = Observation{Predicate: cl.Predicate, Result: ok, Err: err}
	return ok, err
}

// Observe returns one observation per function clause, in order. Clauses
// already run through ctx.Memo report the recorded result; the rest run now.
func (c Condition) Observe(ctx Context) []Observation {
	var out []Observation
	for i := range c.clauses {
		cl := &c.clauses[i]
		if cl.Kind != KindFunction || cl.Predicate == nil {
			continue
		}
		ok, err := ctx.Memo.call(cl, ctx.Editor)
		out = append(out, Observation{Predicate: cl.Predicate, Result: ok, Err: err})
	}
	return out
}
