package condition

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
)

// PackageSet is the set of active package names.
type PackageSet map[string]struct{}

// NewPackageSet builds a set from names.
func NewPackageSet(names ...string) PackageSet {
	s := make(PackageSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is active.
func (s PackageSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Clone returns an independent copy.
func (s PackageSet) Clone() PackageSet {
	c := make(PackageSet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Context is the editor state conditions are evaluated against. Empty
// Grammar and FilePath mean there is no grammar or no file. Grammar and
// pattern clauses are false without one, but a negated grammar is true.
type Context struct {
	Grammar  string
	FilePath string
	Packages PackageSet
	Editor   Editor

	// Memo, when set, makes function clauses run once per round.
	Memo *Memo
}

// Evaluate reports whether c holds in ctx. Clauses are ANDed and evaluation
// stops at the first false one. A failing predicate yields false and a
// *PredicateError.
func Evaluate(c Condition, ctx Context) (bool, error) {
	for i := range c.clauses {
		ok, err := evaluateClause(&c.clauses[i], ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateClause(cl *Clause, ctx Context) (bool, error) {
	var hit bool
	switch cl.Kind {
	case KindGrammar:
		hit = ctx.Grammar != "" && foldEqual(cl.Value, ctx.Grammar)
	case KindPattern:
		// No file: false in both forms.
		if ctx.FilePath == "" {
			return false, nil
		}
		hit, _ = doublestar.Match(cl.Value, filepath.Base(ctx.FilePath))
	case KindPackage:
		hit = ctx.Packages.Has(cl.Value)
	case KindFunction:
		if cl.Predicate == nil {
			return false, nil
		}
		return ctx.Memo.call(cl, ctx.Editor)
	}

	if cl.Negate {
		return !hit, nil
	}
	return hit, nil
}

// foldEqual compares grammar names case-insensitively.
func foldEqual(a, b string) bool {
	if a == b {
		return true
	}
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}
