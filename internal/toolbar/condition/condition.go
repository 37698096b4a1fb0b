// Package condition evaluates the visibility rules attached to toolbar
// buttons.
//
// A rule is written in a config file as a bare grammar string, an object with
// grammar/pattern/package/function keys, or a function. Parse resolves that
// shape once into a Condition, an AND-list of typed clauses, so evaluation
// never has to inspect raw config values again.
//
// String values may start with "!" to negate the clause:
//
//	"javascript"                 grammar is javascript
//	{"pattern": "!*.md"}         file name does not match *.md
//	{"pattern": "*.{js,ts}"}     file name ends in .js or .ts
//	{"grammar": "go", "package": "linter"}
package condition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind identifies the clause variant.
type Kind int

const (
	// KindGrammar compares the active grammar name.
	KindGrammar Kind = iota
	// KindPattern matches the active file name against a glob.
	KindPattern
	// KindPackage checks whether a package is active.
	KindPackage
	// KindFunction calls a predicate with the active editor.
	KindFunction
)

// String returns the config key for the kind.
func (k Kind) String() string {
	switch k {
	case KindGrammar:
		return "grammar"
	case KindPattern:
		return "pattern"
	case KindPackage:
		return "package"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// keyOrder is the evaluation order for object conditions.
var keyOrder = map[string]Kind{
	"grammar":  KindGrammar,
	"pattern":  KindPattern,
	"package":  KindPackage,
	"function": KindFunction,
}

// Clause is one typed test inside a Condition.
type Clause struct {
	// Kind is the clause variant.
	Kind Kind
	// Value is the grammar name, glob or package name, without any "!".
	Value string
	// Negate inverts the clause result.
	Negate bool
	// Predicate is set for KindFunction clauses.
	Predicate Predicate
}

// String renders the clause in config syntax.
func (c Clause) String() string {
	if c.Kind == KindFunction {
		return "function"
	}
	if c.Negate {
		return c.Kind.String() + ":!" + c.Value
	}
	return c.Kind.String() + ":" + c.Value
}

// Condition is a parsed visibility rule. The zero value has no clauses and is
// always true.
type Condition struct {
	clauses []Clause
}

// Always returns the trivially true condition.
func Always() Condition {
	return Condition{}
}

// New builds a condition from clauses.
func New(clauses ...Clause) Condition {
	return Condition{clauses: append([]Clause(nil), clauses...)}
}

// Grammar returns a grammar condition in string syntax ("js", "!js").
func Grammar(s string) Condition {
	return New(stringClause(KindGrammar, s))
}

// Pattern returns a file name glob condition.
func Pattern(glob string) Condition {
	return New(stringClause(KindPattern, glob))
}

// Package returns an active package condition.
func Package(name string) Condition {
	return New(stringClause(KindPackage, name))
}

// Function returns a predicate condition.
func Function(p Predicate) Condition {
	return New(Clause{Kind: KindFunction, Predicate: p})
}

// IsAlways reports whether the condition has no clauses.
func (c Condition) IsAlways() bool {
	return len(c.clauses) == 0
}

// Clauses returns a copy of the clauses in evaluation order.
func (c Condition) Clauses() []Clause {
	return append([]Clause(nil), c.clauses...)
}

// Predicates returns the predicates of every function clause.
func (c Condition) Predicates() []Predicate {
	var preds []Predicate
	for _, cl := range c.clauses {
		if cl.Kind == KindFunction && cl.Predicate != nil {
			preds = append(preds, cl.Predicate)
		}
	}
	return preds
}

// HasFunction reports whether the condition contains a function clause.
func (c Condition) HasFunction() bool {
	return len(c.Predicates()) > 0
}

// String renders the condition for logs.
func (c Condition) String() string {
	if c.IsAlways() {
		return "always"
	}
	parts := make([]string, len(c.clauses))
	for i, cl := range c.clauses {
		parts[i] = cl.String()
	}
	return strings.Join(parts, " && ")
}

// Parse resolves a raw config value into a Condition.
//
// nil yields Always; a string is a grammar rule; a map may hold any of the
// grammar, pattern, package and function keys; a predicate function becomes a
// function clause.
func Parse(raw any) (Condition, error) {
	switch v := raw.(type) {
	case nil:
		return Always(), nil
	case string:
		return Grammar(v), nil
	case map[string]any:
		return parseObject(v)
	}

	if p, ok := AsPredicate(raw); ok {
		return Function(p), nil
	}
	return Condition{}, fmt.Errorf("%w: %T", ErrUnsupportedType, raw)
}

func parseObject(obj map[string]any) (Condition, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if _, ok := keyOrder[k]; !ok {
			return Condition{}, fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keyOrder[keys[i]] < keyOrder[keys[j]]
	})

	clauses := make([]Clause, 0, len(keys))
	for _, k := range keys {
		kind := keyOrder[k]
		if kind == KindFunction {
			p, ok := AsPredicate(obj[k])
			if !ok {
				return Condition{}, fmt.Errorf("%w: function must be callable, got %T", ErrInvalidValue, obj[k])
			}
			clauses = append(clauses, Clause{Kind: KindFunction, Predicate: p})
			continue
		}

		s, ok := obj[k].(string)
		if !ok {
			return Condition{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidValue, k, obj[k])
		}
		cl := stringClause(kind, s)
		if kind == KindPattern && !doublestar.ValidatePattern(cl.Value) {
			return Condition{}, fmt.Errorf("%w: bad pattern %q", ErrInvalidValue, s)
		}
		clauses = append(clauses, cl)
	}
	return Condition{clauses: clauses}, nil
}

func stringClause(kind Kind, s string) Clause {
	negate := strings.HasPrefix(s, "!")
	return Clause{
		Kind:   kind,
		Value:  strings.TrimPrefix(s, "!"),
		Negate: negate,
	}
}
