// Package macro inlines macro references produced by the parser into their
// definitions, per spec.md §4.4. A macro's definition is itself query text;
// it is parsed lazily, on first use, and the parsed body is cached so a
// macro referenced from many queries is only parsed once. Expansion walks
// the macro's own body looking for further macro references, maintaining an
// expansion stack so a cycle (a macro that, transitively, refers to
// itself) is reported as MacroCycle instead of recursing forever.
package macro

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/grammar"
	"github.com/cabb99/molselect/parser"
	"github.com/cabb99/molselect/registry"
)

// MacroCycle is returned when expanding a macro would recurse into itself,
// directly or transitively.
type MacroCycle struct {
	Path []string // macro names, in reference order, with the repeated name last
}

func (e *MacroCycle) Error() string {
	return "macro cycle: " + strings.Join(e.Path, " -> ")
}

// Expander inlines BoolFlag macro references in a parsed query's IR. A
// single Expander should be reused across queries sharing a Grammar and
// Registry so the parsed-macro-body cache is shared; it is safe for
// concurrent use by multiple goroutines, matching the immutable-after-
// registration concurrency model the Registry itself follows.
type Expander struct {
	gram *grammar.Grammar
	reg  *registry.Registry

	mu    sync.Mutex
	cache map[string]ast.Node // canonical macro name -> parsed (not yet expanded) body
}

// New constructs an Expander over an assembled grammar and the registry it
// was assembled from.
func New(g *grammar.Grammar, r *registry.Registry) *Expander {
	return &Expander{gram: g, reg: r, cache: make(map[string]ast.Node)}
}

// Expand returns node with every macro reference recursively inlined.
func (e *Expander) Expand(node ast.Node) (ast.Node, error) {
	return e.expand(node, nil)
}

func (e *Expander) expand(node ast.Node, stack []string) (ast.Node, error) {
	switch n := node.(type) {
	case *ast.And:
		left, err := e.expand(n.Left, stack)
		if err != nil {
			return nil, err
		}
		right, err := e.expand(n.Right, stack)
		if err != nil {
			return nil, err
		}
		return &ast.And{Left: left, Right: right, Position: n.Position}, nil
	case *ast.Or:
		left, err := e.expand(n.Left, stack)
		if err != nil {
			return nil, err
		}
		right, err := e.expand(n.Right, stack)
		if err != nil {
			return nil, err
		}
		return &ast.Or{Left: left, Right: right, Position: n.Position}, nil
	case *ast.Xor:
		left, err := e.expand(n.Left, stack)
		if err != nil {
			return nil, err
		}
		right, err := e.expand(n.Right, stack)
		if err != nil {
			return nil, err
		}
		return &ast.Xor{Left: left, Right: right, Position: n.Position}, nil
	case *ast.Not:
		inner, err := e.expand(n.Inner, stack)
		if err != nil {
			return nil, err
		}
		return &ast.Not{Inner: inner, Position: n.Position}, nil
	case *ast.WithinSel:
		inner, err := e.expand(n.Inner, stack)
		if err != nil {
			return nil, err
		}
		return &ast.WithinSel{Op: n.Op, Distance: n.Distance, Inner: inner, Position: n.Position}, nil
	case *ast.BondedSel:
		inner, err := e.expand(n.Inner, stack)
		if err != nil {
			return nil, err
		}
		return &ast.BondedSel{Op: n.Op, Hops: n.Hops, Inner: inner, Position: n.Position}, nil
	case *ast.SameAsSel:
		inner, err := e.expand(n.Inner, stack)
		if err != nil {
			return nil, err
		}
		return &ast.SameAsSel{Grouping: n.Grouping, Inner: inner, Position: n.Position}, nil
	case *ast.BoolFlag:
		if n.FlagKind != ast.FlagMacro {
			return n, nil
		}
		return e.expandMacro(n.Name, stack)
	default:
		// PropertySel, CompareSel, RegexSel, SequenceSel, and every
		// expression-layer node cannot themselves contain a macro
		// reference (the grammar only admits "@name" or a bare macro
		// name at predicate position), so they pass through unchanged.
		return node, nil
	}
}

func (e *Expander) expandMacro(name string, stack []string) (ast.Node, error) {
	for _, seen := range stack {
		if seen == name {
			return nil, errors.WithStack(&MacroCycle{Path: append(append([]string{}, stack...), name)})
		}
	}

	body, err := e.parsedBody(name)
	if err != nil {
		return nil, err
	}

	return e.expand(body, append(stack, name))
}

// parsedBody returns the cached parse of a macro's definition, parsing and
// caching it on first request.
func (e *Expander) parsedBody(name string) (ast.Node, error) {
	e.mu.Lock()
	if body, ok := e.cache[name]; ok {
		e.mu.Unlock()
		return body, nil
	}
	e.mu.Unlock()

	mac := e.reg.Macro(name)
	if mac == nil {
		return nil, errors.Errorf("macro expander: %q is not registered", name)
	}
	body, err := parser.Parse(e.gram, mac.Definition)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing definition of macro %q", name)
	}

	e.mu.Lock()
	e.cache[name] = body
	e.mu.Unlock()
	return body, nil
}
