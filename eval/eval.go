package eval

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
	"github.com/cabb99/molselect/registry"
)

// BondedMode selects between the two readings of "bonded N to X" discussed
// in spec.md §9: the spec's fixed choice is exactly N hops, with within-N
// kept available for hosts that expect the other convention.
type BondedMode int

const (
	// BondedExactlyNHops selects atoms reached in precisely N hops.
	BondedExactlyNHops BondedMode = iota
	// BondedWithinHops selects atoms reached in at most N hops.
	BondedWithinHops
)

// Options configures evaluator behavior for open questions the spec leaves
// to the embedder (spec.md §9).
type Options struct {
	BondedMode BondedMode
}

// Evaluator walks IR against a molctx.Context and produces a Mask. A single
// Evaluator may be shared by concurrent goroutines evaluating distinct
// queries (spec.md §5): it holds no per-query mutable state, only a lazily
// built, mutex-guarded cache of spatial indices keyed by context identity.
type Evaluator struct {
	reg  *registry.Registry
	opts Options

	mu           sync.Mutex
	spatialCache map[spatialCacheKey]*gridIndex
}

// New constructs an Evaluator. r supplies the keyword catalog used to
// resolve FieldRef/PropertySel/BoolFlag(keyword) nodes against ctx columns.
func New(r *registry.Registry, opts Options) *Evaluator {
	return &Evaluator{reg: r, opts: opts, spatialCache: make(map[spatialCacheKey]*gridIndex)}
}

// Evaluate walks a macro-expanded IR tree against ctx and returns the
// resulting mask. node must be Mask-kind at the top level (the parser only
// ever produces a Mask-kind root).
func (e *Evaluator) Evaluate(node ast.Node, ctx *molctx.Context) (Mask, error) {
	if node.Kind() != ast.Mask {
		return nil, errors.Errorf("query does not produce a mask (kind %s)", node.Kind())
	}
	return e.evalMask(node, ctx)
}

func (e *Evaluator) evalMask(node ast.Node, ctx *molctx.Context) (Mask, error) {
	switch n := node.(type) {
	case *ast.And:
		l, err := e.evalMask(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := e.evalMask(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return l.And(r), nil
	case *ast.Or:
		l, err := e.evalMask(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := e.evalMask(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return l.Or(r), nil
	case *ast.Xor:
		l, err := e.evalMask(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := e.evalMask(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return l.Xor(r), nil
	case *ast.Not:
		inner, err := e.evalMask(n.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return inner.Not(), nil
	case *ast.BoolFlag:
		return e.evalBoolFlag(n, ctx)
	case *ast.PropertySel:
		return e.evalPropertySel(n, ctx)
	case *ast.CompareSel:
		return e.evalCompareSel(n, ctx)
	case *ast.RegexSel:
		return e.evalRegexSel(n, ctx)
	case *ast.WithinSel:
		return e.evalWithinSel(n, ctx)
	case *ast.BondedSel:
		return e.evalBondedSel(n, ctx)
	case *ast.SequenceSel:
		return e.evalSequenceSel(n, ctx)
	case *ast.SameAsSel:
		return e.evalSameAsSel(n, ctx)
	default:
		return nil, errors.Errorf("not a mask expression: %T", node)
	}
}

func (e *Evaluator) evalBoolFlag(n *ast.BoolFlag, ctx *molctx.Context) (Mask, error) {
	switch n.FlagKind {
	case ast.FlagAll:
		return AllMask(ctx.NumAtoms()), nil
	case ast.FlagNone:
		return NewMask(ctx.NumAtoms()), nil
	case ast.FlagMacro:
		return nil, errors.Errorf("unexpanded macro reference %q reached the evaluator; run package macro first", n.Name)
	case ast.FlagKeyword:
		return e.truthy(n.Name, ctx, n.Position)
	default:
		return nil, errors.Errorf("unknown flag kind at %d", n.Position)
	}
}

// truthy implements "a keyword-derived flag is shorthand for property
// exists and is non-zero / non-empty per the keyword's type" (spec.md §4.5).
func (e *Evaluator) truthy(field string, ctx *molctx.Context, pos int) (Mask, error) {
	kw := e.reg.Keyword(field)
	if kw == nil {
		return nil, errors.WithStack(&UnknownField{Field: field, Position: pos})
	}
	n := ctx.NumAtoms()
	mask := NewMask(n)
	switch kw.Type {
	case registry.TypeInt:
		col, ok := ctx.IntColumn(kw.Name)
		if !ok {
			return nil, errors.WithStack(&UnknownField{Field: kw.Name, Position: pos})
		}
		for i, v := range col {
			mask[i] = v != 0
		}
	case registry.TypeFloat:
		col, ok := ctx.FloatColumn(kw.Name)
		if !ok {
			return nil, errors.WithStack(&UnknownField{Field: kw.Name, Position: pos})
		}
		for i, v := range col {
			mask[i] = v != 0
		}
	case registry.TypeString:
		col, ok := ctx.StringColumn(kw.Name)
		if !ok {
			return nil, errors.WithStack(&UnknownField{Field: kw.Name, Position: pos})
		}
		for i, v := range col {
			mask[i] = v != ""
		}
	}
	return mask, nil
}

// scalarOf evaluates node and requires the result to be a pure scalar, as
// range bounds, step sizes, within distances, and bonded hop counts all are.
func (e *Evaluator) scalarOf(node ast.Node, ctx *molctx.Context) (float64, error) {
	v, err := e.evalNum(node, ctx)
	if err != nil {
		return 0, err
	}
	if !v.Scalar {
		return 0, errors.WithStack(&TypeError{Message: "expected a pure numeric expression", Position: node.Pos()})
	}
	return v.S, nil
}
