package eval

import (
	"math"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
	"github.com/cabb99/molselect/registry"
)

// foldCaser implements spec.md §9's case-insensitive override using
// Unicode-aware folding rather than strings.ToLower/EqualFold, which can
// mishandle non-ASCII residue or atom names carried over from mmCIF
// sources (e.g. Turkish dotless-i style mismatches).
var foldCaser = cases.Fold()

func foldString(s string) string {
	return foldCaser.String(s)
}

func (e *Evaluator) evalPropertySel(n *ast.PropertySel, ctx *molctx.Context) (Mask, error) {
	if n.FieldExpr != nil {
		return e.evalPropertySelExpr(n, ctx)
	}

	kw := e.reg.Keyword(n.Field)
	if kw == nil {
		return nil, errors.WithStack(&UnknownField{Field: n.Field, Position: n.Position})
	}

	mask := NewMask(ctx.NumAtoms())
	switch kw.Type {
	case registry.TypeString:
		col, ok := ctx.StringColumn(kw.Name)
		if !ok {
			return nil, errors.WithStack(&UnknownField{Field: kw.Name, Position: n.Position})
		}
		for _, item := range n.Items {
			m, err := e.matchStringItem(item, col, kw.CaseInsensitive, n.Position)
			if err != nil {
				return nil, err
			}
			mask = mask.Or(m)
		}
	case registry.TypeInt:
		ints, ok := ctx.IntColumn(kw.Name)
		if !ok {
			return nil, errors.WithStack(&UnknownField{Field: kw.Name, Position: n.Position})
		}
		col := make([]float64, len(ints))
		for i, v := range ints {
			col[i] = float64(v)
		}
		for _, item := range n.Items {
			m, err := e.matchNumericItem(item, col, true, ctx, n.Position)
			if err != nil {
				return nil, err
			}
			mask = mask.Or(m)
		}
	case registry.TypeFloat:
		col, ok := ctx.FloatColumn(kw.Name)
		if !ok {
			return nil, errors.WithStack(&UnknownField{Field: kw.Name, Position: n.Position})
		}
		for _, item := range n.Items {
			m, err := e.matchNumericItem(item, col, false, ctx, n.Position)
			if err != nil {
				return nil, err
			}
			mask = mask.Or(m)
		}
	}
	return mask, nil
}

// evalPropertySelExpr handles the "( math_expr ) items+" form, where the
// field value is a computed per-atom number rather than a named column.
func (e *Evaluator) evalPropertySelExpr(n *ast.PropertySel, ctx *molctx.Context) (Mask, error) {
	v, err := e.evalNum(n.FieldExpr, ctx)
	if err != nil {
		return nil, err
	}
	nAtoms := ctx.NumAtoms()
	col := make([]float64, nAtoms)
	for i := 0; i < nAtoms; i++ {
		col[i] = v.at(i)
	}
	mask := NewMask(nAtoms)
	for _, item := range n.Items {
		m, err := e.matchNumericItem(item, col, false, ctx, n.Position)
		if err != nil {
			return nil, err
		}
		mask = mask.Or(m)
	}
	return mask, nil
}

func (e *Evaluator) matchStringItem(item ast.Item, col []string, caseInsensitive bool, pos int) (Mask, error) {
	switch it := item.(type) {
	case ast.StringItem:
		return matchStringEquality(col, it.Value, caseInsensitive), nil
	case ast.RegexItem:
		return e.matchRegexAgainstStrings(col, it.Pattern, pos)
	default:
		return nil, errors.WithStack(&TypeError{Message: "numeric item against a string field", Position: pos})
	}
}

func matchStringEquality(col []string, target string, caseInsensitive bool) Mask {
	want := target
	if caseInsensitive {
		want = foldString(target)
	}
	mask := NewMask(len(col))
	for i, v := range col {
		cand := v
		if caseInsensitive {
			cand = foldString(cand)
		}
		mask[i] = cand == want
	}
	return mask
}

func (e *Evaluator) matchRegexAgainstStrings(col []string, pattern string, pos int) (Mask, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WithStack(&PatternError{Pattern: pattern, Cause: err, Position: pos})
	}
	mask := NewMask(len(col))
	for i, v := range col {
		mask[i] = re.MatchString(v)
	}
	return mask, nil
}

func (e *Evaluator) matchNumericItem(item ast.Item, col []float64, isInt bool, ctx *molctx.Context, pos int) (Mask, error) {
	switch it := item.(type) {
	case ast.NumberItem:
		v, err := e.scalarOf(it.Expr, ctx)
		if err != nil {
			return nil, err
		}
		mask := NewMask(len(col))
		for i, x := range col {
			mask[i] = x == v
		}
		return mask, nil
	case ast.RangeItem:
		lo, err := e.scalarOf(it.Lo, ctx)
		if err != nil {
			return nil, err
		}
		hi, err := e.scalarOf(it.Hi, ctx)
		if err != nil {
			return nil, err
		}
		hasStep := it.Step != nil
		var step float64
		if hasStep {
			step, err = e.scalarOf(*it.Step, ctx)
			if err != nil {
				return nil, err
			}
		}
		mask := NewMask(len(col))
		for i, x := range col {
			if x < lo || x > hi {
				continue
			}
			if !hasStep || step == 0 {
				mask[i] = true
				continue
			}
			k := (x - lo) / step
			mask[i] = isNearInteger(k)
		}
		return mask, nil
	case ast.StringItem:
		parsed, err := strconv.ParseFloat(it.Value, 64)
		if err != nil {
			return nil, errors.WithStack(&TypeError{Message: "non-numeric item " + it.Value + " against a numeric field", Position: pos})
		}
		mask := NewMask(len(col))
		for i, x := range col {
			mask[i] = x == parsed
		}
		return mask, nil
	case ast.RegexItem:
		strs := make([]string, len(col))
		for i, x := range col {
			strs[i] = formatNumber(x, isInt)
		}
		return e.matchRegexAgainstStrings(strs, it.Pattern, pos)
	default:
		return nil, errors.WithStack(&TypeError{Message: "unsupported item kind", Position: pos})
	}
}

// isNearInteger reports whether k is within floating-point tolerance of a
// non-negative integer, per the range-with-step rule "values equal to
// lo + k*step for integer k >= 0" (spec.md §4.5).
func isNearInteger(k float64) bool {
	const eps = 1e-9
	if k < -eps {
		return false
	}
	return math.Abs(k-math.Round(k)) < eps
}

func formatNumber(x float64, isInt bool) string {
	if isInt {
		return strconv.FormatInt(int64(x), 10)
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}
