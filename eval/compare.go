package eval

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
	"github.com/cabb99/molselect/registry"
)

func (e *Evaluator) evalCompareSel(n *ast.CompareSel, ctx *molctx.Context) (Mask, error) {
	vals := make([]numVec, len(n.Comparands))
	for i, c := range n.Comparands {
		v, err := e.evalNum(c, ctx)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	nAtoms := ctx.NumAtoms()
	result := AllMask(nAtoms)
	for i, op := range n.Ops {
		result = result.And(compareVec(nAtoms, vals[i], vals[i+1], op))
	}
	return result, nil
}

func compareVec(n int, l, r numVec, op ast.CompareOp) Mask {
	mask := NewMask(n)
	for i := 0; i < n; i++ {
		mask[i] = compareOne(l.at(i), r.at(i), op)
	}
	return mask
}

func compareOne(a, b float64, op ast.CompareOp) bool {
	switch op {
	case ast.OpLE:
		return a <= b
	case ast.OpGE:
		return a >= b
	case ast.OpEQ:
		return a == b
	case ast.OpNE:
		return a != b
	case ast.OpLT:
		return a < b
	case ast.OpGT:
		return a > b
	default:
		return false
	}
}

// evalRegexSel matches "math_expr =~ pattern" (spec.md §4.3). A bare
// FieldRef onto a string column matches against the raw string values;
// anything else is evaluated as a numeric expression and stringified per
// atom before matching, per §4.5's "stringified field value" rule. A
// string-typed field inside arithmetic fails in evalNum with TypeError.
func (e *Evaluator) evalRegexSel(n *ast.RegexSel, ctx *molctx.Context) (Mask, error) {
	if fr, ok := n.Expr.(*ast.FieldRef); ok {
		if kw := e.reg.Keyword(fr.Field); kw != nil && kw.Type == registry.TypeString {
			col, ok := ctx.StringColumn(kw.Name)
			if !ok {
				return nil, errors.WithStack(&UnknownField{Field: kw.Name, Position: n.Position})
			}
			return e.matchRegexAgainstStrings(col, n.Pattern, n.Position)
		}
	}

	v, err := e.evalNum(n.Expr, ctx)
	if err != nil {
		return nil, err
	}
	nAtoms := ctx.NumAtoms()
	strs := make([]string, nAtoms)
	for i := 0; i < nAtoms; i++ {
		strs[i] = strconv.FormatFloat(v.at(i), 'g', -1, 64)
	}
	return e.matchRegexAgainstStrings(strs, n.Pattern, n.Position)
}
