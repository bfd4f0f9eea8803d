package eval

import (
	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
)

func (e *Evaluator) evalSameAsSel(n *ast.SameAsSel, ctx *molctx.Context) (Mask, error) {
	kind, err := groupKindFor(n.Grouping, n.Position)
	if err != nil {
		return nil, err
	}
	inner, err := e.evalMask(n.Inner, ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[int64]bool)
	for _, i := range inner.Indices() {
		groups[ctx.GroupID(kind, i)] = true
	}

	nAtoms := ctx.NumAtoms()
	result := NewMask(nAtoms)
	for i := 0; i < nAtoms; i++ {
		if groups[ctx.GroupID(kind, i)] {
			result[i] = true
		}
	}
	return result, nil
}

func groupKindFor(name string, pos int) (molctx.GroupKind, error) {
	switch name {
	case "residue":
		return molctx.GroupResidue, nil
	case "chain":
		return molctx.GroupChain, nil
	case "segment":
		return molctx.GroupSegment, nil
	case "fragment":
		return molctx.GroupFragment, nil
	case "model":
		return molctx.GroupModel, nil
	default:
		return 0, errors.WithStack(&TypeError{Message: "same-as grouping must be residue, chain, segment, fragment, or model; got " + name, Position: pos})
	}
}
