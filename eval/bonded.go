package eval

import (
	"math"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
)

func (e *Evaluator) evalBondedSel(n *ast.BondedSel, ctx *molctx.Context) (Mask, error) {
	if !ctx.HasTopology() {
		return nil, errors.WithStack(&NoTopology{Position: n.Position})
	}
	hopsF, err := e.scalarOf(n.Hops, ctx)
	if err != nil {
		return nil, err
	}
	hops := int(math.Round(hopsF))

	inner, err := e.evalMask(n.Inner, ctx)
	if err != nil {
		return nil, err
	}

	nAtoms := ctx.NumAtoms()
	dist := make([]int, nAtoms)
	for i := range dist {
		dist[i] = -1
	}
	queue := make([]int, 0, nAtoms)
	for i, selected := range inner {
		if selected {
			dist[i] = 0
			queue = append(queue, i)
		}
	}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if dist[cur] >= hops {
			continue
		}
		for _, nb := range ctx.Neighbors(cur) {
			if dist[nb] == -1 {
				dist[nb] = dist[cur] + 1
				queue = append(queue, nb)
			}
		}
	}

	result := NewMask(nAtoms)
	switch e.opts.BondedMode {
	case BondedWithinHops:
		for i, d := range dist {
			result[i] = d >= 0 && d <= hops
		}
	default: // BondedExactlyNHops
		for i, d := range dist {
			result[i] = d == hops
		}
	}

	if n.Op == ast.OpExbonded {
		for i, d := range dist {
			if d == 1 {
				result[i] = false
			}
		}
	}
	return result, nil
}
