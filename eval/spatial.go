package eval

import (
	"math"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
)

// gridIndex buckets atoms into cubic cells sized to a query distance, so a
// within/exwithin search only needs to scan an atom's cell and its 26
// neighbors instead of every atom in the context (spec.md §4.5 step 2).
type gridIndex struct {
	cellSize float64
	x, y, z  []float64
	cells    map[[3]int][]int
}

type spatialCacheKey struct {
	ctx      *molctx.Context
	cellSize float64
}

func buildGrid(x, y, z []float64, cellSize float64) *gridIndex {
	if cellSize <= 0 {
		cellSize = 1e-6
	}
	g := &gridIndex{cellSize: cellSize, x: x, y: y, z: z, cells: make(map[[3]int][]int)}
	for i := range x {
		key := g.keyOf(x[i], y[i], z[i])
		g.cells[key] = append(g.cells[key], i)
	}
	return g
}

func (g *gridIndex) keyOf(x, y, z float64) [3]int {
	return [3]int{
		int(math.Floor(x / g.cellSize)),
		int(math.Floor(y / g.cellSize)),
		int(math.Floor(z / g.cellSize)),
	}
}

// within returns every atom index (including i itself, when its own
// distance is within d, which it trivially is) whose Euclidean distance
// from atom i is at most d.
func (g *gridIndex) within(i int, d float64) []int {
	key := g.keyOf(g.x[i], g.y[i], g.z[i])
	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, j := range g.cells[[3]int{key[0] + dx, key[1] + dy, key[2] + dz}] {
					rx := g.x[i] - g.x[j]
					ry := g.y[i] - g.y[j]
					rz := g.z[i] - g.z[j]
					if rx*rx+ry*ry+rz*rz <= d*d {
						out = append(out, j)
					}
				}
			}
		}
	}
	return out
}

// spatialIndex returns the grid for ctx at the given cell size, building
// and caching it on first use. Rebuilding per distinct distance is
// acceptable per spec.md §9: most sessions reuse one or two within radii.
func (e *Evaluator) spatialIndex(ctx *molctx.Context, cellSize float64) (*gridIndex, error) {
	key := spatialCacheKey{ctx: ctx, cellSize: cellSize}

	e.mu.Lock()
	if g, ok := e.spatialCache[key]; ok {
		e.mu.Unlock()
		return g, nil
	}
	e.mu.Unlock()

	xs, ok := ctx.FloatColumn("x")
	if !ok {
		return nil, errors.New("spatial query requires an x coordinate column")
	}
	ys, ok := ctx.FloatColumn("y")
	if !ok {
		return nil, errors.New("spatial query requires a y coordinate column")
	}
	zs, ok := ctx.FloatColumn("z")
	if !ok {
		return nil, errors.New("spatial query requires a z coordinate column")
	}
	g := buildGrid(xs, ys, zs, cellSize)

	e.mu.Lock()
	// Double-check: another goroutine may have built the same (ctx,
	// cellSize) grid while this one was reading columns.
	if existing, ok := e.spatialCache[key]; ok {
		g = existing
	} else {
		e.spatialCache[key] = g
	}
	e.mu.Unlock()
	return g, nil
}

func (e *Evaluator) evalWithinSel(n *ast.WithinSel, ctx *molctx.Context) (Mask, error) {
	dist, err := e.scalarOf(n.Distance, ctx)
	if err != nil {
		return nil, err
	}
	inner, err := e.evalMask(n.Inner, ctx)
	if err != nil {
		return nil, err
	}

	g, err := e.spatialIndex(ctx, dist)
	if err != nil {
		return nil, err
	}

	result := NewMask(ctx.NumAtoms())
	for _, i := range inner.Indices() {
		for _, j := range g.within(i, dist) {
			result[j] = true
		}
	}
	if n.Op == ast.OpExwithin {
		result = result.And(inner.Not())
	}
	return result, nil
}
