package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabb99/molselect/eval"
	"github.com/cabb99/molselect/grammar"
	"github.com/cabb99/molselect/macro"
	"github.com/cabb99/molselect/molctx"
	"github.com/cabb99/molselect/parser"
	"github.com/cabb99/molselect/registry"
)

type harness struct {
	reg *registry.Registry
	g   *grammar.Grammar
	exp *macro.Expander
	ev  *eval.Evaluator
}

func newHarness(t *testing.T, opts eval.Options) *harness {
	t.Helper()
	r := registry.New()
	require.NoError(t, registry.RegisterBuiltinKeywords(r))
	require.NoError(t, registry.RegisterBuiltinMacros(r))
	g := grammar.Assemble(r)
	return &harness{reg: r, g: g, exp: macro.New(g, r), ev: eval.New(r, opts)}
}

func (h *harness) evaluate(t *testing.T, query string, ctx *molctx.Context) (eval.Mask, error) {
	t.Helper()
	node, err := parser.Parse(h.g, query)
	require.NoError(t, err, "parsing %q", query)
	expanded, err := h.exp.Expand(node)
	require.NoError(t, err, "expanding %q", query)
	return h.ev.Evaluate(expanded, ctx)
}

// Scenario 1: 4 atoms, all resname ALA, name N CA C O. "name CA" -> [F,T,F,F].
func TestScenarioNameCA(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(4).
		StringColumn("resname", []string{"ALA", "ALA", "ALA", "ALA"}).
		StringColumn("name", []string{"N", "CA", "C", "O"}).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `name CA`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{false, true, false, false}, mask)
}

// Scenario 2: 6 atoms in residues ALA, GLY. "protein and name CA" selects
// both CA atoms.
func TestScenarioProteinAndNameCA(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(6).
		StringColumn("resname", []string{"ALA", "ALA", "ALA", "GLY", "GLY", "GLY"}).
		StringColumn("name", []string{"N", "CA", "C", "N", "CA", "C"}).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `protein and name CA`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{false, true, false, false, true, false}, mask)
}

// Scenario 3: 3 atoms at (0,0,0), (1,0,0), (5,0,0).
func TestScenarioWithinAndExwithin(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(3).
		FloatColumn("x", []float64{0, 1, 5}).
		FloatColumn("y", []float64{0, 0, 0}).
		FloatColumn("z", []float64{0, 0, 0}).
		IntColumn("index", []int64{0, 1, 2}).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `within 2 of index 0`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{true, true, false}, mask)

	mask, err = h.evaluate(t, `exwithin 2 of index 0`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{false, true, false}, mask)
}

// Scenario 4: linear chain A-B-C-D. Seed index 0.
func TestScenarioBonded(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(4).
		IntColumn("index", []int64{0, 1, 2, 3}).
		Bonds([][2]int{{0, 1}, {1, 2}, {2, 3}}).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `bonded 2 to index 0`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{false, false, true, false}, mask)

	mask, err = h.evaluate(t, `bonded 1 to index 0`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{false, true, false, false}, mask)
}

func TestBondedFailsWithoutTopology(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(2).
		IntColumn("index", []int64{0, 1}).
		Build()
	require.NoError(t, err)

	_, err = h.evaluate(t, `bonded 1 to index 0`, ctx)
	require.Error(t, err)
	var noTopo *eval.NoTopology
	assert.ErrorAs(t, err, &noTopo)
}

// Scenario 5: one chain, residues MET,ILE,GLU,ILE,LYS,... "sequence
// "MIEIK"" selects all atoms of the first five residues.
func TestScenarioSequence(t *testing.T) {
	h := newHarness(t, eval.Options{})
	residues := []struct {
		resname string
		atoms   []int
	}{
		{"MET", []int{0, 1}},
		{"ILE", []int{2, 3}},
		{"GLU", []int{4, 5}},
		{"ILE", []int{6, 7}},
		{"LYS", []int{8, 9}},
		{"ALA", []int{10, 11}},
	}
	n := 0
	for _, r := range residues {
		n += len(r.atoms)
	}
	var chainResidues []molctx.ChainResidue
	for _, r := range residues {
		chainResidues = append(chainResidues, molctx.ChainResidue{
			Code:        molctx.ResidueCode(r.resname),
			AtomIndices: r.atoms,
		})
	}
	ctx, err := molctx.NewBuilder(n).
		Sequence("A", chainResidues).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, "sequence `MIEIK`", ctx)
	require.NoError(t, err)

	want := eval.NewMask(n)
	for _, r := range residues[:5] {
		for _, a := range r.atoms {
			want[a] = true
		}
	}
	assert.Equal(t, want, mask)
}

// Scenario 6: a pure-numeric comparison is statically rejected.
func TestScenarioPureNumericMask(t *testing.T) {
	h := newHarness(t, eval.Options{})
	_, err := parser.Parse(h.g, `sqrt(25) < 10`)
	require.Error(t, err)
	var pnm *parser.PureNumericMask
	assert.ErrorAs(t, err, &pnm)
}

func TestNotNotIdentity(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(3).
		StringColumn("name", []string{"CA", "CB", "N"}).
		Build()
	require.NoError(t, err)

	a, err := h.evaluate(t, `name CA`, ctx)
	require.NoError(t, err)
	b, err := h.evaluate(t, `not not name CA`, ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBangShorthandMatchesNotKeyword(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(3).
		StringColumn("name", []string{"CA", "CB", "N"}).
		Build()
	require.NoError(t, err)

	bang, err := h.evaluate(t, `!name CA`, ctx)
	require.NoError(t, err)
	word, err := h.evaluate(t, `not name CA`, ctx)
	require.NoError(t, err)
	assert.Equal(t, word, bang)
}

func TestOrNotIsAll(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(3).
		StringColumn("name", []string{"CA", "CB", "N"}).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `name CA or not name CA`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.AllMask(3), mask)
}

func TestImplicitAndMatchesExplicitAnd(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(4).
		StringColumn("resname", []string{"ALA", "ALA", "GLY", "GLY"}).
		StringColumn("name", []string{"CA", "N", "CA", "N"}).
		Build()
	require.NoError(t, err)

	implicit, err := h.evaluate(t, `protein name CA`, ctx)
	require.NoError(t, err)
	explicit, err := h.evaluate(t, `protein and name CA`, ctx)
	require.NoError(t, err)
	assert.Equal(t, explicit, implicit)
}

func TestRangeEquivalence(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(5).
		IntColumn("resid", []int64{8, 9, 10, 11, 20}).
		Build()
	require.NoError(t, err)

	rangeMask, err := h.evaluate(t, `resid 10 to 20`, ctx)
	require.NoError(t, err)
	boundsMask, err := h.evaluate(t, `resid >= 10 and resid <= 20`, ctx)
	require.NoError(t, err)
	assert.Equal(t, boundsMask, rangeMask)
}

func TestListEquivalence(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(4).
		StringColumn("name", []string{"CA", "CB", "N", "O"}).
		Build()
	require.NoError(t, err)

	list, err := h.evaluate(t, `name CA CB N`, ctx)
	require.NoError(t, err)
	ored, err := h.evaluate(t, `name CA or name CB or name N`, ctx)
	require.NoError(t, err)
	assert.Equal(t, ored, list)
}

func TestExclusionLaw(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(3).
		FloatColumn("x", []float64{0, 1, 5}).
		FloatColumn("y", []float64{0, 0, 0}).
		FloatColumn("z", []float64{0, 0, 0}).
		IntColumn("index", []int64{0, 1, 2}).
		Build()
	require.NoError(t, err)

	exw, err := h.evaluate(t, `exwithin 2 of index 0`, ctx)
	require.NoError(t, err)
	w, err := h.evaluate(t, `within 2 of index 0`, ctx)
	require.NoError(t, err)
	seed, err := h.evaluate(t, `index 0`, ctx)
	require.NoError(t, err)
	assert.Equal(t, w.And(seed.Not()), exw)
}

func TestSameAsIdempotent(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(4).
		StringColumn("name", []string{"CA", "N", "CA", "N"}).
		Group(molctx.GroupResidue, []int64{0, 0, 1, 1}).
		Build()
	require.NoError(t, err)

	once, err := h.evaluate(t, `same residue as name CA`, ctx)
	require.NoError(t, err)
	twice, err := h.evaluate(t, `same residue as (same residue as name CA)`, ctx)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestBondedModeWithinHops(t *testing.T) {
	h := newHarness(t, eval.Options{BondedMode: eval.BondedWithinHops})
	ctx, err := molctx.NewBuilder(4).
		IntColumn("index", []int64{0, 1, 2, 3}).
		Bonds([][2]int{{0, 1}, {1, 2}, {2, 3}}).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `bonded 2 to index 0`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{true, true, true, false}, mask)
}

func TestUnknownVariable(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(2).
		FloatColumn("beta", []float64{0.1, 0.9}).
		Build()
	require.NoError(t, err)

	_, err = h.evaluate(t, `beta > $threshold`, ctx)
	require.Error(t, err)
	var uv *eval.UnknownVariable
	assert.ErrorAs(t, err, &uv)
}

func TestVariableBinding(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(2).
		FloatColumn("beta", []float64{0.1, 0.9}).
		Variable("threshold", 0.5).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `beta > $threshold`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{false, true}, mask)
}

func TestCaseInsensitiveField(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(2).
		StringColumn("element", []string{"Na", "CL"}).
		Build()
	require.NoError(t, err)

	mask, err := h.evaluate(t, `element NA CL`, ctx)
	require.NoError(t, err)
	assert.Equal(t, eval.Mask{true, true}, mask)
}

func TestDivByZeroOnFloorDiv(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(1).
		FloatColumn("x", []float64{0}).
		FloatColumn("y", []float64{1}).
		Build()
	require.NoError(t, err)

	_, err = h.evaluate(t, `(x // y) > 0`, ctx)
	require.NoError(t, err) // y is never 0 here; sanity check the expression parses/evaluates

	ctxZero, err := molctx.NewBuilder(1).
		FloatColumn("x", []float64{1}).
		FloatColumn("y", []float64{0}).
		Build()
	require.NoError(t, err)
	_, err = h.evaluate(t, `(x // y) > 0`, ctxZero)
	require.Error(t, err)
	var dbz *eval.DivByZero
	assert.ErrorAs(t, err, &dbz)
}

func TestDomainErrorOnLog(t *testing.T) {
	h := newHarness(t, eval.Options{})
	ctx, err := molctx.NewBuilder(1).
		FloatColumn("x", []float64{-1}).
		Build()
	require.NoError(t, err)

	_, err = h.evaluate(t, `log(x) > 0`, ctx)
	require.Error(t, err)
	var de *eval.DomainError
	assert.ErrorAs(t, err, &de)
}

func TestUnknownField(t *testing.T) {
	r := registry.New()
	g := grammar.Assemble(r)
	require.NoError(t, r.RegisterKeyword(registry.Keyword{Name: "ghost", Type: registry.TypeFloat}))
	g = grammar.Assemble(r)
	ev := eval.New(r, eval.Options{})
	ctx, err := molctx.NewBuilder(1).Build()
	require.NoError(t, err)

	node, err := parser.Parse(g, `ghost > 1`)
	require.NoError(t, err)
	_, err = ev.Evaluate(node, ctx)
	require.Error(t, err)
	var uf *eval.UnknownField
	assert.ErrorAs(t, err, &uf)
}
