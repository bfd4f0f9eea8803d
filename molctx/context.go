// Package molctx defines the read-only snapshot the evaluator walks a
// query's IR against (spec.md §3.1). Populating one from a structure file
// is an external concern (PDB/mmCIF parsing is explicitly out of scope);
// this package only defines the shape of a MolecularContext plus a Builder
// good enough to construct one from in-memory data, which is what the
// test suite and the demonstration command use.
package molctx

import (
	"github.com/pkg/errors"
)

// GroupKind names one of the five grouping dimensions a Context tracks.
type GroupKind int

const (
	GroupResidue GroupKind = iota
	GroupChain
	GroupSegment
	GroupFragment
	GroupModel
)

// ChainResidue is one entry of a chain's ordered sequence, used by the
// "sequence" operator (spec.md §4.5).
type ChainResidue struct {
	Code        byte  // one-letter amino-acid code, 'X' if non-standard
	AtomIndices []int // every atom belonging to this residue
}

// Variable is a caller-supplied value bound to a "$name" reference. Exactly
// one of Scalar or Vector is set.
type Variable struct {
	Scalar float64
	Vector []float64
	IsVec  bool
}

// Context is the reference in-memory MolecularContext implementation.
type Context struct {
	n int

	intCols   map[string][]int64
	floatCols map[string][]float64
	strCols   map[string][]string

	neighbors [][]int // symmetric; neighbors[i] never contains i

	groups [5][]int64 // indexed by GroupKind

	sequences map[string][]ChainResidue // chain name -> ordered residues

	variables map[string]Variable
}

// NumAtoms returns N, the atom count every column and mask is sized to.
func (c *Context) NumAtoms() int { return c.n }

// IntColumn returns the named integer column, if any.
func (c *Context) IntColumn(name string) ([]int64, bool) {
	v, ok := c.intCols[name]
	return v, ok
}

// FloatColumn returns the named float column, if any.
func (c *Context) FloatColumn(name string) ([]float64, bool) {
	v, ok := c.floatCols[name]
	return v, ok
}

// StringColumn returns the named string column, if any.
func (c *Context) StringColumn(name string) ([]string, bool) {
	v, ok := c.strCols[name]
	return v, ok
}

// HasTopology reports whether any neighbor information was supplied; bonded
// queries fail with NoTopology when this is false.
func (c *Context) HasTopology() bool {
	return c.neighbors != nil
}

// Neighbors returns the atom indices bonded to atom i.
func (c *Context) Neighbors(i int) []int {
	if c.neighbors == nil {
		return nil
	}
	return c.neighbors[i]
}

// GroupID returns the GroupId atom i belongs to for the given kind.
func (c *Context) GroupID(kind GroupKind, i int) int64 {
	return c.groups[kind][i]
}

// Sequence returns the ordered one-letter-code residue sequence for chain.
func (c *Context) Sequence(chain string) ([]ChainResidue, bool) {
	v, ok := c.sequences[chain]
	return v, ok
}

// Chains returns every chain name with a recorded sequence, for callers
// that need to iterate all of them (e.g. sequence matching).
func (c *Context) Chains() []string {
	names := make([]string, 0, len(c.sequences))
	for name := range c.sequences {
		names = append(names, name)
	}
	return names
}

// Variable returns the bound value of $name, if any.
func (c *Context) Variable(name string) (Variable, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// WrongLength is returned by a Builder method that received a column whose
// length does not match N.
type WrongLength struct {
	Column   string
	Got      int
	Expected int
}

func (e *WrongLength) Error() string {
	return errors.Errorf("column %q has length %d, expected %d", e.Column, e.Got, e.Expected).Error()
}

// AsymmetricNeighbor is returned by Builder.NeighborLists when a neighbor
// edge is not mirrored, which violates the MolecularContext topology
// invariant (spec.md §3.1). Builder.Bonds cannot raise it since it
// symmetrizes edges itself; this guards the path where a caller already
// has a per-atom adjacency list (e.g. from a structure-file bond table) and
// may have supplied a one-directional entry by mistake.
type AsymmetricNeighbor struct {
	From, To int
}

func (e *AsymmetricNeighbor) Error() string {
	return errors.Errorf("neighbor edge %d -> %d is not symmetric", e.From, e.To).Error()
}
