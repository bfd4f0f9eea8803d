package molctx

import "github.com/pkg/errors"

// standardCodes maps the twenty standard amino-acid residue names to their
// one-letter sequence code (spec.md §9 "Sequence code derivation": anything
// else maps to 'X').
var standardCodes = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
}

// ResidueCode returns the one-letter sequence code for resname, or 'X' if it
// is not one of the twenty standard amino acids.
func ResidueCode(resname string) byte {
	if code, ok := standardCodes[resname]; ok {
		return code
	}
	return 'X'
}

// Builder assembles a Context from column and topology data supplied
// incrementally. It is the in-memory equivalent of a structure-file loader,
// which is out of scope for this package.
type Builder struct {
	n int

	intCols   map[string][]int64
	floatCols map[string][]float64
	strCols   map[string][]string

	neighbors [][]int
	groups    [5][]int64
	sequences map[string][]ChainResidue
	variables map[string]Variable

	err error
}

// NewBuilder starts a Builder for a context of n atoms.
func NewBuilder(n int) *Builder {
	return &Builder{
		n:         n,
		intCols:   make(map[string][]int64),
		floatCols: make(map[string][]float64),
		strCols:   make(map[string][]string),
		sequences: make(map[string][]ChainResidue),
		variables: make(map[string]Variable),
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// IntColumn registers an integer-valued column.
func (b *Builder) IntColumn(name string, values []int64) *Builder {
	if len(values) != b.n {
		return b.fail(errors.WithStack(&WrongLength{Column: name, Got: len(values), Expected: b.n}))
	}
	b.intCols[name] = values
	return b
}

// FloatColumn registers a float-valued column.
func (b *Builder) FloatColumn(name string, values []float64) *Builder {
	if len(values) != b.n {
		return b.fail(errors.WithStack(&WrongLength{Column: name, Got: len(values), Expected: b.n}))
	}
	b.floatCols[name] = values
	return b
}

// StringColumn registers a string-valued column.
func (b *Builder) StringColumn(name string, values []string) *Builder {
	if len(values) != b.n {
		return b.fail(errors.WithStack(&WrongLength{Column: name, Got: len(values), Expected: b.n}))
	}
	b.strCols[name] = values
	return b
}

// Bonds sets the full neighbor adjacency. edges need only be listed once per
// pair; Bonds symmetrizes them itself.
func (b *Builder) Bonds(edges [][2]int) *Builder {
	neighbors := make([][]int, b.n)
	seen := make([]map[int]bool, b.n)
	for i := range seen {
		seen[i] = make(map[int]bool)
	}
	add := func(from, to int) {
		if !seen[from][to] {
			seen[from][to] = true
			neighbors[from] = append(neighbors[from], to)
		}
	}
	for _, e := range edges {
		from, to := e[0], e[1]
		add(from, to)
		add(to, from)
	}
	b.neighbors = neighbors
	return b
}

// NeighborLists sets the neighbor adjacency from a pre-built per-atom
// neighbor list, as a structure-file loader with its own bond table would
// supply rather than a flat edge list (see Bonds). Unlike Bonds, this does
// not symmetrize: adj must already satisfy the MolecularContext invariant
// that bonding is mutual, and a violation fails with AsymmetricNeighbor
// instead of being silently repaired.
func (b *Builder) NeighborLists(adj [][]int) *Builder {
	if len(adj) != b.n {
		return b.fail(errors.WithStack(&WrongLength{Column: "neighbors", Got: len(adj), Expected: b.n}))
	}
	for i, js := range adj {
		for _, j := range js {
			if !containsInt(adj[j], i) {
				return b.fail(errors.WithStack(&AsymmetricNeighbor{From: i, To: j}))
			}
		}
	}
	b.neighbors = adj
	return b
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Group assigns GroupIds for one grouping dimension. ids must have length n.
func (b *Builder) Group(kind GroupKind, ids []int64) *Builder {
	if len(ids) != b.n {
		return b.fail(errors.WithStack(&WrongLength{Column: "group", Got: len(ids), Expected: b.n}))
	}
	b.groups[kind] = ids
	return b
}

// Sequence records a chain's ordered residues. Each residue's Code is
// stored as given; callers derive it from a resname with ResidueCode.
func (b *Builder) Sequence(chain string, residues []ChainResidue) *Builder {
	b.sequences[chain] = residues
	return b
}

// Variable binds a scalar value to $name.
func (b *Builder) Variable(name string, value float64) *Builder {
	b.variables[name] = Variable{Scalar: value}
	return b
}

// VectorVariable binds a per-atom vector to $name.
func (b *Builder) VectorVariable(name string, values []float64) *Builder {
	if len(values) != b.n {
		return b.fail(errors.WithStack(&WrongLength{Column: name, Got: len(values), Expected: b.n}))
	}
	b.variables[name] = Variable{Vector: values, IsVec: true}
	return b
}

// Build validates invariants and returns the assembled Context.
func (b *Builder) Build() (*Context, error) {
	if b.err != nil {
		return nil, b.err
	}
	for kind := range b.groups {
		if b.groups[kind] == nil {
			b.groups[kind] = make([]int64, b.n)
		}
	}
	return &Context{
		n:         b.n,
		intCols:   b.intCols,
		floatCols: b.floatCols,
		strCols:   b.strCols,
		neighbors: b.neighbors,
		groups:    b.groups,
		sequences: b.sequences,
		variables: b.variables,
	}, nil
}
