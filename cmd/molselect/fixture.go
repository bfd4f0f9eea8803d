package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cabb99/molselect/molctx"
)

// fixtureResidue is one entry of a fixture's per-chain sequence list.
type fixtureResidue struct {
	Resname string `yaml:"resname"`
	Code    string `yaml:"code,omitempty"` // overrides ResidueCode(Resname) when set
	Atoms   []int  `yaml:"atoms"`
}

// fixture is the YAML shape of a demonstration MolecularContext: plain
// column data plus topology, groupings, sequences, and starting variables,
// small enough to hand-write for a REPL session.
type fixture struct {
	NumAtoms     int                         `yaml:"num_atoms"`
	IntColumns   map[string][]int64          `yaml:"int_columns"`
	FloatColumns map[string][]float64        `yaml:"float_columns"`
	StrColumns   map[string][]string         `yaml:"str_columns"`
	Bonds        [][2]int                    `yaml:"bonds"`
	Groups       map[string][]int64          `yaml:"groups"`
	Sequences    map[string][]fixtureResidue `yaml:"sequences"`
	Variables    map[string]float64          `yaml:"variables"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading fixture %q", path)
	}
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing fixture %q", path)
	}
	return &f, nil
}

// buildContext assembles a molctx.Context from the fixture plus a set of
// variable overrides laid on top (the REPL's "set" command), so a session
// can bind $name values without re-reading the fixture file.
func (f *fixture) buildContext(overrides map[string]float64) (*molctx.Context, error) {
	b := molctx.NewBuilder(f.NumAtoms)

	for name, col := range f.IntColumns {
		b = b.IntColumn(name, col)
	}
	for name, col := range f.FloatColumns {
		b = b.FloatColumn(name, col)
	}
	for name, col := range f.StrColumns {
		b = b.StringColumn(name, col)
	}
	if len(f.Bonds) > 0 {
		b = b.Bonds(f.Bonds)
	}
	for name, ids := range f.Groups {
		kind, err := groupKindFromName(name)
		if err != nil {
			return nil, err
		}
		b = b.Group(kind, ids)
	}
	for chain, residues := range f.Sequences {
		crs := make([]molctx.ChainResidue, len(residues))
		for i, r := range residues {
			code := molctx.ResidueCode(r.Resname)
			if r.Code != "" {
				code = r.Code[0]
			}
			crs[i] = molctx.ChainResidue{Code: code, AtomIndices: r.Atoms}
		}
		b = b.Sequence(chain, crs)
	}
	for name, v := range f.Variables {
		b = b.Variable(name, v)
	}
	for name, v := range overrides {
		b = b.Variable(name, v)
	}
	return b.Build()
}

func groupKindFromName(name string) (molctx.GroupKind, error) {
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
		return 0, fmt.Errorf("unknown group kind %q, want residue, chain, segment, fragment, or model", name)
	}
}
