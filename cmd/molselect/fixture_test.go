package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestLoadFixtureAndBuildContext(t *testing.T) {
	path := writeFixture(t, `
num_atoms: 4
str_columns:
  name: [N, CA, C, O]
  resname: [ALA, ALA, ALA, ALA]
float_columns:
  x: [0, 1, 2, 3]
  y: [0, 0, 0, 0]
  z: [0, 0, 0, 0]
bonds:
  - [0, 1]
  - [1, 2]
  - [2, 3]
groups:
  residue: [0, 0, 0, 0]
variables:
  threshold: 0.5
`)

	fx, err := loadFixture(path)
	require.NoError(t, err)
	assert.Equal(t, 4, fx.NumAtoms)

	ctx, err := fx.buildContext(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, ctx.NumAtoms())
	assert.True(t, ctx.HasTopology())

	names, ok := ctx.StringColumn("name")
	require.True(t, ok)
	assert.Equal(t, []string{"N", "CA", "C", "O"}, names)

	v, ok := ctx.Variable("threshold")
	require.True(t, ok)
	assert.Equal(t, 0.5, v.Scalar)
}

func TestBuildContextAppliesOverrides(t *testing.T) {
	path := writeFixture(t, `
num_atoms: 1
float_columns:
  x: [0]
variables:
  cutoff: 1.0
`)
	fx, err := loadFixture(path)
	require.NoError(t, err)

	ctx, err := fx.buildContext(map[string]float64{"cutoff": 9.0})
	require.NoError(t, err)
	v, ok := ctx.Variable("cutoff")
	require.True(t, ok)
	assert.Equal(t, 9.0, v.Scalar)
}

func TestBuildContextRejectsUnknownGroupKind(t *testing.T) {
	path := writeFixture(t, `
num_atoms: 1
groups:
  nonsense: [0]
`)
	fx, err := loadFixture(path)
	require.NoError(t, err)
	_, err = fx.buildContext(nil)
	assert.Error(t, err)
}

func TestApplySet(t *testing.T) {
	overrides := make(map[string]float64)
	require.NoError(t, applySet([]string{"threshold", "0.5", "cutoff", "2"}, overrides))
	assert.Equal(t, 0.5, overrides["threshold"])
	assert.Equal(t, 2.0, overrides["cutoff"])
}

func TestApplySetRejectsOddArgs(t *testing.T) {
	overrides := make(map[string]float64)
	err := applySet([]string{"threshold"}, overrides)
	assert.Error(t, err)
}

func TestApplySetRejectsNonNumericValue(t *testing.T) {
	overrides := make(map[string]float64)
	err := applySet([]string{"threshold", "not-a-number"}, overrides)
	assert.Error(t, err)
}
