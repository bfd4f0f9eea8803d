package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabb99/molselect/registry"
)

func TestUnmarshalExtension(t *testing.T) {
	data := []byte(`
keywords:
  - name: bfactor2
    type: float
    description: squared B-factor
macros:
  - name: backbone_ca
    definition: name CA
`)
	ext, err := unmarshalExtension(data)
	require.NoError(t, err)
	assert.Equal(t, RegistryExtension{
		Keywords: []KeywordEntry{
			{Name: "bfactor2", Type: "float", Description: "squared B-factor"},
		},
		Macros: []MacroEntry{
			{Name: "backbone_ca", Definition: "name CA"},
		},
	}, ext)
}

func TestUnmarshalExtensionRejectsInvalidYaml(t *testing.T) {
	_, err := unmarshalExtension([]byte("keywords: [this is not valid"))
	assert.Error(t, err)
}

func TestApplyRegistersKeywordsAndMacros(t *testing.T) {
	ext := RegistryExtension{
		Keywords: []KeywordEntry{
			{Name: "occupancy2", Type: "float"},
			{Name: "label", Type: "str", CaseInsensitive: true},
		},
		Macros: []MacroEntry{
			{Name: "heavy", Definition: "not element H"},
		},
	}
	r := registry.New()
	require.NoError(t, ext.Apply(r))

	kw := r.Keyword("occupancy2")
	require.NotNil(t, kw)
	assert.Equal(t, registry.TypeFloat, kw.Type)

	label := r.Keyword("label")
	require.NotNil(t, label)
	assert.True(t, label.CaseInsensitive)

	mac := r.Macro("heavy")
	require.NotNil(t, mac)
	assert.Equal(t, "not element H", mac.Definition)
}

func TestApplyRejectsUnknownType(t *testing.T) {
	ext := RegistryExtension{Keywords: []KeywordEntry{{Name: "x", Type: "bogus"}}}
	r := registry.New()
	err := ext.Apply(r)
	assert.Error(t, err)
}

func TestApplyRejectsDuplicateAgainstBuiltins(t *testing.T) {
	r := registry.New()
	require.NoError(t, registry.RegisterBuiltinKeywords(r))
	require.NoError(t, registry.RegisterBuiltinMacros(r))

	ext := RegistryExtension{Keywords: []KeywordEntry{{Name: "name", Type: "str"}}}
	err := ext.Apply(r)
	assert.Error(t, err)
	var dup *registry.DuplicateName
	assert.ErrorAs(t, err, &dup)
}

func TestFieldTypeAcceptsAliases(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want registry.FieldType
	}{
		{"int", registry.TypeInt},
		{"float", registry.TypeFloat},
		{"str", registry.TypeString},
		{"string", registry.TypeString},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := fieldType(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
