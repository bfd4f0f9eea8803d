// Package config locates and loads an optional user registry-extension
// file, letting a host add keywords and macros to a registry.Registry
// before the first query is parsed (spec.md §3.2).
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cabb99/molselect/registry"
)

// KeywordEntry is the YAML shape of one user keyword registration.
type KeywordEntry struct {
	Name            string   `yaml:"name"`
	Synonyms        []string `yaml:"synonyms,omitempty"`
	Type            string   `yaml:"type"` // "int", "float", or "str"
	Description     string   `yaml:"description,omitempty"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty"`
}

// MacroEntry is the YAML shape of one user macro registration.
type MacroEntry struct {
	Name       string   `yaml:"name"`
	Synonyms   []string `yaml:"synonyms,omitempty"`
	Definition string   `yaml:"definition"`
}

// RegistryExtension is the top-level YAML document a user config file holds.
type RegistryExtension struct {
	Keywords []KeywordEntry `yaml:"keywords,omitempty"`
	Macros   []MacroEntry   `yaml:"macros,omitempty"`
}

// ConfigPath returns the path to the registry-extension file.
func ConfigPath() (string, error) {
	path := filepath.Join("molselect", "registry.yaml")
	return xdg.ConfigFile(path)
}

// LoadOrCreateExtension loads the registry-extension file if it exists and
// writes an empty one otherwise. forceDefault skips the filesystem entirely
// and returns an empty extension, the way aretext's -noconfig flag does.
func LoadOrCreateExtension(forceDefault bool) (RegistryExtension, error) {
	if forceDefault {
		log.Printf("Using default (empty) registry extension\n")
		return RegistryExtension{}, nil
	}

	path, err := ConfigPath()
	if err != nil {
		return RegistryExtension{}, err
	}

	log.Printf("Loading registry extension from %q\n", path)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("Writing empty registry extension to %q\n", path)
		if err := saveDefaultExtension(path); err != nil {
			return RegistryExtension{}, errors.Wrapf(err, "writing default registry extension to %q", path)
		}
		return RegistryExtension{}, nil
	} else if err != nil {
		return RegistryExtension{}, errors.Wrapf(err, "loading registry extension from %q", path)
	}

	ext, err := unmarshalExtension(data)
	if err != nil {
		return RegistryExtension{}, err
	}
	return ext, nil
}

func unmarshalExtension(data []byte) (RegistryExtension, error) {
	var ext RegistryExtension
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return RegistryExtension{}, errors.Wrap(err, "yaml.Unmarshal")
	}
	return ext, nil
}

func saveDefaultExtension(path string) error {
	dirPath := filepath.Dir(path)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return errors.Wrap(err, "os.MkdirAll")
	}
	if err := os.WriteFile(path, defaultExtensionYaml, 0644); err != nil {
		return errors.Wrap(err, "os.WriteFile")
	}
	return nil
}

var defaultExtensionYaml = []byte("keywords: []\nmacros: []\n")

// Apply registers every keyword and macro in ext against r. It registers
// keywords before macros, matching the registry's namespace rule that every
// name must be reserved exactly once regardless of order, and fails fast
// with the first DuplicateName or unknown-type error.
func (ext RegistryExtension) Apply(r *registry.Registry) error {
	for _, k := range ext.Keywords {
		t, err := fieldType(k.Type)
		if err != nil {
			return errors.Wrapf(err, "keyword %q", k.Name)
		}
		kw := registry.Keyword{
			Name:            k.Name,
			Synonyms:        k.Synonyms,
			Type:            t,
			Description:     k.Description,
			CaseInsensitive: k.CaseInsensitive,
		}
		if err := r.RegisterKeyword(kw); err != nil {
			return errors.Wrapf(err, "registering keyword %q", k.Name)
		}
	}
	for _, m := range ext.Macros {
		mac := registry.Macro{Name: m.Name, Synonyms: m.Synonyms, Definition: m.Definition}
		if err := r.RegisterMacro(mac); err != nil {
			return errors.Wrapf(err, "registering macro %q", m.Name)
		}
	}
	return nil
}

func fieldType(s string) (registry.FieldType, error) {
	switch s {
	case "int":
		return registry.TypeInt, nil
	case "float":
		return registry.TypeFloat, nil
	case "str", "string":
		return registry.TypeString, nil
	default:
		return 0, fmt.Errorf("unknown keyword type %q, want int, float, or str", s)
	}
}
