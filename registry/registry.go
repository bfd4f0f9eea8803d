// Package registry holds the keyword and macro catalog that the grammar
// assembler, parser, and evaluator all read from. New returns an empty
// Registry; RegisterBuiltinKeywords and RegisterBuiltinMacros add the
// builtin catalog (see builtin_keywords.go and builtin_macros.go), and
// further registrations can follow before a query is parsed, per the
// keyword/macro registry described in the selection-engine spec.
package registry

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// FieldType is the Go-level type a keyword's per-atom column carries.
type FieldType int

const (
	// TypeInt marks an integer-valued column (serial, resid, model, ...).
	TypeInt FieldType = iota
	// TypeFloat marks a real-valued column (x, y, z, mass, ...).
	TypeFloat
	// TypeString marks a string-valued column (chain, name, resname, ...).
	TypeString
)

func (t FieldType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "str"
	default:
		return "unknown"
	}
}

// Keyword is a field that the evaluator can look up per atom.
type Keyword struct {
	Name            string
	Synonyms        []string
	Type            FieldType
	Description     string
	CaseInsensitive bool // only meaningful when Type == TypeString
}

// allNames returns the canonical name followed by every synonym.
func (k Keyword) allNames() []string {
	return append([]string{k.Name}, k.Synonyms...)
}

// Macro is a named, reusable query fragment. Definition is stored unparsed;
// it is parsed lazily by the macro expander on first use (see package macro).
type Macro struct {
	Name       string
	Synonyms   []string
	Definition string
}

func (m Macro) allNames() []string {
	return append([]string{m.Name}, m.Synonyms...)
}

// Hidden reports whether m is an internal macro (name prefixed with '_'),
// which is expandable but not offered as a query-surface flag.
func (m Macro) Hidden() bool {
	return strings.HasPrefix(m.Name, "_")
}

// DuplicateName is returned when a keyword or macro registration collides
// with an already-registered canonical name or synonym.
type DuplicateName struct {
	Name string
}

func (e *DuplicateName) Error() string {
	return "duplicate name: " + e.Name
}

// entryKind distinguishes what a resolved name refers to.
type entryKind int

const (
	entryNone entryKind = iota
	entryKeyword
	entryMacro
)

// Registry is the keyword and macro catalog. The zero value is not usable;
// construct one with New. A Registry is safe for concurrent
// reads once registration has finished (see spec concurrency model); writes
// (Register*) are guarded by a mutex so callers may also register from a
// single goroutine during startup without separate synchronization.
type Registry struct {
	mu sync.RWMutex

	names    map[string]entryKind // every reserved canonical name/synonym, disjoint between kinds
	keywords map[string]*Keyword  // canonical name -> keyword
	macros   map[string]*Macro    // canonical name -> macro

	keywordOrder []string // canonical names, registration order
	macroOrder   []string
}

// New returns an empty registry with no keywords or macros registered.
func New() *Registry {
	return &Registry{
		names:    make(map[string]entryKind),
		keywords: make(map[string]*Keyword),
		macros:   make(map[string]*Macro),
	}
}

// RegisterKeyword adds a keyword to the registry. It fails with
// DuplicateName if the canonical name or any synonym is already reserved by
// a keyword or a macro.
func (r *Registry) RegisterKeyword(k Keyword) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := k.allNames()
	for _, n := range names {
		if r.names[n] != entryNone {
			return errors.WithStack(&DuplicateName{Name: n})
		}
	}

	kw := k
	for _, n := range names {
		r.names[n] = entryKeyword
	}
	r.keywords[k.Name] = &kw
	r.keywordOrder = append(r.keywordOrder, k.Name)
	return nil
}

// RegisterMacro adds a macro to the registry. It fails with DuplicateName
// under the same conditions as RegisterKeyword. The definition is stored
// unparsed; no cycle check happens here (cycle detection happens lazily,
// see package macro).
func (r *Registry) RegisterMacro(m Macro) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := m.allNames()
	for _, n := range names {
		if r.names[n] != entryNone {
			return errors.WithStack(&DuplicateName{Name: n})
		}
	}

	mac := m
	for _, n := range names {
		r.names[n] = entryMacro
	}
	r.macros[m.Name] = &mac
	r.macroOrder = append(r.macroOrder, m.Name)
	return nil
}

// Resolved is the result of resolving a bare identifier against the
// registry: exactly one of Keyword/Macro is non-nil, or both are nil if the
// name is unreserved.
type Resolved struct {
	Keyword *Keyword
	Macro   *Macro
}

// Found reports whether ResolveName matched anything.
func (r Resolved) Found() bool {
	return r.Keyword != nil || r.Macro != nil
}

// ResolveName looks up s (a canonical name or synonym) against both
// namespaces, which RegisterKeyword and RegisterMacro keep disjoint.
func (r *Registry) ResolveName(s string) Resolved {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch r.names[s] {
	case entryKeyword:
		return Resolved{Keyword: r.lookupKeywordLocked(s)}
	case entryMacro:
		return Resolved{Macro: r.lookupMacroLocked(s)}
	default:
		return Resolved{}
	}
}

// lookupKeywordLocked finds the canonical Keyword for a name that may be a synonym.
func (r *Registry) lookupKeywordLocked(s string) *Keyword {
	if kw, ok := r.keywords[s]; ok {
		return kw
	}
	for _, kw := range r.keywords {
		for _, syn := range kw.Synonyms {
			if syn == s {
				return kw
			}
		}
	}
	return nil
}

func (r *Registry) lookupMacroLocked(s string) *Macro {
	if m, ok := r.macros[s]; ok {
		return m
	}
	for _, m := range r.macros {
		for _, syn := range m.Synonyms {
			if syn == s {
				return m
			}
		}
	}
	return nil
}

// IsReserved reports whether s is reserved by any keyword or macro name or
// synonym. The assembled grammar answers the same question from its own
// tables (grammar.Grammar.IsReservedIdentifier).
func (r *Registry) IsReserved(s string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[s] != entryNone
}

// IterKeywords calls fn for every registered keyword in registration order,
// stopping early if fn returns false.
func (r *Registry) IterKeywords(fn func(Keyword) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.keywordOrder {
		if !fn(*r.keywords[name]) {
			return
		}
	}
}

// IterMacros calls fn for every registered macro in registration order,
// stopping early if fn returns false.
func (r *Registry) IterMacros(fn func(Macro) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.macroOrder {
		if !fn(*r.macros[name]) {
			return
		}
	}
}

// Macro returns the macro registered under canonical name, or nil.
func (r *Registry) Macro(name string) *Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.macros[name]
}

// Keyword returns the keyword registered under canonical name, or nil.
func (r *Registry) Keyword(name string) *Keyword {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keywords[name]
}
