// Package grammar assembles a concrete grammar from the registry's current
// keyword/macro catalog, per spec.md §4.2. Assembling is cheap and is
// expected to happen once per registry change (typically once, at
// startup); the assembled Grammar is then immutable and can be shared by
// parsers running concurrently on separate goroutines (§5).
package grammar

import (
	"sort"
	"strings"

	"github.com/cabb99/molselect/registry"
)

// Grammar is the concrete, assembled grammar: a rendered template string for
// inspection/debugging plus the reserved-name tables the parser consults
// while parsing a query.
type Grammar struct {
	// Source is the template with every placeholder filled in.
	Source string

	// Keywords maps every reserved keyword name (canonical + synonyms) to
	// its entry. Macros maps every reserved macro name the same way. The
	// two maps are guaranteed disjoint by the registry.
	Keywords map[string]*registry.Keyword
	Macros   map[string]*registry.Macro
}

// IsReservedIdentifier reports whether s is claimed by a keyword or macro
// name, i.e. whether the LAST_TOKEN fallback must NOT match it.
func (g *Grammar) IsReservedIdentifier(s string) bool {
	if _, ok := g.Keywords[s]; ok {
		return true
	}
	_, ok := g.Macros[s]
	return ok
}

// Assemble builds a Grammar from the registry's current state. The
// KEYWORDS_NAMES and MACROS_NAMES placeholders are replaced with an
// alternation of every reserved name (sorted for determinism); the KEYWORDS
// and MACROS rule names are left as they are. LAST_TOKEN is replaced with
// the literal pattern description for a bare identifier, which can never
// collide with a reserved name because the parser checks the reserved
// tables before treating an identifier as a bare value.
func Assemble(r *registry.Registry) *Grammar {
	g := &Grammar{
		Keywords: make(map[string]*registry.Keyword),
		Macros:   make(map[string]*registry.Macro),
	}

	var keywordNames, macroNames []string
	r.IterKeywords(func(k registry.Keyword) bool {
		kw := k
		for _, n := range append([]string{kw.Name}, kw.Synonyms...) {
			g.Keywords[n] = r.Keyword(kw.Name)
			keywordNames = append(keywordNames, n)
		}
		return true
	})
	r.IterMacros(func(m registry.Macro) bool {
		mac := m
		for _, n := range append([]string{mac.Name}, mac.Synonyms...) {
			g.Macros[n] = r.Macro(mac.Name)
			macroNames = append(macroNames, n)
		}
		return true
	})
	sort.Strings(keywordNames)
	sort.Strings(macroNames)

	replacer := strings.NewReplacer(
		"KEYWORDS_NAMES", alternation(keywordNames),
		"MACROS_NAMES", alternation(macroNames),
		"LAST_TOKEN", `? bare identifier not claimed by a keyword or macro ?`,
	)
	g.Source = replacer.Replace(grammarTemplate)
	return g
}

func alternation(names []string) string {
	if len(names) == 0 {
		return `? none registered ?`
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	return strings.Join(quoted, " | ")
}
