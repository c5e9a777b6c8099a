// Package alias maps arbitrary source field names to canonical field names
// via per-document-type alias tables loaded from the catalog.
package alias

import "strings"

// Resolver answers "which canonical field is this label?" for one document
// type. Lookup is case-insensitive and ignores space/underscore/dash
// differences.
type Resolver struct {
	byAlias map[string]string
}

// NewResolver builds a resolver from a canonical-name → aliases table. The
// canonical name itself always resolves.
func NewResolver(table map[string][]string) *Resolver {
	r := &Resolver{byAlias: make(map[string]string)}
	for canonical, aliases := range table {
		r.byAlias[fold(canonical)] = canonical
		for _, a := range aliases {
			r.byAlias[fold(a)] = canonical
		}
	}
	return r
}

// Resolve maps a source field name to its canonical name.
func (r *Resolver) Resolve(name string) (string, bool) {
	canonical, ok := r.byAlias[fold(name)]
	return canonical, ok
}

// MatchColumn resolves a table column header, tolerating surrounding label
// noise: an exact fold match wins, otherwise the header merely has to
// contain a known alias. When several aliases are contained, the longest
// one decides, so "line 1 number of employees" resolves to the employee
// count and not to some shorter alias it happens to contain.
func (r *Resolver) MatchColumn(header string) (string, bool) {
	if canonical, ok := r.Resolve(header); ok {
		return canonical, true
	}

	folded := fold(header)
	best, bestLen := "", 0
	for a, canonical := range r.byAlias {
		if a != "" && len(a) > bestLen && strings.Contains(folded, a) {
			best, bestLen = canonical, len(a)
		}
	}
	return best, bestLen > 0
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
