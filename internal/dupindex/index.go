// Package dupindex detects vault names that already exist, either exactly or
// after collapsing spacing, dashes and case.
package dupindex

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/hengadev/opvault/internal/optool"
)

// Normalize trims name and casefolds it unless caseSensitive is set.
func Normalize(name string, caseSensitive bool) string {
	name = strings.TrimSpace(name)
	if caseSensitive {
		return name
	}
	return fold(name)
}

// fold applies full Unicode case folding, so "Straße" and "STRASSE" agree.
// A Caser keeps state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Canonicalize trims and casefolds name, then drops every whitespace and
// dash character.
func Canonicalize(name string) string {
	name = fold(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, name)
}

// MatchKind says how a planned name collided with a known vault.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchCanonical
)

// String returns the string representation of the match kind
func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchCanonical:
		return "canonical"
	default:
		return "none"
	}
}

// Match is the result of a lookup.
type Match struct {
	Kind MatchKind
	// Record is the colliding vault. For canonical matches it is the first
	// record that produced the key.
	Record optool.VaultRecord
	// InRun is set when the collision is with a vault created earlier in the
	// same run rather than with the inventory snapshot.
	InRun bool
}

// Index holds the exact and canonical lookups built from one inventory
// snapshot, plus the names created since.
type Index struct {
	caseSensitive bool
	exact         map[string]entry
	canonical     map[string][]entry
}

type entry struct {
	record optool.VaultRecord
	inRun  bool
}

// New builds an index from an inventory snapshot. Exact collisions keep the
// last record; canonical collisions keep all of them.
func New(records []optool.VaultRecord, caseSensitive bool) *Index {
	idx := &Index{
		caseSensitive: caseSensitive,
		exact:         make(map[string]entry, len(records)),
		canonical:     make(map[string][]entry, len(records)),
	}
	for _, r := range records {
		idx.add(r, false)
	}
	return idx
}

// Disabled returns an empty index, used when the inventory could not be listed.
func Disabled(caseSensitive bool) *Index {
	return New(nil, caseSensitive)
}

func (idx *Index) add(r optool.VaultRecord, inRun bool) {
	e := entry{record: r, inRun: inRun}
	idx.exact[Normalize(r.Name, idx.caseSensitive)] = e
	key := Canonicalize(r.Name)
	idx.canonical[key] = append(idx.canonical[key], e)
}

// Remember records a vault created during the current run so later names
// in the same run are checked against it too.
func (idx *Index) Remember(r optool.VaultRecord) {
	idx.add(r, true)
}

// Lookup checks name against the exact map first, then the canonical map.
func (idx *Index) Lookup(name string) Match {
	if e, ok := idx.exact[Normalize(name, idx.caseSensitive)]; ok {
		return Match{Kind: MatchExact, Record: e.record, InRun: e.inRun}
	}
	if es := idx.canonical[Canonicalize(name)]; len(es) > 0 {
		return Match{Kind: MatchCanonical, Record: es[0].record, InRun: es[0].inRun}
	}
	return Match{Kind: MatchNone}
}

// CanonicalMatches returns every record sharing name's canonical key.
func (idx *Index) CanonicalMatches(name string) []optool.VaultRecord {
	es := idx.canonical[Canonicalize(name)]
	out := make([]optool.VaultRecord, 0, len(es))
	for _, e := range es {
		out = append(out, e.record)
	}
	return out
}

// Len returns the number of distinct exact keys.
func (idx *Index) Len() int {
	return len(idx.exact)
}
