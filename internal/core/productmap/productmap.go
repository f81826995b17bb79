// Package productmap maps scraped product names to stable product
// identifiers through declarative per-source rule tables.
//
// Sources publish product names as free text ("Cuenta Platino Plus",
// "Inversión Flexible", "Plazo fijo 90 días"). Each source carries an
// ordered rule table; the first rule whose substrings all appear in the
// folded name wins. Folding lowercases and strips diacritics so rules are
// written in plain ASCII
package productmap

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rule matches when every substring in Contains appears in the folded name
type Rule struct {
	Contains  []string `validate:"required,min=1,dive,required"`
	ProductID int32    `validate:"required"`
}

// Table is an ordered rule set with a default product for unmatched names.
// Order is priority: put the more specific rule first
type Table struct {
	Rules   []Rule `validate:"dive"`
	Default int32  `validate:"required"`
}

// Lookup returns the product id for a raw product name
func (t Table) Lookup(name string) int32 {
	folded := Fold(name)
	for _, r := range t.Rules {
		if matches(folded, r.Contains) {
			return r.ProductID
		}
	}
	return t.Default
}

func matches(folded string, contains []string) bool {
	for _, c := range contains {
		if !strings.Contains(folded, c) {
			return false
		}
	}
	return true
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, trims, and strips combining marks:
// "Plazo Fijo 90 Días " -> "plazo fijo 90 dias"
func Fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		out = s // fold is best effort; match against the raw name instead
	}
	return strings.ToLower(strings.TrimSpace(out))
}
