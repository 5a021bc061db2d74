// Package normalize canonicalizes user-entered tag names.
//
// Tags keep the casing the user typed ("Slow Burn" stays "Slow Burn"), but
// identity is case-insensitive: TagName produces the storage form, Fold the
// comparison form. Both apply Unicode NFC first so that composed and
// decomposed spellings of the same name collide.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Matches runs of whitespace (for collapsing to a single space).
var whitespaceRe = regexp.MustCompile(`\s+`)

// TagName returns the storage form of a raw tag name:
//
//  1. Unicode NFC normalization
//  2. Trim surrounding whitespace
//  3. Collapse inner whitespace runs to a single space
//
// Casing is preserved. Returns "" for input that is only whitespace.
func TagName(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.TrimSpace(s)
	return whitespaceRe.ReplaceAllString(s, " ")
}

// Fold returns the comparison form used for case-insensitive tag identity.
// Two names are the same tag iff their folds are equal.
func Fold(raw string) string {
	return strings.ToLower(TagName(raw))
}
