package adapter

import (
	"strings"
	"unicode"
)

// TitleCase splits a name on spaces, underscores, and hyphens and capitalizes
// the first letter of each word: "add_to-cart" becomes "Add To Cart".
func TitleCase(s string) string {
	words := strings.FieldsFunc(s, isSeparator)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// SnakeCase rewrites a name to snake_case: an underscore is inserted at each
// lowercase-then-uppercase boundary, everything is lowercased, and runs of
// separators collapse to a single underscore. "productID" becomes
// "product_id", "Add To Cart" becomes "add_to_cart".
func SnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	prevLower := false
	prevUnderscore := true // swallow leading separators
	for _, r := range s {
		switch {
		case isSeparator(r):
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
			prevUnderscore = false
		default:
			b.WriteRune(unicode.ToLower(r))
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
			prevUnderscore = false
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// ScreamingSnakeCase is SnakeCase upper-cased: "Add To Cart" becomes
// "ADD_TO_CART".
func ScreamingSnakeCase(s string) string {
	return strings.ToUpper(SnakeCase(s))
}

// Slug derives a lowercase identifier from free text: runs of
// non-alphanumeric characters collapse to a single underscore and leading or
// trailing underscores are trimmed. Slug is idempotent: Slug(Slug(s)) ==
// Slug(s).
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		} else {
			pendingSep = true
		}
	}
	return b.String()
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '_' || r == '-'
}
