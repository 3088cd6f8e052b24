package book

import "strings"

// ISBNSeparator is stripped from identifiers on both sides of a comparison.
const ISBNSeparator = "-"

// NormalizeISBN trims surrounding whitespace, removes every separator, then
// trims again. Case is preserved. The second trim differs from a plain
// trim-then-strip: "- 978" becomes "978", not " 978". The result never
// starts or ends with whitespace, so applying it twice equals applying it
// once.
func NormalizeISBN(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(raw), ISBNSeparator, ""))
}
