package pipeline

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeAddress canonicalizes a free-form address for use as a cache and
// dedup key: Unicode compatibility normalization, whitespace collapse, and
// case folding. Two spellings of the same address that differ only in
// formatting hash to the same key.
func NormalizeAddress(address string) string {
	s := norm.NFKC.String(address)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
