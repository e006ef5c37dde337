package importer

import (
	"strings"

	"github.com/nexcrm/importer/internal/schema"
)

// NormalizeHeader canonicalizes a raw source column name for fuzzy matching:
// lowercase with every character outside [a-z0-9] stripped. Pure and total;
// a header with no usable characters normalizes to "".
func NormalizeHeader(header string) string {
	var b strings.Builder
	b.Grow(len(header))
	for _, r := range strings.ToLower(header) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsDeniedHeader reports whether a source header is on the schema denylist
// (columns the target schema intentionally never accepts).
func IsDeniedHeader(header string) bool {
	return schema.DeniedHeaders[NormalizeHeader(header)]
}
