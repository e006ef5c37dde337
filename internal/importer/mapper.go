package importer

import (
	"fmt"

	"github.com/nexcrm/importer/internal/schema"
)

// AutoMap produces a best-effort mapping from source headers to target
// fields. A header matches the first target field (in schema order) whose
// normalized key or label equals the normalized header. Denylisted and
// unmatched headers map to "" (skip). Header order is preserved by the
// caller's header slice; the mapping itself is keyed by header name.
//
// AutoMap is deterministic: the same headers and schema always produce the
// same mapping.
func AutoMap(headers []string, fields []schema.TargetField) ColumnMapping {
	mapping := make(ColumnMapping, len(headers))
	taken := make(map[string]bool, len(fields))

	for _, header := range headers {
		mapping[header] = ""
		if IsDeniedHeader(header) {
			continue
		}
		norm := NormalizeHeader(header)
		if norm == "" {
			continue
		}
		for _, f := range fields {
			if taken[f.Key] {
				continue
			}
			if norm == NormalizeHeader(f.Key) || norm == NormalizeHeader(f.Label) {
				mapping[header] = f.Key
				taken[f.Key] = true
				break
			}
		}
	}
	return mapping
}

// SetMapping returns a copy of the mapping with one entry replaced.
// At most one header may feed a given target field: if targetKey is already
// assigned to a different header, that header is reset to "" so the caller
// sees the reassignment explicitly in the returned mapping.
func SetMapping(mapping ColumnMapping, header, targetKey string) ColumnMapping {
	next := make(ColumnMapping, len(mapping)+1)
	for h, k := range mapping {
		next[h] = k
	}
	if targetKey != "" {
		for h, k := range next {
			if k == targetKey && h != header {
				next[h] = ""
			}
		}
	}
	next[header] = targetKey
	return next
}

// ValidateCompleteness returns advisory messages for required target fields
// that no source column is mapped to. It does not block anything itself;
// per-row validation re-checks required mappings regardless.
func ValidateCompleteness(mapping ColumnMapping, fields []schema.TargetField) []string {
	mapped := make(map[string]bool, len(mapping))
	for _, key := range mapping {
		if key != "" {
			mapped[key] = true
		}
	}

	var missing []string
	for _, f := range fields {
		if f.Required && !mapped[f.Key] {
			missing = append(missing, fmt.Sprintf("Required field %q has no mapped column", f.Key))
		}
	}
	return missing
}
