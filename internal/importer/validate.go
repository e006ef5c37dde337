package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nexcrm/importer/internal/schema"
)

// ValidateRow applies the target schema to one raw row under the current
// mapping, producing a typed record or an ordered list of error messages.
//
// Errors are accumulated in schema declaration order so that validating the
// same row twice yields an identical record. The function is pure and total:
// it never fails, and IsValid is false exactly when Errors is non-empty.
// Rows are validated independently; no row observes another row's state.
func ValidateRow(row RawRow, mapping ColumnMapping, fields []schema.TargetField) ValidatedRecord {
	rec := ValidatedRecord{
		RowIndex: row.Index,
		Fields:   make(map[string]any),
		IsValid:  true,
	}

	columnFor := columnsByTarget(mapping)

	for _, f := range fields {
		column, mapped := columnFor[f.Key]
		if !mapped {
			// Re-checked per row even though the mapping is session-wide,
			// so every record is self-describing in the error report.
			if f.Required {
				rec.Errors = append(rec.Errors, fmt.Sprintf("Required field '%s' is not mapped", f.Key))
				rec.IsValid = false
			}
			continue
		}

		value := strings.TrimSpace(row.Values[column])

		if value == "" {
			if f.Required {
				rec.Errors = append(rec.Errors, fmt.Sprintf("%s is required", f.Label))
				rec.IsValid = false
			}
			continue
		}

		converted, err := convertValue(value, f)
		if err != nil {
			rec.Errors = append(rec.Errors, err.Error())
			rec.IsValid = false
			continue
		}
		rec.Fields[f.Key] = converted
	}

	return rec
}

// convertValue coerces a non-empty trimmed value per the field kind.
func convertValue(value string, f schema.TargetField) (any, error) {
	switch f.Kind {
	case schema.KindNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a valid positive number", f.Label)
		}
		return n, nil

	case schema.KindEnum:
		for _, opt := range f.Options {
			if value == opt {
				return value, nil
			}
		}
		return nil, fmt.Errorf("%s must be one of: %s", f.Label, strings.Join(f.Options, ", "))

	case schema.KindStringList:
		parts := strings.Split(value, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		return list, nil

	case schema.KindBool:
		switch strings.ToLower(value) {
		case "true", "1", "yes", "y":
			return true, nil
		case "false", "0", "no", "n", "":
			return false, nil
		default:
			return nil, fmt.Errorf("%s must be true/false, yes/no, 1/0, or y/n", f.Label)
		}

	default: // schema.KindText
		return value, nil
	}
}

// columnsByTarget inverts the mapping, ignoring skipped columns. If a
// caller-supplied mapping feeds one target from several columns (SetMapping
// never produces this), the lexicographically smallest column wins so the
// result stays deterministic.
func columnsByTarget(mapping ColumnMapping) map[string]string {
	byTarget := make(map[string][]string)
	for column, key := range mapping {
		if key != "" {
			byTarget[key] = append(byTarget[key], column)
		}
	}

	out := make(map[string]string, len(byTarget))
	for key, columns := range byTarget {
		sort.Strings(columns)
		out[key] = columns[0]
	}
	return out
}

// ValidateRows validates every raw row under the mapping, preserving order.
func ValidateRows(rows []RawRow, mapping ColumnMapping, fields []schema.TargetField) []ValidatedRecord {
	records := make([]ValidatedRecord, len(rows))
	for i, row := range rows {
		records[i] = ValidateRow(row, mapping, fields)
	}
	return records
}
