// Package schema declares the fixed target schema that imported records
// are mapped onto. The schema is static: it is defined once at startup
// and never mutated afterwards.
package schema

import "fmt"

// FieldKind is the expected data type of a target field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindEnum
	KindStringList
	KindBool
)

// TargetField defines one named, typed slot in the target record schema.
type TargetField struct {
	Key      string   // Stable identifier, unique across the schema
	Label    string   // Display name, used in error messages and templates
	Required bool     // Record is invalid without a non-empty value
	Kind     FieldKind
	Options  []string // Valid values for KindEnum fields
	Sample   string   // Example value for the downloadable template
}

// KindName returns a human-readable name for a field kind.
func (k FieldKind) KindName() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindEnum:
		return "enum"
	case KindStringList:
		return "list"
	case KindBool:
		return "boolean"
	default:
		return "value"
	}
}

// Fields returns the target fields in declaration order.
// The returned slice is a copy; callers may not mutate the schema.
func Fields() []TargetField {
	out := make([]TargetField, len(contactFields))
	copy(out, contactFields)
	return out
}

// RequiredKeys returns the set of keys for required target fields.
func RequiredKeys() map[string]bool {
	keys := make(map[string]bool)
	for _, f := range contactFields {
		if f.Required {
			keys[f.Key] = true
		}
	}
	return keys
}

// FieldByKey returns the target field with the given key.
func FieldByKey(key string) (TargetField, bool) {
	for _, f := range contactFields {
		if f.Key == key {
			return f, true
		}
	}
	return TargetField{}, false
}

// mustValidate panics if the declared schema violates its invariants.
// Called from an init so a bad schema fails at process start, not mid-import.
func mustValidate(fields []TargetField) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			panic("schema: field with empty key")
		}
		if seen[f.Key] {
			panic(fmt.Sprintf("schema: duplicate field key: %s", f.Key))
		}
		seen[f.Key] = true
		if f.Kind == KindEnum && len(f.Options) == 0 {
			panic(fmt.Sprintf("schema: enum field %s has no options", f.Key))
		}
	}
}

func init() {
	mustValidate(contactFields)
}
