package schema

import "testing"

func TestFields_ReturnsCopy(t *testing.T) {
	first := Fields()
	first[0].Key = "mutated"

	second := Fields()
	if second[0].Key == "mutated" {
		t.Error("Fields() exposed internal schema storage")
	}
}

func TestFields_DeclarationInvariants(t *testing.T) {
	fields := Fields()
	if len(fields) == 0 {
		t.Fatal("schema has no fields")
	}

	seen := make(map[string]bool)
	for _, f := range fields {
		if f.Key == "" {
			t.Error("field with empty key")
		}
		if seen[f.Key] {
			t.Errorf("duplicate field key %q", f.Key)
		}
		seen[f.Key] = true
		if f.Label == "" {
			t.Errorf("field %q has no label", f.Key)
		}
		if f.Kind == KindEnum && len(f.Options) == 0 {
			t.Errorf("enum field %q has no options", f.Key)
		}
		if f.Sample == "" {
			t.Errorf("field %q has no sample value", f.Key)
		}
	}
}

func TestRequiredKeys(t *testing.T) {
	required := RequiredKeys()

	for _, key := range []string{"name", "email"} {
		if !required[key] {
			t.Errorf("RequiredKeys() missing %q", key)
		}
	}
	if required["company"] {
		t.Error("company should not be required")
	}
}

func TestFieldByKey(t *testing.T) {
	f, ok := FieldByKey("email")
	if !ok {
		t.Fatal("FieldByKey(email) not found")
	}
	if f.Label != "Email" || !f.Required {
		t.Errorf("email field = %+v, want required with label Email", f)
	}

	if _, ok := FieldByKey("no-such-field"); ok {
		t.Error("FieldByKey returned a field for an unknown key")
	}
}

func TestKindName(t *testing.T) {
	tests := []struct {
		kind FieldKind
		want string
	}{
		{KindText, "text"},
		{KindNumber, "number"},
		{KindEnum, "enum"},
		{KindStringList, "list"},
		{KindBool, "boolean"},
		{FieldKind(99), "value"},
	}

	for _, tt := range tests {
		if got := tt.kind.KindName(); got != tt.want {
			t.Errorf("KindName(%d) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestMustValidate(t *testing.T) {
	tests := []struct {
		name      string
		fields    []TargetField
		wantPanic bool
	}{
		{
			name:   "valid schema",
			fields: []TargetField{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}},
		},
		{
			name:      "duplicate key",
			fields:    []TargetField{{Key: "a"}, {Key: "a"}},
			wantPanic: true,
		},
		{
			name:      "empty key",
			fields:    []TargetField{{Key: ""}},
			wantPanic: true,
		},
		{
			name:      "enum without options",
			fields:    []TargetField{{Key: "a", Kind: KindEnum}},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); (r != nil) != tt.wantPanic {
					t.Errorf("panic = %v, wantPanic = %v", r, tt.wantPanic)
				}
			}()
			mustValidate(tt.fields)
		})
	}
}
