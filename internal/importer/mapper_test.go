package importer

import (
	"reflect"
	"testing"

	"github.com/nexcrm/importer/internal/schema"
)

func TestAutoMap(t *testing.T) {
	fields := schema.Fields()

	tests := []struct {
		name    string
		headers []string
		want    ColumnMapping
	}{
		{
			name:    "exact key match",
			headers: []string{"name", "email"},
			want:    ColumnMapping{"name": "name", "email": "email"},
		},
		{
			name:    "label match with case and spacing",
			headers: []string{"Full Name", "E-Mail", "Lifetime Value"},
			want:    ColumnMapping{"Full Name": "", "E-Mail": "email", "Lifetime Value": "lifetime_value"},
		},
		{
			name:    "underscore variants",
			headers: []string{"lifetime_value", "NAME"},
			want:    ColumnMapping{"lifetime_value": "lifetime_value", "NAME": "name"},
		},
		{
			name:    "denylisted headers skipped",
			headers: []string{"id", "Created At", "owner_id", "email"},
			want:    ColumnMapping{"id": "", "Created At": "", "owner_id": "", "email": "email"},
		},
		{
			name:    "unmatched header skipped",
			headers: []string{"favorite color", "email"},
			want:    ColumnMapping{"favorite color": "", "email": "email"},
		},
		{
			name:    "duplicate headers first wins",
			headers: []string{"Email", "email"},
			want:    ColumnMapping{"Email": "email", "email": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoMap(tt.headers, fields)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AutoMap(%v) = %v, want %v", tt.headers, got, tt.want)
			}
		})
	}
}

func TestAutoMap_Deterministic(t *testing.T) {
	fields := schema.Fields()
	headers := []string{"Name", "Email", "Company", "Phone", "Status", "Tags"}

	first := AutoMap(headers, fields)
	for i := 0; i < 10; i++ {
		if got := AutoMap(headers, fields); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, want %v", i, got, first)
		}
	}
}

func TestSetMapping(t *testing.T) {
	base := ColumnMapping{"colA": "email", "colB": "", "colC": "name"}

	t.Run("assign unmapped header", func(t *testing.T) {
		got := SetMapping(base, "colB", "phone")
		if got["colB"] != "phone" {
			t.Errorf("colB = %q, want %q", got["colB"], "phone")
		}
	})

	t.Run("reassigning target resets prior header", func(t *testing.T) {
		got := SetMapping(base, "colB", "email")
		if got["colB"] != "email" {
			t.Errorf("colB = %q, want %q", got["colB"], "email")
		}
		if got["colA"] != "" {
			t.Errorf("colA = %q, want empty (reassigned)", got["colA"])
		}
		if got["colC"] != "name" {
			t.Errorf("colC = %q, want unchanged %q", got["colC"], "name")
		}
	})

	t.Run("unassign header", func(t *testing.T) {
		got := SetMapping(base, "colA", "")
		if got["colA"] != "" {
			t.Errorf("colA = %q, want empty", got["colA"])
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		SetMapping(base, "colB", "email")
		if base["colA"] != "email" || base["colB"] != "" {
			t.Errorf("input mapping mutated: %v", base)
		}
	})
}

func TestValidateCompleteness(t *testing.T) {
	fields := schema.Fields()

	tests := []struct {
		name    string
		mapping ColumnMapping
		want    []string
	}{
		{
			name:    "all required mapped",
			mapping: ColumnMapping{"a": "name", "b": "email"},
			want:    nil,
		},
		{
			name:    "missing email",
			mapping: ColumnMapping{"a": "name", "b": "company"},
			want:    []string{`Required field "email" has no mapped column`},
		},
		{
			name:    "nothing mapped",
			mapping: ColumnMapping{"a": "", "b": ""},
			want: []string{
				`Required field "name" has no mapped column`,
				`Required field "email" has no mapped column`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCompleteness(tt.mapping, fields)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ValidateCompleteness() = %v, want %v", got, tt.want)
			}
		})
	}
}
