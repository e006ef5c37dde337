package importer

import (
	"strings"
	"testing"

	"github.com/nexcrm/importer/internal/schema"
)

// A file produced from the template must survive the whole pipeline: it
// parses, every column auto-maps, and the sample row validates cleanly.
func TestTemplateCSV_RoundTrip(t *testing.T) {
	fields := schema.Fields()
	data := TemplateCSV(fields)

	src, err := ParseSource("import_template.csv", "text/csv", data, SourceOptions{})
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if len(src.Headers) != len(fields) {
		t.Fatalf("template has %d columns, want %d", len(src.Headers), len(fields))
	}

	mapping := AutoMap(src.Headers, fields)
	for header, key := range mapping {
		if key == "" {
			t.Errorf("template column %q did not auto-map", header)
		}
	}

	records := ValidateRows(src.Rows, mapping, fields)
	for _, rec := range records {
		if !rec.IsValid {
			t.Errorf("template row %d invalid: %v", rec.RowIndex, rec.Errors)
		}
	}
}

func TestErrorReportCSV(t *testing.T) {
	snap := Snapshot{
		Records: []ValidatedRecord{
			{
				RowIndex: 1,
				Fields:   map[string]any{"name": "Ada", "email": "ada@example.com"},
				IsValid:  true,
			},
			{
				RowIndex: 2,
				Fields:   map[string]any{"name": "Grace"},
				Errors:   []string{"Email is required"},
			},
		},
		Outcomes: []SubmissionOutcome{
			{RowIndex: 1, Success: false, Error: "duplicate email"},
		},
	}

	report := string(ErrorReportCSV(snap))
	lines := strings.Split(strings.TrimSpace(report), "\n")

	if len(lines) != 3 {
		t.Fatalf("report has %d lines, want header + 2 failures:\n%s", len(lines), report)
	}
	if lines[0] != "row,error,name,email" {
		t.Errorf("header = %q, want %q", lines[0], "row,error,name,email")
	}
	// Validation failures come before submission failures.
	if !strings.HasPrefix(lines[1], "2,Email is required,Grace,") {
		t.Errorf("line 1 = %q, want validation failure for row 2", lines[1])
	}
	if !strings.HasPrefix(lines[2], "1,duplicate email,Ada,ada@example.com") {
		t.Errorf("line 2 = %q, want submission failure for row 1", lines[2])
	}
}

func TestErrorReportCSV_NoFailures(t *testing.T) {
	snap := Snapshot{
		Records:  []ValidatedRecord{{RowIndex: 1, IsValid: true}},
		Outcomes: []SubmissionOutcome{{RowIndex: 1, Success: true}},
	}

	report := string(ErrorReportCSV(snap))
	lines := strings.Split(strings.TrimSpace(report), "\n")

	if len(lines) != 1 {
		t.Errorf("report has %d lines, want header only:\n%s", len(lines), report)
	}
}
