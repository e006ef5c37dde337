package importer

// template.go renders the two read-only export surfaces: the downloadable
// import template and the post-import error report. Both are plain CSV and
// neither touches session state.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/nexcrm/importer/internal/schema"
)

// TemplateCSV renders a starter file for the target schema: one header per
// target field label plus sample rows. A file produced from this template
// auto-maps cleanly and every sample row validates.
func TemplateCSV(fields []schema.TargetField) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(fields))
	sample := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Label
		sample[i] = f.Sample
	}

	w.Write(header)
	w.Write(sample)
	w.Flush()
	return buf.Bytes()
}

// ErrorReportCSV renders the per-row failure report for a completed
// session: validation failures first, then submission failures, each with
// the row number, the error, and the identifying fields of the row.
func ErrorReportCSV(snap Snapshot) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"row", "error", "name", "email"})

	recordsByRow := make(map[int]ValidatedRecord, len(snap.Records))
	for _, r := range snap.Records {
		recordsByRow[r.RowIndex] = r
	}

	for _, r := range snap.Records {
		if r.IsValid {
			continue
		}
		for _, msg := range r.Errors {
			w.Write([]string{strconv.Itoa(r.RowIndex), msg, identify(r, "name"), identify(r, "email")})
		}
	}

	for _, o := range snap.Outcomes {
		if o.Success {
			continue
		}
		r := recordsByRow[o.RowIndex]
		w.Write([]string{strconv.Itoa(o.RowIndex), o.Error, identify(r, "name"), identify(r, "email")})
	}

	w.Flush()
	return buf.Bytes()
}

// identify renders one typed field value for the report, or "" if absent.
func identify(r ValidatedRecord, key string) string {
	v, ok := r.Fields[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
