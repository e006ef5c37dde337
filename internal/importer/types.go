// Package importer provides the business logic for mapping, validating and
// submitting user-supplied tabular data against the fixed target schema.
// This package has no HTTP dependencies and can be driven by any frontend.
package importer

import "context"

// RawRow is one parsed source row: source column name -> raw string value.
// Column order is carried separately by the session's header list.
type RawRow struct {
	// Index is the 1-based logical row number in the source file,
	// retained for error reporting.
	Index  int
	Values map[string]string
}

// ColumnMapping maps a source column name to a target field key.
// An empty key means "skip this column".
type ColumnMapping map[string]string

// ValidatedRecord is the result of validating one RawRow against the
// current mapping. Immutable once created.
type ValidatedRecord struct {
	RowIndex int
	Fields   map[string]any // target key -> typed value
	Errors   []string
	IsValid  bool
}

// SubmissionOutcome is the per-record result of batch submission.
type SubmissionOutcome struct {
	RowIndex int    `json:"row"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Progress tracks running submission totals for a session.
type Progress struct {
	Processed  int `json:"processed"`
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchError is a downstream-reported failure message for one record.
// Row, when non-zero, echoes the stable row index of the failed record;
// sinks that echo it make error attribution exact instead of positional.
type BatchError struct {
	Row     int    `json:"row,omitempty"`
	Message string `json:"message"`
}

// BatchResult is the downstream service's response to one submitted batch.
type BatchResult struct {
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Errors     []BatchError `json:"errors,omitempty"`
}

// Sink accepts one batch of valid records and reports per-record outcomes.
// Implementations live in internal/sink; a transport-level failure is
// returned as an error and fails the whole batch.
type Sink interface {
	SubmitBatch(ctx context.Context, records []ValidatedRecord) (BatchResult, error)
}
