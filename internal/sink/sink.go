// Package sink provides implementations of the record-persistence
// collaborator that the import pipeline submits batches to. The pipeline
// itself depends only on the importer.Sink interface; this package supplies
// an HTTP client for a remote record service and a Postgres-backed sink.
package sink

import "github.com/nexcrm/importer/internal/importer"

// wireRecord is the JSON shape of one record in a batch request.
type wireRecord struct {
	Row    int            `json:"row"`
	Fields map[string]any `json:"fields"`
}

// batchRequest is the JSON body of one batch submission.
type batchRequest struct {
	Records []wireRecord `json:"records"`
}

func toWire(records []importer.ValidatedRecord) batchRequest {
	req := batchRequest{Records: make([]wireRecord, len(records))}
	for i, r := range records {
		req.Records[i] = wireRecord{Row: r.RowIndex, Fields: r.Fields}
	}
	return req
}
