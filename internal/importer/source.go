package importer

// source.go turns an uploaded byte stream into headers and raw rows.
//
// The boundary is strict: only CSV content is accepted, the byte stream is
// bounded by a configurable ceiling, and all values past this point are
// plain strings. Type coercion happens in the validator, never here.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultMaxSourceBytes is the default size ceiling for uploaded files (5 MiB).
const DefaultMaxSourceBytes int64 = 5 * 1024 * 1024

// SourceOptions configures source parsing.
type SourceOptions struct {
	// MaxBytes is the size ceiling; 0 means DefaultMaxSourceBytes.
	MaxBytes int64
	// Encoding is the declared source encoding: "" / "utf-8", or
	// "windows-1251" for legacy exports.
	Encoding string
}

// Source is a fully parsed tabular input: the header row plus every data
// row, in file order, with 1-indexed row numbers.
type Source struct {
	FileName string
	Headers  []string
	Rows     []RawRow
}

// ParseSource parses an uploaded file into a Source.
//
// It rejects anything that is not .csv or text/csv before parsing, enforces
// the size ceiling, and returns ErrEmptySource when no data rows remain
// after the header. Empty rows are skipped; short rows read as empty cells.
func ParseSource(fileName, contentType string, data []byte, opts SourceOptions) (*Source, error) {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrSourceTooLarge, len(data), maxBytes)
	}

	if !isCSVSource(fileName, contentType) {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedFormat, contentType)
	}

	decoded, err := decodeSource(data, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	decoded = sanitizeUTF8(decoded)

	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	// Header is the first non-empty record.
	headerAt := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptySource
	}

	headers := make([]string, 0, len(records[headerAt]))
	for _, h := range records[headerAt] {
		headers = append(headers, CleanCell(h))
	}

	src := &Source{FileName: fileName, Headers: headers}
	for _, rec := range records[headerAt+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := RawRow{
			Index:  len(src.Rows) + 1,
			Values: make(map[string]string, len(headers)),
		}
		for i, h := range headers {
			if i < len(rec) {
				row.Values[h] = CleanCell(rec[i])
			} else {
				row.Values[h] = ""
			}
		}
		src.Rows = append(src.Rows, row)
	}

	if len(src.Rows) == 0 {
		return nil, ErrEmptySource
	}
	return src, nil
}

// isCSVSource checks the declared file name and content type.
// Multipart uploads often carry a generic content type, so a .csv extension
// is accepted on its own.
func isCSVSource(fileName, contentType string) bool {
	if strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "text/csv"
}

// decodeSource converts legacy encodings to UTF-8.
func decodeSource(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return data, nil
	case "windows-1251":
		decoder := charmap.Windows1251.NewDecoder()
		out, err := io.ReadAll(decoder.Reader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("decode windows-1251: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune so
// the CSV reader never chokes on malformed input.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace and the UTF-8 BOM
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
