package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSource(t *testing.T) {
	csvBody := "name,email\nAda,ada@example.com\nGrace,grace@example.com\n"

	t.Run("happy path", func(t *testing.T) {
		src, err := ParseSource("contacts.csv", "text/csv", []byte(csvBody), SourceOptions{})
		if err != nil {
			t.Fatalf("ParseSource failed: %v", err)
		}
		if got, want := src.Headers, []string{"name", "email"}; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("Headers = %v, want %v", got, want)
		}
		if len(src.Rows) != 2 {
			t.Fatalf("len(Rows) = %d, want 2", len(src.Rows))
		}
		if src.Rows[0].Index != 1 || src.Rows[1].Index != 2 {
			t.Errorf("row indexes = [%d %d], want [1 2]", src.Rows[0].Index, src.Rows[1].Index)
		}
		if got := src.Rows[0].Values["email"]; got != "ada@example.com" {
			t.Errorf("row 1 email = %q, want %q", got, "ada@example.com")
		}
	})

	t.Run("generic content type with csv extension", func(t *testing.T) {
		if _, err := ParseSource("contacts.csv", "application/octet-stream", []byte(csvBody), SourceOptions{}); err != nil {
			t.Errorf("ParseSource failed: %v", err)
		}
	})

	t.Run("content type with charset parameter", func(t *testing.T) {
		if _, err := ParseSource("upload", "text/csv; charset=utf-8", []byte(csvBody), SourceOptions{}); err != nil {
			t.Errorf("ParseSource failed: %v", err)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := ParseSource("report.xlsx", "application/vnd.ms-excel", []byte(csvBody), SourceOptions{})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("err = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ParseSource("empty.csv", "text/csv", nil, SourceOptions{})
		if !errors.Is(err, ErrEmptySource) {
			t.Errorf("err = %v, want ErrEmptySource", err)
		}
	})

	t.Run("header only", func(t *testing.T) {
		_, err := ParseSource("header.csv", "text/csv", []byte("name,email\n"), SourceOptions{})
		if !errors.Is(err, ErrEmptySource) {
			t.Errorf("err = %v, want ErrEmptySource", err)
		}
	})

	t.Run("whitespace-only rows are empty", func(t *testing.T) {
		_, err := ParseSource("blank.csv", "text/csv", []byte("name,email\n , \n,\n"), SourceOptions{})
		if !errors.Is(err, ErrEmptySource) {
			t.Errorf("err = %v, want ErrEmptySource", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := ParseSource("big.csv", "text/csv", []byte(csvBody), SourceOptions{MaxBytes: 10})
		if !errors.Is(err, ErrSourceTooLarge) {
			t.Errorf("err = %v, want ErrSourceTooLarge", err)
		}
	})

	t.Run("short rows pad with empty cells", func(t *testing.T) {
		src, err := ParseSource("short.csv", "text/csv", []byte("name,email,phone\nAda,ada@example.com\n"), SourceOptions{})
		if err != nil {
			t.Fatalf("ParseSource failed: %v", err)
		}
		if got := src.Rows[0].Values["phone"]; got != "" {
			t.Errorf("phone = %q, want empty", got)
		}
	})

	t.Run("empty rows between data are skipped", func(t *testing.T) {
		src, err := ParseSource("gaps.csv", "text/csv", []byte("name,email\nAda,a@b.com\n,\nGrace,g@h.com\n"), SourceOptions{})
		if err != nil {
			t.Fatalf("ParseSource failed: %v", err)
		}
		if len(src.Rows) != 2 {
			t.Fatalf("len(Rows) = %d, want 2", len(src.Rows))
		}
		if src.Rows[1].Index != 2 {
			t.Errorf("second row index = %d, want 2", src.Rows[1].Index)
		}
	})

	t.Run("leading blank lines before header", func(t *testing.T) {
		src, err := ParseSource("lead.csv", "text/csv", []byte("\n\nname,email\nAda,a@b.com\n"), SourceOptions{})
		if err != nil {
			t.Fatalf("ParseSource failed: %v", err)
		}
		if src.Headers[0] != "name" {
			t.Errorf("Headers[0] = %q, want %q", src.Headers[0], "name")
		}
	})

	t.Run("windows-1251 decoding", func(t *testing.T) {
		// 0xC8 0xEC 0xFF is "Имя" in windows-1251
		data := append([]byte("name,email\n"), 0xC8, 0xEC, 0xFF)
		data = append(data, []byte(",i@example.com\n")...)
		src, err := ParseSource("legacy.csv", "text/csv", data, SourceOptions{Encoding: "windows-1251"})
		if err != nil {
			t.Fatalf("ParseSource failed: %v", err)
		}
		if got := src.Rows[0].Values["name"]; got != "Имя" {
			t.Errorf("name = %q, want %q", got, "Имя")
		}
	})

	t.Run("unknown encoding rejected", func(t *testing.T) {
		_, err := ParseSource("x.csv", "text/csv", []byte(csvBody), SourceOptions{Encoding: "ebcdic"})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("err = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("invalid utf-8 bytes are replaced not fatal", func(t *testing.T) {
		data := []byte("name,email\nAd\xffa,a@b.com\n")
		src, err := ParseSource("bad.csv", "text/csv", data, SourceOptions{})
		if err != nil {
			t.Fatalf("ParseSource failed: %v", err)
		}
		if got := src.Rows[0].Values["name"]; !strings.Contains(got, "Ad") {
			t.Errorf("name = %q, want it to retain valid bytes", got)
		}
	})
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain value", input: "Ada", want: "Ada"},
		{name: "surrounding whitespace", input: "  Ada  ", want: "Ada"},
		{name: "utf-8 BOM", input: "\uFEFFname", want: "name"},
		{name: "excel formula wrapper", input: `="00123"`, want: "00123"},
		{name: "bare equals prefix", input: "=SUM", want: "SUM"},
		{name: "surrounding double quotes", input: `"Ada"`, want: "Ada"},
		{name: "surrounding single quotes", input: "'Ada'", want: "Ada"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
