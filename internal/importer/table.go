package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyFile     = errors.New("empty_file")
	ErrMissingColumn = errors.New("missing_column")
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Warning is a non-fatal problem with one input row.
type Warning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type table struct {
	encoding string
	columns  map[string]int
	rows     [][]string
	rowNums  []int
	warnings []Warning
}

// decode converts data to UTF-8, honoring byte order marks. Input that is
// not valid UTF-8 is read as Windows-1252, the admin center's legacy
// export encoding.
func decode(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "utf-8-bom", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, _, err := transform.Bytes(xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM).NewDecoder(), data)
		return out, "utf-16le", err
	case bytes.HasPrefix(data, bomUTF16BE):
		out, _, err := transform.Bytes(xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM).NewDecoder(), data)
		return out, "utf-16be", err
	case utf8.Valid(data):
		return data, "utf-8", nil
	default:
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		return out, "windows-1252", err
	}
}

// headerKey folds a header to lowercase letters and digits so that
// "User Principal Name", "userPrincipalName" and "user_principal_name"
// compare equal.
func headerKey(h string) string {
	h = norm.NFKC.String(h)
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func readTable(r io.Reader) (*table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyFile
	}

	data, enc, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", enc, err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}

	t := &table{encoding: enc, columns: map[string]int{}}
	for i, h := range headers {
		key := headerKey(h)
		if _, dup := t.columns[key]; key != "" && !dup {
			t.columns[key] = i
		}
	}

	rowNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			t.warnings = append(t.warnings, Warning{Row: rowNum, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}
		if blank(row) {
			continue
		}
		switch {
		case len(row) < len(headers):
			t.warnings = append(t.warnings, Warning{Row: rowNum, Message: fmt.Sprintf("expected %d columns, got %d; padded", len(headers), len(row))})
			row = append(row, make([]string, len(headers)-len(row))...)
		case len(row) > len(headers):
			t.warnings = append(t.warnings, Warning{Row: rowNum, Message: fmt.Sprintf("expected %d columns, got %d; truncated", len(headers), len(row))})
			row = row[:len(headers)]
		}
		t.rows = append(t.rows, row)
		t.rowNums = append(t.rowNums, rowNum)
	}
	return t, nil
}

// column returns the index of the first header matching any alias.
func (t *table) column(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if i, ok := t.columns[a]; ok {
			return i, true
		}
	}
	return -1, false
}

func (t *table) require(name string, aliases ...string) (int, error) {
	i, ok := t.column(aliases...)
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return i, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
