// Package csvparse splits uploaded CSV bytes into a header row and data rows.
package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	ErrDecode         = errors.New("content is not valid UTF-8")
	ErrMalformedInput = errors.New("malformed CSV content")
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Document is the parsed form of one CSV blob.
type Document struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// RowCount returns the number of data rows, header excluded.
func (d *Document) RowCount() int {
	return len(d.Rows)
}

// Parse decodes data as UTF-8 CSV. The first record becomes the header and the
// remaining records the data rows. Records keep their own field count.
// Lines may end in \n, \r\n or a lone \r. Stray quotes inside unquoted
// fields are kept as literal characters; a quoted field that is never closed
// is reported as malformed.
func Parse(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, ErrDecode
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	data, openQuoteLine := normalizeLineEndings(data)
	if openQuoteLine > 0 {
		return nil, fmt.Errorf("%w: line %d: quoted field is never closed", ErrMalformedInput, openQuoteLine)
	}

	doc := &Document{
		Headers: []string{},
		Rows:    [][]string{},
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("%w: line %d, column %d: %v", ErrMalformedInput, perr.Line, perr.Column, perr.Err)
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}

		if first {
			doc.Headers = record
			first = false
			continue
		}
		doc.Rows = append(doc.Rows, record)
	}

	return doc, nil
}

// normalizeLineEndings rewrites every lone \r outside a quoted field to \n so
// that classic Mac line endings split records. \r\n and quoted content are
// left alone. Quote handling follows csv.Reader with LazyQuotes: a quote only
// opens a field at its start, and inside a quoted field a quote closes it only
// when followed by a delimiter or line end. If the input ends inside a quoted
// field, the line where that field started is returned.
func normalizeLineEndings(data []byte) ([]byte, int) {
	if bytes.IndexByte(data, '\r') < 0 && bytes.IndexByte(data, '"') < 0 {
		return data, 0
	}

	var (
		out        []byte // copy-on-write, nil while unchanged
		line       = 1
		quoteLine  int
		inQuotes   bool
		fieldStart = true
	)
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\n' {
			line++
		}

		if inQuotes {
			if c == '\r' && (i+1 == len(data) || data[i+1] != '\n') {
				line++
			}
			if c != '"' {
				continue
			}
			if i+1 < len(data) && data[i+1] == '"' {
				i++
				continue
			}
			if i+1 == len(data) || isFieldEnd(data[i+1]) {
				inQuotes = false
				fieldStart = false
			}
			continue
		}

		switch c {
		case '"':
			if fieldStart {
				inQuotes = true
				quoteLine = line
			}
			fieldStart = false
		case ',', '\n':
			fieldStart = true
		case '\r':
			fieldStart = true
			if i+1 < len(data) && data[i+1] == '\n' {
				continue
			}
			line++
			if out == nil {
				out = append([]byte(nil), data...)
			}
			out[i] = '\n'
		default:
			fieldStart = false
		}
	}

	if inQuotes {
		return data, quoteLine
	}
	if out == nil {
		return data, 0
	}
	return out, 0
}

func isFieldEnd(c byte) bool {
	return c == ',' || c == '\n' || c == '\r'
}

// EncodeHeaders renders a header list as a single CSV record so it can live in
// one text column. An empty list encodes to "".
func EncodeHeaders(headers []string) string {
	if len(headers) == 0 {
		return ""
	}
	// A lone empty field would otherwise encode to "" and read back as no headers.
	if len(headers) == 1 && headers[0] == "" {
		return `""`
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// Writing to a strings.Builder cannot fail.
	_ = w.Write(headers)
	w.Flush()

	return strings.TrimSuffix(sb.String(), "\n")
}

// DecodeHeaders is the inverse of EncodeHeaders.
func DecodeHeaders(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}

	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	record, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("decoding headers: %w", err)
	}
	return record, nil
}
