package services

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Column order of an import file.
const (
	colTitle = iota
	colType
	colValue
	colCategory
)

// importRow is one data row of an import file, cells already trimmed.
type importRow struct {
	Line     int
	Title    string
	Type     string
	Value    string
	Category string
}

// readImportRows streams r record by record, skipping the header, and calls
// fn for every data row. Short rows are padded with empty cells. A quoting
// error aborts the read.
func readImportRows(r io.Reader, fn func(importRow) error) error {
	cr := csv.NewReader(newQuoteTrimReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading import CSV: %w", err)
		}

		if header {
			header = false
			continue
		}

		line, _ := cr.FieldPos(0)
		row := importRow{
			Line:     line,
			Title:    cell(record, colTitle),
			Type:     cell(record, colType),
			Value:    cell(record, colValue),
			Category: cell(record, colCategory),
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

var errUnterminatedQuote = fmt.Errorf("unterminated quoted field: %w", csv.ErrQuote)

// quoteTrimReader drops blanks between a closing quote and the delimiter or
// line end that follows it, so `"a, b" ,x` reads as two fields. Anything
// else after a closing quote is passed through for csv.Reader to reject.
type quoteTrimReader struct {
	r          *bufio.Reader
	inQuotes   bool
	fieldStart bool
	pending    []byte
}

func newQuoteTrimReader(r io.Reader) *quoteTrimReader {
	return &quoteTrimReader{r: bufio.NewReader(r), fieldStart: true}
}

func (q *quoteTrimReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(q.pending) > 0 {
			c := copy(p[n:], q.pending)
			q.pending = q.pending[c:]
			n += c
			continue
		}
		if n > 0 && q.r.Buffered() == 0 {
			break
		}

		b, err := q.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			if errors.Is(err, io.EOF) && q.inQuotes {
				err = errUnterminatedQuote
			}
			return 0, err
		}
		if q.pending, err = q.step(b); err != nil {
			return n, err
		}
	}
	return n, nil
}

// step consumes b, plus any lookahead it needs, and returns the bytes to emit.
func (q *quoteTrimReader) step(b byte) ([]byte, error) {
	if !q.inQuotes {
		switch b {
		case '"':
			if q.fieldStart {
				q.inQuotes = true
			}
			q.fieldStart = false
		case ',', '\n':
			q.fieldStart = true
		case ' ', '\t', '\r':
		default:
			q.fieldStart = false
		}
		return []byte{b}, nil
	}

	if b != '"' {
		return []byte{b}, nil
	}

	// Escaped quote inside a quoted field
	if next, err := q.r.Peek(1); err == nil && next[0] == '"' {
		_, _ = q.r.ReadByte()
		return []byte{'"', '"'}, nil
	}

	q.inQuotes = false
	out := []byte{'"'}
	var blanks []byte
	for {
		next, err := q.r.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		c := next[0]
		switch c {
		case ' ', '\t':
			_, _ = q.r.ReadByte()
			blanks = append(blanks, c)
		case ',', '\n', '\r':
			return out, nil
		default:
			return append(out, blanks...), nil
		}
	}
}
