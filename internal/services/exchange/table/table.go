// Package table reads uploaded spreadsheets into header-addressed row sets.
//
// XLSX workbooks are recognised by their zip signature and read from the
// first sheet; everything else is parsed as CSV. Cell values are passed
// through verbatim.
package table

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/louisbranch/secretsanta/internal/platform/errors"
	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
)

var (
	zipMagic = []byte("PK\x03\x04")
	// Legacy binary workbooks (.xls) are OLE compound files.
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Source is one named tabular input.
type Source struct {
	Name   string
	Reader io.Reader
}

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// FromRecords builds a table from in-memory records, dropping blank rows.
func FromRecords(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		if !blank(row) {
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// Read parses src as XLSX or CSV.
func Read(src Source) (*Table, error) {
	if src.Reader == nil {
		return nil, malformed(src.Name, "no content", nil)
	}
	data, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, malformed(src.Name, "read", err)
	}

	var records [][]string
	switch {
	case bytes.HasPrefix(data, zipMagic):
		records, err = readXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		return nil, malformed(src.Name, "legacy .xls workbooks are not supported, save as .xlsx or .csv", nil)
	default:
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, malformed(src.Name, "parse", err)
	}

	for len(records) > 0 && blank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return FromRecords(records[0], records[1:]), nil
}

// Column returns the index of the header named name. Matching is exact and case-sensitive.
func (t *Table) Column(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Require returns the column indexes for names, in order, or an error
// wrapping domain.ErrMalformedInput that lists every missing column.
func (t *Table) Require(source string, names ...string) ([]int, error) {
	indexes := make([]int, len(names))
	var missing []string
	for i, name := range names {
		idx, ok := t.Column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		indexes[i] = idx
	}
	if len(missing) > 0 {
		return nil, malformed(source, "missing required column(s) "+strings.Join(missing, ", "), nil)
	}
	return indexes, nil
}

// Cell returns row[col], or "" when the row is shorter than col.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func blank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func malformed(source, message string, cause error) error {
	if source != "" {
		message = fmt.Sprintf("%s: %s", source, message)
	}
	if cause == nil {
		cause = domain.ErrMalformedInput
	}
	return apperrors.Wrap(apperrors.CodeMalformedInput, message, cause)
}
