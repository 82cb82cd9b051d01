package table

import (
	"bytes"
	"encoding/csv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readCSV decodes UTF-8 with or without a BOM, and UTF-16 when a BOM says so,
// which covers the CSV flavours spreadsheet tools export.
func readCSV(data []byte) ([][]string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(bytes.NewReader(data), decoder))
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}
