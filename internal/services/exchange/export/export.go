// Package export renders completed draws for delivery.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
	"github.com/louisbranch/secretsanta/internal/services/exchange/roster"
)

// Record is the delivered form of one pairing.
type Record struct {
	EmployeeName     string `json:"Employee_Name" yaml:"Employee_Name"`
	EmployeeEmail    string `json:"Employee_EmailID" yaml:"Employee_EmailID"`
	SecretChildName  string `json:"Secret_Child_Name" yaml:"Secret_Child_Name"`
	SecretChildEmail string `json:"Secret_Child_EmailID" yaml:"Secret_Child_EmailID"`
}

// Records converts participants into records in roster order.
func Records(participants []*domain.Participant) []Record {
	out := make([]Record, 0, len(participants))
	for _, p := range participants {
		if p == nil {
			continue
		}
		r := Record{EmployeeName: p.Name, EmployeeEmail: p.Email}
		if p.Recipient != nil {
			r.SecretChildName = p.Recipient.Name
			r.SecretChildEmail = p.Recipient.Email
		}
		out = append(out, r)
	}
	return out
}

// Format names an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted output encodings.
var Formats = []Format{FormatJSON, FormatYAML, FormatCSV, FormatTable, FormatMarkdown}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", value)
}

// Write renders records in format f.
func Write(w io.Writer, f Format, records []Record) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatYAML:
		return WriteYAML(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatTable:
		return WriteTable(w, records, false)
	case FormatMarkdown:
		return WriteTable(w, records, true)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(w io.Writer, records []Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

var recordHeader = []string{
	roster.ColumnEmployeeName,
	roster.ColumnEmployeeEmail,
	roster.ColumnSecretChildName,
	roster.ColumnSecretChildEmail,
}

// WriteCSV writes records with the four delivery columns.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.EmployeeName, r.EmployeeEmail, r.SecretChildName, r.SecretChildEmail}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes the giver/recipient pairs in the layout accepted as
// next year's previous assignments.
func WriteHistoryCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{roster.ColumnEmployeeName, roster.ColumnSecretChildName}); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.EmployeeName, r.SecretChildName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes records as a terminal table, or a Markdown table when
// markdown is set.
func WriteTable(w io.Writer, records []Record, markdown bool) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	header := make(table.Row, len(recordHeader))
	for i, col := range recordHeader {
		header[i] = col
	}
	tw.AppendHeader(header)
	for _, r := range records {
		tw.AppendRow(table.Row{r.EmployeeName, r.EmployeeEmail, r.SecretChildName, r.SecretChildEmail})
	}

	out := tw.Render()
	if markdown {
		out = tw.RenderMarkdown()
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
