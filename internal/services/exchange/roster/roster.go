// Package roster turns uploaded tables into participants and assignment history.
package roster

import (
	"fmt"

	"github.com/louisbranch/secretsanta/internal/platform/id"
	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
	"github.com/louisbranch/secretsanta/internal/services/exchange/table"
)

// Column names expected in the uploaded sheets.
const (
	ColumnEmployeeName     = "Employee_Name"
	ColumnEmployeeEmail    = "Employee_EmailID"
	ColumnSecretChildName  = "Secret_Child_Name"
	ColumnSecretChildEmail = "Secret_Child_EmailID"
)

// Source names used in parser error messages.
const (
	SourceRoster  = "employee roster"
	SourceHistory = "previous assignments"
)

// IDFunc generates participant identifiers.
type IDFunc func() (string, error)

// ParseRoster returns one participant per row, in row order. Names and
// emails are kept exactly as written.
func ParseRoster(t *table.Table) ([]*domain.Participant, error) {
	return ParseRosterWithIDs(t, id.NewID)
}

// ParseRosterWithIDs is ParseRoster with an explicit identifier source.
func ParseRosterWithIDs(t *table.Table, newID IDFunc) ([]*domain.Participant, error) {
	if t == nil {
		return nil, fmt.Errorf("%s: table is required", SourceRoster)
	}
	cols, err := t.Require(SourceRoster, ColumnEmployeeName, ColumnEmployeeEmail)
	if err != nil {
		return nil, err
	}
	nameCol, emailCol := cols[0], cols[1]

	participants := make([]*domain.Participant, 0, len(t.Rows))
	for _, row := range t.Rows {
		pid, err := newID()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", SourceRoster, err)
		}
		participants = append(participants, domain.NewParticipant(
			pid,
			table.Cell(row, nameCol),
			table.Cell(row, emailCol),
		))
	}
	return participants, nil
}

// ParseHistory returns every giver's previous recipients. An empty table with
// the required header yields an empty index.
func ParseHistory(t *table.Table) (domain.HistoryIndex, error) {
	if t == nil {
		return nil, fmt.Errorf("%s: table is required", SourceHistory)
	}
	cols, err := t.Require(SourceHistory, ColumnEmployeeName, ColumnSecretChildName)
	if err != nil {
		return nil, err
	}
	giverCol, recipientCol := cols[0], cols[1]

	history := domain.NewHistoryIndex()
	for _, row := range t.Rows {
		history.Add(table.Cell(row, giverCol), table.Cell(row, recipientCol))
	}
	return history, nil
}
