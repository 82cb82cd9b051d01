// Package mcptools exposes secret-santa draws as MCP tools.
package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/louisbranch/secretsanta/internal/platform/errors"
	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
	"github.com/louisbranch/secretsanta/internal/services/exchange/export"
	"github.com/louisbranch/secretsanta/internal/services/exchange/roster"
	"github.com/louisbranch/secretsanta/internal/services/exchange/service"
	"github.com/louisbranch/secretsanta/internal/services/exchange/table"
)

// EmployeeInput is one roster entry.
type EmployeeInput struct {
	Name  string `json:"name" jsonschema:"employee name"`
	Email string `json:"email" jsonschema:"employee email address"`
}

// PreviousInput is one prior-year assignment.
type PreviousInput struct {
	EmployeeName    string `json:"employee_name" jsonschema:"giver name"`
	SecretChildName string `json:"secret_child_name" jsonschema:"name the giver was assigned before"`
}

// AssignInput represents the MCP tool input for drawing assignments.
type AssignInput struct {
	Employees []EmployeeInput `json:"employees" jsonschema:"participants in roster order"`
	Previous  []PreviousInput `json:"previous,omitempty" jsonschema:"prior assignments to avoid repeating"`
	Seed      *int64          `json:"seed,omitempty" jsonschema:"optional seed to replay a draw"`
}

// DrawResult represents the MCP tool output for a completed draw.
type DrawResult struct {
	DrawID      string          `json:"draw_id" jsonschema:"draw identifier"`
	Seed        int64           `json:"seed" jsonschema:"seed that reproduces this draw"`
	Attempts    int             `json:"attempts" jsonschema:"engine runs needed"`
	CreatedAt   string          `json:"created_at" jsonschema:"RFC3339 timestamp when the draw completed"`
	Assignments []export.Record `json:"assignments" jsonschema:"giver and secret child pairs in roster order"`
}

// GetDrawInput represents the MCP tool input for loading a stored draw.
type GetDrawInput struct {
	DrawID string `json:"draw_id" jsonschema:"draw identifier"`
}

// AssignTool defines the MCP tool schema for drawing assignments.
func AssignTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "assign_secret_children",
		Description: "Assigns every employee a secret child, never themselves and avoiding previous assignments where possible. Every employee entry needs a name or an email.",
	}
}

// AssignHandler executes a draw over the supplied roster.
func AssignHandler(svc *service.Service) mcp.ToolHandlerFor[AssignInput, DrawResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AssignInput) (*mcp.CallToolResult, DrawResult, error) {
		rosterRows := make([][]string, 0, len(input.Employees))
		for i, e := range input.Employees {
			if e.Name == "" && e.Email == "" {
				return nil, DrawResult{}, apperrors.Wrap(apperrors.CodeMalformedInput,
					fmt.Sprintf("employees[%d] has neither name nor email", i), domain.ErrMalformedInput)
			}
			rosterRows = append(rosterRows, []string{e.Name, e.Email})
		}
		participants, err := roster.ParseRoster(table.FromRecords(
			[]string{roster.ColumnEmployeeName, roster.ColumnEmployeeEmail}, rosterRows,
		))
		if err != nil {
			return nil, DrawResult{}, err
		}

		historyRows := make([][]string, 0, len(input.Previous))
		for _, p := range input.Previous {
			historyRows = append(historyRows, []string{p.EmployeeName, p.SecretChildName})
		}
		history, err := roster.ParseHistory(table.FromRecords(
			[]string{roster.ColumnEmployeeName, roster.ColumnSecretChildName}, historyRows,
		))
		if err != nil {
			return nil, DrawResult{}, err
		}

		drawn, err := svc.Draw(ctx, service.Request{Roster: participants, History: history, Seed: input.Seed})
		if err != nil {
			return nil, DrawResult{}, fmt.Errorf("assign secret children: %w", err)
		}
		return nil, drawResult(drawn), nil
	}
}

// GetDrawTool defines the MCP tool schema for loading a stored draw.
func GetDrawTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_draw",
		Description: "Returns a previously completed draw by id.",
	}
}

// GetDrawHandler loads a stored draw.
func GetDrawHandler(svc *service.Service) mcp.ToolHandlerFor[GetDrawInput, DrawResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetDrawInput) (*mcp.CallToolResult, DrawResult, error) {
		drawn, err := svc.GetDraw(ctx, input.DrawID)
		if err != nil {
			return nil, DrawResult{}, fmt.Errorf("get draw %q: %w", input.DrawID, err)
		}
		return nil, drawResult(drawn), nil
	}
}

func drawResult(d service.Draw) DrawResult {
	return DrawResult{
		DrawID:      d.ID,
		Seed:        d.Seed,
		Attempts:    d.Attempts,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
		Assignments: export.Records(d.Participants),
	}
}
