package mcptools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/secretsanta/internal/services/exchange/service"
)

const serverName = "secretsanta"

// NewServer builds an MCP server with the draw tools registered.
func NewServer(svc *service.Service, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	mcp.AddTool(server, AssignTool(), AssignHandler(svc))
	if svc.Persistent() {
		mcp.AddTool(server, GetDrawTool(), GetDrawHandler(svc))
	}
	return server
}

// Serve runs server over transport until the client disconnects or ctx ends.
func Serve(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	if server == nil {
		return errors.New("mcp server is required")
	}
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	return server.Run(ctx, transport)
}
