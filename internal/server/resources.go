package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pgmcp/pgmcp/internal/registry"
)

// registerCatalogResource exposes the full category/operation inventory
// as a read-only MCP resource, so hosts can show what pgmcp offers
// without spending a tool call.
func registerCatalogResource(srv *server.MCPServer, reg *registry.Registry) {
	res := mcp.NewResource(
		"pgmcp://catalog",
		"pgmcp Operation Catalogue",
		mcp.WithResourceDescription("All tool categories, their operations, and current load state"),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(res, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.MarshalIndent(reg.ListCategories(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling catalogue: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
