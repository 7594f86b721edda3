package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pgmcp/pgmcp/internal/catalog"
	"github.com/pgmcp/pgmcp/internal/registry"
	"github.com/pgmcp/pgmcp/internal/shape"
)

// bridge exposes the registry facade over MCP. Two meta-tools are
// always present: list_categories and load_category. Operation tools
// appear dynamically: loading a category registers each newly invocable
// operation on the MCP server, which notifies clients that the tool
// list changed.
type bridge struct {
	srv    *server.MCPServer
	reg    *registry.Registry
	cat    *catalog.Catalog
	logger *slog.Logger
}

func newBridge(srv *server.MCPServer, reg *registry.Registry, cat *catalog.Catalog, logger *slog.Logger) *bridge {
	return &bridge{srv: srv, reg: reg, cat: cat, logger: logger}
}

// register adds the meta-tools and any operations that are already
// registered (essential and preloaded categories).
func (b *bridge) register() {
	b.srv.AddTool(listCategoriesTool(), b.handleListCategories)
	b.srv.AddTool(loadCategoryTool(), b.handleLoadCategory)

	for _, info := range b.reg.ListCategories() {
		if info.Loaded {
			b.exposeOperations(info.Operations)
		}
	}
}

func listCategoriesTool() mcp.Tool {
	return mcp.NewTool("list_categories",
		mcp.WithDescription(
			"List every tool category with its operations and whether it is loaded. "+
				"Unloaded operations become invocable after load_category.",
		),
	)
}

func (b *bridge) handleListCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env := shape.Envelope{Status: shape.StatusOK, Payload: b.reg.ListCategories()}
	return envelopeResult(env), nil
}

func loadCategoryTool() mcp.Tool {
	return mcp.NewTool("load_category",
		mcp.WithDescription(
			"Load a tool category, making its operations invocable. "+
				"Loading an already-loaded category is a harmless no-op.",
		),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Name of the category to load (see list_categories)."),
		),
	)
}

func (b *bridge) handleLoadCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("category", "")

	res, err := b.reg.LoadCategory(name)
	if err != nil {
		var kind = registry.KindUnknownCategory
		if derr, ok := err.(*registry.Error); ok {
			kind = derr.Kind
		}
		return envelopeResult(shape.ShapeError(kind, err.Error())), nil
	}

	b.exposeOperations(res.NewlyRegistered)

	return envelopeResult(shape.Envelope{Status: shape.StatusOK, Payload: res}), nil
}

// exposeOperations adds one MCP tool per operation name. Callers only
// pass names the registry reported as newly registered, so a tool is
// never added twice.
func (b *bridge) exposeOperations(names []string) {
	for _, name := range names {
		op, err := b.cat.Operation(name)
		if err != nil {
			b.logger.Warn("skipping unknown operation", "operation", name)
			continue
		}
		tool := mcp.NewToolWithRawSchema(op.Name, op.Description, op.InputSchemaJSON())

		opName := op.Name
		b.srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			env := b.reg.Invoke(ctx, opName, req.GetArguments())
			return envelopeResult(env), nil
		})
	}
}

// envelopeResult renders an envelope as a JSON tool result. Error
// envelopes become MCP error results so clients see the failure flag
// without parsing the payload.
func envelopeResult(env shape.Envelope) *mcp.CallToolResult {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encoding response envelope: " + err.Error())
	}
	if env.Status == shape.StatusError {
		return mcp.NewToolResultError(string(data))
	}
	return mcp.NewToolResultText(string(data))
}
