// Package mcpbridge is the MCP Bridge (C9): an optional secondary
// front-end that republishes workspace/symbol, textDocument/documentSymbol,
// and textDocument/hover as MCP tools for clients that prefer MCP over raw
// JSON-RPC-over-stdio (SPEC_FULL.md §2). It shares the Router's underlying
// Symbol Index/Parse Cache/Document Store instances with the LSP
// dispatcher rather than owning its own, so the two front-ends can run
// side by side without diverging state.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/char5742/groovy-lsp/internal/logging"
	"github.com/char5742/groovy-lsp/internal/router"
	"github.com/char5742/groovy-lsp/internal/version"
)

const component = "mcpbridge"

// Bridge wraps a Router as three MCP tools.
type Bridge struct {
	router *router.Router
	server *mcp.Server
}

// New builds a Bridge over r. The MCP server isn't started until Run.
func New(r *router.Router) *Bridge {
	b := &Bridge{router: r}
	b.server = mcp.NewServer(&mcp.Implementation{
		Name:    "groovy-lsp-mcp",
		Version: version.Version,
	}, nil)
	b.registerTools()
	return b
}

func (b *Bridge) registerTools() {
	b.server.AddTool(&mcp.Tool{
		Name:        "workspace_symbol",
		Description: "Search the workspace symbol index by name prefix (with fuzzy fallback).",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Name prefix to search for"},
			},
			Required: []string{"query"},
		},
	}, b.handleWorkspaceSymbol)

	b.server.AddTool(&mcp.Tool{
		Name:        "document_symbol",
		Description: "List every symbol declared in one open document.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri": {Type: "string", Description: "Document URI, as passed to textDocument/didOpen"},
			},
			Required: []string{"uri"},
		},
	}, b.handleDocumentSymbol)

	b.server.AddTool(&mcp.Tool{
		Name:        "hover",
		Description: "Get symbol identity/type information at a position in an open document.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":       {Type: "string", Description: "Document URI"},
				"line":      {Type: "integer", Description: "Zero-based line number"},
				"character": {Type: "integer", Description: "Zero-based UTF-16 column"},
			},
			Required: []string{"uri", "line", "character"},
		},
	}, b.handleHover)
}

// Run starts serving MCP tool calls over stdio until ctx is cancelled or
// the transport closes.
func (b *Bridge) Run(ctx context.Context) error {
	logging.Infof(component, "mcp bridge listening on stdio")
	return b.server.Run(ctx, &mcp.StdioTransport{})
}

type workspaceSymbolArgs struct {
	Query string `json:"query"`
}

func (b *Bridge) handleWorkspaceSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args workspaceSymbolArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError(fmt.Errorf("invalid arguments: %w", err))
	}
	params, _ := json.Marshal(map[string]string{"query": args.Query})
	result, werr := b.router.WorkspaceSymbol(ctx, params)
	if werr != nil {
		return toolError(fmt.Errorf("%s", werr.Message))
	}
	return jsonResult(result)
}

type documentSymbolArgs struct {
	URI string `json:"uri"`
}

func (b *Bridge) handleDocumentSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args documentSymbolArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError(fmt.Errorf("invalid arguments: %w", err))
	}
	params, _ := json.Marshal(map[string]interface{}{
		"textDocument": map[string]string{"uri": args.URI},
	})
	result, werr := b.router.DocumentSymbol(ctx, params)
	if werr != nil {
		return toolError(fmt.Errorf("%s", werr.Message))
	}
	return jsonResult(result)
}

type hoverArgs struct {
	URI       string `json:"uri"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

func (b *Bridge) handleHover(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args hoverArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError(fmt.Errorf("invalid arguments: %w", err))
	}
	params, _ := json.Marshal(map[string]interface{}{
		"textDocument": map[string]string{"uri": args.URI},
		"position":     map[string]int{"line": args.Line, "character": args.Character},
	})
	result, werr := b.router.Hover(ctx, params)
	if werr != nil {
		return toolError(fmt.Errorf("%s", werr.Message))
	}
	if result == nil {
		return jsonResult(map[string]string{"contents": "no symbol at that position"})
	}
	return jsonResult(result)
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(body)}}}, nil
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, nil
}
