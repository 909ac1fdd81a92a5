package mcpbridge

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/groovy-lsp/internal/docstore"
	"github.com/char5742/groovy-lsp/internal/parsecache"
	"github.com/char5742/groovy-lsp/internal/router"
	"github.com/char5742/groovy-lsp/internal/symbolindex"
	"github.com/char5742/groovy-lsp/internal/types"
)

func newTestBridge(t *testing.T) (*Bridge, string) {
	t.Helper()
	dir := t.TempDir()
	si, err := symbolindex.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Close() })

	uri := "file://" + filepath.Join(dir, "A.groovy")
	require.NoError(t, si.PutFile(uri, []types.Symbol{
		{Name: "Widget", Kind: types.SymbolClass, File: uri, Line: 0, Column: 6},
	}))

	docs := docstore.New()
	require.NoError(t, docs.Open(types.URI(uri), 1, "class Widget {}\n"))

	pc := parsecache.New(parsecache.NewTreeSitterParser(), 16)
	r := router.New(docs, pc, si, nil)
	return New(r), uri
}

func callToolRequest(t *testing.T, args any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func TestHandleWorkspaceSymbolReturnsMatch(t *testing.T) {
	b, _ := newTestBridge(t)

	res, err := b.handleWorkspaceSymbol(context.Background(), callToolRequest(t, workspaceSymbolArgs{Query: "Widg"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := res.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, "Widget")
}

func TestHandleDocumentSymbolReturnsSymbol(t *testing.T) {
	b, uri := newTestBridge(t)

	res, err := b.handleDocumentSymbol(context.Background(), callToolRequest(t, documentSymbolArgs{URI: uri}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := res.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, "Widget")
}

func TestHandleHoverInvalidArgumentsReportsToolError(t *testing.T) {
	b, _ := newTestBridge(t)

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`not json`)}}
	res, err := b.handleHover(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
