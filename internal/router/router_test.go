package router

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/groovy-lsp/internal/docstore"
	"github.com/char5742/groovy-lsp/internal/parsecache"
	"github.com/char5742/groovy-lsp/internal/symbolindex"
	"github.com/char5742/groovy-lsp/internal/types"
)

const sampleSource = `package com.example;
class Greeter {
  def greet() {
  }
}
`

func newTestRouter(t *testing.T) (*Router, *docstore.Store, *symbolindex.Index, string) {
	t.Helper()
	dir := t.TempDir()
	si, err := symbolindex.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Close() })

	uri := "file://" + filepath.Join(dir, "Greeter.groovy")
	require.NoError(t, si.PutFile(uri, []types.Symbol{
		{Name: "Greeter", Kind: types.SymbolClass, File: uri, Line: 1, Column: 6},
		{Name: "greet", Kind: types.SymbolMethod, File: uri, Line: 2, Column: 6, HasContainer: true},
	}))

	docs := docstore.New()
	require.NoError(t, docs.Open(types.URI(uri), 1, sampleSource))

	pc := parsecache.New(parsecache.NewTreeSitterParser(), 64)
	return New(docs, pc, si, nil), docs, si, uri
}

func TestDocumentSymbolReturnsIndexedSymbolsSortedByPosition(t *testing.T) {
	r, _, _, uri := newTestRouter(t)

	params, _ := json.Marshal(documentSymbolParams{TextDocument: textDocumentIdentifier{URI: uri}})
	result, werr := r.documentSymbol(context.Background(), params)
	require.Nil(t, werr)

	syms := result.([]documentSymbolWire)
	require.Len(t, syms, 2)
	assert.Equal(t, "Greeter", syms[0].Name)
	assert.Equal(t, "greet", syms[1].Name)
}

func TestWorkspaceSymbolFindsExactPrefixMatch(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	params, _ := json.Marshal(workspaceSymbolParams{Query: "Greet"})
	result, werr := r.workspaceSymbol(context.Background(), params)
	require.Nil(t, werr)

	syms := result.([]symbolInformationWire)
	require.Len(t, syms, 1)
	assert.Equal(t, "Greeter", syms[0].Name)
}

func TestWorkspaceSymbolFuzzyFallbackMatchesMisspelledQuery(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	params, _ := json.Marshal(workspaceSymbolParams{Query: "Greetr"})
	result, werr := r.workspaceSymbol(context.Background(), params)
	require.Nil(t, werr)

	syms := result.([]symbolInformationWire)
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Greeter")
}

func TestCompletionOffersKeywordsAndIndexedNames(t *testing.T) {
	r, _, _, uri := newTestRouter(t)

	params, _ := json.Marshal(textDocumentPositionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     wirePosition{Line: 2, Character: 5},
	})
	result, werr := r.completion(context.Background(), params)
	require.Nil(t, werr)

	items := result.([]completionItemWire)
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "def")
	assert.Contains(t, labels, "greet")
}

func TestHoverReturnsNilWhenNoSymbolUnderCursor(t *testing.T) {
	r, _, _, uri := newTestRouter(t)

	params, _ := json.Marshal(textDocumentPositionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     wirePosition{Line: 0, Character: 0},
	})
	result, werr := r.hover(context.Background(), params)
	require.Nil(t, werr)
	assert.Nil(t, result)
}

func TestRenameProducesEditForEveryOccurrence(t *testing.T) {
	r, _, si, uri := newTestRouter(t)
	require.NoError(t, si.PutFile(uri, append(si.GetFile(uri), types.Symbol{
		Name: "greet", Kind: types.SymbolMethod, File: uri, Line: 10, Column: 0,
	})))

	params, _ := json.Marshal(renameParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     wirePosition{Line: 2, Character: 6},
		NewName:      "sayHello",
	})
	result, werr := r.rename(context.Background(), params)
	require.Nil(t, werr)

	we := result.(workspaceEditWire)
	edits := we.Changes[uri]
	assert.Len(t, edits, 2)
	for _, e := range edits {
		assert.Equal(t, "sayHello", e.NewText)
	}
}

func TestRenameRejectsEmptyNewName(t *testing.T) {
	r, _, _, uri := newTestRouter(t)

	params, _ := json.Marshal(renameParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     wirePosition{Line: 2, Character: 6},
		NewName:      "",
	})
	_, werr := r.rename(context.Background(), params)
	require.NotNil(t, werr)
}
