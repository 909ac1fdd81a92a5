package lspserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/char5742/groovy-lsp/internal/docstore"
	"github.com/char5742/groovy-lsp/internal/indexer"
	"github.com/char5742/groovy-lsp/internal/logging"
	"github.com/char5742/groovy-lsp/internal/types"
)

type textDocumentItem struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Text    string `json:"text"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

func handleDidOpen(docs *docstore.Store, params json.RawMessage) {
	var p didOpenParams
	if err := json.Unmarshal(params, &p); err != nil {
		logging.Warnf(component, "didOpen: invalid params: %v", err)
		return
	}
	if err := docs.Open(types.URI(p.TextDocument.URI), p.TextDocument.Version, p.TextDocument.Text); err != nil {
		logging.Warnf(component, "didOpen %s: %v", p.TextDocument.URI, err)
	}
}

type versionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

// contentChange models one entry of didChange's contentChanges array. The
// core only advertises full-document sync (spec.md §4.5), so Range is
// always absent and Text holds the complete new document body.
type contentChange struct {
	Text string `json:"text"`
}

type didChangeParams struct {
	TextDocument   versionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                 `json:"contentChanges"`
}

func handleDidChange(docs *docstore.Store, params json.RawMessage) {
	var p didChangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		logging.Warnf(component, "didChange: invalid params: %v", err)
		return
	}
	if len(p.ContentChanges) == 0 {
		return
	}
	text := p.ContentChanges[len(p.ContentChanges)-1].Text
	if err := docs.Open(types.URI(p.TextDocument.URI), p.TextDocument.Version, text); err != nil {
		logging.Warnf(component, "didChange %s: %v", p.TextDocument.URI, err)
	}
}

type didCloseParams struct {
	TextDocument textDocumentIdentifierWire `json:"textDocument"`
}

type textDocumentIdentifierWire struct {
	URI string `json:"uri"`
}

func handleDidClose(docs *docstore.Store, params json.RawMessage) {
	var p didCloseParams
	if err := json.Unmarshal(params, &p); err != nil {
		logging.Warnf(component, "didClose: invalid params: %v", err)
		return
	}
	docs.Close(types.URI(p.TextDocument.URI))
}

type fileEvent struct {
	URI  string `json:"uri"`
	Type int    `json:"type"`
}

type didChangeWatchedFilesParams struct {
	Changes []fileEvent `json:"changes"`
}

// handleDidChangeWatchedFiles re-indexes each changed file. It exists
// alongside the Indexer's own fsnotify watch (internal/indexer/watch.go)
// because a client may run with its own file watcher and forward events
// here instead, per spec.md §6 "workspace/didChangeWatchedFiles".
func handleDidChangeWatchedFiles(idx *indexer.Indexer, params json.RawMessage) {
	var p didChangeWatchedFilesParams
	if err := json.Unmarshal(params, &p); err != nil {
		logging.Warnf(component, "didChangeWatchedFiles: invalid params: %v", err)
		return
	}
	for _, change := range p.Changes {
		path := strings.TrimPrefix(change.URI, "file://")
		if err := idx.UpdateFile(context.Background(), path); err != nil {
			logging.Warnf(component, "reindex %s: %v", path, err)
		}
	}
}
