package router

import (
	"context"
	"encoding/json"

	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/types"
)

type renameParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     wirePosition           `json:"position"`
	NewName      string                 `json:"newName"`
}

// rename answers textDocument/rename: resolve the symbol under the cursor,
// find every declaration sharing its name across the index (the core's
// stand-in for true reference resolution, which needs scope analysis that
// is out of scope per spec.md §1), and produce one TextEdit per occurrence,
// spanning the name's length from its recorded position (spec.md §4.8).
func (r *Router) rename(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	p, werr := decodeParams[renameParams](params)
	if werr != nil {
		return nil, werr
	}
	if p.NewName == "" {
		return nil, &dispatch.WireError{Code: -32602, Message: "newName must not be empty"}
	}

	text, artifact, err := r.snapshotAndParse(ctx, p.TextDocument.URI)
	if err != nil {
		return nil, &dispatch.WireError{Code: -32001, Message: err.Error()}
	}

	sym, found := r.symbolUnderCursor(p.TextDocument.URI, text, artifact, p.Position.toInternal())
	if !found {
		return nil, &dispatch.WireError{Code: -32001, Message: "no renameable symbol at position"}
	}

	occurrences := r.index.Lookup(sym.Name)
	changes := make(map[types.URI][]types.TextEdit, len(occurrences))
	for _, occ := range occurrences {
		rng := types.Range{
			Start: types.Position{Line: occ.Line, Column: occ.Column},
			End:   types.Position{Line: occ.Line, Column: occ.Column + len(occ.Name)},
		}
		uri := types.URI(occ.File)
		changes[uri] = append(changes[uri], types.TextEdit{Range: rng, NewText: p.NewName})
	}

	return fromWorkspaceEdit(types.WorkspaceEdit{Changes: changes}), nil
}

func (r *Router) prepareRename(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	p, werr := decodeParams[textDocumentPositionParams](params)
	if werr != nil {
		return nil, werr
	}

	text, artifact, err := r.snapshotAndParse(ctx, p.TextDocument.URI)
	if err != nil {
		return nil, &dispatch.WireError{Code: -32001, Message: err.Error()}
	}

	sym, found := r.symbolUnderCursor(p.TextDocument.URI, text, artifact, p.Position.toInternal())
	if !found {
		return nil, &dispatch.WireError{Code: -32001, Message: "no renameable symbol at position"}
	}

	return pointSymbolRange(sym), nil
}
