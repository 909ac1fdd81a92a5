package router

import (
	"context"
	"encoding/json"

	"github.com/char5742/groovy-lsp/internal/dispatch"
)

// definition answers textDocument/definition: resolve the symbol under the
// cursor, then report its own declaration location via the inverted index
// (spec.md §4.8). Since the extractor only records a declaration's start
// position, "definition of the symbol under cursor" and "the symbol under
// cursor's own declaration" collapse to the same lookup.
func (r *Router) definition(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
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
		return []location{}, nil
	}

	return []location{{URI: sym.File, Range: pointSymbolRange(sym)}}, nil
}
