package router

import (
	"context"
	"encoding/json"

	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/symbolindex"
)

type documentSymbolParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

// documentSymbol answers textDocument/documentSymbol with a flat list from
// the Symbol Index's get_file (spec.md §4.8); containment is expressed via
// each symbol's own ContainerID rather than a nested wire tree, which
// clients can reconstruct if they want an outline.
func (r *Router) documentSymbol(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	p, werr := decodeParams[documentSymbolParams](params)
	if werr != nil {
		return nil, werr
	}

	syms := r.index.GetFile(p.TextDocument.URI)
	sortSymbolsByPosition(syms)

	out := make([]documentSymbolWire, len(syms))
	for i, s := range syms {
		rng := pointSymbolRange(s)
		out[i] = documentSymbolWire{
			ID:             symbolindex.EncodeID(s.ID),
			Name:           s.Name,
			Kind:           symbolKindWire(s.Kind),
			Range:          rng,
			SelectionRange: rng,
		}
	}
	return out, nil
}
