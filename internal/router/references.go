package router

import (
	"context"
	"encoding/json"

	"github.com/char5742/groovy-lsp/internal/dispatch"
)

type referenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type referenceParams struct {
	textDocumentPositionParams
	Context referenceContext `json:"context"`
}

// references answers textDocument/references: resolve the symbol under the
// cursor, then report every same-name occurrence across the index, the
// same stand-in rename.go uses in place of true reference resolution
// (spec.md §1, §4.8). The symbol's own declaration is included only when
// the request asks for it via context.includeDeclaration.
func (r *Router) references(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	p, werr := decodeParams[referenceParams](params)
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

	occurrences := r.index.Lookup(sym.Name)
	locs := make([]location, 0, len(occurrences))
	for _, occ := range occurrences {
		if !p.Context.IncludeDeclaration && occ.File == sym.File && occ.Line == sym.Line && occ.Column == sym.Column {
			continue
		}
		locs = append(locs, location{URI: occ.File, Range: pointSymbolRange(occ)})
	}

	return locs, nil
}
