package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/char5742/groovy-lsp/internal/dispatch"
)

type hoverWire struct {
	Contents string    `json:"contents"`
	Range    wireRange `json:"range,omitempty"`
}

// hover answers textDocument/hover with the node-at-position's symbol
// identity plus whatever the configured TypeInferer offers; real type
// inference is an external service the core only consumes (spec.md §1).
func (r *Router) hover(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	p, werr := decodeParams[textDocumentPositionParams](params)
	if werr != nil {
		return nil, werr
	}

	text, artifact, err := r.snapshotAndParse(ctx, p.TextDocument.URI)
	if err != nil {
		return nil, &dispatch.WireError{Code: -32001, Message: err.Error()}
	}

	pos := p.Position.toInternal()
	sym, found := r.symbolUnderCursor(p.TextDocument.URI, text, artifact, pos)
	if !found {
		return nil, nil
	}

	contents := fmt.Sprintf("**%s** `%s`", sym.Kind, sym.Name)
	if typ, ok := r.inferer.Infer(artifact.Tree, pos); ok {
		contents = fmt.Sprintf("%s: `%s`", contents, typ)
	}

	return hoverWire{Contents: contents, Range: pointSymbolRange(sym)}, nil
}
