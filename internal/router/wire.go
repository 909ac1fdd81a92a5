// Package router is the Service Router (C8): it binds the LSP feature
// requests to the caches and index built by the rest of the core, owning
// no state of its own beyond references to those components (spec.md
// §4.8).
package router

import (
	"github.com/char5742/groovy-lsp/internal/types"
)

// wirePosition is the LSP wire shape: UTF-16 "character" rather than the
// internal vocabulary's "column", kept as a distinct type so the JSON tags
// don't leak into internal/types.
type wirePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func (p wirePosition) toInternal() types.Position {
	return types.Position{Line: p.Line, Column: p.Character}
}

func fromInternalPosition(p types.Position) wirePosition {
	return wirePosition{Line: p.Line, Character: p.Column}
}

type wireRange struct {
	Start wirePosition `json:"start"`
	End   wirePosition `json:"end"`
}

func fromInternalRange(r types.Range) wireRange {
	return wireRange{Start: fromInternalPosition(r.Start), End: fromInternalPosition(r.End)}
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     wirePosition           `json:"position"`
}

type location struct {
	URI   string    `json:"uri"`
	Range wireRange `json:"range"`
}

// symbolKindWire mirrors the LSP SymbolKind integer enum (1-indexed); only
// the values the extractor actually produces are mapped, everything else
// degrades to the generic "Variable" kind rather than failing the request.
func symbolKindWire(k types.SymbolKind) int {
	switch k {
	case types.SymbolClass:
		return 5
	case types.SymbolInterface:
		return 11
	case types.SymbolTrait:
		return 11
	case types.SymbolMethod:
		return 6
	case types.SymbolField:
		return 8
	case types.SymbolProperty:
		return 7
	case types.SymbolLocal:
		return 13
	case types.SymbolParameter:
		return 13
	case types.SymbolImport:
		return 2
	case types.SymbolPackage:
		return 4
	case types.SymbolAnnotation:
		return 5
	case types.SymbolEnum:
		return 10
	default:
		return 13
	}
}

type documentSymbolWire struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Kind           int       `json:"kind"`
	Range          wireRange `json:"range"`
	SelectionRange wireRange `json:"selectionRange"`
}

type symbolInformationWire struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     int      `json:"kind"`
	Location location `json:"location"`
}

type textEditWire struct {
	Range   wireRange `json:"range"`
	NewText string    `json:"newText"`
}

type workspaceEditWire struct {
	Changes map[string][]textEditWire `json:"changes"`
}

func fromWorkspaceEdit(we types.WorkspaceEdit) workspaceEditWire {
	out := workspaceEditWire{Changes: make(map[string][]textEditWire, len(we.Changes))}
	for uri, edits := range we.Changes {
		wireEdits := make([]textEditWire, len(edits))
		for i, e := range edits {
			wireEdits[i] = textEditWire{Range: fromInternalRange(e.Range), NewText: e.NewText}
		}
		out.Changes[string(uri)] = wireEdits
	}
	return out
}

// pointSymbolRange approximates a symbol's range as the single point where
// it was declared: the extractor records only a declaration's start
// position (spec.md §3 Symbol), not its full span, since the Java-grammar
// approximation can't reliably recover Groovy's true end-of-declaration
// token. Editors display this as a zero-width range, which LSP permits.
func pointSymbolRange(s types.Symbol) wireRange {
	p := wirePosition{Line: s.Line, Character: s.Column}
	return wireRange{Start: p, End: p}
}
