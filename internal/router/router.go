package router

import (
	"context"
	"encoding/json"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/docstore"
	"github.com/char5742/groovy-lsp/internal/lsperrors"
	"github.com/char5742/groovy-lsp/internal/parsecache"
	"github.com/char5742/groovy-lsp/internal/symbolindex"
	"github.com/char5742/groovy-lsp/internal/types"
)

// maxWorkspaceSymbolResults caps workspace/symbol responses (spec.md §4.8).
const maxWorkspaceSymbolResults = 1000

// TypeInferer is the external type-inference service hover consults for a
// formatted type description. Static type inference is explicitly out of
// scope for the core (spec.md §1); the default NoopTypeInferer always
// reports no answer ("", false), so hover still answers with the symbol's
// name/kind when no real inferer is wired in.
type TypeInferer interface {
	Infer(tree *parsecache.Tree, pos types.Position) (string, bool)
}

// NoopTypeInferer is the default TypeInferer: it never has an answer.
type NoopTypeInferer struct{}

func (NoopTypeInferer) Infer(*parsecache.Tree, types.Position) (string, bool) { return "", false }

// Router is the Service Router (C8). It holds no lookup logic of its own
// beyond dispatching to the Document Store, Parse Cache, and Symbol Index.
type Router struct {
	docs    *docstore.Store
	parse   *parsecache.Cache
	index   *symbolindex.Index
	inferer TypeInferer
}

// New creates a Router over the given components. inferer may be nil, in
// which case hover falls back to NoopTypeInferer.
func New(docs *docstore.Store, parse *parsecache.Cache, index *symbolindex.Index, inferer TypeInferer) *Router {
	if inferer == nil {
		inferer = NoopTypeInferer{}
	}
	return &Router{docs: docs, parse: parse, index: index, inferer: inferer}
}

// Bind registers every Service Router method on d.
func (r *Router) Bind(d *dispatch.Dispatcher) {
	d.HandleRequest("textDocument/completion", r.completion)
	d.HandleRequest("textDocument/hover", r.hover)
	d.HandleRequest("textDocument/definition", r.definition)
	d.HandleRequest("textDocument/references", r.references)
	d.HandleRequest("textDocument/documentSymbol", r.documentSymbol)
	d.HandleRequest("workspace/symbol", r.workspaceSymbol)
	d.HandleRequest("textDocument/rename", r.rename)
	d.HandleRequest("textDocument/prepareRename", r.prepareRename)
}

// WorkspaceSymbol, DocumentSymbol and Hover expose the same three read-only
// operations the MCP bridge (C9) republishes as tools, so mcpbridge never
// needs its own copy of the lookup logic (spec.md §2 added component).
func (r *Router) WorkspaceSymbol(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	return r.workspaceSymbol(ctx, params)
}

func (r *Router) DocumentSymbol(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	return r.documentSymbol(ctx, params)
}

func (r *Router) Hover(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	return r.hover(ctx, params)
}

// snapshotAndParse fetches the open document's current text and its parse
// artifact, the starting point shared by completion/hover/definition
// (spec.md §4.8).
func (r *Router) snapshotAndParse(ctx context.Context, uri string) (text string, artifact *parsecache.ParseArtifact, err error) {
	_, text, ok := r.docs.Snapshot(types.URI(uri))
	if !ok {
		return "", nil, lsperrors.NewDocumentError("snapshot", uri, errDocumentNotOpen)
	}
	artifact, err = r.parse.Parse(ctx, []byte(text), uri)
	if err != nil {
		return "", nil, err
	}
	return text, artifact, nil
}

var errDocumentNotOpen = documentNotOpenError{}

type documentNotOpenError struct{}

func (documentNotOpenError) Error() string { return "document is not open" }

func nodeAt(artifact *parsecache.ParseArtifact, pos types.Position) *tree_sitter.Node {
	root, ok := artifact.Tree.Root.(*tree_sitter.Node)
	if !ok || root == nil {
		return nil
	}
	return findNodeAtPosition(root, pos)
}

// findNodeAtPosition descends to the deepest node whose span contains pos,
// the same child-walk idiom the extractor uses to visit declarations
// (internal/indexer/extract.go), generalized from "visit everything" to
// "find the one node under the cursor".
func findNodeAtPosition(n *tree_sitter.Node, pos types.Position) *tree_sitter.Node {
	if n == nil || !containsPosition(n, pos) {
		return nil
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(uint(i))
		if child == nil {
			continue
		}
		if found := findNodeAtPosition(child, pos); found != nil {
			return found
		}
	}
	return n
}

func containsPosition(n *tree_sitter.Node, pos types.Position) bool {
	start := n.StartPosition()
	end := n.EndPosition()
	startPos := types.Position{Line: int(start.Row), Column: int(start.Column)}
	endPos := types.Position{Line: int(end.Row), Column: int(end.Column)}
	return !pos.Less(startPos) && !endPos.Less(pos)
}

func nodeText(artifact *parsecache.ParseArtifact, source []byte, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	txt, err := n.Utf8Text(source)
	if err != nil {
		return ""
	}
	return txt
}

func decodeParams[T any](params json.RawMessage) (T, *dispatch.WireError) {
	var v T
	if err := json.Unmarshal(params, &v); err != nil {
		var zero T
		return zero, &dispatch.WireError{Code: -32602, Message: "invalid params: " + err.Error()}
	}
	return v, nil
}

// symbolUnderCursor finds the innermost identifier-shaped node at pos and
// resolves it to a declared Symbol with a matching name, the approximation
// definition/rename/hover use in place of real scope resolution (spec.md
// §1 non-goal: semantic scope resolution).
func (r *Router) symbolUnderCursor(uri string, text string, artifact *parsecache.ParseArtifact, pos types.Position) (types.Symbol, bool) {
	n := nodeAt(artifact, pos)
	if n == nil {
		return types.Symbol{}, false
	}
	name := nodeText(artifact, []byte(text), n)
	if name == "" {
		return types.Symbol{}, false
	}

	for _, s := range r.index.GetFile(uri) {
		if s.Name == name {
			return s, true
		}
	}

	it := r.index.SearchPrefix(name)
	for sym, ok := it.Next(); ok; sym, ok = it.Next() {
		if sym.Name == name {
			return sym, true
		}
	}
	return types.Symbol{}, false
}

func sortSymbolsByPosition(syms []types.Symbol) {
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].File != syms[j].File {
			return syms[i].File < syms[j].File
		}
		if syms[i].Line != syms[j].Line {
			return syms[i].Line < syms[j].Line
		}
		return syms[i].Column < syms[j].Column
	})
}
