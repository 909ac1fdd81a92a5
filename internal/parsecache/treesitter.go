package parsecache

import (
	"context"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/char5742/groovy-lsp/internal/lsperrors"
	"github.com/char5742/groovy-lsp/internal/types"
)

// TreeSitterParser is the default Parser: tree-sitter with the Java
// grammar. Groovy is a superset of Java syntax for declarations (package,
// import, class, method, field headers), which is all the Indexer's
// extraction rules need; expression-level Groovy-only syntax inside method
// bodies is simply left unparsed by this grammar, which is acceptable since
// the concrete Groovy grammar is an explicit non-goal (spec.md §1). A real
// grammar can be swapped in later without touching the Parse Cache, since
// callers only depend on the Parser interface.
type TreeSitterParser struct {
	language *tree_sitter.Language
}

// NewTreeSitterParser builds the Java-grammar-backed default Parser. The
// underlying tree_sitter.Language is immutable and safe to share; each
// Parse call gets its own tree_sitter.Parser since the upstream API is not
// safe for concurrent use on one instance.
func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{language: tree_sitter.NewLanguage(tree_sitter_java.Language())}
}

func (p *TreeSitterParser) Parse(ctx context.Context, source []byte, sourceName string) (tree *Tree, diags []types.Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			tree = nil
			diags = nil
			pe := lsperrors.NewParseError(sourceName, 0, 0, recoveredPanicError(r)).WithRecoverable(false)
			pe.Kind = lsperrors.KindInternal
			err = pe
		}
	}()

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if setErr := parser.SetLanguage(p.language); setErr != nil {
		return nil, nil, lsperrors.NewParseError(sourceName, 0, 0, setErr)
	}

	raw := parser.Parse(source, nil)
	if raw == nil {
		return nil, nil, lsperrors.NewParseError(sourceName, 0, 0, errEmptyParse)
	}

	root := raw.RootNode()
	out := &Tree{Root: root}
	diagnostics := collectErrorDiagnostics(root)

	return out, diagnostics, nil
}

var errEmptyParse = parseFailure("tree-sitter returned no tree")

type parseFailure string

func (p parseFailure) Error() string { return string(p) }

// collectErrorDiagnostics walks the tree for tree-sitter ERROR/MISSING
// nodes and reports them as SYNTAX-kind diagnostics, so a syntactically
// broken file still yields a parse tree for its valid prefix plus
// diagnostics rather than a hard failure (spec.md §7 propagation policy).
func collectErrorDiagnostics(node *tree_sitter.Node) []types.Diagnostic {
	var diags []types.Diagnostic
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if n.IsError() || n.IsMissing() {
			start := n.StartPosition()
			end := n.EndPosition()
			diags = append(diags, types.Diagnostic{
				Range: types.Range{
					Start: types.Position{Line: int(start.Row), Column: int(start.Column)},
					End:   types.Position{Line: int(end.Row), Column: int(end.Column)},
				},
				Severity: types.SeverityError,
				Message:  "syntax error",
				Source:   "groovy-lsp",
			})
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			walk(n.Child(uint(i)))
		}
	}
	walk(node)
	return diags
}
