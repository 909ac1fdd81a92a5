package router

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/types"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity a keyword candidate
// needs to be offered when it falls outside an exact prefix match
// (spec.md §4.8 fuzzy ranking pass).
const fuzzyThreshold = 0.75

// groovyKeywords is the fixed keyword list completion draws from: all of it
// when nothing has been typed, otherwise the keywords that start with the
// typed prefix or are Jaro-Winkler-close to it, ranked alongside prefix
// hits from the Symbol Index. Concrete grammar
// keyword recognition beyond this static list is out of scope (spec.md §1).
var groovyKeywords = []string{
	"def", "class", "interface", "trait", "enum", "import", "package",
	"return", "if", "else", "for", "while", "try", "catch", "finally",
	"new", "static", "final", "private", "protected", "public", "void",
	"closure", "it", "true", "false", "null",
}

type completionItemWire struct {
	Label string `json:"label"`
	Kind  int    `json:"kind"`
}

func (r *Router) completion(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	p, werr := decodeParams[textDocumentPositionParams](params)
	if werr != nil {
		return nil, werr
	}

	text, artifact, err := r.snapshotAndParse(ctx, p.TextDocument.URI)
	if err != nil {
		return nil, &dispatch.WireError{Code: -32001, Message: err.Error()}
	}

	prefix := wordBeforeCursor(text, p.Position)

	seen := make(map[string]bool)
	var items []completionItemWire

	for _, s := range r.index.GetFile(p.TextDocument.URI) {
		addCandidate(&items, seen, s.Name, symbolKindToCompletionKind(s.Kind))
	}

	if prefix != "" {
		it := r.index.SearchPrefix(prefix)
		for s, ok := it.Next(); ok; s, ok = it.Next() {
			addCandidate(&items, seen, s.Name, symbolKindToCompletionKind(s.Kind))
		}
	}

	for _, kw := range groovyKeywords {
		if prefix == "" || strings.HasPrefix(kw, prefix) || similarEnough(kw, prefix) {
			addCandidate(&items, seen, kw, 14) // LSP CompletionItemKind.Keyword
		}
	}

	if prefix != "" {
		sort.SliceStable(items, func(i, j int) bool {
			return completionRank(items[i].Label, prefix) > completionRank(items[j].Label, prefix)
		})
	}

	_ = artifact // retained for a future scope-aware filter; current ranking only needs prefix/name
	return items, nil
}

func addCandidate(items *[]completionItemWire, seen map[string]bool, name string, kind int) {
	if name == "" || seen[name] {
		return
	}
	seen[name] = true
	*items = append(*items, completionItemWire{Label: name, Kind: kind})
}

// similarEnough applies the go-edlib Jaro-Winkler secondary ranking pass:
// a candidate failing the exact-prefix test can still surface if it's
// close enough to what was typed (spec.md §4.8 added fuzzy pass).
func similarEnough(candidate, prefix string) bool {
	if prefix == "" {
		return false
	}
	score, err := edlib.StringsSimilarity(candidate, prefix, edlib.JaroWinkler)
	if err != nil {
		return false
	}
	return float64(score) >= fuzzyThreshold
}

func completionRank(candidate, prefix string) float64 {
	if strings.HasPrefix(candidate, prefix) {
		return 1.0
	}
	score, err := edlib.StringsSimilarity(candidate, prefix, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(score)
}

func symbolKindToCompletionKind(k types.SymbolKind) int {
	switch k {
	case types.SymbolClass, types.SymbolInterface, types.SymbolTrait, types.SymbolEnum:
		return 7 // Class
	case types.SymbolMethod:
		return 2 // Method
	case types.SymbolField, types.SymbolProperty:
		return 5 // Field
	case types.SymbolLocal, types.SymbolParameter:
		return 6 // Variable
	case types.SymbolImport, types.SymbolPackage:
		return 9 // Module
	default:
		return 1 // Text
	}
}

// wordBeforeCursor returns the identifier-shaped run of characters
// immediately preceding position, the completion prefix a client expects
// to have its candidates match against.
func wordBeforeCursor(text string, pos wirePosition) string {
	lines := strings.Split(text, "\n")
	if pos.Line < 0 || pos.Line >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := pos.Character
	if col > len(line) {
		col = len(line)
	}
	start := col
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	return line[start:col]
}

func isIdentRune(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
