package router

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/hbollon/go-edlib"

	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/symbolindex"
	"github.com/char5742/groovy-lsp/internal/types"
)

type workspaceSymbolParams struct {
	Query string `json:"query"`
}

// workspaceSymbol answers workspace/symbol with search_prefix(query)
// capped at 1000 (spec.md §4.8, §8 S5), in search_prefix order. Only when
// a non-empty query has no prefix hit at all are indexed names that are
// Jaro-Winkler-similar to it returned instead, best first, as the added
// secondary pass (spec.md §4.8).
func (r *Router) workspaceSymbol(ctx context.Context, params json.RawMessage) (any, *dispatch.WireError) {
	p, werr := decodeParams[workspaceSymbolParams](params)
	if werr != nil {
		return nil, werr
	}

	seenName := make(map[string]bool)
	var matches []types.Symbol

	it := r.index.SearchPrefix(p.Query)
	for s, ok := it.Next(); ok; s, ok = it.Next() {
		select {
		case <-ctx.Done():
			return nil, &dispatch.WireError{Code: dispatch.RequestCancelled, Message: "cancelled"}
		default:
		}
		matches = append(matches, s)
		seenName[s.Name] = true
		if len(matches) >= maxWorkspaceSymbolResults {
			break
		}
	}

	if len(matches) == 0 && p.Query != "" {
		remaining := maxWorkspaceSymbolResults - len(matches)
		for _, name := range fuzzyRankNames(r.index.AllSymbolNames(), p.Query, seenName, remaining) {
			select {
			case <-ctx.Done():
				return nil, &dispatch.WireError{Code: dispatch.RequestCancelled, Message: "cancelled"}
			default:
			}
			matches = append(matches, r.index.Lookup(name)...)
		}
	}

	if len(matches) > maxWorkspaceSymbolResults {
		matches = matches[:maxWorkspaceSymbolResults]
	}

	out := make([]symbolInformationWire, len(matches))
	for i, s := range matches {
		out[i] = symbolInformationWire{
			ID:       symbolindex.EncodeID(s.ID),
			Name:     s.Name,
			Kind:     symbolKindWire(s.Kind),
			Location: location{URI: s.File, Range: pointSymbolRange(s)},
		}
	}
	return out, nil
}

type nameScore struct {
	name  string
	score float64
}

// fuzzyRankNames scores every indexed name not already in seen against
// query with Jaro-Winkler and returns up to limit names above
// fuzzyThreshold, best first.
func fuzzyRankNames(names []string, query string, seen map[string]bool, limit int) []string {
	if limit <= 0 {
		return nil
	}
	var ranked []nameScore
	for _, name := range names {
		if seen[name] {
			continue
		}
		score, err := edlib.StringsSimilarity(name, query, edlib.JaroWinkler)
		if err != nil || float64(score) < fuzzyThreshold {
			continue
		}
		ranked = append(ranked, nameScore{name: name, score: float64(score)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}
	return out
}
