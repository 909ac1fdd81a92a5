package indexer

import (
	"archive/zip"
	"strings"

	"github.com/char5742/groovy-lsp/internal/types"
)

// jarClassSymbols enumerates the .class entries of a dependency jar and
// synthesizes one CLASS symbol per entry at (line=0, column=0) — no
// method-level extraction, per spec.md §4.4 step 4. Entries whose name
// contains '$' (nested and anonymous classes) are skipped. Directory-style
// dependency entries (an unpacked class directory rather than a jar) are
// skipped: they are walked by the ordinary filesystem scan path instead if
// they also fall under indexable extensions, which class directories don't.
func jarClassSymbols(jarPath string) []types.Symbol {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil
	}
	defer r.Close()

	var symbols []types.Symbol
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") || strings.Contains(f.Name, "$") {
			continue
		}
		name := strings.TrimSuffix(f.Name, ".class")
		name = strings.ReplaceAll(name, "/", ".")
		symbols = append(symbols, types.Symbol{
			ID:   symbolID(jarPath, name, 0, 0),
			Name: name,
			Kind: types.SymbolClass,
			File: jarPath,
		})
	}
	return symbols
}
