package symbolindex

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/groovy-lsp/internal/types"
)

func sym(name string, kind types.SymbolKind, file string, line, col int) types.Symbol {
	return types.Symbol{Name: name, Kind: kind, File: file, Line: line, Column: col}
}

func TestPutFileThenGetFile(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	require.NoError(t, err)
	defer ix.Close()

	symbols := []types.Symbol{sym("A", types.SymbolClass, "A.groovy", 1, 7)}
	require.NoError(t, ix.PutFile("A.groovy", symbols))

	got := ix.GetFile("A.groovy")
	assert.Equal(t, symbols, got)
}

func TestPutFileReplacesWholeSet(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.PutFile("A.groovy", []types.Symbol{sym("A", types.SymbolClass, "A.groovy", 1, 7)}))
	require.NoError(t, ix.PutFile("A.groovy", []types.Symbol{
		sym("A", types.SymbolClass, "A.groovy", 1, 7),
		sym("m", types.SymbolMethod, "A.groovy", 1, 16),
	}))

	got := ix.GetFile("A.groovy")
	assert.Len(t, got, 2)
}

func TestRemoveFileIdempotenceLaw(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	require.NoError(t, err)
	defer ix.Close()

	s := []types.Symbol{sym("A", types.SymbolClass, "A.groovy", 1, 7)}
	require.NoError(t, ix.RemoveFile("A.groovy"))
	require.NoError(t, ix.PutFile("A.groovy", s))
	assert.Equal(t, s, ix.GetFile("A.groovy"))
}

func TestSearchPrefixOrderedAndConsistentWithGetFile(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.PutFile("A.groovy", []types.Symbol{sym("A", types.SymbolClass, "A.groovy", 1, 7)}))
	require.NoError(t, ix.PutFile("B.groovy", []types.Symbol{
		sym("B", types.SymbolClass, "B.groovy", 1, 7),
		sym("s", types.SymbolField, "B.groovy", 1, 23),
	}))

	it := ix.SearchPrefix("A")
	s, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "A", s.Name)
	_, ok = it.Next()
	assert.False(t, ok)

	it = ix.SearchPrefix("B")
	s, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, "B", s.Name)

	// invariant 3: inverted consistency
	it = ix.SearchPrefix("s")
	s, ok = it.Next()
	require.True(t, ok)
	fileSymbols := ix.GetFile(s.File)
	found := false
	for _, fs := range fileSymbols {
		if fs.Name == s.Name && fs.Line == s.Line && fs.Column == s.Column {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())
}

func TestOpenFailsOnLocationConflict(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/.groovy-lsp"
	require.NoError(t, writeFile(path))

	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrLocationConflict)
}

func TestOpenRejectsSecondWriter(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	require.NoError(t, err)
	defer ix.Close()

	_, err = Open(dir)
	assert.Error(t, err)
}

func TestReplayRecoversAfterClose(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, ix.PutFile("A.groovy", []types.Symbol{sym("A", types.SymbolClass, "A.groovy", 1, 7)}))
	require.NoError(t, ix.Close())

	ix2, err := Open(dir)
	require.NoError(t, err)
	defer ix2.Close()
	assert.Len(t, ix2.GetFile("A.groovy"), 1)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("not a directory"), 0o644)
}
