package docstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/groovy-lsp/internal/types"
)

func pos(line, col int) types.Position { return types.Position{Line: line, Column: col} }

func TestOpenThenSnapshot(t *testing.T) {
	s := New()
	require.NoError(t, s.Open("file:///A.groovy", 1, "class A {}"))

	version, text, ok := s.Snapshot("file:///A.groovy")
	require.True(t, ok)
	assert.Equal(t, 1, version)
	assert.Equal(t, "class A {}", text)
}

func TestOpenRejectsLowerOrEqualVersion(t *testing.T) {
	s := New()
	require.NoError(t, s.Open("file:///A.groovy", 2, "class A {}"))
	assert.Error(t, s.Open("file:///A.groovy", 2, "class A {}"))
	assert.Error(t, s.Open("file:///A.groovy", 1, "class A {}"))
}

func TestChangeAppliesEditsInOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.Open("file:///A.groovy", 1, "class A {}"))

	edits := []types.TextEdit{
		{Range: types.Range{Start: pos(0, 6), End: pos(0, 7)}, NewText: "Renamed"},
	}
	require.NoError(t, s.Change("file:///A.groovy", 2, edits))

	version, text, ok := s.Snapshot("file:///A.groovy")
	require.True(t, ok)
	assert.Equal(t, 2, version)
	assert.Equal(t, "class Renamed {}", text)
}

func TestChangeRejectsStaleVersion(t *testing.T) {
	s := New()
	require.NoError(t, s.Open("file:///A.groovy", 2, "class A {}"))
	err := s.Change("file:///A.groovy", 2, nil)
	assert.Error(t, err)
	err = s.Change("file:///A.groovy", 1, nil)
	assert.Error(t, err)
}

func TestChangeMultiLineEdit(t *testing.T) {
	s := New()
	text := "class A {\n  void m() {}\n}"
	require.NoError(t, s.Open("file:///A.groovy", 1, text))

	edits := []types.TextEdit{
		{Range: types.Range{Start: pos(1, 7), End: pos(1, 8)}, NewText: "method"},
	}
	require.NoError(t, s.Change("file:///A.groovy", 2, edits))

	_, got, ok := s.Snapshot("file:///A.groovy")
	require.True(t, ok)
	assert.Equal(t, "class A {\n  void method() {}\n}", got)
}

func TestCloseRemovesEntry(t *testing.T) {
	s := New()
	require.NoError(t, s.Open("file:///A.groovy", 1, "class A {}"))
	s.Close("file:///A.groovy")

	_, _, ok := s.Snapshot("file:///A.groovy")
	assert.False(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New()
	s.Close("file:///never-opened.groovy")
}

func TestChangeOnUnopenedDocumentFails(t *testing.T) {
	s := New()
	assert.Error(t, s.Change("file:///A.groovy", 1, nil))
}

func TestConcurrentWritesSerializePerURI(t *testing.T) {
	s := New()
	require.NoError(t, s.Open("file:///A.groovy", 1, "x"))

	var wg sync.WaitGroup
	for v := 2; v <= 50; v++ {
		wg.Add(1)
		go func(version int) {
			defer wg.Done()
			_ = s.Change("file:///A.groovy", version, []types.TextEdit{
				{Range: types.Range{Start: pos(0, 0), End: pos(0, 1)}, NewText: "x"},
			})
		}(v)
	}
	wg.Wait()

	version, text, ok := s.Snapshot("file:///A.groovy")
	require.True(t, ok)
	assert.Equal(t, 50, version)
	assert.Equal(t, "x", text)
}
