package indexer

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/groovy-lsp/internal/config"
	"github.com/char5742/groovy-lsp/internal/depcache"
	"github.com/char5742/groovy-lsp/internal/eventbus"
	"github.com/char5742/groovy-lsp/internal/parsecache"
	"github.com/char5742/groovy-lsp/internal/symbolindex"
)

func newTestIndexer(t *testing.T, root string) (*Indexer, *symbolindex.Index, *eventbus.Bus) {
	t.Helper()
	cfg := config.Default(root)
	cfg.Index.WatchMode = false
	cfg.Index.RespectGitignore = false

	pc := parsecache.New(parsecache.NewTreeSitterParser(), 256)
	dc := depcache.New(depcache.NewBuildSystemResolver(), depcache.NewDefaultContextFactory(), time.Hour, 100)
	si, err := symbolindex.Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Close() })
	bus := eventbus.New()

	return New(cfg, pc, dc, si, bus), si, bus
}

func TestInitialScanIndexesGroovyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/A.groovy", []byte("class A {\n  void m() {}\n}\n"), 0o644))

	idx, si, bus := newTestIndexer(t, dir)

	var evt eventbus.WorkspaceIndexedEvent
	eventbus.Subscribe(bus, func(e eventbus.WorkspaceIndexedEvent) { evt = e })

	require.NoError(t, idx.InitialScan(context.Background()))

	assert.Equal(t, 1, evt.TotalFiles)
	assert.NotEmpty(t, si.GetFile(dir+"/A.groovy"))
}

func TestInitialScanEmitsFileIndexedPerFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/A.groovy", []byte("class A {}\n"), 0o644))
	require.NoError(t, os.WriteFile(dir+"/B.groovy", []byte("class B {}\n"), 0o644))

	idx, _, bus := newTestIndexer(t, dir)

	var mu sync.Mutex
	var paths []string
	eventbus.Subscribe(bus, func(e eventbus.FileIndexedEvent) {
		mu.Lock()
		paths = append(paths, e.Path)
		mu.Unlock()
	})

	require.NoError(t, idx.InitialScan(context.Background()))

	assert.Len(t, paths, 2)
}

func TestInitialScanSkipsExcludedDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir+"/build", 0o755))
	require.NoError(t, os.WriteFile(dir+"/build/Ignored.groovy", []byte("class Ignored {}\n"), 0o644))
	require.NoError(t, os.WriteFile(dir+"/Kept.groovy", []byte("class Kept {}\n"), 0o644))

	idx, _, bus := newTestIndexer(t, dir)

	var evt eventbus.WorkspaceIndexedEvent
	eventbus.Subscribe(bus, func(e eventbus.WorkspaceIndexedEvent) { evt = e })

	require.NoError(t, idx.InitialScan(context.Background()))

	assert.Equal(t, 1, evt.TotalFiles)
}

func TestUpdateFileRemovesMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/A.groovy"
	require.NoError(t, os.WriteFile(path, []byte("class A {}\n"), 0o644))

	idx, si, _ := newTestIndexer(t, dir)
	require.NoError(t, idx.InitialScan(context.Background()))
	require.NotEmpty(t, si.GetFile(path))

	require.NoError(t, os.Remove(path))
	require.NoError(t, idx.UpdateFile(context.Background(), path))

	assert.Empty(t, si.GetFile(path))
}

func TestUpdateFileNonIndexableIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/README.md"
	require.NoError(t, os.WriteFile(path, []byte("# hi"), 0o644))

	idx, si, _ := newTestIndexer(t, dir)
	require.NoError(t, idx.UpdateFile(context.Background(), path))

	assert.Empty(t, si.GetFile(path))
}

func TestInitialScanCancellationBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		require.NoError(t, os.WriteFile(dir+"/F"+string(rune('A'+i%26))+".groovy", []byte("class X {}\n"), 0o644))
	}

	idx, _, _ := newTestIndexer(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := idx.InitialScan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
