package parsecache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/groovy-lsp/internal/types"
)

type countingParser struct {
	calls  int64
	delay  time.Duration
	panics bool
}

func (p *countingParser) Parse(ctx context.Context, source []byte, sourceName string) (*Tree, []types.Diagnostic, error) {
	atomic.AddInt64(&p.calls, 1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panics {
		panic("boom")
	}
	return &Tree{Root: string(source)}, nil, nil
}

func TestParseCacheHitOnIdenticalBytes(t *testing.T) {
	p := &countingParser{}
	c := New(p, 10)

	a1, err := c.Parse(context.Background(), []byte("class A {}"), "A.groovy")
	require.NoError(t, err)
	a2, err := c.Parse(context.Background(), []byte("class A {}"), "A.groovy")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.EqualValues(t, 1, atomic.LoadInt64(&p.calls))

	hits, misses := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestParseCacheSingleFlight(t *testing.T) {
	p := &countingParser{delay: 20 * time.Millisecond}
	c := New(p, 10)

	const n = 20
	var wg sync.WaitGroup
	results := make([]*ParseArtifact, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			art, err := c.Parse(context.Background(), []byte("class A { def m() {} }"), "A.groovy")
			require.NoError(t, err)
			results[i] = art
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&p.calls))
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestParseCacheEvictsLRU(t *testing.T) {
	p := &countingParser{}
	c := New(p, 2)

	_, err := c.Parse(context.Background(), []byte("1"), "a")
	require.NoError(t, err)
	_, err = c.Parse(context.Background(), []byte("2"), "b")
	require.NoError(t, err)
	_, err = c.Parse(context.Background(), []byte("3"), "c")
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
}

func TestParseCachePanicBecomesParseError(t *testing.T) {
	p := &countingParser{panics: true}
	c := New(p, 10)

	_, err := c.Parse(context.Background(), []byte("oops"), "A.groovy")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestInvalidateBySourceName(t *testing.T) {
	p := &countingParser{}
	c := New(p, 10)

	_, err := c.Parse(context.Background(), []byte("class A {}"), "A.groovy")
	require.NoError(t, err)
	c.Invalidate("A.groovy")
	assert.Equal(t, 0, c.Len())

	_, err = c.Parse(context.Background(), []byte("class A {}"), "A.groovy")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&p.calls))
}
