// Package parsecache is the Parse Cache & AST Service (C1): a content-hash
// keyed cache of parsed syntax trees with exactly-once construction under
// concurrent demand (spec.md §4.1).
package parsecache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/char5742/groovy-lsp/internal/lsperrors"
	"github.com/char5742/groovy-lsp/internal/types"
)

// Key is the cache key: SHA-256 of the source bytes. source_name is
// deliberately not part of the key (spec.md §4.1).
type Key [32]byte

func keyOf(source []byte) Key {
	return sha256.Sum256(source)
}

// Tree is the opaque parse result a Parser produces. The core treats it as
// a black box beyond the Root/Walk boundary Parser implementations define.
type Tree struct {
	Root interface{}
}

// ParseArtifact is the immutable, shareable result of a successful parse
// (spec.md §3 Data Model).
type ParseArtifact struct {
	Tree        *Tree
	Diagnostics []types.Diagnostic
	SourceHash  Key
	SourceName  string
}

// Parser is the black-box parsing boundary (spec.md §1 non-goals: the
// concrete Groovy grammar lives behind this interface). The default
// implementation wraps tree-sitter with the Java grammar, since Groovy
// source is Java-grammar-compatible enough for a conservative best-effort
// parse of package/import/class/method headers.
type Parser interface {
	Parse(ctx context.Context, source []byte, sourceName string) (*Tree, []types.Diagnostic, error)
}

type entry struct {
	key        Key
	artifact   *ParseArtifact
	sourceName string
}

// Cache is the Parse Cache (C1): LRU-bounded, single-flight on construction.
// Reads are not lock-free: every lookup takes the cache mutex briefly to
// find the entry and move it to the front of the LRU order.
type Cache struct {
	parser Parser
	bound  int

	mu      sync.Mutex
	items   map[Key]*list.Element // key -> entry in order
	order   *list.List             // front = most recently used
	byName  map[string]Key         // last-observed source_name -> key, for invalidate()
	group   singleflight.Group

	hits, misses int64
}

// New creates a Parse Cache backed by parser, bounded to the given number of
// entries (spec.md default: 256).
func New(parser Parser, bound int) *Cache {
	if bound <= 0 {
		bound = 256
	}
	return &Cache{
		parser: parser,
		bound:  bound,
		items:  make(map[Key]*list.Element),
		order:  list.New(),
		byName: make(map[string]Key),
	}
}

// Parse returns the cached artifact for source, constructing it at most
// once across any number of concurrent callers requesting the same bytes.
// A ParseError is never cached: the next caller re-attempts (spec.md §4.1).
func (c *Cache) Parse(ctx context.Context, source []byte, sourceName string) (*ParseArtifact, error) {
	key := keyOf(source)

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		art := el.Value.(*entry).artifact
		c.mu.Unlock()
		return art, nil
	}
	c.misses++
	c.mu.Unlock()

	// Single-flight construction: cancellation of one caller's ctx must not
	// cancel the shared parse, so the underlying call always runs detached
	// from any individual caller's context (spec.md §4.1).
	v, err, _ := c.group.Do(string(key[:]), func() (interface{}, error) {
		return c.construct(key, source, sourceName)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ParseArtifact), nil
}

func (c *Cache) construct(key Key, source []byte, sourceName string) (art *ParseArtifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			art = nil
			pe := lsperrors.NewParseError(sourceName, 0, 0, recoveredPanicError(r)).WithRecoverable(false)
			pe.Kind = lsperrors.KindInternal
			err = pe
		}
	}()

	tree, diags, perr := c.parser.Parse(context.Background(), source, sourceName)
	if perr != nil {
		return nil, perr
	}

	artifact := &ParseArtifact{
		Tree:        tree,
		Diagnostics: diags,
		SourceHash:  key,
		SourceName:  sourceName,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		// Another caller raced us between the single-flight release and the
		// lock: keep the existing entry, just bump recency.
		c.order.MoveToFront(el)
		c.byName[sourceName] = key
		return el.Value.(*entry).artifact, nil
	}
	el := c.order.PushFront(&entry{key: key, artifact: artifact, sourceName: sourceName})
	c.items[key] = el
	c.byName[sourceName] = key
	c.evictLocked()
	return artifact, nil
}

func (c *Cache) evictLocked() {
	for len(c.items) > c.bound {
		back := c.order.Back()
		if back == nil {
			return
		}
		e := back.Value.(*entry)
		c.order.Remove(back)
		delete(c.items, e.key)
		if c.byName[e.sourceName] == e.key {
			delete(c.byName, e.sourceName)
		}
	}
}

// Invalidate clears any entry whose last-observed source_name equals name.
// This is a hint, not a correctness primitive: identity stays by content
// hash (spec.md §4.1).
func (c *Cache) Invalidate(sourceName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.byName[sourceName]
	if !ok {
		return
	}
	delete(c.byName, sourceName)
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Stats reports cumulative hit/miss counts, for the single-flight test
// scenario (spec.md §8 S4).
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func recoveredPanicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return panicError{r}
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	return "parser panicked: " + formatPanic(p.v)
}

func formatPanic(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic value"
}
