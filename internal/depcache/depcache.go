// Package depcache is the Dependency Resolution Cache (C2): an LRU cache,
// bounded by entry count, of resolved project dependencies and their
// class-loading contexts, shared across concurrent indexing operations
// (spec.md §4.2).
package depcache

import (
	"container/list"
	"context"
	"encoding/binary"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"
	"weak"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/char5742/groovy-lsp/internal/lsperrors"
	"github.com/char5742/groovy-lsp/internal/types"
)

// DependencySet is the sorted-unique collection of classpath entries for a
// project (spec.md §3).
type DependencySet struct {
	Paths []string
}

// Key is the stable cache key for a DependencySet: an xxhash of the
// sorted-unique path list. This is a cache key only, not a security- or
// crash-recovery-relevant digest, so a non-cryptographic hash is correct
// here where the Parse Cache uses SHA-256 for a content-addressed identity.
type Key uint64

func NewDependencySet(paths []string) DependencySet {
	uniq := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		uniq[p] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for p := range uniq {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	return DependencySet{Paths: sorted}
}

func (d DependencySet) Key() Key {
	h := xxhash.New()
	for _, p := range d.Paths {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return Key(h.Sum64())
}

// ProjectDependencies is resolved classpath state for one project root
// (spec.md §3).
type ProjectDependencies struct {
	ProjectRoot string
	Deps        DependencySet
	BuildSystem types.BuildSystem
	ResolvedAt  time.Time
	mtimeHash   uint64 // xxhash of dependency-path mtimes, §9 open question 2
}

// ClassLoadingContext is the opaque handle giving symbolic access to types
// on a dependency set's classpath (spec.md §3). Construction and release
// are the only operations the core specifies; what the handle actually
// resolves is outside this spec's scope.
type ClassLoadingContext struct {
	Deps   DependencySet
	mu     sync.Mutex
	closed bool
}

// Release closes whatever file descriptors/memory regions the context
// holds. Idempotent: calling it twice is a no-op the second time.
func (c *ClassLoadingContext) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *ClassLoadingContext) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Resolver resolves a project root to its classpath, autodetecting the
// build system. It is the black-box collaborator spec.md §1 calls out:
// build-tool dialect details are out of scope, only this interface is
// specified.
type Resolver interface {
	Resolve(ctx context.Context, projectRoot string) (DependencySet, types.BuildSystem, error)
}

// ContextFactory constructs a ClassLoadingContext for a DependencySet.
type ContextFactory interface {
	Construct(ctx context.Context, deps DependencySet) (*ClassLoadingContext, error)
}

type ctxEntry struct {
	key        Key
	strong     *ClassLoadingContext
	lastAccess time.Time
}

// Cache is the Dependency Resolution Cache: two sub-caches sharing one lock
// domain (spec.md §4.2).
type Cache struct {
	resolver Resolver
	factory  ContextFactory

	maxAge     time.Duration
	maxEntries int

	resolveGroup singleflight.Group

	mu       sync.RWMutex
	projects map[string]*ProjectDependencies
	// reverseIndex resolves §9 open question 1 in favor of an explicit
	// project -> set<cache key> index instead of substring matching.
	reverseIndex map[string]map[Key]struct{}

	contextMu    sync.Mutex // guards contexts/order/weakRefs; held only for map/list bookkeeping
	contexts     map[Key]*list.Element
	order        *list.List // front = most recently used
	constructors map[Key]*sync.Mutex
	// weakRefs outlives LRU eviction: a context dropped from contexts/order
	// for being least-recently-used is still reachable here as long as some
	// caller holds a strong reference to it, so a concurrent
	// GetOrCreateContext miss is not duplicated (spec.md invariant 4, §4.2).
	weakRefs map[Key]weak.Pointer[ClassLoadingContext]

	lastEvictCheck time.Time
}

// New creates a Dependency Resolution Cache. maxAge is ProjectDependencies'
// TTL (default 24h); maxEntries bounds the ClassLoadingContext cache
// (default 100).
func New(resolver Resolver, factory ContextFactory, maxAge time.Duration, maxEntries int) *Cache {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &Cache{
		resolver:     resolver,
		factory:      factory,
		maxAge:       maxAge,
		maxEntries:   maxEntries,
		projects:     make(map[string]*ProjectDependencies),
		reverseIndex: make(map[string]map[Key]struct{}),
		contexts:     make(map[Key]*list.Element),
		order:        list.New(),
		constructors: make(map[Key]*sync.Mutex),
		weakRefs:     make(map[Key]weak.Pointer[ClassLoadingContext]),
	}
}

// GetOrResolve returns cached dependencies for root, resolving via the
// Resolver on a miss or expiry. At most one resolution per project is in
// flight at a time.
func (c *Cache) GetOrResolve(ctx context.Context, root string) (*ProjectDependencies, error) {
	c.mu.RLock()
	pd, ok := c.projects[root]
	c.mu.RUnlock()
	if ok && time.Since(pd.ResolvedAt) < c.maxAge && mtimeHash(pd.Deps.Paths) == pd.mtimeHash {
		return pd, nil
	}

	v, err, _ := c.resolveGroup.Do(root, func() (interface{}, error) {
		deps, buildSystem, rerr := c.resolver.Resolve(ctx, root)
		if rerr != nil {
			// CacheError only surfaces if the underlying resolver fails;
			// the caller receives an empty dep list, per spec.md §7.
			return &ProjectDependencies{ProjectRoot: root, Deps: NewDependencySet(nil), BuildSystem: types.BuildNone, ResolvedAt: time.Now()},
				lsperrors.NewCacheError("resolve", root, rerr)
		}
		pd := &ProjectDependencies{
			ProjectRoot: root,
			Deps:        NewDependencySet(deps.Paths),
			BuildSystem: buildSystem,
			ResolvedAt:  time.Now(),
			mtimeHash:   mtimeHash(deps.Paths),
		}
		c.mu.Lock()
		c.projects[root] = pd
		if _, ok := c.reverseIndex[root]; !ok {
			c.reverseIndex[root] = make(map[Key]struct{})
		}
		c.reverseIndex[root][pd.Deps.Key()] = struct{}{}
		c.mu.Unlock()
		return pd, nil
	})
	if pd, ok := v.(*ProjectDependencies); ok {
		return pd, err
	}
	return nil, err
}

// GetOrCreateContext performs the classic double-checked retrieval: a
// locked lookup, then a construct-insert on miss. A key evicted
// from the LRU under capacity pressure but still weakly reachable (some
// caller holds its own strong reference) is revived rather than rebuilt,
// so construction never produces a second live context for the same
// dep-set (spec.md invariant 4, §4.2). Construction itself runs under a
// per-key constructor lock only, so unrelated dep-sets never block each
// other.
func (c *Cache) GetOrCreateContext(ctx context.Context, deps DependencySet) (*ClassLoadingContext, error) {
	key := deps.Key()

	if lc, ok := c.lookupContext(key); ok {
		return lc, nil
	}
	if lc, ok := c.WeakLookup(key); ok {
		c.reviveContext(key, lc)
		return lc, nil
	}

	lock := c.constructorLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Re-check now that we hold the constructor lock: another caller may
	// have just finished building this key, or it may still be reachable
	// through a weak reference an earlier caller captured before eviction.
	if lc, ok := c.lookupContext(key); ok {
		return lc, nil
	}
	if lc, ok := c.WeakLookup(key); ok {
		c.reviveContext(key, lc)
		return lc, nil
	}

	lc, err := c.factory.Construct(ctx, deps)
	if err != nil {
		return nil, lsperrors.NewCacheError("construct_context", keyString(key), err)
	}

	c.contextMu.Lock()
	el := c.order.PushFront(&ctxEntry{key: key, strong: lc, lastAccess: time.Now()})
	c.contexts[key] = el
	c.weakRefs[key] = weak.Make(lc)
	c.evictIfOverLocked()
	c.contextMu.Unlock()

	return lc, nil
}

// reviveContext re-inserts a still-weakly-reachable context into the LRU
// after it was evicted from contexts/order but kept alive by some caller's
// strong reference, so the LRU's bookkeeping reflects what is actually in
// use.
func (c *Cache) reviveContext(key Key, lc *ClassLoadingContext) {
	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	if _, ok := c.contexts[key]; ok {
		return
	}
	el := c.order.PushFront(&ctxEntry{key: key, strong: lc, lastAccess: time.Now()})
	c.contexts[key] = el
	c.evictIfOverLocked()
}

func (c *Cache) lookupContext(key Key) (*ClassLoadingContext, bool) {
	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	el, ok := c.contexts[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*ctxEntry)
	e.lastAccess = time.Now()
	c.order.MoveToFront(el)
	return e.strong, true
}

func (c *Cache) constructorLock(key Key) *sync.Mutex {
	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	if l, ok := c.constructors[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	c.constructors[key] = l
	return l
}

// evictIfOverLocked drops the oldest entry's strong reference if the cache
// is over maxEntries. Caller must hold contextMu. This does not Release the
// context or remove its weakRefs entry: a capacity eviction only means the
// cache itself stops pinning the context in memory, not that it is
// invalid — an in-flight caller holding its own strong reference keeps it
// alive, and WeakLookup lets a concurrent GetOrCreateContext find and
// revive it instead of constructing a duplicate (spec.md invariant 4).
// Once nothing holds a strong reference the context becomes unreachable
// and WeakLookup's next check sweeps its weakRefs entry.
func (c *Cache) evictIfOverLocked() {
	for len(c.contexts) > c.maxEntries {
		back := c.order.Back()
		if back == nil {
			return
		}
		e := back.Value.(*ctxEntry)
		c.order.Remove(back)
		delete(c.contexts, e.key)
	}
}

// InvalidateProject removes the project entry and every ClassLoadingContext
// it is known to have produced, via the explicit reverse index (spec.md §9
// open question 1, resolved against the observed substring-matching rule).
func (c *Cache) InvalidateProject(root string) {
	c.mu.Lock()
	delete(c.projects, root)
	keys := c.reverseIndex[root]
	delete(c.reverseIndex, root)
	c.mu.Unlock()

	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	for key := range keys {
		if el, ok := c.contexts[key]; ok {
			e := el.Value.(*ctxEntry)
			c.order.Remove(el)
			delete(c.contexts, key)
			delete(c.weakRefs, key)
			_ = e.strong.Release()
		}
	}
}

// InvalidateAll drops every entry, releasing every ClassLoadingContext
// before removing it (spec.md §4.2).
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.projects = make(map[string]*ProjectDependencies)
	c.reverseIndex = make(map[string]map[Key]struct{})
	c.mu.Unlock()

	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	for key, el := range c.contexts {
		e := el.Value.(*ctxEntry)
		_ = e.strong.Release()
		delete(c.contexts, key)
		delete(c.weakRefs, key)
	}
	c.order = list.New()
}

// EvictIfNeeded evicts the least recently used entries while the cache
// holds more than maxEntries, rate-limited to once per minInterval
// (default 60s). It takes no memory target and does no per-context memory
// accounting: the bound is the entry count alone.
func (c *Cache) EvictIfNeeded(minInterval time.Duration) {
	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	if minInterval <= 0 {
		minInterval = 60 * time.Second
	}
	if time.Since(c.lastEvictCheck) < minInterval {
		return
	}
	c.lastEvictCheck = time.Now()
	c.evictIfOverLocked()
}

// ContextCount reports the number of strong references currently held, for
// invariant 4 (LRU bound).
func (c *Cache) ContextCount() int {
	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	return len(c.contexts)
}

// WeakLookup returns a context still reachable via weak reference even if
// it has already been evicted from the LRU, so an in-flight request that
// captured it earlier is not duplicated by a concurrent GetOrCreateContext.
// A key whose weak reference has been garbage-collected, or whose context
// was explicitly released (by InvalidateProject/InvalidateAll — capacity
// eviction alone never releases), is swept from weakRefs and reported as
// a miss so the caller constructs a fresh context instead of reviving a
// closed one.
func (c *Cache) WeakLookup(key Key) (*ClassLoadingContext, bool) {
	c.contextMu.Lock()
	defer c.contextMu.Unlock()
	w, ok := c.weakRefs[key]
	if !ok {
		return nil, false
	}
	lc := w.Value()
	if lc == nil || lc.Closed() {
		delete(c.weakRefs, key)
		return nil, false
	}
	return lc, true
}

// mtimeHash hashes each dependency path's modification time, so in-place
// replacement of a JAR within the 24h TTL window is still detected on the
// next GetOrResolve even though the path list itself is unchanged (spec.md
// §9 open question 2, resolved in favor of adding this cheap hash).
func mtimeHash(paths []string) uint64 {
	h := xxhash.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func keyString(k Key) string {
	return strconv.FormatUint(uint64(k), 16)
}
