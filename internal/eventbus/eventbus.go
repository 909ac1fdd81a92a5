// Package eventbus is the Event Bus (C6): typed, synchronous-publish
// fan-out to subscribers (spec.md §4.6). The teacher's file-watcher and
// index-coordinator callbacks are always 1:1 (SetCallbacks overwrites a
// single handler); this generalizes that idiom to 1:N subscription over a
// small closed Event interface, with handlers keyed by the event's
// reflect.Type.
package eventbus

import (
	"reflect"
	"sync"

	"github.com/char5742/groovy-lsp/internal/logging"
	"github.com/char5742/groovy-lsp/internal/types"
)

// Event is the closed set of values the bus can carry. Only types in this
// package implement it.
type Event interface {
	isEvent()
}

// FileIndexedEvent reports the outcome of indexing a single file.
// Diagnostics carries the parse's findings whenever the file was parsed,
// even if storing its symbols then failed, so a subscriber can republish
// them as textDocument/publishDiagnostics without re-parsing (spec.md §7).
// It is empty when the file could not be read or parsed.
type FileIndexedEvent struct {
	Path        string
	Success     bool
	Symbols     int
	Diagnostics []types.Diagnostic
}

func (FileIndexedEvent) isEvent() {}

// WorkspaceIndexedEvent reports the outcome of a full workspace scan.
type WorkspaceIndexedEvent struct {
	WorkspacePath string
	TotalFiles    int
	TotalSymbols  int
	DurationMs    int64
}

func (WorkspaceIndexedEvent) isEvent() {}

// Handler receives one published event. It must not block for long: Publish
// calls every subscribed handler synchronously, in no particular order.
type Handler func(Event)

// Subscription is returned by Subscribe and can be passed to Unsubscribe.
type Subscription struct {
	eventType reflect.Type
	id        uint64
}

// Bus dispatches events to subscribers by concrete event type.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[reflect.Type]map[uint64]Handler
	nextID    uint64
	component string
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		handlers:  make(map[reflect.Type]map[uint64]Handler),
		component: "eventbus",
	}
}

// Subscribe registers h to receive every event whose concrete type is the
// type parameter E.
func Subscribe[E Event](b *Bus, h func(E)) Subscription {
	var zero E
	t := reflect.TypeOf(zero)

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.handlers[t] == nil {
		b.handlers[t] = make(map[uint64]Handler)
	}
	b.handlers[t][id] = func(e Event) { h(e.(E)) }
	return Subscription{eventType: t, id: id}
}

// Unsubscribe removes a previously-registered handler. Idempotent.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[sub.eventType], sub.id)
}

// Publish delivers e synchronously to every handler subscribed to e's
// concrete type. A handler panic is recovered, logged, and swallowed: one
// broken subscriber must never stop the others or the publisher (spec.md
// §4.6).
func (b *Bus) Publish(e Event) {
	t := reflect.TypeOf(e)

	b.mu.RLock()
	subs := make([]Handler, 0, len(b.handlers[t]))
	for _, h := range b.handlers[t] {
		subs = append(subs, h)
	}
	b.mu.RUnlock()

	for _, h := range subs {
		b.dispatch(h, e)
	}
}

func (b *Bus) dispatch(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf(b.component, "subscriber panic on %T: %v", e, r)
		}
	}()
	h(e)
}
