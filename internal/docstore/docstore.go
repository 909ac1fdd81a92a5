// Package docstore is the Document Store (C5): the in-memory authoritative
// copy of open documents, versioned, with incremental edit application
// (spec.md §4.5). Writes are serialised per-uri; reads are lock-free against
// whatever snapshot is currently published.
package docstore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/char5742/groovy-lsp/internal/lsperrors"
	"github.com/char5742/groovy-lsp/internal/types"
)

// snapshot is one immutable published state of a document. Readers take a
// pointer copy atomically and never see a torn version/text pair.
type snapshot struct {
	version int
	text    string
	// offsets holds the byte offset of the start of each line, mirroring
	// the teacher's GetLineOffsets precomputation. Edit application does
	// not read it: applyEdit recomputes the offsets of its own input text.
	offsets []int
}

// document owns one uri's write path. All mutation goes through mu; readers
// load the published *snapshot atomically so Snapshot never blocks on an
// in-flight write.
type document struct {
	mu        sync.Mutex
	published atomic.Pointer[snapshot]
}

// Store is the Document Store.
type Store struct {
	mu   sync.RWMutex
	docs map[types.URI]*document
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[types.URI]*document)}
}

// Open installs a new entry for uri, or rejects if an equal or higher
// version already exists (spec.md §4.5 open()).
func (s *Store) Open(uri types.URI, version int, text string) error {
	s.mu.Lock()
	doc, exists := s.docs[uri]
	if !exists {
		doc = &document{}
		s.docs[uri] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if cur := doc.published.Load(); cur != nil && cur.version >= version {
		return lsperrors.NewDocumentError("open", string(uri), fmt.Errorf("version %d not higher than existing %d", version, cur.version))
	}
	doc.published.Store(newSnapshot(version, text))
	return nil
}

// Change applies edits in order against the current text and republishes the
// result under version. Rejects stale versions (spec.md §4.5 change()).
func (s *Store) Change(uri types.URI, version int, edits []types.TextEdit) error {
	s.mu.RLock()
	doc, exists := s.docs[uri]
	s.mu.RUnlock()
	if !exists {
		return lsperrors.NewDocumentError("change", string(uri), fmt.Errorf("document not open"))
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	cur := doc.published.Load()
	if cur == nil {
		return lsperrors.NewDocumentError("change", string(uri), fmt.Errorf("document not open"))
	}
	if version <= cur.version {
		return lsperrors.NewDocumentError("change", string(uri), fmt.Errorf("stale version %d, current %d", version, cur.version))
	}

	text := cur.text
	for _, edit := range edits {
		next, err := applyEdit(text, edit)
		if err != nil {
			return lsperrors.NewDocumentError("change", string(uri), err)
		}
		text = next
	}

	doc.published.Store(newSnapshot(version, text))
	return nil
}

// Close removes the entry for uri. Idempotent.
func (s *Store) Close(uri types.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Snapshot returns an immutable (version, text) pair for uri. ok is false if
// the document is not open.
func (s *Store) Snapshot(uri types.URI) (version int, text string, ok bool) {
	s.mu.RLock()
	doc, exists := s.docs[uri]
	s.mu.RUnlock()
	if !exists {
		return 0, "", false
	}
	cur := doc.published.Load()
	if cur == nil {
		return 0, "", false
	}
	return cur.version, cur.text, true
}

func newSnapshot(version int, text string) *snapshot {
	return &snapshot{version: version, text: text, offsets: lineOffsets(text)}
}

// lineOffsets computes the byte offset of the start of each line, the same
// precomputation the teacher's GetLineOffsets performs over []byte, adapted
// to operate on a string snapshot.
func lineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// offsetOf converts a (line, column) Position into a byte offset into text
// by indexing offsets directly with the line number.
func offsetOf(offsets []int, textLen int, pos types.Position) int {
	line := pos.Line
	if line < 0 {
		line = 0
	}
	if line >= len(offsets) {
		return textLen
	}
	off := offsets[line] + pos.Column
	if off > textLen {
		off = textLen
	}
	if off < 0 {
		off = 0
	}
	return off
}

// applyEdit replaces the byte span [start, end) of text — computed from
// edit.Range against a freshly-computed offset table — with edit.NewText.
func applyEdit(text string, edit types.TextEdit) (string, error) {
	offsets := lineOffsets(text)
	start := offsetOf(offsets, len(text), edit.Range.Start)
	end := offsetOf(offsets, len(text), edit.Range.End)
	if end < start {
		return "", fmt.Errorf("invalid edit range: end before start")
	}
	return text[:start] + edit.NewText + text[end:], nil
}
