package document

import (
	"sync"
)

// Store owns the live document. Readers get immutable snapshots; every
// mutation runs against a fresh deep clone which is swapped in whole,
// so a snapshot handed to the bus or the sequencer never changes under
// the caller.
type Store struct {
	mu  sync.RWMutex
	doc *Document

	// isDefault marks a document seeded from Default() rather than
	// loaded from disk. Such a document is never persisted, so a failed
	// load cannot silently overwrite the user's file.
	isDefault bool

	onChange func(*Document)
}

// NewStore wraps an already-loaded document.
func NewStore(doc *Document, isDefault bool) *Store {
	return &Store{doc: doc, isDefault: isDefault}
}

// OnChange registers a single callback invoked with the new snapshot
// after every successful update, outside the store lock.
func (s *Store) OnChange(fn func(*Document)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot returns the current document. Callers must treat it as
// read-only.
func (s *Store) Snapshot() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// IsDefault reports whether the current document is the unsaved seed.
func (s *Store) IsDefault() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isDefault
}

// Update clones the document, applies fn to the clone and swaps it in.
// Once the user mutates anything the document stops being "default"
// and becomes eligible for persistence.
func (s *Store) Update(fn func(*Document)) *Document {
	s.mu.Lock()
	next := s.doc.Clone()
	fn(next)
	s.doc = next
	s.isDefault = false
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(next)
	}
	return next
}

// UpdateActiveSet runs fn against the active set of a cloned document.
// When no set matches the active id the update is a no-op.
func (s *Store) UpdateActiveSet(fn func(*Set, *Document)) *Document {
	return s.Update(func(d *Document) {
		if set := d.ActiveSet(); set != nil {
			fn(set, d)
		}
	})
}
