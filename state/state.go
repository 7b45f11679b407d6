// Package state is the key-value store the runtime executes against.
//
// Committed state lives in a Backend. Block execution writes into an Overlay
// which is flushed into the Backend atomically on commit. Overlays nest, so a
// single dispatch can be rolled back without touching the rest of the block.
package state

import (
	"errors"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/flushable"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
)

var ErrStaleOverlay = errors.New("overlay is not based on the committed state")

// Backend holds the committed state.
type Backend struct {
	db kvdb.Store

	mu      sync.RWMutex
	root    hash.Hash
	version uint64
}

// NewBackend wraps an existing store.
func NewBackend(db kvdb.Store) *Backend {
	b := &Backend{db: db}
	b.root = computeRoot(db)
	return b
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Backend {
	return NewBackend(memorydb.New())
}

// Root is the committed state root.
func (b *Backend) Root() hash.Hash {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.root
}

// Begin starts a writable overlay on top of the committed state.
// Only one overlay may be committed per committed version.
func (b *Backend) Begin() *Overlay {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Overlay{Flushable: flushable.Wrap(b.db), backend: b, version: b.version}
}

// Snapshot returns a disposable overlay. The committed state does not change
// until release is called, so reads through the overlay are consistent.
func (b *Backend) Snapshot() (o *Overlay, release func()) {
	b.mu.RLock()
	o = &Overlay{Flushable: flushable.Wrap(b.db), backend: b, version: b.version}
	var once sync.Once
	return o, func() {
		once.Do(func() {
			o.DropNotFlushed()
			b.mu.RUnlock()
		})
	}
}

// Commit atomically flushes a top-level overlay and records its root.
func (b *Backend) Commit(o *Overlay, root hash.Hash) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.backend != b || o.parent != nil || o.version != b.version {
		return ErrStaleOverlay
	}
	if err := o.Flush(); err != nil {
		return err
	}
	b.root = root
	b.version++
	return nil
}

// Overlay buffers writes on top of its parent.
type Overlay struct {
	*flushable.Flushable

	backend *Backend
	parent  *Overlay
	version uint64
}

// Nested starts a child overlay. Its writes reach this overlay only on Merge.
func (o *Overlay) Nested() *Overlay {
	return &Overlay{Flushable: flushable.Wrap(o), backend: o.backend, parent: o, version: o.version}
}

// Merge flushes a nested overlay into its parent.
func (o *Overlay) Merge() error {
	if o.parent == nil {
		return errors.New("merge of a top-level overlay")
	}
	return o.Flush()
}

// Discard drops all pending writes.
func (o *Overlay) Discard() {
	o.DropNotFlushed()
}

// Table returns the key space under prefix.
func (o *Overlay) Table(prefix []byte) Table {
	return newTable(o, prefix)
}

// Root computes the state root as if the overlay were committed.
func (o *Overlay) Root() hash.Hash {
	return computeRoot(o)
}
