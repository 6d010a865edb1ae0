// Package store defines the Store abstraction that holds queued items between
// producer submission and consumer pickup.
//
// Design principle: every layer above the store must ONLY interact with queued
// items through this interface. Never reach into a backend directly. This is
// what lets the in-memory store (dev, tests) and the bbolt store (durable
// single-node deploys) be swapped by a config line without touching any
// endpoint logic.
package store

import (
	"errors"

	"github.com/snehjoshi/mdbridge/internal/types"
)

// ErrDuplicateID is returned by Insert when an item with the same ID already
// exists. Given the monotonic ULID scheme this must never happen in practice —
// treat it as an internal invariant violation, not a user-facing error.
var ErrDuplicateID = errors.New("store: duplicate item id")

// Store is the single abstraction through which queued items are held.
//
// Implementations:
//   - Memory — mutex-guarded, process-local (dev and tests)
//   - Bolt   — bbolt-backed, survives restarts
//
// All methods must be safe for concurrent use. The ordering contract is the
// heart of the whole system: "oldest" always means the minimum ID among
// currently stored items, and PopOldest must be indivisible — two concurrent
// calls can never return the same item.
type Store interface {
	// Insert adds an item. Fails only with ErrDuplicateID.
	Insert(item *types.Item) error

	// Oldest returns the item with the minimum ID without removing it.
	// ok is false when the store is empty.
	Oldest() (item *types.Item, ok bool, err error)

	// PopOldest atomically selects and removes the item with the minimum ID.
	// ok is false when the store was empty at call time — a normal outcome,
	// never an error. If N items exist, N concurrent calls return N distinct
	// items and leave the store empty.
	PopOldest() (item *types.Item, ok bool, err error)

	// List returns all current items in ascending ID order. Non-mutating.
	List() ([]*types.Item, error)

	// Delete removes the item with the given ID if present. Idempotent.
	Delete(id string) error

	// Len reports the number of items currently stored.
	Len() (int, error)

	// Close releases backend resources. The store must not be used afterwards.
	Close() error
}
