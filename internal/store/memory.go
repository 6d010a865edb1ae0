package store

import (
	"sort"
	"sync"

	"github.com/snehjoshi/mdbridge/internal/types"
)

// Memory is a process-local Store guarded by a single mutex.
//
// Items are kept in a slice sorted by ascending ID. Producers generate
// monotonic ULIDs so inserts are appends in the common case; the binary-search
// fallback keeps the ordering invariant even if a caller ever inserts out of
// order (tests do).
type Memory struct {
	mu    sync.Mutex
	items []*types.Item
	byID  map[string]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]struct{})}
}

// Insert adds an item, keeping the slice sorted by ID.
func (m *Memory) Insert(item *types.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[item.ID]; exists {
		return ErrDuplicateID
	}

	cp := item.Clone()
	n := len(m.items)
	if n == 0 || m.items[n-1].ID < cp.ID {
		m.items = append(m.items, cp)
	} else {
		i := sort.Search(n, func(i int) bool { return m.items[i].ID >= cp.ID })
		m.items = append(m.items, nil)
		copy(m.items[i+1:], m.items[i:])
		m.items[i] = cp
	}
	m.byID[item.ID] = struct{}{}
	return nil
}

// Oldest returns the minimum-ID item without removing it.
func (m *Memory) Oldest() (*types.Item, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return nil, false, nil
	}
	return m.items[0].Clone(), true, nil
}

// PopOldest removes and returns the minimum-ID item. The whole select-and-
// remove runs under the mutex, so concurrent callers always receive distinct
// items.
func (m *Memory) PopOldest() (*types.Item, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return nil, false, nil
	}
	item := m.items[0]
	m.items[0] = nil
	m.items = m.items[1:]
	delete(m.byID, item.ID)
	return item, true, nil
}

// List returns a snapshot of all items in ascending ID order.
func (m *Memory) List() ([]*types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it.Clone())
	}
	return out, nil
}

// Delete removes the item with the given ID if present.
func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[id]; !exists {
		return nil
	}
	i := sort.Search(len(m.items), func(i int) bool { return m.items[i].ID >= id })
	if i < len(m.items) && m.items[i].ID == id {
		m.items = append(m.items[:i], m.items[i+1:]...)
	}
	delete(m.byID, id)
	return nil
}

// Len reports the current item count.
func (m *Memory) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
