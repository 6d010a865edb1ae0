package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/snehjoshi/mdbridge/internal/types"
)

var bucketItems = []byte("items") // bucket name inside bbolt

// Bolt is a bbolt-backed Store whose contents survive process restarts.
//
// bbolt is chosen because it is:
//   - Pure Go (no CGO, no external process)
//   - ACID — PopOldest runs as a single Update transaction, so select-and-
//     remove is indivisible exactly like the in-memory mutex variant
//   - Single file inside the data directory
//   - Well-maintained (used by etcd in production)
//
// Items are stored under their ULID as the key. bbolt keeps keys in
// lexicographic order, so Cursor.First() is always the oldest item — the
// ordering invariant falls out of the backend for free.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the item store at path.
func OpenBolt(path string) (*Bolt, error) {
	opts := &bbolt.Options{Timeout: 0} // non-blocking open
	db, err := bbolt.Open(path, 0o640, opts)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketItems)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Insert writes the item under its ID key.
func (b *Bolt) Insert(item *types.Item) error {
	val, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("store: marshal item %s: %w", item.ID, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketItems)
		if bkt.Get([]byte(item.ID)) != nil {
			return ErrDuplicateID
		}
		return bkt.Put([]byte(item.ID), val)
	})
}

// Oldest returns the first item by key order without removing it.
func (b *Bolt) Oldest() (*types.Item, bool, error) {
	var item *types.Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket(bucketItems).Cursor().First()
		if k == nil {
			return nil
		}
		var err error
		item, err = unmarshalItem(k, v)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return item, item != nil, nil
}

// PopOldest selects and deletes the first item in one write transaction.
// bbolt serialises writers, so two concurrent calls can never observe the
// same head.
func (b *Bolt) PopOldest() (*types.Item, bool, error) {
	var item *types.Item
	err := b.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketItems).Cursor()
		k, v := c.First()
		if k == nil {
			return nil
		}
		it, err := unmarshalItem(k, v)
		if err != nil {
			return err
		}
		if err := c.Delete(); err != nil {
			return err
		}
		item = it
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return item, item != nil, nil
}

// List returns all items in ascending key order.
func (b *Bolt) List() ([]*types.Item, error) {
	var out []*types.Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			it, err := unmarshalItem(k, v)
			if err != nil {
				return err
			}
			out = append(out, it)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the item with the given ID. No error if absent.
func (b *Bolt) Delete(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItems).Delete([]byte(id))
	})
}

// Len reports the current item count.
func (b *Bolt) Len() (int, error) {
	var n int
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketItems).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the underlying bbolt database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func unmarshalItem(k, v []byte) (*types.Item, error) {
	var it types.Item
	if err := json.Unmarshal(v, &it); err != nil {
		return nil, fmt.Errorf("store: corrupt item %s: %w", k, err)
	}
	return &it, nil
}
