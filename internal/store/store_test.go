package store_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/snehjoshi/mdbridge/internal/store"
	"github.com/snehjoshi/mdbridge/internal/types"
)

// backends returns a constructor per Store implementation so every contract
// test runs against both. The bolt store lives in a per-test temp dir.
func backends() map[string]func(t *testing.T) store.Store {
	return map[string]func(t *testing.T) store.Store{
		"memory": func(t *testing.T) store.Store {
			t.Helper()
			return store.NewMemory()
		},
		"bolt": func(t *testing.T) store.Store {
			t.Helper()
			s, err := store.OpenBolt(filepath.Join(t.TempDir(), "queue.db"))
			if err != nil {
				t.Fatalf("OpenBolt: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func newItem(t *testing.T, content string) *types.Item {
	t.Helper()
	return &types.Item{
		ID:        store.MustNewID(),
		Content:   content,
		Action:    types.ActionAppend,
		CreatedAt: time.Now().UTC(),
	}
}

// ─── Ordering ─────────────────────────────────────────────────────────────────

func TestStore_FIFOOrdering(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			const n = 25
			want := make([]string, 0, n)
			for i := 0; i < n; i++ {
				it := newItem(t, fmt.Sprintf("item %d", i))
				want = append(want, it.ID)
				if err := s.Insert(it); err != nil {
					t.Fatalf("Insert: %v", err)
				}
			}

			for i := 0; i < n; i++ {
				got, ok, err := s.PopOldest()
				if err != nil {
					t.Fatalf("PopOldest: %v", err)
				}
				if !ok {
					t.Fatalf("PopOldest: store empty after %d pops, want %d items", i, n)
				}
				if got.ID != want[i] {
					t.Errorf("pop %d: got id %s, want %s", i, got.ID, want[i])
				}
			}

			if _, ok, _ := s.PopOldest(); ok {
				t.Error("store should be empty after draining")
			}
		})
	}
}

func TestStore_OldestIsMinimumID(t *testing.T) {
	// Insert deliberately out of ID order; "oldest" must still mean minimum.
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			for _, id := range []string{"b", "c", "a"} {
				err := s.Insert(&types.Item{ID: id, Content: id, Action: types.ActionAppend})
				if err != nil {
					t.Fatalf("Insert %s: %v", id, err)
				}
			}

			got, ok, err := s.Oldest()
			if err != nil || !ok {
				t.Fatalf("Oldest: ok=%v err=%v", ok, err)
			}
			if got.ID != "a" {
				t.Errorf("Oldest: got %s, want a", got.ID)
			}

			items, err := s.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			for i, want := range []string{"a", "b", "c"} {
				if items[i].ID != want {
					t.Errorf("List[%d]: got %s, want %s", i, items[i].ID, want)
				}
			}
		})
	}
}

// ─── At-most-once under concurrency ──────────────────────────────────────────

func TestStore_ConcurrentPop_NoDuplicates(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			const k = 50
			for i := 0; i < k; i++ {
				if err := s.Insert(newItem(t, fmt.Sprintf("item %d", i))); err != nil {
					t.Fatalf("Insert: %v", err)
				}
			}

			results := make(chan *types.Item, k)
			var wg sync.WaitGroup
			for i := 0; i < k; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					it, ok, err := s.PopOldest()
					if err != nil {
						t.Errorf("PopOldest: %v", err)
						return
					}
					if !ok {
						t.Error("PopOldest: empty, want an item for every caller")
						return
					}
					results <- it
				}()
			}
			wg.Wait()
			close(results)

			seen := make(map[string]bool, k)
			for it := range results {
				if seen[it.ID] {
					t.Errorf("item %s delivered twice", it.ID)
				}
				seen[it.ID] = true
			}
			if len(seen) != k {
				t.Errorf("got %d distinct items, want %d", len(seen), k)
			}

			if n, _ := s.Len(); n != 0 {
				t.Errorf("store not empty after draining: %d left", n)
			}
		})
	}
}

func TestStore_InterleavedProducerConsumer(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			const n = 100
			go func() {
				for i := 0; i < n; i++ {
					_ = s.Insert(newItem(t, fmt.Sprintf("item %d", i)))
				}
			}()

			// Drain until all n items arrive; IDs must come out strictly
			// increasing no matter how the inserts interleave.
			var prev string
			got := 0
			deadline := time.Now().Add(5 * time.Second)
			for got < n {
				if time.Now().After(deadline) {
					t.Fatalf("timed out after %d/%d items", got, n)
				}
				it, ok, err := s.PopOldest()
				if err != nil {
					t.Fatalf("PopOldest: %v", err)
				}
				if !ok {
					continue
				}
				if it.ID <= prev {
					t.Fatalf("order violated: %s after %s", it.ID, prev)
				}
				prev = it.ID
				got++
			}
		})
	}
}

// ─── Edge cases ───────────────────────────────────────────────────────────────

func TestStore_PopOldest_EmptyIsNotAnError(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			for i := 0; i < 3; i++ {
				it, ok, err := s.PopOldest()
				if err != nil {
					t.Fatalf("PopOldest on empty store: %v", err)
				}
				if ok || it != nil {
					t.Fatal("PopOldest on empty store should report ok=false")
				}
			}
		})
	}
}

func TestStore_Insert_DuplicateID(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			it := newItem(t, "once")
			if err := s.Insert(it); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if err := s.Insert(it); err != store.ErrDuplicateID {
				t.Errorf("duplicate Insert: got %v, want ErrDuplicateID", err)
			}
			if n, _ := s.Len(); n != 1 {
				t.Errorf("Len after duplicate insert: got %d, want 1", n)
			}
		})
	}
}

func TestStore_List_NonDestructive(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			first := newItem(t, "first")
			if err := s.Insert(first); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if err := s.Insert(newItem(t, "second")); err != nil {
				t.Fatalf("Insert: %v", err)
			}

			for i := 0; i < 5; i++ {
				items, err := s.List()
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				if len(items) != 2 {
					t.Fatalf("List pass %d: got %d items, want 2", i, len(items))
				}
			}

			got, ok, _ := s.PopOldest()
			if !ok || got.ID != first.ID {
				t.Errorf("PopOldest after List: got %+v, want first item", got)
			}
		})
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			it := newItem(t, "doomed")
			if err := s.Insert(it); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if err := s.Delete(it.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete(it.ID); err != nil {
				t.Errorf("second Delete: got %v, want nil", err)
			}
			if err := s.Delete("never-existed"); err != nil {
				t.Errorf("Delete of unknown id: got %v, want nil", err)
			}
			if n, _ := s.Len(); n != 0 {
				t.Errorf("Len after delete: got %d, want 0", n)
			}
		})
	}
}

func TestStore_RoundTripPreservesFields(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			in := &types.Item{
				ID:         store.MustNewID(),
				Content:    "# Heading\n\nbody text",
				Action:     types.ActionCreate,
				Collection: "Tasks",
				Title:      "New Note",
				CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			}
			if err := s.Insert(in); err != nil {
				t.Fatalf("Insert: %v", err)
			}

			out, ok, err := s.PopOldest()
			if err != nil || !ok {
				t.Fatalf("PopOldest: ok=%v err=%v", ok, err)
			}
			if out.Content != in.Content || out.Action != in.Action ||
				out.Collection != in.Collection || out.Title != in.Title {
				t.Errorf("round trip mangled item: got %+v", out)
			}
			if !out.CreatedAt.Equal(in.CreatedAt) {
				t.Errorf("CreatedAt: got %v, want %v", out.CreatedAt, in.CreatedAt)
			}
		})
	}
}
