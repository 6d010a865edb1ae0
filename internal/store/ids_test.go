package store_test

import (
	"sync"
	"testing"

	"github.com/snehjoshi/mdbridge/internal/store"
)

func TestNewID_StrictlyIncreasing(t *testing.T) {
	// A tight loop generates many IDs inside the same millisecond; the
	// monotonic entropy source must keep them strictly ordered anyway.
	const n = 5000
	prev := ""
	for i := 0; i < n; i++ {
		id, err := store.NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if id <= prev {
			t.Fatalf("id %d not increasing: %s after %s", i, id, prev)
		}
		prev = id
	}
}

func TestNewID_ConcurrentUnique(t *testing.T) {
	const (
		goroutines = 10
		perG       = 200
	)
	ids := make(chan string, goroutines*perG)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				id, err := store.NewID()
				if err != nil {
					t.Errorf("NewID: %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, goroutines*perG)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != goroutines*perG {
		t.Errorf("got %d distinct ids, want %d", len(seen), goroutines*perG)
	}
}
