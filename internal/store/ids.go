package store

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// monoEntropy is a package-level monotone entropy source shared across all
// NewID calls. Using a single shared source ensures that IDs remain strictly
// lexicographically ordered even when many items are accepted within the same
// millisecond — this is the property the whole ordering guarantee rests on.
var (
	monoMu      sync.Mutex
	monoEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewID generates a fresh time-ordered ULID string. The mutex ensures
// monotonicity across concurrent producer requests.
func NewID() (string, error) {
	monoMu.Lock()
	defer monoMu.Unlock()
	ms := ulid.Timestamp(time.Now())
	id, err := ulid.New(ms, monoEntropy)
	if err != nil {
		return "", fmt.Errorf("store: generate id: %w", err)
	}
	return id.String(), nil
}

// MustNewID is like NewID but panics on error. Use only in tests.
func MustNewID() string {
	id, err := NewID()
	if err != nil {
		panic(fmt.Sprintf("store.MustNewID: %v", err))
	}
	return id
}
