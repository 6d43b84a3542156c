package dedup

import "sync"

// Store tracks keys that were already processed so callers can skip
// duplicate work. Implementations must be safe for concurrent use.
type Store interface {
	// MarkSeen records the key and reports whether it was already present.
	MarkSeen(key string) bool
	Len() int
}

// Bounded is an in-memory Store capped at a fixed number of keys. Once the
// cap is reached the oldest keys are evicted first.
type Bounded struct {
	mu    sync.Mutex
	cap   int
	index map[string]struct{}
	order []string
	head  int
}

// NewBounded returns a Store holding at most capacity keys. A non-positive
// capacity falls back to 1024.
func NewBounded(capacity int) *Bounded {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Bounded{
		cap:   capacity,
		index: make(map[string]struct{}, capacity),
		order: make([]string, 0, capacity),
	}
}

func (b *Bounded) MarkSeen(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.index[key]; ok {
		return true
	}
	if len(b.index) >= b.cap {
		oldest := b.order[b.head]
		delete(b.index, oldest)
		b.order[b.head] = key
		b.head = (b.head + 1) % b.cap
	} else {
		b.order = append(b.order, key)
	}
	b.index[key] = struct{}{}
	return false
}

func (b *Bounded) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.index)
}
