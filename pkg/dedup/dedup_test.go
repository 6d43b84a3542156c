package dedup

import (
	"fmt"
	"testing"
)

func TestMarkSeenReportsDuplicates(t *testing.T) {
	store := NewBounded(10)

	if store.MarkSeen("order-1") {
		t.Fatal("first mark should not be seen")
	}
	if !store.MarkSeen("order-1") {
		t.Fatal("second mark should be seen")
	}
	if store.MarkSeen("order-2") {
		t.Fatal("distinct key should not be seen")
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", store.Len())
	}
}

func TestBoundedEvictsOldestFirst(t *testing.T) {
	store := NewBounded(3)
	for i := 0; i < 3; i++ {
		store.MarkSeen(fmt.Sprintf("key-%d", i))
	}

	// Pushes key-0 out of the window.
	store.MarkSeen("key-3")

	if store.Len() != 3 {
		t.Fatalf("expected capped size 3, got %d", store.Len())
	}
	if store.MarkSeen("key-0") {
		t.Fatal("evicted key should behave as unseen")
	}
	if !store.MarkSeen("key-3") {
		t.Fatal("recent key should still be tracked")
	}
}

func TestNewBoundedDefaultsCapacity(t *testing.T) {
	store := NewBounded(0)
	if store.cap != 1024 {
		t.Fatalf("expected fallback capacity 1024, got %d", store.cap)
	}
}
