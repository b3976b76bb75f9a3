package stream

import (
	"sync"
)

// Feed is a capped, newest-first published list. Items are keyed; publishing
// an item whose key is already present replaces that entry where it stands,
// otherwise the item is prepended and the oldest entry is dropped past capacity.
//
// Subscribers receive whole snapshots with latest-value semantics: a slow
// reader only ever sees the most recent list, and producers never block.
type Feed[T any] struct {
	name     string
	capacity int
	key      func(T) string

	mu     sync.RWMutex
	items  []T
	subs   map[int]chan []T
	nextID int
}

// NewFeed creates an empty feed.
func NewFeed[T any](name string, capacity int, key func(T) string) *Feed[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed[T]{
		name:     name,
		capacity: capacity,
		key:      key,
		items:    make([]T, 0, capacity),
		subs:     make(map[int]chan []T),
	}
}

// Name identifies the feed in logs and on the wire.
func (f *Feed[T]) Name() string { return f.name }

// Capacity is the maximum number of retained items.
func (f *Feed[T]) Capacity() int { return f.capacity }

// Publish inserts or replaces an item and notifies subscribers.
func (f *Feed[T]) Publish(item T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := f.key(item)
	for i := range f.items {
		if f.key(f.items[i]) == k {
			f.items[i] = item
			f.notifyLocked()
			return
		}
	}

	f.items = append(f.items, item)
	copy(f.items[1:], f.items[:len(f.items)-1])
	f.items[0] = item
	if len(f.items) > f.capacity {
		f.items = f.items[:f.capacity]
	}
	f.notifyLocked()
}

// Replace swaps the whole list, truncated to capacity.
func (f *Feed[T]) Replace(items []T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(items) > f.capacity {
		items = items[:f.capacity]
	}
	f.items = append(make([]T, 0, f.capacity), items...)
	f.notifyLocked()
}

// Remove drops every item matching the predicate.
func (f *Feed[T]) Remove(match func(T) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	removed := 0
	for _, it := range f.items {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept
	if removed > 0 {
		f.notifyLocked()
	}
	return removed
}

// Clear empties the feed.
func (f *Feed[T]) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = f.items[:0]
	f.notifyLocked()
}

// Snapshot returns a copy of the current list, newest first.
func (f *Feed[T]) Snapshot() []T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

// Get returns the item stored under key.
func (f *Feed[T]) Get(key string) (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, it := range f.items {
		if f.key(it) == key {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of items.
func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Subscribe registers a reader. The returned channel immediately holds the
// current snapshot. Call cancel to unsubscribe; the channel is then closed.
func (f *Feed[T]) Subscribe() (<-chan []T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan []T, 1)
	f.subs[id] = ch
	ch <- f.snapshotLocked()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (f *Feed[T]) snapshotLocked() []T {
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed[T]) notifyLocked() {
	if len(f.subs) == 0 {
		return
	}
	snap := f.snapshotLocked()
	for _, ch := range f.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot the reader has not consumed yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
