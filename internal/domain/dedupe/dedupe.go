// Package dedupe remembers announced promotions so each is announced at most once.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen keys to ensure at-most-once side effects.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a later attempt may proceed. Used when a recorded
	// side effect could not even be scheduled.
	Unrecord(ctx context.Context, key string)

	Size() int
}

// PromotionKey identifies a promotion of a member to a level within a group.
// Levels only increase, so a key is legitimately produced at most once.
func PromotionKey(groupID, memberID string, level int) string {
	return groupID + ":" + memberID + ":" + strconv.Itoa(level)
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest when full.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
