package application

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/coaching-booking/internal/availability"
)

// SlotCache stores computed slot lists between availability changes.
// Implementations must be safe for concurrent use. A cache is only a read
// optimisation; booking conflict checks always recompute.
//
// Get reports the cache generation it observed, hit or miss. Store must drop
// the write when Invalidate ran after that generation was observed, so a list
// computed from data read before a change is never cached after it.
type SlotCache interface {
	Get(ctx context.Context, key string) (slots []Slot, generation int64, ok bool)
	Store(ctx context.Context, key string, generation int64, slots []Slot)
	Invalidate(ctx context.Context)
}

// SlotCacheKey identifies one slot computation.
type SlotCacheKey struct {
	Date         time.Time
	LessonTypeID string
	Duration     int
	Granularity  int
	NotBefore    *availability.ClockTime
}

// String renders the key in a stable form usable by external caches.
func (k SlotCacheKey) String() string {
	notBefore := "-"
	if k.NotBefore != nil {
		notBefore = k.NotBefore.String()
	}
	builder := strings.Builder{}
	builder.WriteString(availability.FormatDate(k.Date))
	builder.WriteString("|")
	builder.WriteString(k.LessonTypeID)
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(k.Duration))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(k.Granularity))
	builder.WriteString("|")
	builder.WriteString(notBefore)
	return builder.String()
}

// MemorySlotCache is an in-process SlotCache with a TTL and a bounded size.
type MemorySlotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	generation int64
	entries    map[string]slotCacheEntry
}

type slotCacheEntry struct {
	slots     []Slot
	expiresAt time.Time
}

// NewMemorySlotCache builds an in-memory cache. Non-positive ttl and
// maxEntries fall back to 30 seconds and 512 entries.
func NewMemorySlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *MemorySlotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	return &MemorySlotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]slotCacheEntry),
	}
}

// Get returns a copy of the cached slots for key and the current generation.
func (c *MemorySlotCache) Get(_ context.Context, key string) ([]Slot, int64, bool) {
	if c == nil {
		return nil, 0, false
	}
	c.mu.RLock()
	gen := c.generation
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, gen, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, gen, false
	}
	return cloneSlots(entry.slots), gen, true
}

// Store caches a copy of slots under key unless the cache was invalidated
// since generation was read.
func (c *MemorySlotCache) Store(_ context.Context, key string, generation int64, slots []Slot) {
	if c == nil {
		return
	}
	cloned := cloneSlots(slots)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = slotCacheEntry{slots: cloned, expiresAt: expiry}
}

// Invalidate drops every entry.
func (c *MemorySlotCache) Invalidate(context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generation++
	c.entries = make(map[string]slotCacheEntry)
	c.mu.Unlock()
}

// Len reports the number of live and expired entries currently held.
func (c *MemorySlotCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemorySlotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemorySlotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSlots(slots []Slot) []Slot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

type noopSlotCache struct{}

func (noopSlotCache) Get(context.Context, string) ([]Slot, int64, bool) { return nil, 0, false }
func (noopSlotCache) Store(context.Context, string, int64, []Slot)      {}
func (noopSlotCache) Invalidate(context.Context)                        {}
