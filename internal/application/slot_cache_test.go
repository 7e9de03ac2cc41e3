package application

import (
	"context"
	"testing"
	"time"

	"github.com/example/coaching-booking/internal/availability"
)

func TestMemorySlotCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	cache := NewMemorySlotCache(time.Minute, 2, func() time.Time { return now })

	slots := []Slot{{Date: now, Start: availability.MustParseClock("09:00"), End: availability.MustParseClock("10:00")}}
	_, gen, _ := cache.Get(ctx, "a")
	cache.Store(ctx, "a", gen, slots)

	got, _, ok := cache.Get(ctx, "a")
	if !ok || len(got) != 1 {
		t.Fatalf("expected cached slots, got %v ok=%v", got, ok)
	}

	got[0].Start = availability.MustParseClock("11:00")
	again, _, _ := cache.Get(ctx, "a")
	if again[0].Start != availability.MustParseClock("09:00") {
		t.Fatalf("expected cache to return copies, got %v", again[0].Start)
	}

	t.Run("empty results are cached", func(t *testing.T) {
		cache.Store(ctx, "empty", gen, nil)
		if _, _, ok := cache.Get(ctx, "empty"); !ok {
			t.Fatalf("expected empty slot list to be a cache hit")
		}
	})

	t.Run("expires after ttl", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		if _, _, ok := cache.Get(ctx, "a"); ok {
			t.Fatalf("expected entry to expire")
		}
	})
}

func TestMemorySlotCache_BoundedAndInvalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemorySlotCache(time.Minute, 2, nil)
	cache.Store(ctx, "a", 0, nil)
	cache.Store(ctx, "b", 0, nil)
	cache.Store(ctx, "c", 0, nil)
	if got := cache.Len(); got != 2 {
		t.Fatalf("expected cache to hold at most 2 entries, got %d", got)
	}

	cache.Invalidate(ctx)
	if got := cache.Len(); got != 0 {
		t.Fatalf("expected invalidate to clear entries, got %d", got)
	}
}

func TestMemorySlotCache_StoreAfterInvalidateIsDropped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemorySlotCache(time.Minute, 0, nil)

	_, before, ok := cache.Get(ctx, "k")
	if ok {
		t.Fatal("expected a miss on an empty cache")
	}
	cache.Invalidate(ctx)
	cache.Store(ctx, "k", before, []Slot{{Start: availability.MustParseClock("09:00"), End: availability.MustParseClock("10:00")}})
	if _, _, ok := cache.Get(ctx, "k"); ok {
		t.Fatal("expected a store from an older generation to be dropped")
	}

	_, after, _ := cache.Get(ctx, "k")
	if after == before {
		t.Fatalf("expected invalidate to advance the generation, still %d", after)
	}
	cache.Store(ctx, "k", after, nil)
	if _, _, ok := cache.Get(ctx, "k"); !ok {
		t.Fatal("expected a store in the current generation to be kept")
	}
}

func TestSlotCacheKey_String(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	notBefore := availability.MustParseClock("13:15")

	key := SlotCacheKey{Date: date, LessonTypeID: "lt-1", Duration: 60, Granularity: 30}
	if got, want := key.String(), "2024-03-04|lt-1|60|30|-"; got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}

	key.NotBefore = &notBefore
	if got, want := key.String(), "2024-03-04|lt-1|60|30|13:15"; got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}
