package application

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/coaching-booking/internal/availability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type lessonTypeRepoStub struct {
	mu    sync.Mutex
	items map[string]LessonType

	createErr error
	deleteErr error
	deletedID string
}

func newLessonTypeRepoStub(items ...LessonType) *lessonTypeRepoStub {
	stub := &lessonTypeRepoStub{items: make(map[string]LessonType)}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (r *lessonTypeRepoStub) CreateLessonType(ctx context.Context, lessonType LessonType) (LessonType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return LessonType{}, r.createErr
	}
	r.items[lessonType.ID] = lessonType
	return lessonType, nil
}

func (r *lessonTypeRepoStub) GetLessonType(ctx context.Context, id string) (LessonType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return LessonType{}, ErrNotFound
	}
	return item, nil
}

func (r *lessonTypeRepoStub) UpdateLessonType(ctx context.Context, lessonType LessonType) (LessonType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[lessonType.ID]; !ok {
		return LessonType{}, ErrNotFound
	}
	r.items[lessonType.ID] = lessonType
	return lessonType, nil
}

func (r *lessonTypeRepoStub) DeleteLessonType(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	r.deletedID = id
	return nil
}

func (r *lessonTypeRepoStub) ListLessonTypes(ctx context.Context) ([]LessonType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LessonType, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

type athleteRepoStub struct {
	mu    sync.Mutex
	items map[string]Athlete

	deleteErr error
}

func newAthleteRepoStub(items ...Athlete) *athleteRepoStub {
	stub := &athleteRepoStub{items: make(map[string]Athlete)}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (r *athleteRepoStub) CreateAthlete(ctx context.Context, athlete Athlete) (Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[athlete.ID] = athlete
	return athlete, nil
}

func (r *athleteRepoStub) GetAthlete(ctx context.Context, id string) (Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Athlete{}, ErrNotFound
	}
	return item, nil
}

func (r *athleteRepoStub) UpdateAthlete(ctx context.Context, athlete Athlete) (Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[athlete.ID]; !ok {
		return Athlete{}, ErrNotFound
	}
	r.items[athlete.ID] = athlete
	return athlete, nil
}

func (r *athleteRepoStub) DeleteAthlete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *athleteRepoStub) ListAthletes(ctx context.Context) ([]Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Athlete, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *athleteRepoStub) MissingAthleteIDs(ctx context.Context, ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var missing []string
	for _, id := range ids {
		if _, ok := r.items[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type availabilityRepoStub struct {
	mu         sync.Mutex
	windows    []AvailabilityWindow
	exceptions []AvailabilityException

	listWindowCalls int
}

func (r *availabilityRepoStub) ListWindows(ctx context.Context) ([]AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listWindowCalls++
	out := make([]AvailabilityWindow, len(r.windows))
	copy(out, r.windows)
	return out, nil
}

func (r *availabilityRepoStub) ListExceptions(ctx context.Context, from, to *time.Time) ([]AvailabilityException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AvailabilityException
	for _, ex := range r.exceptions {
		if from != nil && ex.Date.Before(*from) {
			continue
		}
		if to != nil && ex.Date.After(*to) {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

func (r *availabilityRepoStub) CreateWindow(ctx context.Context, window AvailabilityWindow) (AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, window)
	return window, nil
}

func (r *availabilityRepoStub) GetWindow(ctx context.Context, id string) (AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.windows {
		if w.ID == id {
			return w, nil
		}
	}
	return AvailabilityWindow{}, ErrNotFound
}

func (r *availabilityRepoStub) UpdateWindow(ctx context.Context, window AvailabilityWindow) (AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.windows {
		if w.ID == window.ID {
			r.windows[i] = window
			return window, nil
		}
	}
	return AvailabilityWindow{}, ErrNotFound
}

func (r *availabilityRepoStub) DeleteWindow(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.windows {
		if w.ID == id {
			r.windows = append(r.windows[:i], r.windows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *availabilityRepoStub) CreateException(ctx context.Context, exception AvailabilityException) (AvailabilityException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptions = append(r.exceptions, exception)
	return exception, nil
}

func (r *availabilityRepoStub) DeleteException(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ex := range r.exceptions {
		if ex.ID == id {
			r.exceptions = append(r.exceptions[:i], r.exceptions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// bookingRepoStub serializes check and write under one mutex, matching the
// atomicity the SQLite repository provides with a write transaction.
type bookingRepoStub struct {
	mu    sync.Mutex
	items map[string]Booking
	order []string
}

func newBookingRepoStub(items ...Booking) *bookingRepoStub {
	stub := &bookingRepoStub{items: make(map[string]Booking)}
	for _, item := range items {
		stub.items[item.ID] = item
		stub.order = append(stub.order, item.ID)
	}
	return stub
}

func (r *bookingRepoStub) activeOnLocked(date time.Time, excludeID string) []Booking {
	var out []Booking
	for _, id := range r.order {
		b := r.items[id]
		if b.ID != excludeID && b.Status.Active() && availability.SameDate(b.Date, date) {
			out = append(out, b)
		}
	}
	return out
}

func (r *bookingRepoStub) ReserveBooking(ctx context.Context, booking Booking, check OccupancyCheck) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := check(r.activeOnLocked(booking.Date, "")); err != nil {
		return Booking{}, err
	}
	r.items[booking.ID] = booking
	r.order = append(r.order, booking.ID)
	return booking, nil
}

func (r *bookingRepoStub) RescheduleBooking(ctx context.Context, booking Booking, check OccupancyCheck) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[booking.ID]; !ok {
		return Booking{}, ErrNotFound
	}
	if err := check(r.activeOnLocked(booking.Date, booking.ID)); err != nil {
		return Booking{}, err
	}
	r.items[booking.ID] = booking
	return booking, nil
}

func (r *bookingRepoStub) UpdateBooking(ctx context.Context, booking Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[booking.ID]; !ok {
		return Booking{}, ErrNotFound
	}
	r.items[booking.ID] = booking
	return booking, nil
}

func (r *bookingRepoStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *bookingRepoStub) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, id := range r.order {
		b := r.items[id]
		if filter.From != nil && b.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && b.Date.After(*filter.To) {
			continue
		}
		if len(filter.Statuses) > 0 && !allowed(filter.Statuses, b.Status) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// countingCache wraps MemorySlotCache and records invalidations.
type countingCache struct {
	*MemorySlotCache
	mu            sync.Mutex
	invalidations int
}

func newCountingCache() *countingCache {
	return &countingCache{MemorySlotCache: NewMemorySlotCache(time.Minute, 0, nil)}
}

func (c *countingCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.invalidations++
	c.mu.Unlock()
	c.MemorySlotCache.Invalidate(ctx)
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}
