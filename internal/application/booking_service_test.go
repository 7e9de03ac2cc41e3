package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/coaching-booking/internal/availability"
)

type bookingHarness struct {
	calendar *availabilityRepoStub
	bookings *bookingRepoStub
	cache    *countingCache
	svc      *BookingService
}

func newBookingHarness(t *testing.T) *bookingHarness {
	t.Helper()
	h := &bookingHarness{
		calendar: &availabilityRepoStub{windows: []AvailabilityWindow{{
			ID:        "win-1",
			Weekday:   time.Monday,
			Start:     availability.MustParseClock("09:00"),
			End:       availability.MustParseClock("12:00"),
			Recurring: true,
			Available: true,
		}}},
		bookings: newBookingRepoStub(),
		cache:    newCountingCache(),
	}
	lessonTypes := newLessonTypeRepoStub(
		LessonType{ID: "private", Name: "Private", DurationMinutes: 60, MinAthletes: 1, MaxAthletes: 1, Active: true},
		LessonType{ID: "group", Name: "Group", DurationMinutes: 90, MinAthletes: 2, MaxAthletes: 4, Active: true},
		LessonType{ID: "retired", Name: "Retired", DurationMinutes: 60, MinAthletes: 1, MaxAthletes: 1, Active: false},
	)
	athletes := newAthleteRepoStub(
		Athlete{ID: "ath-1", FirstName: "Maya"},
		Athlete{ID: "ath-2", FirstName: "Leo"},
		Athlete{ID: "ath-3", FirstName: "Ivy"},
	)
	h.svc = NewBookingServiceWithLogger(
		h.bookings,
		h.calendar,
		lessonTypes,
		athletes,
		SlotSettings{Granularity: 30, HorizonDays: 90, Location: time.UTC, Cache: h.cache},
		sequentialIDs("bk"),
		fixedNow(availabilityNow),
		discardLogger(),
	)
	return h
}

func bookingRequest(date, clock string, athleteIDs ...string) CreateBookingParams {
	if len(athleteIDs) == 0 {
		athleteIDs = []string{"ath-1"}
	}
	return CreateBookingParams{Input: BookingInput{
		LessonTypeID: "private",
		Date:         date,
		Time:         clock,
		AthleteIDs:   athleteIDs,
		ContactName:  "Dana Parent",
		ContactEmail: "Dana@Example.com",
	}}
}

func TestBookingService_CreateBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores a pending unpaid booking", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t)

		booking, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:00"))
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}
		if booking.ID != "bk-1" || booking.Status != BookingPending || booking.PaymentStatus != PaymentUnpaid {
			t.Fatalf("unexpected booking %+v", booking)
		}
		if booking.DurationMinutes != 60 || booking.End() != availability.MustParseClock("11:00") {
			t.Fatalf("expected 60 minute lesson snapshot, got %+v", booking)
		}
		if booking.ContactEmail != "dana@example.com" {
			t.Fatalf("expected normalized contact email, got %q", booking.ContactEmail)
		}
		if h.cache.count() != 1 {
			t.Fatalf("expected booking to invalidate cached slots")
		}
	})

	t.Run("validates the request", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t)

		_, err := h.svc.CreateBooking(ctx, CreateBookingParams{Input: BookingInput{
			Date:         "2024-03-01",
			Time:         "25:00",
			AthleteIDs:   []string{"ath-1", "ath-1"},
			ContactEmail: "not-an-email",
		}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"date", "time", "lesson_type_id", "contact_name", "contact_email", "athlete_ids"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects unknown or inactive lesson types and bad athletes", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t)

		cases := []struct {
			name  string
			mod   func(*CreateBookingParams)
			field string
		}{
			{name: "unknown lesson type", mod: func(p *CreateBookingParams) { p.Input.LessonTypeID = "missing" }, field: "lesson_type_id"},
			{name: "inactive lesson type", mod: func(p *CreateBookingParams) { p.Input.LessonTypeID = "retired" }, field: "lesson_type_id"},
			{name: "too few athletes for group", mod: func(p *CreateBookingParams) { p.Input.LessonTypeID = "group" }, field: "athlete_ids"},
			{name: "unknown athlete", mod: func(p *CreateBookingParams) { p.Input.AthleteIDs = []string{"ghost"} }, field: "athlete_ids"},
		}
		for _, tc := range cases {
			params := bookingRequest("2024-03-11", "10:00")
			tc.mod(&params)
			_, err := h.svc.CreateBooking(ctx, params)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("%s: expected %s error, got %v", tc.name, tc.field, vErr.FieldErrors)
			}
		}
	})

	t.Run("times that are not computed slots conflict", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t)

		for _, clock := range []string{"09:15", "11:30", "13:00"} {
			_, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", clock))
			if !errors.Is(err, ErrConflict) || !errors.Is(err, availability.ErrOutsideAvailability) {
				t.Fatalf("CreateBooking at %s expected outside availability conflict, got %v", clock, err)
			}
		}
	})

	t.Run("overlapping bookings conflict", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t)

		if _, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:00")); err != nil {
			t.Fatalf("first booking failed: %v", err)
		}
		_, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:30", "ath-2"))
		if !errors.Is(err, ErrConflict) || !errors.Is(err, availability.ErrSlotTaken) {
			t.Fatalf("expected slot taken conflict, got %v", err)
		}
		if _, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "11:00", "ath-2")); err != nil {
			t.Fatalf("adjacent booking should succeed, got %v", err)
		}
	})

	t.Run("blocked day conflicts", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t)
		h.calendar.exceptions = []AvailabilityException{{ID: "ex-1", Date: mustDate(t, "2024-03-11"), Available: false}}

		_, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:00"))
		if !errors.Is(err, ErrConflict) || !errors.Is(err, availability.ErrDayBlocked) {
			t.Fatalf("expected blocked day conflict, got %v", err)
		}
	})

	t.Run("identical concurrent requests yield one booking", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t)

		const attempts = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
			others    []error
		)
		start := make(chan struct{})
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:00"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrConflict):
					conflicts++
				default:
					others = append(others, err)
				}
			}()
		}
		close(start)
		wg.Wait()

		if successes != 1 || conflicts != attempts-1 || len(others) != 0 {
			t.Fatalf("expected 1 success and %d conflicts, got %d successes, %d conflicts, errors %v", attempts-1, successes, conflicts, others)
		}
	})
}

func TestBookingService_StatusLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	admin := Principal{UserID: "coach", IsAdmin: true}
	h := newBookingHarness(t)

	booking, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:00"))
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}

	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{BookingID: booking.ID, Status: "confirmed"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	confirmed, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: booking.ID, Status: "confirmed"})
	if err != nil {
		t.Fatalf("confirm returned error: %v", err)
	}
	if confirmed.Status != BookingConfirmed {
		t.Fatalf("expected confirmed booking, got %s", confirmed.Status)
	}

	var vErr *ValidationError
	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: booking.ID, Status: "pending"}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for confirmed -> pending, got %v", err)
	}
	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: booking.ID, Status: "archived"}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: "missing", Status: "cancelled"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:00", "ath-2")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected confirmed booking to hold the slot, got %v", err)
	}

	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: booking.ID, Status: "cancelled"}); err != nil {
		t.Fatalf("cancel returned error: %v", err)
	}
	if _, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "10:00", "ath-2")); err != nil {
		t.Fatalf("expected cancelled slot to be bookable again, got %v", err)
	}
	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: booking.ID, Status: "confirmed"}); !errors.As(err, &vErr) {
		t.Fatalf("expected cancelled booking to be final, got %v", err)
	}
}

func TestBookingService_UpdatePaymentStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	admin := Principal{IsAdmin: true}
	h := newBookingHarness(t)

	booking, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "09:00"))
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}

	steps := []struct {
		next    string
		wantErr bool
	}{
		{next: "refunded", wantErr: true},
		{next: "failed"},
		{next: "paid"},
		{next: "unpaid", wantErr: true},
		{next: "refunded"},
		{next: "bitcoin", wantErr: true},
	}
	for _, step := range steps {
		updated, err := h.svc.UpdatePaymentStatus(ctx, UpdatePaymentStatusParams{Principal: admin, BookingID: booking.ID, PaymentStatus: step.next})
		if step.wantErr {
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("payment -> %s expected ValidationError, got %v", step.next, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("payment -> %s returned error: %v", step.next, err)
		}
		if string(updated.PaymentStatus) != step.next {
			t.Fatalf("payment status = %s, want %s", updated.PaymentStatus, step.next)
		}
	}
}

func TestBookingService_RescheduleBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	admin := Principal{IsAdmin: true}
	h := newBookingHarness(t)

	first, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "09:00"))
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}
	second, err := h.svc.CreateBooking(ctx, bookingRequest("2024-03-11", "11:00", "ath-2"))
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}

	moved, err := h.svc.RescheduleBooking(ctx, RescheduleBookingParams{Principal: admin, BookingID: first.ID, Date: "2024-03-11", Time: "09:30"})
	if err != nil {
		t.Fatalf("moving onto its own time should not conflict, got %v", err)
	}
	if moved.Start != availability.MustParseClock("09:30") || moved.DurationMinutes != 60 {
		t.Fatalf("unexpected rescheduled booking %+v", moved)
	}

	if _, err := h.svc.RescheduleBooking(ctx, RescheduleBookingParams{Principal: admin, BookingID: first.ID, Date: "2024-03-11", Time: "10:30"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict with the 11:00 booking, got %v", err)
	}

	if _, err := h.svc.RescheduleBooking(ctx, RescheduleBookingParams{Principal: admin, BookingID: first.ID, Date: "2024-03-18", Time: "11:00"}); err != nil {
		t.Fatalf("moving to next week returned error: %v", err)
	}

	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: second.ID, Status: "cancelled"}); err != nil {
		t.Fatalf("cancel returned error: %v", err)
	}
	var vErr *ValidationError
	if _, err := h.svc.RescheduleBooking(ctx, RescheduleBookingParams{Principal: admin, BookingID: second.ID, Date: "2024-03-18", Time: "09:00"}); !errors.As(err, &vErr) {
		t.Fatalf("expected cancelled booking to be rejected, got %v", err)
	}
	if _, err := h.svc.RescheduleBooking(ctx, RescheduleBookingParams{BookingID: first.ID, Date: "2024-03-18", Time: "09:00"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestBookingService_ListBookings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	admin := Principal{IsAdmin: true}
	h := newBookingHarness(t)

	for _, req := range []CreateBookingParams{
		bookingRequest("2024-03-11", "09:00"),
		bookingRequest("2024-03-18", "09:00"),
	} {
		if _, err := h.svc.CreateBooking(ctx, req); err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}
	}
	if _, err := h.svc.UpdateBookingStatus(ctx, UpdateBookingStatusParams{Principal: admin, BookingID: "bk-2", Status: "cancelled"}); err != nil {
		t.Fatalf("cancel returned error: %v", err)
	}

	if _, err := h.svc.ListBookings(ctx, ListBookingsParams{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	all, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: admin})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 bookings, got %d (err %v)", len(all), err)
	}

	pending, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: admin, Statuses: []string{"pending"}})
	if err != nil || len(pending) != 1 || pending[0].ID != "bk-1" {
		t.Fatalf("expected only bk-1 pending, got %+v (err %v)", pending, err)
	}

	ranged, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: admin, From: "2024-03-12", To: "2024-03-31"})
	if err != nil || len(ranged) != 1 || ranged[0].ID != "bk-2" {
		t.Fatalf("expected only bk-2 in range, got %+v (err %v)", ranged, err)
	}

	var vErr *ValidationError
	if _, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: admin, Statuses: []string{"lost"}}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}

	booking, err := h.svc.GetBooking(ctx, admin, "bk-1")
	if err != nil || booking.ID != "bk-1" {
		t.Fatalf("GetBooking returned %+v (err %v)", booking, err)
	}
	if _, err := h.svc.GetBooking(ctx, Principal{}, "bk-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
