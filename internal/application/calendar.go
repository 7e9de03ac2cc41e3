package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/coaching-booking/internal/availability"
)

// DefaultHorizonDays bounds how far ahead slots can be requested.
const DefaultHorizonDays = 90

// maxDayRange is the longest span ListAvailableDays accepts, inclusive.
const maxDayRange = 31

// SlotSettings configures slot generation shared by the availability and
// booking services.
type SlotSettings struct {
	// Granularity is the spacing between candidate starts in minutes.
	Granularity int
	// HorizonDays is how many days past today may be booked.
	HorizonDays int
	// Location is the business timezone used to decide "today" and "now".
	Location *time.Location
	// Cache stores computed slots. Nil disables caching.
	Cache SlotCache
}

func (s SlotSettings) withDefaults() SlotSettings {
	if s.Granularity <= 0 {
		s.Granularity = availability.DefaultGranularity
	}
	if s.HorizonDays <= 0 {
		s.HorizonDays = DefaultHorizonDays
	}
	if s.Location == nil {
		s.Location = time.UTC
	}
	if s.Cache == nil {
		s.Cache = noopSlotCache{}
	}
	return s
}

// LessonTypeCatalog resolves lesson types for slot computation and booking.
type LessonTypeCatalog interface {
	GetLessonType(ctx context.Context, id string) (LessonType, error)
}

// CalendarSource loads the windows and exceptions the slot computation needs.
type CalendarSource interface {
	ListWindows(ctx context.Context) ([]AvailabilityWindow, error)
	ListExceptions(ctx context.Context, from, to *time.Time) ([]AvailabilityException, error)
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	From     *time.Time
	To       *time.Time
	Statuses []BookingStatus
}

// BookingLister lists bookings matching a filter.
type BookingLister interface {
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// businessClock reports today's date and the current clock time in the
// business timezone.
type businessClock struct {
	now      func() time.Time
	location *time.Location
}

func (c businessClock) today() (time.Time, availability.ClockTime) {
	local := c.now().In(c.location)
	return availability.DateOf(local), availability.ClockOf(local)
}

// slotOptions returns the computation options for date, validating that the
// date is neither past nor beyond the horizon.
func (c businessClock) slotOptions(settings SlotSettings, field string, date time.Time) (availability.Options, *ValidationError) {
	today, clock := c.today()
	opts := availability.Options{Granularity: settings.Granularity}

	switch {
	case date.Before(today):
		return opts, fieldError(field, field+" must not be in the past")
	case date.After(today.AddDate(0, 0, settings.HorizonDays)):
		return opts, fieldError(field, fmt.Sprintf("%s must be within %d days", field, settings.HorizonDays))
	case date.Equal(today):
		opts.NotBefore = &clock
	}
	return opts, nil
}

// loadCalendar gathers windows and exceptions covering [from, to].
func loadCalendar(ctx context.Context, source CalendarSource, from, to time.Time) (availability.Calendar, error) {
	windows, err := source.ListWindows(ctx)
	if err != nil {
		return availability.Calendar{}, fmt.Errorf("load availability windows: %w", err)
	}
	exceptions, err := source.ListExceptions(ctx, &from, &to)
	if err != nil {
		return availability.Calendar{}, fmt.Errorf("load availability exceptions: %w", err)
	}

	cal := availability.Calendar{
		Windows:    make([]availability.Window, 0, len(windows)),
		Exceptions: make([]availability.Exception, 0, len(exceptions)),
	}
	for _, w := range windows {
		cal.Windows = append(cal.Windows, w.toAvailability())
	}
	for _, ex := range exceptions {
		cal.Exceptions = append(cal.Exceptions, ex.toAvailability())
	}
	return cal, nil
}

func occupancies(bookings []Booking) []availability.Occupancy {
	out := make([]availability.Occupancy, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == "" || b.Status.Active() {
			out = append(out, b.Occupancy())
		}
	}
	return out
}

func activeStatuses() []BookingStatus {
	return []BookingStatus{BookingPending, BookingConfirmed}
}

func (w AvailabilityWindow) toAvailability() availability.Window {
	out := availability.Window{
		Weekday:   w.Weekday,
		Start:     w.Start,
		End:       w.End,
		Recurring: w.Recurring,
		Available: w.Available,
	}
	if w.Date != nil {
		out.Date = *w.Date
	}
	return out
}

func (e AvailabilityException) toAvailability() availability.Exception {
	out := availability.Exception{
		Date:      e.Date,
		Start:     e.Start,
		End:       e.End,
		Available: e.Available,
	}
	if e.Reason != nil {
		out.Reason = *e.Reason
	}
	return out
}

func toSlots(date time.Time, computed []availability.Slot) []Slot {
	if len(computed) == 0 {
		return nil
	}
	slots := make([]Slot, len(computed))
	for i, s := range computed {
		slots[i] = Slot{Date: date, Start: s.Start, End: s.End, Override: s.Override}
	}
	return slots
}
