package application

import (
	"time"

	"github.com/example/coaching-booking/internal/availability"
)

// Principal represents the caller invoking a service method. The zero value
// is an anonymous public caller.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// LessonTypeInput captures caller provided lesson type fields.
type LessonTypeInput struct {
	Name            string
	Description     *string
	DurationMinutes int
	MinAthletes     int
	MaxAthletes     int
	PriceCents      int64
	// Active defaults to true on create when nil.
	Active *bool
}

// LessonType describes a bookable lesson offering.
type LessonType struct {
	ID              string
	Name            string
	Description     *string
	DurationMinutes int
	MinAthletes     int
	MaxAthletes     int
	PriceCents      int64
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateLessonTypeParams wraps the data required to create a lesson type.
type CreateLessonTypeParams struct {
	Principal Principal
	Input     LessonTypeInput
}

// UpdateLessonTypeParams wraps the data required to update a lesson type.
type UpdateLessonTypeParams struct {
	Principal    Principal
	LessonTypeID string
	Input        LessonTypeInput
}

// AthleteInput captures caller provided athlete and parent contact fields.
type AthleteInput struct {
	FirstName   string
	LastName    string
	BirthDate   string
	SkillLevel  *string
	ParentName  string
	ParentEmail string
	ParentPhone *string
	Notes       *string
}

// Athlete represents a gymnast together with the responsible parent.
type Athlete struct {
	ID          string
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	SkillLevel  *string
	ParentName  string
	ParentEmail string
	ParentPhone *string
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RegisterAthleteParams wraps the data required to register an athlete.
type RegisterAthleteParams struct {
	Principal Principal
	Input     AthleteInput
}

// UpdateAthleteParams wraps the data required to update an athlete.
type UpdateAthleteParams struct {
	Principal Principal
	AthleteID string
	Input     AthleteInput
}

// WindowInput captures caller provided availability window fields. Times use
// HH:MM and dates YYYY-MM-DD. When Date is set the weekday is derived from it.
type WindowInput struct {
	Weekday   *int
	Start     string
	End       string
	Recurring bool
	Available bool
	Date      string
	Note      *string
}

// AvailabilityWindow is an opening or block on the coaching calendar.
type AvailabilityWindow struct {
	ID        string
	Weekday   time.Weekday
	Start     availability.ClockTime
	End       availability.ClockTime
	Recurring bool
	Available bool
	Date      *time.Time
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Override reports whether the window reaches outside normal coaching hours.
func (w AvailabilityWindow) Override() bool {
	return availability.IsOverride(w.Start, w.End)
}

// CreateWindowParams wraps the data required to create a window.
type CreateWindowParams struct {
	Principal Principal
	Input     WindowInput
}

// UpdateWindowParams wraps the data required to update a window.
type UpdateWindowParams struct {
	Principal Principal
	WindowID  string
	Input     WindowInput
}

// ExceptionInput captures caller provided exception fields. Start and End are
// either both empty (whole day) or both HH:MM.
type ExceptionInput struct {
	Date      string
	Start     string
	End       string
	Available bool
	Reason    *string
}

// AvailabilityException overrides the weekly calendar on one date.
type AvailabilityException struct {
	ID        string
	Date      time.Time
	Start     *availability.ClockTime
	End       *availability.ClockTime
	Available bool
	Reason    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateExceptionParams wraps the data required to create an exception.
type CreateExceptionParams struct {
	Principal Principal
	Input     ExceptionInput
}

// ListExceptionsParams bounds an exception listing. Empty bounds are open.
type ListExceptionsParams struct {
	From string
	To   string
}

// GetSlotsParams identifies the date and lesson to compute slots for.
type GetSlotsParams struct {
	Date         string
	LessonTypeID string
}

// ListAvailableDaysParams identifies the date range and lesson to summarise.
type ListAvailableDaysParams struct {
	From         string
	To           string
	LessonTypeID string
}

// Slot is a bookable lesson start on Date.
type Slot struct {
	Date     time.Time
	Start    availability.ClockTime
	End      availability.ClockTime
	Override bool
}

// DaySlots summarises the slots available on one date.
type DaySlots struct {
	Date      time.Time
	SlotCount int
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no_show"
)

// Active reports whether a booking in this status holds its slot.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// PaymentStatus tracks payment for a booking.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	LessonTypeID string
	Date         string
	Time         string
	AthleteIDs   []string
	ContactName  string
	ContactEmail string
	Notes        *string
}

// Booking is a reserved lesson.
type Booking struct {
	ID              string
	LessonTypeID    string
	Date            time.Time
	Start           availability.ClockTime
	DurationMinutes int
	AthleteIDs      []string
	Status          BookingStatus
	PaymentStatus   PaymentStatus
	ContactName     string
	ContactEmail    string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// End returns the clock time the lesson finishes.
func (b Booking) End() availability.ClockTime {
	return b.Start.Add(b.DurationMinutes)
}

// Occupancy returns the calendar footprint of the booking.
func (b Booking) Occupancy() availability.Occupancy {
	return availability.Occupancy{Date: b.Date, Start: b.Start, Duration: b.DurationMinutes}
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// ListBookingsParams filters a booking listing. Empty bounds are open.
type ListBookingsParams struct {
	Principal Principal
	From      string
	To        string
	Statuses  []string
}

// UpdateBookingStatusParams wraps a status transition request.
type UpdateBookingStatusParams struct {
	Principal Principal
	BookingID string
	Status    string
}

// UpdatePaymentStatusParams wraps a payment status transition request.
type UpdatePaymentStatusParams struct {
	Principal     Principal
	BookingID     string
	PaymentStatus string
}

// RescheduleBookingParams wraps a request to move a booking.
type RescheduleBookingParams struct {
	Principal Principal
	BookingID string
	Date      string
	Time      string
}
