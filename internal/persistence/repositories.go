package persistence

import (
	"context"
	"time"
)

// LessonTypeRepository exposes CRUD operations for lesson types.
type LessonTypeRepository interface {
	CreateLessonType(ctx context.Context, lessonType LessonType) error
	UpdateLessonType(ctx context.Context, lessonType LessonType) error
	GetLessonType(ctx context.Context, id string) (LessonType, error)
	ListLessonTypes(ctx context.Context) ([]LessonType, error)
	DeleteLessonType(ctx context.Context, id string) error
}

// AthleteRepository exposes CRUD operations for athletes.
type AthleteRepository interface {
	CreateAthlete(ctx context.Context, athlete Athlete) error
	UpdateAthlete(ctx context.Context, athlete Athlete) error
	GetAthlete(ctx context.Context, id string) (Athlete, error)
	ListAthletes(ctx context.Context) ([]Athlete, error)
	DeleteAthlete(ctx context.Context, id string) error
	// MissingAthleteIDs returns the subset of ids that do not exist.
	MissingAthleteIDs(ctx context.Context, ids []string) ([]string, error)
}

// DateRange bounds queries by calendar date. Nil bounds are open; both ends are inclusive.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// AvailabilityRepository stores availability windows and exceptions.
type AvailabilityRepository interface {
	CreateWindow(ctx context.Context, window AvailabilityWindow) error
	UpdateWindow(ctx context.Context, window AvailabilityWindow) error
	GetWindow(ctx context.Context, id string) (AvailabilityWindow, error)
	ListWindows(ctx context.Context) ([]AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id string) error

	CreateException(ctx context.Context, exception AvailabilityException) error
	GetException(ctx context.Context, id string) (AvailabilityException, error)
	ListExceptions(ctx context.Context, dates DateRange) ([]AvailabilityException, error)
	DeleteException(ctx context.Context, id string) error
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	Dates    DateRange
	Statuses []string
}

// ReservationCheck inspects the bookings that occupy the target date inside
// the reserving transaction. Returning an error aborts the reservation.
type ReservationCheck func(occupied []Booking) error

// BookingRepository stores bookings.
type BookingRepository interface {
	// ReserveBooking inserts booking after check approves the bookings that
	// currently occupy its date. Both steps run in one write transaction.
	ReserveBooking(ctx context.Context, booking Booking, check ReservationCheck) error
	// RescheduleBooking moves an existing booking under the same guarantees.
	// The booking itself is excluded from the occupied set handed to check.
	RescheduleBooking(ctx context.Context, booking Booking, check ReservationCheck) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}
