package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/coaching-booking/internal/availability"
	"github.com/example/coaching-booking/internal/persistence"
)

// OccupancyCheck inspects the active bookings on the target date inside the
// reserving transaction. A non-nil error aborts the write.
type OccupancyCheck func(occupied []Booking) error

// BookingRepository captures the persistence operations needed by the service.
// ReserveBooking and RescheduleBooking must run check and write atomically so
// two reservations for the same time cannot both succeed.
type BookingRepository interface {
	BookingLister
	ReserveBooking(ctx context.Context, booking Booking, check OccupancyCheck) (Booking, error)
	RescheduleBooking(ctx context.Context, booking Booking, check OccupancyCheck) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
}

// AthleteDirectory validates athlete references.
type AthleteDirectory interface {
	MissingAthleteIDs(ctx context.Context, ids []string) ([]string, error)
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled, BookingNoShow},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid: {PaymentPaid, PaymentFailed},
	PaymentFailed: {PaymentPaid},
	PaymentPaid:   {PaymentRefunded},
}

// BookingService creates bookings and manages their lifecycle.
type BookingService struct {
	bookings    BookingRepository
	calendar    CalendarSource
	lessonTypes LessonTypeCatalog
	athletes    AthleteDirectory
	settings    SlotSettings
	clock       businessClock
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(bookings BookingRepository, calendar CalendarSource, lessonTypes LessonTypeCatalog, athletes AthleteDirectory, settings SlotSettings, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, calendar, lessonTypes, athletes, settings, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, calendar CalendarSource, lessonTypes LessonTypeCatalog, athletes AthleteDirectory, settings SlotSettings, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	settings = settings.withDefaults()
	return &BookingService{
		bookings:    bookings,
		calendar:    calendar,
		lessonTypes: lessonTypes,
		athletes:    athletes,
		settings:    settings,
		clock:       businessClock{now: now, location: settings.Location},
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the request and reserves the slot. The slot is
// re-checked against current bookings in the same transaction as the insert;
// a time that is no longer free yields ErrConflict.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"lesson_type_id", params.Input.LessonTypeID,
		"date", params.Input.Date,
		"time", params.Input.Time,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create booking", err)
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	date, dateOK := parseDateField(vErr, "date", input.Date, true)
	start, _ := parseClockField(vErr, "time", input.Time, true)
	if strings.TrimSpace(input.LessonTypeID) == "" {
		vErr.add("lesson_type_id", "lesson_type_id is required")
	}
	if strings.TrimSpace(input.ContactName) == "" {
		vErr.add("contact_name", "contact_name is required")
	}
	validateEmail(vErr, "contact_email", input.ContactEmail)
	athleteIDs, idErr := normalizeAthleteIDs(input.AthleteIDs)
	vErr.merge(idErr)

	var opts availability.Options
	if dateOK {
		var dateErr *ValidationError
		opts, dateErr = s.clock.slotOptions(s.settings, "date", date)
		vErr.merge(dateErr)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var lessonType LessonType
	lessonType, err = s.bookableLessonType(ctx, input.LessonTypeID)
	if err != nil {
		return
	}
	if count := len(athleteIDs); count < lessonType.MinAthletes || count > lessonType.MaxAthletes {
		err = fieldError("athlete_ids", fmt.Sprintf("lesson requires between %d and %d athletes", lessonType.MinAthletes, lessonType.MaxAthletes))
		return
	}
	if err = s.ensureAthletesExist(ctx, athleteIDs); err != nil {
		return
	}

	var cal availability.Calendar
	cal, err = s.loadCalendar(ctx, date)
	if err != nil {
		return
	}

	booking = Booking{
		ID:              s.idGenerator(),
		LessonTypeID:    lessonType.ID,
		Date:            date,
		Start:           start,
		DurationMinutes: lessonType.DurationMinutes,
		AthleteIDs:      athleteIDs,
		Status:          BookingPending,
		PaymentStatus:   PaymentUnpaid,
		ContactName:     strings.TrimSpace(input.ContactName),
		ContactEmail:    normalizeEmail(input.ContactEmail),
		Notes:           normalizeOptionalString(input.Notes),
		CreatedAt:       s.now(),
	}
	booking.UpdatedAt = booking.CreatedAt

	booking, err = s.bookings.ReserveBooking(ctx, booking, slotCheck(cal, booking, opts))
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.settings.Cache.Invalidate(ctx)
	return
}

// GetBooking returns a booking for administrators.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if !principal.IsAdmin {
		return Booking{}, ErrUnauthorized
	}
	if s.bookings == nil {
		return Booking{}, ErrNotFound
	}

	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			logFailure(ctx, s.loggerWith(ctx, "GetBooking", "booking_id", bookingID), "failed to load booking", err)
		}
		return Booking{}, err
	}
	return booking, nil
}

// ListBookings returns bookings for administrators, ordered by date and time.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "ListBookings", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list bookings", err)
			return
		}
		logger.With("result_count", len(bookings)).DebugContext(ctx, "bookings listed")
	}()

	vErr := &ValidationError{}
	filter := BookingFilter{}
	if date, ok := parseDateField(vErr, "from", params.From, false); ok {
		filter.From = &date
	}
	if date, ok := parseDateField(vErr, "to", params.To, false); ok {
		filter.To = &date
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		vErr.add("to", "to must not be before from")
	}
	for _, raw := range params.Statuses {
		status := BookingStatus(strings.TrimSpace(raw))
		if !validBookingStatus(status) {
			vErr.add("status", fmt.Sprintf("unknown status %q", raw))
			continue
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.bookings == nil {
		return nil, nil
	}

	bookings, err = s.bookings.ListBookings(ctx, filter)
	if err != nil {
		err = mapBookingRepoError(err)
	}
	return
}

// UpdateBookingStatus moves a booking through its lifecycle. Cancelling a
// booking frees its slot.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, params UpdateBookingStatusParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBookingStatus",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
		"status", params.Status,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update booking status", err)
			return
		}
		logger.InfoContext(ctx, "booking status updated")
	}()

	next := BookingStatus(strings.TrimSpace(params.Status))
	if !validBookingStatus(next) {
		err = fieldError("status", fmt.Sprintf("unknown status %q", params.Status))
		return
	}

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if !allowed(bookingTransitions[existing.Status], next) {
		err = fieldError("status", fmt.Sprintf("cannot change status from %s to %s", existing.Status, next))
		return
	}

	existing.Status = next
	existing.UpdatedAt = s.now()
	booking, err = s.bookings.UpdateBooking(ctx, existing)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.settings.Cache.Invalidate(ctx)
	return
}

// UpdatePaymentStatus records a payment outcome for a booking.
func (s *BookingService) UpdatePaymentStatus(ctx context.Context, params UpdatePaymentStatusParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdatePaymentStatus",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
		"payment_status", params.PaymentStatus,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update payment status", err)
			return
		}
		logger.InfoContext(ctx, "payment status updated")
	}()

	next := PaymentStatus(strings.TrimSpace(params.PaymentStatus))
	if !validPaymentStatus(next) {
		err = fieldError("payment_status", fmt.Sprintf("unknown payment status %q", params.PaymentStatus))
		return
	}

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if !allowed(paymentTransitions[existing.PaymentStatus], next) {
		err = fieldError("payment_status", fmt.Sprintf("cannot change payment status from %s to %s", existing.PaymentStatus, next))
		return
	}

	existing.PaymentStatus = next
	existing.UpdatedAt = s.now()
	booking, err = s.bookings.UpdateBooking(ctx, existing)
	if err != nil {
		err = mapBookingRepoError(err)
	}
	return
}

// RescheduleBooking moves an active booking to a new date and time. The
// booking keeps its duration and does not conflict with itself.
func (s *BookingService) RescheduleBooking(ctx context.Context, params RescheduleBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RescheduleBooking",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
		"date", params.Date,
		"time", params.Time,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to reschedule booking", err)
			return
		}
		logger.InfoContext(ctx, "booking rescheduled")
	}()

	vErr := &ValidationError{}
	date, dateOK := parseDateField(vErr, "date", params.Date, true)
	start, _ := parseClockField(vErr, "time", params.Time, true)
	var opts availability.Options
	if dateOK {
		var dateErr *ValidationError
		opts, dateErr = s.clock.slotOptions(s.settings, "date", date)
		vErr.merge(dateErr)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if !existing.Status.Active() {
		err = fieldError("status", fmt.Sprintf("a %s booking cannot be rescheduled", existing.Status))
		return
	}

	var cal availability.Calendar
	cal, err = s.loadCalendar(ctx, date)
	if err != nil {
		return
	}

	moved := existing
	moved.Date = date
	moved.Start = start
	moved.UpdatedAt = s.now()

	booking, err = s.bookings.RescheduleBooking(ctx, moved, slotCheck(cal, moved, opts))
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.settings.Cache.Invalidate(ctx)
	return
}

func (s *BookingService) bookableLessonType(ctx context.Context, id string) (LessonType, error) {
	if s.lessonTypes == nil {
		return LessonType{}, fmt.Errorf("lesson type catalog not configured")
	}
	lessonType, err := s.lessonTypes.GetLessonType(ctx, id)
	if err != nil {
		err = mapLessonTypeRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return LessonType{}, fieldError("lesson_type_id", "lesson type does not exist")
		}
		return LessonType{}, err
	}
	if !lessonType.Active {
		return LessonType{}, fieldError("lesson_type_id", "lesson type is not available for booking")
	}
	return lessonType, nil
}

func (s *BookingService) ensureAthletesExist(ctx context.Context, ids []string) error {
	if s.athletes == nil {
		return nil
	}
	missing, err := s.athletes.MissingAthleteIDs(ctx, ids)
	if err != nil {
		return mapAthleteRepoError(err)
	}
	if len(missing) > 0 {
		return fieldError("athlete_ids", "unknown athletes: "+strings.Join(missing, ", "))
	}
	return nil
}

func (s *BookingService) loadCalendar(ctx context.Context, date time.Time) (availability.Calendar, error) {
	if s.calendar == nil {
		return availability.Calendar{}, nil
	}
	cal, err := loadCalendar(ctx, s.calendar, date, date)
	if err != nil {
		return availability.Calendar{}, mapAvailabilityRepoError(err)
	}
	return cal, nil
}

// slotCheck builds the in-transaction check for booking against cal.
func slotCheck(cal availability.Calendar, booking Booking, opts availability.Options) OccupancyCheck {
	return func(occupied []Booking) error {
		withBookings := cal
		withBookings.Occupied = occupancies(occupied)
		if err := availability.CheckSlot(withBookings, booking.Date, booking.Start, booking.DurationMinutes, opts); err != nil {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil
	}
}

func normalizeAthleteIDs(ids []string) ([]string, *ValidationError) {
	vErr := &ValidationError{}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			vErr.add("athlete_ids", "athlete_ids must not contain empty values")
			continue
		}
		if _, dup := seen[id]; dup {
			vErr.add("athlete_ids", "athlete_ids must not contain duplicates")
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 && !vErr.HasErrors() {
		vErr.add("athlete_ids", "at least one athlete is required")
	}
	return out, vErr
}

func validBookingStatus(status BookingStatus) bool {
	switch status {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted, BookingNoShow:
		return true
	}
	return false
}

func validPaymentStatus(status PaymentStatus) bool {
	switch status {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded, PaymentFailed:
		return true
	}
	return false
}

func allowed[T comparable](options []T, next T) bool {
	for _, option := range options {
		if option == next {
			return true
		}
	}
	return false
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		// The active-slot unique index rejected the insert.
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("athlete_ids", "booking references an unknown lesson type or athlete")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("booking", "booking violates a storage constraint")
	}
	return err
}
