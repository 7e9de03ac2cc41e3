package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/coaching-booking/internal/availability"
	"github.com/example/coaching-booking/internal/persistence"
)

// AvailabilityRepository captures the persistence operations needed by the service.
type AvailabilityRepository interface {
	CalendarSource
	CreateWindow(ctx context.Context, window AvailabilityWindow) (AvailabilityWindow, error)
	GetWindow(ctx context.Context, id string) (AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, window AvailabilityWindow) (AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id string) error
	CreateException(ctx context.Context, exception AvailabilityException) (AvailabilityException, error)
	DeleteException(ctx context.Context, id string) error
}

// AvailabilityService manages the coaching calendar and answers slot queries.
type AvailabilityService struct {
	availability AvailabilityRepository
	lessonTypes  LessonTypeCatalog
	bookings     BookingLister
	settings     SlotSettings
	clock        businessClock
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAvailabilityService constructs an availability service with the provided dependencies.
func NewAvailabilityService(repo AvailabilityRepository, lessonTypes LessonTypeCatalog, bookings BookingLister, settings SlotSettings, idGenerator func() string, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(repo, lessonTypes, bookings, settings, idGenerator, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with a specified logger.
func NewAvailabilityServiceWithLogger(repo AvailabilityRepository, lessonTypes LessonTypeCatalog, bookings BookingLister, settings SlotSettings, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	settings = settings.withDefaults()
	return &AvailabilityService{
		availability: repo,
		lessonTypes:  lessonTypes,
		bookings:     bookings,
		settings:     settings,
		clock:        businessClock{now: now, location: settings.Location},
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// CreateWindow validates and stores a new availability window.
func (s *AvailabilityService) CreateWindow(ctx context.Context, params CreateWindowParams) (window AvailabilityWindow, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateWindow", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create availability window", err)
			return
		}
		logger.With("window_id", window.ID, "override", window.Override()).InfoContext(ctx, "availability window created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.availability == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	window, err = buildWindow(params.Input)
	if err != nil {
		return
	}
	window.ID = s.idGenerator()
	window.CreatedAt = s.now()
	window.UpdatedAt = window.CreatedAt

	window, err = s.availability.CreateWindow(ctx, window)
	if err != nil {
		err = mapAvailabilityRepoError(err)
		return
	}
	s.settings.Cache.Invalidate(ctx)
	return
}

// UpdateWindow replaces an existing availability window.
func (s *AvailabilityService) UpdateWindow(ctx context.Context, params UpdateWindowParams) (window AvailabilityWindow, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.availability == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateWindow",
		"principal_id", params.Principal.UserID,
		"window_id", params.WindowID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update availability window", err)
			return
		}
		logger.InfoContext(ctx, "availability window updated")
	}()

	var existing AvailabilityWindow
	existing, err = s.availability.GetWindow(ctx, params.WindowID)
	if err != nil {
		err = mapAvailabilityRepoError(err)
		return
	}

	var updated AvailabilityWindow
	updated, err = buildWindow(params.Input)
	if err != nil {
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()

	window, err = s.availability.UpdateWindow(ctx, updated)
	if err != nil {
		err = mapAvailabilityRepoError(err)
		return
	}
	s.settings.Cache.Invalidate(ctx)
	return
}

// DeleteWindow removes an availability window.
func (s *AvailabilityService) DeleteWindow(ctx context.Context, principal Principal, windowID string) error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.availability == nil {
		return fmt.Errorf("availability repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteWindow",
		"principal_id", principal.UserID,
		"window_id", windowID,
	)

	if err := s.availability.DeleteWindow(ctx, windowID); err != nil {
		err = mapAvailabilityRepoError(err)
		logFailure(ctx, logger, "failed to delete availability window", err)
		return err
	}
	s.settings.Cache.Invalidate(ctx)

	logger.InfoContext(ctx, "availability window deleted")
	return nil
}

// ListWindows returns every availability window.
func (s *AvailabilityService) ListWindows(ctx context.Context) ([]AvailabilityWindow, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if s.availability == nil {
		return nil, nil
	}
	windows, err := s.availability.ListWindows(ctx)
	if err != nil {
		err = mapAvailabilityRepoError(err)
		logFailure(ctx, s.loggerWith(ctx, "ListWindows"), "failed to list availability windows", err)
		return nil, err
	}
	return windows, nil
}

// CreateException validates and stores a date exception.
func (s *AvailabilityService) CreateException(ctx context.Context, params CreateExceptionParams) (exception AvailabilityException, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateException", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create availability exception", err)
			return
		}
		logger.With(
			"exception_id", exception.ID,
			"date", availability.FormatDate(exception.Date),
			"available", exception.Available,
		).InfoContext(ctx, "availability exception created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.availability == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	exception, err = buildException(params.Input)
	if err != nil {
		return
	}
	exception.ID = s.idGenerator()
	exception.CreatedAt = s.now()
	exception.UpdatedAt = exception.CreatedAt

	exception, err = s.availability.CreateException(ctx, exception)
	if err != nil {
		err = mapAvailabilityRepoError(err)
		return
	}
	s.settings.Cache.Invalidate(ctx)
	return
}

// DeleteException removes a date exception.
func (s *AvailabilityService) DeleteException(ctx context.Context, principal Principal, exceptionID string) error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.availability == nil {
		return fmt.Errorf("availability repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteException",
		"principal_id", principal.UserID,
		"exception_id", exceptionID,
	)

	if err := s.availability.DeleteException(ctx, exceptionID); err != nil {
		err = mapAvailabilityRepoError(err)
		logFailure(ctx, logger, "failed to delete availability exception", err)
		return err
	}
	s.settings.Cache.Invalidate(ctx)

	logger.InfoContext(ctx, "availability exception deleted")
	return nil
}

// ListExceptions returns exceptions within the optional inclusive date bounds.
func (s *AvailabilityService) ListExceptions(ctx context.Context, params ListExceptionsParams) ([]AvailabilityException, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}

	vErr := &ValidationError{}
	var from, to *time.Time
	if date, ok := parseDateField(vErr, "from", params.From, false); ok {
		from = &date
	}
	if date, ok := parseDateField(vErr, "to", params.To, false); ok {
		to = &date
	}
	if from != nil && to != nil && to.Before(*from) {
		vErr.add("to", "to must not be before from")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	if s.availability == nil {
		return nil, nil
	}

	exceptions, err := s.availability.ListExceptions(ctx, from, to)
	if err != nil {
		err = mapAvailabilityRepoError(err)
		logFailure(ctx, s.loggerWith(ctx, "ListExceptions"), "failed to list availability exceptions", err)
		return nil, err
	}
	return exceptions, nil
}

// GetSlots returns the bookable starts for a lesson type on a date. Past dates
// and dates beyond the booking horizon are rejected; for today, slots that
// already started are dropped.
func (s *AvailabilityService) GetSlots(ctx context.Context, params GetSlotsParams) (slots []Slot, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetSlots",
		"date", params.Date,
		"lesson_type_id", params.LessonTypeID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to compute slots", err)
			return
		}
		logger.With("slot_count", len(slots)).DebugContext(ctx, "slots computed")
	}()

	vErr := &ValidationError{}
	date, _ := parseDateField(vErr, "date", params.Date, true)
	if params.LessonTypeID == "" {
		vErr.add("lesson_type_id", "lesson_type_id is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var opts availability.Options
	if optsErr := s.clockOptions("date", date, &opts); optsErr != nil {
		err = optsErr
		return
	}

	var lessonType LessonType
	lessonType, err = s.activeLessonType(ctx, params.LessonTypeID)
	if err != nil {
		return
	}

	key := SlotCacheKey{
		Date:         date,
		LessonTypeID: lessonType.ID,
		Duration:     lessonType.DurationMinutes,
		Granularity:  opts.Granularity,
		NotBefore:    opts.NotBefore,
	}.String()
	cached, generation, hit := s.settings.Cache.Get(ctx, key)
	if hit {
		slots = cached
		return
	}

	var cal availability.Calendar
	cal, err = s.calendarFor(ctx, date, date)
	if err != nil {
		return
	}

	slots = toSlots(date, availability.Compute(cal, date, lessonType.DurationMinutes, opts))
	s.settings.Cache.Store(ctx, key, generation, slots)
	return
}

// ListAvailableDays reports, for each day in [From, To] with at least one
// slot, how many slots the lesson type has. Days before today or beyond the
// booking horizon are skipped. The range may span at most 31 days.
func (s *AvailabilityService) ListAvailableDays(ctx context.Context, params ListAvailableDaysParams) (days []DaySlots, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListAvailableDays",
		"from", params.From,
		"to", params.To,
		"lesson_type_id", params.LessonTypeID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list available days", err)
			return
		}
		logger.With("day_count", len(days)).DebugContext(ctx, "available days listed")
	}()

	vErr := &ValidationError{}
	from, fromOK := parseDateField(vErr, "from", params.From, true)
	to, toOK := parseDateField(vErr, "to", params.To, true)
	if params.LessonTypeID == "" {
		vErr.add("lesson_type_id", "lesson_type_id is required")
	}
	if fromOK && toOK {
		switch {
		case to.Before(from):
			vErr.add("to", "to must not be before from")
		case to.Sub(from) >= maxDayRange*24*time.Hour:
			vErr.add("to", fmt.Sprintf("range must not exceed %d days", maxDayRange))
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var lessonType LessonType
	lessonType, err = s.activeLessonType(ctx, params.LessonTypeID)
	if err != nil {
		return
	}

	today, _ := s.clock.today()
	if from.Before(today) {
		from = today
	}
	if horizon := today.AddDate(0, 0, s.settings.HorizonDays); to.After(horizon) {
		to = horizon
	}
	if to.Before(from) {
		return nil, nil
	}

	var cal availability.Calendar
	cal, err = s.calendarFor(ctx, from, to)
	if err != nil {
		return
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		var opts availability.Options
		if optsErr := s.clockOptions("date", day, &opts); optsErr != nil {
			continue
		}
		if count := len(availability.Compute(cal, day, lessonType.DurationMinutes, opts)); count > 0 {
			days = append(days, DaySlots{Date: day, SlotCount: count})
		}
	}
	return
}

func (s *AvailabilityService) clockOptions(field string, date time.Time, opts *availability.Options) error {
	computed, vErr := s.clock.slotOptions(s.settings, field, date)
	if vErr != nil {
		return vErr
	}
	*opts = computed
	return nil
}

func (s *AvailabilityService) activeLessonType(ctx context.Context, id string) (LessonType, error) {
	if s.lessonTypes == nil {
		return LessonType{}, ErrNotFound
	}
	lessonType, err := s.lessonTypes.GetLessonType(ctx, id)
	if err != nil {
		return LessonType{}, mapLessonTypeRepoError(err)
	}
	if !lessonType.Active {
		return LessonType{}, ErrNotFound
	}
	return lessonType, nil
}

// calendarFor loads windows, exceptions and active bookings for [from, to].
func (s *AvailabilityService) calendarFor(ctx context.Context, from, to time.Time) (availability.Calendar, error) {
	if s.availability == nil {
		return availability.Calendar{}, nil
	}
	cal, err := loadCalendar(ctx, s.availability, from, to)
	if err != nil {
		return availability.Calendar{}, mapAvailabilityRepoError(err)
	}
	if s.bookings == nil {
		return cal, nil
	}
	booked, err := s.bookings.ListBookings(ctx, BookingFilter{From: &from, To: &to, Statuses: activeStatuses()})
	if err != nil {
		return availability.Calendar{}, fmt.Errorf("load bookings: %w", err)
	}
	cal.Occupied = occupancies(booked)
	return cal, nil
}

func buildWindow(input WindowInput) (AvailabilityWindow, error) {
	vErr := &ValidationError{}

	start, startOK := parseClockField(vErr, "start", input.Start, true)
	end, endOK := parseClockField(vErr, "end", input.End, true)
	if startOK && endOK && start >= end {
		vErr.add("end", "end must be after start")
	}

	window := AvailabilityWindow{
		Start:     start,
		End:       end,
		Recurring: input.Recurring,
		Available: input.Available,
		Note:      normalizeOptionalString(input.Note),
	}

	date, dateOK := parseDateField(vErr, "date", input.Date, !input.Recurring)
	switch {
	case dateOK:
		window.Weekday = date.Weekday()
		if input.Weekday != nil && time.Weekday(*input.Weekday) != date.Weekday() {
			vErr.add("weekday", "weekday does not match date")
		}
		if !input.Recurring {
			window.Date = &date
		}
	case input.Weekday == nil:
		if input.Recurring {
			vErr.add("weekday", "weekday is required")
		}
	case *input.Weekday < 0 || *input.Weekday > 6:
		vErr.add("weekday", "weekday must be between 0 (Sunday) and 6 (Saturday)")
	default:
		window.Weekday = time.Weekday(*input.Weekday)
	}

	if vErr.HasErrors() {
		return AvailabilityWindow{}, vErr
	}
	return window, nil
}

func buildException(input ExceptionInput) (AvailabilityException, error) {
	vErr := &ValidationError{}

	date, _ := parseDateField(vErr, "date", input.Date, true)
	exception := AvailabilityException{
		Date:      date,
		Available: input.Available,
		Reason:    normalizeOptionalString(input.Reason),
	}

	hasStart := input.Start != ""
	hasEnd := input.End != ""
	switch {
	case hasStart != hasEnd:
		vErr.add("end", "start and end must be provided together")
	case hasStart:
		start, startOK := parseClockField(vErr, "start", input.Start, true)
		end, endOK := parseClockField(vErr, "end", input.End, true)
		if startOK && endOK {
			if start >= end {
				vErr.add("end", "end must be after start")
			}
			exception.Start = &start
			exception.End = &end
		}
	}

	if vErr.HasErrors() {
		return AvailabilityException{}, vErr
	}
	return exception, nil
}

func mapAvailabilityRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("availability", "availability entry violates a storage constraint")
	}
	return err
}
