package main

import (
	"context"
	"time"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/availability"
	"github.com/example/coaching-booking/internal/persistence"
)

type lessonTypeRepositoryAdapter struct {
	repo persistence.LessonTypeRepository
}

func newLessonTypeRepositoryAdapter(repo persistence.LessonTypeRepository) *lessonTypeRepositoryAdapter {
	return &lessonTypeRepositoryAdapter{repo: repo}
}

func (a *lessonTypeRepositoryAdapter) CreateLessonType(ctx context.Context, lessonType application.LessonType) (application.LessonType, error) {
	if err := a.repo.CreateLessonType(ctx, toPersistenceLessonType(lessonType)); err != nil {
		return application.LessonType{}, err
	}
	return a.GetLessonType(ctx, lessonType.ID)
}

func (a *lessonTypeRepositoryAdapter) GetLessonType(ctx context.Context, id string) (application.LessonType, error) {
	stored, err := a.repo.GetLessonType(ctx, id)
	if err != nil {
		return application.LessonType{}, err
	}
	return toApplicationLessonType(stored), nil
}

func (a *lessonTypeRepositoryAdapter) UpdateLessonType(ctx context.Context, lessonType application.LessonType) (application.LessonType, error) {
	if err := a.repo.UpdateLessonType(ctx, toPersistenceLessonType(lessonType)); err != nil {
		return application.LessonType{}, err
	}
	return a.GetLessonType(ctx, lessonType.ID)
}

func (a *lessonTypeRepositoryAdapter) DeleteLessonType(ctx context.Context, id string) error {
	return a.repo.DeleteLessonType(ctx, id)
}

func (a *lessonTypeRepositoryAdapter) ListLessonTypes(ctx context.Context) ([]application.LessonType, error) {
	models, err := a.repo.ListLessonTypes(ctx)
	if err != nil {
		return nil, err
	}
	lessonTypes := make([]application.LessonType, 0, len(models))
	for _, model := range models {
		lessonTypes = append(lessonTypes, toApplicationLessonType(model))
	}
	return lessonTypes, nil
}

type athleteRepositoryAdapter struct {
	repo persistence.AthleteRepository
}

func newAthleteRepositoryAdapter(repo persistence.AthleteRepository) *athleteRepositoryAdapter {
	return &athleteRepositoryAdapter{repo: repo}
}

func (a *athleteRepositoryAdapter) CreateAthlete(ctx context.Context, athlete application.Athlete) (application.Athlete, error) {
	if err := a.repo.CreateAthlete(ctx, toPersistenceAthlete(athlete)); err != nil {
		return application.Athlete{}, err
	}
	return a.GetAthlete(ctx, athlete.ID)
}

func (a *athleteRepositoryAdapter) GetAthlete(ctx context.Context, id string) (application.Athlete, error) {
	stored, err := a.repo.GetAthlete(ctx, id)
	if err != nil {
		return application.Athlete{}, err
	}
	return toApplicationAthlete(stored), nil
}

func (a *athleteRepositoryAdapter) UpdateAthlete(ctx context.Context, athlete application.Athlete) (application.Athlete, error) {
	if err := a.repo.UpdateAthlete(ctx, toPersistenceAthlete(athlete)); err != nil {
		return application.Athlete{}, err
	}
	return a.GetAthlete(ctx, athlete.ID)
}

func (a *athleteRepositoryAdapter) DeleteAthlete(ctx context.Context, id string) error {
	return a.repo.DeleteAthlete(ctx, id)
}

func (a *athleteRepositoryAdapter) ListAthletes(ctx context.Context) ([]application.Athlete, error) {
	models, err := a.repo.ListAthletes(ctx)
	if err != nil {
		return nil, err
	}
	athletes := make([]application.Athlete, 0, len(models))
	for _, model := range models {
		athletes = append(athletes, toApplicationAthlete(model))
	}
	return athletes, nil
}

func (a *athleteRepositoryAdapter) MissingAthleteIDs(ctx context.Context, ids []string) ([]string, error) {
	return a.repo.MissingAthleteIDs(ctx, ids)
}

type availabilityRepositoryAdapter struct {
	repo persistence.AvailabilityRepository
}

func newAvailabilityRepositoryAdapter(repo persistence.AvailabilityRepository) *availabilityRepositoryAdapter {
	return &availabilityRepositoryAdapter{repo: repo}
}

func (a *availabilityRepositoryAdapter) ListWindows(ctx context.Context) ([]application.AvailabilityWindow, error) {
	models, err := a.repo.ListWindows(ctx)
	if err != nil {
		return nil, err
	}
	windows := make([]application.AvailabilityWindow, 0, len(models))
	for _, model := range models {
		windows = append(windows, toApplicationWindow(model))
	}
	return windows, nil
}

func (a *availabilityRepositoryAdapter) ListExceptions(ctx context.Context, from, to *time.Time) ([]application.AvailabilityException, error) {
	models, err := a.repo.ListExceptions(ctx, persistence.DateRange{From: from, To: to})
	if err != nil {
		return nil, err
	}
	exceptions := make([]application.AvailabilityException, 0, len(models))
	for _, model := range models {
		exceptions = append(exceptions, toApplicationException(model))
	}
	return exceptions, nil
}

func (a *availabilityRepositoryAdapter) CreateWindow(ctx context.Context, window application.AvailabilityWindow) (application.AvailabilityWindow, error) {
	if err := a.repo.CreateWindow(ctx, toPersistenceWindow(window)); err != nil {
		return application.AvailabilityWindow{}, err
	}
	return a.GetWindow(ctx, window.ID)
}

func (a *availabilityRepositoryAdapter) GetWindow(ctx context.Context, id string) (application.AvailabilityWindow, error) {
	stored, err := a.repo.GetWindow(ctx, id)
	if err != nil {
		return application.AvailabilityWindow{}, err
	}
	return toApplicationWindow(stored), nil
}

func (a *availabilityRepositoryAdapter) UpdateWindow(ctx context.Context, window application.AvailabilityWindow) (application.AvailabilityWindow, error) {
	if err := a.repo.UpdateWindow(ctx, toPersistenceWindow(window)); err != nil {
		return application.AvailabilityWindow{}, err
	}
	return a.GetWindow(ctx, window.ID)
}

func (a *availabilityRepositoryAdapter) DeleteWindow(ctx context.Context, id string) error {
	return a.repo.DeleteWindow(ctx, id)
}

func (a *availabilityRepositoryAdapter) CreateException(ctx context.Context, exception application.AvailabilityException) (application.AvailabilityException, error) {
	if err := a.repo.CreateException(ctx, toPersistenceException(exception)); err != nil {
		return application.AvailabilityException{}, err
	}
	stored, err := a.repo.GetException(ctx, exception.ID)
	if err != nil {
		return application.AvailabilityException{}, err
	}
	return toApplicationException(stored), nil
}

func (a *availabilityRepositoryAdapter) DeleteException(ctx context.Context, id string) error {
	return a.repo.DeleteException(ctx, id)
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingFilter) ([]application.Booking, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		Dates:    persistence.DateRange{From: filter.From, To: filter.To},
		Statuses: statuses,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingRepositoryAdapter) ReserveBooking(ctx context.Context, booking application.Booking, check application.OccupancyCheck) (application.Booking, error) {
	if err := a.repo.ReserveBooking(ctx, toPersistenceBooking(booking), reservationCheck(check)); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, booking.ID)
}

func (a *bookingRepositoryAdapter) RescheduleBooking(ctx context.Context, booking application.Booking, check application.OccupancyCheck) (application.Booking, error) {
	if err := a.repo.RescheduleBooking(ctx, toPersistenceBooking(booking), reservationCheck(check)); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, booking.ID)
}

func (a *bookingRepositoryAdapter) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.UpdateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, booking.ID)
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func reservationCheck(check application.OccupancyCheck) persistence.ReservationCheck {
	if check == nil {
		return nil
	}
	return func(occupied []persistence.Booking) error {
		return check(toApplicationBookings(occupied))
	}
}

func toApplicationLessonType(model persistence.LessonType) application.LessonType {
	return application.LessonType{
		ID:              model.ID,
		Name:            model.Name,
		Description:     cloneString(model.Description),
		DurationMinutes: model.DurationMinutes,
		MinAthletes:     model.MinAthletes,
		MaxAthletes:     model.MaxAthletes,
		PriceCents:      model.PriceCents,
		Active:          model.Active,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceLessonType(lessonType application.LessonType) persistence.LessonType {
	return persistence.LessonType{
		ID:              lessonType.ID,
		Name:            lessonType.Name,
		Description:     cloneString(lessonType.Description),
		DurationMinutes: lessonType.DurationMinutes,
		MinAthletes:     lessonType.MinAthletes,
		MaxAthletes:     lessonType.MaxAthletes,
		PriceCents:      lessonType.PriceCents,
		Active:          lessonType.Active,
		CreatedAt:       lessonType.CreatedAt,
		UpdatedAt:       lessonType.UpdatedAt,
	}
}

func toApplicationAthlete(model persistence.Athlete) application.Athlete {
	return application.Athlete{
		ID:          model.ID,
		FirstName:   model.FirstName,
		LastName:    model.LastName,
		BirthDate:   cloneTime(model.BirthDate),
		SkillLevel:  cloneString(model.SkillLevel),
		ParentName:  model.ParentName,
		ParentEmail: model.ParentEmail,
		ParentPhone: cloneString(model.ParentPhone),
		Notes:       cloneString(model.Notes),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceAthlete(athlete application.Athlete) persistence.Athlete {
	return persistence.Athlete{
		ID:          athlete.ID,
		FirstName:   athlete.FirstName,
		LastName:    athlete.LastName,
		BirthDate:   cloneTime(athlete.BirthDate),
		SkillLevel:  cloneString(athlete.SkillLevel),
		ParentName:  athlete.ParentName,
		ParentEmail: athlete.ParentEmail,
		ParentPhone: cloneString(athlete.ParentPhone),
		Notes:       cloneString(athlete.Notes),
		CreatedAt:   athlete.CreatedAt,
		UpdatedAt:   athlete.UpdatedAt,
	}
}

func toApplicationWindow(model persistence.AvailabilityWindow) application.AvailabilityWindow {
	return application.AvailabilityWindow{
		ID:        model.ID,
		Weekday:   model.Weekday,
		Start:     availability.ClockTime(model.StartMinute),
		End:       availability.ClockTime(model.EndMinute),
		Recurring: model.Recurring,
		Available: model.Available,
		Date:      cloneTime(model.Date),
		Note:      cloneString(model.Note),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceWindow(window application.AvailabilityWindow) persistence.AvailabilityWindow {
	return persistence.AvailabilityWindow{
		ID:          window.ID,
		Weekday:     window.Weekday,
		StartMinute: window.Start.Minutes(),
		EndMinute:   window.End.Minutes(),
		Recurring:   window.Recurring,
		Available:   window.Available,
		Date:        cloneTime(window.Date),
		Note:        cloneString(window.Note),
		CreatedAt:   window.CreatedAt,
		UpdatedAt:   window.UpdatedAt,
	}
}

func toApplicationException(model persistence.AvailabilityException) application.AvailabilityException {
	exception := application.AvailabilityException{
		ID:        model.ID,
		Date:      model.Date,
		Available: model.Available,
		Reason:    cloneString(model.Reason),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if model.StartMinute != nil && model.EndMinute != nil {
		start := availability.ClockTime(*model.StartMinute)
		end := availability.ClockTime(*model.EndMinute)
		exception.Start, exception.End = &start, &end
	}
	return exception
}

func toPersistenceException(exception application.AvailabilityException) persistence.AvailabilityException {
	model := persistence.AvailabilityException{
		ID:        exception.ID,
		Date:      exception.Date,
		Available: exception.Available,
		Reason:    cloneString(exception.Reason),
		CreatedAt: exception.CreatedAt,
		UpdatedAt: exception.UpdatedAt,
	}
	if exception.Start != nil && exception.End != nil {
		start, end := exception.Start.Minutes(), exception.End.Minutes()
		model.StartMinute, model.EndMinute = &start, &end
	}
	return model
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:              model.ID,
		LessonTypeID:    model.LessonTypeID,
		Date:            model.LessonDate,
		Start:           availability.ClockTime(model.StartMinute),
		DurationMinutes: model.DurationMinutes,
		AthleteIDs:      append([]string(nil), model.AthleteIDs...),
		Status:          application.BookingStatus(model.Status),
		PaymentStatus:   application.PaymentStatus(model.PaymentStatus),
		ContactName:     model.ContactName,
		ContactEmail:    model.ContactEmail,
		Notes:           cloneString(model.Notes),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toApplicationBookings(models []persistence.Booking) []application.Booking {
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:              booking.ID,
		LessonTypeID:    booking.LessonTypeID,
		LessonDate:      booking.Date,
		StartMinute:     booking.Start.Minutes(),
		DurationMinutes: booking.DurationMinutes,
		AthleteIDs:      append([]string(nil), booking.AthleteIDs...),
		Status:          string(booking.Status),
		PaymentStatus:   string(booking.PaymentStatus),
		ContactName:     booking.ContactName,
		ContactEmail:    booking.ContactEmail,
		Notes:           cloneString(booking.Notes),
		CreatedAt:       booking.CreatedAt,
		UpdatedAt:       booking.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
