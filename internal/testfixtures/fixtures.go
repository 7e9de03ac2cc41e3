package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/availability"
	"github.com/example/coaching-booking/internal/persistence"
)

var (
	lessonTypeCounter uint64
	athleteCounter    uint64
	windowCounter     uint64
	exceptionCounter  uint64
	bookingCounter    uint64
)

// referenceTime is a Monday morning.
var referenceTime = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date of ReferenceTime.
func ReferenceDate() time.Time {
	return availability.DateOf(referenceTime)
}

// --------------------------- Lesson type fixtures ---------------------------

// LessonTypeFixture represents a deterministic lesson type.
type LessonTypeFixture struct {
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

// LessonTypeOption configures the generated lesson type fixture.
type LessonTypeOption func(*LessonTypeFixture)

// NewLessonTypeFixture returns a one hour private lesson with optional overrides.
func NewLessonTypeFixture(opts ...LessonTypeOption) LessonTypeFixture {
	idx := atomic.AddUint64(&lessonTypeCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := LessonTypeFixture{
		ID:              fmt.Sprintf("lesson-%03d", idx),
		Name:            fmt.Sprintf("Private Lesson %03d", idx),
		DurationMinutes: 60,
		MinAthletes:     1,
		MaxAthletes:     2,
		PriceCents:      6500,
		Active:          true,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithLessonTypeID overrides the generated lesson type ID.
func WithLessonTypeID(id string) LessonTypeOption {
	return func(f *LessonTypeFixture) {
		f.ID = id
	}
}

// WithLessonTypeName overrides the generated name.
func WithLessonTypeName(name string) LessonTypeOption {
	return func(f *LessonTypeFixture) {
		f.Name = name
	}
}

// WithLessonDuration overrides the lesson length in minutes.
func WithLessonDuration(minutes int) LessonTypeOption {
	return func(f *LessonTypeFixture) {
		f.DurationMinutes = minutes
	}
}

// WithAthleteRange overrides the accepted number of athletes.
func WithAthleteRange(min, max int) LessonTypeOption {
	return func(f *LessonTypeFixture) {
		f.MinAthletes = min
		f.MaxAthletes = max
	}
}

// WithLessonPrice overrides the price in cents.
func WithLessonPrice(cents int64) LessonTypeOption {
	return func(f *LessonTypeFixture) {
		f.PriceCents = cents
	}
}

// WithLessonTypeInactive marks the lesson type as retired.
func WithLessonTypeInactive() LessonTypeOption {
	return func(f *LessonTypeFixture) {
		f.Active = false
	}
}

// Application returns the fixture as an application.LessonType.
func (f LessonTypeFixture) Application() application.LessonType {
	return application.LessonType{
		ID:              f.ID,
		Name:            f.Name,
		Description:     cloneString(f.Description),
		DurationMinutes: f.DurationMinutes,
		MinAthletes:     f.MinAthletes,
		MaxAthletes:     f.MaxAthletes,
		PriceCents:      f.PriceCents,
		Active:          f.Active,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.LessonType.
func (f LessonTypeFixture) Persistence() persistence.LessonType {
	return persistence.LessonType{
		ID:              f.ID,
		Name:            f.Name,
		Description:     cloneString(f.Description),
		DurationMinutes: f.DurationMinutes,
		MinAthletes:     f.MinAthletes,
		MaxAthletes:     f.MaxAthletes,
		PriceCents:      f.PriceCents,
		Active:          f.Active,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Input returns the fixture as an application.LessonTypeInput.
func (f LessonTypeFixture) Input() application.LessonTypeInput {
	active := f.Active
	return application.LessonTypeInput{
		Name:            f.Name,
		Description:     cloneString(f.Description),
		DurationMinutes: f.DurationMinutes,
		MinAthletes:     f.MinAthletes,
		MaxAthletes:     f.MaxAthletes,
		PriceCents:      f.PriceCents,
		Active:          &active,
	}
}

// ----------------------------- Athlete fixtures -----------------------------

// AthleteFixture represents a deterministic gymnast with parent contact.
type AthleteFixture struct {
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

// AthleteOption configures the generated athlete fixture.
type AthleteOption func(*AthleteFixture)

// NewAthleteFixture returns a deterministic athlete fixture with optional overrides.
func NewAthleteFixture(opts ...AthleteOption) AthleteFixture {
	idx := atomic.AddUint64(&athleteCounter, 1)
	id := fmt.Sprintf("athlete-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Minute)
	fixture := AthleteFixture{
		ID:          id,
		FirstName:   fmt.Sprintf("Gymnast%03d", idx),
		LastName:    "Tumbler",
		ParentName:  "Parent Tumbler",
		ParentEmail: fmt.Sprintf("parent.%s@example.com", id),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAthleteID overrides the generated athlete ID.
func WithAthleteID(id string) AthleteOption {
	return func(f *AthleteFixture) {
		f.ID = id
	}
}

// WithAthleteName overrides the athlete's first and last name.
func WithAthleteName(first, last string) AthleteOption {
	return func(f *AthleteFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithParent overrides the responsible parent's name and email.
func WithParent(name, email string) AthleteOption {
	return func(f *AthleteFixture) {
		f.ParentName = name
		f.ParentEmail = email
	}
}

// WithBirthDate sets the athlete's birth date.
func WithBirthDate(date time.Time) AthleteOption {
	return func(f *AthleteFixture) {
		d := availability.DateOf(date)
		f.BirthDate = &d
	}
}

// WithSkillLevel sets the athlete's skill level.
func WithSkillLevel(level string) AthleteOption {
	return func(f *AthleteFixture) {
		f.SkillLevel = &level
	}
}

// Application returns the fixture as an application.Athlete.
func (f AthleteFixture) Application() application.Athlete {
	return application.Athlete{
		ID:          f.ID,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		BirthDate:   cloneTime(f.BirthDate),
		SkillLevel:  cloneString(f.SkillLevel),
		ParentName:  f.ParentName,
		ParentEmail: f.ParentEmail,
		ParentPhone: cloneString(f.ParentPhone),
		Notes:       cloneString(f.Notes),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Athlete.
func (f AthleteFixture) Persistence() persistence.Athlete {
	return persistence.Athlete{
		ID:          f.ID,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		BirthDate:   cloneTime(f.BirthDate),
		SkillLevel:  cloneString(f.SkillLevel),
		ParentName:  f.ParentName,
		ParentEmail: f.ParentEmail,
		ParentPhone: cloneString(f.ParentPhone),
		Notes:       cloneString(f.Notes),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture as an application.AthleteInput.
func (f AthleteFixture) Input() application.AthleteInput {
	input := application.AthleteInput{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		SkillLevel:  cloneString(f.SkillLevel),
		ParentName:  f.ParentName,
		ParentEmail: f.ParentEmail,
		ParentPhone: cloneString(f.ParentPhone),
		Notes:       cloneString(f.Notes),
	}
	if f.BirthDate != nil {
		input.BirthDate = availability.FormatDate(*f.BirthDate)
	}
	return input
}

// ----------------------------- Window fixtures ------------------------------

// WindowFixture represents an availability window. The default is a weekly
// Monday 09:00-12:00 opening.
type WindowFixture struct {
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

// WindowOption configures the generated window fixture.
type WindowOption func(*WindowFixture)

// NewWindowFixture returns a deterministic window fixture with optional overrides.
func NewWindowFixture(opts ...WindowOption) WindowFixture {
	idx := atomic.AddUint64(&windowCounter, 1)
	fixture := WindowFixture{
		ID:        fmt.Sprintf("window-%03d", idx),
		Weekday:   time.Monday,
		Start:     availability.MustParseClock("09:00"),
		End:       availability.MustParseClock("12:00"),
		Recurring: true,
		Available: true,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithWindowID overrides the generated window ID.
func WithWindowID(id string) WindowOption {
	return func(f *WindowFixture) {
		f.ID = id
	}
}

// WithWeekly sets a recurring window on weekday from start to end (HH:MM).
func WithWeekly(weekday time.Weekday, start, end string) WindowOption {
	return func(f *WindowFixture) {
		f.Weekday = weekday
		f.Start = availability.MustParseClock(start)
		f.End = availability.MustParseClock(end)
		f.Recurring = true
		f.Date = nil
	}
}

// WithDatedWindow pins the window to a single date from start to end (HH:MM).
func WithDatedWindow(date time.Time, start, end string) WindowOption {
	return func(f *WindowFixture) {
		d := availability.DateOf(date)
		f.Date = &d
		f.Weekday = d.Weekday()
		f.Start = availability.MustParseClock(start)
		f.End = availability.MustParseClock(end)
		f.Recurring = false
	}
}

// WithWindowBlocked turns the window into a block.
func WithWindowBlocked() WindowOption {
	return func(f *WindowFixture) {
		f.Available = false
	}
}

// Application returns the fixture as an application.AvailabilityWindow.
func (f WindowFixture) Application() application.AvailabilityWindow {
	return application.AvailabilityWindow{
		ID:        f.ID,
		Weekday:   f.Weekday,
		Start:     f.Start,
		End:       f.End,
		Recurring: f.Recurring,
		Available: f.Available,
		Date:      cloneTime(f.Date),
		Note:      cloneString(f.Note),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.AvailabilityWindow.
func (f WindowFixture) Persistence() persistence.AvailabilityWindow {
	return persistence.AvailabilityWindow{
		ID:          f.ID,
		Weekday:     f.Weekday,
		StartMinute: f.Start.Minutes(),
		EndMinute:   f.End.Minutes(),
		Recurring:   f.Recurring,
		Available:   f.Available,
		Date:        cloneTime(f.Date),
		Note:        cloneString(f.Note),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture as an application.WindowInput.
func (f WindowFixture) Input() application.WindowInput {
	weekday := int(f.Weekday)
	input := application.WindowInput{
		Weekday:   &weekday,
		Start:     f.Start.String(),
		End:       f.End.String(),
		Recurring: f.Recurring,
		Available: f.Available,
		Note:      cloneString(f.Note),
	}
	if f.Date != nil {
		input.Date = availability.FormatDate(*f.Date)
	}
	return input
}

// ---------------------------- Exception fixtures ----------------------------

// ExceptionFixture represents a date exception. The default blocks the whole
// reference date.
type ExceptionFixture struct {
	ID        string
	Date      time.Time
	Start     *availability.ClockTime
	End       *availability.ClockTime
	Available bool
	Reason    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExceptionOption configures the generated exception fixture.
type ExceptionOption func(*ExceptionFixture)

// NewExceptionFixture returns a deterministic exception fixture with optional overrides.
func NewExceptionFixture(opts ...ExceptionOption) ExceptionFixture {
	idx := atomic.AddUint64(&exceptionCounter, 1)
	fixture := ExceptionFixture{
		ID:        fmt.Sprintf("exception-%03d", idx),
		Date:      ReferenceDate(),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithExceptionID overrides the generated exception ID.
func WithExceptionID(id string) ExceptionOption {
	return func(f *ExceptionFixture) {
		f.ID = id
	}
}

// WithExceptionDate overrides the exception date.
func WithExceptionDate(date time.Time) ExceptionOption {
	return func(f *ExceptionFixture) {
		f.Date = availability.DateOf(date)
	}
}

// WithExceptionTimes limits the exception to start-end (HH:MM).
func WithExceptionTimes(start, end string) ExceptionOption {
	return func(f *ExceptionFixture) {
		s := availability.MustParseClock(start)
		e := availability.MustParseClock(end)
		f.Start, f.End = &s, &e
	}
}

// WithExceptionAvailable turns the exception into an extra opening.
func WithExceptionAvailable() ExceptionOption {
	return func(f *ExceptionFixture) {
		f.Available = true
	}
}

// WithExceptionReason sets the exception reason.
func WithExceptionReason(reason string) ExceptionOption {
	return func(f *ExceptionFixture) {
		f.Reason = &reason
	}
}

// Application returns the fixture as an application.AvailabilityException.
func (f ExceptionFixture) Application() application.AvailabilityException {
	exception := application.AvailabilityException{
		ID:        f.ID,
		Date:      f.Date,
		Available: f.Available,
		Reason:    cloneString(f.Reason),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.Start != nil && f.End != nil {
		start, end := *f.Start, *f.End
		exception.Start, exception.End = &start, &end
	}
	return exception
}

// Persistence returns the fixture as a persistence.AvailabilityException.
func (f ExceptionFixture) Persistence() persistence.AvailabilityException {
	exception := persistence.AvailabilityException{
		ID:        f.ID,
		Date:      f.Date,
		Available: f.Available,
		Reason:    cloneString(f.Reason),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.Start != nil && f.End != nil {
		start, end := f.Start.Minutes(), f.End.Minutes()
		exception.StartMinute, exception.EndMinute = &start, &end
	}
	return exception
}

// Input returns the fixture as an application.ExceptionInput.
func (f ExceptionFixture) Input() application.ExceptionInput {
	input := application.ExceptionInput{
		Date:      availability.FormatDate(f.Date),
		Available: f.Available,
		Reason:    cloneString(f.Reason),
	}
	if f.Start != nil && f.End != nil {
		input.Start, input.End = f.Start.String(), f.End.String()
	}
	return input
}

// ----------------------------- Booking fixtures -----------------------------

// BookingFixture represents a deterministic booking. The default is a pending,
// unpaid one hour lesson at 09:00 on the reference date.
type BookingFixture struct {
	ID              string
	LessonTypeID    string
	Date            time.Time
	Start           availability.ClockTime
	DurationMinutes int
	AthleteIDs      []string
	Status          application.BookingStatus
	PaymentStatus   application.PaymentStatus
	ContactName     string
	ContactEmail    string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture with optional overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		ID:              fmt.Sprintf("booking-%03d", idx),
		LessonTypeID:    "lesson-001",
		Date:            ReferenceDate(),
		Start:           availability.MustParseClock("09:00"),
		DurationMinutes: 60,
		AthleteIDs:      []string{"athlete-001"},
		Status:          application.BookingPending,
		PaymentStatus:   application.PaymentUnpaid,
		ContactName:     "Dana Parent",
		ContactEmail:    "dana@example.com",
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingLessonType sets the lesson type and its duration snapshot.
func WithBookingLessonType(id string, durationMinutes int) BookingOption {
	return func(f *BookingFixture) {
		f.LessonTypeID = id
		f.DurationMinutes = durationMinutes
	}
}

// WithBookingSlot sets the lesson date and start time (HH:MM).
func WithBookingSlot(date time.Time, start string) BookingOption {
	return func(f *BookingFixture) {
		f.Date = availability.DateOf(date)
		f.Start = availability.MustParseClock(start)
	}
}

// WithBookingAthletes overrides the attending athletes.
func WithBookingAthletes(ids ...string) BookingOption {
	return func(f *BookingFixture) {
		f.AthleteIDs = append([]string(nil), ids...)
	}
}

// WithBookingStatus overrides the lifecycle status.
func WithBookingStatus(status application.BookingStatus) BookingOption {
	return func(f *BookingFixture) {
		f.Status = status
	}
}

// WithPaymentStatus overrides the payment status.
func WithPaymentStatus(status application.PaymentStatus) BookingOption {
	return func(f *BookingFixture) {
		f.PaymentStatus = status
	}
}

// Application returns the fixture as an application.Booking.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:              f.ID,
		LessonTypeID:    f.LessonTypeID,
		Date:            f.Date,
		Start:           f.Start,
		DurationMinutes: f.DurationMinutes,
		AthleteIDs:      append([]string(nil), f.AthleteIDs...),
		Status:          f.Status,
		PaymentStatus:   f.PaymentStatus,
		ContactName:     f.ContactName,
		ContactEmail:    f.ContactEmail,
		Notes:           cloneString(f.Notes),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:              f.ID,
		LessonTypeID:    f.LessonTypeID,
		LessonDate:      f.Date,
		StartMinute:     f.Start.Minutes(),
		DurationMinutes: f.DurationMinutes,
		AthleteIDs:      append([]string(nil), f.AthleteIDs...),
		Status:          string(f.Status),
		PaymentStatus:   string(f.PaymentStatus),
		ContactName:     f.ContactName,
		ContactEmail:    f.ContactEmail,
		Notes:           cloneString(f.Notes),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Input returns the fixture as an application.BookingInput.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		LessonTypeID: f.LessonTypeID,
		Date:         availability.FormatDate(f.Date),
		Time:         f.Start.String(),
		AthleteIDs:   append([]string(nil), f.AthleteIDs...),
		ContactName:  f.ContactName,
		ContactEmail: f.ContactEmail,
		Notes:        cloneString(f.Notes),
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
