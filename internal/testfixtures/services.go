package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/coaching-booking/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Settings    application.SlotSettings
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithSlotSettings overrides the slot settings shared by the availability and
// booking services.
func WithSlotSettings(settings application.SlotSettings) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Settings = settings
	}
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// LessonTypeServiceDeps captures dependencies for constructing a lesson type service.
type LessonTypeServiceDeps struct {
	LessonTypes application.LessonTypeRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewLessonTypeService builds a lesson type service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewLessonTypeService(deps LessonTypeServiceDeps) *application.LessonTypeService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewLessonTypeServiceWithLogger(deps.LessonTypes, idGen, now, deps.Logger)
}

// AthleteServiceDeps captures dependencies for constructing an athlete service.
type AthleteServiceDeps struct {
	Athletes    application.AthleteRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAthleteService builds an athlete service using the supplied dependencies.
func (f *ServiceFactory) NewAthleteService(deps AthleteServiceDeps) *application.AthleteService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewAthleteServiceWithLogger(deps.Athletes, idGen, now, deps.Logger)
}

// AvailabilityServiceDeps captures dependencies for constructing an availability service.
type AvailabilityServiceDeps struct {
	Availability application.AvailabilityRepository
	LessonTypes  application.LessonTypeCatalog
	Bookings     application.BookingLister
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAvailabilityService builds an availability service using the supplied
// dependencies and the factory slot settings.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewAvailabilityServiceWithLogger(
		deps.Availability,
		deps.LessonTypes,
		deps.Bookings,
		f.Settings,
		idGen,
		now,
		deps.Logger,
	)
}

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Bookings    application.BookingRepository
	Calendar    application.CalendarSource
	LessonTypes application.LessonTypeCatalog
	Athletes    application.AthleteDirectory
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewBookingService builds a booking service using the supplied dependencies
// and the factory slot settings.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewBookingServiceWithLogger(
		deps.Bookings,
		deps.Calendar,
		deps.LessonTypes,
		deps.Athletes,
		f.Settings,
		idGen,
		now,
		deps.Logger,
	)
}
