package persistence

import "time"

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

// Athlete represents a gymnast and the parent contact responsible for them.
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

// AvailabilityWindow is a stored opening (or block) on the coaching calendar.
// Times of day are minutes since midnight.
type AvailabilityWindow struct {
	ID          string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	Recurring   bool
	Available   bool
	Date        *time.Time
	Note        *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityException overrides the weekly calendar on a single date.
type AvailabilityException struct {
	ID          string
	Date        time.Time
	StartMinute *int
	EndMinute   *int
	Available   bool
	Reason      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Booking is a reserved lesson.
type Booking struct {
	ID              string
	LessonTypeID    string
	LessonDate      time.Time
	StartMinute     int
	DurationMinutes int
	AthleteIDs      []string
	Status          string
	PaymentStatus   string
	ContactName     string
	ContactEmail    string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
