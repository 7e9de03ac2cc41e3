package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/coaching-booking/internal/persistence"
	"github.com/example/coaching-booking/internal/testfixtures"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return date
}

func seedLessonType(t *testing.T, h *testfixtures.SQLiteHarness, id, name string) persistence.LessonType {
	t.Helper()
	lessonType := testfixtures.NewLessonTypeFixture(
		testfixtures.WithLessonTypeID(id),
		testfixtures.WithLessonTypeName(name),
	).Persistence()
	if err := h.LessonTypes.CreateLessonType(context.Background(), lessonType); err != nil {
		t.Fatalf("CreateLessonType(%s) failed: %v", id, err)
	}
	return lessonType
}

func seedAthlete(t *testing.T, h *testfixtures.SQLiteHarness, id, first, last string) persistence.Athlete {
	t.Helper()
	athlete := testfixtures.NewAthleteFixture(
		testfixtures.WithAthleteID(id),
		testfixtures.WithAthleteName(first, last),
		testfixtures.WithParent("Parent "+last, "parent."+id+"@example.com"),
	).Persistence()
	if err := h.Athletes.CreateAthlete(context.Background(), athlete); err != nil {
		t.Fatalf("CreateAthlete(%s) failed: %v", id, err)
	}
	return athlete
}

func newBooking(id, lessonTypeID string, date time.Time, start int, athleteIDs ...string) persistence.Booking {
	booking := testfixtures.NewBookingFixture(
		testfixtures.WithBookingID(id),
		testfixtures.WithBookingLessonType(lessonTypeID, 60),
		testfixtures.WithBookingAthletes(athleteIDs...),
	).Persistence()
	booking.LessonDate = date
	booking.StartMinute = start
	return booking
}
