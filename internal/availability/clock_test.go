package availability

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	valid := map[string]ClockTime{
		"00:00": 0,
		"8:05":  485,
		"09:30": 570,
		"23:59": 1439,
		"24:00": EndOfDay,
	}
	for input, want := range valid {
		got, err := ParseClock(input)
		if err != nil {
			t.Fatalf("ParseClock(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseClock(%q) = %d, want %d", input, got, want)
		}
	}

	for _, input := range []string{"", "9", "09:3", "24:01", "25:00", "-1:00", "ab:cd", "09:60", "+8:00", "08:+5", "8:-0", " 8:00:"} {
		if _, err := ParseClock(input); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("ParseClock(%q) expected ErrInvalidClock, got %v", input, err)
		}
	}
}

func TestClockTime_String(t *testing.T) {
	t.Parallel()

	if got := ClockTime(545).String(); got != "09:05" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := EndOfDay.String(); got != "24:00" {
		t.Fatalf("unexpected end of day format: %s", got)
	}
}

func TestDates(t *testing.T) {
	t.Parallel()

	date, err := ParseDate("2024-03-04")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if date.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", date.Weekday())
	}
	if FormatDate(date) != "2024-03-04" {
		t.Fatalf("unexpected formatted date %s", FormatDate(date))
	}
	if _, err := ParseDate("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	tokyo := time.FixedZone("JST", 9*60*60)
	late := time.Date(2024, time.March, 4, 23, 30, 0, 0, tokyo)
	if !SameDate(DateOf(late), date) {
		t.Fatalf("expected DateOf to keep the local calendar date")
	}
	if ClockOf(late) != MustParseClock("23:30") {
		t.Fatalf("unexpected clock of %v", late)
	}
}

func TestMergeIntervals(t *testing.T) {
	t.Parallel()

	merged := MergeIntervals([]Interval{
		{Start: 600, End: 660},
		{Start: 540, End: 600},
		{Start: 700, End: 700},
		{Start: 720, End: 780},
		{Start: 750, End: 770},
	})

	if len(merged) != 2 {
		t.Fatalf("expected 2 intervals, got %v", merged)
	}
	if merged[0] != (Interval{Start: 540, End: 660}) || merged[1] != (Interval{Start: 720, End: 780}) {
		t.Fatalf("unexpected merge result %v", merged)
	}
	if MergeIntervals(nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestInterval_Overlaps(t *testing.T) {
	t.Parallel()

	a := Interval{Start: 600, End: 660}
	if a.Overlaps(Interval{Start: 660, End: 720}) {
		t.Fatalf("adjacent intervals must not overlap")
	}
	if !a.Overlaps(Interval{Start: 659, End: 720}) {
		t.Fatalf("expected overlap")
	}
	if !a.Contains(Interval{Start: 610, End: 650}) {
		t.Fatalf("expected containment")
	}
}
