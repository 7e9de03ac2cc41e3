package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day expressed as minutes since midnight.
type ClockTime int

const (
	// Midnight is the first minute of the day.
	Midnight ClockTime = 0
	// EndOfDay is the exclusive upper bound of a day (24:00).
	EndOfDay ClockTime = 24 * 60
	// BusinessOpen marks the start of normal coaching hours.
	BusinessOpen ClockTime = 8 * 60
	// BusinessClose marks the end of normal coaching hours.
	BusinessClose ClockTime = 20 * 60
)

const dateLayout = "2006-01-02"

var (
	// ErrInvalidClock indicates a time of day could not be parsed or is out of range.
	ErrInvalidClock = errors.New("availability: invalid time of day")
	// ErrInvalidDate indicates a calendar date could not be parsed.
	ErrInvalidDate = errors.New("availability: invalid date")
)

// ParseClock parses an "HH:MM" value. "24:00" is accepted as the end of day.
func ParseClock(value string) (ClockTime, error) {
	value = strings.TrimSpace(value)
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	clock := ClockTime(hours*60 + minutes)
	if !clock.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return clock, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParseClock is like ParseClock but panics on malformed input.
func MustParseClock(value string) ClockTime {
	clock, err := ParseClock(value)
	if err != nil {
		panic(err)
	}
	return clock
}

// Valid reports whether the clock lies within [00:00, 24:00].
func (c ClockTime) Valid() bool {
	return c >= Midnight && c <= EndOfDay
}

// Add returns the clock shifted by the given number of minutes.
func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

// Minutes returns the clock as minutes since midnight.
func (c ClockTime) Minutes() int {
	return int(c)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ClockOf returns the time of day of t in t's location, truncated to the minute.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// ParseDate parses a YYYY-MM-DD calendar date. The result is midnight UTC.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return date, nil
}

// FormatDate renders the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DateOf returns the calendar date of t (in t's location) as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
