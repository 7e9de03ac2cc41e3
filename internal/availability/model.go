package availability

import "time"

// Window is an availability window. Recurring windows repeat every week on
// Weekday; non-recurring windows apply only to Date. Unavailable windows block
// their range instead of opening it.
type Window struct {
	Weekday   time.Weekday
	Start     ClockTime
	End       ClockTime
	Recurring bool
	Available bool
	Date      time.Time
}

// AppliesTo reports whether the window is in effect on the given date.
func (w Window) AppliesTo(date time.Time) bool {
	if w.Recurring {
		return w.Weekday == date.Weekday()
	}
	if w.Date.IsZero() {
		return false
	}
	return SameDate(w.Date, date)
}

// Interval returns the time range covered by the window.
func (w Window) Interval() Interval {
	return Interval{Start: w.Start, End: w.End}
}

// Override reports whether the window reaches outside normal coaching hours.
func (w Window) Override() bool {
	return IsOverride(w.Start, w.End)
}

// Exception overrides the weekly schedule on a single date. An exception
// without times affects the whole day.
type Exception struct {
	Date      time.Time
	Start     *ClockTime
	End       *ClockTime
	Available bool
	Reason    string
}

// FullDay reports whether the exception has no time range.
func (e Exception) FullDay() bool {
	return e.Start == nil || e.End == nil
}

// Interval returns the exception's time range. Full day exceptions cover the
// whole day.
func (e Exception) Interval() Interval {
	if e.FullDay() {
		return Interval{Start: Midnight, End: EndOfDay}
	}
	return Interval{Start: *e.Start, End: *e.End}
}

// Occupancy is the calendar footprint of an existing booking.
type Occupancy struct {
	Date     time.Time
	Start    ClockTime
	Duration int
}

// Interval returns [Start, Start+Duration).
func (o Occupancy) Interval() Interval {
	return Interval{Start: o.Start, End: o.Start.Add(o.Duration)}
}

// Calendar gathers everything the slot computation evaluates.
type Calendar struct {
	Windows    []Window
	Exceptions []Exception
	Occupied   []Occupancy
}

// Slot is a bookable lesson start.
type Slot struct {
	Start    ClockTime
	End      ClockTime
	Override bool
}

// IsOverride reports whether [start, end) falls outside 08:00-20:00. The flag
// is informational and does not change slot evaluation.
func IsOverride(start, end ClockTime) bool {
	return start < BusinessOpen || end > BusinessClose
}
