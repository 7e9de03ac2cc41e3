package availability

import (
	"errors"
	"time"
)

// DefaultGranularity is the spacing, in minutes, between candidate starts.
const DefaultGranularity = 30

var (
	// ErrInvalidDuration indicates a non-positive lesson duration.
	ErrInvalidDuration = errors.New("availability: lesson duration must be positive")
	// ErrDayBlocked indicates an exception closes the whole date.
	ErrDayBlocked = errors.New("availability: date is blocked")
	// ErrOutsideAvailability indicates the requested start is not a slot even
	// before bookings are considered.
	ErrOutsideAvailability = errors.New("availability: requested time is outside availability")
	// ErrSlotTaken indicates the requested range overlaps an existing booking.
	ErrSlotTaken = errors.New("availability: requested time overlaps an existing booking")
)

// Options tunes slot generation.
type Options struct {
	// Granularity is the step between candidate starts in minutes.
	Granularity int
	// NotBefore drops candidates starting earlier than this clock, typically
	// the current time when computing slots for today.
	NotBefore *ClockTime
}

func (o Options) granularity() int {
	if o.Granularity <= 0 {
		return DefaultGranularity
	}
	return o.Granularity
}

// Compute returns the bookable slots for a lesson of the given duration on
// date.
//
// Open time is the union of available windows that apply to the date and
// available exceptions with a time range. Blocked time is made of unavailable
// windows, unavailable exceptions with a time range and occupied bookings. An
// unavailable exception without times yields no slots at all. Candidates are
// walked from the start of each merged open interval at the configured
// granularity and kept only when the lesson ends before the interval closes.
func Compute(cal Calendar, date time.Time, duration int, opts Options) []Slot {
	if duration <= 0 || DayBlocked(cal, date) {
		return nil
	}

	open, blocked := partition(cal, date)
	for _, occ := range cal.Occupied {
		if SameDate(occ.Date, date) {
			blocked = append(blocked, occ.Interval())
		}
	}
	blocked = MergeIntervals(blocked)

	// Merged intervals are sorted and separated by gaps, so starts come out
	// strictly increasing.
	step := opts.granularity()
	var slots []Slot
	for _, iv := range MergeIntervals(open) {
		for start := iv.Start; start.Add(duration) <= iv.End; start = start.Add(step) {
			if opts.NotBefore != nil && start < *opts.NotBefore {
				continue
			}
			candidate := Interval{Start: start, End: start.Add(duration)}
			if overlapsAny(candidate, blocked) {
				continue
			}
			slots = append(slots, Slot{
				Start:    candidate.Start,
				End:      candidate.End,
				Override: IsOverride(candidate.Start, candidate.End),
			})
		}
	}
	return slots
}

// CheckSlot verifies that a lesson starting at start on date is still bookable.
// It distinguishes a closed day, a start outside availability and an overlap
// with an existing booking so callers can report the reason.
func CheckSlot(cal Calendar, date time.Time, start ClockTime, duration int, opts Options) error {
	if duration <= 0 {
		return ErrInvalidDuration
	}
	if DayBlocked(cal, date) {
		return ErrDayBlocked
	}

	free := Compute(Calendar{Windows: cal.Windows, Exceptions: cal.Exceptions}, date, duration, opts)
	if !hasStart(free, start) {
		return ErrOutsideAvailability
	}

	candidate := Interval{Start: start, End: start.Add(duration)}
	for _, occ := range cal.Occupied {
		if SameDate(occ.Date, date) && occ.Interval().Overlaps(candidate) {
			return ErrSlotTaken
		}
	}
	return nil
}

// DayBlocked reports whether an unavailable full-day exception covers date.
func DayBlocked(cal Calendar, date time.Time) bool {
	for _, ex := range cal.Exceptions {
		if !ex.Available && ex.FullDay() && SameDate(ex.Date, date) {
			return true
		}
	}
	return false
}

// OpenIntervals returns the merged open time for date, before blocks and
// bookings are subtracted.
func OpenIntervals(cal Calendar, date time.Time) []Interval {
	open, _ := partition(cal, date)
	return MergeIntervals(open)
}

func partition(cal Calendar, date time.Time) (open, blocked []Interval) {
	for _, w := range cal.Windows {
		if !w.AppliesTo(date) {
			continue
		}
		if w.Available {
			open = append(open, w.Interval())
		} else {
			blocked = append(blocked, w.Interval())
		}
	}
	for _, ex := range cal.Exceptions {
		if !SameDate(ex.Date, date) || ex.FullDay() {
			continue
		}
		if ex.Available {
			open = append(open, ex.Interval())
		} else {
			blocked = append(blocked, ex.Interval())
		}
	}
	return open, blocked
}

func overlapsAny(candidate Interval, blocked []Interval) bool {
	for _, b := range blocked {
		if b.Overlaps(candidate) {
			return true
		}
	}
	return false
}

func hasStart(slots []Slot, start ClockTime) bool {
	for _, s := range slots {
		if s.Start == start {
			return true
		}
	}
	return false
}
