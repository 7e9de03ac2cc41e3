package availability

import "sort"

// Interval is a half-open time-of-day range [Start, End).
type Interval struct {
	Start ClockTime
	End   ClockTime
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// Overlaps reports whether the two half-open intervals share any minute.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether other lies entirely within i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

// Minutes returns the length of the interval.
func (i Interval) Minutes() int {
	if i.Empty() {
		return 0
	}
	return int(i.End - i.Start)
}

// MergeIntervals returns the union of the supplied intervals ordered by start.
// Overlapping and adjacent intervals are coalesced and empty ones dropped.
func MergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Empty() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
