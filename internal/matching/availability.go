package matching

import (
	"errors"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata"
)

const minutesPerDay = 24 * 60

var (
	errNoDeclaredAvailability = errors.New("no declared availability")
	errEmptyInterval          = errors.New("interval end must be after start")
	errOverlappingSlots       = errors.New("committed slots overlap")
)

// Overlaps reports whether two half-open intervals intersect.
// Intervals that only touch at a boundary do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func contains(outer, inner Interval) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// IsAvailable reports whether the candidate can take the window. The window
// must sit inside one declared window and clear every committed slot.
// Missing or corrupt availability data yields false.
func IsAvailable(candidate CandidateProvider, window TimeWindow) bool {
	if window.Duration <= 0 {
		return false
	}
	if err := checkAvailabilityData(candidate); err != nil {
		return false
	}

	requested := window.Interval()
	for _, slot := range candidate.CommittedSlots {
		if Overlaps(requested, slot) {
			return false
		}
	}
	return withinDeclared(candidate.DeclaredAvailability, requested)
}

func withinDeclared(declared DeclaredAvailability, requested Interval) bool {
	for _, w := range declared.Windows {
		if contains(w, requested) {
			return true
		}
	}
	for _, w := range declared.Weekly {
		occurrence, ok := weeklyOccurrence(w, requested.Start)
		if ok && contains(occurrence, requested) {
			return true
		}
	}
	return false
}

// weeklyOccurrence returns the instance of w on the local day containing at.
func weeklyOccurrence(w WeeklyWindow, at time.Time) (Interval, bool) {
	loc, err := loadZone(w.TimeZone)
	if err != nil {
		return Interval{}, false
	}
	local := at.In(loc)
	if local.Weekday() != w.Weekday {
		return Interval{}, false
	}
	y, m, d := local.Date()
	start := time.Date(y, m, d, w.StartMinute/60, w.StartMinute%60, 0, 0, loc)
	end := time.Date(y, m, d, w.EndMinute/60, w.EndMinute%60, 0, 0, loc)
	return Interval{Start: start, End: end}, true
}

func loadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// checkAvailabilityData rejects availability records that cannot be evaluated.
func checkAvailabilityData(c CandidateProvider) error {
	if c.DeclaredAvailability.IsEmpty() {
		return errNoDeclaredAvailability
	}
	for i, w := range c.DeclaredAvailability.Windows {
		if !w.End.After(w.Start) {
			return fmt.Errorf("declared window %d: %w", i, errEmptyInterval)
		}
	}
	for i, w := range c.DeclaredAvailability.Weekly {
		if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
			return fmt.Errorf("weekly window %d: weekday %d out of range", i, w.Weekday)
		}
		if w.StartMinute < 0 || w.EndMinute > minutesPerDay || w.EndMinute <= w.StartMinute {
			return fmt.Errorf("weekly window %d: minutes %d-%d invalid", i, w.StartMinute, w.EndMinute)
		}
		if _, err := loadZone(w.TimeZone); err != nil {
			return fmt.Errorf("weekly window %d: %w", i, err)
		}
	}

	if len(c.CommittedSlots) == 0 {
		return nil
	}
	slots := make([]Interval, len(c.CommittedSlots))
	copy(slots, c.CommittedSlots)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	for i, s := range slots {
		if !s.End.After(s.Start) {
			return fmt.Errorf("committed slot %s: %w", s.Start.Format(time.RFC3339), errEmptyInterval)
		}
		if i > 0 && Overlaps(slots[i-1], s) {
			return errOverlappingSlots
		}
	}
	return nil
}
