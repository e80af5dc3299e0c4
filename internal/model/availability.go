package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var ErrInvalidAvailability = errors.New("model: invalid availability")

// ClockRange is a span of local wall-clock time within one day, in minutes
// from midnight. End may be 1440 to reach the following midnight.
type ClockRange struct {
	Start int
	End   int
}

func ParseClockRange(start, end string) (ClockRange, error) {
	s, err := parseClock(start)
	if err != nil {
		return ClockRange{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return ClockRange{}, err
	}
	r := ClockRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return ClockRange{}, err
	}
	return r, nil
}

func (r ClockRange) Validate() error {
	if r.Start < 0 || r.End > minutesPerDay || r.End <= r.Start {
		return fmt.Errorf("%w: clock range %s-%s", ErrInvalidAvailability, FormatClock(r.Start), FormatClock(r.End))
	}
	return nil
}

func (r ClockRange) String() string {
	return FormatClock(r.Start) + "-" + FormatClock(r.End)
}

func parseClock(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "24:00" {
		return minutesPerDay, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidAvailability, v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DayClass names a group of weekdays sharing the same working hours.
type DayClass struct {
	Name     string
	Weekdays []time.Weekday
	Ranges   []ClockRange
}

// Availability is the recurring weekly working pattern plus the absolute
// planning window. An availability without classes allows any time of day.
type Availability struct {
	Classes     []DayClass
	SlotMinutes int
	Timezone    string
	WindowStart time.Time
	WindowEnd   time.Time
}

func (a Availability) Window() Interval {
	return Interval{Start: a.WindowStart, End: a.WindowEnd}
}

func (a Availability) Slot() time.Duration {
	return time.Duration(a.SlotMinutes) * time.Minute
}

func (a Availability) Location() (*time.Location, error) {
	if strings.TrimSpace(a.Timezone) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q", ErrInvalidAvailability, a.Timezone)
	}
	return loc, nil
}

func (a Availability) Validate() error {
	if a.SlotMinutes <= 0 {
		return fmt.Errorf("%w: slot_minutes must be positive, got %d", ErrInvalidAvailability, a.SlotMinutes)
	}
	if a.WindowStart.IsZero() || a.WindowEnd.IsZero() {
		return fmt.Errorf("%w: window_start and window_end are required", ErrInvalidAvailability)
	}
	if !a.WindowEnd.After(a.WindowStart) {
		return fmt.Errorf("%w: window_end must be after window_start", ErrInvalidAvailability)
	}
	if _, err := a.Location(); err != nil {
		return err
	}
	for _, c := range a.Classes {
		if len(c.Weekdays) == 0 {
			return fmt.Errorf("%w: day class %q has no weekdays", ErrInvalidAvailability, c.Name)
		}
		for _, r := range c.Ranges {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("day class %q: %w", c.Name, err)
			}
		}
	}
	return nil
}

// RangesOn returns the merged working ranges for a weekday, sorted by start.
func (a Availability) RangesOn(day time.Weekday) []ClockRange {
	if len(a.Classes) == 0 {
		return []ClockRange{{Start: 0, End: minutesPerDay}}
	}
	out := make([]ClockRange, 0, 2)
	for _, c := range a.Classes {
		if !containsWeekday(c.Weekdays, day) {
			continue
		}
		out = append(out, c.Ranges...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Covers reports whether [start, end) lies entirely inside working hours
// when projected onto local days. Ranges that touch across midnight, or
// across each other within a day, chain together.
func (a Availability) Covers(loc *time.Location, start, end time.Time) bool {
	if !end.After(start) {
		return false
	}
	p := start.In(loc)
	stop := end.In(loc)
	for p.Before(stop) {
		y, m, d := p.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
		reach := p
		for _, r := range a.RangesOn(p.Weekday()) {
			rs := time.Date(y, m, d, 0, r.Start, 0, 0, loc)
			re := time.Date(y, m, d, 0, r.End, 0, 0, loc)
			if rs.After(reach) {
				break
			}
			if re.After(reach) {
				reach = re
			}
		}
		if !reach.After(p) {
			return false
		}
		if reach.Before(stop) && !reach.Equal(midnight.AddDate(0, 0, 1)) {
			// a gap inside the day
			return false
		}
		p = reach
	}
	return true
}

// AlignUp returns the first slot boundary at or after t, counting slots
// from local midnight.
func (a Availability) AlignUp(loc *time.Location, t time.Time) time.Time {
	slot := a.Slot()
	local := t.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	offset := local.Sub(midnight)
	steps := offset / slot
	if offset%slot != 0 {
		steps++
	}
	out := midnight.Add(steps * slot)
	next := midnight.AddDate(0, 0, 1)
	if out.After(next) {
		return next
	}
	return out
}

// AlignDown returns the last slot boundary at or before t.
func (a Availability) AlignDown(loc *time.Location, t time.Time) time.Time {
	slot := a.Slot()
	local := t.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	offset := local.Sub(midnight)
	return midnight.Add((offset / slot) * slot)
}

// DefaultWeekdays returns the weekdays a well-known class name stands for.
func DefaultWeekdays(name string) []time.Weekday {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "weekday", "weekdays":
		return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	case "weekend", "weekends":
		return []time.Weekday{time.Saturday, time.Sunday}
	case "daily", "everyday", "all":
		return []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
	default:
		return nil
	}
}

func ParseWeekday(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "sun", "sunday":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tues", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thurs", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	default:
		return time.Sunday, fmt.Errorf("%w: weekday %q", ErrInvalidAvailability, v)
	}
}

func containsWeekday(days []time.Weekday, target time.Weekday) bool {
	for _, d := range days {
		if d == target {
			return true
		}
	}
	return false
}
