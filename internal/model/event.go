package model

import (
	"errors"
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the two ranges share any time. Touching
// endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Within(o Interval) bool {
	return !i.Start.Before(o.Start) && !i.End.After(o.End)
}

type ExistingEvent struct {
	Title string
	Start time.Time
	End   time.Time
}

func (e ExistingEvent) Interval() Interval {
	return Interval{Start: e.Start, End: e.End}
}

func (e ExistingEvent) Validate() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return errors.New("model: event start and end are required")
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("model: event %q ends at or before its start", e.Title)
	}
	return nil
}
