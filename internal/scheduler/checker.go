package scheduler

import (
	"errors"
	"sort"
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

// Rules holds the tunables shared by every placement path.
type Rules struct {
	DefaultDuration time.Duration
	MaxContinuous   time.Duration
	Break           time.Duration
}

func DefaultRules() Rules {
	return Rules{
		DefaultDuration: 60 * time.Minute,
		MaxContinuous:   90 * time.Minute,
		Break:           10 * time.Minute,
	}
}

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonEmpty        Reason = "empty_interval"
	ReasonWindow       Reason = "outside_window"
	ReasonAvailability Reason = "outside_availability"
	ReasonEvent        Reason = "overlaps_event"
	ReasonBlock        Reason = "overlaps_block"
	ReasonFatigue      Reason = "continuous_work_limit"
)

// Verdict explains a legality decision. ConflictEnd is set for overlaps and
// is the end of the interval that was hit.
type Verdict struct {
	Legal       bool
	Reason      Reason
	ConflictEnd time.Time
}

// Checker answers whether a candidate interval may be placed. It holds only
// immutable data, so identical arguments always get identical answers.
type Checker struct {
	avail  model.Availability
	loc    *time.Location
	events []model.Interval
	rules  Rules
}

func NewChecker(avail model.Availability, events []model.ExistingEvent, rules Rules) (*Checker, error) {
	if err := avail.Validate(); err != nil {
		return nil, err
	}
	loc, err := avail.Location()
	if err != nil {
		return nil, err
	}
	if rules.DefaultDuration <= 0 {
		return nil, errors.New("scheduler: default duration must be positive")
	}
	evs := make([]model.Interval, 0, len(events))
	for _, e := range events {
		evs = append(evs, e.Interval())
	}
	sort.Slice(evs, func(i, j int) bool { return evs[i].Start.Before(evs[j].Start) })
	return &Checker{avail: avail, loc: loc, events: evs, rules: rules}, nil
}

func (c *Checker) Location() *time.Location { return c.loc }

func (c *Checker) Rules() Rules { return c.rules }

func (c *Checker) IsLegal(start, end time.Time, placed []model.Interval) bool {
	return c.Check(start, end, placed).Legal
}

func (c *Checker) Check(start, end time.Time, placed []model.Interval) Verdict {
	cand := model.Interval{Start: start, End: end}
	if !cand.Valid() {
		return Verdict{Reason: ReasonEmpty}
	}
	if !cand.Within(c.avail.Window()) {
		return Verdict{Reason: ReasonWindow}
	}
	if !c.avail.Covers(c.loc, start, end) {
		return Verdict{Reason: ReasonAvailability}
	}
	for _, ev := range c.events {
		if !ev.Start.Before(end) {
			break
		}
		if cand.Overlaps(ev) {
			return Verdict{Reason: ReasonEvent, ConflictEnd: ev.End}
		}
	}
	for _, p := range placed {
		if cand.Overlaps(p) {
			return Verdict{Reason: ReasonBlock, ConflictEnd: p.End}
		}
	}
	if work, links := c.chain(cand, placed); links > 1 && c.rules.MaxContinuous > 0 && work > c.rules.MaxContinuous {
		return Verdict{Reason: ReasonFatigue}
	}
	return Verdict{Legal: true}
}

// chain sums the work of the run of blocks linked to cand by gaps shorter
// than the break length. placed must not overlap cand.
func (c *Checker) chain(cand model.Interval, placed []model.Interval) (time.Duration, int) {
	all := make([]model.Interval, 0, len(placed)+1)
	all = append(all, placed...)
	all = append(all, cand)
	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })

	idx := 0
	for i, iv := range all {
		if iv == cand {
			idx = i
			break
		}
	}

	work := cand.Duration()
	links := 1
	cur := cand
	for j := idx - 1; j >= 0; j-- {
		if cur.Start.Sub(all[j].End) >= c.rules.Break {
			break
		}
		work += all[j].Duration()
		links++
		cur = all[j]
	}
	cur = cand
	for j := idx + 1; j < len(all); j++ {
		if all[j].Start.Sub(cur.End) >= c.rules.Break {
			break
		}
		work += all[j].Duration()
		links++
		cur = all[j]
	}
	return work, links
}
