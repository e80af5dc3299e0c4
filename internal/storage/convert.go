package storage

import (
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

func TaskFromModel(owner string, t model.Task, now time.Time) Task {
	return Task{
		Owner:                  owner,
		ID:                     t.ID,
		Title:                  t.Title,
		Memo:                   t.Memo,
		Priority:               int(t.Priority),
		PriorityLocked:         t.Locks.Priority,
		Deadline:               cloneTime(t.Deadline),
		DesiredAt:              cloneTime(t.DesiredAt),
		DesiredAtLocked:        t.Locks.DesiredAt,
		EstimatedMinutes:       cloneInt(t.EstimatedMinutes),
		EstimatedMinutesLocked: t.Locks.EstimatedMinutes,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func (t Task) ToModel() model.Task {
	return model.Task{
		ID:               t.ID,
		Title:            t.Title,
		Memo:             t.Memo,
		Priority:         model.Priority(t.Priority),
		Deadline:         cloneTime(t.Deadline),
		DesiredAt:        cloneTime(t.DesiredAt),
		EstimatedMinutes: cloneInt(t.EstimatedMinutes),
		Locks: model.Locks{
			Priority:         t.PriorityLocked,
			DesiredAt:        t.DesiredAtLocked,
			EstimatedMinutes: t.EstimatedMinutesLocked,
		},
	}
}

// WithModel copies the mutable task fields from m, keeping identity and
// creation time.
func (t Task) WithModel(m model.Task, now time.Time) Task {
	out := TaskFromModel(t.Owner, m, now)
	out.CreatedAt = t.CreatedAt
	return out
}

func (e Event) ToModel() model.ExistingEvent {
	return model.ExistingEvent{Title: e.Title, Start: e.StartAt, End: e.EndAt}
}

func AvailabilityFromModel(owner string, a model.Availability, now time.Time) Availability {
	out := Availability{
		Owner:       owner,
		Timezone:    a.Timezone,
		SlotMinutes: a.SlotMinutes,
		WindowStart: a.WindowStart,
		WindowEnd:   a.WindowEnd,
		UpdatedAt:   now,
	}
	for _, c := range a.Classes {
		dc := DayClass{Name: c.Name, Weekdays: append([]time.Weekday(nil), c.Weekdays...)}
		for _, r := range c.Ranges {
			dc.Ranges = append(dc.Ranges, ClockRange{StartMinute: r.Start, EndMinute: r.End})
		}
		out.Classes = append(out.Classes, dc)
	}
	return out
}

func (a Availability) ToModel() model.Availability {
	out := model.Availability{
		SlotMinutes: a.SlotMinutes,
		Timezone:    a.Timezone,
		WindowStart: a.WindowStart,
		WindowEnd:   a.WindowEnd,
	}
	for _, c := range a.Classes {
		dc := model.DayClass{Name: c.Name, Weekdays: append([]time.Weekday(nil), c.Weekdays...)}
		for _, r := range c.Ranges {
			dc.Ranges = append(dc.Ranges, model.ClockRange{Start: r.StartMinute, End: r.EndMinute})
		}
		out.Classes = append(out.Classes, dc)
	}
	return out
}

func (b Block) ToModel() model.ScheduledBlock {
	return model.ScheduledBlock{TaskID: b.TaskID, Order: b.Order, Start: b.StartAt, End: b.EndAt}
}

func BlocksFromPlan(owner, runID string, p model.Plan) []Block {
	out := make([]Block, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		out = append(out, Block{
			Owner:   owner,
			RunID:   runID,
			TaskID:  b.TaskID,
			Order:   b.Order,
			StartAt: b.Start,
			EndAt:   b.End,
		})
	}
	return out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
