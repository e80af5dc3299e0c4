package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601 timestamp. Values without an offset are
// taken as wall-clock time in loc.
func ParseTimestamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("model: empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("model: unparseable timestamp %q", v)
}

func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}

// FlexID accepts task ids written as JSON strings or numbers.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("model: id must be a string or number: %s", string(b))
	}
	*f = FlexID(n.String())
	return nil
}

type TaskDoc struct {
	ID                     FlexID  `json:"id"`
	Title                  string  `json:"title"`
	Memo                   string  `json:"memo,omitempty"`
	Priority               *int    `json:"priority,omitempty"`
	PriorityLocked         bool    `json:"priority_locked"`
	Deadline               *string `json:"deadline"`
	DesiredAt              *string `json:"desired_at"`
	DesiredAtLocked        bool    `json:"desired_at_locked"`
	EstimatedMinutes       *int    `json:"estimated_minutes"`
	EstimatedMinutesLocked bool    `json:"estimated_minutes_locked"`
}

type EventDoc struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type RangeDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DayClassDoc struct {
	Name      string     `json:"name"`
	Days      []string   `json:"days,omitempty"`
	Intervals []RangeDoc `json:"intervals"`
}

type AvailabilityDoc struct {
	Timezone    string        `json:"timezone"`
	SlotMinutes int           `json:"slot_minutes"`
	DayClasses  []DayClassDoc `json:"day_classes"`
}

// InputDoc is the wire form of one planning request.
type InputDoc struct {
	Tasks          []TaskDoc       `json:"tasks"`
	ExistingEvents []EventDoc      `json:"existing_events"`
	Availability   AvailabilityDoc `json:"availability"`
	WindowStart    string          `json:"window_start"`
	WindowEnd      string          `json:"window_end"`
}

func DecodeInput(r io.Reader) (Input, error) {
	var doc InputDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return Input{}, fmt.Errorf("%w: decode input: %w", ErrInvalidInput, err)
	}
	return doc.ToInput()
}

func EncodeInput(w io.Writer, in Input) error {
	doc, err := InputDocFrom(in)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func ReadInputFile(path string) (Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return Input{}, err
	}
	defer f.Close()
	return DecodeInput(f)
}

func WriteInputFile(path string, in Input) error {
	var buf bytes.Buffer
	if err := EncodeInput(&buf, in); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func (d InputDoc) ToInput() (Input, error) {
	avail, err := d.Availability.toAvailability()
	if err != nil {
		return Input{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	loc, err := avail.Location()
	if err != nil {
		return Input{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if avail.WindowStart, err = ParseTimestamp(d.WindowStart, loc); err != nil {
		return Input{}, fmt.Errorf("%w: window_start: %w", ErrInvalidInput, err)
	}
	if avail.WindowEnd, err = ParseTimestamp(d.WindowEnd, loc); err != nil {
		return Input{}, fmt.Errorf("%w: window_end: %w", ErrInvalidInput, err)
	}

	in := Input{Availability: avail}
	for i, td := range d.Tasks {
		task, err := td.toTask(loc)
		if err != nil {
			return Input{}, fmt.Errorf("%w: task #%d: %w", ErrInvalidInput, i+1, err)
		}
		in.Tasks = append(in.Tasks, task)
	}
	for i, ed := range d.ExistingEvents {
		start, err := ParseTimestamp(ed.Start, loc)
		if err != nil {
			return Input{}, fmt.Errorf("%w: event #%d start: %w", ErrInvalidInput, i+1, err)
		}
		end, err := ParseTimestamp(ed.End, loc)
		if err != nil {
			return Input{}, fmt.Errorf("%w: event #%d end: %w", ErrInvalidInput, i+1, err)
		}
		in.Events = append(in.Events, ExistingEvent{Title: ed.Title, Start: start, End: end})
	}
	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (td TaskDoc) toTask(loc *time.Location) (Task, error) {
	t := Task{
		ID:       string(td.ID),
		Title:    td.Title,
		Memo:     td.Memo,
		Priority: PriorityMedium,
		Locks: Locks{
			Priority:         td.PriorityLocked,
			DesiredAt:        td.DesiredAtLocked,
			EstimatedMinutes: td.EstimatedMinutesLocked,
		},
	}
	if td.Priority != nil {
		t.Priority = Priority(*td.Priority)
	}
	if td.EstimatedMinutes != nil {
		v := *td.EstimatedMinutes
		t.EstimatedMinutes = &v
	}
	if td.Deadline != nil && strings.TrimSpace(*td.Deadline) != "" {
		v, err := ParseTimestamp(*td.Deadline, loc)
		if err != nil {
			return Task{}, fmt.Errorf("deadline: %w", err)
		}
		t.Deadline = &v
	}
	if td.DesiredAt != nil && strings.TrimSpace(*td.DesiredAt) != "" {
		v, err := ParseTimestamp(*td.DesiredAt, loc)
		if err != nil {
			return Task{}, fmt.Errorf("desired_at: %w", err)
		}
		t.DesiredAt = &v
	}
	return t, nil
}

func (ad AvailabilityDoc) toAvailability() (Availability, error) {
	out := Availability{SlotMinutes: ad.SlotMinutes, Timezone: ad.Timezone}
	for _, cd := range ad.DayClasses {
		class := DayClass{Name: cd.Name}
		if len(cd.Days) == 0 {
			class.Weekdays = DefaultWeekdays(cd.Name)
		}
		for _, day := range cd.Days {
			wd, err := ParseWeekday(day)
			if err != nil {
				return Availability{}, err
			}
			class.Weekdays = append(class.Weekdays, wd)
		}
		for _, rd := range cd.Intervals {
			r, err := ParseClockRange(rd.Start, rd.End)
			if err != nil {
				return Availability{}, fmt.Errorf("day class %q: %w", cd.Name, err)
			}
			class.Ranges = append(class.Ranges, r)
		}
		out.Classes = append(out.Classes, class)
	}
	return out, nil
}

func InputDocFrom(in Input) (InputDoc, error) {
	loc, err := in.Availability.Location()
	if err != nil {
		return InputDoc{}, err
	}
	doc := InputDoc{
		Tasks:          make([]TaskDoc, 0, len(in.Tasks)),
		ExistingEvents: make([]EventDoc, 0, len(in.Events)),
		Availability:   AvailabilityDocFrom(in.Availability),
		WindowStart:    FormatTimestamp(in.Availability.WindowStart, loc),
		WindowEnd:      FormatTimestamp(in.Availability.WindowEnd, loc),
	}
	for _, t := range in.Tasks {
		doc.Tasks = append(doc.Tasks, TaskDocFrom(t, loc))
	}
	for _, e := range in.Events {
		doc.ExistingEvents = append(doc.ExistingEvents, EventDoc{
			Title: e.Title,
			Start: FormatTimestamp(e.Start, loc),
			End:   FormatTimestamp(e.End, loc),
		})
	}
	return doc, nil
}

func TaskDocFrom(t Task, loc *time.Location) TaskDoc {
	p := int(t.Priority)
	doc := TaskDoc{
		ID:                     FlexID(t.ID),
		Title:                  t.Title,
		Memo:                   t.Memo,
		Priority:               &p,
		PriorityLocked:         t.Locks.Priority,
		DesiredAtLocked:        t.Locks.DesiredAt,
		EstimatedMinutes:       t.EstimatedMinutes,
		EstimatedMinutesLocked: t.Locks.EstimatedMinutes,
	}
	if t.Deadline != nil {
		v := FormatTimestamp(*t.Deadline, loc)
		doc.Deadline = &v
	}
	if t.DesiredAt != nil {
		v := FormatTimestamp(*t.DesiredAt, loc)
		doc.DesiredAt = &v
	}
	return doc
}

func AvailabilityDocFrom(a Availability) AvailabilityDoc {
	doc := AvailabilityDoc{Timezone: a.Timezone, SlotMinutes: a.SlotMinutes, DayClasses: make([]DayClassDoc, 0, len(a.Classes))}
	for _, c := range a.Classes {
		cd := DayClassDoc{Name: c.Name, Intervals: make([]RangeDoc, 0, len(c.Ranges))}
		for _, wd := range c.Weekdays {
			cd.Days = append(cd.Days, strings.ToLower(wd.String()[:3]))
		}
		for _, r := range c.Ranges {
			cd.Intervals = append(cd.Intervals, RangeDoc{Start: FormatClock(r.Start), End: FormatClock(r.End)})
		}
		doc.DayClasses = append(doc.DayClasses, cd)
	}
	return doc
}

type BlockDoc struct {
	TaskID string `json:"task_id"`
	Order  int    `json:"order"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type FailureDoc struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// PlanDoc is the wire form of a planning result.
type PlanDoc struct {
	Path     string       `json:"path"`
	Blocks   []BlockDoc   `json:"blocks"`
	Failures []FailureDoc `json:"failures"`
	Notes    []string     `json:"notes,omitempty"`
}

func PlanDocFrom(p Plan, loc *time.Location) PlanDoc {
	doc := PlanDoc{
		Path:     string(p.Path),
		Blocks:   make([]BlockDoc, 0, len(p.Blocks)),
		Failures: make([]FailureDoc, 0, len(p.Failures)),
		Notes:    p.Notes,
	}
	for _, b := range p.Blocks {
		doc.Blocks = append(doc.Blocks, BlockDoc{
			TaskID: b.TaskID,
			Order:  b.Order,
			Start:  FormatTimestamp(b.Start, loc),
			End:    FormatTimestamp(b.End, loc),
		})
	}
	for _, f := range p.Failures {
		doc.Failures = append(doc.Failures, FailureDoc{TaskID: f.TaskID, Reason: f.Reason})
	}
	return doc
}

func EncodePlan(w io.Writer, p Plan, loc *time.Location) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(PlanDocFrom(p, loc))
}
