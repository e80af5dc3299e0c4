package storage

import "time"

type Task struct {
	Owner                  string
	ID                     string
	Title                  string
	Memo                   string
	Priority               int
	PriorityLocked         bool
	Deadline               *time.Time
	DesiredAt              *time.Time
	DesiredAtLocked        bool
	EstimatedMinutes       *int
	EstimatedMinutesLocked bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Event is a committed calendar entry. TaskID is set when the event was
// materialized from a scheduled block.
type Event struct {
	ID        string
	Owner     string
	Title     string
	StartAt   time.Time
	EndAt     time.Time
	TaskID    string
	CreatedAt time.Time
}

type ClockRange struct {
	StartMinute int
	EndMinute   int
}

type DayClass struct {
	Name     string
	Weekdays []time.Weekday
	Ranges   []ClockRange
}

type Availability struct {
	Owner       string
	Timezone    string
	SlotMinutes int
	WindowStart time.Time
	WindowEnd   time.Time
	Classes     []DayClass
	UpdatedAt   time.Time
}

type PlanRun struct {
	ID          string
	Owner       string
	Path        string
	OracleModel string
	Notes       []string
	Failures    []PlanFailure
	CreatedAt   time.Time
}

type PlanFailure struct {
	TaskID string
	Reason string
}

type Block struct {
	Owner   string
	RunID   string
	TaskID  string
	Order   int
	StartAt time.Time
	EndAt   time.Time
}

type TaskListFilter struct {
	Owner  string
	Limit  int
	Offset int
}

type EventListFilter struct {
	Owner string
	From  *time.Time
	To    *time.Time
	Limit int
}
