package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput    = errors.New("model: invalid input")
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidEstimate = errors.New("model: invalid task estimate")
	ErrFieldLocked     = errors.New("model: field is locked")
	ErrUnplaceable     = errors.New("model: no legal slot before window end")
)

type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

type Task struct {
	ID               string
	Title            string
	Memo             string
	Priority         Priority
	Deadline         *time.Time
	DesiredAt        *time.Time
	EstimatedMinutes *int
	Locks            Locks
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, int(t.Priority))
	}
	if t.EstimatedMinutes != nil && *t.EstimatedMinutes <= 0 {
		return fmt.Errorf("%w: %d minutes", ErrInvalidEstimate, *t.EstimatedMinutes)
	}
	if t.Locks.EstimatedMinutes && t.EstimatedMinutes == nil {
		return fmt.Errorf("%w: estimated_minutes is locked but empty", ErrInvalidEstimate)
	}
	return nil
}

// PinnedStart reports the start the user fixed for this task, if any.
func (t Task) PinnedStart() (time.Time, bool) {
	if !t.Locks.DesiredAt || t.DesiredAt == nil {
		return time.Time{}, false
	}
	return *t.DesiredAt, true
}

// Duration returns the task's own estimate, or fallback when it has none.
func (t Task) Duration(fallback time.Duration) time.Duration {
	if t.EstimatedMinutes != nil && *t.EstimatedMinutes > 0 {
		return time.Duration(*t.EstimatedMinutes) * time.Minute
	}
	return fallback
}

// TaskUpdate carries values a planning run determined for fields that were
// left open on the task record.
type TaskUpdate struct {
	TaskID           string
	Priority         *Priority
	EstimatedMinutes *int
}

func (u TaskUpdate) IsEmpty() bool {
	return u.Priority == nil && u.EstimatedMinutes == nil
}

// Apply writes the update into the task, refusing to touch locked fields.
// Writing a locked field with its current value is a no-op.
func (t *Task) Apply(u TaskUpdate) error {
	if u.TaskID != "" && u.TaskID != t.ID {
		return fmt.Errorf("model: update for %q applied to task %q", u.TaskID, t.ID)
	}
	if u.Priority != nil {
		if !u.Priority.IsValid() {
			return fmt.Errorf("%w: %d", ErrInvalidPriority, int(*u.Priority))
		}
		if *u.Priority != t.Priority {
			if !t.Locks.Allows(FieldPriority) {
				return fmt.Errorf("%w: %s on task %q", ErrFieldLocked, FieldPriority, t.ID)
			}
			t.Priority = *u.Priority
		}
	}
	if u.EstimatedMinutes != nil {
		if *u.EstimatedMinutes <= 0 {
			return fmt.Errorf("%w: %d minutes", ErrInvalidEstimate, *u.EstimatedMinutes)
		}
		if t.EstimatedMinutes == nil || *t.EstimatedMinutes != *u.EstimatedMinutes {
			if !t.Locks.Allows(FieldEstimatedMinutes) {
				return fmt.Errorf("%w: %s on task %q", ErrFieldLocked, FieldEstimatedMinutes, t.ID)
			}
			v := *u.EstimatedMinutes
			t.EstimatedMinutes = &v
		}
	}
	return nil
}
