package model

import "time"

// Path names the component that produced a plan.
type Path string

const (
	PathExternal Path = "external"
	PathFallback Path = "fallback"
)

func (p Path) IsValid() bool {
	switch p {
	case PathExternal, PathFallback:
		return true
	default:
		return false
	}
}

type ScheduledBlock struct {
	TaskID string
	Order  int
	Start  time.Time
	End    time.Time
}

func (b ScheduledBlock) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

func (b ScheduledBlock) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// PartialBlock is one untrusted suggestion from an external estimator. Any
// field other than TaskID may be missing. Err is set when the entry could
// not be decoded.
type PartialBlock struct {
	TaskID           string
	Order            *int
	Start            *time.Time
	End              *time.Time
	EstimatedMinutes *int
	Priority         *int
	Err              error
}

// Failure reports a task that could not be placed. It never aborts the run.
type Failure struct {
	TaskID string
	Reason string
}

// Plan is the outcome of one planning run.
type Plan struct {
	Blocks   []ScheduledBlock
	Failures []Failure
	Path     Path
	Notes    []string
	Updates  []TaskUpdate
}

func (p Plan) BlockFor(taskID string) (ScheduledBlock, bool) {
	for _, b := range p.Blocks {
		if b.TaskID == taskID {
			return b, true
		}
	}
	return ScheduledBlock{}, false
}
