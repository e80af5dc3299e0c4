package scheduler

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

type IssueKind string

const (
	IssueUnknownTask  IssueKind = "unknown_task"
	IssueMalformed    IssueKind = "malformed"
	IssueDuplicate    IssueKind = "duplicate"
	IssueIllegalTimes IssueKind = "illegal_times"
)

// Issue records one candidate entry, or part of one, that reconciliation
// refused. Issues never abort a run.
type Issue struct {
	TaskID string
	Kind   IssueKind
	Detail string
}

func (i Issue) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("candidate %q: %s", i.TaskID, i.Kind)
	}
	return fmt.Sprintf("candidate %q: %s: %s", i.TaskID, i.Kind, i.Detail)
}

// Reconcile turns untrusted oracle candidates into a plan that satisfies
// every constraint the local scheduler does. Candidates are consumed in
// claimed order; whatever they leave unplaced is scheduled locally, so every
// task ends up with exactly one block or one failure.
func Reconcile(raw []model.PartialBlock, in model.Input, rules Rules) (model.Plan, []Issue, error) {
	if err := in.Validate(); err != nil {
		return model.Plan{}, nil, err
	}
	checker, err := NewChecker(in.Availability, in.Events, rules)
	if err != nil {
		return model.Plan{}, nil, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}

	known := make(map[string]model.Task, len(in.Tasks))
	for _, t := range in.Tasks {
		known[t.ID] = t
	}

	var issues []Issue
	var cands []model.PartialBlock
	seen := make(map[string]struct{})
	for _, c := range drainCandidates(raw) {
		if _, ok := known[c.TaskID]; !ok {
			issues = append(issues, Issue{TaskID: c.TaskID, Kind: IssueUnknownTask})
			continue
		}
		if _, dup := seen[c.TaskID]; dup {
			issues = append(issues, Issue{TaskID: c.TaskID, Kind: IssueDuplicate})
			continue
		}
		if c.Err != nil {
			issues = append(issues, Issue{TaskID: c.TaskID, Kind: IssueMalformed, Detail: c.Err.Error()})
			continue
		}
		if c.Start != nil && c.End != nil && !c.End.After(*c.Start) {
			issues = append(issues, Issue{TaskID: c.TaskID, Kind: IssueMalformed, Detail: "end is not after start"})
			continue
		}
		seen[c.TaskID] = struct{}{}
		cands = append(cands, c)
	}

	// effective holds each task with the candidate values its locks allow.
	effective := make(map[string]model.Task, len(in.Tasks))
	for _, t := range in.Tasks {
		effective[t.ID] = t
	}
	priorities := make(map[string]model.Priority)
	for _, c := range cands {
		t := effective[c.TaskID]
		if c.Priority != nil && t.Locks.Allows(model.FieldPriority) {
			if p := model.Priority(*c.Priority); p.IsValid() {
				t.Priority = p
				priorities[t.ID] = p
			} else {
				issues = append(issues, Issue{TaskID: t.ID, Kind: IssueMalformed, Detail: fmt.Sprintf("priority %d ignored", *c.Priority)})
			}
		}
		if c.EstimatedMinutes != nil && t.Locks.Allows(model.FieldEstimatedMinutes) {
			if *c.EstimatedMinutes > 0 {
				v := *c.EstimatedMinutes
				t.EstimatedMinutes = &v
			} else {
				issues = append(issues, Issue{TaskID: t.ID, Kind: IssueMalformed, Detail: fmt.Sprintf("estimate %d ignored", *c.EstimatedMinutes)})
			}
		}
		effective[t.ID] = t
	}
	sorted := make([]model.Task, 0, len(in.Tasks))
	for _, t := range in.Tasks {
		sorted = append(sorted, effective[t.ID])
	}
	sorted = SortTasks(sorted)

	r := newRun(checker)
	for _, t := range sorted {
		if at, ok := t.PinnedStart(); ok {
			r.placePinned(t, at, t.Duration(rules.DefaultDuration))
		}
	}

	var sequence []string
	for _, c := range cands {
		t := effective[c.TaskID]
		if _, pinned := t.PinnedStart(); pinned {
			if _, ok := r.placedBy[t.ID]; ok {
				sequence = append(sequence, t.ID)
			}
			continue
		}
		if c.Start != nil && c.End != nil {
			iv := model.Interval{Start: *c.Start, End: *c.End}
			detail := verbatimProblem(checker, t, iv, r.placed)
			if detail == "" {
				r.accept(t.ID, iv, true)
				sequence = append(sequence, t.ID)
				continue
			}
			issues = append(issues, Issue{TaskID: t.ID, Kind: IssueIllegalTimes, Detail: detail})
		}
		if r.placeForward(t, t.Duration(rules.DefaultDuration)) {
			sequence = append(sequence, t.ID)
		}
	}
	for _, t := range sorted {
		if r.done(t.ID) {
			continue
		}
		if r.placeForward(t, t.Duration(rules.DefaultDuration)) {
			sequence = append(sequence, t.ID)
		}
	}
	// pinned tasks without a candidate are placed but not yet sequenced
	sequenced := make(map[string]struct{}, len(sequence))
	for _, id := range sequence {
		sequenced[id] = struct{}{}
	}
	for _, t := range sorted {
		if _, ok := r.placedBy[t.ID]; !ok {
			continue
		}
		if _, ok := sequenced[t.ID]; !ok {
			sequence = append(sequence, t.ID)
		}
	}

	plan := model.Plan{Path: model.PathExternal}
	for i, id := range sequence {
		iv := r.placedBy[id]
		plan.Blocks = append(plan.Blocks, model.ScheduledBlock{TaskID: id, Order: i + 1, Start: iv.Start, End: iv.End})
	}
	for _, t := range sorted {
		if reason, ok := r.failed[t.ID]; ok {
			plan.Failures = append(plan.Failures, model.Failure{TaskID: t.ID, Reason: reason})
		}
	}
	for _, is := range issues {
		plan.Notes = append(plan.Notes, is.String())
	}

	originals := make([]model.Task, 0, len(sorted))
	for _, t := range sorted {
		originals = append(originals, known[t.ID])
	}
	plan.Updates = collectUpdates(originals, r.placedBy, priorities)
	return plan, issues, nil
}

// verbatimProblem explains why a candidate interval cannot be taken as is,
// or returns "" when it can.
func verbatimProblem(checker *Checker, t model.Task, iv model.Interval, placed []model.Interval) string {
	if !t.Locks.Allows(model.FieldEstimatedMinutes) && t.EstimatedMinutes != nil {
		if want := time.Duration(*t.EstimatedMinutes) * time.Minute; iv.Duration() != want {
			return fmt.Sprintf("length %s does not match locked estimate %s", iv.Duration(), want)
		}
	}
	if v := checker.Check(iv.Start, iv.End, placed); !v.Legal {
		return string(v.Reason)
	}
	return ""
}
