package scheduler

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

// run accumulates the blocks of one placement pass.
type run struct {
	checker  *Checker
	cursor   Cursor
	placed   []model.Interval
	placedBy map[string]model.Interval
	failed   map[string]string
}

func newRun(checker *Checker) *run {
	return &run{
		checker:  checker,
		cursor:   checker.StartCursor(),
		placedBy: make(map[string]model.Interval),
		failed:   make(map[string]string),
	}
}

func (r *run) done(taskID string) bool {
	if _, ok := r.placedBy[taskID]; ok {
		return true
	}
	_, ok := r.failed[taskID]
	return ok
}

func (r *run) accept(taskID string, iv model.Interval, fromCursor bool) {
	if fromCursor {
		r.cursor = r.checker.Advance(r.cursor, iv, r.placed)
	}
	r.placed = append(r.placed, iv)
	r.placedBy[taskID] = iv
}

func (r *run) fail(taskID string, err error) {
	r.failed[taskID] = err.Error()
}

func (r *run) placePinned(t model.Task, at time.Time, d time.Duration) bool {
	iv, err := r.checker.Nearest(at, d, r.placed)
	if err != nil {
		r.fail(t.ID, err)
		return false
	}
	r.accept(t.ID, iv, false)
	return true
}

// placeForward probes from the cursor, or from the task's desired start
// when that lies later. Only cursor-seeded placements move the cursor.
func (r *run) placeForward(t model.Task, d time.Duration) bool {
	seed := r.cursor.At
	fromCursor := true
	if t.DesiredAt != nil && t.DesiredAt.After(seed) {
		seed = *t.DesiredAt
		fromCursor = false
	}
	iv, err := r.checker.Probe(seed, d, r.placed)
	if err != nil {
		r.fail(t.ID, err)
		return false
	}
	r.accept(t.ID, iv, fromCursor)
	return true
}

// Schedule is the local deterministic scheduler. It needs nothing but the
// input, always returns one block or one failure per task, and gives the
// same output for the same input.
func Schedule(in model.Input, rules Rules) (model.Plan, error) {
	if err := in.Validate(); err != nil {
		return model.Plan{}, err
	}
	checker, err := NewChecker(in.Availability, in.Events, rules)
	if err != nil {
		return model.Plan{}, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}

	sorted := SortTasks(in.Tasks)
	r := newRun(checker)
	for _, t := range sorted {
		if at, ok := t.PinnedStart(); ok {
			r.placePinned(t, at, t.Duration(rules.DefaultDuration))
		}
	}
	for _, t := range sorted {
		if r.done(t.ID) {
			continue
		}
		r.placeForward(t, t.Duration(rules.DefaultDuration))
	}

	plan := model.Plan{Path: model.PathFallback}
	for _, t := range sorted {
		if iv, ok := r.placedBy[t.ID]; ok {
			plan.Blocks = append(plan.Blocks, model.ScheduledBlock{
				TaskID: t.ID,
				Order:  len(plan.Blocks) + 1,
				Start:  iv.Start,
				End:    iv.End,
			})
			continue
		}
		plan.Failures = append(plan.Failures, model.Failure{TaskID: t.ID, Reason: r.failed[t.ID]})
	}
	plan.Updates = collectUpdates(sorted, r.placedBy, nil)
	return plan, nil
}

// collectUpdates lists the values this run determined for open fields:
// estimates taken from block lengths and priorities suggested upstream.
func collectUpdates(tasks []model.Task, placed map[string]model.Interval, priorities map[string]model.Priority) []model.TaskUpdate {
	var out []model.TaskUpdate
	for _, t := range tasks {
		u := model.TaskUpdate{TaskID: t.ID}
		if p, ok := priorities[t.ID]; ok && p != t.Priority && t.Locks.Allows(model.FieldPriority) {
			v := p
			u.Priority = &v
		}
		if iv, ok := placed[t.ID]; ok && t.Locks.Allows(model.FieldEstimatedMinutes) {
			minutes := int(iv.Duration().Round(time.Minute) / time.Minute)
			if minutes > 0 && (t.EstimatedMinutes == nil || *t.EstimatedMinutes != minutes) {
				u.EstimatedMinutes = &minutes
			}
		}
		if !u.IsEmpty() {
			out = append(out, u)
		}
	}
	return out
}
