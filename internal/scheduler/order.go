package scheduler

import (
	"cmp"
	"sort"
	"strconv"
	"strings"

	"github.com/sandeepkv93/taskplan/internal/model"
)

// SortTasks returns the tasks in placement order: priority, then deadline
// (none last), then estimate (unknown last), then id.
func SortTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return taskLess(out[i], out[j])
	})
	return out
}

func taskLess(a, b model.Task) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	switch {
	case a.Deadline == nil && b.Deadline != nil:
		return false
	case a.Deadline != nil && b.Deadline == nil:
		return true
	case a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
		return a.Deadline.Before(*b.Deadline)
	}
	switch {
	case a.EstimatedMinutes == nil && b.EstimatedMinutes != nil:
		return false
	case a.EstimatedMinutes != nil && b.EstimatedMinutes == nil:
		return true
	case a.EstimatedMinutes != nil && b.EstimatedMinutes != nil && *a.EstimatedMinutes != *b.EstimatedMinutes:
		return *a.EstimatedMinutes < *b.EstimatedMinutes
	}
	return CompareIDs(a.ID, b.ID) < 0
}

// CompareIDs is a total order on ids: integer ids come first, ordered by
// value with ties (such as "01" and "1") broken by their text, and every
// other id follows in lexicographic order.
func CompareIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
