package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "taskplan-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func sampleAvailability(t *testing.T, owner string) Availability {
	t.Helper()
	return Availability{
		Owner:       owner,
		Timezone:    "Asia/Tokyo",
		SlotMinutes: 15,
		WindowStart: parseRFC3339(t, "2026-03-02T00:00:00Z"),
		WindowEnd:   parseRFC3339(t, "2026-03-03T00:00:00Z"),
		Classes: []DayClass{
			{
				Name:     "weekday",
				Weekdays: []time.Weekday{time.Monday, time.Tuesday},
				Ranges:   []ClockRange{{StartMinute: 540, EndMinute: 720}, {StartMinute: 780, EndMinute: 1080}},
			},
			{Name: "weekend", Weekdays: []time.Weekday{time.Saturday}},
		},
		UpdatedAt: parseRFC3339(t, "2026-03-01T12:00:00Z"),
	}
}

func TestTaskCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")
	desired := parseRFC3339(t, "2026-02-10T09:00:00+09:00")
	estimate := 45

	task := Task{
		Owner:                  "alice",
		ID:                     "task-1",
		Title:                  "Write schema",
		Memo:                   "Design storage layout",
		Priority:               1,
		PriorityLocked:         true,
		DesiredAt:              &desired,
		DesiredAtLocked:        true,
		EstimatedMinutes:       &estimate,
		EstimatedMinutesLocked: true,
		CreatedAt:              created,
		UpdatedAt:              created,
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := repo.GetTask(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != task.Title || !got.PriorityLocked || !got.DesiredAtLocked || !got.EstimatedMinutesLocked {
		t.Fatalf("unexpected task get result: %#v", got)
	}
	if got.DesiredAt == nil || !got.DesiredAt.Equal(desired) || got.DesiredAt.Location() != time.UTC {
		t.Fatalf("desired_at must round-trip as UTC instant, got %v", got.DesiredAt)
	}
	if got.EstimatedMinutes == nil || *got.EstimatedMinutes != 45 || got.Deadline != nil {
		t.Fatalf("unexpected optional fields: %#v", got)
	}

	if _, err := repo.GetTask(ctx, "bob", task.ID); err != ErrNotFound {
		t.Fatalf("tasks must be scoped per owner, got: %v", err)
	}

	task.Title = "Write schema v2"
	task.EstimatedMinutes = nil
	task.EstimatedMinutesLocked = false
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	list, err := repo.ListTasks(ctx, TaskListFilter{Owner: "alice"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Write schema v2" || list[0].EstimatedMinutes != nil {
		t.Fatalf("unexpected task list: %#v", list)
	}

	if err := repo.DeleteTask(ctx, "alice", task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	_, err = repo.GetTask(ctx, "alice", task.ID)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if err := repo.UpdateTask(ctx, task); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on update of missing task, got: %v", err)
	}
}

func TestListTasksPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := parseRFC3339(t, "2026-02-09T12:00:00Z")
	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		if err := repo.CreateTask(ctx, Task{Owner: "alice", ID: id, Title: id, Priority: 2, CreatedAt: at, UpdatedAt: at}); err != nil {
			t.Fatalf("create task %s: %v", id, err)
		}
	}

	page, err := repo.ListTasks(ctx, TaskListFilter{Owner: "alice", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("unexpected page: %#v", page)
	}
	tail, err := repo.ListTasks(ctx, TaskListFilter{Owner: "alice", Offset: 2})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != "c" {
		t.Fatalf("unexpected tail: %#v", tail)
	}
}

func TestEventListFilters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-03-01T00:00:00Z")

	events := []Event{
		{ID: "e2", Owner: "alice", Title: "Lunch", StartAt: parseRFC3339(t, "2026-03-02T12:00:00Z"), EndAt: parseRFC3339(t, "2026-03-02T13:00:00Z"), CreatedAt: now},
		{ID: "e1", Owner: "alice", Title: "Standup", StartAt: parseRFC3339(t, "2026-03-02T09:00:00Z"), EndAt: parseRFC3339(t, "2026-03-02T09:15:00Z"), CreatedAt: now},
		{ID: "e3", Owner: "alice", Title: "Dinner", StartAt: parseRFC3339(t, "2026-03-02T19:00:00Z"), EndAt: parseRFC3339(t, "2026-03-02T20:00:00Z"), CreatedAt: now},
		{ID: "e4", Owner: "bob", Title: "Gym", StartAt: parseRFC3339(t, "2026-03-02T10:00:00Z"), EndAt: parseRFC3339(t, "2026-03-02T11:00:00Z"), CreatedAt: now},
	}
	for _, e := range events {
		if err := repo.CreateEvent(ctx, e); err != nil {
			t.Fatalf("create event %s: %v", e.ID, err)
		}
	}

	all, err := repo.ListEvents(ctx, EventListFilter{Owner: "alice"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(all) != 3 || all[0].ID != "e1" || all[2].ID != "e3" {
		t.Fatalf("events must be sorted by start: %#v", all)
	}

	from := parseRFC3339(t, "2026-03-02T09:15:00Z")
	to := parseRFC3339(t, "2026-03-02T19:00:00Z")
	window, err := repo.ListEvents(ctx, EventListFilter{Owner: "alice", From: &from, To: &to})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(window) != 1 || window[0].ID != "e2" {
		t.Fatalf("touching events must be excluded: %#v", window)
	}

	limited, err := repo.ListEvents(ctx, EventListFilter{Owner: "alice", Limit: 2})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(limited) != 2 || limited[1].ID != "e2" {
		t.Fatalf("unexpected limited list: %#v", limited)
	}

	if err := repo.DeleteEvent(ctx, "alice", "e4"); err != ErrNotFound {
		t.Fatalf("deleting another owner's event must miss, got: %v", err)
	}
	bad := Event{ID: "bad", Owner: "alice", StartAt: now, EndAt: now, CreatedAt: now}
	if err := repo.CreateEvent(ctx, bad); err == nil {
		t.Fatalf("expected empty event to be rejected")
	}
}

func TestAvailabilityRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if _, err := repo.GetAvailability(ctx, "alice"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before save, got: %v", err)
	}

	avail := sampleAvailability(t, "alice")
	if err := repo.SaveAvailability(ctx, avail); err != nil {
		t.Fatalf("save availability: %v", err)
	}
	got, err := repo.GetAvailability(ctx, "alice")
	if err != nil {
		t.Fatalf("get availability: %v", err)
	}
	if got.Timezone != "Asia/Tokyo" || got.SlotMinutes != 15 || !got.WindowEnd.Equal(avail.WindowEnd) {
		t.Fatalf("unexpected availability header: %#v", got)
	}
	if len(got.Classes) != 2 {
		t.Fatalf("expected two day classes, got %#v", got.Classes)
	}
	weekday := got.Classes[0]
	if weekday.Name != "weekday" || len(weekday.Weekdays) != 2 || weekday.Weekdays[1] != time.Tuesday {
		t.Fatalf("unexpected weekday class: %#v", weekday)
	}
	if len(weekday.Ranges) != 2 || weekday.Ranges[1] != (ClockRange{StartMinute: 780, EndMinute: 1080}) {
		t.Fatalf("unexpected ranges: %#v", weekday.Ranges)
	}
	if len(got.Classes[1].Ranges) != 0 {
		t.Fatalf("class without ranges must stay empty: %#v", got.Classes[1])
	}

	avail.SlotMinutes = 30
	avail.Classes = avail.Classes[:1]
	if err := repo.SaveAvailability(ctx, avail); err != nil {
		t.Fatalf("resave availability: %v", err)
	}
	got, err = repo.GetAvailability(ctx, "alice")
	if err != nil {
		t.Fatalf("get availability: %v", err)
	}
	if got.SlotMinutes != 30 || len(got.Classes) != 1 {
		t.Fatalf("save must replace previous availability: %#v", got)
	}
}

func TestReplaceSnapshotDropsPreviousInputs(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-03-01T00:00:00Z")

	first := []Task{{ID: "old", Title: "Old", Priority: 2, CreatedAt: now, UpdatedAt: now}}
	if err := repo.ReplaceSnapshot(ctx, "alice", first, nil, sampleAvailability(t, "alice")); err != nil {
		t.Fatalf("first snapshot: %v", err)
	}

	tasks := []Task{
		{ID: "1", Title: "One", Priority: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "2", Title: "Two", Priority: 3, CreatedAt: now, UpdatedAt: now},
	}
	events := []Event{{ID: "ev", Title: "Call", StartAt: parseRFC3339(t, "2026-03-02T01:00:00Z"), EndAt: parseRFC3339(t, "2026-03-02T02:00:00Z"), CreatedAt: now}}
	if err := repo.ReplaceSnapshot(ctx, "alice", tasks, events, sampleAvailability(t, "")); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	list, err := repo.ListTasks(ctx, TaskListFilter{Owner: "alice"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(list) != 2 || list[0].Owner != "alice" {
		t.Fatalf("unexpected tasks after snapshot: %#v", list)
	}
	evs, err := repo.ListEvents(ctx, EventListFilter{Owner: "alice"})
	if err != nil || len(evs) != 1 {
		t.Fatalf("unexpected events after snapshot: %#v %v", evs, err)
	}
	if _, err := repo.GetAvailability(ctx, "alice"); err != nil {
		t.Fatalf("availability must be stored under the snapshot owner: %v", err)
	}

	dup := []Task{{ID: "x", Title: "X", Priority: 1, CreatedAt: now, UpdatedAt: now}, {ID: "x", Title: "X", Priority: 1, CreatedAt: now, UpdatedAt: now}}
	if err := repo.ReplaceSnapshot(ctx, "alice", dup, nil, sampleAvailability(t, "alice")); err == nil {
		t.Fatalf("expected duplicate ids to fail")
	}
	list, err = repo.ListTasks(ctx, TaskListFilter{Owner: "alice"})
	if err != nil || len(list) != 2 {
		t.Fatalf("failed snapshot must roll back, got %#v %v", list, err)
	}
}

func TestReplacePlanAndCommit(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-03-01T00:00:00Z")

	if _, err := repo.LatestRun(ctx, "alice"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before any run, got: %v", err)
	}

	run1 := PlanRun{ID: "run-1", Owner: "alice", Path: "fallback", CreatedAt: now}
	blocks1 := []Block{{TaskID: "a", Order: 1, StartAt: parseRFC3339(t, "2026-03-02T09:00:00Z"), EndAt: parseRFC3339(t, "2026-03-02T10:00:00Z")}}
	if err := repo.ReplacePlan(ctx, run1, blocks1); err != nil {
		t.Fatalf("replace plan: %v", err)
	}

	run2 := PlanRun{
		ID:          "run-2",
		Owner:       "alice",
		Path:        "external",
		OracleModel: "gemini/gemini-flash-latest",
		Notes:       []string{"candidate \"9\": unknown_task", "second note"},
		Failures:    []PlanFailure{{TaskID: "c", Reason: "no legal slot"}},
		CreatedAt:   now,
	}
	blocks2 := []Block{
		{TaskID: "b", Order: 2, StartAt: parseRFC3339(t, "2026-03-02T10:10:00Z"), EndAt: parseRFC3339(t, "2026-03-02T11:10:00Z")},
		{TaskID: "a", Order: 1, StartAt: parseRFC3339(t, "2026-03-02T09:00:00Z"), EndAt: parseRFC3339(t, "2026-03-02T10:00:00Z")},
	}
	if err := repo.ReplacePlan(ctx, run2, blocks2); err != nil {
		t.Fatalf("replace plan: %v", err)
	}

	got, err := repo.ListBlocks(ctx, "alice")
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(got) != 2 || got[0].TaskID != "a" || got[1].TaskID != "b" || got[0].RunID != "run-2" {
		t.Fatalf("blocks must be replaced and sorted by order: %#v", got)
	}

	latest, err := repo.LatestRun(ctx, "alice")
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest.ID != "run-2" || latest.Path != "external" || len(latest.Notes) != 2 || len(latest.Failures) != 1 {
		t.Fatalf("unexpected latest run: %#v", latest)
	}

	dupOrder := []Block{
		{TaskID: "x", Order: 1, StartAt: now, EndAt: now.Add(time.Hour)},
		{TaskID: "y", Order: 1, StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour)},
	}
	if err := repo.ReplacePlan(ctx, PlanRun{ID: "run-3", Owner: "alice", Path: "fallback", CreatedAt: now}, dupOrder); err == nil {
		t.Fatalf("expected duplicate order to be rejected")
	}
	if got, _ := repo.ListBlocks(ctx, "alice"); len(got) != 2 {
		t.Fatalf("failed plan must keep previous blocks: %#v", got)
	}

	events := make([]Event, 0, len(got))
	for _, b := range got {
		events = append(events, Event{ID: "ev-" + b.TaskID, Title: "Task " + b.TaskID, StartAt: b.StartAt, EndAt: b.EndAt, TaskID: b.TaskID, CreatedAt: now})
	}
	if err := repo.CommitBlocks(ctx, "alice", events); err != nil {
		t.Fatalf("commit blocks: %v", err)
	}
	left, err := repo.ListBlocks(ctx, "alice")
	if err != nil || len(left) != 0 {
		t.Fatalf("commit must clear blocks: %#v %v", left, err)
	}
	committed, err := repo.ListEvents(ctx, EventListFilter{Owner: "alice"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(committed) != 2 || committed[0].TaskID != "a" {
		t.Fatalf("unexpected committed events: %#v", committed)
	}
}
