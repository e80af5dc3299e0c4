package views

import (
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

func samplePlan() (model.Plan, []model.Task) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	plan := model.Plan{
		Path: model.PathExternal,
		Blocks: []model.ScheduledBlock{
			{TaskID: "2", Order: 2, Start: day.Add(10*time.Hour + 10*time.Minute), End: day.Add(11*time.Hour + 10*time.Minute)},
			{TaskID: "1", Order: 1, Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
		},
		Failures: []model.Failure{{TaskID: "3", Reason: "no legal slot"}},
		Notes:    []string{`candidate "9": unknown_task`},
	}
	write := model.Task{ID: "1", Title: "Write | draft", Priority: model.PriorityHigh}
	write.Locks.DesiredAt = true
	tasks := []model.Task{write, {ID: "2", Title: "Review", Priority: model.PriorityMedium}, {ID: "3", Title: "Huge", Priority: model.PriorityLow}}
	return plan, tasks
}

func TestBlockRowsFollowPlanOrder(t *testing.T) {
	plan, tasks := samplePlan()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	rows := BlockRows(plan, tasks, tokyo)
	if len(rows) != 2 || rows[0].TaskID != "1" || rows[1].TaskID != "2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].Start != "18:00" || rows[0].Minutes != 60 || rows[0].Priority != "High" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if len(rows[0].Locks) != 1 || rows[0].Locks[0] != "desired_at" {
		t.Fatalf("expected desired_at lock, got %v", rows[0].Locks)
	}
	if rows[1].Title != "Review" || rows[1].Day != "Mon 2026-03-02" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestRenderPlanPanelMarksSelection(t *testing.T) {
	plan, tasks := samplePlan()
	out := RenderPlanPanel(PlanPanelData{
		Path:       string(plan.Path),
		Model:      "gemini/gemini-flash-latest",
		Rows:       BlockRows(plan, tasks, time.UTC),
		SelectedID: "2",
	})
	if !strings.Contains(out, "external estimator (gemini/gemini-flash-latest)") {
		t.Fatalf("missing path label: %s", out)
	}
	if !strings.Contains(out, "> #2 10:10-11:10 Review") || !strings.Contains(out, "  #1 09:00-10:00") {
		t.Fatalf("unexpected agenda: %s", out)
	}

	empty := RenderPlanPanel(PlanPanelData{})
	if !strings.Contains(empty, "no plan yet") || !strings.Contains(empty, "(no blocks)") {
		t.Fatalf("unexpected empty panel: %s", empty)
	}
}

func TestRenderFailuresAndNotes(t *testing.T) {
	plan, tasks := samplePlan()
	failures := RenderFailures(FailureRows(plan, tasks))
	if failures != "unplaced:\n- 3 (Huge): no legal slot" {
		t.Fatalf("unexpected failures: %q", failures)
	}
	if RenderFailures(nil) != "" || RenderNotes(nil) != "" {
		t.Fatalf("empty sections must render nothing")
	}
	if !strings.HasPrefix(RenderNotes(plan.Notes), "notes:\n- candidate") {
		t.Fatalf("unexpected notes: %q", RenderNotes(plan.Notes))
	}
}

func TestPlanMarkdown(t *testing.T) {
	plan, tasks := samplePlan()
	md := PlanMarkdown("Plan for alice", model.PathFallback, "", BlockRows(plan, tasks, time.UTC), FailureRows(plan, tasks), plan.Notes)
	for _, want := range []string{
		"# Plan for alice",
		"local fallback scheduler",
		`| 1 | Mon 2026-03-02 | 09:00-10:00 | Write \| draft | 60 |`,
		"## Unplaced",
		"## Notes",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.TrimSpace(RenderMarkdown(md)) == "" {
		t.Fatalf("expected rendered markdown")
	}
}

func TestRenderStatusAndApp(t *testing.T) {
	out := RenderApp(AppData{
		Header:     "taskplan",
		LeftPane:   "left",
		RightPane:  "right",
		StatusLine: "planned 2 blocks via fallback",
		Footer:     "q quit",
		Width:      100,
	})
	for _, want := range []string{"taskplan", "left", "right", "planned 2 blocks", "q quit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("app view missing %q", want)
		}
	}
	if PaneWidth(0) != defaultPaneWidth || PaneWidth(10) != 20 || PaneWidth(100) != 46 {
		t.Fatalf("unexpected pane widths")
	}
}
