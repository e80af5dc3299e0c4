package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/taskplan/internal/commands"
	"github.com/sandeepkv93/taskplan/internal/config"
	"github.com/sandeepkv93/taskplan/internal/planner"
)

const cliInput = `{
  "tasks": [
    {"id": 2, "title": "Review", "priority": 2, "estimated_minutes": 60},
    {"id": 1, "title": "Write", "priority": 1, "estimated_minutes": 60},
    {"id": 3, "title": "Marathon", "priority": 3, "estimated_minutes": 600}
  ],
  "existing_events": [],
  "availability": {
    "timezone": "UTC",
    "slot_minutes": 10,
    "day_classes": [{"name": "weekday", "intervals": [{"start": "09:00", "end": "17:00"}]}]
  },
  "window_start": "2026-03-02T09:00:00Z",
  "window_end": "2026-03-02T17:00:00Z"
}`

func setupApp(t *testing.T) (*app, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "taskplan.db")
	cfg.Oracle.Disabled = true
	cfg.LogLevel = "error"

	a, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	input := filepath.Join(dir, "input.json")
	if err := os.WriteFile(input, []byte(cliInput), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return a, input
}

func runCLI(t *testing.T, a *app, line string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runCommand(t.Context(), a, "alice", line, &out)
	return out.String(), err
}

func TestCLIPlanShowApply(t *testing.T) {
	a, input := setupApp(t)

	out, err := runCLI(t, a, "import "+input)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 3 task(s)") {
		t.Fatalf("unexpected import output: %q", out)
	}

	out, err = runCLI(t, a, "plan")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{
		"path: local fallback scheduler",
		"#1 Mon 2026-03-02 09:00-10:00 Write (60 min)",
		"#2 Mon 2026-03-02 10:10-11:10 Review (60 min)",
		"- 3 (Marathon):",
		"stored",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("plan output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, a, "show failures")
	if err != nil || !strings.Contains(out, "unplaced:") {
		t.Fatalf("show failures: %v %q", err, out)
	}
	out, err = runCLI(t, a, "show notes")
	if err != nil || !strings.Contains(out, "(none)") {
		t.Fatalf("show notes: %v %q", err, out)
	}

	out, err = runCLI(t, a, "apply")
	if err != nil || !strings.Contains(out, "applied 2 block(s)") {
		t.Fatalf("apply: %v %q", err, out)
	}
	if _, err := runCLI(t, a, "apply"); !errors.Is(err, planner.ErrNothingToApply) {
		t.Fatalf("expected nothing to apply, got %v", err)
	}

	out, err = runCLI(t, a, "show")
	if err != nil || !strings.Contains(out, "(no blocks)") {
		t.Fatalf("show after apply: %v %q", err, out)
	}
}

func TestCLILockAndExport(t *testing.T) {
	a, input := setupApp(t)
	if _, err := runCLI(t, a, "import "+input); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := runCLI(t, a, "lock 1 priority")
	if err != nil || !strings.Contains(out, "locked priority on task 1") {
		t.Fatalf("lock: %v %q", err, out)
	}

	out, err = runCLI(t, a, "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, `"priority_locked": true`) || !strings.Contains(out, `"title": "Marathon"`) {
		t.Fatalf("unexpected export:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if _, err := runCLI(t, a, "export "+path); err != nil {
		t.Fatalf("export to file: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected export file: %v", err)
	}
}

func TestCLIErrors(t *testing.T) {
	a, _ := setupApp(t)

	_, err := runCLI(t, a, "frobnicate")
	var cmdErr *commands.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != commands.ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if _, err := runCLI(t, a, "plan"); !errors.Is(err, planner.ErrNoAvailability) {
		t.Fatalf("expected no availability, got %v", err)
	}
	if _, err := runCLI(t, a, "show"); !errors.Is(err, planner.ErrNoRun) {
		t.Fatalf("expected no run, got %v", err)
	}
}

func TestReplanFileIsStateless(t *testing.T) {
	a, input := setupApp(t)

	var out bytes.Buffer
	if err := replanFile(t.Context(), a.planner, input, &out); err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !strings.Contains(out.String(), `"start": "2026-03-02T09:00:00Z"`) {
		t.Fatalf("unexpected plan:\n%s", out.String())
	}
	if _, err := a.svc.Latest(t.Context(), "alice"); !errors.Is(err, planner.ErrNoRun) {
		t.Fatalf("watch replans must not store runs, got %v", err)
	}
}

func TestWatchFileSeesWrites(t *testing.T) {
	a, input := setupApp(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, input, a.logger, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-changed:
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch: %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(input, []byte(cliInput), 0o644); err != nil {
				t.Fatalf("rewrite input: %v", err)
			}
		case <-deadline:
			t.Fatalf("no change seen")
		}
	}
}
