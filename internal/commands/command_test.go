package commands

import (
	"errors"
	"testing"

	"github.com/sandeepkv93/taskplan/internal/model"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/plan", TypePlan},
		{"plan local", TypePlan},
		{"apply", TypeApply},
		{"show failures", TypeShow},
		{"import ./week.json", TypeImport},
		{"export", TypeExport},
		{"lock 12 desired_at", TypeLock},
		{"/unlock 12 priority", TypeUnlock},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseArguments(t *testing.T) {
	cmd, err := Parse("plan --local")
	if err != nil || !cmd.Plan.Local {
		t.Fatalf("expected local plan, got %+v %v", cmd.Plan, err)
	}
	cmd, err = Parse("show")
	if err != nil || cmd.Show.Subject != ShowBlocks {
		t.Fatalf("show must default to blocks, got %+v %v", cmd.Show, err)
	}
	cmd, err = Parse("unlock 7 Estimated_Minutes")
	if err != nil {
		t.Fatalf("parse unlock: %v", err)
	}
	if cmd.Lock.TaskID != "7" || cmd.Lock.Field != model.FieldEstimatedMinutes || cmd.Lock.Locked {
		t.Fatalf("unexpected lock args: %+v", cmd.Lock)
	}
}

func TestParseInvalidArguments(t *testing.T) {
	for _, in := range []string{"import", "show calendar", "plan soon", "lock 7", "lock 7 title", "  /  "} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) {
			t.Fatalf("parse %q: expected CommandError, got %v", in, err)
		}
		if ce.Code != ErrCodeInvalidArgument && ce.Code != ErrCodeEmptyInput {
			t.Fatalf("parse %q: unexpected code %s", in, ce.Code)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/import tasks.json")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Import: func(a ImportArgs) (Result, error) {
			called = true
			if a.Path != "tasks.json" {
				t.Fatalf("unexpected path: %q", a.Path)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("show notes")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
