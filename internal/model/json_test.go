package model

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleInput = `{
  "tasks": [
    {"id": 7, "title": "Draft proposal", "priority": 1, "estimated_minutes": 60, "estimated_minutes_locked": true},
    {"id": "b", "title": "Inbox zero", "desired_at": "2026-02-09T10:00:00+09:00", "desired_at_locked": true},
    {"id": "c", "title": "Read paper", "deadline": "2026-02-10T18:00"}
  ],
  "existing_events": [
    {"title": "Standup", "start": "2026-02-09T09:45:00+09:00", "end": "2026-02-09T10:15:00+09:00"}
  ],
  "availability": {
    "timezone": "Asia/Tokyo",
    "slot_minutes": 15,
    "day_classes": [
      {"name": "weekday", "intervals": [{"start": "09:00", "end": "12:00"}, {"start": "13:00", "end": "18:00"}]},
      {"name": "sat", "days": ["sat"], "intervals": [{"start": "10:00", "end": "14:00"}]}
    ]
  },
  "window_start": "2026-02-09T09:00:00+09:00",
  "window_end": "2026-02-10T18:00:00+09:00"
}`

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(sampleInput))
	if err != nil {
		t.Fatalf("decode input: %v", err)
	}
	if len(in.Tasks) != 3 || len(in.Events) != 1 {
		t.Fatalf("unexpected sizes: tasks=%d events=%d", len(in.Tasks), len(in.Events))
	}
	first := in.Tasks[0]
	if first.ID != "7" || first.Priority != PriorityHigh || !first.Locks.EstimatedMinutes || *first.EstimatedMinutes != 60 {
		t.Fatalf("unexpected first task: %+v", first)
	}
	if first.Locks.DesiredAt || first.Locks.Priority {
		t.Fatalf("absent lock flags must decode as false: %+v", first.Locks)
	}
	second := in.Tasks[1]
	if second.Priority != PriorityMedium {
		t.Fatalf("missing priority should default to medium, got %s", second.Priority)
	}
	pinned, ok := second.PinnedStart()
	if !ok || pinned.UTC().Format(time.RFC3339) != "2026-02-09T01:00:00Z" {
		t.Fatalf("unexpected pinned start: %v %v", pinned, ok)
	}
	third := in.Tasks[2]
	if third.Deadline == nil || third.Deadline.UTC().Format(time.RFC3339) != "2026-02-10T09:00:00Z" {
		t.Fatalf("offsetless deadline must be read in the availability timezone, got %v", third.Deadline)
	}
	if got := in.Availability.RangesOn(time.Wednesday); len(got) != 2 {
		t.Fatalf("expected weekday shorthand to expand, got %v", got)
	}
	if got := in.Availability.RangesOn(time.Sunday); len(got) != 0 {
		t.Fatalf("expected no Sunday hours, got %v", got)
	}
}

func TestDecodeInputRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing id":     `{"tasks":[{"title":"x"}],"availability":{"slot_minutes":15},"window_start":"2026-02-09T09:00:00Z","window_end":"2026-02-09T17:00:00Z"}`,
		"event reversed": `{"tasks":[],"existing_events":[{"title":"e","start":"2026-02-09T10:00:00Z","end":"2026-02-09T09:00:00Z"}],"availability":{"slot_minutes":15},"window_start":"2026-02-09T09:00:00Z","window_end":"2026-02-09T17:00:00Z"}`,
		"bad json":       `{"tasks": [`,
		"bad timestamp":  `{"tasks":[],"availability":{"slot_minutes":15},"window_start":"soon","window_end":"2026-02-09T17:00:00Z"}`,
	}
	for name, raw := range cases {
		_, err := DecodeInput(strings.NewReader(raw))
		if err == nil || !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestEncodeInputRoundTrip(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(sampleInput))
	if err != nil {
		t.Fatalf("decode input: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeInput(&buf, in); err != nil {
		t.Fatalf("encode input: %v", err)
	}
	again, err := DecodeInput(&buf)
	if err != nil {
		t.Fatalf("decode encoded input: %v", err)
	}
	if len(again.Tasks) != len(in.Tasks) || !again.Availability.WindowEnd.Equal(in.Availability.WindowEnd) {
		t.Fatalf("round trip lost data: %+v", again)
	}
	if again.Tasks[1].DesiredAt == nil || !again.Tasks[1].DesiredAt.Equal(*in.Tasks[1].DesiredAt) {
		t.Fatalf("desired_at lost in round trip")
	}
}

func TestEncodePlanUsesOffsets(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	start := time.Date(2026, 2, 9, 1, 0, 0, 0, time.UTC)
	plan := Plan{
		Path:     PathFallback,
		Blocks:   []ScheduledBlock{{TaskID: "a", Order: 1, Start: start, End: start.Add(time.Hour)}},
		Failures: []Failure{{TaskID: "b", Reason: "no room"}},
	}
	var buf bytes.Buffer
	if err := EncodePlan(&buf, plan, loc); err != nil {
		t.Fatalf("encode plan: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"path": "fallback"`, `"start": "2026-02-09T10:00:00+09:00"`, `"reason": "no room"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output:\n%s", want, out)
		}
	}
}

func TestInputFileRoundTrip(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(sampleInput))
	if err != nil {
		t.Fatalf("decode input: %v", err)
	}
	path := t.TempDir() + "/input.json"
	if err := WriteInputFile(path, in); err != nil {
		t.Fatalf("write input file: %v", err)
	}
	back, err := ReadInputFile(path)
	if err != nil {
		t.Fatalf("read input file: %v", err)
	}
	if len(back.Tasks) != 3 || !back.Availability.WindowEnd.Equal(in.Availability.WindowEnd) {
		t.Fatalf("unexpected round trip: %+v", back)
	}
	if _, err := ReadInputFile(t.TempDir() + "/missing.json"); err == nil {
		t.Fatalf("expected missing file error")
	}
}
