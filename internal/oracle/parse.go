package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

// ParseCandidates decodes an oracle reply. Anything other than a JSON array
// fails the whole reply; a bad entry only marks that entry with Err.
func ParseCandidates(text string, loc *time.Location) ([]model.PartialBlock, error) {
	body := bytes.TrimSpace([]byte(stripFence(text)))
	if len(body) == 0 || body[0] != '[' {
		return nil, ErrNotArray
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotArray, err)
	}
	out := make([]model.PartialBlock, 0, len(entries))
	for i, raw := range entries {
		out = append(out, parseEntry(i, raw, loc))
	}
	return out, nil
}

func parseEntry(i int, raw json.RawMessage, loc *time.Location) model.PartialBlock {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.PartialBlock{Err: fmt.Errorf("entry %d is not an object", i)}
	}

	var pb model.PartialBlock
	var id model.FlexID
	if v, ok := pick(fields, "id", "task_id"); ok {
		if err := json.Unmarshal(v, &id); err != nil {
			pb.Err = fmt.Errorf("entry %d: %w", i, err)
			return pb
		}
	}
	pb.TaskID = string(id)
	if pb.TaskID == "" {
		pb.Err = fmt.Errorf("entry %d: missing id", i)
		return pb
	}

	var err error
	if pb.Order, err = intField(fields, "order"); err != nil {
		pb.Err = err
		return pb
	}
	if pb.EstimatedMinutes, err = intField(fields, "estimated_minutes"); err != nil {
		pb.Err = err
		return pb
	}
	if pb.Priority, err = intField(fields, "priority"); err != nil {
		pb.Err = err
		return pb
	}
	if pb.Start, err = timeField(fields, loc, "start_at", "start"); err != nil {
		pb.Err = err
		return pb
	}
	if pb.End, err = timeField(fields, loc, "end_at", "end"); err != nil {
		pb.Err = err
		return pb
	}
	return pb
}

func pick(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := fields[k]
		if ok && string(bytes.TrimSpace(v)) != "null" {
			return v, true
		}
	}
	return nil, false
}

func intField(fields map[string]json.RawMessage, key string) (*int, error) {
	v, ok := pick(fields, key)
	if !ok {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return nil, fmt.Errorf("%s: not a number: %s", key, string(v))
		}
		if _, err := fmt.Sscan(strings.TrimSpace(s), &f); err != nil {
			return nil, fmt.Errorf("%s: not a number: %q", key, s)
		}
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, fmt.Errorf("%s: not an integer: %v", key, f)
	}
	n := int(f)
	return &n, nil
}

func timeField(fields map[string]json.RawMessage, loc *time.Location, keys ...string) (*time.Time, error) {
	v, ok := pick(fields, keys...)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, fmt.Errorf("%s: not a string: %s", keys[0], string(v))
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := model.ParseTimestamp(s, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keys[0], err)
	}
	return &t, nil
}

// stripFence removes a surrounding markdown code fence, which chat models
// add even when told not to.
func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
