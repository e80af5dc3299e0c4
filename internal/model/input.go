package model

import "fmt"

// Input is the snapshot one planning run works on.
type Input struct {
	Tasks        []Task
	Events       []ExistingEvent
	Availability Availability
}

// Validate rejects structurally broken input. Any error returned wraps
// ErrInvalidInput and must abort the whole run.
func (in Input) Validate() error {
	seen := make(map[string]struct{}, len(in.Tasks))
	for i, t := range in.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: task #%d: %w", ErrInvalidInput, i+1, err)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate task id %q", ErrInvalidInput, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	for i, e := range in.Events {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: event #%d: %w", ErrInvalidInput, i+1, err)
		}
	}
	if err := in.Availability.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func (in Input) TaskByID(id string) (Task, bool) {
	for _, t := range in.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
