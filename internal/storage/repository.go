package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, owner, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, owner, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)

	CreateEvent(ctx context.Context, in Event) error
	DeleteEvent(ctx context.Context, owner, id string) error
	ListEvents(ctx context.Context, filter EventListFilter) ([]Event, error)

	SaveAvailability(ctx context.Context, in Availability) error
	GetAvailability(ctx context.Context, owner string) (Availability, error)

	// ReplaceSnapshot swaps every planning input of an owner in one step
	// and drops the owner's scheduled blocks.
	ReplaceSnapshot(ctx context.Context, owner string, tasks []Task, events []Event, avail Availability) error

	// ReplacePlan discards the owner's previous blocks and stores a new run.
	ReplacePlan(ctx context.Context, run PlanRun, blocks []Block) error
	ListBlocks(ctx context.Context, owner string) ([]Block, error)
	LatestRun(ctx context.Context, owner string) (PlanRun, error)

	// CommitBlocks stores events materialized from the owner's blocks and
	// clears the blocks.
	CommitBlocks(ctx context.Context, owner string, events []Event) error
}
