package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/taskplan/internal/logging"
	"github.com/sandeepkv93/taskplan/internal/model"
	"github.com/sandeepkv93/taskplan/internal/storage"
)

var (
	ErrNoAvailability = errors.New("planner: owner has no availability")
	ErrNothingToApply = errors.New("planner: no scheduled blocks to apply")
	ErrNoRun          = errors.New("planner: owner has no plan run")
)

// Report is a stored plan run as the presentation layers see it.
type Report struct {
	RunID     string
	Owner     string
	Model     string
	Plan      model.Plan
	Location  *time.Location
	CreatedAt time.Time
}

// Service owns the stateful side of planning: it loads an owner's inputs,
// runs the planner, stores the result and feeds undetermined fields back.
// Calls for the same owner are serialized.
type Service struct {
	repo    storage.Repository
	planner *Planner
	locks   *MutexMap
	logger  *logging.Logger
	now     func() time.Time
	newID   func() string
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

func WithServiceLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = l.With("service") }
}

func NewService(repo storage.Repository, p *Planner, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		planner: p,
		locks:   NewMutexMap(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import replaces the owner's tasks, events and availability with in.
func (s *Service) Import(ctx context.Context, owner string, in model.Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	s.locks.Lock(owner)
	defer s.locks.Unlock(owner)

	now := s.now()
	tasks := make([]storage.Task, 0, len(in.Tasks))
	for _, t := range in.Tasks {
		tasks = append(tasks, storage.TaskFromModel(owner, t, now))
	}
	events := make([]storage.Event, 0, len(in.Events))
	for _, e := range in.Events {
		events = append(events, storage.Event{
			ID:        s.newID(),
			Owner:     owner,
			Title:     e.Title,
			StartAt:   e.Start,
			EndAt:     e.End,
			CreatedAt: now,
		})
	}
	avail := storage.AvailabilityFromModel(owner, in.Availability, now)
	if err := s.repo.ReplaceSnapshot(ctx, owner, tasks, events, avail); err != nil {
		return fmt.Errorf("import %q: %w", owner, err)
	}
	s.logger.Infof("imported owner=%s tasks=%d events=%d", owner, len(tasks), len(events))
	return nil
}

// Export returns the owner's current planning input.
func (s *Service) Export(ctx context.Context, owner string) (model.Input, error) {
	s.locks.Lock(owner)
	defer s.locks.Unlock(owner)
	return s.loadInput(ctx, owner)
}

// Generate discards the owner's previous blocks, plans from scratch and
// stores the run. Updates the winning path produced for unlocked fields are
// written back to the task records.
func (s *Service) Generate(ctx context.Context, owner string) (Report, error) {
	return s.generate(ctx, owner, s.planner)
}

// GenerateLocal is Generate without the external estimator.
func (s *Service) GenerateLocal(ctx context.Context, owner string) (Report, error) {
	return s.generate(ctx, owner, s.planner.Local())
}

func (s *Service) generate(ctx context.Context, owner string, p *Planner) (Report, error) {
	s.locks.Lock(owner)
	defer s.locks.Unlock(owner)

	in, err := s.loadInput(ctx, owner)
	if err != nil {
		return Report{}, err
	}
	loc, err := in.Availability.Location()
	if err != nil {
		return Report{}, err
	}
	out, err := p.Plan(ctx, in)
	if err != nil {
		return Report{}, err
	}

	now := s.now()
	run := storage.PlanRun{
		ID:          s.newID(),
		Owner:       owner,
		Path:        string(out.Plan.Path),
		OracleModel: out.Model,
		Notes:       out.Plan.Notes,
		CreatedAt:   now,
	}
	for _, f := range out.Plan.Failures {
		run.Failures = append(run.Failures, storage.PlanFailure{TaskID: f.TaskID, Reason: f.Reason})
	}
	if err := s.repo.ReplacePlan(ctx, run, storage.BlocksFromPlan(owner, run.ID, out.Plan)); err != nil {
		return Report{}, fmt.Errorf("store plan for %q: %w", owner, err)
	}
	if err := s.feedBack(ctx, owner, out.Plan.Updates, now); err != nil {
		return Report{}, err
	}

	s.logger.Infof("run=%s owner=%s path=%s blocks=%d failures=%d", run.ID, owner, run.Path, len(out.Plan.Blocks), len(out.Plan.Failures))
	return Report{
		RunID:     run.ID,
		Owner:     owner,
		Model:     out.Model,
		Plan:      out.Plan,
		Location:  loc,
		CreatedAt: now,
	}, nil
}

func (s *Service) feedBack(ctx context.Context, owner string, updates []model.TaskUpdate, now time.Time) error {
	for _, u := range updates {
		if u.IsEmpty() {
			continue
		}
		rec, err := s.repo.GetTask(ctx, owner, u.TaskID)
		if err != nil {
			return fmt.Errorf("load task %q: %w", u.TaskID, err)
		}
		t := rec.ToModel()
		if err := t.Apply(u); err != nil {
			if errors.Is(err, model.ErrFieldLocked) {
				s.logger.Warnf("skip update: %v", err)
				continue
			}
			return err
		}
		if err := s.repo.UpdateTask(ctx, rec.WithModel(t, now)); err != nil {
			return fmt.Errorf("update task %q: %w", u.TaskID, err)
		}
	}
	return nil
}

// SetLock flips one lock flag on a stored task.
func (s *Service) SetLock(ctx context.Context, owner, taskID string, field model.Field, locked bool) error {
	s.locks.Lock(owner)
	defer s.locks.Unlock(owner)

	rec, err := s.repo.GetTask(ctx, owner, taskID)
	if err != nil {
		return fmt.Errorf("load task %q: %w", taskID, err)
	}
	t := rec.ToModel()
	switch field {
	case model.FieldPriority:
		t.Locks.Priority = locked
	case model.FieldDesiredAt:
		t.Locks.DesiredAt = locked
	case model.FieldEstimatedMinutes:
		t.Locks.EstimatedMinutes = locked
	default:
		return fmt.Errorf("planner: unknown field %q", field)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	return s.repo.UpdateTask(ctx, rec.WithModel(t, s.now()))
}

// Latest returns the owner's most recent run with its outstanding blocks.
func (s *Service) Latest(ctx context.Context, owner string) (Report, error) {
	s.locks.Lock(owner)
	defer s.locks.Unlock(owner)

	run, err := s.repo.LatestRun(ctx, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Report{}, ErrNoRun
		}
		return Report{}, err
	}
	blocks, err := s.repo.ListBlocks(ctx, owner)
	if err != nil {
		return Report{}, err
	}
	loc := time.UTC
	if avail, err := s.repo.GetAvailability(ctx, owner); err == nil {
		if l, lerr := avail.ToModel().Location(); lerr == nil {
			loc = l
		}
	}

	plan := model.Plan{Path: model.Path(run.Path), Notes: run.Notes}
	for _, b := range blocks {
		plan.Blocks = append(plan.Blocks, b.ToModel())
	}
	for _, f := range run.Failures {
		plan.Failures = append(plan.Failures, model.Failure{TaskID: f.TaskID, Reason: f.Reason})
	}
	return Report{
		RunID:     run.ID,
		Owner:     owner,
		Model:     run.OracleModel,
		Plan:      plan,
		Location:  loc,
		CreatedAt: run.CreatedAt,
	}, nil
}

// Apply turns the owner's outstanding blocks into committed events.
func (s *Service) Apply(ctx context.Context, owner string) (int, error) {
	s.locks.Lock(owner)
	defer s.locks.Unlock(owner)

	blocks, err := s.repo.ListBlocks(ctx, owner)
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, ErrNothingToApply
	}
	now := s.now()
	events := make([]storage.Event, 0, len(blocks))
	for _, b := range blocks {
		title := b.TaskID
		if rec, err := s.repo.GetTask(ctx, owner, b.TaskID); err == nil && strings.TrimSpace(rec.Title) != "" {
			title = rec.Title
		}
		events = append(events, storage.Event{
			ID:        s.newID(),
			Owner:     owner,
			Title:     title,
			StartAt:   b.StartAt,
			EndAt:     b.EndAt,
			TaskID:    b.TaskID,
			CreatedAt: now,
		})
	}
	if err := s.repo.CommitBlocks(ctx, owner, events); err != nil {
		return 0, fmt.Errorf("commit blocks for %q: %w", owner, err)
	}
	s.logger.Infof("applied owner=%s events=%d", owner, len(events))
	return len(events), nil
}

func (s *Service) loadInput(ctx context.Context, owner string) (model.Input, error) {
	avail, err := s.repo.GetAvailability(ctx, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Input{}, fmt.Errorf("%w: %q", ErrNoAvailability, owner)
		}
		return model.Input{}, err
	}
	recs, err := s.repo.ListTasks(ctx, storage.TaskListFilter{Owner: owner})
	if err != nil {
		return model.Input{}, err
	}
	evs, err := s.repo.ListEvents(ctx, storage.EventListFilter{Owner: owner})
	if err != nil {
		return model.Input{}, err
	}

	in := model.Input{Availability: avail.ToModel()}
	for _, r := range recs {
		in.Tasks = append(in.Tasks, r.ToModel())
	}
	for _, e := range evs {
		in.Events = append(in.Events, e.ToModel())
	}
	return in, nil
}
