package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/taskplan/internal/logging"
	"github.com/sandeepkv93/taskplan/internal/model"
	"github.com/sandeepkv93/taskplan/internal/oracle"
	"github.com/sandeepkv93/taskplan/internal/scheduler"
)

// ErrPathUnusable marks a strategy that produced nothing; the next strategy
// in line runs instead.
var ErrPathUnusable = errors.New("planner: path unusable")

// Outcome is one strategy's plan plus the oracle configuration that fed it,
// if any.
type Outcome struct {
	Plan  model.Plan
	Model string
}

// Strategy produces a plan for a validated input.
type Strategy interface {
	Path() model.Path
	Plan(ctx context.Context, in model.Input) (Outcome, error)
}

// ExternalStrategy asks an estimator for candidates and merges them through
// the constraint checker.
type ExternalStrategy struct {
	Estimator oracle.Estimator
	Rules     scheduler.Rules
	Logger    *logging.Logger
}

func (s ExternalStrategy) Path() model.Path { return model.PathExternal }

func (s ExternalStrategy) Plan(ctx context.Context, in model.Input) (Outcome, error) {
	if s.Estimator == nil {
		return Outcome{}, fmt.Errorf("%w: no estimator configured", ErrPathUnusable)
	}
	res, err := s.Estimator.Estimate(ctx, in)
	if err != nil {
		return Outcome{Plan: model.Plan{Notes: res.Notes()}}, fmt.Errorf("%w: %w", ErrPathUnusable, err)
	}
	plan, issues, err := scheduler.Reconcile(res.Candidates, in, s.Rules)
	if err != nil {
		return Outcome{}, err
	}
	for _, issue := range issues {
		s.Logger.Warnf("dropped %s", issue)
	}
	plan.Notes = append(res.Notes(), plan.Notes...)
	return Outcome{Plan: plan, Model: res.Used.String()}, nil
}

// FallbackStrategy is the local deterministic scheduler.
type FallbackStrategy struct {
	Rules scheduler.Rules
}

func (s FallbackStrategy) Path() model.Path { return model.PathFallback }

func (s FallbackStrategy) Plan(_ context.Context, in model.Input) (Outcome, error) {
	plan, err := scheduler.Schedule(in, s.Rules)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Plan: plan}, nil
}

// Planner runs strategies in order until one yields a plan. It is stateless
// and safe for concurrent use as long as its strategies are.
type Planner struct {
	strategies []Strategy
	logger     *logging.Logger
}

func New(logger *logging.Logger, strategies ...Strategy) *Planner {
	return &Planner{strategies: strategies, logger: logger.With("planner")}
}

// Standard builds the external-then-fallback chain. A nil estimator leaves
// only the fallback path.
func Standard(est oracle.Estimator, rules scheduler.Rules, logger *logging.Logger) *Planner {
	strategies := make([]Strategy, 0, 2)
	if est != nil {
		strategies = append(strategies, ExternalStrategy{Estimator: est, Rules: rules, Logger: logger.With("reconcile")})
	}
	strategies = append(strategies, FallbackStrategy{Rules: rules})
	return New(logger, strategies...)
}

// Local returns a planner restricted to the fallback strategies.
func (p *Planner) Local() *Planner {
	out := &Planner{logger: p.logger}
	for _, s := range p.strategies {
		if s.Path() == model.PathFallback {
			out.strategies = append(out.strategies, s)
		}
	}
	return out
}

// Plan validates in and returns the first usable strategy's outcome. Notes
// from strategies that gave up are carried into the returned plan.
func (p *Planner) Plan(ctx context.Context, in model.Input) (Outcome, error) {
	if err := in.Validate(); err != nil {
		return Outcome{}, err
	}
	var carried []string
	for _, s := range p.strategies {
		out, err := s.Plan(ctx, in)
		if err != nil {
			if errors.Is(err, model.ErrInvalidInput) {
				return Outcome{}, err
			}
			p.logger.Warnf("path=%s unusable: %v", s.Path(), err)
			carried = append(carried, out.Plan.Notes...)
			carried = append(carried, fmt.Sprintf("%s path unusable: %v", s.Path(), err))
			continue
		}
		out.Plan.Notes = append(carried, out.Plan.Notes...)
		p.logger.Infof("path=%s blocks=%d failures=%d", out.Plan.Path, len(out.Plan.Blocks), len(out.Plan.Failures))
		return out, nil
	}
	return Outcome{}, fmt.Errorf("%w: no strategy produced a plan", ErrPathUnusable)
}
