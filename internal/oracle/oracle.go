package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/taskplan/internal/logging"
	"github.com/sandeepkv93/taskplan/internal/model"
)

var (
	ErrAllUnavailable = errors.New("oracle: every configuration failed")
	ErrNoBackend      = errors.New("oracle: no backend for provider")
	ErrNotArray       = errors.New("oracle: response is not a JSON array")
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config names one oracle configuration: a provider and a model on it.
type Config struct {
	Provider string
	Model    string
}

func (c Config) String() string {
	return c.Provider + "/" + c.Model
}

// UnavailableError reports why one configuration produced nothing usable.
type UnavailableError struct {
	Config Config
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("oracle: %s unavailable: %v", e.Config, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Request is the prompt pair sent to a backend.
type Request struct {
	System string
	Prompt string
}

// Backend sends one request to one model and returns the raw reply text.
type Backend interface {
	Complete(ctx context.Context, model string, req Request) (string, error)
}

// Result carries the candidates of the first configuration that answered,
// plus one error per configuration tried before it.
type Result struct {
	Candidates []model.PartialBlock
	Used       Config
	Failures   []*UnavailableError
}

// Notes renders the failures for user-facing status lines.
func (r Result) Notes() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Error())
	}
	return out
}

// Estimator asks an external capability for a candidate schedule.
type Estimator interface {
	Estimate(ctx context.Context, in model.Input) (Result, error)
}

// Adapter tries its configurations in order and returns the first reply
// that parses as a candidate list. It never retries a configuration.
type Adapter struct {
	configs  []Config
	backends map[string]Backend
	timeout  time.Duration
	logger   *logging.Logger
}

type Option func(*Adapter)

// WithTimeout bounds each configuration attempt.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) { a.logger = l.With("oracle") }
}

func NewAdapter(configs []Config, backends map[string]Backend, opts ...Option) *Adapter {
	a := &Adapter{
		configs:  append([]Config(nil), configs...),
		backends: backends,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Configs() []Config {
	return append([]Config(nil), a.configs...)
}

func (a *Adapter) Estimate(ctx context.Context, in model.Input) (Result, error) {
	loc, err := in.Availability.Location()
	if err != nil {
		return Result{}, err
	}
	doc, err := model.InputDocFrom(in)
	if err != nil {
		return Result{}, err
	}
	prompt, err := BuildPrompt(doc)
	if err != nil {
		return Result{}, err
	}
	req := Request{System: SystemPrompt, Prompt: prompt}

	var res Result
	var last error = ErrNoBackend
	for _, cfg := range a.configs {
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, &UnavailableError{Config: cfg, Err: err})
			last = err
			break
		}
		cands, err := a.try(ctx, cfg, req, loc)
		if err != nil {
			a.logger.Warnf("attempt model=%s error=%v", cfg, err)
			res.Failures = append(res.Failures, &UnavailableError{Config: cfg, Err: err})
			last = err
			continue
		}
		a.logger.Infof("attempt model=%s candidates=%d", cfg, len(cands))
		res.Candidates = cands
		res.Used = cfg
		return res, nil
	}
	return res, fmt.Errorf("%w: %w", ErrAllUnavailable, last)
}

func (a *Adapter) try(ctx context.Context, cfg Config, req Request, loc *time.Location) ([]model.PartialBlock, error) {
	backend, ok := a.backends[cfg.Provider]
	if !ok || backend == nil {
		return nil, fmt.Errorf("%w %q", ErrNoBackend, cfg.Provider)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	text, err := backend.Complete(ctx, cfg.Model, req)
	if err != nil {
		return nil, err
	}
	return ParseCandidates(text, loc)
}
