package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sandeepkv93/taskplan/internal/config"
	"github.com/sandeepkv93/taskplan/internal/logging"
	"github.com/sandeepkv93/taskplan/internal/oracle"
	"github.com/sandeepkv93/taskplan/internal/planner"
	"github.com/sandeepkv93/taskplan/internal/storage"
)

type app struct {
	cfg     config.Config
	logger  *logging.Logger
	repo    *storage.SQLiteRepository
	planner *planner.Planner
	svc     *planner.Service
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := logging.New(log.New(os.Stderr, "", 0), logging.ParseLevel(cfg.LogLevel))

	est, err := buildEstimator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	p := planner.Standard(est, cfg.Rules(), logger)

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	svc := planner.NewService(repo, p, planner.WithServiceLogger(logger))
	return &app{cfg: cfg, logger: logger, repo: repo, planner: p, svc: svc}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

// buildEstimator returns nil when no oracle configuration can be served,
// which leaves the local scheduler as the only path.
func buildEstimator(ctx context.Context, cfg config.Config, logger *logging.Logger) (oracle.Estimator, error) {
	configs := cfg.OracleConfigs()
	if len(configs) == 0 {
		logger.Infof("oracle disabled, using local scheduler only")
		return nil, nil
	}

	backends := make(map[string]oracle.Backend)
	switch cfg.Oracle.Provider {
	case oracle.ProviderGemini:
		if cfg.Oracle.GeminiAPIKey == "" {
			logger.Warnf("GEMINI_API_KEY is not set, using local scheduler only")
			return nil, nil
		}
		gemini, err := oracle.NewGeminiBackend(ctx, cfg.Oracle.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		backends[oracle.ProviderGemini] = gemini
	case oracle.ProviderOpenAI:
		if cfg.Oracle.OpenAIAPIKey == "" {
			logger.Warnf("OPENAI_API_KEY is not set, using local scheduler only")
			return nil, nil
		}
		backends[oracle.ProviderOpenAI] = oracle.NewOpenAIBackend(cfg.Oracle.OpenAIBaseURL, cfg.Oracle.OpenAIAPIKey)
	}

	return oracle.NewAdapter(configs, backends,
		oracle.WithTimeout(cfg.OracleTimeout()),
		oracle.WithLogger(logger),
	), nil
}
