package cli

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/agent"
	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/decompose"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
	"github.com/runbookhq/opsagent/internal/executor"
	"github.com/runbookhq/opsagent/internal/llm"
	"github.com/runbookhq/opsagent/internal/retry"
	"github.com/runbookhq/opsagent/internal/script"
	"github.com/runbookhq/opsagent/internal/store"
)

// app bundles the wired components shared by the serve and query
// commands.
type app struct {
	cfg        *config.Config
	client     *llm.OpenAIClient
	store      *store.Store
	decomposer *decompose.Decomposer
	generator  *script.Generator
	agent      agent.Agent
}

// buildApp constructs the full component stack from configuration.
// When the vector index is unreachable the store degrades to an
// in-memory index so the assistant stays usable without persistence.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	if err := config.RequireAPIKey(cfg); err != nil {
		return nil, err
	}

	client, err := llm.NewOpenAIClient(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	var index store.Index
	redisIndex, err := store.NewRedisIndex(ctx, cfg.Store, logger)
	if err != nil {
		logger.Warn().Err(err).
			Str("host", cfg.Store.Host).
			Int("port", cfg.Store.Port).
			Msg("vector index unreachable, using in-memory index")
		index = store.NewMemoryIndex()
	} else {
		index = redisIndex
	}

	st := store.New(index, client, logger)
	decomposer := decompose.New(client, st, logger)
	generator := script.NewGenerator(client, cfg.Executor, logger)

	cloudExec, err := executor.ForType(domain.ExecutorCloud, cfg.Executor, logger)
	if err != nil {
		return nil, err
	}
	shellExec, err := executor.ForType(domain.ExecutorSystem, cfg.Executor, logger)
	if err != nil {
		return nil, err
	}

	framework, err := domain.ParseFramework(cfg.Agent.Framework)
	if err != nil {
		return nil, err
	}
	ag, err := agent.New(framework, agent.Deps{
		Client:     client,
		Store:      st,
		Decomposer: decomposer,
		CloudExec:  cloudExec,
		ShellExec:  shellExec,
		Config:     cfg.Agent,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		client:     client,
		store:      st,
		decomposer: decomposer,
		generator:  generator,
		agent:      ag,
	}, nil
}

// buildStore constructs only the instruction store, requiring a
// reachable vector index. Used by the load command, where falling back
// to an in-memory index would silently discard the import.
func buildStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store.Store, error) {
	if err := config.RequireAPIKey(cfg); err != nil {
		return nil, err
	}

	client, err := llm.NewOpenAIClient(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	// Imports run unattended, so a briefly unavailable index is worth a
	// few retries before giving up.
	policy := retry.DefaultPolicy()
	policy.Logger = logger
	var index *store.RedisIndex
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		var connErr error
		index, connErr = store.NewRedisIndex(ctx, cfg.Store, logger)
		return connErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect vector index")
	}

	return store.New(index, client, logger), nil
}
