package loader

import (
	"context"
	"fmt"
	"log/slog"

	"linkvault/internal/components"
	"linkvault/internal/config"
	"linkvault/internal/state"

	_ "linkvault/internal/storage/redis"
	_ "linkvault/internal/storage/sqlite"
)

type Options struct {
	// Serve starts the history feed server alongside the runner.
	Serve bool
}

type Loader struct {
	config *config.Config
	logger *slog.Logger
}

func NewLoader(cfg *config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		config: cfg,
		logger: logger,
	}
}

func (l *Loader) Initialize(ctx context.Context, opts Options) (*state.State, error) {
	registry := components.NewRegistry()
	l.logger.Debug("Initializing all components")

	if err := registry.Register(components.NewStorageComponent(l.config.Storage)); err != nil {
		return nil, fmt.Errorf("failed to register storage component: %w", err)
	}

	if err := registry.Register(components.NewPlatformComponent(l.config, l.logger)); err != nil {
		return nil, fmt.Errorf("failed to register platform component: %w", err)
	}

	if opts.Serve {
		serverComp := components.NewServerComponent(l.config.Server, registry, l.logger)
		if err := registry.Register(serverComp); err != nil {
			return nil, fmt.Errorf("failed to register server component: %w", err)
		}
	}

	runnerComp := components.NewRunnerComponent(l.config, registry, l.logger)
	if err := registry.Register(runnerComp); err != nil {
		return nil, fmt.Errorf("failed to register runner component: %w", err)
	}

	if err := registry.InitializeAll(ctx); err != nil {
		_ = registry.CloseAll(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("component initialization failed: %w", err)
	}

	l.logger.Debug("All components initialized successfully")
	return state.NewState(l.config, registry, runnerComp), nil
}

func LoadAndBuild(ctx context.Context, configPath string, opts Options, logger *slog.Logger) (*state.State, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewLoader(cfg, logger).Initialize(ctx, opts)
}
