package components

import (
	"context"
	"fmt"
	"log/slog"

	"linkvault/internal/cache"
	"linkvault/internal/config"
	"linkvault/internal/core"
	"linkvault/internal/processors"
)

// RunnerComponent assembles the orchestrator and the batch runner on top of
// storage and platforms. A registered server is added as a notifier.
type RunnerComponent struct {
	config       *config.Config
	registry     *Registry
	logger       *slog.Logger
	orchestrator *core.Orchestrator
	runner       *core.Runner
}

func NewRunnerComponent(cfg *config.Config, registry *Registry, logger *slog.Logger) *RunnerComponent {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunnerComponent{
		config:   cfg,
		registry: registry,
		logger:   logger,
	}
}

func (c *RunnerComponent) Name() string {
	return RunnerComponentName
}

func (c *RunnerComponent) Dependencies() []string {
	deps := []string{StorageComponentName, PlatformComponentName}
	if c.registry.Has(ServerComponentName) {
		deps = append(deps, ServerComponentName)
	}
	return deps
}

func (c *RunnerComponent) Validate() error {
	if c.config.Batch.Concurrency < 0 {
		return fmt.Errorf("runner: concurrency must not be negative")
	}
	return nil
}

func (c *RunnerComponent) Initialize(ctx context.Context) error {
	store := c.registry.Get(StorageComponentName).(*StorageComponent).Store()
	platformComp := c.registry.Get(PlatformComponentName).(*PlatformComponent)

	orchestrator, err := core.NewOrchestrator(core.OrchestratorConfig{
		Vault:    c.config.Vault,
		NewStore: platformComp.NoteStore,
		Contexts: cache.NewVaultContextCache(
			config.ParseDuration(c.config.Vault.ContextTTL, cache.DefaultContextTTL),
			cache.WithLogger(c.logger),
		),
		Extractor: processors.NewContentExtractor(c.config.Extractor, c.logger),
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	var notifiers core.Notifiers
	if discord := platformComp.Discord(); discord != nil {
		notifiers = append(notifiers, discord)
	}
	if c.registry.Has(ServerComponentName) {
		if server := c.registry.Get(ServerComponentName).(*ServerComponent).Server(); server != nil {
			notifiers = append(notifiers, server)
		}
	}

	cfg := core.RunnerConfig{
		Processor: orchestrator,
		Provider:  platformComp.Provider(),
		Batch:     c.config.Batch,
		States:    store.State(),
		History:   store.History(),
		Logger:    c.logger,
	}
	if len(notifiers) > 0 {
		cfg.Notifier = notifiers
	}

	c.orchestrator = orchestrator
	c.runner = core.NewRunner(cfg)
	return nil
}

func (c *RunnerComponent) Close(ctx context.Context) error {
	if c.runner != nil {
		c.runner.Cancel()
	}
	return nil
}

func (c *RunnerComponent) Runner() *core.Runner {
	return c.runner
}

func (c *RunnerComponent) Orchestrator() *core.Orchestrator {
	return c.orchestrator
}
