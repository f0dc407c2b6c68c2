package state

import (
	"context"

	"linkvault/internal/components"
	"linkvault/internal/config"
	"linkvault/internal/core"
)

// State is the running application: its config, initialized components and
// the batch runner built from them.
type State struct {
	Config       *config.Config
	Registry     *components.Registry
	Runner       *core.Runner
	Orchestrator *core.Orchestrator
}

func NewState(cfg *config.Config, registry *components.Registry, runner *components.RunnerComponent) *State {
	return &State{
		Config:       cfg,
		Registry:     registry,
		Runner:       runner.Runner(),
		Orchestrator: runner.Orchestrator(),
	}
}

// Reload applies settings that can change without a restart and drops the
// cached vault inventory.
func (s *State) Reload(cfg *config.Config) {
	s.Config = cfg
	s.Runner.SetBatchConfig(cfg.Batch)
	s.Orchestrator.Contexts().Invalidate()
}

func (s *State) Close(ctx context.Context) error {
	return s.Registry.CloseAll(ctx)
}
