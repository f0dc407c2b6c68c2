package components

import (
	"context"
	"fmt"
	"log/slog"

	"linkvault/internal/config"
	"linkvault/internal/server/feed"
)

type ServerComponent struct {
	config   config.ServerConfig
	registry *Registry
	logger   *slog.Logger
	server   *feed.Server
}

func NewServerComponent(cfg config.ServerConfig, registry *Registry, logger *slog.Logger) *ServerComponent {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerComponent{
		config:   cfg,
		registry: registry,
		logger:   logger,
	}
}

func (c *ServerComponent) Name() string {
	return ServerComponentName
}

func (c *ServerComponent) Dependencies() []string {
	return []string{StorageComponentName}
}

func (c *ServerComponent) Validate() error {
	return nil
}

func (c *ServerComponent) Initialize(ctx context.Context) error {
	store := c.registry.Get(StorageComponentName).(*StorageComponent).Store()

	server, err := feed.New(feed.Config{
		Port:     c.config.Port,
		FeedSize: c.config.FeedSize,
		Title:    c.config.Title,
	}, store.History(), store.State(), c.logger)
	if err != nil {
		return fmt.Errorf("servers: failed to create feed server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("servers: failed to start feed server: %w", err)
	}

	c.server = server
	return nil
}

func (c *ServerComponent) Close(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	if err := c.server.Shutdown(ctx); err != nil {
		c.logger.Warn("Error shutting down feed server", "error", err)
	}
	return nil
}

func (c *ServerComponent) Server() *feed.Server {
	return c.server
}
