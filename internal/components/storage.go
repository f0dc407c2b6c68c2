package components

import (
	"context"
	"fmt"

	"linkvault/internal/config"
	"linkvault/internal/storage"
)

type StorageComponent struct {
	config config.StorageConfig
	store  storage.StorageInterface
}

func NewStorageComponent(cfg config.StorageConfig) *StorageComponent {
	return &StorageComponent{
		config: cfg,
	}
}

func (c *StorageComponent) Name() string {
	return StorageComponentName
}

func (c *StorageComponent) Dependencies() []string {
	return []string{}
}

func (c *StorageComponent) Validate() error {
	if (c.config.Type == "" || c.config.Type == "sqlite") && c.config.Path == "" {
		return fmt.Errorf("storage: database path is required")
	}
	if c.config.Type == "redis" && c.config.Addr == "" {
		return fmt.Errorf("storage: redis addr is required")
	}
	return nil
}

func (c *StorageComponent) Initialize(ctx context.Context) error {
	store, err := storage.New(ctx, c.config)
	if err != nil {
		return fmt.Errorf("storage: failed to initialize store: %w", err)
	}

	c.store = store
	return nil
}

func (c *StorageComponent) Close(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close(ctx)
}

func (c *StorageComponent) Store() storage.StorageInterface {
	return c.store
}
