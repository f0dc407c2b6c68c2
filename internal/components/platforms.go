package components

import (
	"context"
	"fmt"
	"log/slog"

	"linkvault/internal/config"
	"linkvault/internal/platforms"
	"linkvault/internal/processors"
	"linkvault/internal/types"
)

// PlatformComponent owns the external services: the note vault, the LLM
// behind the summarizer and the optional Discord notifier.
type PlatformComponent struct {
	config   *config.Config
	logger   *slog.Logger
	vault    *platforms.VaultClient
	llm      platforms.LLM
	provider *processors.Summarizer
	discord  *platforms.DiscordPlatform
}

func NewPlatformComponent(cfg *config.Config, logger *slog.Logger) *PlatformComponent {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlatformComponent{
		config: cfg,
		logger: logger,
	}
}

func (c *PlatformComponent) Name() string {
	return PlatformComponentName
}

func (c *PlatformComponent) Dependencies() []string {
	return []string{}
}

func (c *PlatformComponent) Validate() error {
	if c.config.Vault.URL == "" {
		return fmt.Errorf("platforms: vault url is required")
	}
	if d := c.config.Notify.Discord; d.Enabled && (d.Token == "" || d.ChannelID == "") {
		return fmt.Errorf("platforms: discord notifier needs token and channel_id")
	}
	return nil
}

func (c *PlatformComponent) Initialize(ctx context.Context) error {
	c.vault = platforms.NewVaultClient(c.config.Vault, c.logger)

	llm, err := platforms.NewLLM(c.config.AI, c.logger)
	if err != nil {
		return fmt.Errorf("failed to create ai provider: %w", err)
	}
	c.llm = llm
	c.provider = processors.NewSummarizer(llm, c.config.Vault.DefaultFolder, c.config.AI.MaxTags, c.logger)

	if discordCfg := c.config.Notify.Discord; discordCfg.Enabled {
		discord, err := platforms.NewDiscordPlatform(discordCfg, c.logger)
		if err != nil {
			return fmt.Errorf("failed to create discord platform: %w", err)
		}
		if err := discord.Initialize(ctx); err != nil {
			return fmt.Errorf("discord platform initialization failed: %w", err)
		}
		c.discord = discord
	}
	return nil
}

func (c *PlatformComponent) Close(ctx context.Context) error {
	if c.discord != nil {
		return c.discord.Close(ctx)
	}
	return nil
}

// NoteStore hands every batch the same vault client so its read cache and
// rate limiter span batches.
func (c *PlatformComponent) NoteStore(config.VaultConfig) (types.NoteStore, error) {
	if c.vault == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}
	return c.vault, nil
}

func (c *PlatformComponent) Provider() types.Provider {
	return c.provider
}

func (c *PlatformComponent) Discord() *platforms.DiscordPlatform {
	return c.discord
}
