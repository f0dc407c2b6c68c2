package platforms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"linkvault/internal/config"
	"linkvault/internal/types"
)

const maxEmbedFields = 10

// DiscordPlatform posts a summary of each finished batch to a channel.
type DiscordPlatform struct {
	botToken  string
	channelID string
	session   *discordgo.Session
	logger    *slog.Logger
}

func NewDiscordPlatform(cfg config.DiscordConfig, logger *slog.Logger) (*DiscordPlatform, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord platform: token is required")
	}
	if cfg.ChannelID == "" {
		return nil, fmt.Errorf("discord platform: channel_id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DiscordPlatform{
		botToken:  cfg.Token,
		channelID: cfg.ChannelID,
		logger:    logger,
	}, nil
}

func (p *DiscordPlatform) Initialize(ctx context.Context) error {
	session, err := discordgo.New("Bot " + p.botToken)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	p.session = session
	return nil
}

func (p *DiscordPlatform) Close(ctx context.Context) error {
	if p.session != nil {
		return p.session.Close()
	}
	return nil
}

func (p *DiscordPlatform) NotifyBatch(ctx context.Context, state *types.ProcessingState) error {
	if p.session == nil {
		return fmt.Errorf("discord session not initialized")
	}

	embed := BatchEmbed(state)
	if _, err := p.session.ChannelMessageSendEmbed(p.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug("Batch summary sent to discord", "batch_id", state.BatchID, "channel_id", p.channelID)
	return nil
}

// BatchEmbed renders a finished batch as a Discord embed.
func BatchEmbed(state *types.ProcessingState) *discordgo.MessageEmbed {
	counts := map[types.ResultStatus]int{}
	for _, r := range state.Results {
		counts[r.Status]++
	}

	title := "Batch finished"
	color := 0x2ecc71
	switch {
	case state.Error != "":
		title = "Batch failed"
		color = 0xe74c3c
	case state.Cancelled:
		title = "Batch cancelled"
		color = 0xf1c40f
	case counts[types.ResultFailed] > 0:
		color = 0xe67e22
	}

	desc := fmt.Sprintf("%d links: %d saved, %d to review, %d skipped, %d failed",
		len(state.URLs), counts[types.ResultSuccess], counts[types.ResultReview],
		counts[types.ResultSkipped], counts[types.ResultFailed])
	if state.Error != "" {
		desc += "\n" + state.Error
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: state.BatchID},
	}
	if !state.StartedAt.IsZero() {
		embed.Timestamp = state.StartedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	for _, r := range state.Results {
		if r.Status != types.ResultFailed {
			continue
		}
		if len(embed.Fields) == maxEmbedFields {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  truncate(r.URL, 250),
			Value: truncate(strings.TrimSpace(fmt.Sprintf("%s: %s", r.ErrorCategory, r.Error)), 1000),
		})
	}

	return embed
}
