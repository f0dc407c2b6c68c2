package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App       AppConfig       `toml:"app"`
	Vault     VaultConfig     `toml:"vault"`
	AI        AIConfig        `toml:"ai"`
	Batch     BatchConfig     `toml:"batch"`
	Extractor ExtractorConfig `toml:"extractor"`
	Storage   StorageConfig   `toml:"storage"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
}

type AppConfig struct {
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
}

type VaultConfig struct {
	URL           string  `toml:"url"`
	APIKey        string  `toml:"api_key"`
	Timeout       string  `toml:"timeout"`
	RateLimit     float64 `toml:"rate_limit"`
	ReadCacheTTL  string  `toml:"read_cache_ttl"`
	ContextTTL    string  `toml:"context_ttl"`
	DefaultFolder string  `toml:"default_folder"`
	HubFolder     string  `toml:"hub_folder"`
	NoteTemplate  string  `toml:"note_template"`
	InsecureTLS   bool    `toml:"insecure_tls"`
}

type AIConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
	MaxTags     int     `toml:"max_tags"`
}

type BatchConfig struct {
	Concurrency  int                 `toml:"concurrency"`
	Organization string              `toml:"organization"`
	TagGroups    map[string][]string `toml:"tag_groups"`
	MinWords     int                 `toml:"min_words"`
}

type ExtractorConfig struct {
	Timeout    string         `toml:"timeout"`
	UserAgent  string         `toml:"user_agent"`
	MaxBytes   int64          `toml:"max_bytes"`
	ScriptsDir string         `toml:"scripts_dir"`
	Scripts    []ScriptConfig `toml:"scripts"`
}

// ScriptConfig binds a Lua extraction script to the hosts it handles.
type ScriptConfig struct {
	Name     string   `toml:"name"`
	Hosts    []string `toml:"hosts"`
	Script   string   `toml:"script"`
	Platform string   `toml:"platform"`
}

type StorageConfig struct {
	Type     string `toml:"type"`
	Path     string `toml:"path"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

type ServerConfig struct {
	Port     string `toml:"port"`
	FeedSize int    `toml:"feed_size"`
	Title    string `toml:"title"`
}

type NotifyConfig struct {
	Discord DiscordConfig `toml:"discord"`
}

type DiscordConfig struct {
	Enabled   bool   `toml:"enabled"`
	Token     string `toml:"token"`
	ChannelID string `toml:"channel_id"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes TOML config data, applies environment secrets and fills
// defaults.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("LINKVAULT_VAULT_API_KEY"); v != "" && config.Vault.APIKey == "" {
		config.Vault.APIKey = v
	}
	if config.AI.APIKey == "" {
		switch config.AI.Provider {
		case "anthropic":
			config.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			config.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if v := os.Getenv("LINKVAULT_DISCORD_TOKEN"); v != "" && config.Notify.Discord.Token == "" {
		config.Notify.Discord.Token = v
	}
}

func validateConfig(config *Config) error {
	if config.App.Name == "" {
		config.App.Name = "linkvault"
	}

	if config.App.LogLevel == "" {
		config.App.LogLevel = "info"
	}

	if config.Vault.URL == "" {
		config.Vault.URL = "https://127.0.0.1:27124"
	}
	config.Vault.URL = strings.TrimRight(config.Vault.URL, "/")

	if config.Vault.Timeout == "" {
		config.Vault.Timeout = "10s"
	}

	if config.Vault.ReadCacheTTL == "" {
		config.Vault.ReadCacheTTL = "5m"
	}

	if config.Vault.ContextTTL == "" {
		config.Vault.ContextTTL = "1h"
	}

	if config.Vault.RateLimit <= 0 {
		config.Vault.RateLimit = 10
	}

	if config.Vault.DefaultFolder == "" {
		config.Vault.DefaultFolder = "Inbox"
	}

	if config.Vault.HubFolder == "" {
		config.Vault.HubFolder = "Hubs"
	}

	if config.AI.Provider == "" {
		config.AI.Provider = "ollama"
	}

	switch config.AI.Provider {
	case "ollama", "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	if config.AI.Model == "" {
		switch config.AI.Provider {
		case "anthropic":
			config.AI.Model = "claude-sonnet-4-5"
		case "openai":
			config.AI.Model = "gpt-4o-mini"
		default:
			config.AI.Model = "llama3.2"
		}
	}

	if config.AI.MaxTokens <= 0 {
		config.AI.MaxTokens = 2048
	}

	if config.AI.Timeout == "" {
		config.AI.Timeout = "2m"
	}

	if config.AI.MaxTags <= 0 {
		config.AI.MaxTags = 5
	}

	if config.Batch.Concurrency <= 0 {
		config.Batch.Concurrency = 5
	}

	if config.Batch.Organization == "" {
		config.Batch.Organization = "freeform"
	}

	if config.Batch.Organization != "freeform" && config.Batch.Organization != "structured" {
		return fmt.Errorf("invalid organization mode: %s", config.Batch.Organization)
	}

	if config.Batch.MinWords <= 0 {
		config.Batch.MinWords = 50
	}

	if config.Extractor.Timeout == "" {
		config.Extractor.Timeout = "30s"
	}

	if config.Extractor.MaxBytes <= 0 {
		config.Extractor.MaxBytes = 5 << 20
	}

	for i, script := range config.Extractor.Scripts {
		if script.Script == "" {
			return fmt.Errorf("extractor script %d has no script path", i)
		}
		if len(script.Hosts) == 0 {
			return fmt.Errorf("extractor script %s has no hosts", script.Script)
		}
	}

	if config.Storage.Type == "" {
		config.Storage.Type = "sqlite"
	}

	if config.Storage.Path == "" {
		config.Storage.Path = "./linkvault.db"
	}

	if config.Storage.Addr == "" {
		config.Storage.Addr = "localhost:6379"
	}

	if config.Storage.Prefix == "" {
		config.Storage.Prefix = "linkvault"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.Server.FeedSize <= 0 {
		config.Server.FeedSize = 50
	}

	if config.Server.Title == "" {
		config.Server.Title = config.App.Name
	}

	if config.Notify.Discord.Enabled && config.Notify.Discord.ChannelID == "" {
		return fmt.Errorf("channel_id is required when discord notifications are enabled")
	}

	for _, d := range []string{
		config.Vault.Timeout, config.Vault.ReadCacheTTL, config.Vault.ContextTTL,
		config.AI.Timeout, config.Extractor.Timeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %q: %w", d, err)
		}
	}

	return nil
}

// ParseDuration parses s, returning def when s is empty or invalid.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
