package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("LINKVAULT_VAULT_API_KEY", "")
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, "linkvault", cfg.App.Name)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "llama3.2", cfg.AI.Model)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
	assert.Equal(t, "freeform", cfg.Batch.Organization)
	assert.Equal(t, 50, cfg.Batch.MinWords)
	assert.Equal(t, "Inbox", cfg.Vault.DefaultFolder)
	assert.Equal(t, "1h", cfg.Vault.ContextTTL)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.AI.MaxTags)
}

func TestParseFull(t *testing.T) {
	data := `
[app]
name = "links"

[vault]
url = "http://localhost:27123/"
api_key = "secret"
default_folder = "Reading"

[ai]
provider = "anthropic"
model = "claude-haiku-4-5"

[batch]
concurrency = 3
organization = "structured"

[batch.tag_groups]
topics = ["ai", "go"]

[[extractor.scripts]]
name = "reddit"
hosts = ["reddit.com"]
script = "reddit.lua"

[storage]
type = "redis"
addr = "redis:6379"
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:27123", cfg.Vault.URL)
	assert.Equal(t, "secret", cfg.Vault.APIKey)
	assert.Equal(t, "Reading", cfg.Vault.DefaultFolder)
	assert.Equal(t, "claude-haiku-4-5", cfg.AI.Model)
	assert.Equal(t, 3, cfg.Batch.Concurrency)
	assert.Equal(t, "structured", cfg.Batch.Organization)
	assert.Equal(t, []string{"ai", "go"}, cfg.Batch.TagGroups["topics"])
	require.Len(t, cfg.Extractor.Scripts, 1)
	assert.Equal(t, []string{"reddit.com"}, cfg.Extractor.Scripts[0].Hosts)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "redis:6379", cfg.Storage.Addr)
}

func TestParseEnvSecrets(t *testing.T) {
	t.Setenv("LINKVAULT_VAULT_API_KEY", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")

	cfg, err := Parse([]byte("[ai]\nprovider = \"anthropic\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Vault.APIKey)
	assert.Equal(t, "anthropic-key", cfg.AI.APIKey)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad toml", "[app"},
		{"bad provider", "[ai]\nprovider = \"nope\"\n"},
		{"bad organization", "[batch]\norganization = \"chaos\"\n"},
		{"bad duration", "[vault]\ntimeout = \"soon\"\n"},
		{"script without hosts", "[[extractor.scripts]]\nscript = \"x.lua\"\n"},
		{"discord without channel", "[notify.discord]\nenabled = true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[batch]\nconcurrency = 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Batch.Concurrency)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseDuration("3s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("later", time.Minute))
}
