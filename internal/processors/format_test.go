package processors

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"linkvault/internal/types"
)

func sampleNote() *types.ProcessedNote {
	published := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return &types.ProcessedNote{
		Title:        "Concurrency: patterns in Go",
		Summary:      "Goroutines and <b>channels</b> explained.",
		KeyTakeaways: []string{"Share memory by communicating", "  "},
		Folder:       "Tech",
		Tags:         []string{"go", "concurrency"},
		ContentType:  types.ContentArticle,
		Platform:     "web",
		Source: &types.ExtractedContent{
			URL:         "https://example.com/go",
			Author:      "Rob",
			PublishedAt: &published,
		},
	}
}

func TestFormatNote(t *testing.T) {
	f, err := NewNoteFormatter("")
	require.NoError(t, err)
	f.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	out, err := f.Format(sampleNote(), "")
	require.NoError(t, err)

	block, body, ok := SplitFrontmatter(out)
	require.True(t, ok, out)

	var meta map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(block), &meta))
	assert.Equal(t, "https://example.com/go", meta["source"])
	assert.Equal(t, "Concurrency: patterns in Go", meta["title"])
	assert.Equal(t, []any{"go", "concurrency"}, meta["tags"])
	assert.Equal(t, "2025-01-02T03:04:05Z", meta["created"])
	assert.Equal(t, "article", meta["type"])
	assert.Equal(t, "Rob", meta["author"])
	assert.Equal(t, "2024-05-01", meta["published"])
	assert.NotContains(t, meta, "status")

	assert.Contains(t, body, "# Concurrency: patterns in Go")
	assert.Contains(t, body, "Goroutines and channels explained.")
	assert.Contains(t, body, "- Share memory by communicating")
	assert.NotContains(t, body, "Needs review")
	assert.Contains(t, body, "[Source](https://example.com/go)")

	assert.Equal(t, "https://example.com/go", FrontmatterSource(out))
}

func TestFormatReviewNote(t *testing.T) {
	f, err := NewNoteFormatter("")
	require.NoError(t, err)

	note := sampleNote()
	note.Tags = nil
	out, err := f.Format(note, "Only 12 words extracted")
	require.NoError(t, err)

	assert.Contains(t, out, "tags: []")
	assert.Contains(t, out, "status: review")
	assert.Contains(t, out, "> Only 12 words extracted")
}

func TestFormatCustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("---\n{{ .Frontmatter }}---\n{{ .Title }} in {{ .Folder }} [{{ join .Tags \",\" }}]\n"), 0o644))

	f, err := NewNoteFormatter(path)
	require.NoError(t, err)

	out, err := f.Format(sampleNote(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Concurrency: patterns in Go in Tech [go,concurrency]")

	_, err = NewNoteFormatter(filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.Error(t, err)
}

func TestNoteAndHubPaths(t *testing.T) {
	assert.Equal(t, "Tech/Concurrency patterns in Go.md", NotePath("Tech", "Concurrency: patterns in Go"))
	assert.Equal(t, "Hubs/ai.md", HubPath("Hubs", "ai"))
	assert.Equal(t, "- [[Concurrency patterns in Go]]\n", Backlink("Tech/Concurrency patterns in Go.md"))
	assert.Contains(t, HubHeader("ai"), "# ai")
}
