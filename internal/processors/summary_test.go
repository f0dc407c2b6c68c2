package processors

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkvault/internal/classify"
	"linkvault/internal/types"
)

type scriptedLLM struct {
	mu         sync.Mutex
	summary    string
	category   string
	summaryErr error
	prompts    []string
}

func (l *scriptedLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if system == summarizeSystem {
		return l.summary, l.summaryErr
	}
	return l.category, nil
}

func testContent() *types.ExtractedContent {
	return &types.ExtractedContent{
		URL:         "https://example.com/go",
		Title:       "Page title",
		Text:        "Go is a programming language.",
		WordCount:   5,
		ContentType: types.ContentArticle,
		Platform:    "web",
		Status:      types.ExtractionSuccess,
	}
}

func TestSummarizerProcessContent(t *testing.T) {
	llm := &scriptedLLM{
		summary:  "```json\n{\"title\": \"Go basics\", \"summary\": \"Go is simple.\", \"key_takeaways\": [\"fast builds\"]}\n```",
		category: `Sure! {"folder": "/Tech/", "tags": ["#Go", "programming languages", "go", "x", "y", "z", "w"]}`,
	}
	s := NewSummarizer(llm, "Inbox", 5, nil)

	vault := &types.VaultContext{
		Folders:      []string{"Inbox", "Tech"},
		Tags:         []string{"go"},
		RecentNotes:  []types.NoteSample{{Folder: "Tech", Title: "Rust", Tags: []string{"rust"}}},
		TagGroups:    map[string][]string{"topics": {"go"}},
		Organization: types.OrganizationFreeform,
	}

	note, err := s.ProcessContent(t.Context(), testContent(), vault)
	require.NoError(t, err)

	assert.Equal(t, "Go basics", note.Title)
	assert.Equal(t, "Go is simple.", note.Summary)
	assert.Equal(t, []string{"fast builds"}, note.KeyTakeaways)
	assert.Equal(t, "Tech", note.Folder)
	assert.Equal(t, []string{"go", "programming-languages", "x", "y", "z"}, note.Tags)
	assert.Equal(t, types.ContentArticle, note.ContentType)
	assert.Equal(t, "https://example.com/go", note.Source.URL)

	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], "Go is a programming language.")
	assert.Contains(t, llm.prompts[1], "- Tech")
	assert.Contains(t, llm.prompts[1], "topics: go")
	assert.Contains(t, llm.prompts[1], "Tech/Rust [rust]")
}

func TestSummarizerStructuredTags(t *testing.T) {
	llm := &scriptedLLM{
		summary:  `{"title": "", "summary": "s"}`,
		category: `{"folder": "Nowhere", "tags": ["go", "random"]}`,
	}
	s := NewSummarizer(llm, "Inbox", 0, nil)

	vault := &types.VaultContext{
		Folders:      []string{"Reading", "Tech"},
		TagGroups:    map[string][]string{"lang": {"Go", "rust"}},
		Organization: types.OrganizationStructured,
	}
	note, err := s.ProcessContent(t.Context(), testContent(), vault)
	require.NoError(t, err)

	assert.Equal(t, "Page title", note.Title)
	assert.Equal(t, "Reading", note.Folder)
	assert.Equal(t, []string{"go"}, note.Tags)
	assert.Contains(t, llm.prompts[1], "Only use tags from the tag groups.")
}

func TestSummarizerErrors(t *testing.T) {
	tests := []struct {
		name  string
		llm   *scriptedLLM
		stage types.ProcessingStage
	}{
		{"llm failure", &scriptedLLM{summaryErr: errors.New("connection refused")}, types.StageSummarization},
		{"not json", &scriptedLLM{summary: "I cannot help with that"}, types.StageSummarization},
		{"empty summary", &scriptedLLM{summary: `{"title": "x"}`}, types.StageSummarization},
		{"bad category", &scriptedLLM{summary: `{"summary": "s"}`, category: `{"folder": 3`}, types.StageCategorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(tt.llm, "", 0, nil)
			_, err := s.ProcessContent(t.Context(), testContent(), nil)
			require.Error(t, err)

			var pe *types.ProcessingError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.stage, pe.Stage)
			assert.Equal(t, types.ErrLLM, classify.Classify(err, nil))
		})
	}
}

func TestResolveFolder(t *testing.T) {
	vault := &types.VaultContext{Folders: []string{"Inbox", "Tech/Go"}}

	assert.Equal(t, "Tech/Go", ResolveFolder("Tech/Go/", vault, "Default"))
	assert.Equal(t, "Inbox", ResolveFolder("Cooking", vault, "Default"))
	assert.Equal(t, "Inbox", ResolveFolder("", vault, "Default"))
	assert.Equal(t, "Default", ResolveFolder("Tech", &types.VaultContext{}, "Default"))
	assert.Equal(t, "Default", ResolveFolder("Tech", nil, "Default"))
}

func TestDecodeJSONReply(t *testing.T) {
	var out categoryReply
	require.NoError(t, DecodeJSONReply("Here you go:\n```json\n{\"folder\": \"A\", \"tags\": []}\n```\nAnything else?", &out))
	assert.Equal(t, "A", out.Folder)

	assert.ErrorIs(t, DecodeJSONReply("no braces", &out), errNoJSON)
	assert.Error(t, DecodeJSONReply("} backwards {", &out))
	assert.True(t, strings.Contains(DecodeJSONReply("{oops}", &out).Error(), "invalid JSON"))
}
