package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"linkvault/internal/platforms"
	"linkvault/internal/types"
)

const (
	defaultMaxTags = 5
	maxPromptChars = 12000
	maxPromptNotes = 20
	maxPromptTakes = 7
	fallbackFolder = "Inbox"
)

const summarizeSystem = `You turn web pages into concise notes for a personal knowledge base.
Reply with a single JSON object and nothing else:
{"title": string, "summary": string, "key_takeaways": [string]}
The summary is two to four sentences. Give at most seven takeaways.`

const categorizeSystem = `You file notes into an existing knowledge base.
Reply with a single JSON object and nothing else:
{"folder": string, "tags": [string]}
Pick the folder from the listed folders. Prefer existing tags.`

var errNoJSON = errors.New("no JSON object in model output")

type summaryReply struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	KeyTakeaways []string `json:"key_takeaways"`
}

type categoryReply struct {
	Folder string   `json:"folder"`
	Tags   []string `json:"tags"`
}

// Summarizer is the AI provider: one completion to summarize and one to
// file the note into the vault.
type Summarizer struct {
	llm           platforms.LLM
	defaultFolder string
	maxTags       int
	logger        *slog.Logger
}

func NewSummarizer(llm platforms.LLM, defaultFolder string, maxTags int, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTags <= 0 {
		maxTags = defaultMaxTags
	}
	if defaultFolder == "" {
		defaultFolder = fallbackFolder
	}
	return &Summarizer{
		llm:           llm,
		defaultFolder: defaultFolder,
		maxTags:       maxTags,
		logger:        logger,
	}
}

func (s *Summarizer) ProcessContent(ctx context.Context, content *types.ExtractedContent, vault *types.VaultContext) (*types.ProcessedNote, error) {
	if content == nil {
		return nil, types.NewProcessingError(types.StageSummarization, errors.New("no content"))
	}

	var sum summaryReply
	if err := s.complete(ctx, summarizeSystem, summarizePrompt(content), &sum); err != nil {
		return nil, types.NewProcessingError(types.StageSummarization, err)
	}
	if strings.TrimSpace(sum.Summary) == "" {
		return nil, types.NewProcessingError(types.StageSummarization, errors.New("model returned an empty summary"))
	}

	title := strings.TrimSpace(sum.Title)
	if title == "" {
		title = content.Title
	}

	var cat categoryReply
	if err := s.complete(ctx, categorizeSystem, categorizePrompt(title, sum.Summary, content, vault), &cat); err != nil {
		return nil, types.NewProcessingError(types.StageCategorization, err)
	}

	folder := ResolveFolder(cat.Folder, vault, s.defaultFolder)
	if folder != strings.Trim(cat.Folder, "/ ") {
		s.logger.Debug("Remapped suggested folder", "suggested", cat.Folder, "folder", folder)
	}

	takeaways := sum.KeyTakeaways
	if len(takeaways) > maxPromptTakes {
		takeaways = takeaways[:maxPromptTakes]
	}

	return &types.ProcessedNote{
		Title:        title,
		Summary:      strings.TrimSpace(sum.Summary),
		KeyTakeaways: slices.Clone(takeaways),
		Folder:       folder,
		Tags:         NormalizeTags(cat.Tags, vault, s.maxTags),
		ContentType:  content.ContentType,
		Platform:     content.Platform,
		Source:       content,
	}, nil
}

func (s *Summarizer) complete(ctx context.Context, system, prompt string, out any) error {
	raw, err := s.llm.Complete(ctx, system, prompt)
	if err != nil {
		return err
	}
	return DecodeJSONReply(raw, out)
}

// DecodeJSONReply pulls the first JSON object out of model output that may
// be wrapped in code fences or prose.
func DecodeJSONReply(raw string, out any) error {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return errNoJSON
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), out); err != nil {
		return fmt.Errorf("invalid JSON in model output: %w", err)
	}
	return nil
}

// ResolveFolder keeps suggested when it is a known vault folder. Anything
// else goes to the first known folder, or defaultFolder for an empty vault.
func ResolveFolder(suggested string, vault *types.VaultContext, defaultFolder string) string {
	suggested = strings.Trim(suggested, "/ ")
	if vault == nil || len(vault.Folders) == 0 {
		return defaultFolder
	}
	if suggested != "" && vault.HasFolder(suggested) {
		return suggested
	}
	return vault.Folders[0]
}

// NormalizeTags lower-cases and de-duplicates tags. In structured mode with
// tag groups, only grouped tags survive.
func NormalizeTags(tags []string, vault *types.VaultContext, limit int) []string {
	var allowed map[string]bool
	if vault != nil && vault.Organization == types.OrganizationStructured && len(vault.TagGroups) > 0 {
		allowed = make(map[string]bool)
		for _, t := range vault.GroupedTags() {
			allowed[normalizeTag(t)] = true
		}
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		if allowed != nil && !allowed[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

func normalizeTag(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.TrimLeft(t, "#")
	return strings.Join(strings.Fields(t), "-")
}

func summarizePrompt(content *types.ExtractedContent) string {
	text := content.Text
	if r := []rune(text); len(r) > maxPromptChars {
		text = string(r[:maxPromptChars])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", content.URL)
	if content.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", content.Title)
	}
	if content.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", content.Author)
	}
	fmt.Fprintf(&b, "Type: %s (%s)\n\n", content.ContentType, content.Platform)
	b.WriteString("Content:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}

func categorizePrompt(title, summary string, content *types.ExtractedContent, vault *types.VaultContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Note title: %s\nSummary: %s\nSource: %s\n\n", title, summary, content.URL)

	if vault == nil {
		return b.String()
	}

	if len(vault.Folders) > 0 {
		fmt.Fprintf(&b, "Folders:\n- %s\n\n", strings.Join(vault.Folders, "\n- "))
	}
	if len(vault.Tags) > 0 {
		fmt.Fprintf(&b, "Existing tags: %s\n\n", strings.Join(vault.Tags, ", "))
	}

	if len(vault.TagGroups) > 0 {
		groups := make([]string, 0, len(vault.TagGroups))
		for name := range vault.TagGroups {
			groups = append(groups, name)
		}
		slices.Sort(groups)

		b.WriteString("Tag groups:\n")
		for _, name := range groups {
			fmt.Fprintf(&b, "- %s: %s\n", name, strings.Join(vault.TagGroups[name], ", "))
		}
		if vault.Organization == types.OrganizationStructured {
			b.WriteString("Only use tags from the tag groups.\n")
		}
		b.WriteString("\n")
	}

	if len(vault.RecentNotes) > 0 {
		b.WriteString("Recent notes:\n")
		for i, n := range vault.RecentNotes {
			if i == maxPromptNotes {
				break
			}
			fmt.Fprintf(&b, "- %s/%s", n.Folder, n.Title)
			if len(n.Tags) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(n.Tags, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
