package types

import (
	"context"
	"strings"
	"time"
)

type ContentType string

const (
	ContentArticle     ContentType = "article"
	ContentSocialMedia ContentType = "social-media"
)

type ExtractionStatus string

const (
	ExtractionSuccess ExtractionStatus = "success"
	ExtractionFailed  ExtractionStatus = "failed"
)

// ExtractedContent is the raw material scraped for one URL. It is produced by
// an Extractor and never modified afterwards.
type ExtractedContent struct {
	URL         string           `json:"url"`
	Title       string           `json:"title"`
	Text        string           `json:"text"`
	Author      string           `json:"author,omitempty"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
	WordCount   int              `json:"word_count"`
	ContentType ContentType      `json:"content_type"`
	Platform    string           `json:"platform"`
	Status      ExtractionStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
}

func (c *ExtractedContent) Failed() bool {
	return c == nil || c.Status == ExtractionFailed
}

// ProcessedNote is the AI-derived artifact for one URL.
type ProcessedNote struct {
	Title        string            `json:"title"`
	Summary      string            `json:"summary"`
	KeyTakeaways []string          `json:"key_takeaways"`
	Folder       string            `json:"folder"`
	Tags         []string          `json:"tags"`
	ContentType  ContentType       `json:"content_type"`
	Platform     string            `json:"platform"`
	Source       *ExtractedContent `json:"source,omitempty"`
}

type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultReview  ResultStatus = "review"
	ResultSkipped ResultStatus = "skipped"
	ResultFailed  ResultStatus = "failed"
)

// ProcessingResult is the terminal outcome for one URL of a batch.
type ProcessingResult struct {
	URL           string         `json:"url"`
	Status        ResultStatus   `json:"status"`
	Note          *ProcessedNote `json:"note,omitempty"`
	Folder        string         `json:"folder,omitempty"`
	NotePath      string         `json:"note_path,omitempty"`
	QualityReason string         `json:"quality_reason,omitempty"`
	SkipReason    string         `json:"skip_reason,omitempty"`
	Error         string         `json:"error,omitempty"`
	ErrorCategory ErrorCategory  `json:"error_category,omitempty"`
	ErrorMeta     *ErrorMetadata `json:"error_meta,omitempty"`
}

// Created reports whether the result left a note behind in the vault.
func (r ProcessingResult) Created() bool {
	return r.Status == ResultSuccess || r.Status == ResultReview
}

// TerminalStatus is the URL status label a finished result reports.
func (r ProcessingResult) TerminalStatus() URLStatus {
	switch r.Status {
	case ResultSuccess:
		return StatusDone
	case ResultReview:
		return StatusReview
	case ResultSkipped:
		return StatusSkipped
	}
	if strings.EqualFold(r.Error, CancelledMessage) {
		return StatusCancelled
	}
	return StatusFailed
}

type URLStatus string

const (
	StatusQueued     URLStatus = "queued"
	StatusChecking   URLStatus = "checking"
	StatusExtracting URLStatus = "extracting"
	StatusProcessing URLStatus = "processing"
	StatusCreating   URLStatus = "creating"
	StatusDone       URLStatus = "done"
	StatusReview     URLStatus = "review"
	StatusSkipped    URLStatus = "skipped"
	StatusFailed     URLStatus = "failed"
	StatusCancelled  URLStatus = "cancelled"
)

// Terminal reports whether no further transition can follow s.
func (s URLStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusReview, StatusSkipped, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type Organization string

const (
	OrganizationStructured Organization = "structured"
	OrganizationFreeform   Organization = "freeform"
)

const (
	MaxContextFolders = 100
	MaxContextTags    = 200
)

type NoteSample struct {
	Folder string   `json:"folder"`
	Title  string   `json:"title"`
	Tags   []string `json:"tags,omitempty"`
}

// VaultContext is the inventory used to ground categorization. It is shared
// read-only by all workers of a batch.
type VaultContext struct {
	Folders      []string            `json:"folders"`
	Tags         []string            `json:"tags"`
	RecentNotes  []NoteSample        `json:"recent_notes"`
	TagGroups    map[string][]string `json:"tag_groups,omitempty"`
	Organization Organization        `json:"organization"`
}

// WithBatch returns a copy of c carrying the batch-specific tag groups and
// organization mode. The receiver is left untouched since it may be cached.
func (c *VaultContext) WithBatch(tagGroups map[string][]string, org Organization) *VaultContext {
	merged := &VaultContext{Organization: org}
	if c != nil {
		merged.Folders = c.Folders
		merged.Tags = c.Tags
		merged.RecentNotes = c.RecentNotes
		if org == "" {
			merged.Organization = c.Organization
		}
		merged.TagGroups = c.TagGroups
	}
	if tagGroups != nil {
		merged.TagGroups = tagGroups
	}
	if merged.Organization == "" {
		merged.Organization = OrganizationFreeform
	}
	return merged
}

// HasFolder reports whether folder is one of the known vault folders.
func (c *VaultContext) HasFolder(folder string) bool {
	for _, f := range c.Folders {
		if f == folder {
			return true
		}
	}
	return false
}

// GroupedTags flattens the tag groups into one ordered, de-duplicated list.
func (c *VaultContext) GroupedTags() []string {
	seen := make(map[string]bool)
	var out []string
	for _, tags := range c.TagGroups {
		for _, t := range tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// ProcessingState is the externally observable snapshot of a batch.
type ProcessingState struct {
	BatchID     string               `json:"batch_id"`
	Active      bool                 `json:"active"`
	URLs        []string             `json:"urls"`
	Results     []ProcessingResult   `json:"results"`
	// URLStatuses is keyed by the raw URL, so a string repeated in URLs
	// shows the status of its last occurrence.
	URLStatuses map[string]URLStatus `json:"url_statuses"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  *time.Time           `json:"finished_at,omitempty"`
	Cancelled   bool                 `json:"cancelled"`
	Error       string               `json:"error,omitempty"`
}

// Clone returns a deep enough copy for handing to persistence while the
// original keeps changing.
func (s *ProcessingState) Clone() *ProcessingState {
	if s == nil {
		return nil
	}
	c := *s
	c.URLs = append([]string(nil), s.URLs...)
	c.Results = append([]ProcessingResult(nil), s.Results...)
	c.URLStatuses = make(map[string]URLStatus, len(s.URLStatuses))
	for k, v := range s.URLStatuses {
		c.URLStatuses[k] = v
	}
	return &c
}

// Counts tallies final statuses.
// Counts tallies one status per entry of URLs. Finished batches count
// their results so repeated URLs are not collapsed.
func (s *ProcessingState) Counts() map[URLStatus]int {
	counts := make(map[URLStatus]int)
	if len(s.Results) > 0 && len(s.Results) == len(s.URLs) {
		for _, res := range s.Results {
			counts[res.TerminalStatus()]++
		}
		return counts
	}
	for _, u := range s.URLs {
		counts[s.URLStatuses[u]]++
	}
	return counts
}

type HistoryEntry struct {
	ID          string           `json:"id"`
	BatchID     string           `json:"batch_id"`
	Result      ProcessingResult `json:"result"`
	CompletedAt time.Time        `json:"completed_at"`
}

// NoteStore is the external note vault.
type NoteStore interface {
	ListFolders(ctx context.Context) ([]string, error)
	ListTags(ctx context.Context) ([]string, error)
	SampleNotes(ctx context.Context, folder string, limit int) ([]NoteSample, error)
	SearchNotes(ctx context.Context, query string) ([]string, error)
	ReadNote(ctx context.Context, path string) (string, error)
	NoteExists(ctx context.Context, path string) (bool, error)
	CreateNote(ctx context.Context, path, content string) error
	AppendToNote(ctx context.Context, path, content string) error
}

// Extractor fetches a page. It reports failure through the returned
// content's Status instead of an error.
type Extractor interface {
	Extract(ctx context.Context, url string) *ExtractedContent
}

type ExtractorFunc func(ctx context.Context, url string) *ExtractedContent

func (f ExtractorFunc) Extract(ctx context.Context, url string) *ExtractedContent {
	return f(ctx, url)
}

// Provider turns extracted content into a note.
type Provider interface {
	ProcessContent(ctx context.Context, content *ExtractedContent, vault *VaultContext) (*ProcessedNote, error)
}
