package processors

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	"linkvault/internal/template"
	"linkvault/internal/types"
	"linkvault/internal/utils"
)

const defaultNoteTemplate = `---
{{ .Frontmatter }}---

# {{ .Title }}

{{ .Summary }}
{{- if .KeyTakeaways }}

## Key takeaways
{{ range .KeyTakeaways }}
- {{ . }}
{{- end }}
{{- end }}
{{- if .QualityReason }}

> [!warning] Needs review
> {{ .QualityReason }}
{{- end }}

[Source]({{ .Source }})
`

type noteFrontmatter struct {
	Source    string   `yaml:"source"`
	Title     string   `yaml:"title"`
	Tags      []string `yaml:"tags"`
	Created   string   `yaml:"created"`
	Type      string   `yaml:"type"`
	Platform  string   `yaml:"platform,omitempty"`
	Author    string   `yaml:"author,omitempty"`
	Published string   `yaml:"published,omitempty"`
	Status    string   `yaml:"status,omitempty"`
}

// NoteData is what a note template is rendered with.
type NoteData struct {
	Frontmatter   string
	Title         string
	Summary       string
	KeyTakeaways  []string
	Tags          []string
	Folder        string
	Source        string
	Author        string
	Platform      string
	ContentType   types.ContentType
	Published     *time.Time
	Created       time.Time
	QualityReason string
}

// NoteFormatter renders processed notes into markdown files.
type NoteFormatter struct {
	tmpl   *template.Template
	strict *bluemonday.Policy
	now    func() time.Time
}

// NewNoteFormatter uses the template at templatePath, or the built-in one
// when the path is empty.
func NewNoteFormatter(templatePath string) (*NoteFormatter, error) {
	var tmpl *template.Template
	if templatePath != "" {
		tmpl = &template.Template{}
		if err := tmpl.Load(templatePath, template.TextTemplate, nil); err != nil {
			return nil, err
		}
	} else {
		var err error
		tmpl, err = template.New("note", defaultNoteTemplate, template.TextTemplate, nil)
		if err != nil {
			return nil, err
		}
	}

	return &NoteFormatter{
		tmpl:   tmpl,
		strict: bluemonday.StrictPolicy(),
		now:    time.Now,
	}, nil
}

// Format renders note, marking it for review when qualityReason is set.
func (f *NoteFormatter) Format(note *types.ProcessedNote, qualityReason string) (string, error) {
	data := f.noteData(note, qualityReason)

	front := noteFrontmatter{
		Source:   data.Source,
		Title:    data.Title,
		Tags:     data.Tags,
		Created:  data.Created.Format(time.RFC3339),
		Type:     string(data.ContentType),
		Platform: data.Platform,
		Author:   data.Author,
	}
	if front.Tags == nil {
		front.Tags = []string{}
	}
	if data.Published != nil {
		front.Published = data.Published.Format("2006-01-02")
	}
	if qualityReason != "" {
		front.Status = string(types.ResultReview)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(front); err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	data.Frontmatter = buf.String()

	return f.tmpl.Render(data)
}

func (f *NoteFormatter) noteData(note *types.ProcessedNote, qualityReason string) NoteData {
	data := NoteData{
		Title:         f.plain(note.Title),
		Summary:       f.plain(note.Summary),
		Tags:          note.Tags,
		Folder:        note.Folder,
		Platform:      note.Platform,
		ContentType:   note.ContentType,
		Created:       f.now(),
		QualityReason: qualityReason,
	}
	for _, t := range note.KeyTakeaways {
		if t = f.plain(t); t != "" {
			data.KeyTakeaways = append(data.KeyTakeaways, t)
		}
	}
	if src := note.Source; src != nil {
		data.Source = src.URL
		data.Author = src.Author
		data.Published = src.PublishedAt
	}
	if data.Title == "" {
		data.Title = utils.UntitledName
	}
	return data
}

// plain drops any markup the model produced.
func (f *NoteFormatter) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(f.strict.Sanitize(s)))
}

// NotePath is where a note with the given title is stored.
func NotePath(folder, title string) string {
	return utils.JoinNotePath(folder, utils.SafeFileName(title))
}

// HubPath is the hub note collecting backlinks for tag.
// HubPath is case-folded so tags differing only in case share one hub.
func HubPath(hubFolder, tag string) string {
	return utils.JoinNotePath(hubFolder, utils.SafeFileName(strings.ToLower(tag)))
}

func HubHeader(tag string) string {
	return fmt.Sprintf("# %s\n\nNotes tagged #%s.\n\n", tag, tag)
}

// Backlink is the line appended to a hub note for the note at notePath.
func Backlink(notePath string) string {
	name := notePath[strings.LastIndexByte(notePath, '/')+1:]
	return fmt.Sprintf("- [[%s]]\n", strings.TrimSuffix(name, ".md"))
}
