package template

import (
	"os"
	"path/filepath"
	"testing"
	texttemplate "text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTextTemplateFuncs(t *testing.T) {
	tmpl, err := New("note", `tags: {{ join .Tags ", " }}
day: {{ date "2006-01-02" .When }}
raw: {{ json .Tags }}`, TextTemplate, nil)
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{
		"Title": "Go: the good parts",
		"Tags":  []string{"go", "lang"},
		"When":  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, `tags: go, lang
day: 2025-01-02
raw: ["go","lang"]`, out)
}

func TestYAMLFuncQuotes(t *testing.T) {
	tmpl, err := New("front", `title: {{ yaml .Title }}`, TextTemplate, nil)
	require.NoError(t, err)

	for _, title := range []string{"Go: the good parts", "# not a comment", "plain title", "yes"} {
		out, err := tmpl.Render(map[string]string{"Title": title})
		require.NoError(t, err)

		var parsed map[string]string
		require.NoError(t, yaml.Unmarshal([]byte(out), &parsed), out)
		assert.Equal(t, title, parsed["title"])
	}
}

func TestHTMLTemplateEscapes(t *testing.T) {
	tmpl, err := New("page", `<p>{{ .Title }}</p>`, HtmlTemplate, nil)
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]string{"Title": "<script>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;script&gt;</p>", out)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{ shout .Name }}`), 0o644))

	var tmpl Template
	funcs := texttemplate.FuncMap{"shout": func(s string) string { return s + "!" }}
	require.NoError(t, tmpl.Load(path, TextTemplate, funcs))

	out, err := tmpl.Render(map[string]string{"Name": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)

	assert.Error(t, tmpl.Load(filepath.Join(t.TempDir(), "missing"), TextTemplate, nil))
}

func TestRenderUnloaded(t *testing.T) {
	_, err := (&Template{}).Render(nil)
	assert.Error(t, err)

	_, err = New("bad", `{{ .Broken`, TextTemplate, nil)
	assert.Error(t, err)
}
