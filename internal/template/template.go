package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"maps"
	"os"
	"strings"
	texttemplate "text/template"
	"time"

	"gopkg.in/yaml.v3"
)

type TemplateType int

const (
	HtmlTemplate TemplateType = iota
	TextTemplate
)

type Template struct {
	textTmpl *texttemplate.Template
	htmlTmpl *htmltemplate.Template
}

// New parses src as a template of the given kind.
func New(name, src string, kind TemplateType, customFuncs any) (*Template, error) {
	t := &Template{}
	if err := t.Parse(name, src, kind, customFuncs); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) Load(path string, kind TemplateType, customFuncs any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	if err := t.Parse(path, string(data), kind, customFuncs); err != nil {
		return err
	}
	return nil
}

func (t *Template) Parse(name, src string, kind TemplateType, customFuncs any) error {
	switch kind {
	case HtmlTemplate:
		{
			defaultFuncs := htmltemplate.FuncMap(baseFuncs())

			if customFuncs != nil {
				if funcs, ok := customFuncs.(htmltemplate.FuncMap); ok {
					maps.Copy(defaultFuncs, funcs)
				}
			}

			tmpl, err := htmltemplate.New(name).Funcs(defaultFuncs).Parse(src)
			if err != nil {
				return fmt.Errorf("failed to parse HTML template %s: %w", name, err)
			}
			t.htmlTmpl = tmpl
		}
	case TextTemplate:
		{
			defaultFuncs := texttemplate.FuncMap(baseFuncs())

			if customFuncs != nil {
				if funcs, ok := customFuncs.(texttemplate.FuncMap); ok {
					maps.Copy(defaultFuncs, funcs)
				}
			}

			tmpl, err := texttemplate.New(name).Funcs(defaultFuncs).Parse(src)
			if err != nil {
				return fmt.Errorf("failed to parse text template %s: %w", name, err)
			}
			t.textTmpl = tmpl
		}
	default:
		return fmt.Errorf("unknown template type %d", kind)
	}
	return nil
}

func (t *Template) TextTemplate() *texttemplate.Template {
	return t.textTmpl
}

func (t *Template) HTMLTemplate() *htmltemplate.Template {
	return t.htmlTmpl
}

// Render executes whichever template was parsed last.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	switch {
	case t.textTmpl != nil:
		if err := t.textTmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to render template: %w", err)
		}
	case t.htmlTmpl != nil:
		if err := t.htmlTmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to render template: %w", err)
		}
	default:
		return "", fmt.Errorf("template not loaded")
	}
	return buf.String(), nil
}

func baseFuncs() map[string]any {
	return map[string]any{
		"json": toJSON,
		"yaml": toYAML,
		"join": strings.Join,
		"date": formatDate,
	}
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// toYAML renders v as a single YAML value, quoting only when needed.
func toYAML(v any) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return `""`
	}
	return strings.TrimSuffix(string(b), "\n")
}

func formatDate(layout string, t any) string {
	switch v := t.(type) {
	case time.Time:
		return v.Format(layout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(layout)
	}
	return ""
}
