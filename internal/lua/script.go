package lua

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cjoudrey/gluahttp"
	json "layeh.com/gopher-json"
)

// Page is what an extraction script receives as its only argument.
type Page struct {
	URL       string
	Host      string
	Platform  string
	UserAgent string
}

// ScriptResult is the table an extraction script returns.
type ScriptResult struct {
	Title       string
	Text        string
	Author      string
	PublishedAt *time.Time
	ContentType string
}

// ScriptRunner executes extraction scripts. Each run gets a fresh state so
// the runner can be shared between goroutines.
type ScriptRunner struct {
	loader Loader
	client *http.Client
	logger *slog.Logger
}

func NewScriptRunner(loader Loader, client *http.Client, logger *slog.Logger) *ScriptRunner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptRunner{
		loader: loader,
		client: client,
		logger: logger,
	}
}

// Run loads script and calls its extract(page) function. The function
// returns a result table, or nil and an error message.
func (r *ScriptRunner) Run(ctx context.Context, script string, page Page) (*ScriptResult, error) {
	rt := NewRuntime(
		WithLoader(r.loader),
		WithSecureMode(true),
		WithPreload("http", gluahttp.NewHttpModule(r.client).Loader),
		WithPreload("json", json.Loader),
		WithModules(NewHTMLModule(), NewLogModule(r.logger, script)),
	)
	defer rt.Close()

	content, err := r.loader.Load(script)
	if err != nil {
		return nil, err
	}
	if err := rt.LoadScript(content); err != nil {
		return nil, fmt.Errorf("script %s: %w", script, err)
	}

	results, err := rt.Call(ctx, "extract", map[string]any{
		"url":        page.URL,
		"host":       page.Host,
		"platform":   page.Platform,
		"user_agent": page.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", script, err)
	}

	if len(results) > 1 {
		if msg, ok := results[1].(string); ok && msg != "" {
			return nil, fmt.Errorf("script %s: %s", script, msg)
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("script %s returned nothing", script)
	}
	table, ok := results[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("script %s returned %T, expected a table", script, results[0])
	}

	return &ScriptResult{
		Title:       strings.TrimSpace(StringField(table, "title")),
		Text:        strings.TrimSpace(StringField(table, "text")),
		Author:      strings.TrimSpace(StringField(table, "author")),
		PublishedAt: parsePublished(table["published"]),
		ContentType: StringField(table, "content_type"),
	}, nil
}

func parsePublished(v any) *time.Time {
	switch p := v.(type) {
	case float64:
		if p <= 0 {
			return nil
		}
		t := time.Unix(int64(p), 0).UTC()
		return &t
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, p); err == nil {
				return &t
			}
		}
	}
	return nil
}
