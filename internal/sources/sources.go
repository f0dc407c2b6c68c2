// Package sources collects the URLs of a batch from command arguments,
// link files, feeds and OPML subscription lists.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

const DefaultMaxItems = 50

// Input names one place to read URLs from. Kind selects the loader
// ("file", "feed", "opml_file", "opml_url"); Value is its path or URL.
type Input struct {
	Kind  string
	Value string
}

// Collect gathers URLs from args and every input, in that order. Blank and
// invalid entries are dropped; duplicates are kept so the batch can report
// them.
func Collect(ctx context.Context, args []string, inputs []Input, maxItems int) ([]string, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	urls := Clean(args)
	for _, in := range inputs {
		loader, err := GetLoader(in.Kind)
		if err != nil {
			return nil, err
		}

		loaded, err := loader.Load(ctx, in.Value, maxItems)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s %q: %w", in.Kind, in.Value, err)
		}

		cleaned := Clean(loaded)
		slog.Debug("Loaded URLs", "kind", in.Kind, "value", in.Value, "count", len(cleaned))
		urls = append(urls, cleaned...)
	}
	return urls, nil
}

// Clean trims every entry and keeps only absolute http(s) URLs.
func Clean(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !ValidURL(line) {
			slog.Warn("Ignoring invalid URL", "value", line)
			continue
		}
		out = append(out, line)
	}
	return out
}

func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
