package sources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const maxFeedFetches = 4

// FileLoader reads one URL per line. "-" reads standard input.
type FileLoader struct {
	Stdin io.Reader
}

func (f *FileLoader) Load(ctx context.Context, path string, maxItems int) ([]string, error) {
	if path == "-" {
		in := f.Stdin
		if in == nil {
			in = os.Stdin
		}
		return ReadLines(in)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open link file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadLines(file)
}

func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	return lines, nil
}

// FeedLoader takes the item links of an RSS, Atom or JSON feed.
type FeedLoader struct {
	UserAgent string
}

func NewFeedLoader() *FeedLoader {
	return &FeedLoader{UserAgent: "linkvault/1.0"}
}

func (f *FeedLoader) Load(ctx context.Context, feedURL string, maxItems int) ([]string, error) {
	// Parsers hold per-parse state, so each load gets its own.
	parser := gofeed.NewParser()
	parser.UserAgent = f.UserAgent
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	limit := min(maxItems, len(feed.Items))
	links := make([]string, 0, limit)
	for _, item := range feed.Items[:limit] {
		link := item.Link
		if link == "" && len(item.Links) > 0 {
			link = item.Links[0]
		}
		if link != "" {
			links = append(links, link)
		}
	}
	return links, nil
}

// OPMLLoader fetches every feed of a subscription list. A feed that fails is
// logged and skipped.
type OPMLLoader struct {
	fetch func(ctx context.Context, value string) ([]byte, error)
	feeds *FeedLoader
}

func (o *OPMLLoader) Load(ctx context.Context, value string, maxItems int) ([]string, error) {
	data, err := o.fetch(ctx, value)
	if err != nil {
		return nil, err
	}

	feeds, err := ParseOPML(data)
	if err != nil {
		return nil, err
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds in OPML")
	}

	perFeed := make([][]string, len(feeds))
	var g errgroup.Group
	g.SetLimit(maxFeedFetches)
	for i, feed := range feeds {
		g.Go(func() error {
			links, err := o.feeds.Load(ctx, feed.URL, maxItems)
			if err != nil {
				slog.Warn("Feed fetch failed", "feed", feed.Name, "url", feed.URL, "error", err)
				return nil
			}
			perFeed[i] = links
			return nil
		})
	}
	_ = g.Wait()

	var links []string
	for _, l := range perFeed {
		links = append(links, l...)
	}
	return links, nil
}

func init() {
	feeds := NewFeedLoader()
	RegisterLoader("file", &FileLoader{})
	RegisterLoader("feed", feeds)
	RegisterLoader("opml_file", &OPMLLoader{fetch: func(_ context.Context, path string) ([]byte, error) {
		return LoadOPMLFile(path)
	}, feeds: feeds})
	RegisterLoader("opml_url", &OPMLLoader{fetch: FetchOPML, feeds: feeds})
}
