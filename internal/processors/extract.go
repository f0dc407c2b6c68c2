package processors

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"linkvault/internal/config"
	"linkvault/internal/lua"
	"linkvault/internal/types"
)

//go:embed scripts/*.lua
var embeddedScripts embed.FS

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

type scriptBinding struct {
	hosts    []string
	script   string
	platform string
}

var defaultBindings = []scriptBinding{
	{hosts: []string{"reddit.com", "old.reddit.com", "redd.it"}, script: "reddit", platform: "reddit"},
	{hosts: []string{"twitter.com", "x.com"}, script: "social", platform: "twitter"},
	{hosts: []string{"bsky.app"}, script: "social", platform: "bluesky"},
	{hosts: []string{"threads.net"}, script: "social", platform: "threads"},
	{hosts: []string{"linkedin.com"}, script: "social", platform: "linkedin"},
}

var platformHosts = map[string]string{
	"reddit.com":           "reddit",
	"redd.it":              "reddit",
	"twitter.com":          "twitter",
	"x.com":                "twitter",
	"youtube.com":          "youtube",
	"youtu.be":             "youtube",
	"bsky.app":             "bluesky",
	"threads.net":          "threads",
	"linkedin.com":         "linkedin",
	"news.ycombinator.com": "hackernews",
	"mastodon.social":      "mastodon",
}

var socialPlatforms = map[string]bool{
	"reddit":     true,
	"twitter":    true,
	"bluesky":    true,
	"threads":    true,
	"linkedin":   true,
	"hackernews": true,
	"mastodon":   true,
}

// DetectPlatform names the site a host belongs to, or "web".
func DetectPlatform(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for h := host; h != ""; {
		if p, ok := platformHosts[h]; ok {
			return p
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	if strings.Contains(host, "mastodon") {
		return "mastodon"
	}
	return "web"
}

func contentTypeFor(platform string) types.ContentType {
	if socialPlatforms[platform] {
		return types.ContentSocialMedia
	}
	return types.ContentArticle
}

// ContentExtractor fetches pages and turns them into markdown text. Sites
// with a bound Lua script are handled by the script first.
type ContentExtractor struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	timeout   time.Duration
	scripts   *lua.ScriptRunner
	bindings  []scriptBinding
	converter *md.Converter
	sanitizer *bluemonday.Policy
	strict    *bluemonday.Policy
	logger    *slog.Logger
}

func NewContentExtractor(cfg config.ExtractorConfig, logger *slog.Logger) *ContentExtractor {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := config.ParseDuration(cfg.Timeout, 30*time.Second)
	client := &http.Client{Timeout: timeout}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}

	loader := lua.ChainLoader{lua.NewFSLoader(embeddedScripts, "scripts")}
	if cfg.ScriptsDir != "" {
		loader = append(lua.ChainLoader{lua.NewDirLoader(cfg.ScriptsDir)}, loader...)
	}

	var bindings []scriptBinding
	for _, s := range cfg.Scripts {
		bindings = append(bindings, scriptBinding{hosts: s.Hosts, script: s.Script, platform: s.Platform})
	}
	bindings = append(bindings, defaultBindings...)

	return &ContentExtractor{
		client:    client,
		userAgent: userAgent,
		maxBytes:  maxBytes,
		timeout:   timeout,
		scripts:   lua.NewScriptRunner(loader, client, logger),
		bindings:  bindings,
		converter: md.NewConverter("", true, nil),
		sanitizer: bluemonday.UGCPolicy(),
		strict:    bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Extract never returns an error; failures are reported in the result.
func (e *ContentExtractor) Extract(ctx context.Context, rawURL string) *types.ExtractedContent {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return failedExtraction(rawURL, "web", fmt.Sprintf("invalid URL: %q", rawURL))
	}

	platform := DetectPlatform(u.Hostname())

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if binding := e.bindingFor(u.Hostname()); binding != nil {
		if binding.platform != "" {
			platform = binding.platform
		}
		content, err := e.extractWithScript(ctx, u, binding.script, platform)
		if err == nil {
			return content
		}
		e.logger.Warn("Script extraction failed, falling back to page parsing",
			"url", rawURL, "script", binding.script, "error", err)
	}

	return e.extractPage(ctx, u, platform)
}

func (e *ContentExtractor) bindingFor(host string) *scriptBinding {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for i := range e.bindings {
		for _, h := range e.bindings[i].hosts {
			h = strings.ToLower(h)
			if host == h || strings.HasSuffix(host, "."+h) {
				return &e.bindings[i]
			}
		}
	}
	return nil
}

func (e *ContentExtractor) extractWithScript(ctx context.Context, u *url.URL, script, platform string) (*types.ExtractedContent, error) {
	res, err := e.scripts.Run(ctx, script, lua.Page{
		URL:       u.String(),
		Host:      u.Hostname(),
		Platform:  platform,
		UserAgent: e.userAgent,
	})
	if err != nil {
		return nil, err
	}
	if res.Text == "" {
		return nil, fmt.Errorf("script %s returned no text", script)
	}

	contentType := contentTypeFor(platform)
	if res.ContentType != "" {
		contentType = types.ContentType(res.ContentType)
	}

	text := strings.TrimSpace(e.plain(res.Text))
	return &types.ExtractedContent{
		URL:         u.String(),
		Title:       e.clean(res.Title),
		Text:        text,
		Author:      e.clean(res.Author),
		PublishedAt: res.PublishedAt,
		WordCount:   countWords(text),
		ContentType: contentType,
		Platform:    platform,
		Status:      types.ExtractionSuccess,
	}, nil
}

func (e *ContentExtractor) extractPage(ctx context.Context, u *url.URL, platform string) *types.ExtractedContent {
	rawURL := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failedExtraction(rawURL, platform, err.Error())
	}
	e.setBrowserHeaders(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return failedExtraction(rawURL, platform, fmt.Sprintf("failed to fetch page: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &types.HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
		return failedExtraction(rawURL, platform, httpErr.Error())
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return failedExtraction(rawURL, platform, fmt.Sprintf("unsupported content type %q: not HTML", ct))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return failedExtraction(rawURL, platform, fmt.Sprintf("failed to read page: %v", err))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return failedExtraction(rawURL, platform, fmt.Sprintf("failed to parse HTML: %v", err))
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return failedExtraction(rawURL, platform, fmt.Sprintf("readability failed to parse article: %v", err))
	}

	text, err := e.converter.ConvertString(e.sanitizer.Sanitize(article.Content))
	if err != nil || strings.TrimSpace(text) == "" {
		text = article.TextContent
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return failedExtraction(rawURL, platform, "empty content: no readable text found")
	}

	title := e.clean(article.Title)
	if title == "" {
		title = e.clean(lua.MetaContent(doc.Selection, "og:title"))
	}
	if title == "" {
		title = e.clean(doc.Find("title").First().Text())
	}

	author := e.clean(article.Byline)
	if author == "" {
		author = e.clean(lua.MetaContent(doc.Selection, "author"))
	}

	return &types.ExtractedContent{
		URL:         rawURL,
		Title:       title,
		Text:        text,
		Author:      author,
		PublishedAt: publishedFromMeta(doc),
		WordCount:   countWords(text),
		ContentType: contentTypeFor(platform),
		Platform:    platform,
		Status:      types.ExtractionSuccess,
	}
}

func (e *ContentExtractor) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
}

// plain strips markup from text that came from a page.
func (e *ContentExtractor) plain(s string) string {
	return html.UnescapeString(e.strict.Sanitize(s))
}

func (e *ContentExtractor) clean(s string) string {
	return strings.Join(strings.Fields(e.plain(s)), " ")
}

func publishedFromMeta(doc *goquery.Document) *time.Time {
	for _, key := range []string{"article:published_time", "og:published_time", "date", "pubdate"} {
		v := lua.MetaContent(doc.Selection, key)
		if v == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}
	return nil
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func failedExtraction(rawURL, platform, msg string) *types.ExtractedContent {
	return &types.ExtractedContent{
		URL:         rawURL,
		Platform:    platform,
		ContentType: contentTypeFor(platform),
		Status:      types.ExtractionFailed,
		Error:       msg,
	}
}
