package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Body    OPMLBody `xml:"body"`
}

type OPMLBody struct {
	Outlines []OPMLOutline `xml:"outline"`
}

type OPMLOutline struct {
	Title    string        `xml:"title,attr"`
	Text     string        `xml:"text,attr"`
	Type     string        `xml:"type,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Outlines []OPMLOutline `xml:"outline"`
}

type Feed struct {
	URL  string
	Name string
}

// ParseOPML flattens nested outlines into the feeds they subscribe to, in
// document order.
func ParseOPML(data []byte) ([]Feed, error) {
	var opml OPML
	if err := xml.Unmarshal(data, &opml); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	var feeds []Feed
	extractFeeds(&feeds, opml.Body.Outlines)

	return feeds, nil
}

func extractFeeds(result *[]Feed, outlines []OPMLOutline) {
	for _, outline := range outlines {
		if outline.XMLURL != "" {
			name := cmpOr(outline.Title, outline.Text, outline.XMLURL)
			*result = append(*result, Feed{
				URL:  strings.TrimSpace(outline.XMLURL),
				Name: name,
			})
		}

		if len(outline.Outlines) > 0 {
			extractFeeds(result, outline.Outlines)
		}
	}
}

func cmpOr(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func LoadOPMLFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML file: %w", err)
	}
	return data, nil
}

func FetchOPML(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build OPML request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OPML: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch OPML: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML response: %w", err)
	}

	return data, nil
}
