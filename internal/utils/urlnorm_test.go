package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"www and trailing slash", "http://www.example.com/a/", "https://example.com/a"},
		{"already canonical", "https://example.com/a", "https://example.com/a"},
		{"root path kept", "https://example.com/", "https://example.com/"},
		{"empty path is root", "https://example.com", "https://example.com/"},
		{"empty path after tracking removal", "http://www.example.com?utm_source=x", "https://example.com/"},
		{"default https port", "https://example.com:443/a", "https://example.com/a"},
		{"default http port", "http://example.com:80/a", "https://example.com/a"},
		{"other port kept", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"fragment dropped", "https://example.com/a#section", "https://example.com/a"},
		{"tracking params", "https://example.com/a?utm_source=x&id=3&fbclid=y", "https://example.com/a?id=3"},
		{"only tracking params", "https://example.com/a?utm_medium=email", "https://example.com/a"},
		{"bare question mark", "https://example.com/a?", "https://example.com/a"},
		{"old reddit", "https://old.reddit.com/r/golang/comments/1/", "https://reddit.com/r/golang/comments/1"},
		{"uppercase host", "https://EXAMPLE.com/Path", "https://example.com/Path"},
		{"x share params", "https://x.com/user/status/1?s=20&t=abc", "https://x.com/user/status/1"},
		{"s kept elsewhere", "https://example.com/search?s=go", "https://example.com/search?s=go"},
		{"param order kept", "https://example.com/?b=2&a=1", "https://example.com/?b=2&a=1"},
		{"unparsable", "::not a url", "::not a url"},
		{"relative", "/just/a/path", "/just/a/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	for _, in := range []string{
		"http://www.example.com/a/?utm_source=x#top",
		"https://old.reddit.com/r/go/",
		"https://example.com/?q=1",
		"https://www.example.com:443",
	} {
		once := NormalizeURL(in)
		assert.Equal(t, once, NormalizeURL(once), in)
	}
}

func TestSameURL(t *testing.T) {
	assert.True(t, SameURL("http://www.example.com/a/", "https://example.com/a"))
	assert.False(t, SameURL("https://example.com/a", "https://example.com/b"))
	assert.True(t, SameURL("https://example.com", "https://example.com/"))
	assert.True(t, SameURL("http://www.example.com?utm_source=x", "https://example.com/"))
	assert.True(t, SameURL("https://example.com:443/a", "https://example.com/a"))
	assert.False(t, SameURL("https://example.com:8443/a", "https://example.com/a"))
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "example.com/a/b", SearchQuery("http://www.example.com/a/b/?utm_source=x"))
	assert.Equal(t, "example.com", SearchQuery("https://example.com/"))
	assert.Equal(t, "garbage", SearchQuery("garbage"))
}
