package utils

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that never change what a page shows.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"utm_id":       true,
	"utm_name":     true,
	"fbclid":       true,
	"gclid":        true,
	"dclid":        true,
	"msclkid":      true,
	"yclid":        true,
	"mc_cid":       true,
	"mc_eid":       true,
	"igshid":       true,
	"_hsenc":       true,
	"_hsmi":        true,
	"ref":          true,
	"ref_src":      true,
	"ref_url":      true,
	"spm":          true,
	"si":           true,
}

// mirrorHosts maps alternate front-ends of a site to its canonical host.
var mirrorHosts = map[string]string{
	"old.reddit.com":     "reddit.com",
	"np.reddit.com":      "reddit.com",
	"m.reddit.com":       "reddit.com",
	"mobile.twitter.com": "twitter.com",
	"m.youtube.com":      "youtube.com",
}

// hostTrackingParams are only tracking noise on the listed hosts.
var hostTrackingParams = map[string]map[string]bool{
	"twitter.com": {"s": true, "t": true},
	"x.com":       {"s": true, "t": true},
}

// NormalizeURL returns the canonical form of raw used for equality checks.
// Input that does not parse as an absolute URL is returned unchanged.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	u.Scheme = "https"

	host := strings.ToLower(u.Host)
	if port := u.Port(); (port == "443" && scheme == "https") || (port == "80" && scheme == "http") {
		host = strings.TrimSuffix(host, ":"+port)
	}
	host = strings.TrimPrefix(host, "www.")
	if canonical, ok := mirrorHosts[host]; ok {
		host = canonical
	}
	u.Host = host

	if u.RawQuery != "" {
		u.RawQuery = stripTracking(u.RawQuery, hostTrackingParams[host])
	}
	u.ForceQuery = false

	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		if u.RawPath != "" {
			u.RawPath = strings.TrimSuffix(u.RawPath, "/")
		}
	}

	return strings.TrimSuffix(u.String(), "?")
}

// stripTracking drops deny-listed parameters while keeping the order and
// encoding of everything else.
func stripTracking(rawQuery string, extra map[string]bool) string {
	parts := strings.Split(rawQuery, "&")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		name := part
		if i := strings.IndexByte(part, '='); i >= 0 {
			name = part[:i]
		}
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		name = strings.ToLower(name)
		if trackingParams[name] || extra[name] {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}

// SameURL reports whether a and b normalize to the same string.
func SameURL(a, b string) bool {
	return NormalizeURL(a) == NormalizeURL(b)
}

// SearchQuery builds a note-store search string from the host and path of a
// URL, which avoids characters the search syntax treats specially.
func SearchQuery(raw string) string {
	normalized := NormalizeURL(raw)
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return normalized
	}
	if u.Path == "" || u.Path == "/" {
		return u.Host
	}
	return u.Host + u.Path
}
