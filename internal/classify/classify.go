package classify

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"linkvault/internal/types"
)

// Hint carries facts known by the caller that the error value may not.
type Hint struct {
	StatusCode int
	Category   types.ErrorCategory
}

var statusInMessage = regexp.MustCompile(`(?i)\b(?:http|status(?:\s+code)?)\s*:?\s*([1-5]\d\d)\b`)

type pattern struct {
	category types.ErrorCategory
	keywords []string
}

// patterns are tried in order against the lowercased error text.
var patterns = []pattern{
	{types.ErrTimeout, []string{"timeout", "timed out", "deadline exceeded", "aborted", "abort"}},
	{types.ErrNetwork, []string{
		"failed to fetch", "network", "connection refused", "connection reset",
		"no such host", "dns", "econnrefused", "enotfound", "tls", "certificate",
		"x509", "unreachable",
	}},
	{types.ErrBotProtection, []string{
		"captcha", "access denied", "cloudflare", "akamai", "datadome",
		"perimeterx", "incapsula", "are you a robot", "bot detection", "just a moment",
	}},
	{types.ErrLoginRequired, []string{
		"sign in", "sign-in", "log in to", "login required", "authentication required",
		"login wall",
	}},
	{types.ErrExtraction, []string{
		"parse", "parsing", "readability", "empty content", "no content",
		"not html", "non-html", "content-type", "content type",
	}},
	{types.ErrLLM, []string{
		"anthropic", "openai", "ollama", "claude", "llm", "overloaded",
		"context length", "max_tokens", "completion",
	}},
	{types.ErrVault, []string{"vault", "obsidian", "rest api"}},
}

// Classify maps err to an error category. The first rule that matches wins:
// explicit status codes, typed errors, a status code in the message, then
// keyword patterns.
func Classify(err error, hint *Hint) types.ErrorCategory {
	if hint != nil {
		if hint.Category != "" {
			return hint.Category
		}
		if c, ok := fromStatus(hint.StatusCode); ok {
			return c
		}
	}
	if err == nil {
		return types.ErrUnknown
	}

	var httpErr *types.HTTPError
	if errors.As(err, &httpErr) {
		if c, ok := fromStatus(httpErr.StatusCode); ok {
			return c
		}
	}
	var vaultErr *types.VaultError
	if errors.As(err, &vaultErr) {
		return types.ErrVault
	}
	if types.IsProcessingError(err) {
		return types.ErrLLM
	}

	msg := err.Error()
	if m := statusInMessage.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		if c, ok := fromStatus(code); ok {
			return c
		}
	}

	if c, ok := fromErrorChain(err); ok {
		return c
	}

	lower := strings.ToLower(msg)
	for _, p := range patterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.category
			}
		}
	}
	return types.ErrUnknown
}

func fromStatus(code int) (types.ErrorCategory, bool) {
	switch {
	case code == 401, code == 403:
		return types.ErrLoginRequired, true
	case code == 404, code == 410:
		return types.ErrPageNotFound, true
	case code >= 500 && code <= 599:
		return types.ErrPageNotFound, true
	}
	return "", false
}

func fromErrorChain(err error) (types.ErrorCategory, bool) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return types.ErrTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.ErrTimeout, true
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var certErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) ||
		errors.As(err, &certErr) || errors.As(err, &hostErr) {
		return types.ErrNetwork, true
	}
	return "", false
}

type policy struct {
	retryable bool
	action    types.SuggestedAction
	message   string
}

var policies = map[types.ErrorCategory]policy{
	types.ErrNetwork:       {true, types.ActionRetry, "Could not reach the site. Check your connection and try again."},
	types.ErrTimeout:       {true, types.ActionRetry, "The request took too long to complete."},
	types.ErrExtraction:    {true, types.ActionRetry, "Could not extract readable content from the page."},
	types.ErrUnknown:       {true, types.ActionRetry, "Something went wrong while processing this link."},
	types.ErrLLM:           {true, types.ActionSettings, "The AI provider rejected the request. Check the AI settings."},
	types.ErrVault:         {true, types.ActionSettings, "Could not write to the vault. Check the vault connection settings."},
	types.ErrLoginRequired: {false, types.ActionOpen, "This page requires you to sign in. Open it in a browser instead."},
	types.ErrBotProtection: {false, types.ActionOpen, "The site blocked automated access. Open it in a browser instead."},
	types.ErrPageNotFound:  {false, types.ActionSkip, "The page no longer exists."},
}

var now = time.Now

// BuildErrorMetadata applies the retry/action policy for category.
func BuildErrorMetadata(category types.ErrorCategory, technicalDetails string) types.ErrorMetadata {
	p, ok := policies[category]
	if !ok {
		category = types.ErrUnknown
		p = policies[types.ErrUnknown]
	}
	return types.ErrorMetadata{
		Category:         category,
		TechnicalDetails: technicalDetails,
		IsRetryable:      p.retryable,
		SuggestedAction:  p.action,
		Message:          p.message,
		Timestamp:        now(),
	}
}

// Describe classifies err and builds its metadata in one step.
func Describe(err error, hint *Hint) types.ErrorMetadata {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return BuildErrorMetadata(Classify(err, hint), details)
}
