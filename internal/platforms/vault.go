package platforms

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"linkvault/internal/cache"
	"linkvault/internal/config"
	"linkvault/internal/types"
)

// VaultClient talks to the note vault's REST API.
type VaultClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	reads   *cache.Cache[string, string]
	logger  *slog.Logger
}

func NewVaultClient(cfg config.VaultConfig, logger *slog.Logger) *VaultClient {
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 10
	}

	return &VaultClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		timeout: config.ParseDuration(cfg.Timeout, 10*time.Second),
		client:  &http.Client{Transport: transport},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		reads: cache.NewCache[string, string](cache.CacheConfig{
			TTL:    config.ParseDuration(cfg.ReadCacheTTL, 5*time.Minute),
			Logger: logger,
		}, cache.StringKey),
		logger: logger,
	}
}

func (c *VaultClient) ListFolders(ctx context.Context) ([]string, error) {
	var resp struct {
		Folders []string `json:"folders"`
	}
	if err := c.getJSON(ctx, "/folders", &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

func (c *VaultClient) ListTags(ctx context.Context) ([]string, error) {
	var resp struct {
		Tags []string `json:"tags"`
	}
	if err := c.getJSON(ctx, "/tags", &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

func (c *VaultClient) SampleNotes(ctx context.Context, folder string, limit int) ([]types.NoteSample, error) {
	var resp struct {
		Notes []types.NoteSample `json:"notes"`
	}
	endpoint := "/folders/" + escapePath(folder) + "/notes?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Notes {
		if resp.Notes[i].Folder == "" {
			resp.Notes[i].Folder = folder
		}
	}
	return resp.Notes, nil
}

func (c *VaultClient) SearchNotes(ctx context.Context, query string) ([]string, error) {
	var resp struct {
		Results []struct {
			Path string `json:"path"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "/search?q="+url.QueryEscape(query), &resp); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		paths = append(paths, r.Path)
	}
	return paths, nil
}

func (c *VaultClient) ReadNote(ctx context.Context, path string) (string, error) {
	if content, ok := c.reads.Get(path); ok {
		return content, nil
	}

	body, err := c.do(ctx, http.MethodGet, noteEndpoint(path), nil)
	if err != nil {
		return "", err
	}
	content := string(body)
	c.reads.Set(path, content)
	return content, nil
}

func (c *VaultClient) NoteExists(ctx context.Context, path string) (bool, error) {
	_, err := c.do(ctx, http.MethodHead, noteEndpoint(path), nil)
	if err == nil {
		return true, nil
	}
	if types.IsVaultNotFound(err) {
		return false, nil
	}
	return false, err
}

func (c *VaultClient) CreateNote(ctx context.Context, path, content string) error {
	defer c.reads.InvalidateKey(path)
	_, err := c.do(ctx, http.MethodPut, noteEndpoint(path), []byte(content))
	if err == nil {
		c.logger.Debug("Note created", "path", path)
	}
	return err
}

func (c *VaultClient) AppendToNote(ctx context.Context, path, content string) error {
	defer c.reads.InvalidateKey(path)
	_, err := c.do(ctx, http.MethodPost, noteEndpoint(path), []byte(content))
	return err
}

func (c *VaultClient) getJSON(ctx context.Context, endpoint string, out any) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &types.VaultError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *VaultClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.VaultError{Endpoint: endpoint, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, &types.VaultError{Endpoint: endpoint, Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "text/markdown")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &types.VaultError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.VaultError{StatusCode: resp.StatusCode, Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail error
		if msg := strings.TrimSpace(string(data)); msg != "" {
			detail = errors.New(truncate(msg, 200))
		}
		return nil, &types.VaultError{StatusCode: resp.StatusCode, Endpoint: endpoint, Err: detail}
	}

	return data, nil
}

func noteEndpoint(path string) string {
	return "/notes/" + escapePath(path)
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
