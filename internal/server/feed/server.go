package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"linkvault/internal/cache"
	"linkvault/internal/storage"
	"linkvault/internal/template"
	"linkvault/internal/types"
)

type Config struct {
	Port     string
	FeedSize int
	Title    string
}

type Server struct {
	config  Config
	history storage.HistoryStore
	states  storage.StateStore
	cache   *cache.Cache[string, string]
	status  *template.Template
	logger  *slog.Logger
	now     func() time.Time
	server  *http.Server
}

func New(config Config, history storage.HistoryStore, states storage.StateStore, logger *slog.Logger) (*Server, error) {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.FeedSize <= 0 || config.FeedSize > storage.MaxHistory {
		config.FeedSize = storage.MaxHistory
	}
	if config.Title == "" {
		config.Title = "Linkvault"
	}
	if logger == nil {
		logger = slog.Default()
	}

	status, err := template.New("status", statusPage, template.HtmlTemplate, nil)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:  config,
		history: history,
		states:  states,
		cache:   NewCache(),
		status:  status,
		logger:  logger.With("component", "feed_server"),
		now:     time.Now,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("GET /feed.rss", s.feedHandler(TypeRSS))
	mux.HandleFunc("GET /feed.atom", s.feedHandler(TypeAtom))
	mux.HandleFunc("GET /feed.json", s.feedHandler(TypeJSON))
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start binds the port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.config.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.config.Port, err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Feed server stopped", "error", err)
		}
	}()

	s.logger.Info("Feed server listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// NotifyBatch drops rendered feeds so the next request sees the new batch.
func (s *Server) NotifyBatch(ctx context.Context, state *types.ProcessingState) error {
	s.cache.Clear()
	return nil
}

var contentTypes = map[string]string{
	TypeRSS:  "application/rss+xml; charset=utf-8",
	TypeAtom: "application/atom+xml; charset=utf-8",
	TypeJSON: "application/feed+json; charset=utf-8",
}

func (s *Server) feedHandler(feedType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.render(r.Context(), feedType)
		if err != nil {
			s.logger.Error("Failed to render feed", "type", feedType, "error", err)
			http.Error(w, "failed to render feed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypes[feedType])
		w.Header().Set("Cache-Control", "public, max-age=60")
		fmt.Fprint(w, body)
	}
}

func (s *Server) render(ctx context.Context, feedType string) (string, error) {
	if body, ok := s.cache.Get(feedType); ok {
		return body, nil
	}

	entries, err := s.history.List(ctx, s.config.FeedSize)
	if err != nil {
		return "", fmt.Errorf("failed to list history: %w", err)
	}

	feed := s.buildFeed(entries)
	var body string
	switch feedType {
	case TypeRSS:
		body, err = feed.ToRss()
	case TypeAtom:
		body, err = feed.ToAtom()
	case TypeJSON:
		body, err = feed.ToJSON()
	default:
		err = fmt.Errorf("unknown feed type %q", feedType)
	}
	if err != nil {
		return "", err
	}

	s.cache.Set(feedType, body)
	return body, nil
}

func (s *Server) buildFeed(entries []types.HistoryEntry) *feeds.Feed {
	items := make([]*feeds.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entryItem(entry))
	}

	updated := s.now().UTC()
	if len(entries) > 0 {
		updated = entries[0].CompletedAt
	}

	return &feeds.Feed{
		Title:       s.config.Title,
		Link:        &feeds.Link{Href: "http://localhost:" + s.config.Port + "/"},
		Description: "Links recently processed into the vault",
		Author:      &feeds.Author{Name: s.config.Title},
		Created:     updated,
		Items:       items,
	}
}

func entryItem(entry types.HistoryEntry) *feeds.Item {
	res := entry.Result
	item := &feeds.Item{
		Id:      entry.ID,
		Title:   res.URL,
		Link:    &feeds.Link{Href: res.URL},
		Created: entry.CompletedAt,
	}

	switch res.Status {
	case types.ResultSuccess, types.ResultReview:
		if res.Note != nil {
			item.Title = res.Note.Title
			item.Description = res.Note.Summary
			item.Content = strings.Join(res.Note.KeyTakeaways, "\n")
		}
		if res.NotePath != "" {
			item.Description = strings.TrimSpace(item.Description + "\n\nSaved to " + res.NotePath)
		}
		if res.Status == types.ResultReview {
			item.Title = "[review] " + item.Title
		}
	case types.ResultSkipped:
		item.Title = "[skipped] " + item.Title
		item.Description = res.SkipReason
	default:
		item.Title = "[failed] " + item.Title
		item.Description = res.Error
		if res.ErrorMeta != nil {
			item.Description = res.ErrorMeta.Message + "\n\n" + res.Error
		}
	}
	return item
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.states.GetCurrent(r.Context())
	if err != nil {
		s.logger.Error("Failed to read batch state", "error", err)
		http.Error(w, "failed to read state", http.StatusInternalServerError)
		return
	}
	if state == nil {
		http.Error(w, "no batch has run yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		s.logger.Warn("Failed to write state", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"name":   s.config.Title,
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

type statusView struct {
	Title   string
	State   *types.ProcessingState
	Counts  map[types.URLStatus]int
	Entries []types.HistoryEntry
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.states.GetCurrent(r.Context())
	if err != nil {
		s.logger.Warn("Failed to read batch state", "error", err)
	}
	entries, err := s.history.List(r.Context(), 20)
	if err != nil {
		s.logger.Warn("Failed to list history", "error", err)
	}

	view := statusView{Title: s.config.Title, State: state, Entries: entries}
	if state != nil {
		view.Counts = state.Counts()
	}

	page, err := s.status.Render(view)
	if err != nil {
		s.logger.Error("Failed to render status page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

const statusPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>{{ .Title }}</title>
<link rel="alternate" type="application/rss+xml" href="/feed.rss"></head>
<body>
<h1>{{ .Title }}</h1>
{{ with .State }}
<p>Batch {{ .BatchID }} started {{ date "2006-01-02 15:04" .StartedAt }}{{ if .Active }} (running){{ end }}{{ if .Cancelled }} (cancelled){{ end }}</p>
{{ if .Error }}<p><strong>{{ .Error }}</strong></p>{{ end }}
<ul>{{ range $status, $n := $.Counts }}<li>{{ $status }}: {{ $n }}</li>{{ end }}</ul>
{{ else }}
<p>No batch has run yet.</p>
{{ end }}
<h2>Recent links</h2>
<ul>
{{ range .Entries }}<li>{{ .Result.Status }} <a href="{{ .Result.URL }}">{{ .Result.URL }}</a>{{ with .Result.NotePath }} &rarr; {{ . }}{{ end }}</li>
{{ end }}
</ul>
</body></html>
`
