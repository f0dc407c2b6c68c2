package core

import (
	"context"
	"fmt"
	"log/slog"

	"linkvault/internal/cache"
	"linkvault/internal/config"
	"linkvault/internal/processors"
	"linkvault/internal/types"
	"linkvault/internal/utils"
)

const DefaultConcurrency = 5

// StoreFactory builds the note store client for a batch.
type StoreFactory func(cfg config.VaultConfig) (types.NoteStore, error)

// BatchProcessor runs a batch of URLs to their results.
type BatchProcessor interface {
	ProcessURLs(ctx context.Context, urls []string, batch config.BatchConfig, provider types.Provider, opts ...Option) ([]types.ProcessingResult, error)
}

type runOptions struct {
	progress  ProgressReporter
	extractor types.Extractor
	cancelled func() bool
}

type Option func(*runOptions)

func WithProgress(p ProgressReporter) Option {
	return func(o *runOptions) {
		o.progress = p
	}
}

// WithExtractor replaces the orchestrator's default extractor for one run.
func WithExtractor(e types.Extractor) Option {
	return func(o *runOptions) {
		o.extractor = e
	}
}

// WithCancel installs a predicate polled at every stage boundary. It is
// separate from ctx so that calls already in flight can finish.
func WithCancel(fn func() bool) Option {
	return func(o *runOptions) {
		o.cancelled = fn
	}
}

type Orchestrator struct {
	vaultCfg  config.VaultConfig
	newStore  StoreFactory
	contexts  *cache.VaultContextCache
	extractor types.Extractor
	dedupe    *processors.DuplicateDetector
	formatter *processors.NoteFormatter
	logger    *slog.Logger
}

type OrchestratorConfig struct {
	Vault     config.VaultConfig
	NewStore  StoreFactory
	Contexts  *cache.VaultContextCache
	Extractor types.Extractor
	Logger    *slog.Logger
}

func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.NewStore == nil {
		return nil, fmt.Errorf("store factory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Contexts == nil {
		cfg.Contexts = cache.NewVaultContextCache(
			config.ParseDuration(cfg.Vault.ContextTTL, cache.DefaultContextTTL),
			cache.WithLogger(cfg.Logger),
		)
	}

	formatter, err := processors.NewNoteFormatter(cfg.Vault.NoteTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to load note template: %w", err)
	}

	return &Orchestrator{
		vaultCfg:  cfg.Vault,
		newStore:  cfg.NewStore,
		contexts:  cfg.Contexts,
		extractor: cfg.Extractor,
		dedupe:    processors.NewDuplicateDetector(cfg.Logger),
		formatter: formatter,
		logger:    cfg.Logger,
	}, nil
}

// Contexts exposes the vault context cache so callers can invalidate it.
func (o *Orchestrator) Contexts() *cache.VaultContextCache {
	return o.contexts
}

// ProcessURLs runs every URL through the pipeline and returns one result per
// URL in input order. An error means the batch could not start at all.
func (o *Orchestrator) ProcessURLs(ctx context.Context, urls []string, batch config.BatchConfig, provider types.Provider, opts ...Option) ([]types.ProcessingResult, error) {
	options := runOptions{progress: nopProgress{}, extractor: o.extractor}
	for _, opt := range opts {
		opt(&options)
	}
	if options.extractor == nil {
		return nil, fmt.Errorf("no extractor configured")
	}
	if provider == nil {
		return nil, fmt.Errorf("no AI provider configured")
	}

	store, err := o.newStore(o.vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create note store: %w", err)
	}

	cached, err := o.contexts.Get(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault context: %w", err)
	}
	vault := cached.WithBatch(batch.TagGroups, types.Organization(batch.Organization))

	concurrency := batch.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	p := &pipeline{
		store:      store,
		extractor:  options.extractor,
		provider:   provider,
		vault:      vault,
		hubs:       NewHubTagSet(),
		dedupe:     o.dedupe,
		formatter:  o.formatter,
		progress:   options.progress,
		isCanceled: options.cancelled,
		hubFolder:  o.vaultCfg.HubFolder,
		minWords:   batch.MinWords,
		logger:     o.logger,
	}
	observer, _ := options.progress.(ResultObserver)

	o.logger.Info("Starting batch", "urls", len(urls), "concurrency", concurrency,
		"folders", len(vault.Folders), "organization", vault.Organization)

	// Claims are taken in input order so the earliest copy of a repeated
	// link is the one that gets processed.
	inflight := NewInflightSet()
	claims := make([]*InflightClaim, len(urls))
	owners := make([]bool, len(urls))
	for i, u := range urls {
		claims[i], owners[i] = inflight.Claim(utils.NormalizeURL(u))
	}

	results := RunPool(ctx, urls, concurrency, func(ctx context.Context, i int, u string) types.ProcessingResult {
		r := p.process(ctx, u, claims[i], owners[i])
		if observer != nil {
			observer.Completed(i, r)
		}
		return r
	})

	o.logger.Info("Batch finished", "urls", len(urls), "hubs", p.hubs.Len())
	return results, nil
}
