package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"linkvault/internal/classify"
	"linkvault/internal/config"
	"linkvault/internal/storage"
	"linkvault/internal/types"
	"linkvault/internal/utils"
)

var (
	ErrBatchRunning   = errors.New("batch already running")
	ErrNothingToRetry = errors.New("no retryable failures in the last batch")
)

// Notifier is told about every finished batch.
type Notifier interface {
	NotifyBatch(ctx context.Context, state *types.ProcessingState) error
}

// Notifiers fans a finished batch out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) NotifyBatch(ctx context.Context, state *types.ProcessingState) error {
	var errs []error
	for _, n := range ns {
		if err := n.NotifyBatch(ctx, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Runner owns the observable state of one batch at a time: it seeds it,
// applies progress, persists snapshots, and always finalizes it.
type Runner struct {
	processor BatchProcessor
	provider  types.Provider
	batch     config.BatchConfig
	states    storage.StateStore
	history   storage.HistoryStore
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	state   *types.ProcessingState
	running bool

	persistMu sync.Mutex
	cancelled atomic.Bool
	observer  atomic.Pointer[ProgressReporter]
}

type RunnerConfig struct {
	Processor BatchProcessor
	Provider  types.Provider
	Batch     config.BatchConfig
	States    storage.StateStore
	History   storage.HistoryStore
	Notifier  Notifier
	Logger    *slog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		processor: cfg.Processor,
		provider:  cfg.Provider,
		batch:     cfg.Batch,
		states:    cfg.States,
		history:   cfg.History,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run processes urls as one batch. The returned state always holds exactly
// one result per URL, also when the batch failed as a whole; the error is
// that batch-level failure.
func (r *Runner) Run(ctx context.Context, urls []string) (final *types.ProcessingState, runErr error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrBatchRunning
	}
	r.running = true
	r.cancelled.Store(false)

	state := &types.ProcessingState{
		BatchID:     r.newID(),
		Active:      true,
		URLs:        append([]string(nil), urls...),
		Results:     []types.ProcessingResult{},
		URLStatuses: make(map[string]types.URLStatus, len(urls)),
		StartedAt:   r.now(),
	}
	for _, u := range urls {
		state.URLStatuses[u] = types.StatusQueued
	}
	r.state = state
	r.mu.Unlock()

	logger := r.logger.With("batch_id", state.BatchID)
	logger.Info("Batch started", "urls", len(urls))
	r.persist(ctx)

	var results []types.ProcessingResult
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Batch panicked", "panic", rec)
			runErr = fmt.Errorf("batch panicked: %v", rec)
		}
		final = r.finalize(context.WithoutCancel(ctx), results, runErr)
		logger.Info("Batch completed", "cancelled", final.Cancelled, "error", final.Error, "counts", final.Counts())
	}()

	results, runErr = r.processor.ProcessURLs(ctx, urls, r.batchConfig(), r.provider,
		WithProgress(r),
		WithCancel(r.cancelled.Load),
	)
	return nil, runErr
}

// SetBatchConfig replaces the settings used by the next batch.
func (r *Runner) SetBatchConfig(batch config.BatchConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = batch
}

func (r *Runner) batchConfig() config.BatchConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batch
}

// Observe forwards every later stage transition to p as well. A nil p
// stops forwarding.
func (r *Runner) Observe(p ProgressReporter) {
	if p == nil {
		r.observer.Store(nil)
		return
	}
	r.observer.Store(&p)
}

// Progress records a stage transition and persists the snapshot.
func (r *Runner) Progress(url string, status types.URLStatus) {
	r.mu.Lock()
	if r.state != nil && r.state.Active {
		r.state.URLStatuses[url] = status
	}
	r.mu.Unlock()
	r.persist(context.Background())

	if p := r.observer.Load(); p != nil {
		(*p).Progress(url, status)
	}
}

// Completed appends a finished result to the live snapshot.
func (r *Runner) Completed(index int, result types.ProcessingResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != nil && r.state.Active {
		r.state.Results = append(r.state.Results, result)
	}
}

// Cancel asks the running batch to stop at the next stage boundary.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return false
	}
	r.cancelled.Store(true)
	r.logger.Info("Batch cancellation requested", "batch_id", r.state.BatchID)
	return true
}

// State returns a copy of the current or last batch snapshot, falling back
// to persisted state from an earlier process.
func (r *Runner) State(ctx context.Context) (*types.ProcessingState, error) {
	r.mu.Lock()
	state := r.state.Clone()
	r.mu.Unlock()
	if state != nil || r.states == nil {
		return state, nil
	}
	return r.states.GetCurrent(ctx)
}

// History lists recent results, newest first.
func (r *Runner) History(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if r.history == nil {
		return nil, nil
	}
	return r.history.List(ctx, limit)
}

// RetryFailed runs the retryable failures of the last batch again.
func (r *Runner) RetryFailed(ctx context.Context) (*types.ProcessingState, error) {
	last, err := r.State(ctx)
	if err != nil {
		return nil, err
	}
	urls := RetryableURLs(last)
	if len(urls) == 0 {
		return nil, ErrNothingToRetry
	}
	return r.Run(ctx, urls)
}

// RetryableURLs lists the failed URLs of state whose failure policy allows a
// retry, keeping input order.
func RetryableURLs(state *types.ProcessingState) []string {
	if state == nil {
		return nil
	}
	retryable := utils.FilterArray(state.Results, func(res types.ProcessingResult) bool {
		if res.Status != types.ResultFailed {
			return false
		}
		if res.ErrorMeta != nil {
			return res.ErrorMeta.IsRetryable
		}
		return classify.BuildErrorMetadata(res.ErrorCategory, res.Error).IsRetryable
	})
	if len(retryable) == 0 {
		return nil
	}
	urls := make([]string, len(retryable))
	for i, res := range retryable {
		urls[i] = res.URL
	}
	return urls
}

func (r *Runner) finalize(ctx context.Context, results []types.ProcessingResult, runErr error) *types.ProcessingState {
	r.mu.Lock()
	state := r.state

	ordered := make([]types.ProcessingResult, len(state.URLs))
	for i, u := range state.URLs {
		if i < len(results) && results[i].URL != "" {
			ordered[i] = results[i]
			continue
		}
		err := runErr
		if err == nil {
			err = errors.New("batch ended before this link was processed")
		}
		ordered[i] = failedResult(u, err, nil)
	}

	for _, res := range ordered {
		state.URLStatuses[res.URL] = res.TerminalStatus()
	}
	state.Results = ordered
	state.Active = false
	finished := r.now()
	state.FinishedAt = &finished
	state.Cancelled = r.cancelled.Load()
	if runErr != nil {
		state.Error = runErr.Error()
	}

	final := state.Clone()
	r.running = false
	r.mu.Unlock()

	r.persist(ctx)
	r.recordHistory(ctx, final)
	r.notify(ctx, final)
	return final
}

// persist writes the latest snapshot. Writes are serialized so an older
// snapshot never lands after a newer one.
func (r *Runner) persist(ctx context.Context) {
	if r.states == nil {
		return
	}
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	snapshot := r.state.Clone()
	r.mu.Unlock()

	if err := r.states.SetCurrent(ctx, snapshot); err != nil {
		r.logger.Warn("Failed to persist batch state", "batch_id", snapshot.BatchID, "error", err)
	}
}

func (r *Runner) recordHistory(ctx context.Context, state *types.ProcessingState) {
	if r.history == nil || len(state.Results) == 0 {
		return
	}
	completed := r.now()
	entries := make([]types.HistoryEntry, 0, len(state.Results))
	for _, res := range state.Results {
		entries = append(entries, types.HistoryEntry{
			ID:          r.newID(),
			BatchID:     state.BatchID,
			Result:      res,
			CompletedAt: completed,
		})
	}
	if err := r.history.Append(ctx, entries...); err != nil {
		r.logger.Warn("Failed to record history", "batch_id", state.BatchID, "error", err)
	}
}

func (r *Runner) notify(ctx context.Context, state *types.ProcessingState) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyBatch(ctx, state); err != nil {
		r.logger.Warn("Failed to send batch notification", "batch_id", state.BatchID, "error", err)
	}
}
