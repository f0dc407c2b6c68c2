package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkvault/internal/config"
	"linkvault/internal/storage"
	"linkvault/internal/types"
)

type processorFunc func(ctx context.Context, urls []string, opts ...Option) ([]types.ProcessingResult, error)

func (f processorFunc) ProcessURLs(ctx context.Context, urls []string, batch config.BatchConfig, provider types.Provider, opts ...Option) ([]types.ProcessingResult, error) {
	return f(ctx, urls, opts...)
}

type fakeNotifier struct {
	mu     sync.Mutex
	states []*types.ProcessingState
	err    error
}

func (n *fakeNotifier) NotifyBatch(ctx context.Context, state *types.ProcessingState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
	return n.err
}

func newTestRunner(p BatchProcessor, store *storage.MemoryStorage, notifier Notifier) *Runner {
	cfg := RunnerConfig{
		Processor: p,
		Provider:  &fakeProvider{},
		States:    store.State(),
		History:   store.History(),
	}
	if notifier != nil {
		cfg.Notifier = notifier
	}
	return NewRunner(cfg)
}

func TestRunnerPersistsAndRecordsHistory(t *testing.T) {
	store := storage.NewMemoryStorage()
	notifier := &fakeNotifier{}

	vault := newTestStore()
	o := newTestOrchestrator(t, vault, pageExtractor(200))
	r := newTestRunner(o, store, notifier)

	urls := []string{"https://example.com/a", "https://bad.example/b"}
	state, err := r.Run(t.Context(), urls)
	require.NoError(t, err)

	require.Len(t, state.Results, 2)
	assert.False(t, state.Active)
	assert.NotEmpty(t, state.BatchID)
	assert.NotNil(t, state.FinishedAt)
	assert.Equal(t, types.StatusDone, state.URLStatuses[urls[0]])
	assert.Equal(t, types.StatusFailed, state.URLStatuses[urls[1]])

	persisted, err := store.State().GetCurrent(t.Context())
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, state.BatchID, persisted.BatchID)
	assert.False(t, persisted.Active)

	history, err := r.History(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, h := range history {
		assert.Equal(t, state.BatchID, h.BatchID)
		assert.NotEmpty(t, h.ID)
	}

	require.Len(t, notifier.states, 1)
	assert.Equal(t, state.BatchID, notifier.states[0].BatchID)
}

func TestRunnerFillsResultsWhenBatchFails(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := processorFunc(func(ctx context.Context, urls []string, opts ...Option) ([]types.ProcessingResult, error) {
		return nil, errors.New("failed to load vault context: vault /folders: connection refused")
	})
	r := newTestRunner(p, store, nil)

	urls := []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}
	state, err := r.Run(t.Context(), urls)
	require.Error(t, err)
	require.NotNil(t, state)

	require.Len(t, state.Results, len(urls))
	for i, res := range state.Results {
		assert.Equal(t, urls[i], res.URL)
		assert.Equal(t, types.ResultFailed, res.Status)
		assert.Equal(t, types.ErrNetwork, res.ErrorCategory)
		assert.Equal(t, types.StatusFailed, state.URLStatuses[urls[i]])
	}
	assert.Contains(t, state.Error, "vault context")
	assert.False(t, state.Active)
}

func TestRunnerRecoversFromPanickingProcessor(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := processorFunc(func(ctx context.Context, urls []string, opts ...Option) ([]types.ProcessingResult, error) {
		panic("boom")
	})
	r := newTestRunner(p, store, nil)

	state, err := r.Run(t.Context(), []string{"https://example.com/1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	require.Len(t, state.Results, 1)
	assert.Equal(t, types.ResultFailed, state.Results[0].Status)

	// The runner is usable again.
	_, err = r.Run(t.Context(), []string{"https://example.com/2"})
	assert.NotErrorIs(t, err, ErrBatchRunning)
}

func TestRunnerFillsMissingResults(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := processorFunc(func(ctx context.Context, urls []string, opts ...Option) ([]types.ProcessingResult, error) {
		return []types.ProcessingResult{{URL: urls[0], Status: types.ResultSuccess}}, nil
	})
	r := newTestRunner(p, store, nil)

	state, err := r.Run(t.Context(), []string{"https://example.com/1", "https://example.com/2"})
	require.NoError(t, err)
	require.Len(t, state.Results, 2)
	assert.Equal(t, types.ResultSuccess, state.Results[0].Status)
	assert.Equal(t, types.ResultFailed, state.Results[1].Status)
	assert.Empty(t, state.Error)
}

func TestRunnerRejectsConcurrentBatch(t *testing.T) {
	store := storage.NewMemoryStorage()
	started := make(chan struct{})
	release := make(chan struct{})
	p := processorFunc(func(ctx context.Context, urls []string, opts ...Option) ([]types.ProcessingResult, error) {
		close(started)
		<-release
		return nil, nil
	})
	r := newTestRunner(p, store, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(context.Background(), []string{"https://example.com/1"})
	}()
	<-started

	_, err := r.Run(t.Context(), []string{"https://example.com/2"})
	assert.ErrorIs(t, err, ErrBatchRunning)

	live, err := r.State(t.Context())
	require.NoError(t, err)
	assert.True(t, live.Active)
	assert.Equal(t, types.StatusQueued, live.URLStatuses["https://example.com/1"])

	close(release)
	<-done
}

func TestRunnerCancel(t *testing.T) {
	store := storage.NewMemoryStorage()
	vault := newTestStore()
	o := newTestOrchestrator(t, vault, pageExtractor(200))
	r := newTestRunner(o, store, nil)
	r.SetBatchConfig(config.BatchConfig{Concurrency: 1})

	assert.False(t, r.Cancel())

	// Cancel as soon as the first note is written.
	vault.OnCreate = func(path string) {
		r.Cancel()
	}

	urls := []string{"https://example.com/1", "https://example.com/2"}
	state, err := r.Run(t.Context(), urls)
	require.NoError(t, err)

	assert.True(t, state.Cancelled)
	assert.Equal(t, types.ResultSuccess, state.Results[0].Status)
	assert.Equal(t, types.StatusDone, state.URLStatuses[urls[0]])
	assert.True(t, IsCancelled(state.Results[1]))
	assert.Equal(t, types.StatusCancelled, state.URLStatuses[urls[1]])

	// Hub bookkeeping is skipped once cancelled.
	assert.Equal(t, 1, vault.Calls("CreateNote"))
}

func TestRetryFailed(t *testing.T) {
	store := storage.NewMemoryStorage()

	var (
		mu    sync.Mutex
		calls [][]string
	)
	p := processorFunc(func(ctx context.Context, urls []string, opts ...Option) ([]types.ProcessingResult, error) {
		mu.Lock()
		calls = append(calls, urls)
		mu.Unlock()

		results := make([]types.ProcessingResult, len(urls))
		for i, u := range urls {
			switch u {
			case "https://example.com/timeout":
				results[i] = failedResult(u, errors.New("request timed out"), nil)
			case "https://example.com/gone":
				results[i] = failedResult(u, &types.HTTPError{StatusCode: 404, URL: u}, nil)
			default:
				results[i] = types.ProcessingResult{URL: u, Status: types.ResultSuccess}
			}
		}
		return results, nil
	})
	r := newTestRunner(p, store, nil)

	_, err := r.RetryFailed(t.Context())
	assert.ErrorIs(t, err, ErrNothingToRetry)

	_, err = r.Run(t.Context(), []string{"https://example.com/ok", "https://example.com/timeout", "https://example.com/gone"})
	require.NoError(t, err)

	state, err := r.RetryFailed(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/timeout"}, state.URLs)

	require.Len(t, calls, 2)
	assert.Equal(t, []string{"https://example.com/timeout"}, calls[1])
}

func TestRetryableURLsFromPersistedState(t *testing.T) {
	state := &types.ProcessingState{
		Results: []types.ProcessingResult{
			{URL: "a", Status: types.ResultFailed, ErrorCategory: types.ErrNetwork, Error: "connection reset"},
			{URL: "b", Status: types.ResultFailed, ErrorCategory: types.ErrPageNotFound, Error: "HTTP 404"},
			{URL: "c", Status: types.ResultSkipped},
		},
	}
	assert.Equal(t, []string{"a"}, RetryableURLs(state))
	assert.Nil(t, RetryableURLs(nil))
}

func TestStateFallsBackToStorage(t *testing.T) {
	store := storage.NewMemoryStorage()
	require.NoError(t, store.State().SetCurrent(t.Context(), &types.ProcessingState{BatchID: "earlier"}))

	r := newTestRunner(processorFunc(nil), store, nil)
	state, err := r.State(t.Context())
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "earlier", state.BatchID)
}

func TestNotifiersJoinErrors(t *testing.T) {
	ok := &fakeNotifier{}
	failing := &fakeNotifier{err: errors.New("discord down")}
	ns := Notifiers{failing, ok}

	err := ns.NotifyBatch(t.Context(), &types.ProcessingState{BatchID: "x"})
	assert.ErrorContains(t, err, "discord down")
	assert.Len(t, ok.states, 1)
	assert.Len(t, failing.states, 1)
}

func TestRunnerForwardsProgress(t *testing.T) {
	store := storage.NewMemoryStorage()
	o := newTestOrchestrator(t, newTestStore(), pageExtractor(200))
	r := newTestRunner(o, store, nil)

	rec := newRecorder()
	r.Observe(rec)

	_, err := r.Run(t.Context(), []string{"https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, rec.statuses("https://example.com/a")[4])

	r.Observe(nil)
	_, err = r.Run(t.Context(), []string{"https://example.com/b"})
	require.NoError(t, err)
	assert.Empty(t, rec.statuses("https://example.com/b"))
}

func TestCountsKeepRepeatedURLs(t *testing.T) {
	store := storage.NewMemoryStorage()
	vault := newTestStore()
	o := newTestOrchestrator(t, vault, pageExtractor(200))
	r := newTestRunner(o, store, nil)

	urls := []string{"https://example.com/a", "https://example.com/a", "https://bad.example/b"}
	state, err := r.Run(t.Context(), urls)
	require.NoError(t, err)

	assert.Equal(t, types.ResultSuccess, state.Results[0].Status)
	assert.Equal(t, types.ResultSkipped, state.Results[1].Status)

	counts := state.Counts()
	assert.Equal(t, 1, counts[types.StatusDone])
	assert.Equal(t, 1, counts[types.StatusSkipped])
	assert.Equal(t, 1, counts[types.StatusFailed])
}

func TestCountsWhileRunning(t *testing.T) {
	state := &types.ProcessingState{
		URLs: []string{"a", "a", "b"},
		URLStatuses: map[string]types.URLStatus{
			"a": types.StatusExtracting,
			"b": types.StatusQueued,
		},
	}
	counts := state.Counts()
	assert.Equal(t, 2, counts[types.StatusExtracting])
	assert.Equal(t, 1, counts[types.StatusQueued])
}
