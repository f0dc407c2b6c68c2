package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"linkvault/internal/classify"
	"linkvault/internal/processors"
	"linkvault/internal/types"
	"linkvault/internal/utils"
)

const maxPathAttempts = 10

var errCancelled = errors.New(types.CancelledMessage)

// ProgressReporter observes per-URL stage transitions. Calls for one URL
// arrive in order; calls for different URLs may interleave.
type ProgressReporter interface {
	Progress(url string, status types.URLStatus)
}

type ProgressFunc func(url string, status types.URLStatus)

func (f ProgressFunc) Progress(url string, status types.URLStatus) {
	f(url, status)
}

// ResultObserver is an optional extension of ProgressReporter that receives
// each result as soon as its URL finishes.
type ResultObserver interface {
	Completed(index int, result types.ProcessingResult)
}

type nopProgress struct{}

func (nopProgress) Progress(string, types.URLStatus) {}

// pipeline carries everything one batch shares between its workers.
type pipeline struct {
	store      types.NoteStore
	extractor  types.Extractor
	provider   types.Provider
	vault      *types.VaultContext
	hubs       *HubTagSet
	dedupe     *processors.DuplicateDetector
	formatter  *processors.NoteFormatter
	progress   ProgressReporter
	isCanceled func() bool
	hubFolder  string
	minWords   int
	logger     *slog.Logger
}

// process runs one URL to a terminal result. It never panics and never
// returns an error; every failure ends up in the result. claim is the
// in-batch claim on the URL's normalized form; owner is false for a repeat
// of an earlier URL in the same batch.
func (p *pipeline) process(ctx context.Context, rawURL string, claim *InflightClaim, owner bool) (result types.ProcessingResult) {
	logger := p.logger.With("url", rawURL)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Pipeline panicked", "panic", r, "stack", string(debug.Stack()))
			result = failedResult(rawURL, fmt.Errorf("panic: %v", r), nil)
			p.progress.Progress(rawURL, types.StatusFailed)
		}
		if owner {
			claim.Release(result.Created())
		}
	}()

	if p.cancelled() {
		return p.cancelledResult(rawURL)
	}
	p.progress.Progress(rawURL, types.StatusChecking)

	if !owner {
		created, err := claim.Wait(ctx)
		if err == nil && created {
			logger.Info("Skipping repeated link in batch")
			return p.skipped(rawURL)
		}
	}

	if p.dedupe.IsDuplicate(ctx, p.store, rawURL) {
		logger.Info("Skipping link already in vault")
		return p.skipped(rawURL)
	}

	if p.cancelled() {
		return p.cancelledResult(rawURL)
	}
	p.progress.Progress(rawURL, types.StatusExtracting)

	content := p.extractor.Extract(ctx, rawURL)
	if content.Failed() {
		msg := "extraction failed"
		if content != nil && content.Error != "" {
			msg = content.Error
		}
		logger.Warn("Extraction failed", "error", msg)
		return p.failed(rawURL, errors.New(msg), &classify.Hint{Category: types.ErrExtraction})
	}
	quality := processors.AssessQuality(content, p.minWords)

	if p.cancelled() {
		return p.cancelledResult(rawURL)
	}
	p.progress.Progress(rawURL, types.StatusProcessing)

	note, err := p.provider.ProcessContent(ctx, content, p.vault)
	if err != nil {
		logger.Warn("AI processing failed", "error", err)
		return p.failed(rawURL, err, nil)
	}
	if note == nil {
		return p.failed(rawURL, types.NewProcessingError(types.StageSummarization, errors.New("provider returned no note")), nil)
	}

	if p.cancelled() {
		return p.cancelledResult(rawURL)
	}
	p.progress.Progress(rawURL, types.StatusCreating)

	path, err := p.createNote(ctx, note, quality)
	if err != nil {
		logger.Warn("Note creation failed", "error", err)
		return p.failed(rawURL, err, nil)
	}
	logger.Info("Note created", "path", path, "tags", note.Tags)

	// The note exists now, so cancellation only skips the hub bookkeeping.
	if !p.cancelled() {
		p.updateHubs(ctx, path, note.Tags)
	}

	result = types.ProcessingResult{
		URL:      rawURL,
		Status:   types.ResultSuccess,
		Note:     note,
		Folder:   note.Folder,
		NotePath: path,
	}
	status := types.StatusDone
	if quality != "" {
		result.Status = types.ResultReview
		result.QualityReason = quality
		status = types.StatusReview
	}
	p.progress.Progress(rawURL, status)
	return result
}

func (p *pipeline) cancelled() bool {
	return p.isCanceled != nil && p.isCanceled()
}

func (p *pipeline) createNote(ctx context.Context, note *types.ProcessedNote, quality string) (string, error) {
	body, err := p.formatter.Format(note, quality)
	if err != nil {
		return "", err
	}

	path, err := p.freePath(ctx, note.Folder, note.Title)
	if err != nil {
		return "", err
	}
	if err := p.store.CreateNote(ctx, path, body); err != nil {
		return "", err
	}
	return path, nil
}

// freePath avoids overwriting an unrelated note that happens to share a
// title by suffixing " 2", " 3", ... and gives up after maxPathAttempts.
func (p *pipeline) freePath(ctx context.Context, folder, title string) (string, error) {
	base := utils.SafeFileName(title)
	for n := 1; n <= maxPathAttempts; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s %d", base, n)
		}
		path := utils.JoinNotePath(folder, name)
		exists, err := p.store.NoteExists(ctx, path)
		if err != nil {
			return "", err
		}
		if !exists {
			return path, nil
		}
	}
	return "", &types.VaultError{
		Endpoint: "/notes/" + utils.JoinNotePath(folder, base),
		Err:      fmt.Errorf("no free file name after %d attempts", maxPathAttempts),
	}
}

func (p *pipeline) updateHubs(ctx context.Context, notePath string, tags []string) {
	if p.hubFolder == "" {
		return
	}
	link := processors.Backlink(notePath)
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		// Distinct tags can still land on the same hub file.
		path := processors.HubPath(p.hubFolder, tag)
		if seen[path] {
			continue
		}
		seen[path] = true
		if err := p.updateHub(ctx, tag, path, link); err != nil {
			p.logger.Warn("Hub update failed", "tag", tag, "path", path, "error", err)
		}
	}
}

func (p *pipeline) updateHub(ctx context.Context, tag, path, link string) error {
	first, ready, settle := p.hubs.Claim(path)
	if !first {
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
		return p.store.AppendToNote(ctx, path, link)
	}
	defer settle()

	exists, err := p.store.NoteExists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return p.store.AppendToNote(ctx, path, link)
	}
	return p.store.CreateNote(ctx, path, processors.HubHeader(tag)+link)
}

func (p *pipeline) skipped(rawURL string) types.ProcessingResult {
	p.progress.Progress(rawURL, types.StatusSkipped)
	return types.ProcessingResult{
		URL:        rawURL,
		Status:     types.ResultSkipped,
		SkipReason: processors.DuplicateReason,
	}
}

func (p *pipeline) failed(rawURL string, err error, hint *classify.Hint) types.ProcessingResult {
	p.progress.Progress(rawURL, types.StatusFailed)
	return failedResult(rawURL, err, hint)
}

func (p *pipeline) cancelledResult(rawURL string) types.ProcessingResult {
	p.progress.Progress(rawURL, types.StatusCancelled)
	return failedResult(rawURL, errCancelled, &classify.Hint{Category: types.ErrUnknown})
}

func failedResult(rawURL string, err error, hint *classify.Hint) types.ProcessingResult {
	meta := classify.Describe(err, hint)
	return types.ProcessingResult{
		URL:           rawURL,
		Status:        types.ResultFailed,
		Error:         err.Error(),
		ErrorCategory: meta.Category,
		ErrorMeta:     &meta,
	}
}

// IsCancelled reports whether r was stopped by batch cancellation.
func IsCancelled(r types.ProcessingResult) bool {
	return r.Status == types.ResultFailed && strings.EqualFold(r.Error, types.CancelledMessage)
}
