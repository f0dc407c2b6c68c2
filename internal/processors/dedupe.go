package processors

import (
	"context"
	"log/slog"

	"linkvault/internal/types"
	"linkvault/internal/utils"
)

// DuplicateReason is the skip reason given for URLs already in the vault.
const DuplicateReason = "Already saved in vault"

// DuplicateDetector finds existing notes whose source matches a URL.
type DuplicateDetector struct {
	logger *slog.Logger
}

func NewDuplicateDetector(logger *slog.Logger) *DuplicateDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateDetector{logger: logger}
}

// IsDuplicate reports whether store already holds a note for rawURL. Any
// store failure counts as "not a duplicate".
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, store types.NoteStore, rawURL string) bool {
	want := utils.NormalizeURL(rawURL)

	matches, err := store.SearchNotes(ctx, utils.SearchQuery(rawURL))
	if err != nil {
		d.logger.Debug("Duplicate search failed", "url", rawURL, "error", err)
		return false
	}

	for _, path := range matches {
		content, err := store.ReadNote(ctx, path)
		if err != nil {
			d.logger.Debug("Duplicate candidate unreadable", "path", path, "error", err)
			continue
		}
		source := FrontmatterSource(content)
		if source != "" && utils.NormalizeURL(source) == want {
			d.logger.Debug("Duplicate found", "url", rawURL, "path", path)
			return true
		}
	}
	return false
}
