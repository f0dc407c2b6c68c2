// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"linkvault/internal/types"
)

// MemoryStore is an in-memory types.NoteStore that records calls.
type MemoryStore struct {
	mu sync.Mutex

	Folders []string
	Tags    []string
	Samples map[string][]types.NoteSample
	Notes   map[string]string

	FoldersErr error
	TagsErr    error
	SampleErr  map[string]error
	SearchErr  error
	ReadErr    error
	CreateErr  error

	// OnCreate runs before a note is stored and may block.
	OnCreate func(path string)

	calls map[string]int
	ops   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Samples:   make(map[string][]types.NoteSample),
		Notes:     make(map[string]string),
		SampleErr: make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (s *MemoryStore) record(op, arg string) {
	s.calls[op]++
	if arg != "" {
		s.ops = append(s.ops, op+" "+arg)
	}
}

// Calls returns how many times op was invoked.
func (s *MemoryStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Ops returns the recorded "op path" lines for write operations.
func (s *MemoryStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *MemoryStore) Note(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.Notes[path]
	return n, ok
}

func (s *MemoryStore) ListFolders(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListFolders", "")
	if s.FoldersErr != nil {
		return nil, s.FoldersErr
	}
	return append([]string(nil), s.Folders...), nil
}

func (s *MemoryStore) ListTags(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListTags", "")
	if s.TagsErr != nil {
		return nil, s.TagsErr
	}
	return append([]string(nil), s.Tags...), nil
}

func (s *MemoryStore) SampleNotes(ctx context.Context, folder string, limit int) ([]types.NoteSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SampleNotes", "")
	if err := s.SampleErr[folder]; err != nil {
		return nil, err
	}
	notes := s.Samples[folder]
	if len(notes) > limit {
		notes = notes[:limit]
	}
	return append([]types.NoteSample(nil), notes...), nil
}

// SearchNotes returns paths of notes whose content contains query.
func (s *MemoryStore) SearchNotes(ctx context.Context, query string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SearchNotes", "")
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	var paths []string
	for path, content := range s.Notes {
		if strings.Contains(content, query) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *MemoryStore) ReadNote(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ReadNote", "")
	if s.ReadErr != nil {
		return "", s.ReadErr
	}
	n, ok := s.Notes[path]
	if !ok {
		return "", &types.VaultError{StatusCode: 404, Endpoint: "/notes/" + path}
	}
	return n, nil
}

func (s *MemoryStore) NoteExists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("NoteExists", "")
	_, ok := s.Notes[path]
	return ok, nil
}

func (s *MemoryStore) CreateNote(ctx context.Context, path, content string) error {
	if s.OnCreate != nil {
		s.OnCreate(path)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateNote", path)
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.Notes[path] = content
	return nil
}

func (s *MemoryStore) AppendToNote(ctx context.Context, path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("AppendToNote", path)
	s.Notes[path] += content
	return nil
}
