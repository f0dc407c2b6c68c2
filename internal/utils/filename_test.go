package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSafeFileName(t *testing.T) {
	tests := map[string]string{
		"Hello World":          "Hello World",
		"What is Go? A tour":   "What is Go A tour",
		"a/b\\c:d*e":           "a b c d e",
		"Café résumé":          "Cafe resume",
		"  lots   of\tspace  ": "lots of space",
		"[[link]] #tag ^block": "link tag block",
		"trailing dots...":     "trailing dots",
		"":                     UntitledName,
		"???":                  UntitledName,
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFileName(in), in)
	}
}

func TestSafeFileNameLength(t *testing.T) {
	name := SafeFileName(strings.Repeat("é", 300))
	assert.Equal(t, 100, utf8.RuneCountInString(name))
}

func TestJoinNotePath(t *testing.T) {
	assert.Equal(t, "Inbox/note.md", JoinNotePath("Inbox", "note"))
	assert.Equal(t, "Inbox/sub/note.md", JoinNotePath("/Inbox/sub/", "note.md"))
	assert.Equal(t, "note.md", JoinNotePath("", "note"))
}
