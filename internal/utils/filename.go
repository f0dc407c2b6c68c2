package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFileNameRunes = 100

// UntitledName is used when a title leaves nothing usable.
const UntitledName = "Untitled"

// unsafeFileChars cannot appear in note file names; several of them also
// break wiki-link syntax.
const unsafeFileChars = `\/:*?"<>|#^[]`

// SafeFileName derives a file name (without extension) from a note title.
func SafeFileName(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	lastSpace := false
	for _, r := range folded {
		switch {
		case strings.ContainsRune(unsafeFileChars, r), unicode.IsControl(r):
			r = ' '
		}
		if unicode.IsSpace(r) {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteRune(' ')
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	name := strings.Trim(b.String(), " .")
	if r := []rune(name); len(r) > maxFileNameRunes {
		name = strings.TrimRight(string(r[:maxFileNameRunes]), " .")
	}
	if name == "" {
		return UntitledName
	}
	return name
}

// JoinNotePath joins a vault folder and a file name into a note path.
func JoinNotePath(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
