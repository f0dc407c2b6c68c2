package processors

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// SplitFrontmatter separates a leading YAML block from the note body.
func SplitFrontmatter(content string) (string, string, bool) {
	content = strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(content, frontmatterDelim) {
		return "", content, false
	}

	rest := strings.TrimLeft(content[len(frontmatterDelim):], " \t")
	if !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		return "", content, false
	}
	rest = strings.TrimLeft(rest, "\r\n")

	for offset := 0; offset < len(rest); {
		end := strings.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}
		if strings.TrimRight(line, " \t\r") == frontmatterDelim {
			body := ""
			if end >= 0 {
				body = rest[offset+end+1:]
			}
			return rest[:offset], body, true
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return "", content, false
}

// FrontmatterSource returns the source field of a note's metadata block.
func FrontmatterSource(content string) string {
	block, _, ok := SplitFrontmatter(content)
	if !ok {
		return ""
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(block), &meta); err == nil {
		if s, ok := meta["source"].(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}

	// Hand-edited notes sometimes carry invalid YAML elsewhere in the block.
	for _, line := range strings.Split(block, "\n") {
		key, value, found := strings.Cut(line, ":")
		if found && strings.TrimSpace(key) == "source" {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return ""
}
