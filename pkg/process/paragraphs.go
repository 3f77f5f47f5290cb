package process

import "strings"

// FirstParagraphs returns up to n non-blank lines of text joined by blank lines.
// MediaWiki plain-text extracts put one paragraph per line.
func FirstParagraphs(text string, n int) string {
	if n <= 0 {
		return ""
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return strings.Join(out, "\n\n")
}
