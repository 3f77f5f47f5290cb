package wiki

import (
	"strings"
)

// Section is one heading of a plain-text extract with the text directly below it.
// Text excludes the text of nested sections.
type Section struct {
	Title    string
	Level    int // Number of '=' on each side; top-level article sections are 2
	Text     string
	Sections []*Section
}

// ParseSections builds the section tree of an extract produced with exsectionformat=wiki.
// The returned root has Level 1 and holds the lead text.
func ParseSections(text string) *Section {
	root := &Section{Level: 1}
	stack := []*Section{root}
	var buf []string

	flush := func() {
		top := stack[len(stack)-1]
		top.Text = strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		title, level, ok := parseHeading(line)
		if !ok {
			buf = append(buf, line)
			continue
		}
		flush()
		for len(stack) > 1 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		sec := &Section{Title: title, Level: level}
		parent := stack[len(stack)-1]
		parent.Sections = append(parent.Sections, sec)
		stack = append(stack, sec)
	}
	flush()
	return root
}

// FindSection follows path from s, matching titles exactly at each level
func (s *Section) FindSection(path ...string) *Section {
	cur := s
	for _, title := range path {
		var next *Section
		for _, child := range cur.Sections {
			if child.Title == title {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// parseHeading recognizes "== Title ==" lines with a balanced number of '=' (2 to 6)
func parseHeading(line string) (string, int, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 4 || line[0] != '=' || line[len(line)-1] != '=' {
		return "", 0, false
	}
	left := len(line) - len(strings.TrimLeft(line, "="))
	right := len(line) - len(strings.TrimRight(line, "="))
	if left != right || left < 2 || left > 6 || left*2 >= len(line) {
		return "", 0, false
	}
	title := strings.TrimSpace(line[left : len(line)-right])
	if title == "" {
		return "", 0, false
	}
	return title, left, true
}
