package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dayExtract = `May 4 is the 124th day of the year.

== Events ==

=== Pre-1600 ===
1256 – The Augustinian monastic order is constituted.

=== 1601–1900 ===
1886 – Haymarket affair.

=== 1901–present ===
1904 – The United States begins construction of the Panama Canal.
1970 – Kent State shootings.

==== Notes ====
nested text

== Births ==
1008 – Henry I of France.
`

func TestParseSections_Tree(t *testing.T) {
	root := ParseSections(dayExtract)

	assert.Equal(t, "May 4 is the 124th day of the year.", root.Text)
	require.Len(t, root.Sections, 2)
	assert.Equal(t, "Events", root.Sections[0].Title)
	assert.Equal(t, 2, root.Sections[0].Level)
	assert.Equal(t, "Births", root.Sections[1].Title)

	events := root.Sections[0]
	require.Len(t, events.Sections, 3)
	assert.Equal(t, []string{"Pre-1600", "1601–1900", "1901–present"}, titles(events.Sections))
}

func TestFindSection(t *testing.T) {
	root := ParseSections(dayExtract)

	sub := root.FindSection("Events", "1901–present")
	require.NotNil(t, sub)
	assert.Equal(t, "1904 – The United States begins construction of the Panama Canal.\n1970 – Kent State shootings.", sub.Text)
	// Nested section text is not part of the parent's text
	assert.NotContains(t, sub.Text, "nested text")
	require.Len(t, sub.Sections, 1)
	assert.Equal(t, "nested text", sub.Sections[0].Text)

	assert.Nil(t, root.FindSection("Events", "2001–present"))
	assert.Nil(t, root.FindSection("Deaths"))
	assert.Same(t, root, root.FindSection())
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line  string
		title string
		level int
		ok    bool
	}{
		{"== Events ==", "Events", 2, true},
		{"===1901–present===", "1901–present", 3, true},
		{"  == Padded ==  ", "Padded", 2, true},
		{"= Title =", "", 0, false},
		{"== Unbalanced ===", "", 0, false},
		{"====", "", 0, false},
		{"==  ==", "", 0, false},
		{"1904 – a = b", "", 0, false},
	}
	for _, tt := range tests {
		title, level, ok := parseHeading(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.title, title, tt.line)
		assert.Equal(t, tt.level, level, tt.line)
	}
}

func titles(secs []*Section) []string {
	out := make([]string, 0, len(secs))
	for _, s := range secs {
		out = append(out, s.Title)
	}
	return out
}
