package process

import (
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// HTMLToMarkdown converts an HTML fragment to the Markdown dialect the chat transport
// renders: *bold* and _italic_. Links are flattened to their text and footnote
// markers are dropped.
func HTMLToMarkdown(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	body := doc.Find("body")
	body.Find("sup.reference, .mw-ref, style, script").Remove()
	body.Find("a").Each(func(_ int, a *goquery.Selection) {
		a.ReplaceWithHtml(html.EscapeString(a.Text()))
	})
	cleaned, err := body.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, &md.Options{
		StrongDelimiter: "*",
		EmDelimiter:     "_",
	})
	out, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StripMarkdown renders Markdown source as plain text. Used when the transport
// rejects a message's entities.
func StripMarkdown(src string) string {
	source := []byte(src)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var buf strings.Builder
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(node.Value)
			case *ast.AutoLink:
				buf.Write(node.Label(source))
			case *ast.CodeBlock, *ast.FencedCodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(source))
				}
			}
			return ast.WalkContinue, nil
		}

		if n.Type() == ast.TypeBlock && n.NextSibling() != nil {
			if n.Parent() != nil && n.Parent().Kind() == ast.KindDocument {
				buf.WriteString("\n\n")
			} else {
				buf.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(blankRuns.ReplaceAllString(buf.String(), "\n\n"))
}
