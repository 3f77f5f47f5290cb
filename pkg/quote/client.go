package quote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/process"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
	"github.com/Sriram-PR/wiki-bot/pkg/wiki"
)

// stopSections end the quote list; everything after them is commentary about the subject
var stopSections = []string{
	"disputed", "misattributed", "quotes about", "quotations about", "about",
	"see also", "external links", "references", "sources", "notes",
}

// Client reads quotations from a Wikiquote installation
type Client struct {
	getter    wiki.JSONGetter
	titles    *wiki.Client // Wikiquote speaks the same query API for random titles
	apiURL    string
	minLength int
	log       *logrus.Entry
}

// NewClient creates a Client for the Wikiquote api.php endpoint at apiURL
func NewClient(getter wiki.JSONGetter, apiURL string, minLength int, log *logrus.Entry) *Client {
	log = log.WithField("component", "quote")
	return &Client{
		getter:    getter,
		titles:    wiki.NewClient(getter, apiURL, log),
		apiURL:    apiURL,
		minLength: minLength,
		log:       log,
	}
}

// RandomTitles returns up to n random Wikiquote page titles
func (c *Client) RandomTitles(ctx context.Context, n int) ([]string, error) {
	return c.titles.RandomTitles(ctx, n)
}

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Quotes returns the quotations listed on a Wikiquote page, converted to Markdown.
// A missing page wraps utils.ErrPageNotFound.
func (c *Client) Quotes(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("prop", "text")
	params.Set("redirects", "1")
	params.Set("disableeditsection", "1")
	params.Set("page", title)

	var resp parseResponse
	if err := c.getter.GetJSON(ctx, c.apiURL+"?"+params.Encode(), &resp); err != nil {
		return nil, utils.WrapErrorf(err, "parsing quote page '%s'", title)
	}
	if resp.Error != nil {
		if resp.Error.Code == "missingtitle" || resp.Error.Code == "invalidtitle" {
			return nil, fmt.Errorf("%w: %s", utils.ErrPageNotFound, title)
		}
		return nil, fmt.Errorf("%w: API error %s: %s", utils.ErrParsing, resp.Error.Code, resp.Error.Info)
	}

	quotes, err := ExtractQuotes(resp.Parse.Text, c.minLength)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"title": title, "quotes": len(quotes)}).Debug("Quotes extracted")
	return quotes, nil
}

// ExtractQuotes pulls top-level list items out of rendered Wikiquote HTML.
// Nested lists (attributions, sources) are dropped and extraction stops at the
// first commentary section. Quotes shorter than minLength runes are skipped.
func ExtractQuotes(pageHTML string, minLength int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}

	root := doc.Find(".mw-parser-output").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var quotes []string
	root.Children().EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if heading, ok := headingText(node); ok {
			return !isStopSection(heading)
		}
		if !node.Is("ul") {
			return true
		}
		node.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			item := li.Clone()
			item.Find("ul, ol, dl").Remove()
			fragment, err := item.Html()
			if err != nil {
				return
			}
			text, err := process.HTMLToMarkdown(fragment)
			if err != nil {
				return
			}
			if utf8.RuneCountInString(text) < minLength {
				return
			}
			quotes = append(quotes, text)
		})
		return true
	})
	return quotes, nil
}

// headingText recognizes both legacy <h2> children and the newer <div class="mw-heading"> wrappers
func headingText(node *goquery.Selection) (string, bool) {
	if node.Is("h2, h3, h4") {
		return strings.TrimSpace(node.Text()), true
	}
	if node.HasClass("mw-heading") {
		return strings.TrimSpace(node.Find("h2, h3, h4").First().Text()), true
	}
	return "", false
}

func isStopSection(heading string) bool {
	h := strings.ToLower(heading)
	for _, stop := range stopSections {
		if h == stop || strings.HasPrefix(h, stop+" ") {
			return true
		}
	}
	return false
}
