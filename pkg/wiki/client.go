package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// JSONGetter fetches and decodes a JSON document. *fetch.Fetcher satisfies it.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, out interface{}) error
}

// Page is the subset of page data the bot uses
type Page struct {
	Title   string
	Missing bool
	Summary string // Plain-text intro section
	FullURL string // Canonical article URL
}

// Client talks to the MediaWiki Action API of one wiki
type Client struct {
	getter JSONGetter
	apiURL string
	log    *logrus.Entry
}

// NewClient creates a Client for the api.php endpoint at apiURL
func NewClient(getter JSONGetter, apiURL string, log *logrus.Entry) *Client {
	return &Client{getter: getter, apiURL: apiURL, log: log.WithField("component", "wiki")}
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
			Invalid bool   `json:"invalid"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
		Random []struct {
			Title string `json:"title"`
		} `json:"random"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (c *Client) query(ctx context.Context, params url.Values) (*queryResponse, error) {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var out queryResponse
	if err := c.getter.GetJSON(ctx, c.apiURL+"?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%w: API error %s: %s", utils.ErrParsing, out.Error.Code, out.Error.Info)
	}
	return &out, nil
}

// GetPage loads the intro extract and canonical URL of title, following redirects.
// A page that does not exist is returned with Missing set and no error.
func (c *Client) GetPage(ctx context.Context, title string) (*Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return &Page{Missing: true}, nil
	}

	params := url.Values{}
	params.Set("prop", "extracts|info")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", title)

	resp, err := c.query(ctx, params)
	if err != nil {
		return nil, utils.WrapErrorf(err, "loading page '%s'", title)
	}
	if len(resp.Query.Pages) == 0 {
		return &Page{Title: title, Missing: true}, nil
	}
	p := resp.Query.Pages[0]
	page := &Page{
		Title:   p.Title,
		Missing: p.Missing || p.Invalid,
		Summary: p.Extract,
		FullURL: p.FullURL,
	}
	if page.Title == "" {
		page.Title = title
	}
	c.log.WithFields(logrus.Fields{"title": title, "resolved": page.Title, "missing": page.Missing}).Debug("Page loaded")
	return page, nil
}

// ResolvePage follows redirects and returns the canonical URL of title in one lightweight query.
// A page that does not exist yields exists=false and no error.
func (c *Client) ResolvePage(ctx context.Context, title string) (string, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false, nil
	}

	params := url.Values{}
	params.Set("prop", "info")
	params.Set("inprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", title)

	resp, err := c.query(ctx, params)
	if err != nil {
		return "", false, utils.WrapErrorf(err, "resolving page '%s'", title)
	}
	if len(resp.Query.Pages) == 0 {
		return "", false, nil
	}
	p := resp.Query.Pages[0]
	if p.Missing || p.Invalid {
		return "", false, nil
	}
	if p.FullURL == "" {
		return "", true, fmt.Errorf("%w: no URL for '%s'", utils.ErrParsing, title)
	}
	c.log.WithFields(logrus.Fields{"title": title, "resolved": p.Title}).Debug("Page resolved")
	return p.FullURL, true, nil
}

// PageExists reports whether title names an existing article
func (c *Client) PageExists(ctx context.Context, title string) (bool, error) {
	_, exists, err := c.ResolvePage(ctx, title)
	return exists, err
}

// Summary returns the plain-text intro of an existing article
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	page, err := c.existing(ctx, title)
	if err != nil {
		return "", err
	}
	return page.Summary, nil
}

// CanonicalURL returns the full URL of an existing article
func (c *Client) CanonicalURL(ctx context.Context, title string) (string, error) {
	pageURL, exists, err := c.ResolvePage(ctx, title)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", utils.ErrPageNotFound, title)
	}
	return pageURL, nil
}

func (c *Client) existing(ctx context.Context, title string) (*Page, error) {
	page, err := c.GetPage(ctx, title)
	if err != nil {
		return nil, err
	}
	if page.Missing {
		return nil, fmt.Errorf("%w: %s", utils.ErrPageNotFound, title)
	}
	return page, nil
}

// RandomTitle returns the title of a random main-namespace article
func (c *Client) RandomTitle(ctx context.Context) (string, error) {
	titles, err := c.RandomTitles(ctx, 1)
	if err != nil {
		return "", err
	}
	return titles[0], nil
}

// RandomTitles returns up to n random main-namespace titles
func (c *Client) RandomTitles(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	params := url.Values{}
	params.Set("list", "random")
	params.Set("rnnamespace", "0")
	params.Set("rnlimit", fmt.Sprint(n))

	resp, err := c.query(ctx, params)
	if err != nil {
		return nil, utils.WrapErrorf(err, "random titles")
	}
	titles := make([]string, 0, len(resp.Query.Random))
	for _, r := range resp.Query.Random {
		titles = append(titles, r.Title)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: random list empty", utils.ErrPageNotFound)
	}
	return titles, nil
}

// PlainText returns the full plain-text extract of an existing article with
// section headings kept in wikitext form ("== Events ==")
func (c *Client) PlainText(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exsectionformat", "wiki")
	params.Set("redirects", "1")
	params.Set("titles", title)

	resp, err := c.query(ctx, params)
	if err != nil {
		return "", utils.WrapErrorf(err, "loading text of '%s'", title)
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing || resp.Query.Pages[0].Invalid {
		return "", fmt.Errorf("%w: %s", utils.ErrPageNotFound, title)
	}
	return resp.Query.Pages[0].Extract, nil
}
